/*
store.go - Generated file namespace

PURPOSE:
  Owns the on-disk layout of generated slips and reports and their
  archived copies. Nothing else writes under the root.

LAYOUT:
  {root}/current/pdf/slip_{employeeId}_{YYYYMM}.pdf
  {root}/current/csv/aggregated_{managerId}_{YYYYMM}.csv
  {root}/archive/pdf/slip_{employeeId}_{YYYYMM}_{YYYYMMDD_HHMMSS_micro}.pdf
  {root}/archive/csv/...

INVARIANTS:
  1. Put replaces atomically (temp file + rename); a concurrent Get sees
     the old or the new bytes, never a mix
  2. Archive copies, never moves, and never overwrites an archive file;
     two archives in the same microsecond get a -N suffix

SEE ALSO:
  - delivery/coordinator.go: ensure -> read -> send -> archive
*/
package artifact

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/warp/payslip-engine/payroll"
)

// Kind is an artifact family; it is also the directory name.
type Kind string

const (
	KindPDF Kind = "pdf"
	KindCSV Kind = "csv"
)

// Area is one of the two top-level directories.
type Area string

const (
	AreaCurrent Area = "current"
	AreaArchive Area = "archive"
)

// archiveStamp renders t as YYYYMMDD_HHMMSS_micro.
func archiveStamp(t time.Time) string {
	return fmt.Sprintf("%s_%06d", t.Format("20060102_150405"), t.Nanosecond()/int(time.Microsecond))
}

// SlipName is the current-area name of an employee's slip.
func SlipName(id payroll.EmployeeID, p payroll.Period) string {
	return fmt.Sprintf("slip_%d_%s.pdf", id, p.Tag())
}

// ReportName is the current-area name of a manager's team report.
func ReportName(managerID payroll.EmployeeID, p payroll.Period) string {
	return fmt.Sprintf("aggregated_%d_%s.csv", managerID, p.Tag())
}

// Owner returns the employee id a current or archived name belongs to:
// the subject of a slip, the manager of a team report.
func Owner(kind Kind, name string) (payroll.EmployeeID, bool) {
	prefix := "slip_"
	if kind == KindCSV {
		prefix = "aggregated_"
	}
	rest, ok := strings.CutPrefix(name, prefix)
	if !ok {
		return 0, false
	}
	raw, _, ok := strings.Cut(rest, "_")
	if !ok {
		return 0, false
	}
	id, err := payroll.ParseEmployeeID(raw)
	return id, err == nil
}

// FileInfo describes one stored file.
type FileInfo struct {
	Area     Area      `json:"area"`
	Kind     Kind      `json:"kind"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// Store is a filesystem artifact store rooted at Root.
type Store struct {
	Root string
	now  func() time.Time
}

func NewStore(root string) (*Store, error) {
	s := &Store{Root: root, now: time.Now}
	for _, area := range []Area{AreaCurrent, AreaArchive} {
		for _, kind := range []Kind{KindPDF, KindCSV} {
			if err := os.MkdirAll(s.dir(area, kind), 0o755); err != nil {
				return nil, fmt.Errorf("create artifact dir: %w", err)
			}
		}
	}
	return s, nil
}

// WithClock sets the clock used for archive timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) dir(area Area, kind Kind) string {
	return filepath.Join(s.Root, string(area), string(kind))
}

func (s *Store) path(area Area, kind Kind, name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", &payroll.ValidationError{Field: "artifact.name", Reason: fmt.Sprintf("%q is not a plain file name", name)}
	}
	return filepath.Join(s.dir(area, kind), name), nil
}

// Put writes data to the current area, replacing any previous content.
func (s *Store) Put(kind Kind, name string, data []byte) (string, error) {
	dst, err := s.path(AreaCurrent, kind, name)
	if err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("put %s: %w", name, err)
	}
	return dst, nil
}

// Get reads a current-area file.
func (s *Store) Get(kind Kind, name string) ([]byte, error) {
	p, err := s.path(AreaCurrent, kind, name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s/%s: %w", kind, name, payroll.ErrArtifactNotFound)
	}
	return b, err
}

func (s *Store) Exists(kind Kind, name string) (bool, error) {
	p, err := s.path(AreaCurrent, kind, name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// Archive copies a current-area file into the archive area under a
// timestamped name and returns that name.
func (s *Store) Archive(kind Kind, name string) (string, error) {
	src, err := s.path(AreaCurrent, kind, name)
	if err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%s/%s: %w", kind, name, payroll.ErrArtifactNotFound)
	}
	if err != nil {
		return "", err
	}
	defer in.Close()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := archiveStamp(s.now())
	dir := s.dir(AreaArchive, kind)

	for n := 0; ; n++ {
		archived := fmt.Sprintf("%s_%s%s", stem, stamp, ext)
		if n > 0 {
			archived = fmt.Sprintf("%s_%s-%d%s", stem, stamp, n, ext)
		}
		out, err := os.OpenFile(filepath.Join(dir, archived), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("archive %s: %w", name, err)
		}
		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(out.Name())
			return "", fmt.Errorf("archive %s: %w", name, err)
		}
		if err := out.Close(); err != nil {
			return "", fmt.Errorf("archive %s: %w", name, err)
		}
		return archived, nil
	}
}

// List returns the files of one area and kind, newest first.
func (s *Store) List(area Area, kind Kind) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.dir(area, kind))
	if err != nil {
		return nil, err
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, FileInfo{
			Area:     area,
			Kind:     kind,
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			URL:      "/" + path.Join("files", string(area), string(kind), e.Name()),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Modified.Equal(out[j].Modified) {
			return out[i].Modified.After(out[j].Modified)
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// Path returns the absolute path of a current-area file.
func (s *Store) Path(kind Kind, name string) (string, error) {
	return s.path(AreaCurrent, kind, name)
}
