package artifact_test

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payslip-engine/artifact"
	"github.com/warp/payslip-engine/payroll"
)

func newStore(t *testing.T) *artifact.Store {
	t.Helper()
	s, err := artifact.NewStore(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestNames(t *testing.T) {
	p := payroll.MonthOf(payroll.NewDate(2026, time.October, 14))

	assert.Equal(t, "slip_7_202610.pdf", artifact.SlipName(7, p))
	assert.Equal(t, "aggregated_3_202610.csv", artifact.ReportName(3, p))
}

func TestOwner(t *testing.T) {
	tests := []struct {
		kind artifact.Kind
		name string
		id   payroll.EmployeeID
		ok   bool
	}{
		{artifact.KindPDF, "slip_7_202610.pdf", 7, true},
		{artifact.KindPDF, "slip_7_202610_20261014_100000_000000.pdf", 7, true},
		{artifact.KindCSV, "aggregated_3_202610.csv", 3, true},
		{artifact.KindCSV, "slip_7_202610.pdf", 0, false},
		{artifact.KindPDF, "slip_x_202610.pdf", 0, false},
		{artifact.KindPDF, "notes.pdf", 0, false},
	}
	for _, tt := range tests {
		id, ok := artifact.Owner(tt.kind, tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.id, id, tt.name)
	}
}

func TestPutGet_ReplacesContent(t *testing.T) {
	s := newStore(t)

	_, err := s.Put(artifact.KindCSV, "aggregated_1_202610.csv", []byte("v1"))
	require.NoError(t, err)
	_, err = s.Put(artifact.KindCSV, "aggregated_1_202610.csv", []byte("v2"))
	require.NoError(t, err)

	got, err := s.Get(artifact.KindCSV, "aggregated_1_202610.csv")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Join(s.Root, "current", "csv"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGet_Missing(t *testing.T) {
	s := newStore(t)

	_, err := s.Get(artifact.KindPDF, "slip_9_202610.pdf")
	assert.ErrorIs(t, err, payroll.ErrArtifactNotFound)
	assert.True(t, payroll.IsNotFound(err))

	ok, err := s.Exists(artifact.KindPDF, "slip_9_202610.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPut_RejectsPathTraversal(t *testing.T) {
	s := newStore(t)

	_, err := s.Put(artifact.KindPDF, "../escape.pdf", []byte("x"))
	assert.ErrorIs(t, err, payroll.ErrValidation)
}

func TestArchive_SameInstantNeverCollides(t *testing.T) {
	// GIVEN: A frozen clock, so every archive gets the same timestamp
	s := newStore(t).WithClock(func() time.Time {
		return time.Date(2026, time.October, 14, 10, 30, 0, 123456000, time.UTC)
	})
	_, err := s.Put(artifact.KindPDF, "slip_7_202610.pdf", []byte("%PDF"))
	require.NoError(t, err)

	// WHEN: Archiving twice
	a, err := s.Archive(artifact.KindPDF, "slip_7_202610.pdf")
	require.NoError(t, err)
	b, err := s.Archive(artifact.KindPDF, "slip_7_202610.pdf")
	require.NoError(t, err)

	// THEN: Two distinct files, the source stays in place
	assert.Equal(t, "slip_7_202610_20261014_103000_123456.pdf", a)
	assert.Equal(t, "slip_7_202610_20261014_103000_123456-1.pdf", b)

	ok, err := s.Exists(artifact.KindPDF, "slip_7_202610.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := s.List(artifact.AreaArchive, artifact.KindPDF)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, f := range list {
		assert.True(t, strings.HasPrefix(f.URL, "/files/archive/pdf/"))
		assert.Equal(t, int64(4), f.Size)
	}
}

func TestArchive_Missing(t *testing.T) {
	_, err := newStore(t).Archive(artifact.KindCSV, "aggregated_1_202610.csv")
	assert.ErrorIs(t, err, payroll.ErrArtifactNotFound)
}

func TestPut_ConcurrentReadersSeeWholeFiles(t *testing.T) {
	// GIVEN: A writer replacing a file while readers read it
	s := newStore(t)
	small := []byte(strings.Repeat("a", 1<<10))
	large := []byte(strings.Repeat("b", 1<<16))
	_, err := s.Put(artifact.KindPDF, "slip_1_202610.pdf", small)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			data := small
			if i%2 == 0 {
				data = large
			}
			_, err := s.Put(artifact.KindPDF, "slip_1_202610.pdf", data)
			assert.NoError(t, err)
		}
	}()

	// THEN: Every read is one of the two complete versions
	for i := 0; i < 200; i++ {
		got, err := s.Get(artifact.KindPDF, "slip_1_202610.pdf")
		require.NoError(t, err)
		assert.True(t, len(got) == len(small) || len(got) == len(large), "torn read of %d bytes", len(got))
	}
	wg.Wait()
}
