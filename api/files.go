package api

import (
	"context"
	"net/http"
	"path"
	"strings"

	"github.com/warp/payslip-engine/artifact"
	"github.com/warp/payslip-engine/delivery"
	"github.com/warp/payslip-engine/payroll"
)

// =============================================================================
// TEAM SCOPE - a manager sees their own reports and their team's slips
// =============================================================================

// teamScope reports whether a stored name belongs to the manager's team.
type teamScope func(kind artifact.Kind, name string) bool

func (h *Handler) scopeFor(ctx context.Context, manager payroll.Employee) (teamScope, error) {
	reports, err := h.Directory.DirectReports(ctx, manager.ID)
	if err != nil {
		return nil, err
	}
	team := make(map[payroll.EmployeeID]bool, len(reports))
	for _, e := range reports {
		team[e.ID] = true
	}
	return func(kind artifact.Kind, name string) bool {
		owner, ok := artifact.Owner(kind, name)
		if !ok {
			return false
		}
		if kind == artifact.KindCSV {
			return owner == manager.ID
		}
		return team[owner]
	}, nil
}

func (s teamScope) filter(files []artifact.FileInfo) []artifact.FileInfo {
	out := make([]artifact.FileInfo, 0, len(files))
	for _, f := range files {
		if s(f.Kind, f.Name) {
			out = append(out, f)
		}
	}
	return out
}

// teamArchives lists the caller's archives, writing the error reply itself.
func (h *Handler) teamArchives(w http.ResponseWriter, r *http.Request) (delivery.ArchiveListing, bool) {
	manager, ok := h.manager(w, r)
	if !ok {
		return delivery.ArchiveListing{}, false
	}
	scope, err := h.scopeFor(r.Context(), manager)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load reports", err)
		return delivery.ArchiveListing{}, false
	}
	listing, err := h.Coordinator.Archives()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list archives", err)
		return delivery.ArchiveListing{}, false
	}
	return delivery.ArchiveListing{CSV: scope.filter(listing.CSV), PDF: scope.filter(listing.PDF)}, true
}

// Files serves {area}/{kind}/{name} from root. Names outside the caller's
// team, and directory listings, are reported as not found.
// GET /files/*
func (h *Handler) Files(root string) http.HandlerFunc {
	files := http.StripPrefix("/files", http.FileServer(http.Dir(root)))
	return func(w http.ResponseWriter, r *http.Request) {
		manager, ok := h.manager(w, r)
		if !ok {
			return
		}
		rel := strings.TrimPrefix(r.URL.Path, "/files/")
		parts := strings.Split(rel, "/")
		if path.Clean("/"+rel) != "/"+rel || len(parts) != 3 || !known(parts[0], parts[1]) {
			writeError(w, http.StatusNotFound, "File not found", nil)
			return
		}
		scope, err := h.scopeFor(r.Context(), manager)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load reports", err)
			return
		}
		if !scope(artifact.Kind(parts[1]), parts[2]) {
			writeError(w, http.StatusNotFound, "File not found", nil)
			return
		}
		files.ServeHTTP(w, r)
	}
}

func known(area, kind string) bool {
	switch artifact.Area(area) {
	case artifact.AreaCurrent, artifact.AreaArchive:
	default:
		return false
	}
	return kind == string(artifact.KindPDF) || kind == string(artifact.KindCSV)
}
