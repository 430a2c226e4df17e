/*
handlers.go - HTTP API handlers for the payslip engine

PURPOSE:
  Exposes the delivery coordinator over REST. Handles request and
  response encoding and error mapping; every decision about what runs
  and what is replayed belongs to the coordinator and its guard.

ENDPOINTS:
  Slips:
    POST   /api/slips/generate     Render slips for the manager's reports
    POST   /api/slips/send         Mail slips (renders missing ones)

  Team report:
    POST   /api/reports/generate   Write the team CSV
    POST   /api/reports/send       Mail the CSV to the manager
    POST   /api/reports/export     Download the team XLSX (never replayed)

  Archives:
    GET    /api/archives           JSON listing of archived files
    GET    /api/archives/browse    Same listing as an HTML page
    GET    /files/{area}/{kind}/{name}  Team files only, others 404

  Other:
    GET    /api/me                 The authenticated employee
    POST   /api/scenarios/demo     Seed a demo team (non-production only)
    GET    /health                 Liveness, environment, SMTP target

IDEMPOTENCY:
  Clients send "Idempotency-Key". A replayed reply carries
  "Idempotent-Replayed: true" and the recorded status and body.

ERROR HANDLING:
  Errors are returned as JSON {error, details}:
  - 401/403: see auth/
  - 404: Manager has no reports, artifact or employee missing
  - 409: Key recorded for another operation (strict mode)
  - 422: Validation errors, invalid input
  - 502: Nobody could be mailed
  - 500: Internal errors

SEE ALSO:
  - dto.go: Response data structures
  - server.go: Router setup and middleware
  - delivery/coordinator.go: the operations
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/warp/payslip-engine/auth"
	"github.com/warp/payslip-engine/delivery"
	"github.com/warp/payslip-engine/factory"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/timeoff"
)

// Header names.
const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "Idempotent-Replayed"
)

const maxScenarioBytes = 1 << 20

// Resetter is implemented by stores that can be wiped for demos.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Coordinator *delivery.Coordinator
	Directory   payroll.Directory
	Health      HealthDTO

	// Seeder enables POST /api/scenarios/demo when set.
	Seeder factory.Writer
	// Holidays are the configured holidays seeded vacations are counted
	// against, in addition to the scenario's own.
	Holidays timeoff.HolidayCalendar

	Logger *slog.Logger
	Now    func() time.Time
}

func NewHandler(coord *delivery.Coordinator, dir payroll.Directory, health HealthDTO, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Coordinator: coord,
		Directory:   dir,
		Health:      health,
		Logger:      logger,
		Now:         time.Now,
	}
}

// operation is the shape shared by every guarded coordinator method.
type operation func(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error)

// =============================================================================
// DELIVERY ENDPOINTS
// =============================================================================

func (h *Handler) GenerateSlips(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Coordinator.GenerateSlips)
}

func (h *Handler) SendSlips(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Coordinator.SendSlips)
}

func (h *Handler) GenerateReport(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Coordinator.GenerateReport)
}

func (h *Handler) SendReport(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Coordinator.SendReport)
}

func (h *Handler) ExportReport(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, h.Coordinator.ExportReport)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request, op operation) {
	manager, ok := h.manager(w, r)
	if !ok {
		return
	}
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))

	res, err := op(r.Context(), manager, key)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeResult(w, res)
}

// manager resolves the principal to a stored manager, writing the error
// reply itself when that fails.
func (h *Handler) manager(w http.ResponseWriter, r *http.Request) (payroll.Employee, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return payroll.Employee{}, false
	}
	emp, err := h.Directory.Employee(r.Context(), p.EmployeeID)
	if err != nil {
		if payroll.IsNotFound(err) {
			writeError(w, http.StatusForbidden, "Authenticated employee no longer exists", nil)
			return payroll.Employee{}, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to load employee", err)
		return payroll.Employee{}, false
	}
	if !emp.IsManager() {
		writeError(w, http.StatusForbidden, "Manager role required", nil)
		return payroll.Employee{}, false
	}
	return emp, true
}

func writeResult(w http.ResponseWriter, res idempotency.Result) {
	if res.Replayed {
		w.Header().Set(HeaderReplayed, "true")
	}
	if res.IsStructured() {
		status := res.Status
		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(res.Payload)
		return
	}

	w.Header().Set("Content-Type", res.ContentType)
	if res.Filename != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.Filename}))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(res.Body)
}

// =============================================================================
// READ ENDPOINTS
// =============================================================================

// Archives lists the caller's archived reports and their team's slips.
// GET /api/archives
func (h *Handler) Archives(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.teamArchives(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// Me describes the authenticated employee.
// GET /api/me
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required", nil)
		return
	}
	emp, err := h.Directory.Employee(r.Context(), p.EmployeeID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	dto := MeDTO{
		EmployeeID: emp.ID,
		Code:       emp.Code,
		Name:       emp.FullName(),
		Email:      emp.Email,
		Role:       emp.Role,
	}
	if emp.IsManager() {
		reports, err := h.Directory.DirectReports(r.Context(), emp.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to load reports", err)
			return
		}
		dto.Reports = len(reports)
	}
	writeJSON(w, http.StatusOK, dto)
}

// HealthCheck is unauthenticated.
// GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Health)
}

// =============================================================================
// SCENARIOS
// =============================================================================

// LoadDemoScenario seeds the store. With an empty body the built-in demo
// team for the current month is used; otherwise the body is a scenario
// JSON document. ?reset=true wipes payroll data first; the idempotency
// ledger is kept.
// POST /api/scenarios/demo
func (h *Handler) LoadDemoScenario(w http.ResponseWriter, r *http.Request) {
	if h.Seeder == nil {
		writeError(w, http.StatusNotFound, "Scenarios are disabled", nil)
		return
	}
	ctx := r.Context()
	period := payroll.MonthOf(h.Now())

	sc := factory.DemoScenario(period)
	body, err := io.ReadAll(io.LimitReader(r.Body, maxScenarioBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}
	if len(bytes.TrimSpace(body)) > 0 {
		if sc, err = factory.ParseScenario(body); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}

	if r.URL.Query().Get("reset") == "true" {
		resetter, ok := h.Seeder.(Resetter)
		if !ok {
			writeError(w, http.StatusBadRequest, "Store does not support reset", nil)
			return
		}
		if err := resetter.Reset(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
			return
		}
	}

	applied, err := factory.ApplyWithCalendar(ctx, h.Seeder, sc, h.Holidays)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	h.Logger.InfoContext(ctx, "scenario loaded", "employees", len(applied), "month", period.Month())
	writeJSON(w, http.StatusCreated, ScenarioLoadedDTO{OK: true, Month: period.Month(), Employees: applied})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps payroll errors onto statuses.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var derr *payroll.DeliveryError
	switch {
	case errors.Is(err, payroll.ErrKeyReuse):
		writeError(w, http.StatusConflict, "Idempotency key already used for another operation", err)
	case errors.Is(err, payroll.ErrNoEmployees):
		writeError(w, http.StatusNotFound, "No employees for this manager", nil)
	case payroll.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, payroll.ErrDuplicateRecord):
		writeError(w, http.StatusConflict, "Duplicate record", err)
	case errors.Is(err, payroll.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "Validation failed", err)
	case errors.As(err, &derr):
		writeError(w, http.StatusBadGateway, "Mail delivery failed", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err)
	default:
		h.Logger.ErrorContext(r.Context(), "operation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
