/*
coordinator.go - Generate, deliver and archive slips and team reports

PURPOSE:
  Orchestrates the manager-scoped operations. Each one starts with an
  explicit Guard.RunOnce call under its own operation name, so the
  at-most-once guarantee is visible where the operation is defined.

OPERATIONS:
  GenerateSlips   direct reports -> aggregate -> render -> put (parallel)
  SendSlips       ensure slips -> read -> mail -> archive -> journal
  GenerateReport  direct reports -> aggregate -> CSV -> put
  SendReport      ensure CSV -> read -> mail manager -> archive -> journal
  ExportReport    direct reports -> aggregate -> XLSX (opaque, never recorded)
  Archives        listing of archived files (read only, unguarded)

PERIOD:
  Always the calendar month containing the clock time at operation start.

SEND FAILURES:
  A recipient failure does not stop the others. Some delivered, some
  failed: structured result with status 207. Nobody delivered: the
  joined *payroll.DeliveryError is returned and nothing is recorded.
  Runs that did not deliver to everyone stay open in the journal and the
  next send resumes them, skipping recipients already delivered.

SEE ALSO:
  - journal.go: per-recipient completion records
  - idempotency/guard.go: RunOnce
*/
package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/warp/payslip-engine/artifact"
	"github.com/warp/payslip-engine/idempotency"
	"github.com/warp/payslip-engine/mail"
	"github.com/warp/payslip-engine/payroll"
	"github.com/warp/payslip-engine/render"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Deps are the collaborators of a Coordinator.
type Deps struct {
	Directory  payroll.Directory
	Aggregator *payroll.Aggregator
	Slips      *render.Slips
	Artifacts  *artifact.Store
	Mailer     mail.Sender
	Guard      *idempotency.Guard
	Journal    Journal
	Logger     *slog.Logger
}

// Options configure message content and parallelism.
type Options struct {
	From    string // sender address
	AppName string // signature line
	Workers int    // parallel slip renders; <1 means 4
	Now     func() time.Time
}

// Coordinator runs the delivery operations.
type Coordinator struct {
	Deps
	opts Options
}

func NewCoordinator(deps Deps, opts Options) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.Workers < 1 {
		opts.Workers = 4
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.From == "" {
		opts.From = "noreply@payslip.local"
	}
	if opts.AppName == "" {
		opts.AppName = "Payslip Engine"
	}
	return &Coordinator{Deps: deps, opts: opts}
}

func (c *Coordinator) period() payroll.Period { return payroll.MonthOf(c.opts.Now()) }

// reports returns the manager's direct reports ordered by last name,
// first name, then id.
func (c *Coordinator) reports(ctx context.Context, manager payroll.Employee) ([]payroll.Employee, error) {
	emps, err := c.Directory.DirectReports(ctx, manager.ID)
	if err != nil {
		return nil, fmt.Errorf("load direct reports of %d: %w", manager.ID, err)
	}
	if len(emps) == 0 {
		return nil, payroll.ErrNoEmployees
	}
	sort.SliceStable(emps, func(i, j int) bool {
		a, b := emps[i], emps[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.ID < b.ID
	})
	return emps, nil
}

// =============================================================================
// SLIPS
// =============================================================================

// GenerateSlips renders and stores a slip for every direct report.
func (c *Coordinator) GenerateSlips(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error) {
	return c.Guard.RunOnce(ctx, key, OpGenerateSlips, func(ctx context.Context) (idempotency.Result, error) {
		period := c.period()
		emps, err := c.reports(ctx, manager)
		if err != nil {
			return idempotency.Result{}, err
		}
		files, warnings, err := c.renderSlips(ctx, emps, period)
		if err != nil {
			return idempotency.Result{}, err
		}
		c.Logger.InfoContext(ctx, "slips generated",
			"manager_id", manager.ID, "month", period.Month(), "count", len(files))
		return idempotency.Structured(http.StatusOK, SlipsGenerated{
			OK:       true,
			Files:    files,
			Count:    len(files),
			Month:    period.Month(),
			Warnings: warnings,
		})
	})
}

// renderSlips renders emps in parallel and returns the stored names in
// the order of emps.
func (c *Coordinator) renderSlips(ctx context.Context, emps []payroll.Employee, period payroll.Period) ([]string, []payroll.Warning, error) {
	names := make([]string, len(emps))
	warns := make([][]payroll.Warning, len(emps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, emp := range emps {
		g.Go(func() error {
			res, err := c.Aggregator.AggregateEmployee(gctx, emp, period)
			if err != nil {
				return fmt.Errorf("aggregate %d: %w", emp.ID, err)
			}
			doc, err := c.Slips.Render(render.SlipData{Employee: emp, Result: res, PeriodLabel: period.Label()})
			if err != nil {
				return err
			}
			name := artifact.SlipName(emp.ID, period)
			if _, err := c.Artifacts.Put(artifact.KindPDF, name, doc); err != nil {
				return err
			}
			names[i], warns[i] = name, res.Warnings
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var warnings []payroll.Warning
	for _, w := range warns {
		warnings = append(warnings, w...)
	}
	return names, warnings, nil
}

// SendSlips mails every direct report its slip and archives what was sent.
func (c *Coordinator) SendSlips(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error) {
	return c.Guard.RunOnce(ctx, key, OpSendSlips, func(ctx context.Context) (idempotency.Result, error) {
		period := c.period()
		emps, err := c.reports(ctx, manager)
		if err != nil {
			return idempotency.Result{}, err
		}

		var missing []payroll.Employee
		for _, emp := range emps {
			ok, err := c.Artifacts.Exists(artifact.KindPDF, artifact.SlipName(emp.ID, period))
			if err != nil {
				return idempotency.Result{}, err
			}
			if !ok {
				missing = append(missing, emp)
			}
		}
		var warnings []payroll.Warning
		if len(missing) > 0 {
			if _, warnings, err = c.renderSlips(ctx, missing, period); err != nil {
				return idempotency.Result{}, err
			}
		}

		run, err := c.Journal.Open(ctx, OpSendSlips, manager.ID, period.Month(), key)
		if err != nil {
			return idempotency.Result{}, fmt.Errorf("open send run: %w", err)
		}

		out := SlipsSent{Month: period.Month(), RunID: run.ID, Generated: len(missing), Warnings: warnings}
		var failures []error
		for _, emp := range emps {
			name := artifact.SlipName(emp.ID, period)
			if item, done := run.Delivered(emp.ID); done {
				out.Sent = append(out.Sent, SentSlip{
					EmployeeID: emp.ID, Employee: emp.FullName(), Email: item.Recipient,
					File: item.File, ArchivedAs: item.ArchivedAs, Resumed: true,
				})
				continue
			}
			if err := ctx.Err(); err != nil {
				return idempotency.Result{}, err
			}

			sent, err := c.sendSlip(ctx, run.ID, emp, name, period)
			if err != nil {
				if ctx.Err() != nil {
					return idempotency.Result{}, ctx.Err()
				}
				c.Logger.WarnContext(ctx, "slip not delivered",
					"employee_id", emp.ID, "email", emp.Email, "error", err)
				failures = append(failures, err)
				out.Failed = append(out.Failed, failedSlip(emp, err))
				continue
			}
			out.Sent = append(out.Sent, sent)
		}

		out.Count = len(out.Sent)
		if len(out.Sent) == 0 && len(failures) > 0 {
			return idempotency.Result{}, fmt.Errorf("no slip delivered: %w", errors.Join(failures...))
		}

		status := http.StatusOK
		if len(out.Failed) > 0 {
			status = http.StatusMultiStatus
		} else {
			out.OK = true
			if err := c.Journal.Close(ctx, run.ID); err != nil {
				return idempotency.Result{}, fmt.Errorf("close send run: %w", err)
			}
		}
		c.Logger.InfoContext(ctx, "slips sent",
			"manager_id", manager.ID, "month", period.Month(), "sent", len(out.Sent), "failed", len(out.Failed))
		return idempotency.Structured(status, out)
	})
}

func (c *Coordinator) sendSlip(ctx context.Context, runID string, emp payroll.Employee, name string, period payroll.Period) (SentSlip, error) {
	doc, err := c.Artifacts.Get(artifact.KindPDF, name)
	if err != nil {
		return SentSlip{}, err
	}
	msg := mail.Message{
		Subject: "Your Salary Slip - " + period.Label(),
		From:    c.opts.From,
		To:      []string{emp.Email},
		Body: fmt.Sprintf("Hello %s,\n\nAttached is your salary slip for %s.\n"+
			"The PDF is password-protected with your personal ID.\n\nRegards,\n%s",
			emp.FirstName, period.Label(), c.opts.AppName),
		Attachments: []mail.Attachment{{Filename: name, ContentType: ContentTypePDF, Data: doc}},
	}
	if err := c.Mailer.Send(ctx, msg); err != nil {
		return SentSlip{}, err
	}

	// Delivered: from here on the recipient must be journaled.
	archived, err := c.Artifacts.Archive(artifact.KindPDF, name)
	if err != nil {
		c.Logger.ErrorContext(ctx, "slip delivered but not archived", "employee_id", emp.ID, "file", name, "error", err)
	}
	item := Item{
		RunID: runID, EmployeeID: emp.ID, Recipient: emp.Email,
		File: name, ArchivedAs: archived, SentAt: c.opts.Now().UTC(),
	}
	if err := c.Journal.Complete(context.WithoutCancel(ctx), item); err != nil {
		c.Logger.ErrorContext(ctx, "delivery not journaled", "employee_id", emp.ID, "run_id", runID, "error", err)
	}
	return SentSlip{
		EmployeeID: emp.ID, Employee: emp.FullName(), Email: emp.Email,
		File: name, ArchivedAs: archived,
	}, nil
}

func failedSlip(emp payroll.Employee, err error) FailedSlip {
	f := FailedSlip{EmployeeID: emp.ID, Employee: emp.FullName(), Email: emp.Email, Attempts: 1, Error: err.Error()}
	var derr *payroll.DeliveryError
	if errors.As(err, &derr) {
		f.Attempts = derr.Attempts
	}
	return f
}

// =============================================================================
// TEAM REPORT
// =============================================================================

// teamRows aggregates every direct report into report rows.
func (c *Coordinator) teamRows(ctx context.Context, manager payroll.Employee, period payroll.Period) ([]render.ReportRow, []payroll.Warning, error) {
	emps, err := c.reports(ctx, manager)
	if err != nil {
		return nil, nil, err
	}
	rows := make([]render.ReportRow, 0, len(emps))
	var warnings []payroll.Warning
	for _, emp := range emps {
		res, err := c.Aggregator.AggregateEmployee(ctx, emp, period)
		if err != nil {
			return nil, nil, fmt.Errorf("aggregate %d: %w", emp.ID, err)
		}
		rows = append(rows, render.RowFrom(emp, res))
		warnings = append(warnings, res.Warnings...)
	}
	return rows, warnings, nil
}

func (c *Coordinator) buildReport(ctx context.Context, manager payroll.Employee, period payroll.Period) (ReportGenerated, error) {
	rows, warnings, err := c.teamRows(ctx, manager, period)
	if err != nil {
		return ReportGenerated{}, err
	}
	data, err := render.RenderTeamReport(rows)
	if err != nil {
		return ReportGenerated{}, err
	}
	name := artifact.ReportName(manager.ID, period)
	if _, err := c.Artifacts.Put(artifact.KindCSV, name, data); err != nil {
		return ReportGenerated{}, err
	}
	return ReportGenerated{OK: true, File: name, Employees: len(rows), Month: period.Month(), Warnings: warnings}, nil
}

// GenerateReport writes the manager's team CSV for the current month.
func (c *Coordinator) GenerateReport(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error) {
	return c.Guard.RunOnce(ctx, key, OpGenerateReport, func(ctx context.Context) (idempotency.Result, error) {
		out, err := c.buildReport(ctx, manager, c.period())
		if err != nil {
			return idempotency.Result{}, err
		}
		c.Logger.InfoContext(ctx, "team report generated", "manager_id", manager.ID, "month", out.Month, "employees", out.Employees)
		return idempotency.Structured(http.StatusOK, out)
	})
}

// SendReport mails the team CSV to the manager and archives it.
func (c *Coordinator) SendReport(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error) {
	return c.Guard.RunOnce(ctx, key, OpSendReport, func(ctx context.Context) (idempotency.Result, error) {
		period := c.period()
		name := artifact.ReportName(manager.ID, period)
		out := ReportSent{EmailedTo: manager.Email, FileSent: name, Month: period.Month()}

		ok, err := c.Artifacts.Exists(artifact.KindCSV, name)
		if err != nil {
			return idempotency.Result{}, err
		}
		if !ok {
			if _, err := c.buildReport(ctx, manager, period); err != nil {
				return idempotency.Result{}, err
			}
			out.Generated = true
		}

		run, err := c.Journal.Open(ctx, OpSendReport, manager.ID, period.Month(), key)
		if err != nil {
			return idempotency.Result{}, fmt.Errorf("open send run: %w", err)
		}
		out.RunID = run.ID

		if item, done := run.Delivered(manager.ID); done {
			out.ArchivedAs, out.Resumed = item.ArchivedAs, true
		} else {
			data, err := c.Artifacts.Get(artifact.KindCSV, name)
			if err != nil {
				return idempotency.Result{}, err
			}
			msg := mail.Message{
				Subject: "Employee Aggregated Report - " + period.Label(),
				From:    c.opts.From,
				To:      []string{manager.Email},
				Body: fmt.Sprintf("Hello %s,\n\nAttached is your team CSV for %s.\n\nRegards,\n%s",
					manager.FirstName, period.Label(), c.opts.AppName),
				Attachments: []mail.Attachment{{Filename: name, ContentType: ContentTypeCSV, Data: data}},
			}
			if err := c.Mailer.Send(ctx, msg); err != nil {
				return idempotency.Result{}, err
			}
			out.ArchivedAs, err = c.Artifacts.Archive(artifact.KindCSV, name)
			if err != nil {
				c.Logger.ErrorContext(ctx, "report delivered but not archived", "manager_id", manager.ID, "error", err)
			}
			item := Item{
				RunID: run.ID, EmployeeID: manager.ID, Recipient: manager.Email,
				File: name, ArchivedAs: out.ArchivedAs, SentAt: c.opts.Now().UTC(),
			}
			if err := c.Journal.Complete(context.WithoutCancel(ctx), item); err != nil {
				c.Logger.ErrorContext(ctx, "delivery not journaled", "manager_id", manager.ID, "run_id", run.ID, "error", err)
			}
		}

		if err := c.Journal.Close(ctx, run.ID); err != nil {
			return idempotency.Result{}, fmt.Errorf("close send run: %w", err)
		}
		out.OK = true
		c.Logger.InfoContext(ctx, "team report sent", "manager_id", manager.ID, "month", out.Month, "archived_as", out.ArchivedAs)
		return idempotency.Structured(http.StatusOK, out)
	})
}

// ExportReport returns the team report as an XLSX download. The result is
// opaque, so the guard never records it.
func (c *Coordinator) ExportReport(ctx context.Context, manager payroll.Employee, key string) (idempotency.Result, error) {
	return c.Guard.RunOnce(ctx, key, OpExportReport, func(ctx context.Context) (idempotency.Result, error) {
		period := c.period()
		rows, _, err := c.teamRows(ctx, manager, period)
		if err != nil {
			return idempotency.Result{}, err
		}
		data, err := render.RenderTeamSpreadsheet(rows)
		if err != nil {
			return idempotency.Result{}, err
		}
		filename := fmt.Sprintf("aggregated_%d_%s.xlsx", manager.ID, period.Tag())
		return idempotency.Opaque(ContentTypeXLSX, filename, data), nil
	})
}

// Archives lists archived reports and slips, newest first.
func (c *Coordinator) Archives() (ArchiveListing, error) {
	csv, err := c.Artifacts.List(artifact.AreaArchive, artifact.KindCSV)
	if err != nil {
		return ArchiveListing{}, err
	}
	pdf, err := c.Artifacts.List(artifact.AreaArchive, artifact.KindPDF)
	if err != nil {
		return ArchiveListing{}, err
	}
	return ArchiveListing{CSV: csv, PDF: pdf}, nil
}
