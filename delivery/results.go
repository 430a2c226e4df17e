package delivery

import (
	"github.com/warp/payslip-engine/artifact"
	"github.com/warp/payslip-engine/payroll"
)

// Operation names recorded in the idempotency ledger and the journal.
const (
	OpGenerateSlips  = "createPdfForEmployees"
	OpSendSlips      = "sendPdfToEmployees"
	OpGenerateReport = "createAggregatedEmployeeData"
	OpSendReport     = "sendAggregatedEmployeeData"
	OpExportReport   = "exportAggregatedEmployeeData"
)

// SlipsGenerated is the result of GenerateSlips.
type SlipsGenerated struct {
	OK       bool              `json:"ok"`
	Files    []string          `json:"files"`
	Count    int               `json:"count"`
	Month    string            `json:"month"`
	Warnings []payroll.Warning `json:"warnings,omitempty"`
}

// SentSlip is one delivered recipient.
type SentSlip struct {
	EmployeeID payroll.EmployeeID `json:"employee_id"`
	Employee   string             `json:"employee"`
	Email      string             `json:"email"`
	File       string             `json:"file"`
	ArchivedAs string             `json:"archived_as"`
	Resumed    bool               `json:"resumed,omitempty"` // delivered by an earlier, interrupted run
}

// FailedSlip is one recipient that could not be mailed.
type FailedSlip struct {
	EmployeeID payroll.EmployeeID `json:"employee_id"`
	Employee   string             `json:"employee"`
	Email      string             `json:"email"`
	Attempts   int                `json:"attempts"`
	Error      string             `json:"error"`
}

// SlipsSent is the result of SendSlips. OK is false when any recipient
// failed; the result is then recorded with status 207.
type SlipsSent struct {
	OK        bool              `json:"ok"`
	Sent      []SentSlip        `json:"sent"`
	Failed    []FailedSlip      `json:"failed,omitempty"`
	Count     int               `json:"count"`
	Generated int               `json:"generated"`
	Month     string            `json:"month"`
	RunID     string            `json:"run_id"`
	Warnings  []payroll.Warning `json:"warnings,omitempty"`
}

// ReportGenerated is the result of GenerateReport.
type ReportGenerated struct {
	OK        bool              `json:"ok"`
	File      string            `json:"file"`
	Employees int               `json:"employees"`
	Month     string            `json:"month"`
	Warnings  []payroll.Warning `json:"warnings,omitempty"`
}

// ReportSent is the result of SendReport.
type ReportSent struct {
	OK         bool   `json:"ok"`
	EmailedTo  string `json:"emailed_to"`
	FileSent   string `json:"file_sent"`
	ArchivedAs string `json:"archived_as"`
	Generated  bool   `json:"generated"`
	Resumed    bool   `json:"resumed,omitempty"`
	Month      string `json:"month"`
	RunID      string `json:"run_id"`
}

// ArchiveListing is the result of Archives.
type ArchiveListing struct {
	CSV []artifact.FileInfo `json:"csv"`
	PDF []artifact.FileInfo `json:"pdf"`
}
