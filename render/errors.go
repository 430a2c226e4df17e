package render

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/payslip-engine/payroll"
)

// RenderError reports structurally invalid rendering input.
type RenderError struct {
	Document string // "slip", "report" or "spreadsheet"
	Field    string
	Reason   string
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: invalid %s: %s", e.Document, e.Field, e.Reason)
}

func (e *RenderError) Unwrap() error { return payroll.ErrValidation }

// validator collects the first failure for a document.
type validator struct {
	doc string
	err *RenderError
}

func (v *validator) fail(field, reason string) {
	if v.err == nil {
		v.err = &RenderError{Document: v.doc, Field: field, Reason: reason}
	}
}

func (v *validator) name(field, s string) {
	if strings.TrimSpace(s) == "" {
		v.fail(field, "must not be empty")
	}
}

func (v *validator) days(field string, n int) {
	if n < 0 {
		v.fail(field, fmt.Sprintf("must not be negative, got %d", n))
	}
}

func (v *validator) money(field string, d decimal.Decimal) {
	if d.IsNegative() {
		v.fail(field, fmt.Sprintf("must not be negative, got %s", d.StringFixed(2)))
	}
}

func (v *validator) digits(field, s string) {
	if s == "" {
		v.fail(field, "must not be empty")
		return
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			v.fail(field, "must contain digits only")
			return
		}
	}
}

func (v *validator) result() error {
	if v.err == nil {
		return nil
	}
	return v.err
}
