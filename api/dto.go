package api

import (
	"github.com/warp/payslip-engine/payroll"
)

// =============================================================================
// RESPONSE DTOs
// =============================================================================

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type HealthDTO struct {
	Status string `json:"status"`
	Env    string `json:"env"`
	SMTP   string `json:"smtp"`
}

type MeDTO struct {
	EmployeeID payroll.EmployeeID `json:"employee_id"`
	Code       string             `json:"code"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Role       payroll.Role       `json:"role"`
	Reports    int                `json:"reports"`
}

// ScenarioLoadedDTO maps scenario refs to assigned employee ids.
type ScenarioLoadedDTO struct {
	OK        bool                          `json:"ok"`
	Month     string                        `json:"month"`
	Employees map[string]payroll.EmployeeID `json:"employees"`
}
