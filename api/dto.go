/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request bodies carry go-playground/validator struct tags. Handlers run
  them through the shared validator instance before touching the domain;
  a tag failure answers 400 without reaching the service layer. Cross-
  field rules the tags cannot express (date ordering, quarter-day time
  grids) live in the leave package.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/policy.go: Semantic validation of leave shapes
*/
package api

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/daybreak/leave-engine/leave"
)

// validate is the shared validator instance for request bodies.
var validate = validator.New(validator.WithRequiredStructEnabled())

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateLeaveRequest is the body for POST /api/leaves.
type CreateLeaveRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Type      string `json:"type" validate:"required,oneof=FULL AM_HALF PM_HALF QUARTER_DAY"`
	StartTime string `json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
}

// SetJoinDateRequest is the body for PATCH /api/admin/users.
// An empty join_date clears the employee's join date.
type SetJoinDateRequest struct {
	EmployeeID string `json:"employee_id" validate:"required"`
	JoinDate   string `json:"join_date" validate:"omitempty,datetime=2006-01-02"`
}

// ManualGrantRequest is the body for POST /api/admin/grants.
type ManualGrantRequest struct {
	EmployeeID string  `json:"employee_id" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID              string `json:"id"`
	EmployeeID      string `json:"employee_id"`
	EmployeeName    string `json:"employee_name,omitempty"`
	EmployeeEmail   string `json:"employee_email,omitempty"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	Type            string `json:"type"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	Amount          string `json:"amount"`
	Status          string `json:"status"`
	CalendarEventID string `json:"calendar_event_id,omitempty"`
	CreatedAt       string `json:"created_at"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
}

// BalanceDTO summarizes an employee's leave balance.
type BalanceDTO struct {
	EmployeeID string `json:"employee_id"`
	Total      string `json:"total"`
	Used       string `json:"used"`
	Remaining  string `json:"remaining"`
	UpdatedAt  string `json:"updated_at,omitempty"`
}

// UserDTO is the admin view of an employee with balance attached.
type UserDTO struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Email          string      `json:"email"`
	IsAdmin        bool        `json:"is_admin"`
	JoinDate       string      `json:"join_date,omitempty"`
	YearsOfService int         `json:"years_of_service"`
	Balance        *BalanceDTO `json:"balance,omitempty"`
}

// StatusSweepDTO reports a status sweep run.
type StatusSweepDTO struct {
	Action  string `json:"action"`
	Updated int    `json:"updated"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toLeaveRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:              r.ID,
		EmployeeID:      r.EmployeeID,
		EmployeeName:    r.EmployeeName,
		EmployeeEmail:   r.EmployeeEmail,
		StartDate:       r.StartDate.String(),
		EndDate:         r.EndDate.String(),
		Type:            string(r.Type),
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Amount:          r.Amount().String(),
		Status:          string(r.Status),
		CalendarEventID: r.CalendarEventID,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.CancelledAt != nil {
		dto.CancelledAt = r.CancelledAt.UTC().Format(time.RFC3339)
	}
	return dto
}

func toLeaveRequestDTOs(reqs []leave.LeaveRequest) []LeaveRequestDTO {
	dtos := make([]LeaveRequestDTO, 0, len(reqs))
	for _, r := range reqs {
		dtos = append(dtos, toLeaveRequestDTO(r))
	}
	return dtos
}

func toBalanceDTO(b *leave.Balance) *BalanceDTO {
	if b == nil {
		return nil
	}
	dto := &BalanceDTO{
		EmployeeID: b.EmployeeID,
		Total:      b.Total.String(),
		Used:       b.Used.String(),
		Remaining:  b.Remaining().String(),
	}
	if !b.UpdatedAt.IsZero() {
		dto.UpdatedAt = b.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return dto
}

// emptyBalanceDTO stands in for employees with no ledger row yet.
func emptyBalanceDTO(employeeID string) *BalanceDTO {
	zero := decimal.Zero.String()
	return &BalanceDTO{
		EmployeeID: employeeID,
		Total:      zero,
		Used:       zero,
		Remaining:  zero,
	}
}
