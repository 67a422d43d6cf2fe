/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All domain error types in one place for consistency and discoverability.
  Handlers map these onto HTTP statuses; the store maps SQL constraint
  violations back onto them.

ERROR CATEGORIES:
  1. Validation errors - bad input shape or range, user-correctable
  2. Conflict errors   - overlapping requests, duplicate period grants
  3. Not-found errors  - unknown employee, request, or balance row
  4. Dependency errors - calendar/status mirror failures (logged, swallowed)
  5. Integrity defects - states that should be impossible (balance underflow);
     surfaced loudly, never silently corrected

USAGE:
  if errors.Is(err, leave.ErrOverlap) { ... }

  var ib *leave.InsufficientBalanceError
  if errors.As(err, &ib) { ... ib.Remaining ... }
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDateRange is returned when endDate precedes startDate.
	ErrInvalidDateRange = errors.New("end date before start date")

	// ErrInvalidLeaveType is returned for a value outside the closed set.
	ErrInvalidLeaveType = errors.New("invalid leave type")

	// ErrMultiDayNotAllowed is returned when a half- or quarter-day type
	// spans more than one day.
	ErrMultiDayNotAllowed = errors.New("leave type does not allow multi-day ranges")

	// ErrTimeRangeRequired is returned when a quarter-day request omits its
	// start time.
	ErrTimeRangeRequired = errors.New("quarter-day leave requires a start time")

	// ErrInvalidTime is returned when a quarter-day start time is outside
	// the selectable half-hour grid.
	ErrInvalidTime = errors.New("invalid quarter-day start time")

	// ErrOverlap is returned when a new request collides with an existing
	// approved request.
	ErrOverlap = errors.New("overlapping leave request")

	// ErrInsufficientBalance is returned under the strict balance-check
	// policy when remaining balance cannot cover the request.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrAlreadyCancelled is returned when cancelling a cancelled request.
	ErrAlreadyCancelled = errors.New("request already cancelled")

	// ErrPastLeave is returned when cancelling a request whose start date
	// has already passed. Requests starting today remain cancellable.
	ErrPastLeave = errors.New("past leave cannot be cancelled")

	// ErrRequestNotFound is returned for an unknown request id.
	ErrRequestNotFound = errors.New("leave request not found")

	// ErrEmployeeNotFound is returned for an unknown employee id.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrBalanceNotFound is returned when a consume targets an employee
	// without a balance row.
	ErrBalanceNotFound = errors.New("leave balance not found")

	// ErrNoJoinDate is returned when an accrual computation is attempted
	// for an employee without a join date.
	ErrNoJoinDate = errors.New("employee has no join date")

	// ErrDuplicateGrant is returned when an accrual grant already exists
	// for the same (employee, period, kind). Expected under retries.
	ErrDuplicateGrant = errors.New("accrual grant already recorded for period")

	// ErrNonPositiveGrant is returned when a manual grant amount is zero
	// or negative.
	ErrNonPositiveGrant = errors.New("grant amount must be positive")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError details a balance shortage at request creation.
type InsufficientBalanceError struct {
	EmployeeID string
	Remaining  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: remaining %s, requested %s",
		e.Remaining, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// OverlapError details a collision with an existing approved request.
type OverlapError struct {
	EmployeeID string
	ExistingID string
	Existing   LeaveType
	Requested  LeaveType
	Date       Date
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("request overlaps approved %s leave %s on %s",
		e.Existing, e.ExistingID, e.Date)
}

func (e *OverlapError) Unwrap() error { return ErrOverlap }

// IntegrityError marks a state the ledger invariants forbid, such as a
// restore that would drive used below zero. It indicates a caller defect,
// not a recoverable condition.
type IntegrityError struct {
	EmployeeID string
	Op         string
	Detail     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity defect in %s for employee %s: %s", e.Op, e.EmployeeID, e.Detail)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError reports whether the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDateRange) ||
		errors.Is(err, ErrInvalidLeaveType) ||
		errors.Is(err, ErrMultiDayNotAllowed) ||
		errors.Is(err, ErrTimeRangeRequired) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrAlreadyCancelled) ||
		errors.Is(err, ErrPastLeave) ||
		errors.Is(err, ErrNoJoinDate) ||
		errors.Is(err, ErrNonPositiveGrant)
}

// IsConflict reports whether the error is a no-mutation conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrOverlap) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrDuplicateGrant)
}

// IsNotFound reports whether the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrBalanceNotFound)
}

// IsIntegrityDefect reports whether the error marks a broken invariant.
func IsIntegrityDefect(err error) bool {
	var ie *IntegrityError
	return errors.As(err, &ie)
}
