/*
Package leave implements the leave accrual and balance-consistency engine.

PURPOSE:
  This package contains the domain core of a small organization's leave
  management system: what kinds of leave exist, how entitlement accrues from
  tenure, how the per-employee balance ledger is mutated, and how a leave
  request moves from creation to cancellation.

KEY CONCEPTS:
  - LeaveType: closed set of leave categories with a static policy table
  - Balance: running total/used counters per employee, mutated only through
    ledger operations (grant, setTotal, consume, restore)
  - AccrualGrant: append-only audit row whose existence is the sole
    idempotency guard for the scheduler ("one grant per employee per period")
  - LeaveRequest: auto-approved at creation, cancellable until its start
    date has passed, never deleted

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for all leave quantities (0.25 day units)
  2. Explicit time: every computation takes a reference date, never reads
     the wall clock internally
  3. Atomic deltas: ledger mutations are single-statement relative updates,
     so the store's native atomicity is the only concurrency control

SEE ALSO:
  - policy.go: per-type unit costs and constraints
  - accrual.go: tenure and entitlement arithmetic
  - scheduler.go: the idempotent periodic grant process
  - service.go: the request lifecycle
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPE
// =============================================================================

// LeaveType identifies a leave category. The set is closed; behavior for
// each member lives in the policy table (policy.go), not in scattered
// string comparisons.
type LeaveType string

const (
	Full       LeaveType = "FULL"
	AMHalf     LeaveType = "AM_HALF"
	PMHalf     LeaveType = "PM_HALF"
	QuarterDay LeaveType = "QUARTER_DAY"
)

// Valid reports whether t is a member of the closed set.
func (t LeaveType) Valid() bool {
	switch t {
	case Full, AMHalf, PMHalf, QuarterDay:
		return true
	}
	return false
}

// =============================================================================
// REQUEST STATUS
// =============================================================================

// Status of a leave request. There is no pending state: creation is
// approval. CANCELLED is terminal and preserves the row for audit.
type Status string

const (
	StatusApproved  Status = "APPROVED"
	StatusCancelled Status = "CANCELLED"
)

// =============================================================================
// EMPLOYEE
// =============================================================================

// Employee is the slice of the identity subsystem's record that the leave
// core reads. JoinDate drives accrual; it may be unset until an admin
// records it.
type Employee struct {
	ID       string
	Email    string
	Name     string
	IsAdmin  bool
	JoinDate *Date
}

// =============================================================================
// BALANCE
// =============================================================================

// Balance is the per-employee running entitlement counter pair.
// Remaining = Total - Used; under the borrow-ahead policy it may go
// negative, but Total and Used themselves never do.
type Balance struct {
	EmployeeID string
	Total      decimal.Decimal
	Used       decimal.Decimal
	UpdatedAt  time.Time
}

// Remaining returns Total - Used.
func (b Balance) Remaining() decimal.Decimal { return b.Total.Sub(b.Used) }

// =============================================================================
// LEAVE REQUEST
// =============================================================================

// LeaveRequest is a dated leave booking. StartDate and EndDate are
// inclusive. StartTime/EndTime are set only for quarter-day leave.
type LeaveRequest struct {
	ID         string
	EmployeeID string
	StartDate  Date
	EndDate    Date
	Type       LeaveType
	StartTime  string // HH:MM, quarter-day only
	EndTime    string // HH:MM, quarter-day only
	Status     Status

	// CalendarEventID references the mirrored external calendar event.
	// Empty when mirroring failed or is disabled.
	CalendarEventID string

	CreatedAt   time.Time
	CancelledAt *time.Time

	// Filled by admin queries joining the employee record.
	EmployeeName  string
	EmployeeEmail string
}

// Amount recomputes the leave units this request debits. It is derived
// from stored fields, never stored redundantly, so debit and credit are
// always computed by the same formula.
func (r *LeaveRequest) Amount() decimal.Decimal {
	return AmountFor(r.Type, r.StartDate, r.EndDate)
}

// Covers reports whether the request spans the given date.
func (r *LeaveRequest) Covers(d Date) bool {
	return r.StartDate.BeforeOrEqual(d) && r.EndDate.AfterOrEqual(d)
}

// =============================================================================
// ACCRUAL GRANT RECORD
// =============================================================================

// GrantKind distinguishes the two scheduler paths.
type GrantKind string

const (
	GrantMonthly GrantKind = "MONTHLY"
	GrantAnnual  GrantKind = "ANNUAL"
)

// AccrualGrant is the append-only idempotency and audit record. One row
// exists per (employee, period, kind); its existence is the sole source of
// truth for "already processed this period".
type AccrualGrant struct {
	ID         string
	EmployeeID string
	Period     string // YYYY-MM
	Kind       GrantKind
	Amount     decimal.Decimal

	// YearsOfService is recorded on ANNUAL grants for auditability.
	YearsOfService int

	CreatedAt time.Time
}
