/*
store.go - Persistence interfaces the leave core requires

PURPOSE:
  Defines the narrow interface between the domain logic and the relational
  store. The contract with the persistence collaborator is deliberately small:
  atomic single-statement counter updates, a uniqueness constraint backing
  the accrual idempotency check, and transactional grouping of the
  multi-statement mutations (request insert + balance debit).

LEDGER CONTRACT:
  Balance mutations are relative deltas (SET total = total + ?), never
  read-modify-write in application code. Two concurrent callers therefore
  serialize inside the store, and no application-level locking exists.

IDEMPOTENCY CONTRACT:
  InsertGrant must be backed by UNIQUE(employee_id, period, kind) and
  return ErrDuplicateGrant on violation. The scheduler checks HasGrant
  first but relies on the constraint to close the check-then-insert race.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BALANCE LEDGER
// =============================================================================

// BalanceStore is the balance ledger. Every operation is a single atomic
// statement against the underlying store and refreshes the row's
// last-modified timestamp.
type BalanceStore interface {
	// Grant adds delta to total, creating the row (total=delta, used=0)
	// if absent. Used by monthly accrual and admin manual grants.
	Grant(ctx context.Context, employeeID string, delta decimal.Decimal) error

	// SetTotal replaces total, creating the row if absent. Used by annual
	// recalculation and the join-date one-shot recompute.
	SetTotal(ctx context.Context, employeeID string, total decimal.Decimal) error

	// Consume adds amount to used. The row must exist
	// (ErrBalanceNotFound otherwise); any sufficiency pre-check is the
	// caller's responsibility.
	Consume(ctx context.Context, employeeID string, amount decimal.Decimal) error

	// Restore subtracts amount from used. Driving used below zero is a
	// caller defect and surfaces as an IntegrityError, never a silent
	// clamp.
	Restore(ctx context.Context, employeeID string, amount decimal.Decimal) error

	// GetBalance returns the employee's balance row, or ErrBalanceNotFound.
	GetBalance(ctx context.Context, employeeID string) (*Balance, error)
}

// =============================================================================
// GRANT RECORDS
// =============================================================================

// GrantStore persists the append-only accrual audit rows.
type GrantStore interface {
	// HasGrant reports whether a grant exists for (employee, period, kind).
	HasGrant(ctx context.Context, employeeID, period string, kind GrantKind) (bool, error)

	// InsertGrant appends a grant record. Returns ErrDuplicateGrant when
	// the (employee, period, kind) row already exists.
	InsertGrant(ctx context.Context, g AccrualGrant) error

	// GrantsForEmployee returns an employee's grant history, newest first.
	GrantsForEmployee(ctx context.Context, employeeID string) ([]AccrualGrant, error)
}

// =============================================================================
// REQUESTS AND EMPLOYEES
// =============================================================================

// RequestStore persists leave requests. Requests are never deleted;
// cancellation is a status flip.
type RequestStore interface {
	InsertRequest(ctx context.Context, r LeaveRequest) error

	// GetRequest returns a request by id, or ErrRequestNotFound.
	GetRequest(ctx context.Context, id string) (*LeaveRequest, error)

	// MarkCancelled flips an APPROVED request to CANCELLED with the given
	// cancellation timestamp.
	MarkCancelled(ctx context.Context, id string, at time.Time) error

	// SetCalendarEventID records the mirrored calendar event reference.
	SetCalendarEventID(ctx context.Context, id, eventID string) error

	// RequestsByEmployee returns an employee's requests, newest first.
	RequestsByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error)

	// ApprovedInRange returns an employee's APPROVED requests whose date
	// range intersects [from, to]. Used for overlap detection.
	ApprovedInRange(ctx context.Context, employeeID string, from, to Date) ([]LeaveRequest, error)

	// AllRequests returns every request joined with employee name/email,
	// newest first. Admin view.
	AllRequests(ctx context.Context) ([]LeaveRequest, error)

	// ApprovedOn returns all APPROVED requests covering the given date,
	// joined with employee identity. Feeds the status sweep.
	ApprovedOn(ctx context.Context, day Date) ([]LeaveRequest, error)
}

// EmployeeStore reads and updates the employee records the core consumes.
type EmployeeStore interface {
	// GetEmployee returns an employee by id, or ErrEmployeeNotFound.
	GetEmployee(ctx context.Context, id string) (*Employee, error)

	// ListEmployees returns all employees ordered by name.
	ListEmployees(ctx context.Context) ([]Employee, error)

	// SaveEmployee upserts an employee record.
	SaveEmployee(ctx context.Context, e Employee) error

	// SetJoinDate updates an employee's join date (nil clears it).
	SetJoinDate(ctx context.Context, id string, join *Date) error
}

// =============================================================================
// COMPOSITE STORE
// =============================================================================

// Store is everything the leave core needs from persistence.
type Store interface {
	BalanceStore
	GrantStore
	RequestStore
	EmployeeStore

	// WithTx executes fn atomically: all statements issued through the
	// passed Store commit together or not at all. A crash between a
	// request insert and its balance debit must not be observable.
	WithTx(ctx context.Context, fn func(Store) error) error
}
