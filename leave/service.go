/*
service.go - Leave request lifecycle

PURPOSE:
  Drives a leave request from creation through cancellation:
  validation, overlap detection, balance debit/credit, and best-effort
  mirroring to the external calendar.

LIFECYCLE:
  There is no pending state. A valid request is inserted APPROVED and the
  balance is debited in the same store transaction. Cancellation flips the
  status and credits back the same amount, recomputed from the stored
  type and date range so debit and credit can never drift apart.

MIRRORING:
  Calendar and status mirrors run after the primary transaction commits.
  Their failures are logged and swallowed; they never roll back or block
  an already-committed mutation.

BALANCE POLICY:
  PolicyStrict rejects a request when remaining balance cannot cover it.
  PolicyBorrowAhead skips the check and lets remaining go negative.
*/
package leave

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// MIRROR INTERFACES (implemented by the mirror package)
// =============================================================================

// CalendarEvent is the narrow slice of a request the calendar mirror needs.
type CalendarEvent struct {
	EmployeeName string
	Start        Date
	End          Date
	Type         LeaveType
	StartTime    string
	EndTime      string
}

// CalendarMirror mirrors leave bookings to an external team calendar.
// Best-effort: callers log and swallow every error.
type CalendarMirror interface {
	CreateEvent(ctx context.Context, ev CalendarEvent) (eventID string, err error)
	DeleteEvent(ctx context.Context, eventID string) error
}

// StatusMirror pushes on-leave markers to the team-status service.
type StatusMirror interface {
	SetStatus(ctx context.Context, employeeID, text string) error
	ClearStatus(ctx context.Context, employeeID string) error
}

// =============================================================================
// BALANCE POLICY
// =============================================================================

// BalancePolicy selects the balance-sufficiency check applied at request
// creation.
type BalancePolicy string

const (
	// PolicyStrict rejects requests exceeding the remaining balance.
	PolicyStrict BalancePolicy = "strict"

	// PolicyBorrowAhead performs no check; remaining may go negative.
	PolicyBorrowAhead BalancePolicy = "borrow"
)

// =============================================================================
// SERVICE
// =============================================================================

// Service drives the leave request lifecycle.
type Service struct {
	Store    Store
	Calendar CalendarMirror
	Status   StatusMirror
	Policy   BalancePolicy
}

// NewService wires a lifecycle service. Nil mirrors are replaced by no-ops
// at call sites via the mirror package; the service itself only checks for
// nil before dispatch.
func NewService(store Store, calendar CalendarMirror, status StatusMirror, policy BalancePolicy) *Service {
	if policy == "" {
		policy = PolicyStrict
	}
	return &Service{Store: store, Calendar: calendar, Status: status, Policy: policy}
}

// CreateInput carries the fields of a new leave request. Today is the
// caller's reference date; it is stored as CreatedAt.
type CreateInput struct {
	EmployeeID string
	Start      Date
	End        Date
	Type       LeaveType
	StartTime  string // quarter-day only
	Today      Date
}

// Create validates, books, and debits a leave request. On success the
// request is APPROVED and the balance consumed atomically; the calendar
// mirror runs afterwards, best-effort.
func (s *Service) Create(ctx context.Context, in CreateInput) (*LeaveRequest, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeaveType, in.Type)
	}
	if in.End.Before(in.Start) {
		return nil, ErrInvalidDateRange
	}

	policy, err := PolicyFor(in.Type)
	if err != nil {
		return nil, err
	}
	if !policy.AllowsMultiDay && !in.Start.Equal(in.End) {
		return nil, ErrMultiDayNotAllowed
	}

	var startTime, endTime string
	if policy.RequiresTimeRange {
		if in.StartTime == "" {
			return nil, ErrTimeRangeRequired
		}
		if !ValidQuarterStart(in.StartTime) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTime, in.StartTime)
		}
		startTime = in.StartTime
		endTime = QuarterEndTime(startTime)
	}

	amount := AmountFor(in.Type, in.Start, in.End)

	if s.Policy == PolicyStrict {
		bal, err := s.Store.GetBalance(ctx, in.EmployeeID)
		if err != nil {
			return nil, err
		}
		if bal.Remaining().LessThan(amount) {
			return nil, &InsufficientBalanceError{
				EmployeeID: in.EmployeeID,
				Remaining:  bal.Remaining(),
				Requested:  amount,
			}
		}
	}

	existing, err := s.Store.ApprovedInRange(ctx, in.EmployeeID, in.Start, in.End)
	if err != nil {
		return nil, err
	}
	if hit := FindCollision(existing, in.Type, in.Start, in.End); hit != nil {
		return nil, &OverlapError{
			EmployeeID: in.EmployeeID,
			ExistingID: hit.ID,
			Existing:   hit.Type,
			Requested:  in.Type,
			Date:       hit.StartDate,
		}
	}

	req := LeaveRequest{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		StartDate:  in.Start,
		EndDate:    in.End,
		Type:       in.Type,
		StartTime:  startTime,
		EndTime:    endTime,
		Status:     StatusApproved,
		CreatedAt:  time.Now().UTC(),
	}

	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.InsertRequest(ctx, req); err != nil {
			return err
		}
		return tx.Consume(ctx, in.EmployeeID, amount)
	})
	if err != nil {
		return nil, err
	}

	s.mirrorCreate(ctx, &req)
	return &req, nil
}

// mirrorCreate pushes the booking to the external calendar after commit.
// Failures never propagate to the caller of Create.
func (s *Service) mirrorCreate(ctx context.Context, req *LeaveRequest) {
	if s.Calendar == nil {
		return
	}

	name := req.EmployeeID
	if emp, err := s.Store.GetEmployee(ctx, req.EmployeeID); err == nil {
		name = emp.Name
	}

	start, end := TimeRangeFor(req)
	eventID, err := s.Calendar.CreateEvent(ctx, CalendarEvent{
		EmployeeName: name,
		Start:        req.StartDate,
		End:          req.EndDate,
		Type:         req.Type,
		StartTime:    start,
		EndTime:      end,
	})
	if err != nil {
		log.Printf("[Mirror] calendar event for request %s failed: %v", req.ID, err)
		return
	}

	req.CalendarEventID = eventID
	if err := s.Store.SetCalendarEventID(ctx, req.ID, eventID); err != nil {
		log.Printf("[Mirror] saving calendar event id for request %s failed: %v", req.ID, err)
	}
}

// CancelInput identifies the request to cancel and who is cancelling.
type CancelInput struct {
	RequestID  string
	EmployeeID string // owner check, ignored for admins
	Admin      bool
	Today      Date
}

// Cancel flips an APPROVED request to CANCELLED and restores the balance.
// Non-admins may only cancel their own requests, and only while the start
// date has not passed (requests starting today remain cancellable).
func (s *Service) Cancel(ctx context.Context, in CancelInput) (*LeaveRequest, error) {
	req, err := s.Store.GetRequest(ctx, in.RequestID)
	if err != nil {
		return nil, err
	}
	if !in.Admin && req.EmployeeID != in.EmployeeID {
		// Do not reveal other employees' requests.
		return nil, ErrRequestNotFound
	}
	if req.Status == StatusCancelled {
		return nil, ErrAlreadyCancelled
	}
	if !in.Admin && req.StartDate.Before(in.Today) {
		return nil, ErrPastLeave
	}

	amount := req.Amount()
	cancelledAt := time.Now().UTC()
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.MarkCancelled(ctx, req.ID, cancelledAt); err != nil {
			return err
		}
		return tx.Restore(ctx, req.EmployeeID, amount)
	})
	if err != nil {
		return nil, err
	}

	req.Status = StatusCancelled
	req.CancelledAt = &cancelledAt

	if s.Calendar != nil && req.CalendarEventID != "" {
		if err := s.Calendar.DeleteEvent(ctx, req.CalendarEventID); err != nil {
			log.Printf("[Mirror] deleting calendar event %s failed: %v", req.CalendarEventID, err)
		}
	}
	return req, nil
}

// ListByEmployee returns an employee's requests, newest first.
func (s *Service) ListByEmployee(ctx context.Context, employeeID string) ([]LeaveRequest, error) {
	return s.Store.RequestsByEmployee(ctx, employeeID)
}

// ListAll returns every request with employee identity. Admin view.
func (s *Service) ListAll(ctx context.Context) ([]LeaveRequest, error) {
	return s.Store.AllRequests(ctx)
}

// =============================================================================
// STATUS SWEEP
// =============================================================================

// statusTextFor is the on-leave marker pushed to the team-status service.
func statusTextFor(t LeaveType) string {
	switch t {
	case AMHalf:
		return "AM half-day leave"
	case PMHalf:
		return "PM half-day leave"
	case QuarterDay:
		return "Stepping out (quarter day)"
	default:
		return "On leave"
	}
}

// SweepStatus sets or clears team-status markers for every employee on
// approved leave today. Per-employee mirror failures are logged and the
// sweep continues; the processed count excludes failures.
func (s *Service) SweepStatus(ctx context.Context, today Date, set bool) (int, error) {
	if s.Status == nil {
		return 0, nil
	}

	onLeave, err := s.Store.ApprovedOn(ctx, today)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, req := range onLeave {
		var err error
		if set {
			err = s.Status.SetStatus(ctx, req.EmployeeID, statusTextFor(req.Type))
		} else {
			err = s.Status.ClearStatus(ctx, req.EmployeeID)
		}
		if err != nil {
			log.Printf("[Mirror] status update for employee %s failed: %v", req.EmployeeID, err)
			continue
		}
		processed++
	}
	return processed, nil
}

// =============================================================================
// ADMIN BALANCE OPERATIONS
// =============================================================================

// ManualGrant adds amount to an employee's total. Admin operation.
func (s *Service) ManualGrant(ctx context.Context, employeeID string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveGrant
	}
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return err
	}
	return s.Store.Grant(ctx, employeeID, amount)
}

// SetJoinDate records or clears an employee's join date. When a date is
// set, the balance total is recomputed one-shot from tenure via
// InitialEntitlement and installed with replace semantics.
func (s *Service) SetJoinDate(ctx context.Context, employeeID string, join *Date, today Date, mode RecomputeMode) error {
	if _, err := s.Store.GetEmployee(ctx, employeeID); err != nil {
		return err
	}
	if err := s.Store.SetJoinDate(ctx, employeeID, join); err != nil {
		return err
	}
	if join == nil {
		return nil
	}
	total := InitialEntitlement(*join, today, mode)
	return s.Store.SetTotal(ctx, employeeID, total)
}
