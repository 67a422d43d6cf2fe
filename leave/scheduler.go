/*
scheduler.go - Idempotent accrual batch

PURPOSE:
  Scans all employees on an external trigger and applies the grant each is
  due for the current period, exactly once per (employee, period, kind).

ALGORITHM PER RUN:
  1. Select employees to evaluate: all of them on a monthly cadence, or
     only those whose join day-of-month matches today on a daily cadence
     (which spreads anniversary processing across the month).
  2. No join date -> skip (counted).
  3. Tenure < 1 year: skip inside the hire month itself, otherwise grant
     +1 MONTHLY for the current YYYY-MM period.
  4. Tenure >= 1 year: only in the anniversary month, replace total with
     AnnualEntitlement(years) and record the ANNUAL grant with the years
     used, for audit.
  5. Per-employee failures are collected, never abort the batch.

IDEMPOTENCY:
  The existence of an AccrualGrant row for (employee, period, kind) is the
  sole guard. The scheduler checks it before mutating and inserts it in
  the same store transaction as the balance mutation; the UNIQUE
  constraint closes the window between concurrent duplicate triggers.
  There is no wall-clock throttling anywhere.
*/
package leave

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cadence selects which employees a single run evaluates.
type Cadence string

const (
	// CadenceMonthly evaluates every employee. Deploy with a
	// first-of-month trigger.
	CadenceMonthly Cadence = "monthly"

	// CadenceDaily evaluates only employees whose join day-of-month
	// equals today's, spreading anniversaries across the month. Deploy
	// with a daily trigger.
	CadenceDaily Cadence = "daily"
)

// Scheduler applies periodic accrual grants through the balance ledger.
type Scheduler struct {
	Store   Store
	Cadence Cadence
}

// NewScheduler returns a scheduler with the given cadence
// (CadenceMonthly when empty).
func NewScheduler(store Store, cadence Cadence) *Scheduler {
	if cadence == "" {
		cadence = CadenceMonthly
	}
	return &Scheduler{Store: store, Cadence: cadence}
}

// RunError records one employee's failure without aborting the batch.
type RunError struct {
	EmployeeID string `json:"employee_id"`
	Message    string `json:"message"`
}

// RunReport summarizes a single scheduler invocation.
type RunReport struct {
	Period                string     `json:"period"`
	Processed             int        `json:"processed"`
	Granted               int        `json:"granted"`
	MonthlyGrants         int        `json:"monthly_grants"`
	AnnualRecalcs         int        `json:"annual_recalcs"`
	SkippedNoJoinDate     int        `json:"skipped_no_join_date"`
	SkippedHireMonth      int        `json:"skipped_hire_month"`
	SkippedNotAnniversary int        `json:"skipped_not_anniversary"`
	Errors                []RunError `json:"errors"`
}

// Run executes one accrual pass for the given reference date. The batch
// always completes; per-employee errors land in the report.
func (s *Scheduler) Run(ctx context.Context, today Date) (*RunReport, error) {
	report := &RunReport{Period: today.Period(), Errors: []RunError{}}

	employees, err := s.Store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}

	for _, emp := range employees {
		if emp.JoinDate == nil {
			report.Processed++
			report.SkippedNoJoinDate++
			continue
		}
		if s.Cadence == CadenceDaily && emp.JoinDate.Day() != today.Day() {
			continue
		}
		report.Processed++

		if err := s.processEmployee(ctx, emp, today, report); err != nil {
			log.Printf("[Scheduler] employee %s: %v", emp.ID, err)
			report.Errors = append(report.Errors, RunError{
				EmployeeID: emp.ID,
				Message:    err.Error(),
			})
		}
	}

	log.Printf("[Scheduler] %s: processed=%d granted=%d monthly=%d annual=%d errors=%d",
		report.Period, report.Processed, report.Granted,
		report.MonthlyGrants, report.AnnualRecalcs, len(report.Errors))
	return report, nil
}

func (s *Scheduler) processEmployee(ctx context.Context, emp Employee, today Date, report *RunReport) error {
	join := *emp.JoinDate
	years := YearsOfServiceForAccrual(join, today)

	if years < 1 {
		// No grant in the hire month itself; the first partial-month
		// grant lands one month in.
		if join.Year() == today.Year() && join.Month() == today.Month() {
			report.SkippedHireMonth++
			return nil
		}
		granted, err := s.monthlyGrant(ctx, emp.ID, today)
		if err != nil {
			return err
		}
		if granted {
			report.Granted++
			report.MonthlyGrants++
		}
		return nil
	}

	// Annual recalculation fires only in the anniversary month.
	if join.Month() != today.Month() {
		report.SkippedNotAnniversary++
		return nil
	}
	granted, err := s.annualRecalc(ctx, emp.ID, years, today)
	if err != nil {
		return err
	}
	if granted {
		report.Granted++
		report.AnnualRecalcs++
	}
	return nil
}

// monthlyGrant applies the +1 partial-month grant for the current period.
// Returns false without error when the period was already granted.
func (s *Scheduler) monthlyGrant(ctx context.Context, employeeID string, today Date) (bool, error) {
	period := today.Period()

	done, err := s.Store.HasGrant(ctx, employeeID, period, GrantMonthly)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	one := decimal.NewFromInt(1)
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.Grant(ctx, employeeID, one); err != nil {
			return err
		}
		return tx.InsertGrant(ctx, AccrualGrant{
			ID:         uuid.NewString(),
			EmployeeID: employeeID,
			Period:     period,
			Kind:       GrantMonthly,
			Amount:     one,
			CreatedAt:  time.Now().UTC(),
		})
	})
	if errors.Is(err, ErrDuplicateGrant) {
		// A concurrent duplicate trigger won the race; nothing to do.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// annualRecalc replaces total with the current year's entitlement and
// records the ANNUAL grant. Returns false without error when the period
// was already processed.
func (s *Scheduler) annualRecalc(ctx context.Context, employeeID string, years int, today Date) (bool, error) {
	period := today.Period()

	done, err := s.Store.HasGrant(ctx, employeeID, period, GrantAnnual)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	entitlement := AnnualEntitlement(years)
	err = s.Store.WithTx(ctx, func(tx Store) error {
		if err := tx.SetTotal(ctx, employeeID, entitlement); err != nil {
			return err
		}
		return tx.InsertGrant(ctx, AccrualGrant{
			ID:             uuid.NewString(),
			EmployeeID:     employeeID,
			Period:         period,
			Kind:           GrantAnnual,
			Amount:         entitlement,
			YearsOfService: years,
			CreatedAt:      time.Now().UTC(),
		})
	})
	if errors.Is(err, ErrDuplicateGrant) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
