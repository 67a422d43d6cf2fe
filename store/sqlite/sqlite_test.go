package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybreak/leave-engine/leave"
	"github.com/daybreak/leave-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func d(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func mustDate(t *testing.T, s string) leave.Date {
	t.Helper()
	date, err := leave.ParseDate(s)
	require.NoError(t, err)
	return date
}

func sampleRequest(id, employee string, start, end leave.Date) leave.LeaveRequest {
	return leave.LeaveRequest{
		ID:         id,
		EmployeeID: employee,
		StartDate:  start,
		EndDate:    end,
		Type:       leave.Full,
		Status:     leave.StatusApproved,
		CreatedAt:  time.Now().UTC(),
	}
}

// =============================================================================
// BALANCE LEDGER
// =============================================================================

func TestBalance_GrantCreatesAndAccumulates(t *testing.T) {
	// GIVEN: No balance row
	// WHEN: Granting twice
	// THEN: The row is created and the deltas accumulate

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, "emp-1", d(1)))
	require.NoError(t, store.Grant(ctx, "emp-1", d(2)))

	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), b.Total.IntPart())
	assert.True(t, b.Used.IsZero())
	assert.False(t, b.UpdatedAt.IsZero())
}

func TestBalance_SetTotalReplacesButKeepsUsed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetTotal(ctx, "emp-1", d(15)))
	require.NoError(t, store.Consume(ctx, "emp-1", d(4)))
	require.NoError(t, store.SetTotal(ctx, "emp-1", d(16)))

	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(16), b.Total.IntPart())
	assert.Equal(t, int64(4), b.Used.IntPart())
}

func TestBalance_ConsumeWithoutRow_NotFound(t *testing.T) {
	store := newStore(t)
	err := store.Consume(context.Background(), "ghost", d(1))
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

func TestBalance_QuarterAmountsExact(t *testing.T) {
	// GIVEN: A funded balance
	// WHEN: Consuming quarter and half day amounts
	// THEN: The stored values stay exact

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetTotal(ctx, "emp-1", d(15)))
	require.NoError(t, store.Consume(ctx, "emp-1", decimal.NewFromFloat(0.25)))
	require.NoError(t, store.Consume(ctx, "emp-1", decimal.NewFromFloat(0.5)))

	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "0.75", b.Used.String())
	assert.Equal(t, "14.25", b.Remaining().String())
}

func TestBalance_RestoreUnderflow_IntegrityError(t *testing.T) {
	// GIVEN: Used is zero
	// WHEN: Restoring a day anyway
	// THEN: The CHECK constraint rejects it as an integrity defect

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetTotal(ctx, "emp-1", d(15)))

	err := store.Restore(ctx, "emp-1", d(1))
	require.Error(t, err)
	assert.True(t, leave.IsIntegrityDefect(err), "underflow must surface as integrity defect, got %v", err)

	// And the row is untouched.
	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, b.Used.IsZero())
}

func TestBalance_GetMissing_NotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetBalance(context.Background(), "ghost")
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound)
}

// =============================================================================
// ACCRUAL GRANTS
// =============================================================================

func TestGrants_DuplicatePeriodAndKind_Rejected(t *testing.T) {
	// GIVEN: A MONTHLY grant recorded for 2025-07
	// WHEN: Inserting the same (employee, period, kind) again
	// THEN: The unique index answers ErrDuplicateGrant

	store := newStore(t)
	ctx := context.Background()

	g := leave.AccrualGrant{
		ID: "g-1", EmployeeID: "emp-1", Period: "2025-07",
		Kind: leave.GrantMonthly, Amount: d(1), CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.InsertGrant(ctx, g))

	g.ID = "g-2"
	err := store.InsertGrant(ctx, g)
	assert.ErrorIs(t, err, leave.ErrDuplicateGrant)
}

func TestGrants_DifferentKindSamePeriod_Allowed(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertGrant(ctx, leave.AccrualGrant{
		ID: "g-1", EmployeeID: "emp-1", Period: "2025-07",
		Kind: leave.GrantMonthly, Amount: d(1), CreatedAt: time.Now().UTC(),
	}))
	err := store.InsertGrant(ctx, leave.AccrualGrant{
		ID: "g-2", EmployeeID: "emp-1", Period: "2025-07",
		Kind: leave.GrantAnnual, Amount: d(15), YearsOfService: 1, CreatedAt: time.Now().UTC(),
	})
	assert.NoError(t, err)

	has, err := store.HasGrant(ctx, "emp-1", "2025-07", leave.GrantAnnual)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestGrants_HistoryNewestFirst(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	for _, period := range []string{"2025-05", "2025-07", "2025-06"} {
		require.NoError(t, store.InsertGrant(ctx, leave.AccrualGrant{
			ID: "g-" + period, EmployeeID: "emp-1", Period: period,
			Kind: leave.GrantMonthly, Amount: d(1), CreatedAt: time.Now().UTC(),
		}))
	}

	grants, err := store.GrantsForEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, grants, 3)
	assert.Equal(t, "2025-07", grants[0].Period)
	assert.Equal(t, "2025-05", grants[2].Period)
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestRequests_RoundTrip(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	req := leave.LeaveRequest{
		ID:         "req-1",
		EmployeeID: "emp-1",
		StartDate:  mustDate(t, "2025-07-10"),
		EndDate:    mustDate(t, "2025-07-10"),
		Type:       leave.QuarterDay,
		StartTime:  "10:00",
		EndTime:    "12:00",
		Status:     leave.StatusApproved,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.InsertRequest(ctx, req))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, req.Type, got.Type)
	assert.Equal(t, "10:00", got.StartTime)
	assert.Equal(t, "12:00", got.EndTime)
	assert.Equal(t, "2025-07-10", got.StartDate.String())
	assert.Nil(t, got.CancelledAt)
}

func TestRequests_GetMissing_NotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetRequest(context.Background(), "ghost")
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)
}

func TestRequests_MarkCancelled_OnlyOnce(t *testing.T) {
	// GIVEN: An approved request
	// WHEN: Cancelling it twice
	// THEN: The first flip succeeds, the second reports already cancelled

	store := newStore(t)
	ctx := context.Background()
	req := sampleRequest("req-1", "emp-1", mustDate(t, "2025-07-10"), mustDate(t, "2025-07-10"))
	require.NoError(t, store.InsertRequest(ctx, req))

	at := time.Now().UTC()
	require.NoError(t, store.MarkCancelled(ctx, "req-1", at))

	got, err := store.GetRequest(ctx, "req-1")
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, got.Status)
	require.NotNil(t, got.CancelledAt)

	err = store.MarkCancelled(ctx, "req-1", at)
	assert.ErrorIs(t, err, leave.ErrAlreadyCancelled)
}

func TestRequests_ApprovedInRange_IntersectionOnly(t *testing.T) {
	// GIVEN: Requests before, inside, spanning, and after a window
	// WHEN: Querying the window
	// THEN: Only intersecting APPROVED rows come back

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertRequest(ctx, sampleRequest("before", "emp-1",
		mustDate(t, "2025-07-01"), mustDate(t, "2025-07-02"))))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("inside", "emp-1",
		mustDate(t, "2025-07-10"), mustDate(t, "2025-07-11"))))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("spanning", "emp-1",
		mustDate(t, "2025-07-08"), mustDate(t, "2025-07-20"))))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("after", "emp-1",
		mustDate(t, "2025-07-25"), mustDate(t, "2025-07-26"))))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("other-emp", "emp-2",
		mustDate(t, "2025-07-10"), mustDate(t, "2025-07-11"))))

	cancelled := sampleRequest("cancelled", "emp-1",
		mustDate(t, "2025-07-10"), mustDate(t, "2025-07-11"))
	require.NoError(t, store.InsertRequest(ctx, cancelled))
	require.NoError(t, store.MarkCancelled(ctx, "cancelled", time.Now().UTC()))

	got, err := store.ApprovedInRange(ctx, "emp-1",
		mustDate(t, "2025-07-09"), mustDate(t, "2025-07-12"))
	require.NoError(t, err)

	ids := make([]string, 0, len(got))
	for _, r := range got {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"inside", "spanning"}, ids)
}

func TestRequests_ApprovedOn_JoinsEmployeeIdentity(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "Dana", Email: "dana@example.com",
	}))
	require.NoError(t, store.InsertRequest(ctx, sampleRequest("req-1", "emp-1",
		mustDate(t, "2025-07-10"), mustDate(t, "2025-07-12"))))

	got, err := store.ApprovedOn(ctx, mustDate(t, "2025-07-11"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dana", got[0].EmployeeName)
	assert.Equal(t, "dana@example.com", got[0].EmployeeEmail)

	got, err = store.ApprovedOn(ctx, mustDate(t, "2025-07-13"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_SaveAndSetJoinDate(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "Dana", Email: "dana@example.com", IsAdmin: true,
	}))

	emp, err := store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, emp.IsAdmin)
	assert.Nil(t, emp.JoinDate)

	join := mustDate(t, "2023-04-01")
	require.NoError(t, store.SetJoinDate(ctx, "emp-1", &join))

	emp, err = store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, emp.JoinDate)
	assert.Equal(t, "2023-04-01", emp.JoinDate.String())

	require.NoError(t, store.SetJoinDate(ctx, "emp-1", nil))
	emp, err = store.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Nil(t, emp.JoinDate)
}

func TestEmployees_SetJoinDateMissing_NotFound(t *testing.T) {
	store := newStore(t)
	join := mustDate(t, "2023-04-01")
	err := store.SetJoinDate(context.Background(), "ghost", &join)
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

func TestEmployees_GetMissing_NotFound(t *testing.T) {
	store := newStore(t)
	_, err := store.GetEmployee(context.Background(), "ghost")
	assert.ErrorIs(t, err, leave.ErrEmployeeNotFound)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestWithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: A funded balance
	// WHEN: A callback inserts a request and then fails
	// THEN: Neither mutation is visible afterwards

	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetTotal(ctx, "emp-1", d(15)))

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.InsertRequest(ctx, sampleRequest("req-1", "emp-1",
			mustDate(t, "2025-07-10"), mustDate(t, "2025-07-10"))); err != nil {
			return err
		}
		if err := tx.Consume(ctx, "emp-1", d(1)); err != nil {
			return err
		}
		return assert.AnError
	})
	require.Error(t, err)

	_, err = store.GetRequest(ctx, "req-1")
	assert.ErrorIs(t, err, leave.ErrRequestNotFound)

	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, b.Used.IsZero())
}

func TestWithTx_CommitsBothMutations(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	require.NoError(t, store.SetTotal(ctx, "emp-1", d(15)))

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.InsertRequest(ctx, sampleRequest("req-1", "emp-1",
			mustDate(t, "2025-07-10"), mustDate(t, "2025-07-10"))); err != nil {
			return err
		}
		return tx.Consume(ctx, "emp-1", d(1))
	})
	require.NoError(t, err)

	_, err = store.GetRequest(ctx, "req-1")
	assert.NoError(t, err)

	b, err := store.GetBalance(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.Used.IntPart())
}

func TestWithTx_ConstraintFailureAborts(t *testing.T) {
	// GIVEN: A grant already recorded for the period
	// WHEN: A transaction grants a day and then hits the unique index
	// THEN: The balance delta rolls back with it

	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.InsertGrant(ctx, leave.AccrualGrant{
		ID: "g-1", EmployeeID: "emp-1", Period: "2025-07",
		Kind: leave.GrantMonthly, Amount: d(1), CreatedAt: time.Now().UTC(),
	}))

	err := store.WithTx(ctx, func(tx leave.Store) error {
		if err := tx.Grant(ctx, "emp-1", d(1)); err != nil {
			return err
		}
		return tx.InsertGrant(ctx, leave.AccrualGrant{
			ID: "g-2", EmployeeID: "emp-1", Period: "2025-07",
			Kind: leave.GrantMonthly, Amount: d(1), CreatedAt: time.Now().UTC(),
		})
	})
	assert.ErrorIs(t, err, leave.ErrDuplicateGrant)

	_, err = store.GetBalance(ctx, "emp-1")
	assert.ErrorIs(t, err, leave.ErrBalanceNotFound, "the grant delta must roll back")
}
