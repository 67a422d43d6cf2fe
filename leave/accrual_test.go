package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/daybreak/leave-engine/leave"
)

// =============================================================================
// YEARS OF SERVICE
// =============================================================================

func TestYearsOfService_BeforeFirstAnniversary(t *testing.T) {
	// GIVEN: Joined 2024-03-15
	// WHEN: Checking one day before the first anniversary
	// THEN: Zero completed years

	join := leave.NewDate(2024, time.March, 15)
	assert.Equal(t, 0, leave.YearsOfService(join, leave.NewDate(2025, time.March, 14)))
}

func TestYearsOfService_IncrementsOnAnniversaryDay(t *testing.T) {
	// GIVEN: Joined 2024-03-15
	// WHEN: Checking on and after the anniversary day
	// THEN: Exactly one more completed year, never earlier

	join := leave.NewDate(2024, time.March, 15)

	assert.Equal(t, 1, leave.YearsOfService(join, leave.NewDate(2025, time.March, 15)))
	assert.Equal(t, 1, leave.YearsOfService(join, leave.NewDate(2026, time.March, 14)))
	assert.Equal(t, 2, leave.YearsOfService(join, leave.NewDate(2026, time.March, 15)))
}

func TestYearsOfService_Monotonic(t *testing.T) {
	// GIVEN: A fixed join date
	// WHEN: Walking the reference date forward day by day across an
	//       anniversary
	// THEN: Completed years never decrease

	join := leave.NewDate(2020, time.July, 1)
	prev := -1
	day := leave.NewDate(2023, time.June, 20)
	for i := 0; i < 25; i++ {
		years := leave.YearsOfService(join, day)
		assert.GreaterOrEqual(t, years, prev, "service years must not decrease at %s", day)
		prev = years
		day = day.AddDays(1)
	}
}

func TestYearsOfServiceForAccrual_CountsAnniversaryMonth(t *testing.T) {
	// GIVEN: Joined 2022-06-20
	// WHEN: The accrual run fires on 2025-06-01, before the day-of-month
	// THEN: The anniversary month already counts as a completed year

	join := leave.NewDate(2022, time.June, 20)

	assert.Equal(t, 3, leave.YearsOfServiceForAccrual(join, leave.NewDate(2025, time.June, 1)))
	// The strict count still waits for the day.
	assert.Equal(t, 2, leave.YearsOfService(join, leave.NewDate(2025, time.June, 1)))
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

func TestAnnualEntitlement_Table(t *testing.T) {
	// GIVEN: The statutory 15-day base plus one day per two further years
	// WHEN: Computing entitlement per completed service year
	// THEN: 1y=15, 2y=15, 3y=16, 4y=16, 5y=17

	cases := []struct {
		years int
		want  int64
	}{
		{1, 15}, {2, 15}, {3, 16}, {4, 16}, {5, 17}, {10, 19}, {21, 25},
	}
	for _, tc := range cases {
		got := leave.AnnualEntitlement(tc.years)
		assert.Equal(t, tc.want, got.IntPart(), "years=%d", tc.years)
	}
}

func TestAnnualEntitlement_ZeroYears(t *testing.T) {
	got := leave.AnnualEntitlement(0)
	assert.True(t, got.IsZero())
}

func TestCumulativeEntitlement_SumsEachYear(t *testing.T) {
	// GIVEN: Per-year entitlements 15, 15, 16
	// WHEN: Accumulating three completed years
	// THEN: The cumulative total is their sum

	got := leave.CumulativeEntitlement(3)
	assert.Equal(t, int64(46), got.IntPart())
}

// =============================================================================
// MONTHS WORKED AND FIRST-YEAR ENTITLEMENT
// =============================================================================

func TestMonthsWorked_DayOfMonthBoundary(t *testing.T) {
	// GIVEN: Joined 2025-01-20
	// WHEN: Checking just before and on the monthly boundary day
	// THEN: The month only counts once the day-of-month is reached

	join := leave.NewDate(2025, time.January, 20)

	assert.Equal(t, 0, leave.MonthsWorked(join, leave.NewDate(2025, time.February, 19)))
	assert.Equal(t, 1, leave.MonthsWorked(join, leave.NewDate(2025, time.February, 20)))
	assert.Equal(t, 2, leave.MonthsWorked(join, leave.NewDate(2025, time.March, 20)))
}

func TestMonthsWorked_NeverNegative(t *testing.T) {
	join := leave.NewDate(2025, time.June, 1)
	assert.Equal(t, 0, leave.MonthsWorked(join, leave.NewDate(2025, time.May, 1)))
}

func TestInitialEntitlement_FirstYearCappedAtEleven(t *testing.T) {
	// GIVEN: An employee in their first year
	// WHEN: Recomputing the initial entitlement late in that year
	// THEN: The monthly accruals never exceed the 11-day cap

	join := leave.NewDate(2025, time.January, 2)
	ref := leave.NewDate(2025, time.December, 30)

	got := leave.InitialEntitlement(join, ref, leave.RecomputeReplace)
	assert.Equal(t, int64(11), got.IntPart())
}

func TestInitialEntitlement_FirstYearCountsElapsedMonths(t *testing.T) {
	// GIVEN: Joined 2025-03-10
	// WHEN: Recomputing on 2025-06-15 (three full months elapsed)
	// THEN: Three monthly accruals plus the hire-month day

	join := leave.NewDate(2025, time.March, 10)
	ref := leave.NewDate(2025, time.June, 15)

	got := leave.InitialEntitlement(join, ref, leave.RecomputeReplace)
	assert.Equal(t, int64(4), got.IntPart())
}

func TestInitialEntitlement_ReplaceUsesCurrentYear(t *testing.T) {
	// GIVEN: Five completed service years
	// WHEN: Recomputing in replace mode
	// THEN: The total is the current annual entitlement, not a sum

	join := leave.NewDate(2020, time.April, 1)
	ref := leave.NewDate(2025, time.May, 1)

	got := leave.InitialEntitlement(join, ref, leave.RecomputeReplace)
	assert.Equal(t, int64(17), got.IntPart())
}

func TestInitialEntitlement_CumulativeSumsYears(t *testing.T) {
	// GIVEN: The same five service years
	// WHEN: Recomputing in cumulative mode
	// THEN: The total is the sum of every year's entitlement

	join := leave.NewDate(2020, time.April, 1)
	ref := leave.NewDate(2025, time.May, 1)

	got := leave.InitialEntitlement(join, ref, leave.RecomputeCumulative)
	// 15+15+16+16+17
	assert.Equal(t, int64(79), got.IntPart())
}
