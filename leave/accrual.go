/*
accrual.go - Tenure and entitlement arithmetic

PURPOSE:
  Pure functions computing how much leave an employee is entitled to from
  their join date and a reference date. Consumed by the recurring scheduler
  (scheduler.go) and by the one-shot recompute triggered when an admin sets
  a join date.

TWO TENURE RULES:
  YearsOfService is the strict rule: an employee reaches year N on the
  exact calendar day of their Nth anniversary. This is what displays and
  one-shot recomputes use.

  YearsOfServiceForAccrual is the scheduler's rule: within the anniversary
  month the new year count is considered reached regardless of day, because
  the batch runs on a monthly or daily cadence and must not miss the
  anniversary when it fires before the exact day. Outside the anniversary
  month the two rules agree.

ENTITLEMENT SCHEDULE:
  Year 1-2: 15 days, then +1 every 2 years (3-4: 16, 5-6: 17, ...).
  Employees under one year accrue 1 day per completed month instead,
  capped so the partial-month grants never reach a full year's worth.

RECOMPUTE MODES:
  The recurring scheduler REPLACES total with the current year's
  entitlement on each anniversary; that is the system of record. The
  legacy one-shot recompute instead summed every past year's grant as if
  none were ever consumed. Both formulas are kept; RecomputeReplace is the
  default and RecomputeCumulative is available behind an explicit mode.
*/
package leave

import "github.com/shopspring/decimal"

// MaxMonthlyGrants caps sub-one-year entitlement: an employee collects at
// most 11 partial-month grants before crossing into the annual policy.
const MaxMonthlyGrants = 11

// baseAnnualDays is the year-1 annual entitlement.
const baseAnnualDays = 15

// =============================================================================
// TENURE
// =============================================================================

// YearsOfService counts whole anniversaries completed by ref. The year
// count increments on the exact calendar day of the anniversary.
func YearsOfService(join, ref Date) int {
	years := ref.Year() - join.Year()
	if ref.Month() < join.Month() ||
		(ref.Month() == join.Month() && ref.Day() < join.Day()) {
		years--
	}
	return years
}

// YearsOfServiceForAccrual is the scheduler's eligibility variant: the
// anniversary month itself counts as having reached the new year, so a
// batch running on the 1st still sees an employee who joined on the 15th
// as due their annual recalculation.
func YearsOfServiceForAccrual(join, ref Date) int {
	if ref.Month() == join.Month() && ref.Year() > join.Year() {
		return ref.Year() - join.Year()
	}
	return YearsOfService(join, ref)
}

// MonthsWorked counts whole months elapsed from join to ref, day-of-month
// aware, never negative. Meaningful only while tenure is under one year.
func MonthsWorked(join, ref Date) int {
	months := (ref.Year()-join.Year())*12 + int(ref.Month()) - int(join.Month())
	if ref.Day() < join.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

// AnnualEntitlement returns the per-year entitlement for an employee with
// the given completed years of service: 15 days for years 1-2, then +1
// every 2 years. Monotonically non-decreasing, floor 15.
func AnnualEntitlement(years int) decimal.Decimal {
	if years < 1 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(baseAnnualDays + (years-1)/2))
}

// CumulativeEntitlement sums AnnualEntitlement(1..years): the total as if
// every year's grant had accumulated untouched. Legacy one-shot formula;
// see RecomputeMode.
func CumulativeEntitlement(years int) decimal.Decimal {
	total := decimal.Zero
	for y := 1; y <= years; y++ {
		total = total.Add(AnnualEntitlement(y))
	}
	return total
}

// =============================================================================
// ONE-SHOT RECOMPUTE
// =============================================================================

// RecomputeMode selects the formula the one-shot recompute uses for
// employees past their first year.
type RecomputeMode string

const (
	// RecomputeReplace sets total to the single current year's entitlement,
	// matching what the recurring scheduler would have left in place.
	RecomputeReplace RecomputeMode = "replace"

	// RecomputeCumulative sets total to the sum of every year's grant.
	RecomputeCumulative RecomputeMode = "cumulative"
)

// InitialEntitlement computes the total to install when a join date is set
// or corrected. Under one year it grants one day per completed month plus
// the current month, capped at MaxMonthlyGrants.
func InitialEntitlement(join, ref Date, mode RecomputeMode) decimal.Decimal {
	years := YearsOfService(join, ref)
	if years < 1 {
		months := MonthsWorked(join, ref) + 1
		if months > MaxMonthlyGrants {
			months = MaxMonthlyGrants
		}
		return decimal.NewFromInt(int64(months))
	}
	if mode == RecomputeCumulative {
		return CumulativeEntitlement(years)
	}
	return AnnualEntitlement(years)
}
