/*
policy.go - Static leave type policy table

PURPOSE:
  Maps each LeaveType to its unit cost, multi-day eligibility, time-range
  requirement, and fixed display window. Pure lookup, no state.

THE TABLE:
  FULL         1.0/day   multi-day   09:00-18:00 (display only)
  AM_HALF      0.5       single day  09:00-13:30
  PM_HALF      0.5       single day  13:30-18:00
  QUARTER_DAY  0.25      single day  explicit 2h window, chosen by the
                                     requester from a half-hour grid

QUARTER-DAY WINDOWS:
  Start times come from a fixed grid that excludes the 12:00-13:30 lunch
  break. The end time is always start + 2h, capped at 18:00.
*/
package leave

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TypePolicy describes the static rules for one leave type.
type TypePolicy struct {
	Cost              decimal.Decimal
	AllowsMultiDay    bool
	RequiresTimeRange bool

	// DisplayStart/DisplayEnd are the fixed time window shown on mirrored
	// calendar events for non-quarter types.
	DisplayStart string
	DisplayEnd   string
}

var typePolicies = map[LeaveType]TypePolicy{
	Full: {
		Cost:           decimal.NewFromInt(1),
		AllowsMultiDay: true,
		DisplayStart:   "09:00",
		DisplayEnd:     "18:00",
	},
	AMHalf: {
		Cost:         decimal.RequireFromString("0.5"),
		DisplayStart: "09:00",
		DisplayEnd:   "13:30",
	},
	PMHalf: {
		Cost:         decimal.RequireFromString("0.5"),
		DisplayStart: "13:30",
		DisplayEnd:   "18:00",
	},
	QuarterDay: {
		Cost:              decimal.RequireFromString("0.25"),
		RequiresTimeRange: true,
	},
}

// PolicyFor returns the static policy for a leave type.
func PolicyFor(t LeaveType) (TypePolicy, error) {
	p, ok := typePolicies[t]
	if !ok {
		return TypePolicy{}, fmt.Errorf("unknown leave type %q", t)
	}
	return p, nil
}

// AmountFor computes the leave units a request debits. Multi-day types
// multiply the unit cost by the inclusive day count; all others are flat.
func AmountFor(t LeaveType, start, end Date) decimal.Decimal {
	p, err := PolicyFor(t)
	if err != nil {
		return decimal.Zero
	}
	if p.AllowsMultiDay {
		return p.Cost.Mul(decimal.NewFromInt(int64(start.InclusiveDays(end))))
	}
	return p.Cost
}

// =============================================================================
// QUARTER-DAY TIME GRID
// =============================================================================

// QuarterStartTimes is the selectable half-hour grid for quarter-day leave.
// The 12:00-13:30 lunch break is excluded, and start times past 16:00 would
// overrun 18:00.
var QuarterStartTimes = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"13:30", "14:00", "14:30", "15:00", "15:30", "16:00",
}

// ValidQuarterStart reports whether t is on the selectable grid.
func ValidQuarterStart(t string) bool {
	for _, opt := range QuarterStartTimes {
		if opt == t {
			return true
		}
	}
	return false
}

// QuarterEndTime returns the end of a quarter-day window: start + 2h,
// capped at 18:00.
func QuarterEndTime(start string) string {
	var h, m int
	if _, err := fmt.Sscanf(start, "%d:%d", &h, &m); err != nil {
		return ""
	}
	h += 2
	if h > 18 || (h == 18 && m > 0) {
		return "18:00"
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

// TimeRangeFor returns the display window for a request: the fixed policy
// window for full/half days, the stored explicit window for quarter days.
func TimeRangeFor(r *LeaveRequest) (start, end string) {
	p, err := PolicyFor(r.Type)
	if err != nil {
		return "", ""
	}
	if p.RequiresTimeRange {
		return r.StartTime, r.EndTime
	}
	return p.DisplayStart, p.DisplayEnd
}
