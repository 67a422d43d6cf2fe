/*
overlap.go - Collision rules between leave requests

PURPOSE:
  Decides whether a new request may coexist with an existing approved
  request on an intersecting date range.

THE MATRIX:
  - FULL collides with everything: the whole day is taken.
  - AM_HALF collides with AM_HALF, PM_HALF with PM_HALF.
  - AM_HALF and PM_HALF compose a full day and do NOT collide.
  - QUARTER_DAY collides with any other quarter-day on an intersecting
    date, regardless of time windows (deliberately conservative: the 2h
    windows are not compared), and with either half-day.

Date ranges intersect per the inclusive-inclusive interval test:
  existing.start <= new.end AND existing.end >= new.start
*/
package leave

// RangesIntersect reports whether [aStart, aEnd] and [bStart, bEnd]
// share at least one day.
func RangesIntersect(aStart, aEnd, bStart, bEnd Date) bool {
	return aStart.BeforeOrEqual(bEnd) && aEnd.AfterOrEqual(bStart)
}

// TypesCollide reports whether two leave types may not share a day.
func TypesCollide(a, b LeaveType) bool {
	if a == Full || b == Full {
		return true
	}
	// The only compatible pair below full-day granularity is the
	// complementary half-day split.
	if (a == AMHalf && b == PMHalf) || (a == PMHalf && b == AMHalf) {
		return false
	}
	return true
}

// FindCollision scans existing approved requests for one that blocks the
// proposed booking. Returns nil when the booking is clear.
func FindCollision(existing []LeaveRequest, t LeaveType, start, end Date) *LeaveRequest {
	for i := range existing {
		e := &existing[i]
		if e.Status != StatusApproved {
			continue
		}
		if !RangesIntersect(e.StartDate, e.EndDate, start, end) {
			continue
		}
		if TypesCollide(e.Type, t) {
			return e
		}
	}
	return nil
}
