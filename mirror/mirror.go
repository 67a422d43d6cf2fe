/*
Package mirror pushes leave bookings to external systems.

PURPOSE:
  The leave core treats external reflections (team calendar, team-status
  markers) as best-effort mirrors: the booking commits first, the mirror
  runs after, and a mirror failure never reverses the booking. This
  package provides the concrete mirrors plus no-op stand-ins for
  deployments and tests that run without the external services.

IMPLEMENTATIONS:
  WebhookCalendar:    POST/DELETE against a calendar webhook endpoint
  WebhookStatusBoard: POST against a status webhook endpoint
  NoopCalendar:       accepts everything, records nothing
  NoopStatusBoard:    accepts everything, records nothing

SEE ALSO:
  - leave/service.go: CalendarMirror and StatusMirror contracts
*/
package mirror

import (
	"context"

	"github.com/daybreak/leave-engine/leave"
)

// NoopCalendar satisfies leave.CalendarMirror without talking to
// anything. The empty event id keeps later deletes from firing.
type NoopCalendar struct{}

func (NoopCalendar) CreateEvent(ctx context.Context, ev leave.CalendarEvent) (string, error) {
	return "", nil
}

func (NoopCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	return nil
}

// NoopStatusBoard satisfies leave.StatusMirror without talking to
// anything.
type NoopStatusBoard struct{}

func (NoopStatusBoard) SetStatus(ctx context.Context, employeeID, text string) error {
	return nil
}

func (NoopStatusBoard) ClearStatus(ctx context.Context, employeeID string) error {
	return nil
}
