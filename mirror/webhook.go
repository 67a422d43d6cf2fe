/*
webhook.go - HTTP webhook mirrors

PURPOSE:
  Mirrors bookings over plain JSON webhooks. The calendar endpoint
  receives a create payload and answers with the event id it assigned;
  deletes reference that id in the path. The status endpoint receives
  set/clear payloads keyed by employee id.

FAILURE MODEL:
  One bounded-timeout attempt, no retries. Callers already treat mirror
  errors as log-and-continue, so retrying here would only delay the
  request path that triggered the mirror.
*/
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/daybreak/leave-engine/leave"
)

const webhookTimeout = 5 * time.Second

// WebhookCalendar mirrors bookings to a calendar webhook endpoint.
type WebhookCalendar struct {
	baseURL string
	client  *http.Client
}

// NewWebhookCalendar creates a calendar mirror posting to baseURL.
func NewWebhookCalendar(baseURL string) *WebhookCalendar {
	return &WebhookCalendar{
		baseURL: baseURL,
		client:  &http.Client{Timeout: webhookTimeout},
	}
}

type calendarEventPayload struct {
	Summary   string `json:"summary"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	AllDay    bool   `json:"all_day"`
}

type calendarEventResponse struct {
	EventID string `json:"event_id"`
}

// CreateEvent posts the booking and returns the endpoint's event id.
func (c *WebhookCalendar) CreateEvent(ctx context.Context, ev leave.CalendarEvent) (string, error) {
	payload := calendarEventPayload{
		Summary:   fmt.Sprintf("%s: %s", ev.EmployeeName, eventLabel(ev)),
		StartDate: ev.Start.String(),
		EndDate:   ev.End.String(),
		StartTime: ev.StartTime,
		EndTime:   ev.EndTime,
		AllDay:    ev.StartTime == "",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode calendar event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendar webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("calendar webhook: unexpected status %d", resp.StatusCode)
	}

	var out calendarEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode calendar response: %w", err)
	}
	return out.EventID, nil
}

// DeleteEvent removes a previously mirrored event.
func (c *WebhookCalendar) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/events/"+url.PathEscape(eventID), nil)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("calendar webhook: %w", err)
	}
	defer resp.Body.Close()

	// A vanished event is already the state we want.
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendar webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// WebhookStatusBoard pushes on-leave markers to a status webhook
// endpoint.
type WebhookStatusBoard struct {
	baseURL string
	client  *http.Client
}

// NewWebhookStatusBoard creates a status mirror posting to baseURL.
func NewWebhookStatusBoard(baseURL string) *WebhookStatusBoard {
	return &WebhookStatusBoard{
		baseURL: baseURL,
		client:  &http.Client{Timeout: webhookTimeout},
	}
}

type statusPayload struct {
	EmployeeID string `json:"employee_id"`
	Text       string `json:"text,omitempty"`
	Clear      bool   `json:"clear,omitempty"`
}

// SetStatus marks the employee as on leave.
func (b *WebhookStatusBoard) SetStatus(ctx context.Context, employeeID, text string) error {
	return b.post(ctx, statusPayload{EmployeeID: employeeID, Text: text})
}

// ClearStatus removes the employee's on-leave marker.
func (b *WebhookStatusBoard) ClearStatus(ctx context.Context, employeeID string) error {
	return b.post(ctx, statusPayload{EmployeeID: employeeID, Clear: true})
}

// eventLabel renders the human-readable leave kind for event summaries.
func eventLabel(ev leave.CalendarEvent) string {
	switch ev.Type {
	case leave.AMHalf:
		return "Half day (AM)"
	case leave.PMHalf:
		return "Half day (PM)"
	case leave.QuarterDay:
		return fmt.Sprintf("Quarter day %s-%s", ev.StartTime, ev.EndTime)
	default:
		return "Leave"
	}
}

func (b *WebhookStatusBoard) post(ctx context.Context, payload statusPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode status payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/status", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("status webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("status webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}
