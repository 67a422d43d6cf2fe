/*
handlers.go - HTTP handlers for the leave API

PURPOSE:
  Implements the HTTP endpoints. Handlers are thin: decode and validate
  the body, read the caller from the request context, call the service,
  map the result or error to JSON.

HANDLER PATTERN:
  1. Decode request body (if any), run validator tags
  2. Resolve the caller via CallerFrom
  3. Call the leave service or scheduler
  4. writeJSON / writeDomainError

ERROR MAPPING:
  Not found            -> 404
  Conflict (overlap, insufficient balance, duplicate grant) -> 409
  Client input defects -> 400
  Integrity defects    -> 500, logged loudly (these mean a broken
                          invariant, not a bad request)
  Anything else        -> 500

SEE ALSO:
  - server.go: Route wiring
  - dto.go: Request/response shapes
  - leave/service.go: The semantics behind each endpoint
*/
package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/daybreak/leave-engine/leave"
)

// Handler holds dependencies for all HTTP handlers.
type Handler struct {
	Service   *leave.Service
	Scheduler *leave.Scheduler
	Store     leave.Store
	Recompute leave.RecomputeMode

	// Now is the wall clock; tests pin it.
	Now func() time.Time
}

// NewHandler creates a handler backed by the given service and scheduler.
func NewHandler(svc *leave.Service, sched *leave.Scheduler, store leave.Store, recompute leave.RecomputeMode) *Handler {
	return &Handler{
		Service:   svc,
		Scheduler: sched,
		Store:     store,
		Recompute: recompute,
		Now:       time.Now,
	}
}

func (h *Handler) today() leave.Date {
	return leave.DateOf(h.Now().UTC())
}

// =============================================================================
// LEAVE ENDPOINTS
// =============================================================================

// ListLeaves returns the caller's requests, newest first.
// GET /api/leaves
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	reqs, err := h.Service.ListByEmployee(r.Context(), caller.ID)
	if err != nil {
		writeDomainError(w, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(reqs))
}

// CreateLeave books a new leave request for the caller.
// POST /api/leaves
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var body CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := leave.ParseDate(body.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := leave.ParseDate(body.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}

	caller := CallerFrom(r.Context())
	h.ensureEmployee(r.Context(), caller)

	req, err := h.Service.Create(r.Context(), leave.CreateInput{
		EmployeeID: caller.ID,
		Start:      start,
		End:        end,
		Type:       leave.LeaveType(body.Type),
		StartTime:  body.StartTime,
		Today:      h.today(),
	})
	if err != nil {
		writeDomainError(w, "Failed to create leave", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*req))
}

// CancelLeave cancels the caller's own request.
// DELETE /api/leaves/{id}
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	req, err := h.Service.Cancel(r.Context(), leave.CancelInput{
		RequestID:  chi.URLParam(r, "id"),
		EmployeeID: caller.ID,
		Admin:      false,
		Today:      h.today(),
	})
	if err != nil {
		writeDomainError(w, "Failed to cancel leave", err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// GetBalance returns the caller's balance summary.
// GET /api/balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	b, err := h.Store.GetBalance(r.Context(), caller.ID)
	if err != nil {
		if leave.IsNotFound(err) {
			// No accrual has run for this employee yet; report zeros
			// rather than a 404 the frontend would have to special-case.
			writeJSON(w, http.StatusOK, emptyBalanceDTO(caller.ID))
			return
		}
		writeDomainError(w, "Failed to get balance", err)
		return
	}

	writeJSON(w, http.StatusOK, toBalanceDTO(b))
}

// ensureEmployee upserts the caller's identity so joins against the
// employees table carry fresh names. Errors are non-fatal.
func (h *Handler) ensureEmployee(ctx context.Context, caller Caller) {
	emp, err := h.Store.GetEmployee(ctx, caller.ID)
	if err != nil && !leave.IsNotFound(err) {
		return
	}

	e := leave.Employee{ID: caller.ID, Name: caller.Name, Email: caller.Email, IsAdmin: caller.Admin}
	if emp != nil {
		e.JoinDate = emp.JoinDate
		if caller.Name == "" {
			e.Name = emp.Name
		}
		if caller.Email == "" {
			e.Email = emp.Email
		}
	}
	if err := h.Store.SaveEmployee(ctx, e); err != nil {
		log.Printf("[API] saving employee %s failed: %v", caller.ID, err)
	}
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// ListUsers returns all employees with their balances and service years.
// GET /api/admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	employees, err := h.Store.ListEmployees(ctx)
	if err != nil {
		writeDomainError(w, "Failed to list users", err)
		return
	}

	today := h.today()
	dtos := make([]UserDTO, 0, len(employees))
	for _, emp := range employees {
		dto := UserDTO{
			ID:      emp.ID,
			Name:    emp.Name,
			Email:   emp.Email,
			IsAdmin: emp.IsAdmin,
		}
		if emp.JoinDate != nil {
			dto.JoinDate = emp.JoinDate.String()
			dto.YearsOfService = leave.YearsOfService(*emp.JoinDate, today)
		}

		b, err := h.Store.GetBalance(ctx, emp.ID)
		switch {
		case err == nil:
			dto.Balance = toBalanceDTO(b)
		case leave.IsNotFound(err):
			dto.Balance = emptyBalanceDTO(emp.ID)
		default:
			writeDomainError(w, "Failed to load balance", err)
			return
		}

		dtos = append(dtos, dto)
	}

	writeJSON(w, http.StatusOK, dtos)
}

// SetJoinDate updates an employee's join date and recomputes their
// entitlement from scratch.
// PATCH /api/admin/users
func (h *Handler) SetJoinDate(w http.ResponseWriter, r *http.Request) {
	var body SetJoinDateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var join *leave.Date
	if body.JoinDate != "" {
		d, err := leave.ParseDate(body.JoinDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid join_date format (use YYYY-MM-DD)", err)
			return
		}
		join = &d
	}

	if err := h.Service.SetJoinDate(r.Context(), body.EmployeeID, join, h.today(), h.Recompute); err != nil {
		writeDomainError(w, "Failed to set join date", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"employee_id": body.EmployeeID, "join_date": body.JoinDate})
}

// ManualGrant adds leave days to an employee outside the accrual cycle.
// POST /api/admin/grants
func (h *Handler) ManualGrant(w http.ResponseWriter, r *http.Request) {
	var body ManualGrantRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount := decimal.NewFromFloat(body.Amount)
	if err := h.Service.ManualGrant(r.Context(), body.EmployeeID, amount); err != nil {
		writeDomainError(w, "Failed to grant leave", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"employee_id": body.EmployeeID, "granted": amount.String()})
}

// ListAllLeaves returns every request across employees.
// GET /api/admin/leaves
func (h *Handler) ListAllLeaves(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Service.ListAll(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTOs(reqs))
}

// AdminCancelLeave cancels any request, past dates included.
// DELETE /api/admin/leaves/{id}
func (h *Handler) AdminCancelLeave(w http.ResponseWriter, r *http.Request) {
	caller := CallerFrom(r.Context())

	req, err := h.Service.Cancel(r.Context(), leave.CancelInput{
		RequestID:  chi.URLParam(r, "id"),
		EmployeeID: caller.ID,
		Admin:      true,
		Today:      h.today(),
	})
	if err != nil {
		writeDomainError(w, "Failed to cancel leave", err)
		return
	}

	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*req))
}

// =============================================================================
// CRON ENDPOINTS
// =============================================================================

// RunAccrual triggers a scheduler pass and returns the run report.
// POST /api/cron/accrual
func (h *Handler) RunAccrual(w http.ResponseWriter, r *http.Request) {
	report, err := h.Scheduler.Run(r.Context(), h.today())
	if err != nil {
		writeDomainError(w, "Accrual run failed", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// SweepStatus sets or clears on-leave markers for everyone on leave
// today.
// POST /api/cron/status?action=set|clear
func (h *Handler) SweepStatus(w http.ResponseWriter, r *http.Request) {
	action := r.URL.Query().Get("action")
	if action == "" {
		action = "set"
	}
	if action != "set" && action != "clear" {
		writeError(w, http.StatusBadRequest, "action must be set or clear", nil)
		return
	}

	updated, err := h.Service.SweepStatus(r.Context(), h.today(), action == "set")
	if err != nil {
		writeDomainError(w, "Status sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, StatusSweepDTO{Action: action, Updated: updated})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps a leave package error onto an HTTP status.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case leave.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	case leave.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case leave.IsIntegrityDefect(err):
		log.Printf("[API] INTEGRITY DEFECT: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal inconsistency detected", err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
