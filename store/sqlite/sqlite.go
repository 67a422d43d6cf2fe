/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements the full persistence surface the leave core depends on
  (leave.Store) using SQLite. In production, the same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

INTERFACES IMPLEMENTED:
  leave.BalanceStore:  Per-employee total/used counters
  leave.GrantStore:    Append-only accrual audit rows
  leave.RequestStore:  Leave request records
  leave.EmployeeStore: Employee identity and join dates

LEDGER ENFORCEMENT:
  Balance updates are single-statement relative deltas
  (SET used = used + ?), never read-modify-write in Go. Named CHECK
  constraints back the non-negativity invariants so a buggy caller
  surfaces as leave.IntegrityError instead of corrupting a row:
  - balance_used_non_negative:  used  >= 0
  - balance_total_non_negative: total >= 0

IDEMPOTENCY ENFORCEMENT:
  idx_grants_employee_period_kind is the UNIQUE index that makes accrual
  grants exactly-once. The scheduler checks HasGrant first, but the index
  closes the check-then-insert race; violations map to
  leave.ErrDuplicateGrant.

AMOUNT ENCODING:
  Leave amounts are quarter-day multiples, so REAL columns hold them
  exactly. Values round-trip through shopspring/decimal at the boundary.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for
  the whole callback, and the transactional view calls the shared
  unlocked helpers directly, so callbacks never re-enter the mutex.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := leave.NewService(store, calendar, status, leave.PolicyStrict)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions and contracts
  - leave/service.go: The transactional call sites
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/daybreak/leave-engine/leave"
	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx. The shared helpers
// below run against either, which is how WithTx reuses every statement
// without re-locking.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		is_admin INTEGER NOT NULL DEFAULT 0,
		join_date TEXT,
		created_at TEXT NOT NULL
	);

	-- Balances (one row per employee, mutated by relative deltas only)
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT PRIMARY KEY,
		total REAL NOT NULL DEFAULT 0,
		used REAL NOT NULL DEFAULT 0,
		updated_at TEXT NOT NULL,
		CONSTRAINT balance_total_non_negative CHECK (total >= 0),
		CONSTRAINT balance_used_non_negative CHECK (used >= 0)
	);

	-- Leave requests (never deleted; cancellation is a status flip)
	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'APPROVED',
		calendar_event_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		cancelled_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_requests_employee
		ON leave_requests(employee_id, start_date DESC);

	-- CRITICAL: overlap detection scans APPROVED rows intersecting a
	-- date range; keep that probe on an index.
	CREATE INDEX IF NOT EXISTS idx_requests_status_range
		ON leave_requests(status, start_date, end_date);

	-- Accrual grants (append-only audit of scheduler and annual recalcs)
	CREATE TABLE IF NOT EXISTS accrual_grants (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		period TEXT NOT NULL,
		kind TEXT NOT NULL,
		amount REAL NOT NULL,
		years_of_service INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: exactly-once accrual. One grant per employee per period
	-- per kind, enforced by the database, not by application checks.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_grants_employee_period_kind
		ON accrual_grants(employee_id, period, kind);

	CREATE INDEX IF NOT EXISTS idx_grants_employee
		ON accrual_grants(employee_id, period DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// BALANCE LEDGER (leave.BalanceStore interface)
// =============================================================================

// Grant adds delta to total, creating the row if absent.
func (s *Store) Grant(ctx context.Context, employeeID string, delta decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return grantQ(ctx, s.db, employeeID, delta)
}

func grantQ(ctx context.Context, q querier, employeeID string, delta decimal.Decimal) error {
	query := `
		INSERT INTO leave_balances (employee_id, total, used, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			total = leave_balances.total + excluded.total,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		employeeID, delta.InexactFloat64(), now())
	if err != nil {
		return mapBalanceError(err, employeeID, "grant")
	}
	return nil
}

// SetTotal replaces total, creating the row if absent.
func (s *Store) SetTotal(ctx context.Context, employeeID string, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setTotalQ(ctx, s.db, employeeID, total)
}

func setTotalQ(ctx context.Context, q querier, employeeID string, total decimal.Decimal) error {
	query := `
		INSERT INTO leave_balances (employee_id, total, used, updated_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			total = excluded.total,
			updated_at = excluded.updated_at
	`

	_, err := q.ExecContext(ctx, query,
		employeeID, total.InexactFloat64(), now())
	if err != nil {
		return mapBalanceError(err, employeeID, "set_total")
	}
	return nil
}

// Consume adds amount to used. The row must already exist.
func (s *Store) Consume(ctx context.Context, employeeID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return consumeQ(ctx, s.db, employeeID, amount)
}

func consumeQ(ctx context.Context, q querier, employeeID string, amount decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE leave_balances SET used = used + ?, updated_at = ? WHERE employee_id = ?",
		amount.InexactFloat64(), now(), employeeID)
	if err != nil {
		return mapBalanceError(err, employeeID, "consume")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to consume balance: %w", err)
	}
	if n == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}

// Restore subtracts amount from used. Underflow surfaces as an
// IntegrityError via the balance_used_non_negative constraint.
func (s *Store) Restore(ctx context.Context, employeeID string, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return restoreQ(ctx, s.db, employeeID, amount)
}

func restoreQ(ctx context.Context, q querier, employeeID string, amount decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		"UPDATE leave_balances SET used = used - ?, updated_at = ? WHERE employee_id = ?",
		amount.InexactFloat64(), now(), employeeID)
	if err != nil {
		return mapBalanceError(err, employeeID, "restore")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to restore balance: %w", err)
	}
	if n == 0 {
		return leave.ErrBalanceNotFound
	}
	return nil
}

// GetBalance returns the employee's balance row.
func (s *Store) GetBalance(ctx context.Context, employeeID string) (*leave.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalanceQ(ctx, s.db, employeeID)
}

func getBalanceQ(ctx context.Context, q querier, employeeID string) (*leave.Balance, error) {
	var (
		total, used float64
		updatedAt   string
	)

	err := q.QueryRowContext(ctx,
		"SELECT total, used, updated_at FROM leave_balances WHERE employee_id = ?",
		employeeID,
	).Scan(&total, &used, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, leave.ErrBalanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load balance: %w", err)
	}

	b := &leave.Balance{
		EmployeeID: employeeID,
		Total:      decimal.NewFromFloat(total),
		Used:       decimal.NewFromFloat(used),
	}
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return b, nil
}

// =============================================================================
// ACCRUAL GRANTS (leave.GrantStore interface)
// =============================================================================

// HasGrant reports whether a grant exists for (employee, period, kind).
func (s *Store) HasGrant(ctx context.Context, employeeID, period string, kind leave.GrantKind) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasGrantQ(ctx, s.db, employeeID, period, kind)
}

func hasGrantQ(ctx context.Context, q querier, employeeID, period string, kind leave.GrantKind) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM accrual_grants WHERE employee_id = ? AND period = ? AND kind = ?",
		employeeID, period, string(kind),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check grant: %w", err)
	}
	return count > 0, nil
}

// InsertGrant appends a grant record.
func (s *Store) InsertGrant(ctx context.Context, g leave.AccrualGrant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertGrantQ(ctx, s.db, g)
}

func insertGrantQ(ctx context.Context, q querier, g leave.AccrualGrant) error {
	query := `
		INSERT INTO accrual_grants
		(id, employee_id, period, kind, amount, years_of_service, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		g.ID, g.EmployeeID, g.Period, string(g.Kind),
		g.Amount.InexactFloat64(), g.YearsOfService,
		g.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		if isUniqueConstraintError(err) {
			return leave.ErrDuplicateGrant
		}
		return fmt.Errorf("failed to insert grant: %w", err)
	}
	return nil
}

// GrantsForEmployee returns an employee's grant history, newest first.
func (s *Store) GrantsForEmployee(ctx context.Context, employeeID string) ([]leave.AccrualGrant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grantsForEmployeeQ(ctx, s.db, employeeID)
}

func grantsForEmployeeQ(ctx context.Context, q querier, employeeID string) ([]leave.AccrualGrant, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, employee_id, period, kind, amount, years_of_service, created_at
		FROM accrual_grants
		WHERE employee_id = ?
		ORDER BY period DESC, created_at DESC
	`, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	var grants []leave.AccrualGrant
	for rows.Next() {
		var (
			g         leave.AccrualGrant
			kind      string
			amount    float64
			createdAt string
		)
		if err := rows.Scan(&g.ID, &g.EmployeeID, &g.Period, &kind, &amount, &g.YearsOfService, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Kind = leave.GrantKind(kind)
		g.Amount = decimal.NewFromFloat(amount)
		g.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// =============================================================================
// LEAVE REQUESTS (leave.RequestStore interface)
// =============================================================================

// InsertRequest persists a new request.
func (s *Store) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequestQ(ctx, s.db, r)
}

func insertRequestQ(ctx context.Context, q querier, r leave.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests
		(id, employee_id, start_date, end_date, leave_type, start_time, end_time,
		 status, calendar_event_id, created_at, cancelled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := q.ExecContext(ctx, query,
		r.ID, r.EmployeeID,
		r.StartDate.String(), r.EndDate.String(),
		string(r.Type), r.StartTime, r.EndTime,
		string(r.Status), r.CalendarEventID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		nullTime(r.CancelledAt))
	if err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}
	return nil
}

// GetRequest returns a request by id.
func (s *Store) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequestQ(ctx, s.db, id)
}

func getRequestQ(ctx context.Context, q querier, id string) (*leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx, requestSelect+" WHERE r.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query request: %w", err)
	}
	defer rows.Close()

	reqs, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, leave.ErrRequestNotFound
	}
	return &reqs[0], nil
}

// MarkCancelled flips an APPROVED request to CANCELLED.
func (s *Store) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markCancelledQ(ctx, s.db, id, at)
}

func markCancelledQ(ctx context.Context, q querier, id string, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests SET status = ?, cancelled_at = ?
		WHERE id = ? AND status = ?
	`, string(leave.StatusCancelled), at.UTC().Format(time.RFC3339), id, string(leave.StatusApproved))
	if err != nil {
		return fmt.Errorf("failed to cancel request: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel request: %w", err)
	}
	if n == 0 {
		return leave.ErrAlreadyCancelled
	}
	return nil
}

// SetCalendarEventID records the mirrored calendar event reference.
func (s *Store) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"UPDATE leave_requests SET calendar_event_id = ? WHERE id = ?",
		eventID, id)
	if err != nil {
		return fmt.Errorf("failed to set calendar event: %w", err)
	}
	return nil
}

// RequestsByEmployee returns an employee's requests, newest first.
func (s *Store) RequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return requestsByEmployeeQ(ctx, s.db, employeeID)
}

func requestsByEmployeeQ(ctx context.Context, q querier, employeeID string) ([]leave.LeaveRequest, error) {
	rows, err := q.QueryContext(ctx,
		requestSelect+" WHERE r.employee_id = ? ORDER BY r.start_date DESC, r.created_at DESC",
		employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ApprovedInRange returns an employee's APPROVED requests intersecting
// [from, to].
func (s *Store) ApprovedInRange(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return approvedInRangeQ(ctx, s.db, employeeID, from, to)
}

func approvedInRangeQ(ctx context.Context, q querier, employeeID string, from, to leave.Date) ([]leave.LeaveRequest, error) {
	// Intersection of inclusive ranges: start <= to AND end >= from.
	rows, err := q.QueryContext(ctx, requestSelect+`
		WHERE r.employee_id = ? AND r.status = ?
		  AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY r.start_date ASC
	`, employeeID, string(leave.StatusApproved), to.String(), from.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// AllRequests returns every request, newest first. Admin view.
func (s *Store) AllRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		requestSelect+" ORDER BY r.start_date DESC, r.created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// ApprovedOn returns all APPROVED requests covering the given date.
func (s *Store) ApprovedOn(ctx context.Context, day leave.Date) ([]leave.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, requestSelect+`
		WHERE r.status = ? AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY r.employee_id ASC
	`, string(leave.StatusApproved), day.String(), day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

// requestSelect joins employee identity so admin and sweep views carry
// names without a second round trip.
const requestSelect = `
	SELECT r.id, r.employee_id, r.start_date, r.end_date, r.leave_type,
	       r.start_time, r.end_time, r.status, r.calendar_event_id,
	       r.created_at, r.cancelled_at,
	       COALESCE(e.name, ''), COALESCE(e.email, '')
	FROM leave_requests r
	LEFT JOIN employees e ON e.id = r.employee_id
`

func scanRequests(rows *sql.Rows) ([]leave.LeaveRequest, error) {
	var requests []leave.LeaveRequest
	for rows.Next() {
		var (
			r                    leave.LeaveRequest
			startDate, endDate   string
			leaveType, status    string
			createdAt            string
			cancelledAt          sql.NullString
		)

		err := rows.Scan(
			&r.ID, &r.EmployeeID, &startDate, &endDate, &leaveType,
			&r.StartTime, &r.EndTime, &status, &r.CalendarEventID,
			&createdAt, &cancelledAt,
			&r.EmployeeName, &r.EmployeeEmail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}

		r.StartDate, err = leave.ParseDate(startDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		r.EndDate, err = leave.ParseDate(endDate)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		r.Type = leave.LeaveType(leaveType)
		r.Status = leave.Status(status)
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		if cancelledAt.Valid {
			t, _ := time.Parse(time.RFC3339, cancelledAt.String)
			r.CancelledAt = &t
		}

		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// EMPLOYEES (leave.EmployeeStore interface)
// =============================================================================

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getEmployeeQ(ctx, s.db, id)
}

func getEmployeeQ(ctx context.Context, q querier, id string) (*leave.Employee, error) {
	var (
		emp      leave.Employee
		isAdmin  int
		joinDate sql.NullString
	)

	err := q.QueryRowContext(ctx,
		"SELECT id, email, name, is_admin, join_date FROM employees WHERE id = ?",
		id,
	).Scan(&emp.ID, &emp.Email, &emp.Name, &isAdmin, &joinDate)

	if err == sql.ErrNoRows {
		return nil, leave.ErrEmployeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}

	emp.IsAdmin = isAdmin != 0
	if joinDate.Valid && joinDate.String != "" {
		d, err := leave.ParseDate(joinDate.String)
		if err != nil {
			return nil, fmt.Errorf("failed to load employee: %w", err)
		}
		emp.JoinDate = &d
	}
	return &emp, nil
}

// ListEmployees returns all employees ordered by name.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listEmployeesQ(ctx, s.db)
}

func listEmployeesQ(ctx context.Context, q querier) ([]leave.Employee, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, email, name, is_admin, join_date FROM employees ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		var (
			emp      leave.Employee
			isAdmin  int
			joinDate sql.NullString
		)
		if err := rows.Scan(&emp.ID, &emp.Email, &emp.Name, &isAdmin, &joinDate); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		emp.IsAdmin = isAdmin != 0
		if joinDate.Valid && joinDate.String != "" {
			d, err := leave.ParseDate(joinDate.String)
			if err != nil {
				return nil, fmt.Errorf("failed to scan employee: %w", err)
			}
			emp.JoinDate = &d
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// SaveEmployee upserts an employee record.
func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveEmployeeQ(ctx, s.db, e)
}

func saveEmployeeQ(ctx context.Context, q querier, e leave.Employee) error {
	query := `
		INSERT INTO employees (id, email, name, is_admin, join_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			is_admin = excluded.is_admin,
			join_date = excluded.join_date
	`

	_, err := q.ExecContext(ctx, query,
		e.ID, e.Email, e.Name, boolInt(e.IsAdmin), nullDate(e.JoinDate), now())
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// SetJoinDate updates an employee's join date.
func (s *Store) SetJoinDate(ctx context.Context, id string, join *leave.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setJoinDateQ(ctx, s.db, id, join)
}

func setJoinDateQ(ctx context.Context, q querier, id string, join *leave.Date) error {
	res, err := q.ExecContext(ctx,
		"UPDATE employees SET join_date = ? WHERE id = ?",
		nullDate(join), id)
	if err != nil {
		return fmt.Errorf("failed to set join date: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set join date: %w", err)
	}
	if n == 0 {
		return leave.ErrEmployeeNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (leave.Store interface)
// =============================================================================

// WithTx executes fn within a database transaction. The callback sees a
// leave.Store view whose mutations commit together or not at all.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every operation to the shared helpers against the open
// transaction. No locking here: WithTx already holds the write lock.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Grant(ctx context.Context, employeeID string, delta decimal.Decimal) error {
	return grantQ(ctx, ts.tx, employeeID, delta)
}

func (ts *txStore) SetTotal(ctx context.Context, employeeID string, total decimal.Decimal) error {
	return setTotalQ(ctx, ts.tx, employeeID, total)
}

func (ts *txStore) Consume(ctx context.Context, employeeID string, amount decimal.Decimal) error {
	return consumeQ(ctx, ts.tx, employeeID, amount)
}

func (ts *txStore) Restore(ctx context.Context, employeeID string, amount decimal.Decimal) error {
	return restoreQ(ctx, ts.tx, employeeID, amount)
}

func (ts *txStore) GetBalance(ctx context.Context, employeeID string) (*leave.Balance, error) {
	return getBalanceQ(ctx, ts.tx, employeeID)
}

func (ts *txStore) HasGrant(ctx context.Context, employeeID, period string, kind leave.GrantKind) (bool, error) {
	return hasGrantQ(ctx, ts.tx, employeeID, period, kind)
}

func (ts *txStore) InsertGrant(ctx context.Context, g leave.AccrualGrant) error {
	return insertGrantQ(ctx, ts.tx, g)
}

func (ts *txStore) GrantsForEmployee(ctx context.Context, employeeID string) ([]leave.AccrualGrant, error) {
	return grantsForEmployeeQ(ctx, ts.tx, employeeID)
}

func (ts *txStore) InsertRequest(ctx context.Context, r leave.LeaveRequest) error {
	return insertRequestQ(ctx, ts.tx, r)
}

func (ts *txStore) GetRequest(ctx context.Context, id string) (*leave.LeaveRequest, error) {
	return getRequestQ(ctx, ts.tx, id)
}

func (ts *txStore) MarkCancelled(ctx context.Context, id string, at time.Time) error {
	return markCancelledQ(ctx, ts.tx, id, at)
}

func (ts *txStore) SetCalendarEventID(ctx context.Context, id, eventID string) error {
	_, err := ts.tx.ExecContext(ctx,
		"UPDATE leave_requests SET calendar_event_id = ? WHERE id = ?",
		eventID, id)
	if err != nil {
		return fmt.Errorf("failed to set calendar event: %w", err)
	}
	return nil
}

func (ts *txStore) RequestsByEmployee(ctx context.Context, employeeID string) ([]leave.LeaveRequest, error) {
	return requestsByEmployeeQ(ctx, ts.tx, employeeID)
}

func (ts *txStore) ApprovedInRange(ctx context.Context, employeeID string, from, to leave.Date) ([]leave.LeaveRequest, error) {
	return approvedInRangeQ(ctx, ts.tx, employeeID, from, to)
}

func (ts *txStore) AllRequests(ctx context.Context) ([]leave.LeaveRequest, error) {
	rows, err := ts.tx.QueryContext(ctx,
		requestSelect+" ORDER BY r.start_date DESC, r.created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (ts *txStore) ApprovedOn(ctx context.Context, day leave.Date) ([]leave.LeaveRequest, error) {
	rows, err := ts.tx.QueryContext(ctx, requestSelect+`
		WHERE r.status = ? AND r.start_date <= ? AND r.end_date >= ?
		ORDER BY r.employee_id ASC
	`, string(leave.StatusApproved), day.String(), day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (ts *txStore) GetEmployee(ctx context.Context, id string) (*leave.Employee, error) {
	return getEmployeeQ(ctx, ts.tx, id)
}

func (ts *txStore) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	return listEmployeesQ(ctx, ts.tx)
}

func (ts *txStore) SaveEmployee(ctx context.Context, e leave.Employee) error {
	return saveEmployeeQ(ctx, ts.tx, e)
}

func (ts *txStore) SetJoinDate(ctx context.Context, id string, join *leave.Date) error {
	return setJoinDateQ(ctx, ts.tx, id, join)
}

// Nested transactions are not supported; the callback runs inside the
// already-open one.
func (ts *txStore) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	return fn(ts)
}

// Helper functions

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullDate(d *leave.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isCheckConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "CHECK constraint failed")
}

// mapBalanceError translates constraint violations on leave_balances
// into the domain's integrity defect type.
func mapBalanceError(err error, employeeID, op string) error {
	if isCheckConstraintError(err) {
		return &leave.IntegrityError{
			EmployeeID: employeeID,
			Op:         op,
			Detail:     err.Error(),
		}
	}
	return fmt.Errorf("failed to update balance: %w", err)
}
