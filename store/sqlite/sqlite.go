/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements schedule.SessionStore and billing.InvoiceStore using SQLite.
  The engine itself is storage-agnostic; this package is the embedding
  application's side of the boundary, responsible for the serialization
  guarantees the engine cannot give (see CommitInvoice).

KEY TABLES:
  recurrence_rules:  Weekly session slot definitions
  session_records:   Concrete session occurrences with payment status
  invoices:          Immutable invoice records

STATUS UPDATES:
  Payment-status writes are compare-and-swap: UPDATE ... WHERE id = ? AND
  status = ?. A zero-row update distinguishes a missing session from a
  status that changed underneath the caller. CommitInvoice wraps the CAS
  updates and the invoice insert in one database transaction, so two
  concurrent selections cannot both invoice the same session.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) so readers don't block
  the single writer.

USAGE:
  store, err := sqlite.New("./data/sessions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - schedule/store.go:        Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/schedule-engine/billing"
	"github.com/warp/schedule-engine/schedule"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
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
	-- Recurrence rules (weekly session slots)
	CREATE TABLE IF NOT EXISTS recurrence_rules (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		subject_id TEXT,
		weekdays TEXT NOT NULL,
		start_clock TEXT NOT NULL,
		end_clock TEXT NOT NULL,
		timezone TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		effective_until TEXT,
		price_per_hour TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rules_resource
		ON recurrence_rules(resource_id);
	CREATE INDEX IF NOT EXISTS idx_rules_active
		ON recurrence_rules(active);

	-- Session occurrences
	CREATE TABLE IF NOT EXISTS session_records (
		id TEXT PRIMARY KEY,
		rule_id TEXT,
		resource_id TEXT NOT NULL,
		subject_id TEXT,
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		price TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'unpaid',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_resource_start
		ON session_records(resource_id, start_at);
	CREATE INDEX IF NOT EXISTS idx_sessions_status
		ON session_records(status);
	CREATE INDEX IF NOT EXISTS idx_sessions_rule
		ON session_records(rule_id) WHERE rule_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_sessions_start
		ON session_records(start_at);

	-- Invoices (immutable after insert)
	CREATE TABLE IF NOT EXISTS invoices (
		id TEXT PRIMARY KEY,
		session_ids TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SESSION STORE (schedule.SessionStore interface)
// =============================================================================

// SaveOccurrences inserts occurrences, skipping existing ids, and returns
// how many were inserted. INSERT OR IGNORE plus the deterministic
// expansion ids make generation runs idempotent.
func (s *Store) SaveOccurrences(ctx context.Context, occurrences []schedule.SessionOccurrence) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT OR IGNORE INTO session_records
		(id, rule_id, resource_id, subject_id, start_at, end_at, price, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	inserted := 0
	now := time.Now().UTC().Format(time.RFC3339)
	for _, o := range occurrences {
		res, err := sqlTx.ExecContext(ctx, query,
			o.ID,
			nullString(string(o.RuleID)),
			o.ResourceID,
			nullString(string(o.SubjectID)),
			o.Interval.Start().UTC().Format(time.RFC3339),
			o.Interval.End().UTC().Format(time.RFC3339),
			o.Price.String(),
			o.Status,
			now,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert session: %w", err)
		}
		n, _ := res.RowsAffected()
		inserted += int(n)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetOccurrence returns a single occurrence by id.
func (s *Store) GetOccurrence(ctx context.Context, id schedule.SessionID) (*schedule.SessionOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := sessionSelect + ` WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)
	occ, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, schedule.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &occ, nil
}

// LoadOccurrences returns occurrences matching the filter, ordered by
// interval start.
func (s *Store) LoadOccurrences(ctx context.Context, filter schedule.OccurrenceFilter) ([]schedule.SessionOccurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := sessionSelect + ` WHERE 1=1`
	var args []any
	if filter.ResourceID != "" {
		query += ` AND resource_id = ?`
		args = append(args, filter.ResourceID)
	}
	if filter.RuleID != "" {
		query += ` AND rule_id = ?`
		args = append(args, filter.RuleID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		query += ` AND start_at >= ?`
		args = append(args, filter.From.UTC().Format(time.RFC3339))
	}
	if !filter.To.IsZero() {
		query += ` AND start_at < ?`
		args = append(args, filter.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY start_at ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var out []schedule.SessionOccurrence
	for rows.Next() {
		occ, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, occ)
	}
	return out, rows.Err()
}

// UpdateStatus applies a status change if and only if the stored status
// still equals expect.
func (s *Store) UpdateStatus(ctx context.Context, id schedule.SessionID, expect, next schedule.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return updateStatusCAS(ctx, s.db, id, expect, next)
}

func updateStatusCAS(ctx context.Context, db execer, id schedule.SessionID, expect, next schedule.PaymentStatus) error {
	res, err := db.ExecContext(ctx,
		`UPDATE session_records SET status = ? WHERE id = ? AND status = ?`,
		next, id, expect)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	// The swap missed: missing row or concurrent change.
	var current string
	err = db.QueryRowContext(ctx, `SELECT status FROM session_records WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return schedule.ErrSessionNotFound
	}
	if err != nil {
		return err
	}
	return schedule.ErrStatusConflict
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DeleteOccurrence removes a session record (explicit cancellation).
func (s *Store) DeleteOccurrence(ctx context.Context, id schedule.SessionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM session_records WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schedule.ErrSessionNotFound
	}
	return nil
}

// =============================================================================
// RULE STORE
// =============================================================================

// SaveRule inserts or replaces a recurrence rule.
func (s *Store) SaveRule(ctx context.Context, rule schedule.RecurrenceRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO recurrence_rules
		(id, resource_id, subject_id, weekdays, start_clock, end_clock, timezone,
		 effective_from, effective_until, price_per_hour, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			resource_id = excluded.resource_id,
			subject_id = excluded.subject_id,
			weekdays = excluded.weekdays,
			start_clock = excluded.start_clock,
			end_clock = excluded.end_clock,
			timezone = excluded.timezone,
			effective_from = excluded.effective_from,
			effective_until = excluded.effective_until,
			price_per_hour = excluded.price_per_hour,
			active = excluded.active
	`

	var until sql.NullString
	if rule.Bounded() {
		until = sql.NullString{String: rule.EffectiveUntil.Format("2006-01-02"), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		rule.ID,
		rule.ResourceID,
		nullString(string(rule.SubjectID)),
		encodeWeekdays(rule.Weekdays),
		rule.StartClock.String(),
		rule.EndClock.String(),
		rule.Location.String(),
		rule.EffectiveFrom.Format("2006-01-02"),
		until,
		rule.PricePerHour.String(),
		rule.Active,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save rule: %w", err)
	}
	return nil
}

// GetRule returns a rule by id, or (nil, nil) when absent.
func (s *Store) GetRule(ctx context.Context, id schedule.RuleID) (*schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rules, err := s.queryRules(ctx, ruleSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return &rules[0], nil
}

// ListRules returns all rules, optionally only active ones.
func (s *Store) ListRules(ctx context.Context, activeOnly bool) ([]schedule.RecurrenceRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := ruleSelect
	if activeOnly {
		query += ` WHERE active = TRUE`
	}
	query += ` ORDER BY created_at ASC, id ASC`
	return s.queryRules(ctx, query)
}

// SetRuleActive toggles generation for a rule.
func (s *Store) SetRuleActive(ctx context.Context, id schedule.RuleID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE recurrence_rules SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: rule %s not found", schedule.ErrInvalidRule, id)
	}
	return nil
}

// DeleteRule removes a rule definition. Generated occurrences stay.
func (s *Store) DeleteRule(ctx context.Context, id schedule.RuleID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM recurrence_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: rule %s not found", schedule.ErrInvalidRule, id)
	}
	return nil
}

// =============================================================================
// INVOICE STORE (billing.InvoiceStore interface)
// =============================================================================

// CommitInvoice atomically re-validates the selection, flips every listed
// session to Invoiced, and persists the invoice. Either everything lands
// or nothing does.
func (s *Store) CommitInvoice(ctx context.Context, invoice billing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, id := range invoice.SessionIDs {
		err := updateStatusCAS(ctx, sqlTx, id, schedule.StatusUnpaid, schedule.StatusInvoiced)
		if err == schedule.ErrStatusConflict {
			var current string
			if scanErr := sqlTx.QueryRowContext(ctx,
				`SELECT status FROM session_records WHERE id = ?`, id).Scan(&current); scanErr == nil {
				return &billing.NotUnpaidError{SessionID: id, Status: schedule.PaymentStatus(current)}
			}
			return &billing.NotUnpaidError{SessionID: id, Status: ""}
		}
		if err != nil {
			return err
		}
	}

	idsJSON, err := json.Marshal(invoice.SessionIDs)
	if err != nil {
		return err
	}
	_, err = sqlTx.ExecContext(ctx,
		`INSERT INTO invoices (id, session_ids, total_amount, generated_at) VALUES (?, ?, ?, ?)`,
		invoice.ID,
		string(idsJSON),
		invoice.TotalAmount.String(),
		invoice.GeneratedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return sqlTx.Commit()
}

// GetInvoice returns an invoice by id, or (nil, nil) when absent.
func (s *Store) GetInvoice(ctx context.Context, id string) (*billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_ids, total_amount, generated_at FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvoices returns all invoices in creation order.
func (s *Store) ListInvoices(ctx context.Context) ([]billing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_ids, total_amount, generated_at FROM invoices ORDER BY generated_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []billing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// =============================================================================
// SCANNING & ENCODING HELPERS
// =============================================================================

const sessionSelect = `
	SELECT id, rule_id, resource_id, subject_id, start_at, end_at, price, status
	FROM session_records`

const ruleSelect = `
	SELECT id, resource_id, subject_id, weekdays, start_clock, end_clock, timezone,
	       effective_from, effective_until, price_per_hour, active
	FROM recurrence_rules`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (schedule.SessionOccurrence, error) {
	var (
		o                 schedule.SessionOccurrence
		ruleID, subjectID sql.NullString
		startStr, endStr  string
		priceStr, statStr string
	)
	err := row.Scan(&o.ID, &ruleID, &o.ResourceID, &subjectID, &startStr, &endStr, &priceStr, &statStr)
	if err != nil {
		return schedule.SessionOccurrence{}, err
	}

	o.RuleID = schedule.RuleID(ruleID.String)
	o.SubjectID = schedule.SubjectID(subjectID.String)
	o.Status = schedule.PaymentStatus(statStr)

	start, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		return schedule.SessionOccurrence{}, fmt.Errorf("corrupt start_at %q: %w", startStr, err)
	}
	end, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		return schedule.SessionOccurrence{}, fmt.Errorf("corrupt end_at %q: %w", endStr, err)
	}
	o.Interval, err = schedule.NewInterval(start, end)
	if err != nil {
		return schedule.SessionOccurrence{}, err
	}

	o.Price, err = decimal.NewFromString(priceStr)
	if err != nil {
		return schedule.SessionOccurrence{}, fmt.Errorf("corrupt price %q: %w", priceStr, err)
	}
	return o, nil
}

func (s *Store) queryRules(ctx context.Context, query string, args ...any) ([]schedule.RecurrenceRule, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []schedule.RecurrenceRule
	for rows.Next() {
		var (
			r                    schedule.RecurrenceRule
			subjectID, until     sql.NullString
			weekdays, startClock string
			endClock, tzName     string
			fromStr, priceStr    string
		)
		err := rows.Scan(&r.ID, &r.ResourceID, &subjectID, &weekdays, &startClock,
			&endClock, &tzName, &fromStr, &until, &priceStr, &r.Active)
		if err != nil {
			return nil, err
		}

		r.SubjectID = schedule.SubjectID(subjectID.String)
		if r.Weekdays, err = decodeWeekdays(weekdays); err != nil {
			return nil, err
		}
		if r.StartClock, err = schedule.ParseLocalClock(startClock); err != nil {
			return nil, err
		}
		if r.EndClock, err = schedule.ParseLocalClock(endClock); err != nil {
			return nil, err
		}
		if r.Location, err = time.LoadLocation(tzName); err != nil {
			return nil, fmt.Errorf("corrupt timezone %q: %w", tzName, err)
		}
		if r.EffectiveFrom, err = time.ParseInLocation("2006-01-02", fromStr, r.Location); err != nil {
			return nil, fmt.Errorf("corrupt effective_from %q: %w", fromStr, err)
		}
		if until.Valid {
			if r.EffectiveUntil, err = time.ParseInLocation("2006-01-02", until.String, r.Location); err != nil {
				return nil, fmt.Errorf("corrupt effective_until %q: %w", until.String, err)
			}
		}
		if r.PricePerHour, err = decimal.NewFromString(priceStr); err != nil {
			return nil, fmt.Errorf("corrupt price_per_hour %q: %w", priceStr, err)
		}

		out = append(out, r)
	}
	return out, rows.Err()
}

func scanInvoice(row rowScanner) (billing.Invoice, error) {
	var (
		inv            billing.Invoice
		idsJSON        string
		totalStr       string
		generatedAtStr string
	)
	if err := row.Scan(&inv.ID, &idsJSON, &totalStr, &generatedAtStr); err != nil {
		return billing.Invoice{}, err
	}
	if err := json.Unmarshal([]byte(idsJSON), &inv.SessionIDs); err != nil {
		return billing.Invoice{}, fmt.Errorf("corrupt session_ids: %w", err)
	}
	var err error
	if inv.TotalAmount, err = decimal.NewFromString(totalStr); err != nil {
		return billing.Invoice{}, fmt.Errorf("corrupt total_amount %q: %w", totalStr, err)
	}
	if inv.GeneratedAt, err = time.Parse(time.RFC3339, generatedAtStr); err != nil {
		return billing.Invoice{}, fmt.Errorf("corrupt generated_at %q: %w", generatedAtStr, err)
	}
	return inv, nil
}

func encodeWeekdays(days []time.Weekday) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = fmt.Sprintf("%d", int(d))
	}
	return strings.Join(parts, ",")
}

func decodeWeekdays(s string) ([]time.Weekday, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty weekday set", schedule.ErrInvalidRule)
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		var n int
		if _, err := fmt.Sscanf(p, "%d", &n); err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("%w: corrupt weekday %q", schedule.ErrInvalidRule, p)
		}
		days = append(days, time.Weekday(n))
	}
	return days, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
