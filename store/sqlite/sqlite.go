/*
Package sqlite provides the SQLite-backed implementation of engine.Store.

PURPOSE:

	Production persistence for the booking and payroll engine. The same
	patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:

	salesmen:           Identity + weekly template (JSON) + buffer
	blocks:             One-off unavailability
	holidays:           Company holidays
	clients:            Booked parties, deduplicated on contact fields
	bookings:           Appointments; rows are never deleted
	commission_entries: One per confirmed booking; voided, never deleted
	adjustments:        Payroll-level corrections
	pay_periods:        Friday-Thursday windows and their lock state
	rate_records:       Append-only commission rate history

MUTATION DISCIPLINE:
  - bookings: status transitions only, no DELETE
  - commission_entries: void columns are the only UPDATE surface; rate
    and amount are written once
  - rate_records: INSERT only

INDEXES:
  - idx_bookings_salesman_start: slot generation + overlap checks (hot path)
  - idx_entries_confirmed_at: period aggregation
  - idx_adjustments_period: period aggregation
  - idx_entries_booking (unique): one entry per booking, enforced by the DB

TIME ENCODING:

	All instants are stored as UTC text with a fixed-width 9-digit
	fraction so that lexicographic comparison in SQL equals chronological
	comparison.

CONCURRENCY:

	Uses sync.RWMutex for thread-safety on top of WAL mode. In production
	with PostgreSQL, database-level concurrency control handles this
	instead.

USAGE:

	store, err := sqlite.New("./data/bookings.db")
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

MIGRATION:

	Schema is auto-migrated on New(). For production, use a proper
	migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - engine/store.go: Interface definitions
  - engine/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/warp/booking-engine/engine"
)

// timeFmt keeps the fraction fixed-width so stored instants compare
// lexicographically.
const timeFmt = "2006-01-02T15:04:05.000000000Z07:00"

func encodeTime(t time.Time) string { return t.UTC().Format(timeFmt) }

func decodeTime(s string) time.Time {
	t, _ := time.Parse(timeFmt, s)
	return t
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := decodeTime(s.String)
	return &t
}

// Store implements engine.Store using SQLite.
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
	CREATE TABLE IF NOT EXISTS salesmen (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		phone TEXT,
		template_json TEXT NOT NULL DEFAULT '[]',
		overrides_json TEXT NOT NULL DEFAULT '[]',
		buffer_minutes INTEGER NOT NULL DEFAULT 0,
		active INTEGER NOT NULL DEFAULT 1,
		hire_date TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS blocks (
		id TEXT PRIMARY KEY,
		salesman_id TEXT NOT NULL REFERENCES salesmen(id),
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		reason TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_blocks_salesman_start
		ON blocks(salesman_id, start_at);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		date TEXT NOT NULL,
		recurring INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		first_name TEXT,
		last_name TEXT,
		business_name TEXT,
		email TEXT,
		phone TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_email ON clients(email) WHERE email != '';
	CREATE INDEX IF NOT EXISTS idx_clients_phone ON clients(phone) WHERE phone != '';

	-- Bookings are never deleted: status transitions are the only
	-- mutation path, so payroll stays recomputable from history.
	CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		salesman_id TEXT NOT NULL REFERENCES salesmen(id),
		client_id TEXT NOT NULL REFERENCES clients(id),
		start_at TEXT NOT NULL,
		end_at TEXT NOT NULL,
		kind TEXT NOT NULL,
		status TEXT NOT NULL,
		zoom_link TEXT,
		notes TEXT,
		cancellation_reason TEXT,
		cancellation_notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL,
		confirmed_by TEXT,
		confirmed_at TEXT,
		cancelled_by TEXT,
		cancelled_at TEXT,
		completed_at TEXT
	);

	-- Hot path: slot generation and overlap checks
	CREATE INDEX IF NOT EXISTS idx_bookings_salesman_start
		ON bookings(salesman_id, start_at, status);

	-- One entry per booking, enforced by the database as the last line
	-- of defense behind the ledger's own check.
	CREATE TABLE IF NOT EXISTS commission_entries (
		id TEXT PRIMARY KEY,
		booking_id TEXT NOT NULL REFERENCES bookings(id),
		salesman_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		confirmed_at TEXT NOT NULL,
		voided INTEGER NOT NULL DEFAULT 0,
		voided_at TEXT,
		void_reason TEXT,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_booking
		ON commission_entries(booking_id);
	CREATE INDEX IF NOT EXISTS idx_entries_confirmed_at
		ON commission_entries(confirmed_at);

	CREATE TABLE IF NOT EXISTS adjustments (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		salesman_id TEXT NOT NULL,
		booking_id TEXT,
		type TEXT NOT NULL,
		amount TEXT NOT NULL,
		reason TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_period
		ON adjustments(period_start);

	CREATE TABLE IF NOT EXISTS pay_periods (
		start_at TEXT PRIMARY KEY,
		end_at TEXT NOT NULL,
		status TEXT NOT NULL,
		finalized_at TEXT,
		finalized_by TEXT,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rate_records (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		salesman_id TEXT,
		kind TEXT,
		rate TEXT NOT NULL,
		effective_from TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_rates_effective
		ON rate_records(effective_from);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// SALESMEN
// =============================================================================

func (s *Store) CreateSalesman(ctx context.Context, sm *engine.Salesman) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, err := json.Marshal(sm.Template)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	overrides, err := json.Marshal(sm.Overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}

	var hireDate any
	if !sm.HireDate.IsZero() {
		hireDate = encodeTime(sm.HireDate)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO salesmen (id, name, email, phone, template_json, overrides_json, buffer_minutes, active, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sm.ID, sm.Name, sm.Email, sm.Phone, string(template), string(overrides),
		sm.BufferMinutes, boolToInt(sm.Active), hireDate, encodeTime(sm.CreatedAt),
	)
	return err
}

func (s *Store) GetSalesman(ctx context.Context, id engine.SalesmanID) (*engine.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, template_json, overrides_json, buffer_minutes, active, hire_date, created_at
		FROM salesmen WHERE id = ?`, id)

	sm, err := scanSalesman(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sm, err
}

func (s *Store) ListSalesmen(ctx context.Context, activeOnly bool) ([]engine.Salesman, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, name, email, phone, template_json, overrides_json, buffer_minutes, active, hire_date, created_at
		FROM salesmen`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Salesman
	for rows.Next() {
		sm, err := scanSalesman(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sm)
	}
	return out, rows.Err()
}

func (s *Store) UpdateSalesman(ctx context.Context, sm *engine.Salesman) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, err := json.Marshal(sm.Template)
	if err != nil {
		return fmt.Errorf("encode template: %w", err)
	}
	overrides, err := json.Marshal(sm.Overrides)
	if err != nil {
		return fmt.Errorf("encode overrides: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE salesmen
		SET name = ?, email = ?, phone = ?, template_json = ?, overrides_json = ?, buffer_minutes = ?, active = ?
		WHERE id = ?`,
		sm.Name, sm.Email, sm.Phone, string(template), string(overrides),
		sm.BufferMinutes, boolToInt(sm.Active), sm.ID,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSalesman(row rowScanner) (*engine.Salesman, error) {
	var (
		sm            engine.Salesman
		phone         sql.NullString
		template      string
		overrides     string
		active        int
		hireDate      sql.NullString
		createdAt     string
		bufferMinutes int
	)
	if err := row.Scan(&sm.ID, &sm.Name, &sm.Email, &phone, &template, &overrides, &bufferMinutes, &active, &hireDate, &createdAt); err != nil {
		return nil, err
	}
	sm.Phone = phone.String
	sm.BufferMinutes = bufferMinutes
	sm.Active = active != 0
	if hireDate.Valid {
		sm.HireDate = decodeTime(hireDate.String)
	}
	sm.CreatedAt = decodeTime(createdAt)
	if err := json.Unmarshal([]byte(template), &sm.Template); err != nil {
		return nil, fmt.Errorf("decode template: %w", err)
	}
	if err := json.Unmarshal([]byte(overrides), &sm.Overrides); err != nil {
		return nil, fmt.Errorf("decode overrides: %w", err)
	}
	return &sm, nil
}

// =============================================================================
// CLIENTS
// =============================================================================

func (s *Store) CreateClient(ctx context.Context, c *engine.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (id, first_name, last_name, business_name, email, phone, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.FirstName, c.LastName, c.BusinessName, c.Email, c.Phone, c.Notes, c.CreatedBy, encodeTime(c.CreatedAt),
	)
	return err
}

func (s *Store) GetClient(ctx context.Context, id engine.ClientID) (*engine.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, first_name, last_name, business_name, email, phone, notes, created_by, created_at
		FROM clients WHERE id = ?`, id)

	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// FindClientByContact matches on normalized email first, then phone.
// Callers normalize before querying; storage holds normalized values.
func (s *Store) FindClientByContact(ctx context.Context, email, phone string) (*engine.Client, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if email != "" {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, first_name, last_name, business_name, email, phone, notes, created_by, created_at
			FROM clients WHERE email = ? LIMIT 1`, email)
		c, err := scanClient(row)
		if err == nil {
			return c, "email", nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
	}
	if phone != "" {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, first_name, last_name, business_name, email, phone, notes, created_by, created_at
			FROM clients WHERE phone = ? LIMIT 1`, phone)
		c, err := scanClient(row)
		if err == nil {
			return c, "phone", nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, "", err
		}
	}
	return nil, "", nil
}

func scanClient(row rowScanner) (*engine.Client, error) {
	var (
		c         engine.Client
		fields    [6]sql.NullString
		createdAt string
	)
	if err := row.Scan(&c.ID, &fields[0], &fields[1], &fields[2], &fields[3], &fields[4], &fields[5], &c.CreatedBy, &createdAt); err != nil {
		return nil, err
	}
	c.FirstName = fields[0].String
	c.LastName = fields[1].String
	c.BusinessName = fields[2].String
	c.Email = fields[3].String
	c.Phone = fields[4].String
	c.Notes = fields[5].String
	c.CreatedAt = decodeTime(createdAt)
	return &c, nil
}

// =============================================================================
// CALENDAR - Blocks and holidays
// =============================================================================

func (s *Store) AddBlock(ctx context.Context, b *engine.UnavailabilityBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blocks (id, salesman_id, start_at, end_at, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SalesmanID, encodeTime(b.Start), encodeTime(b.End), b.Reason, b.CreatedBy, encodeTime(b.CreatedAt),
	)
	return err
}

func (s *Store) GetBlock(ctx context.Context, id engine.BlockID) (*engine.UnavailabilityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, salesman_id, start_at, end_at, reason, created_by, created_at
		FROM blocks WHERE id = ?`, id)

	var (
		b          engine.UnavailabilityBlock
		start, end string
		createdAt  string
		reason     sql.NullString
	)
	err := row.Scan(&b.ID, &b.SalesmanID, &start, &end, &reason, &b.CreatedBy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	b.Start = decodeTime(start)
	b.End = decodeTime(end)
	b.Reason = reason.String
	b.CreatedAt = decodeTime(createdAt)
	return &b, nil
}

func (s *Store) DeleteBlock(ctx context.Context, id engine.BlockID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
	return err
}

// ListBlocks returns blocks overlapping [from, to), ordered by start.
func (s *Store) ListBlocks(ctx context.Context, salesmanID engine.SalesmanID, from, to time.Time) ([]engine.UnavailabilityBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, salesman_id, start_at, end_at, reason, created_by, created_at
		FROM blocks
		WHERE salesman_id = ? AND start_at < ? AND end_at > ?
		ORDER BY start_at`,
		salesmanID, encodeTime(to), encodeTime(from),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.UnavailabilityBlock
	for rows.Next() {
		var (
			b          engine.UnavailabilityBlock
			start, end string
			createdAt  string
			reason     sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.SalesmanID, &start, &end, &reason, &b.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		b.Start = decodeTime(start)
		b.End = decodeTime(end)
		b.Reason = reason.String
		b.CreatedAt = decodeTime(createdAt)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) AddHoliday(ctx context.Context, h *engine.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO holidays (id, name, date, recurring, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		h.ID, h.Name, encodeTime(h.Date), boolToInt(h.Recurring), encodeTime(h.CreatedAt),
	)
	return err
}

func (s *Store) ListHolidays(ctx context.Context) ([]engine.Holiday, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, date, recurring, created_at FROM holidays ORDER BY date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Holiday
	for rows.Next() {
		var (
			h         engine.Holiday
			date      string
			recurring int
			createdAt string
		)
		if err := rows.Scan(&h.ID, &h.Name, &date, &recurring, &createdAt); err != nil {
			return nil, err
		}
		h.Date = decodeTime(date)
		h.Recurring = recurring != 0
		h.CreatedAt = decodeTime(createdAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = ?`, id)
	return err
}

// =============================================================================
// BOOKINGS
// =============================================================================

func (s *Store) CreateBooking(ctx context.Context, b *engine.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bookings (id, salesman_id, client_id, start_at, end_at, kind, status,
			zoom_link, notes, cancellation_reason, cancellation_notes,
			created_by, created_at, confirmed_by, confirmed_at, cancelled_by, cancelled_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SalesmanID, b.ClientID, encodeTime(b.Start), encodeTime(b.End), b.Kind, b.Status,
		b.ZoomLink, b.Notes, b.CancellationReason, b.CancellationNotes,
		b.CreatedBy, encodeTime(b.CreatedAt), b.ConfirmedBy, encodeTimePtr(b.ConfirmedAt),
		b.CancelledBy, encodeTimePtr(b.CancelledAt), encodeTimePtr(b.CompletedAt),
	)
	return err
}

func (s *Store) GetBooking(ctx context.Context, id engine.BookingID) (*engine.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, bookingSelect+` WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

func (s *Store) UpdateBooking(ctx context.Context, b *engine.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE bookings
		SET status = ?, cancellation_reason = ?, cancellation_notes = ?,
			confirmed_by = ?, confirmed_at = ?, cancelled_by = ?, cancelled_at = ?, completed_at = ?
		WHERE id = ?`,
		b.Status, b.CancellationReason, b.CancellationNotes,
		b.ConfirmedBy, encodeTimePtr(b.ConfirmedAt),
		b.CancelledBy, encodeTimePtr(b.CancelledAt), encodeTimePtr(b.CompletedAt),
		b.ID,
	)
	return err
}

func (s *Store) ListBookings(ctx context.Context, f engine.BookingFilter) ([]engine.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := bookingSelect + ` WHERE 1=1`
	var args []any
	if f.SalesmanID != nil {
		query += ` AND salesman_id = ?`
		args = append(args, *f.SalesmanID)
	}
	// Overlap semantics: the booking interval intersects [From, To).
	if f.To != nil {
		query += ` AND start_at < ?`
		args = append(args, encodeTime(*f.To))
	}
	if f.From != nil {
		query += ` AND end_at > ?`
		args = append(args, encodeTime(*f.From))
	}
	if len(f.Statuses) > 0 {
		query += ` AND status IN (?` + repeat(",?", len(f.Statuses)-1) + `)`
		for _, st := range f.Statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY start_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

const bookingSelect = `
	SELECT id, salesman_id, client_id, start_at, end_at, kind, status,
		zoom_link, notes, cancellation_reason, cancellation_notes,
		created_by, created_at, confirmed_by, confirmed_at, cancelled_by, cancelled_at, completed_at
	FROM bookings`

func scanBooking(row rowScanner) (*engine.Booking, error) {
	var (
		b                        engine.Booking
		start, end, createdAt    string
		zoomLink, notes          sql.NullString
		cancelReason, cancelNote sql.NullString
		confirmedBy, cancelledBy sql.NullString
		confirmedAt, cancelledAt sql.NullString
		completedAt              sql.NullString
	)
	if err := row.Scan(&b.ID, &b.SalesmanID, &b.ClientID, &start, &end, &b.Kind, &b.Status,
		&zoomLink, &notes, &cancelReason, &cancelNote,
		&b.CreatedBy, &createdAt, &confirmedBy, &confirmedAt, &cancelledBy, &cancelledAt, &completedAt); err != nil {
		return nil, err
	}
	b.Start = decodeTime(start)
	b.End = decodeTime(end)
	b.ZoomLink = zoomLink.String
	b.Notes = notes.String
	b.CancellationReason = engine.CancellationReason(cancelReason.String)
	b.CancellationNotes = cancelNote.String
	b.CreatedAt = decodeTime(createdAt)
	b.ConfirmedBy = confirmedBy.String
	b.ConfirmedAt = decodeTimePtr(confirmedAt)
	b.CancelledBy = cancelledBy.String
	b.CancelledAt = decodeTimePtr(cancelledAt)
	b.CompletedAt = decodeTimePtr(completedAt)
	return &b, nil
}

// =============================================================================
// COMMISSION LEDGER
// =============================================================================

func (s *Store) CreateEntry(ctx context.Context, e *engine.CommissionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO commission_entries (id, booking_id, salesman_id, kind, rate, amount, confirmed_at, voided, voided_at, void_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.BookingID, e.SalesmanID, e.Kind, e.Rate.String(), e.Amount.String(),
		encodeTime(e.ConfirmedAt), boolToInt(e.Voided), encodeTimePtr(e.VoidedAt), e.VoidReason, encodeTime(e.CreatedAt),
	)
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		return fmt.Errorf("booking %s: %w", e.BookingID, engine.ErrDuplicateEntry)
	}
	return err
}

func (s *Store) GetEntryByBooking(ctx context.Context, bookingID engine.BookingID) (*engine.CommissionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, entrySelect+` WHERE booking_id = ?`, bookingID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

// UpdateEntry persists void state only; rate and amount are immutable.
func (s *Store) UpdateEntry(ctx context.Context, e *engine.CommissionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE commission_entries
		SET voided = ?, voided_at = ?, void_reason = ?
		WHERE id = ?`,
		boolToInt(e.Voided), encodeTimePtr(e.VoidedAt), e.VoidReason, e.ID,
	)
	return err
}

func (s *Store) ListEntries(ctx context.Context, from, to time.Time) ([]engine.CommissionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, entrySelect+`
		WHERE confirmed_at >= ? AND confirmed_at <= ?
		ORDER BY confirmed_at`,
		encodeTime(from), encodeTime(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.CommissionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

const entrySelect = `
	SELECT id, booking_id, salesman_id, kind, rate, amount, confirmed_at, voided, voided_at, void_reason, created_at
	FROM commission_entries`

func scanEntry(row rowScanner) (*engine.CommissionEntry, error) {
	var (
		e                     engine.CommissionEntry
		rate, amount          string
		confirmedAt           string
		voided                int
		voidedAt              sql.NullString
		voidReason, createdAt sql.NullString
	)
	if err := row.Scan(&e.ID, &e.BookingID, &e.SalesmanID, &e.Kind, &rate, &amount, &confirmedAt, &voided, &voidedAt, &voidReason, &createdAt); err != nil {
		return nil, err
	}
	e.Rate = engine.MustParseMoney(rate)
	e.Amount = engine.MustParseMoney(amount)
	e.ConfirmedAt = decodeTime(confirmedAt)
	e.Voided = voided != 0
	e.VoidedAt = decodeTimePtr(voidedAt)
	e.VoidReason = voidReason.String
	if createdAt.Valid {
		e.CreatedAt = decodeTime(createdAt.String)
	}
	return &e, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

func (s *Store) GetPeriod(ctx context.Context, start time.Time) (*engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT start_at, end_at, status, finalized_at, finalized_by, notes, created_at
		FROM pay_periods WHERE start_at = ?`, encodeTime(start))

	var (
		p                  engine.PayPeriod
		startStr, endStr   string
		finalizedAt        sql.NullString
		finalizedBy, notes sql.NullString
		createdAt          string
	)
	err := row.Scan(&startStr, &endStr, &p.Status, &finalizedAt, &finalizedBy, &notes, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	p.Start = decodeTime(startStr)
	p.End = decodeTime(endStr)
	p.FinalizedAt = decodeTimePtr(finalizedAt)
	p.FinalizedBy = finalizedBy.String
	p.Notes = notes.String
	p.CreatedAt = decodeTime(createdAt)
	return &p, nil
}

func (s *Store) SavePeriod(ctx context.Context, p *engine.PayPeriod) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pay_periods (start_at, end_at, status, finalized_at, finalized_by, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(start_at) DO UPDATE SET
			status = excluded.status,
			finalized_at = excluded.finalized_at,
			finalized_by = excluded.finalized_by,
			notes = excluded.notes`,
		encodeTime(p.Start), encodeTime(p.End), p.Status,
		encodeTimePtr(p.FinalizedAt), p.FinalizedBy, p.Notes, encodeTime(p.CreatedAt),
	)
	return err
}

func (s *Store) ListPeriods(ctx context.Context) ([]engine.PayPeriod, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT start_at, end_at, status, finalized_at, finalized_by, notes, created_at
		FROM pay_periods ORDER BY start_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.PayPeriod
	for rows.Next() {
		var (
			p                  engine.PayPeriod
			startStr, endStr   string
			finalizedAt        sql.NullString
			finalizedBy, notes sql.NullString
			createdAt          string
		)
		if err := rows.Scan(&startStr, &endStr, &p.Status, &finalizedAt, &finalizedBy, &notes, &createdAt); err != nil {
			return nil, err
		}
		p.Start = decodeTime(startStr)
		p.End = decodeTime(endStr)
		p.FinalizedAt = decodeTimePtr(finalizedAt)
		p.FinalizedBy = finalizedBy.String
		p.Notes = notes.String
		p.CreatedAt = decodeTime(createdAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreateAdjustment(ctx context.Context, a *engine.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adjustments (id, period_start, salesman_id, booking_id, type, amount, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, encodeTime(a.PeriodStart), a.SalesmanID, a.BookingID, a.Type,
		a.Amount.String(), a.Reason, a.CreatedBy, encodeTime(a.CreatedAt),
	)
	return err
}

func (s *Store) ListAdjustments(ctx context.Context, periodStart time.Time) ([]engine.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, period_start, salesman_id, booking_id, type, amount, reason, created_by, created_at
		FROM adjustments WHERE period_start = ? ORDER BY created_at`,
		encodeTime(periodStart))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Adjustment
	for rows.Next() {
		var (
			a         engine.Adjustment
			periodStr string
			bookingID sql.NullString
			amount    string
			createdAt string
		)
		if err := rows.Scan(&a.ID, &periodStr, &a.SalesmanID, &bookingID, &a.Type, &amount, &a.Reason, &a.CreatedBy, &createdAt); err != nil {
			return nil, err
		}
		a.PeriodStart = decodeTime(periodStr)
		a.BookingID = engine.BookingID(bookingID.String)
		a.Amount = engine.MustParseMoney(amount)
		a.CreatedAt = decodeTime(createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

// =============================================================================
// RATES
// =============================================================================

func (s *Store) AppendRate(ctx context.Context, r engine.RateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var salesmanID, kind any
	if r.SalesmanID != nil {
		salesmanID = string(*r.SalesmanID)
	}
	if r.Kind != nil {
		kind = string(*r.Kind)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rate_records (salesman_id, kind, rate, effective_from)
		VALUES (?, ?, ?, ?)`,
		salesmanID, kind, r.Rate.String(), encodeTime(r.EffectiveFrom),
	)
	return err
}

func (s *Store) ListRates(ctx context.Context) ([]engine.RateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT salesman_id, kind, rate, effective_from
		FROM rate_records ORDER BY effective_from`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.RateRecord
	for rows.Next() {
		var (
			r             engine.RateRecord
			salesmanID    sql.NullString
			kind          sql.NullString
			rate          string
			effectiveFrom string
		)
		if err := rows.Scan(&salesmanID, &kind, &rate, &effectiveFrom); err != nil {
			return nil, err
		}
		if salesmanID.Valid {
			id := engine.SalesmanID(salesmanID.String)
			r.SalesmanID = &id
		}
		if kind.Valid {
			k := engine.BookingKind(kind.String)
			r.Kind = &k
		}
		r.Rate = engine.MustParseMoney(rate)
		r.EffectiveFrom = decodeTime(effectiveFrom)
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
