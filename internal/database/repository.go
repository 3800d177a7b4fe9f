package database

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/srivastava-utkarsh/ticket-booking/internal/models"
)

var (
	ErrInvalidEntry = errors.New("invalid ledger entry")
)

// Ledger is the audit trail of booking attempts. Seat and wallet state is
// never rebuilt from it.
type Ledger interface {
	Record(ctx context.Context, entry models.LedgerEntry) error
	ListByUser(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS booking_ledger (
		id            UUID PRIMARY KEY,
		user_id       INTEGER NOT NULL,
		action        TEXT NOT NULL,
		seat_id       TEXT NOT NULL,
		previous_seat TEXT NOT NULL DEFAULT '',
		success       BOOLEAN NOT NULL,
		kind          TEXT NOT NULL DEFAULT '',
		reason        TEXT NOT NULL DEFAULT '',
		amount        BIGINT NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS booking_ledger_user_idx ON booking_ledger (user_id, created_at DESC)`,
}

// Repository stores the ledger in Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Connect opens a pool and verifies the database is reachable
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the ledger table if it does not exist
func (r *Repository) Migrate(ctx context.Context) error {
	for _, stmt := range migrations {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}

// Record appends an entry
func (r *Repository) Record(ctx context.Context, entry models.LedgerEntry) error {
	if err := validate(entry); err != nil {
		return err
	}
	row, err := rowFromEntry(entry)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO booking_ledger (id, user_id, action, seat_id, previous_seat, success, kind, reason, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, row.ID, row.UserID, row.Action, row.SeatID, row.PreviousSeat, row.Success,
		row.Kind, row.Reason, row.Amount, row.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

// ListByUser returns a user's entries, newest first. A limit <= 0 returns all.
func (r *Repository) ListByUser(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error) {
	query := `
		SELECT id, user_id, action, seat_id, previous_seat, success, kind, reason, amount, created_at
		FROM booking_ledger
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger: %w", err)
	}
	defer rows.Close()

	entries := []models.LedgerEntry{}
	for rows.Next() {
		var row LedgerRow
		err := rows.Scan(
			&row.ID, &row.UserID, &row.Action, &row.SeatID, &row.PreviousSeat,
			&row.Success, &row.Kind, &row.Reason, &row.Amount, &row.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, row.Entry())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return entries, nil
}

func validate(entry models.LedgerEntry) error {
	if entry.UserID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidEntry, entry.UserID)
	}
	if entry.Action == "" {
		return fmt.Errorf("%w: missing action", ErrInvalidEntry)
	}
	return nil
}

// MemoryLedger keeps the ledger in process memory
type MemoryLedger struct {
	mu      sync.RWMutex
	entries map[int][]models.LedgerEntry
}

// NewMemoryLedger creates an empty in-memory ledger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{entries: make(map[int][]models.LedgerEntry)}
}

func (m *MemoryLedger) Record(ctx context.Context, entry models.LedgerEntry) error {
	if err := validate(entry); err != nil {
		return err
	}
	row, err := rowFromEntry(entry)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[row.UserID] = append(m.entries[row.UserID], row.Entry())
	return nil
}

func (m *MemoryLedger) ListByUser(ctx context.Context, userID, limit int) ([]models.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	recorded := m.entries[userID]
	entries := make([]models.LedgerEntry, 0, len(recorded))
	for i := len(recorded) - 1; i >= 0; i-- {
		if limit > 0 && len(entries) == limit {
			break
		}
		entries = append(entries, recorded[i])
	}
	return entries, nil
}
