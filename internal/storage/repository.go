package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"khata/internal/core"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record or settings row does not exist.
var ErrNotFound = errors.New("not found")

// SQLiteRepository persists expense records and per-owner settings.
// Every read is owner-filtered; there is no cross-owner query.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertRecord stores a fully-populated record and returns its ID. A
// missing ID gets a fresh UUID. Records are immutable after insertion.
func (r *SQLiteRepository) InsertRecord(ctx context.Context, rec core.ExpenseRecord) (string, error) {
	if err := rec.Validate(); err != nil {
		return "", fmt.Errorf("validate record: %w", err)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO records (id, owner, raw_text, category, amount, occurred_at, merchant, note, filename)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Owner, rec.RawText, string(rec.Category), rec.Amount,
		rec.OccurredAt.Format(core.TimestampLayout), rec.Merchant, rec.Note, rec.Filename)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}

	slog.InfoContext(ctx, "Record saved",
		"id", rec.ID,
		"owner", rec.Owner,
		"category", rec.Category,
		"amount", rec.Amount)

	return rec.ID, nil
}

const recordColumns = `id, owner, raw_text, category, amount, occurred_at, merchant, note, filename`

func scanRecord(scan func(dest ...any) error) (core.ExpenseRecord, error) {
	var rec core.ExpenseRecord
	var category, occurredAt string
	err := scan(&rec.ID, &rec.Owner, &rec.RawText, &category, &rec.Amount,
		&occurredAt, &rec.Merchant, &rec.Note, &rec.Filename)
	if err != nil {
		return core.ExpenseRecord{}, err
	}
	rec.Category = core.ParseCategory(category)
	rec.OccurredAt = core.ParseTimestamp(occurredAt, time.Now())
	return rec, nil
}

// ListRecords returns every record for one owner, unordered. Callers
// aggregate or sort as needed.
func (r *SQLiteRepository) ListRecords(ctx context.Context, owner string) ([]core.ExpenseRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE owner = ?`, owner)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []core.ExpenseRecord
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// GetRecord fetches a single record by ID.
func (r *SQLiteRepository) GetRecord(ctx context.Context, id string) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// DeleteLast removes the most recently inserted record for an owner and
// returns it. ErrNotFound when the owner has no records.
func (r *SQLiteRepository) DeleteLast(ctx context.Context, owner string) (core.ExpenseRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE owner = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`,
		owner)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseRecord{}, ErrNotFound
	}
	if err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("find last record: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, rec.ID); err != nil {
		return core.ExpenseRecord{}, fmt.Errorf("delete record: %w", err)
	}

	slog.InfoContext(ctx, "Last record deleted", "id", rec.ID, "owner", owner)
	return rec, nil
}

// ClearOwner wipes all records and settings for one owner, returning the
// number of deleted records.
func (r *SQLiteRepository) ClearOwner(ctx context.Context, owner string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE owner = ?`, owner)
	if err != nil {
		return 0, fmt.Errorf("clear records: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM settings WHERE owner = ?`, owner); err != nil {
		return deleted, fmt.Errorf("clear settings: %w", err)
	}

	slog.InfoContext(ctx, "Owner data cleared", "owner", owner, "deleted_records", deleted)
	return deleted, nil
}

// GetSettings loads an owner's settings. A missing row yields empty
// settings, not an error. Settings exist lazily.
func (r *SQLiteRepository) GetSettings(ctx context.Context, owner string) (core.Settings, error) {
	s := core.Settings{Owner: owner}
	var capsJSON string

	row := r.db.QueryRowContext(ctx,
		`SELECT monthly_budget, savings_goal, category_caps FROM settings WHERE owner = ?`, owner)
	err := row.Scan(&s.MonthlyBudget, &s.SavingsGoal, &capsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("get settings: %w", err)
	}

	if capsJSON != "" {
		if err := json.Unmarshal([]byte(capsJSON), &s.CategoryCaps); err != nil {
			// Corrupt caps degrade to none rather than failing the read.
			slog.WarnContext(ctx, "Unreadable category caps, ignoring", "owner", owner, "error", err)
			s.CategoryCaps = nil
		}
	}
	return s, nil
}

// SaveSettings upserts an owner's settings.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validate settings: %w", err)
	}

	caps := s.CategoryCaps
	if caps == nil {
		caps = map[core.Category]float64{}
	}
	capsJSON, err := json.Marshal(caps)
	if err != nil {
		return fmt.Errorf("marshal caps: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO settings (owner, monthly_budget, savings_goal, category_caps, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner) DO UPDATE SET
			monthly_budget = excluded.monthly_budget,
			savings_goal = excluded.savings_goal,
			category_caps = excluded.category_caps,
			updated_at = CURRENT_TIMESTAMP`,
		s.Owner, s.MonthlyBudget, s.SavingsGoal, string(capsJSON))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	slog.InfoContext(ctx, "Settings saved", "owner", s.Owner, "monthly_budget", s.MonthlyBudget)
	return nil
}

// PendingExportIDs returns IDs of records not yet appended to the
// ledger spreadsheet, oldest first.
func (r *SQLiteRepository) PendingExportIDs(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id FROM records WHERE synced = 0 ORDER BY created_at ASC, rowid ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("pending export ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkExported flags a record as successfully appended to the ledger.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET synced = 1, sync_error = 0 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark exported: %w", err)
	}
	return nil
}

// MarkExportError flags a record whose export attempt failed so the
// periodic sweep retries it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark export error: %w", err)
	}
	slog.WarnContext(ctx, "Record marked with export error", "id", id)
	return nil
}
