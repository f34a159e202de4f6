// Package lore persists lore entries, votes and tips in SQLite.
package lore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	_ "modernc.org/sqlite"
)

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond

	// timeLayout is fixed width so text columns sort chronologically
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

	defaultListLimit = 50
	maxListLimit     = 500
	maxTitleLength   = 120
	maxBodyLength    = 20000
)

// DefaultCanonThreshold is the score that promotes an entry to canon when none is configured
const DefaultCanonThreshold = 10

const entryColumns = `id, title, body, author, author_wallet, score, canon, created_at, updated_at`

// Options tune store behavior
type Options struct {
	// CanonThreshold is the score at which an entry becomes canon automatically, zero disables
	CanonThreshold int
}

// Store manages lore persistence backed by SQLite
type Store struct {
	db        *sql.DB
	path      string
	lock      *flock.Flock
	threshold int
	now       func() time.Time
}

// Open creates or opens the database at path and takes an exclusive lock next to it
func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock, threshold: opts.CanonThreshold, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	slog.Debug("lore store opened", "path", path, "canon_threshold", opts.CanonThreshold)
	return store, nil
}

// Close closes the database and releases the lock
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	if unlockErr := s.lock.Unlock(); unlockErr != nil && err == nil {
		err = fmt.Errorf("release lock: %w", unlockErr)
	}
	return err
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Create stores a new entry with a title-cased title
func (s *Store) Create(ctx context.Context, in NewEntry) (Entry, error) {
	title := strings.Join(strings.Fields(in.Title), " ")
	body := strings.TrimSpace(in.Body)
	switch {
	case title == "":
		return Entry{}, fmt.Errorf("%w: title is required", ErrInvalid)
	case utf8.RuneCountInString(title) > maxTitleLength:
		return Entry{}, fmt.Errorf("%w: title longer than %d characters", ErrInvalid, maxTitleLength)
	case body == "":
		return Entry{}, fmt.Errorf("%w: body is required", ErrInvalid)
	case utf8.RuneCountInString(body) > maxBodyLength:
		return Entry{}, fmt.Errorf("%w: body longer than %d characters", ErrInvalid, maxBodyLength)
	}

	now := s.now().UTC().Round(0)
	entry := Entry{
		ID:           uuid.NewString(),
		Title:        cases.Title(language.Und).String(title),
		Body:         body,
		Author:       strings.TrimSpace(in.Author),
		AuthorWallet: strings.ToLower(strings.TrimSpace(in.AuthorWallet)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := s.execWithRetry(ctx,
		`INSERT INTO lore_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		entry.ID, entry.Title, entry.Body, entry.Author, entry.AuthorWallet,
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert entry: %w", err)
	}
	return entry, nil
}

// Get fetches an entry by id
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	return getEntry(ctx, s.db, id)
}

// List returns entries ordered by score, newest first on ties
func (s *Store) List(ctx context.Context, filter ListFilter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + entryColumns + ` FROM lore_entries`
	if filter.CanonOnly {
		query += ` WHERE canon = 1`
	}
	query += ` ORDER BY score DESC, created_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Vote records one vote per voter, replacing an earlier one, and promotes the
// entry to canon once its score reaches the threshold
func (s *Store) Vote(ctx context.Context, entryID, voter string, value int) (Entry, error) {
	voter = strings.ToLower(strings.TrimSpace(voter))
	if voter == "" {
		return Entry{}, fmt.Errorf("%w: voter is required", ErrInvalid)
	}
	if value != 1 && value != -1 {
		return Entry{}, fmt.Errorf("%w: vote must be 1 or -1", ErrInvalid)
	}

	var entry Entry
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getEntry(ctx, tx, entryID); err != nil {
			return err
		}
		now := formatTime(s.now().UTC())
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO votes (entry_id, voter, value, created_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT (entry_id, voter) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
			entryID, voter, value, now,
		); err != nil {
			return fmt.Errorf("upsert vote: %w", err)
		}

		var score int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(value), 0) FROM votes WHERE entry_id = ?`, entryID,
		).Scan(&score); err != nil {
			return fmt.Errorf("sum votes: %w", err)
		}

		promote := s.threshold > 0 && score >= s.threshold
		if _, err := tx.ExecContext(ctx,
			`UPDATE lore_entries SET score = ?, canon = CASE WHEN ? THEN 1 ELSE canon END, updated_at = ? WHERE id = ?`,
			score, boolToInt(promote), now, entryID,
		); err != nil {
			return fmt.Errorf("update score: %w", err)
		}

		var err error
		entry, err = getEntry(ctx, tx, entryID)
		return err
	})
	if err != nil {
		return Entry{}, err
	}
	slog.Debug("vote recorded", "entry", entryID, "score", entry.Score, "canon", entry.Canon)
	return entry, nil
}

// Canonize marks an entry as canon regardless of its score
func (s *Store) Canonize(ctx context.Context, id string) (Entry, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE lore_entries SET canon = 1, updated_at = ? WHERE id = ?`,
		formatTime(s.now().UTC()), id,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("canonize entry: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Entry{}, ErrNotFound
	}
	return s.Get(ctx, id)
}

// RecordTip stores a verified tip, each transaction hash only once
func (s *Store) RecordTip(ctx context.Context, tip Tip) (Tip, error) {
	tip.TxHash = strings.ToLower(strings.TrimSpace(tip.TxHash))
	tip.Recipient = strings.ToLower(strings.TrimSpace(tip.Recipient))
	if tip.TxHash == "" || tip.Amount == "" {
		return Tip{}, fmt.Errorf("%w: transaction hash and amount are required", ErrInvalid)
	}
	tip.CreatedAt = s.now().UTC()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getEntry(ctx, tx, tip.EntryID); err != nil {
			return err
		}
		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM tips WHERE tx_hash = ?`, tip.TxHash).Scan(&exists); err != nil {
			return fmt.Errorf("check tip: %w", err)
		}
		if exists > 0 {
			return ErrDuplicateTip
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tips (tx_hash, entry_id, recipient, amount, created_at) VALUES (?, ?, ?, ?, ?)`,
			tip.TxHash, tip.EntryID, tip.Recipient, tip.Amount, formatTime(tip.CreatedAt),
		); err != nil {
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return ErrDuplicateTip
			}
			return fmt.Errorf("insert tip: %w", err)
		}
		return nil
	})
	if err != nil {
		return Tip{}, err
	}
	return tip, nil
}

// Tips lists the tips recorded for an entry, oldest first
func (s *Store) Tips(ctx context.Context, entryID string) ([]Tip, error) {
	if _, err := s.Get(ctx, entryID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT tx_hash, entry_id, recipient, amount, created_at FROM tips WHERE entry_id = ? ORDER BY created_at, rowid`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tips: %w", err)
	}
	defer rows.Close()

	tips := make([]Tip, 0)
	for rows.Next() {
		var (
			tip     Tip
			created string
		)
		if err := rows.Scan(&tip.TxHash, &tip.EntryID, &tip.Recipient, &tip.Amount, &created); err != nil {
			return nil, fmt.Errorf("scan tip: %w", err)
		}
		if tip.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		tips = append(tips, tip)
	}
	return tips, rows.Err()
}
