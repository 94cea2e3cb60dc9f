package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// SQLiteStore is a durable ReputationStore. Each learning mutation is a
// single upsert statement, so it is atomic per row without a
// read-modify-write cycle in Go.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the reputation table.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_reputation (
			sender TEXT PRIMARY KEY,
			pinned_to_inbox BOOLEAN NOT NULL DEFAULT 0,
			auto_spam BOOLEAN NOT NULL DEFAULT 0,
			importance_score REAL NOT NULL DEFAULT 0,
			spam_score REAL NOT NULL DEFAULT 0,
			message_count INTEGER NOT NULL DEFAULT 0,
			last_seen_ms INTEGER NOT NULL DEFAULT 0,
			last_updated_ms INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Get returns the learned state for sender, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, sender string) (*core.SenderReputation, error) {
	rep := &core.SenderReputation{Sender: sender}
	err := s.db.QueryRowContext(ctx, `
		SELECT pinned_to_inbox, auto_spam, importance_score, spam_score,
		       message_count, last_seen_ms, last_updated_ms
		FROM sender_reputation
		WHERE sender = ?
	`, sender).Scan(
		&rep.PinnedToInbox, &rep.AutoSpam,
		&rep.ImportanceScore, &rep.SpamScore,
		&rep.MessageCount, &rep.LastSeenMillis, &rep.LastUpdatedMillis,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query reputation: %w", err)
	}
	return rep, nil
}

// LearnFromImportanceMarking pins the sender and raises importance.
func (s *SQLiteStore) LearnFromImportanceMarking(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		pinned_to_inbox = 1,
		importance_score = MIN(0.95, importance_score + 0.3)
	`, 0.3, true, false)
}

// LearnFromSpamMarking flags the sender auto-spam and raises spam score.
func (s *SQLiteStore) LearnFromSpamMarking(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		auto_spam = 1,
		spam_score = MIN(0.95, spam_score + 0.5)
	`, 0.5, false, true)
}

// LearnFromInboxMove nudges importance up and spam down and clears the
// auto-spam flag.
func (s *SQLiteStore) LearnFromInboxMove(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		auto_spam = 0,
		importance_score = MIN(0.95, importance_score + 0.1),
		spam_score = MAX(0, spam_score - 0.1)
	`, 0.1, false, false)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) upsert(ctx context.Context, sender, updates string, initial float64, pinned, autoSpam bool) error {
	now := time.Now().UnixMilli()
	importance, spam := 0.0, 0.0
	if autoSpam {
		spam = initial
	} else {
		importance = initial
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO sender_reputation (
			sender, pinned_to_inbox, auto_spam, importance_score,
			spam_score, message_count, last_seen_ms, last_updated_ms
		) VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(sender) DO UPDATE SET
			%s,
			message_count = message_count + 1,
			last_seen_ms = excluded.last_seen_ms,
			last_updated_ms = excluded.last_updated_ms
	`, updates), sender, pinned, autoSpam, importance, spam, now, now)
	if err != nil {
		return fmt.Errorf("failed to update reputation: %w", err)
	}
	return nil
}
