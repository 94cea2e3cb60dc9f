package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
)

// MySQLStore is a ReputationStore backed by MySQL, for hosts that
// already run one. Mutation statements mirror the SQLite adapter.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore connects and ensures the reputation table exists.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sender_reputation (
			sender VARCHAR(128) PRIMARY KEY,
			pinned_to_inbox BOOLEAN NOT NULL DEFAULT FALSE,
			auto_spam BOOLEAN NOT NULL DEFAULT FALSE,
			importance_score FLOAT NOT NULL DEFAULT 0,
			spam_score FLOAT NOT NULL DEFAULT 0,
			message_count BIGINT NOT NULL DEFAULT 0,
			last_seen_ms BIGINT NOT NULL DEFAULT 0,
			last_updated_ms BIGINT NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Get returns the learned state for sender, or ErrNotFound.
func (s *MySQLStore) Get(ctx context.Context, sender string) (*core.SenderReputation, error) {
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
func (s *MySQLStore) LearnFromImportanceMarking(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		pinned_to_inbox = TRUE,
		importance_score = LEAST(0.95, importance_score + 0.3)
	`, 0.3, true, false)
}

// LearnFromSpamMarking flags the sender auto-spam and raises spam score.
func (s *MySQLStore) LearnFromSpamMarking(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		auto_spam = TRUE,
		spam_score = LEAST(0.95, spam_score + 0.5)
	`, 0.5, false, true)
}

// LearnFromInboxMove nudges importance up and spam down and clears the
// auto-spam flag.
func (s *MySQLStore) LearnFromInboxMove(ctx context.Context, sender string) error {
	return s.upsert(ctx, sender, `
		auto_spam = FALSE,
		importance_score = LEAST(0.95, importance_score + 0.1),
		spam_score = GREATEST(0, spam_score - 0.1)
	`, 0.1, false, false)
}

// Close closes the database connection.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

func (s *MySQLStore) upsert(ctx context.Context, sender, updates string, initial float64, pinned, autoSpam bool) error {
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
		ON DUPLICATE KEY UPDATE
			%s,
			message_count = message_count + 1,
			last_seen_ms = VALUES(last_seen_ms),
			last_updated_ms = VALUES(last_updated_ms)
	`, updates), sender, pinned, autoSpam, importance, spam, now, now)
	if err != nil {
		return fmt.Errorf("failed to update reputation: %w", err)
	}
	return nil
}
