package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/arjun/sms-guard/internal/core"
	"github.com/arjun/sms-guard/internal/utils"
)

// SQLiteStore is a durable MessageStore. The sender column holds the
// normalized sender form.
type SQLiteStore struct {
	db     *sql.DB
	text   *utils.TextProcessor
	logger *zap.Logger
}

// NewSQLiteStore opens (and if needed creates) the message and audit
// tables.
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	ddl := []string{`
		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			sender TEXT NOT NULL,
			content TEXT NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			category TEXT NOT NULL
		)`, `
		CREATE INDEX IF NOT EXISTS idx_messages_sender
			ON messages(sender, timestamp_ms)`, `
		CREATE TABLE IF NOT EXISTS classification_audit (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL,
			category TEXT NOT NULL,
			confidence REAL NOT NULL,
			reasons TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`, `
		CREATE INDEX IF NOT EXISTS idx_audit_message
			ON classification_audit(message_id, id)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &SQLiteStore{db: db, text: utils.NewTextProcessor(logger), logger: logger}, nil
}

// InsertMessage stores the message and returns its generated id.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *core.Message, category core.Category) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, content, timestamp_ms, category)
		VALUES (?, ?, ?, ?, ?)
	`, id, s.text.NormalizeSender(msg.Sender), msg.Content, msg.TimestampMillis, string(category))
	if err != nil {
		return "", fmt.Errorf("failed to insert message: %w", err)
	}
	return id, nil
}

// GetMessageByID returns the stored message, or ErrNotFound.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id string) (*core.Message, error) {
	msg := &core.Message{}
	err := s.db.QueryRowContext(ctx, `
		SELECT sender, content, timestamp_ms FROM messages WHERE id = ?
	`, id).Scan(&msg.Sender, &msg.Content, &msg.TimestampMillis)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query message: %w", err)
	}
	return msg, nil
}

// RecentFromSender returns up to limit messages from sender, newest first.
func (s *SQLiteStore) RecentFromSender(ctx context.Context, sender string, limit int) ([]*core.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender, content, timestamp_ms FROM messages
		WHERE sender = ?
		ORDER BY timestamp_ms DESC
		LIMIT ?
	`, s.text.NormalizeSender(sender), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var msgs []*core.Message
	for rows.Next() {
		msg := &core.Message{}
		if err := rows.Scan(&msg.Sender, &msg.Content, &msg.TimestampMillis); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, rows.Err()
}

// InsertAudit appends an audit record for the message.
func (s *SQLiteStore) InsertAudit(ctx context.Context, audit *core.ClassificationAudit) error {
	reasons, err := json.Marshal(audit.Reasons)
	if err != nil {
		return fmt.Errorf("failed to encode reasons: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO classification_audit (message_id, category, confidence, reasons, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, audit.MessageID, string(audit.Category), audit.Confidence, string(reasons), audit.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert audit record: %w", err)
	}
	return nil
}

// LatestAuditForMessage returns the newest audit record for the
// message, or ErrNotFound.
func (s *SQLiteStore) LatestAuditForMessage(ctx context.Context, id string) (*core.ClassificationAudit, error) {
	audit := &core.ClassificationAudit{MessageID: id}
	var category, reasons, createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT category, confidence, reasons, created_at
		FROM classification_audit
		WHERE message_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, id).Scan(&category, &audit.Confidence, &reasons, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query audit record: %w", err)
	}

	audit.Category = core.Category(category)
	if err := json.Unmarshal([]byte(reasons), &audit.Reasons); err != nil {
		return nil, fmt.Errorf("failed to decode reasons: %w", err)
	}
	if ts, err := time.Parse(time.RFC3339, createdAt); err == nil {
		audit.CreatedAt = ts
	}
	return audit, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
