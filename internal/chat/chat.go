// Package chat models the append-only conversation transcript.
package chat

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Sender identifies which side of the conversation a message came from.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

// Message is one transcript entry. Insertion order is display order.
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Timestamp time.Time
}

// NewMessage builds a Message with a fresh id and the current time.
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().UTC(),
	}
}

// Repository persists the transcript to SQLite.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a Repository over an existing database connection.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Append stores one message. The transcript is append-only.
func (r *Repository) Append(ctx context.Context, m Message) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, sender, text, timestamp) VALUES (?, ?, ?, ?)`,
		m.ID, string(m.Sender), m.Text, m.Timestamp,
	)
	return err
}

// Recent returns the last limit messages in insertion order.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, sender, text, timestamp FROM (
			SELECT id, sender, text, timestamp, rowid FROM chat_messages ORDER BY rowid DESC LIMIT ?
		) ORDER BY rowid ASC`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var sender string
		if err := rows.Scan(&m.ID, &sender, &m.Text, &m.Timestamp); err != nil {
			return nil, err
		}
		m.Sender = Sender(sender)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
