package repository

import (
	"context"
	"errors"
	"fmt"

	"messly-backend/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// Create inserts a message with the given status and returns the stored row.
func (r *MessageRepository) Create(ctx context.Context, chatID, senderID int64, content, fileURL, status string) (*model.Message, error) {
	m := &model.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Content:  content,
		FileURL:  fileURL,
		Status:   status,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (chat_id, sender_id, content, file_url, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, sent_at
	`, chatID, senderID, content, fileURL, status).Scan(&m.ID, &m.SentAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	m := &model.Message{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, chat_id, sender_id, content, file_url, status, sent_at
		FROM messages WHERE id = $1
	`, id).Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Content, &m.FileURL, &m.Status, &m.SentAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// UpdateStatus sets the status of a single message.
func (r *MessageRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET status = $1 WHERE id = $2
	`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkChatRead flips every unread message in the chat not sent by the given
// user to read, and returns the ids of the affected rows.
func (r *MessageRepository) MarkChatRead(ctx context.Context, chatID, excludingSender int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE messages SET status = $1
		WHERE chat_id = $2 AND status = $3 AND sender_id <> $4
		RETURNING id
	`, model.StatusRead, chatID, model.StatusUnread, excludingSender)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Delete removes a single message.
func (r *MessageRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByChat removes every message in the chat and returns the file URLs of
// the deleted rows, so the caller can clean up the blob store afterwards.
func (r *MessageRepository) DeleteByChat(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM messages WHERE chat_id = $1 RETURNING file_url
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("delete chat %d messages: %w", chatID, err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lo.Filter(urls, func(u string, _ int) bool { return u != "" }), nil
}
