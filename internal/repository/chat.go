package repository

import (
	"context"
	"errors"

	"messly-backend/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// GetByID loads a chat row. Rows are owned by the website service; this side
// only reads them for existence and creator checks.
func (r *ChatRepository) GetByID(ctx context.Context, id int64) (*model.Chat, error) {
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, type, COALESCE(creator_id, 0), COALESCE(photo, ''), created_at
		FROM chats WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Type, &c.CreatorID, &c.Photo, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// IsMember reports whether the user belongs to the chat.
func (r *ChatRepository) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	var member bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_members WHERE chat_id = $1 AND user_id = $2
		)
	`, chatID, userID).Scan(&member)
	return member, err
}

// IsAdmin reports whether the user holds the admin role in the chat's member
// list. The creator is authorized separately through the chats row itself.
func (r *ChatRepository) IsAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	var admin bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM chat_members
			WHERE chat_id = $1 AND user_id = $2 AND role = 'admin'
		)
	`, chatID, userID).Scan(&admin)
	return admin, err
}
