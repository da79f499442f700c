package repository

import (
	"context"
	"errors"
	"fmt"

	"messly-backend/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReactionRepository struct {
	pool *pgxpool.Pool
}

func NewReactionRepository(pool *pgxpool.Pool) *ReactionRepository {
	return &ReactionRepository{pool: pool}
}

// GetKindByName looks up a reaction kind in the seeded reference table.
func (r *ReactionRepository) GetKindByName(ctx context.Context, name string) (*model.ReactionKind, error) {
	k := &model.ReactionKind{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, emoji FROM reactions WHERE name = $1
	`, name).Scan(&k.ID, &k.Name, &k.Emoji)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return k, nil
}

// Toggle removes the (message, user, kind) attachment when it already exists,
// otherwise creates it, and returns the message's full reaction list after the
// change. The add/remove decision and the write happen in one transaction.
func (r *ReactionRepository) Toggle(ctx context.Context, messageID, userID, kindID int64) ([]model.ReactionAttachment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin toggle tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		DELETE FROM message_reactions
		WHERE message_id = $1 AND user_id = $2 AND reaction_id = $3
	`, messageID, userID, kindID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx, `
			INSERT INTO message_reactions (message_id, user_id, reaction_id)
			VALUES ($1, $2, $3)
		`, messageID, userID, kindID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit toggle: %w", err)
	}

	return r.List(ctx, messageID)
}

// List returns all reactions on a message with author display info.
func (r *ReactionRepository) List(ctx context.Context, messageID int64) ([]model.ReactionAttachment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mr.user_id, u.username, re.name, COALESCE(u.profile_picture, '')
		FROM message_reactions mr
		JOIN users u ON u.id = mr.user_id
		JOIN reactions re ON re.id = mr.reaction_id
		WHERE mr.message_id = $1
		ORDER BY mr.created_at
	`, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []model.ReactionAttachment
	for rows.Next() {
		var a model.ReactionAttachment
		if err := rows.Scan(&a.UserID, &a.Username, &a.Reaction, &a.Avatar); err != nil {
			return nil, err
		}
		if a.Avatar == "" {
			a.Avatar = model.DefaultAvatarURL
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}
