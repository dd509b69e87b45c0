package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"zchat/internal/domain"
)

type ChatRepo struct {
	db *sql.DB
}

func NewChatRepo(db *sql.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

var _ domain.ChatRepository = (*ChatRepo)(nil)

func (r *ChatRepo) Create(ctx context.Context, c *domain.Chat, memberIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO chats (name, type, creator_id, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`, c.Name, string(c.Type), c.CreatorID).Scan(&id, &c.CreatedAt, &c.UpdatedAt)
	if pgCode(err) == codeUniqueViolation {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	if err := insertMembers(ctx, tx, id, memberIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	c.ID = id
	return nil
}

func (r *ChatRepo) GetByID(ctx context.Context, id int64) (*domain.Chat, error) {
	c := &domain.Chat{}
	var chatType string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, creator_id, created_at, updated_at FROM chats WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &chatType, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	c.Type = domain.ChatType(chatType)
	return c, nil
}

func (r *ChatRepo) ListForUser(ctx context.Context, userID int64, offset, limit int) ([]*domain.Chat, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chat_users WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count chats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.type, c.creator_id, c.created_at, c.updated_at
		FROM chats c
		JOIN chat_users cu ON cu.chat_id = c.id
		WHERE cu.user_id = $1
		ORDER BY c.created_at ASC, c.id ASC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []*domain.Chat
	for rows.Next() {
		c := &domain.Chat{}
		var chatType string
		if err := rows.Scan(&c.ID, &c.Name, &chatType, &c.CreatorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan chat: %w", err)
		}
		c.Type = domain.ChatType(chatType)
		chats = append(chats, c)
	}
	return chats, total, rows.Err()
}

func (r *ChatRepo) AddMembers(ctx context.Context, chatID int64, userIDs []int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := insertMembers(ctx, tx, chatID, userIDs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE chats SET updated_at = NOW() WHERE id = $1`, chatID); err != nil {
		return fmt.Errorf("touch chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListMemberIDs returns just the user IDs in a chat
// (used for fan-out without loading full User structs).
func (r *ChatRepo) ListMemberIDs(ctx context.Context, chatID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM chat_users WHERE chat_id = $1 ORDER BY user_id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("list member ids: %w", err)
	}
	return scanIDs(rows)
}

// ── helpers ──────────────────────────────────────────────────────────────────

func insertMembers(ctx context.Context, tx *sql.Tx, chatID int64, userIDs []int64) error {
	for _, uid := range userIDs {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chat_users (chat_id, user_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT DO NOTHING
		`, chatID, uid)
		if pgCode(err) == codeForeignKeyViolation {
			return fmt.Errorf("user %d: %w", uid, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("insert chat user: %w", err)
		}
	}
	return nil
}

func scanIDs(rows *sql.Rows) ([]int64, error) {
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
