package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"zchat/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

const messageColumns = `
	m.id, m.chat_id, m.sender_id, m.text, m.send_at, m.read_at,
	c.id, c.name, c.type, c.creator_id, c.created_at, c.updated_at`

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, text, send_at, read_at)
		VALUES ($1, $2, $3, $4, NOW(), NULL)
		RETURNING send_at
	`, m.ID, m.ChatID, m.SenderID, m.Text).Scan(&m.SendAt)
	if pgCode(err) == codeUniqueViolation {
		return domain.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO message_users_read (message_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, m.ID, m.SenderID); err != nil {
		return fmt.Errorf("insert sender receipt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE m.id = $1
	`, id)
	m, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) ListForChat(ctx context.Context, q domain.MessageQuery) ([]*domain.Message, int, error) {
	where := []string{"m.chat_id = $1"}
	args := []any{q.ChatID}
	if q.SenderID != nil {
		args = append(args, *q.SenderID)
		where = append(where, fmt.Sprintf("m.sender_id = $%d", len(args)))
	}
	if q.SearchTerm != "" {
		args = append(args, "%"+q.SearchTerm+"%")
		where = append(where, fmt.Sprintf("m.text ILIKE $%d", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages m WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	n := len(args)
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE %s
		ORDER BY m.send_at ASC, m.id ASC
		LIMIT $%d OFFSET $%d
	`, messageColumns, cond, n+1, n+2), append(args, q.Size, q.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var res []*domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan message: %w", err)
		}
		res = append(res, m)
	}
	return res, total, rows.Err()
}

func (r *MessageRepo) MarkRead(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET read_at = $1 WHERE id = $2 AND read_at IS NULL
	`, at, id)
	if err != nil {
		return false, fmt.Errorf("mark message read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ReceiptRepo implements domain.ReadReceiptRepository.
type ReceiptRepo struct {
	db *sql.DB
}

func NewReceiptRepo(db *sql.DB) *ReceiptRepo {
	return &ReceiptRepo{db: db}
}

var _ domain.ReadReceiptRepository = (*ReceiptRepo)(nil)

func (r *ReceiptRepo) Record(ctx context.Context, messageID uuid.UUID, userID int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO message_users_read (message_id, user_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, messageID, userID)
	if err != nil {
		return false, fmt.Errorf("insert receipt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *ReceiptRepo) ListReaderIDs(ctx context.Context, messageID uuid.UUID) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id FROM message_users_read WHERE message_id = $1
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	return scanIDs(rows)
}

// ── helpers ──────────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*domain.Message, error) {
	m := &domain.Message{Chat: &domain.Chat{}}
	var chatType string
	if err := row.Scan(
		&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.SendAt, &m.ReadAt,
		&m.Chat.ID, &m.Chat.Name, &chatType, &m.Chat.CreatorID, &m.Chat.CreatedAt, &m.Chat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.Chat.Type = domain.ChatType(chatType)
	return m, nil
}
