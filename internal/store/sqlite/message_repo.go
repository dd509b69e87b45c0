package sqlite

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
	if m.SendAt.IsZero() {
		m.SendAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, chat_id, sender_id, text, send_at, read_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, m.ID.String(), m.ChatID, m.SenderID, m.Text, m.SendAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("insert message: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_users_read (message_id, user_id) VALUES (?, ?)
	`, m.ID.String(), m.SenderID); err != nil {
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
		WHERE m.id = ?
	`, id.String())
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
	where := []string{"m.chat_id = ?"}
	args := []any{q.ChatID}
	if q.SenderID != nil {
		where = append(where, "m.sender_id = ?")
		args = append(args, *q.SenderID)
	}
	if q.SearchTerm != "" {
		where = append(where, "m.text LIKE ?")
		args = append(args, "%"+q.SearchTerm+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages m WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count messages: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+messageColumns+`
		FROM messages m
		JOIN chats c ON c.id = m.chat_id
		WHERE `+cond+`
		ORDER BY m.send_at ASC, m.id ASC
		LIMIT ? OFFSET ?
	`, append(args, q.Size, q.Offset())...)
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
		UPDATE messages SET read_at = ? WHERE id = ? AND read_at IS NULL
	`, at.UTC(), id.String())
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
		INSERT OR IGNORE INTO message_users_read (message_id, user_id) VALUES (?, ?)
	`, messageID.String(), userID)
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
		SELECT user_id FROM message_users_read WHERE message_id = ?
	`, messageID.String())
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
