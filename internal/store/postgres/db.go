package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the chat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id               BIGSERIAL    PRIMARY KEY,
			username         VARCHAR(50)  UNIQUE NOT NULL,
			hashed_password  VARCHAR(255) NOT NULL,
			is_active        BOOLEAN      NOT NULL DEFAULT TRUE,
			created_at       TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS chats (
			id         BIGSERIAL    PRIMARY KEY,
			name       VARCHAR(256) UNIQUE NOT NULL,
			type       VARCHAR(16)  NOT NULL CHECK (type IN ('PRIVATE', 'GROUP')),
			creator_id BIGINT       REFERENCES users(id),
			created_at TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS chat_users (
			chat_id    BIGINT      NOT NULL REFERENCES chats(id),
			user_id    BIGINT      NOT NULL REFERENCES users(id),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS messages (
			id        UUID          PRIMARY KEY,
			chat_id   BIGINT        NOT NULL REFERENCES chats(id),
			sender_id BIGINT        NOT NULL REFERENCES users(id),
			text      VARCHAR(4096) NOT NULL,
			send_at   TIMESTAMPTZ   NOT NULL DEFAULT NOW(),
			read_at   TIMESTAMPTZ
		)`,

		`CREATE TABLE IF NOT EXISTS message_users_read (
			message_id UUID   NOT NULL REFERENCES messages(id),
			user_id    BIGINT NOT NULL REFERENCES users(id),
			CONSTRAINT message_user_read_unique PRIMARY KEY (message_id, user_id)
		)`,

		`ALTER TABLE chats ADD COLUMN IF NOT EXISTS creator_id BIGINT REFERENCES users(id)`,

		`CREATE INDEX IF NOT EXISTS idx_chat_users_user ON chat_users(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat_send ON messages(chat_id, send_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
