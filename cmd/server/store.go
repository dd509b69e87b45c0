package main

import (
	"database/sql"
	"fmt"

	"zchat/internal/config"
	"zchat/internal/domain"
	"zchat/internal/store/postgres"
	"zchat/internal/store/sqlite"
)

type repositories struct {
	db       *sql.DB
	users    domain.UserRepository
	chats    domain.ChatRepository
	messages domain.MessageRepository
	receipts domain.ReadReceiptRepository
}

// openStore opens and migrates the database selected by DB_DRIVER.
func openStore(cfg *config.Config) (*repositories, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresURL())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return &repositories{
			db:       db,
			users:    postgres.NewUserRepo(db),
			chats:    postgres.NewChatRepo(db),
			messages: postgres.NewMessageRepo(db),
			receipts: postgres.NewReceiptRepo(db),
		}, nil
	default:
		db, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return &repositories{
			db:       db,
			users:    sqlite.NewUserRepo(db),
			chats:    sqlite.NewChatRepo(db),
			messages: sqlite.NewMessageRepo(db),
			receipts: sqlite.NewReceiptRepo(db),
		}, nil
	}
}
