package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
            id TEXT PRIMARY KEY,
            room_type TEXT NOT NULL CHECK (room_type IN ('rep_solo', 'company_solo')),
            referral_id BIGINT NOT NULL,
            solo_user_id BIGINT NOT NULL,
            rep_id BIGINT,
            company_id BIGINT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_message_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS participants (
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            user_id BIGINT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('primary', 'observer')),
            can_send BOOLEAN NOT NULL DEFAULT TRUE,
            can_view_history BOOLEAN NOT NULL DEFAULT TRUE,
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen_at TIMESTAMPTZ,
            PRIMARY KEY (room_id, user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
            sender_id BIGINT NOT NULL,
            message_type TEXT NOT NULL,
            content TEXT NOT NULL DEFAULT '',
            attachment JSONB,
            reply_to_id BIGINT REFERENCES messages(id),
            edited BOOLEAN NOT NULL DEFAULT FALSE,
            edited_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_room_created ON messages (room_id, created_at, id);`,
		`CREATE TABLE IF NOT EXISTS read_receipts (
            message_id BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            reader_id BIGINT NOT NULL,
            read_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (message_id, reader_id)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_read_receipts_reader ON read_receipts (reader_id);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
