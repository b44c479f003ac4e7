package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLSlots keeps slots as rows of the slots table.
type SQLSlots struct {
	db *DB
}

// NewSQLSlots builds a Slots over a migrated database.
func NewSQLSlots(db *DB) *SQLSlots {
	return &SQLSlots{db: db}
}

func (s *SQLSlots) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.Client.QueryRowContext(ctx, s.db.rebind(`SELECT value FROM slots WHERE key = ?`), key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *SQLSlots) Set(ctx context.Context, key, value string) error {
	var err error
	switch s.db.Dialect {
	case Postgres:
		_, err = s.db.Client.ExecContext(ctx, `
			INSERT INTO slots (key, value, updated_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, key, value)
	default:
		_, err = s.db.Client.ExecContext(ctx, `
			INSERT INTO slots (key, value, updated_at_ms)
			VALUES (?, ?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at_ms = excluded.updated_at_ms
		`, key, value, time.Now().UTC().UnixMilli())
	}
	return err
}

func (s *SQLSlots) Clear(ctx context.Context, key string) error {
	_, err := s.db.Client.ExecContext(ctx, s.db.rebind(`DELETE FROM slots WHERE key = ?`), key)
	return err
}
