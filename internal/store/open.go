package store

import (
	"context"
	"errors"
	"fmt"
)

// OpenOptions selects and configures the slot backend.
type OpenOptions struct {
	Backend     string
	DatabaseURL string
	SQLitePath  string
	RedisAddr   string
	RedisPrefix string
	// WithRedis connects redis even when another backend holds the slots.
	WithRedis bool
}

// Backends holds the connections behind a Slots.
type Backends struct {
	Slots Slots
	DB    *DB
	Redis *Redis
}

// Open connects the configured backend.
func Open(ctx context.Context, opts OpenOptions) (*Backends, error) {
	b := &Backends{}
	if opts.Backend == "redis" || opts.WithRedis {
		b.Redis = NewRedis(opts.RedisAddr)
		if !b.Redis.Healthy(ctx) {
			_ = b.Redis.Close()
			return nil, fmt.Errorf("redis not reachable at %s", opts.RedisAddr)
		}
	}

	switch opts.Backend {
	case "memory":
		b.Slots = NewMemory()
	case "redis":
		b.Slots = NewRedisSlots(b.Redis.Client, opts.RedisPrefix)
	case "postgres":
		db, err := NewDB(ctx, opts.DatabaseURL)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		b.DB = db
		b.Slots = NewSQLSlots(db)
	case "sqlite":
		db, err := NewSQLite(ctx, opts.SQLitePath)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		b.DB = db
		b.Slots = NewSQLSlots(db)
	default:
		_ = b.Close()
		return nil, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
	return b, nil
}

// Health reports connectivity of every open connection.
func (b *Backends) Health(ctx context.Context) (map[string]bool, bool) {
	out := map[string]bool{}
	ok := true
	if b.DB != nil {
		out["db"] = b.DB.Healthy(ctx)
		ok = ok && out["db"]
	}
	if b.Redis != nil {
		out["redis"] = b.Redis.Healthy(ctx)
		ok = ok && out["redis"]
	}
	return out, ok
}

// Close closes every open connection.
func (b *Backends) Close() error {
	return errors.Join(b.DB.Close(), b.Redis.Close())
}
