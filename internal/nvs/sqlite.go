package nvs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      BLOB NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
) WITHOUT ROWID;
`

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	// Path is the database file. The parent directory must exist.
	Path string
	// PoolSize defaults to 2. Writes are serialized by SQLite anyway.
	PoolSize int
	// TakeTimeout bounds waiting for a pooled connection. Defaults to 5s.
	TakeTimeout time.Duration
}

// SQLite is a BlobStore backed by one SQLite table. Each Set is a single
// upsert statement and therefore atomic.
type SQLite struct {
	pool    *sqlitex.Pool
	path    string
	timeout time.Duration
}

var _ BlobStore = (*SQLite)(nil)

func OpenSQLite(cfg SQLiteConfig) (*SQLite, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("nvs: sqlite path is required")
	}
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 2
	}
	timeout := cfg.TakeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    poolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("nvs: open %s: %w", cfg.Path, err)
	}
	log.Info().Msgf("nvs.SQLite.open path=%s pool_size=%d", cfg.Path, poolSize)
	return &SQLite{pool: pool, path: cfg.Path, timeout: timeout}, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("nvs: %s: %w", pragma, err)
		}
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("nvs: schema: %w", err)
	}
	return nil
}

func (s *SQLite) take() (*sqlite.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	conn, err := s.pool.Take(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("nvs: take connection: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return conn, nil
}

func (s *SQLite) Get(namespace, key string) ([]byte, error) {
	if err := checkKey(namespace, key); err != nil {
		return nil, err
	}
	conn, err := s.take()
	if err != nil {
		return nil, err
	}
	defer s.pool.Put(conn)

	var (
		value []byte
		found bool
	)
	err = sqlitex.Execute(conn,
		"SELECT value FROM blobs WHERE namespace = ? AND key = ?",
		&sqlitex.ExecOptions{
			Args: []any{namespace, key},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				value = make([]byte, stmt.ColumnLen(0))
				stmt.ColumnBytes(0, value)
				found = true
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("nvs: get %s/%s: %w", namespace, key, err)
	}
	if !found {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, namespace, key)
	}
	return value, nil
}

func (s *SQLite) Set(namespace, key string, data []byte) error {
	if err := checkKey(namespace, key); err != nil {
		return err
	}
	conn, err := s.take()
	if err != nil {
		return err
	}
	defer s.pool.Put(conn)

	if data == nil {
		data = []byte{}
	}
	err = sqlitex.Execute(conn,
		`INSERT INTO blobs (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		&sqlitex.ExecOptions{
			Args: []any{namespace, key, data, time.Now().UnixMilli()},
		})
	if err != nil {
		return fmt.Errorf("nvs: set %s/%s: %w", namespace, key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("nvs: close %s: %w", s.path, err)
	}
	log.Info().Msgf("nvs.SQLite.close path=%s", s.path)
	return nil
}
