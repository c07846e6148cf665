package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/athebyme/gomarket-seeder/pkg/tx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS seeder_snapshots (
	id          UUID PRIMARY KEY,
	run_id      TEXT NOT NULL,
	kind        TEXT NOT NULL,
	environment TEXT NOT NULL DEFAULT '',
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS seeder_snapshots_kind_created_idx ON seeder_snapshots (kind, created_at DESC);
`

// SnapshotStorage хранилище снимков запусков в PostgreSQL
type SnapshotStorage struct {
	pool      *pgxpool.Pool
	txManager tx.TxManager
}

var _ interfaces.SnapshotPort = (*SnapshotStorage)(nil)

// NewSnapshotStorage подключается к базе и проверяет соединение
func NewSnapshotStorage(ctx context.Context, connectionString string, logger interfaces.LoggerPort) (*SnapshotStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &SnapshotStorage{pool: pool, txManager: tx.NewTxManager(pool, logger)}, nil
}

// EnsureSchema создает таблицу снимков, если ее нет
func (s *SnapshotStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}
	return nil
}

type executor interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// getExecutor возвращает транзакцию из контекста или пул
func (s *SnapshotStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return s.pool
}

func (s *SnapshotStorage) SaveSnapshot(ctx context.Context, snapshot *interfaces.Snapshot) error {
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	_, err := s.getExecutor(ctx).Exec(ctx,
		`INSERT INTO seeder_snapshots (id, run_id, kind, environment, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		snapshot.ID, snapshot.RunID, string(snapshot.Kind), snapshot.Environment, snapshot.Payload, snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s snapshot: %w", snapshot.Kind, err)
	}
	return nil
}

func (s *SnapshotStorage) SaveSnapshots(ctx context.Context, snapshots ...*interfaces.Snapshot) error {
	return s.txManager.Do(ctx, func(ctx context.Context) error {
		for _, snapshot := range snapshots {
			if err := s.SaveSnapshot(ctx, snapshot); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SnapshotStorage) LatestSnapshot(ctx context.Context, kind interfaces.SnapshotKind) (*interfaces.Snapshot, error) {
	var (
		snapshot interfaces.Snapshot
		rawKind  string
	)
	err := s.getExecutor(ctx).QueryRow(ctx,
		`SELECT id::text, run_id, kind, environment, payload, created_at
		 FROM seeder_snapshots WHERE kind = $1 ORDER BY created_at DESC LIMIT 1`,
		string(kind),
	).Scan(&snapshot.ID, &snapshot.RunID, &rawKind, &snapshot.Environment, &snapshot.Payload, &snapshot.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, interfaces.ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to load %s snapshot: %w", kind, err)
	}
	snapshot.Kind = interfaces.SnapshotKind(rawKind)
	return &snapshot, nil
}

// Close закрывает пул соединений
func (s *SnapshotStorage) Close() error {
	s.pool.Close()
	return nil
}
