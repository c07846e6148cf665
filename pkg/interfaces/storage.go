package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrSnapshotNotFound возвращается, когда снимок не найден
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotKind тип сохраняемого снимка
type SnapshotKind string

const (
	// SnapshotDownload снимок выгруженного маркетплейса
	SnapshotDownload SnapshotKind = "download"
	// SnapshotSeed результат заливки (новые ID клиентов API)
	SnapshotSeed SnapshotKind = "seed"
	// SnapshotValidation список ошибок валидации
	SnapshotValidation SnapshotKind = "validation"
)

// Snapshot запись о результате одного запуска команды
type Snapshot struct {
	ID          string
	RunID       string
	Kind        SnapshotKind
	Environment string
	Payload     []byte
	CreatedAt   time.Time
}

// SnapshotPort определяет интерфейс для постоянного хранения результатов запусков
type SnapshotPort interface {
	// SaveSnapshot сохраняет снимок
	SaveSnapshot(ctx context.Context, snapshot *Snapshot) error

	// SaveSnapshots сохраняет несколько снимков в одной транзакции
	SaveSnapshots(ctx context.Context, snapshots ...*Snapshot) error

	// LatestSnapshot возвращает последний снимок указанного типа
	LatestSnapshot(ctx context.Context, kind SnapshotKind) (*Snapshot, error)

	Close() error
}
