package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/adapters/logger"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Тесты работают с настоящей базой; адрес задается SEEDER_TEST_POSTGRES_DSN
func newTestStorage(t *testing.T) *SnapshotStorage {
	t.Helper()
	dsn := os.Getenv("SEEDER_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SEEDER_TEST_POSTGRES_DSN is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewSnapshotStorage(ctx, dsn, logger.NewNop())
	require.NoError(t, err)
	require.NoError(t, s.EnsureSchema(ctx))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshotStorage_SaveAndLatest(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	older := &interfaces.Snapshot{RunID: "r1", Kind: interfaces.SnapshotSeed, Environment: "sandbox",
		Payload: []byte(`{"apiClients":[]}`), CreatedAt: time.Now().Add(-time.Hour).UTC()}
	newer := &interfaces.Snapshot{RunID: "r2", Kind: interfaces.SnapshotSeed, Environment: "sandbox",
		Payload: []byte(`{"apiClients":[{"ID":"srv-1"}]}`)}
	require.NoError(t, s.SaveSnapshots(ctx, older, newer))
	assert.NotEmpty(t, newer.ID)

	latest, err := s.LatestSnapshot(ctx, interfaces.SnapshotSeed)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, latest.ID)
	assert.Equal(t, "r2", latest.RunID)
	assert.JSONEq(t, string(newer.Payload), string(latest.Payload))
}

func TestSnapshotStorage_TransactionRollsBack(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	good := &interfaces.Snapshot{RunID: "rollback", Kind: interfaces.SnapshotValidation, Payload: []byte(`[]`)}
	bad := &interfaces.Snapshot{RunID: "rollback", Kind: interfaces.SnapshotValidation, Payload: []byte(`not json`)}
	err := s.SaveSnapshots(ctx, good, bad)
	require.Error(t, err)

	latest, err := s.LatestSnapshot(ctx, interfaces.SnapshotValidation)
	if errors.Is(err, interfaces.ErrSnapshotNotFound) {
		return
	}
	require.NoError(t, err)
	assert.NotEqual(t, good.ID, latest.ID)
}
