package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/google/uuid"
)

// saveSnapshot сериализует payload в JSON и сохраняет снимок запуска
func saveSnapshot(ctx context.Context, port interfaces.SnapshotPort, kind interfaces.SnapshotKind, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s snapshot: %w", kind, err)
	}
	runID, _ := interfaces.RunIDFromContext(ctx)
	env, _ := EnvironmentFromContext(ctx)
	return port.SaveSnapshot(ctx, &interfaces.Snapshot{
		ID:          uuid.New().String(),
		RunID:       runID,
		Kind:        kind,
		Environment: env,
		Payload:     data,
		CreatedAt:   time.Now().UTC(),
	})
}

type environmentKey struct{}

// ContextWithEnvironment кладет имя окружения платформы в контекст
func ContextWithEnvironment(ctx context.Context, env string) context.Context {
	return context.WithValue(ctx, environmentKey{}, env)
}

// EnvironmentFromContext достает имя окружения из контекста
func EnvironmentFromContext(ctx context.Context) (string, bool) {
	env, ok := ctx.Value(environmentKey{}).(string)
	return env, ok
}
