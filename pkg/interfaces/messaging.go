package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение, отправляемое в брокер
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Key         string            `json:"key"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers"`
	PublishedAt time.Time         `json:"published_at"`
}

// MessagingPort определяет интерфейс отправки событий во внешний брокер
type MessagingPort interface {
	// Publish отправляет сообщение в топик; key определяет партицию
	Publish(ctx context.Context, topic, key string, message []byte) error

	// Flush дожидается доставки отправленных сообщений
	Flush(timeout time.Duration) int

	Close() error
}
