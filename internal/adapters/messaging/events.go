package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/bulk"
	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
	"github.com/google/uuid"
)

// DefaultJobEventsTopic топик событий массовых заданий
const DefaultJobEventsTopic = "seeder.job-events"

// JobEvent событие задания в том виде, в каком оно уходит в брокер
type JobEvent struct {
	EventID        string    `json:"event_id"`
	RunID          string    `json:"run_id,omitempty"`
	Type           string    `json:"type"`
	Action         string    `json:"action"`
	Resource       string    `json:"resource"`
	ParentResource string    `json:"parent_resource,omitempty"`
	ParentID       string    `json:"parent_id,omitempty"`
	Index          int       `json:"index"`
	Total          int       `json:"total"`
	Attempt        int       `json:"attempt"`
	DelayMs        int64     `json:"delay_ms,omitempty"`
	DurationMs     int64     `json:"duration_ms,omitempty"`
	Error          string    `json:"error,omitempty"`
	At             time.Time `json:"at"`
}

func newJobEvent(runID string, ev bulk.Event) JobEvent {
	out := JobEvent{
		EventID:        uuid.NewString(),
		RunID:          runID,
		Type:           string(ev.Type),
		Action:         string(ev.Job.Action),
		Resource:       ev.Job.Resource,
		ParentResource: ev.Job.ParentResource,
		ParentID:       ev.Job.ParentID,
		Index:          ev.Job.Index,
		Total:          ev.Job.Total,
		Attempt:        ev.Attempt,
		DelayMs:        ev.Delay.Milliseconds(),
		DurationMs:     ev.Duration.Milliseconds(),
		At:             ev.At,
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

// JobEventPublisher наблюдатель планировщика, отправляющий события в брокер.
// Ошибки отправки не прерывают задания и только пишутся в журнал.
type JobEventPublisher struct {
	port   interfaces.MessagingPort
	topic  string
	runID  string
	logger interfaces.LoggerPort
	// started события начала заданий отправляются только при включенном флаге
	started bool
}

var _ bulk.Observer = (*JobEventPublisher)(nil)

func NewJobEventPublisher(port interfaces.MessagingPort, topic, runID string, logger interfaces.LoggerPort) *JobEventPublisher {
	if topic == "" {
		topic = DefaultJobEventsTopic
	}
	return &JobEventPublisher{port: port, topic: topic, runID: runID, logger: logger}
}

// WithStartedEvents включает отправку событий начала заданий
func (p *JobEventPublisher) WithStartedEvents() *JobEventPublisher {
	p.started = true
	return p
}

func (p *JobEventPublisher) OnJobEvent(ev bulk.Event) {
	if ev.Type == bulk.EventStarted && !p.started {
		return
	}
	payload, err := json.Marshal(newJobEvent(p.runID, ev))
	if err != nil {
		p.logger.Warn("Не удалось сериализовать событие задания", interfaces.LogField{Key: "error", Value: err.Error()})
		return
	}
	ctx := interfaces.ContextWithRunID(context.Background(), p.runID)
	if err := p.port.Publish(ctx, p.topic, ev.Job.Resource, payload); err != nil {
		p.logger.Warn("Не удалось отправить событие задания",
			interfaces.LogField{Key: "job", Value: ev.Job.String()},
			interfaces.LogField{Key: "error", Value: err.Error()})
	}
}
