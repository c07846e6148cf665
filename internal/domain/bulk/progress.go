package bulk

import (
	"fmt"
	"sync"

	"github.com/athebyme/gomarket-seeder/pkg/interfaces"
)

// ProgressLine строка прогресса для вывода
type ProgressLine struct {
	Message string
	Percent int
	// Reset начало новой строки: сменился ресурс или родитель
	Reset bool
	Job   JobMeta
}

// ProgressReporter превращает завершения заданий в монотонный прогресс по текущей пачке.
// Уменьшение доли из-за параллельного порядка завершения не показывается.
type ProgressReporter struct {
	mu      sync.Mutex
	current GroupMeta
	started bool
	last    float64
	emit    func(ProgressLine)
}

// NewProgressReporter создает репортер; emit вызывается под мьютексом репортера
func NewProgressReporter(emit func(ProgressLine)) *ProgressReporter {
	return &ProgressReporter{emit: emit}
}

// NewLoggingProgressReporter пишет прогресс в лог
func NewLoggingProgressReporter(logger interfaces.LoggerPort) *ProgressReporter {
	return NewProgressReporter(func(line ProgressLine) {
		logger.Info(line.Message,
			interfaces.LogField{Key: "percent", Value: line.Percent},
		)
	})
}

func (p *ProgressReporter) OnJobEvent(ev Event) {
	if ev.Type != EventCompleted {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	reset := false
	if !p.started || ev.Job.GroupMeta != p.current {
		p.current = ev.Job.GroupMeta
		p.started = true
		p.last = 0
		reset = true
	}

	progress := ev.Job.Progress()
	if progress <= p.last {
		return
	}
	p.last = progress
	percent := int(progress * 100)
	if p.emit != nil {
		p.emit(ProgressLine{
			Message: fmt.Sprintf("%s: %d%%", p.current.Describe(), percent),
			Percent: percent,
			Reset:   reset,
			Job:     ev.Job,
		})
	}
}

var _ Observer = (*ProgressReporter)(nil)
