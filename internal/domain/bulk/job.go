package bulk

import (
	"errors"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-seeder/internal/domain/directory"
)

// ActionType вид массовой операции
type ActionType string

const (
	ActionList     ActionType = "LIST"
	ActionCreate   ActionType = "CREATE"
	ActionUpdate   ActionType = "UPDATE"
	ActionGenerate ActionType = "GENERATE"
)

// GroupMeta общие метаданные пачки заданий
type GroupMeta struct {
	Action         ActionType
	Resource       string
	ParentID       string
	ParentResource string
}

// JobMeta метаданные одного задания внутри пачки
type JobMeta struct {
	GroupMeta
	Index int
	Total int
}

// Progress доля выполненных заданий пачки после завершения этого задания
func (m JobMeta) Progress() float64 {
	if m.Total <= 0 {
		return 1
	}
	return float64(m.Index+1) / float64(m.Total)
}

// Describe подпись пачки для прогресса
func (m GroupMeta) Describe() string {
	msg := fmt.Sprintf("%s %s", m.Action, m.Resource)
	if m.ParentID != "" && m.Action == ActionList {
		msg += fmt.Sprintf(" under %s with ID %q", directory.Singular(m.ParentResource), m.ParentID)
	}
	return msg
}

// String идентификатор задания для журналов
func (m JobMeta) String() string {
	return fmt.Sprintf("%s (%d/%d)", m.Describe(), m.Index+1, m.Total)
}

// FatalJobError задание не выполнилось после всех повторов
type FatalJobError struct {
	Job      JobMeta
	Attempts int
	Err      error
}

func (e *FatalJobError) Error() string {
	return fmt.Sprintf("job %q failed after %d attempt(s): %v", e.Job.String(), e.Attempts, e.Err)
}

func (e *FatalJobError) Unwrap() error { return e.Err }

// IsFatal проверяет, что ошибка вызвана исчерпанием повторов
func IsFatal(err error) bool {
	var fatal *FatalJobError
	return errors.As(err, &fatal)
}

// EventType вид события задания
type EventType string

const (
	EventStarted   EventType = "started"
	EventCompleted EventType = "completed"
	EventRetrying  EventType = "retrying"
	EventFailed    EventType = "failed"
)

// Event событие жизненного цикла задания
type Event struct {
	Type    EventType
	Job     JobMeta
	Attempt int
	// Delay пауза перед повтором (только для EventRetrying)
	Delay time.Duration
	// Duration длительность попытки (для completed, retrying, failed)
	Duration time.Duration
	Err      error
	At       time.Time
}

// Observer получает события заданий; вызывается из горутин заданий
type Observer interface {
	OnJobEvent(ev Event)
}

// ObserverFunc адаптер функции к Observer
type ObserverFunc func(ev Event)

func (f ObserverFunc) OnJobEvent(ev Event) { f(ev) }

// Observers рассылает события нескольким наблюдателям
type Observers []Observer

func (o Observers) OnJobEvent(ev Event) {
	for _, obs := range o {
		if obs != nil {
			obs.OnJobEvent(ev)
		}
	}
}
