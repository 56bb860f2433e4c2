// Package circuitbreaker защищает сервис от медленного или упавшего
// внешнего источника: после серии сбоев вызовы сразу отклоняются, пока не
// пройдёт время восстановления.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State - состояние предохранителя.
type State int

const (
	// StateClosed - вызовы проходят.
	StateClosed State = iota
	// StateOpen - вызовы отклоняются без обращения к источнику.
	StateOpen
	// StateHalfOpen - пропускается одна пробная попытка.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrOpen возвращается, пока предохранитель разомкнут или занят пробой.
var ErrOpen = errors.New("circuit breaker is open")

// Settings настраивает Breaker.
type Settings struct {
	// Name попадает в OnStateChange.
	Name string

	// FailureThreshold - число сбоев подряд, после которого цепь размыкается.
	FailureThreshold int

	// OpenTimeout - сколько цепь остаётся разомкнутой до пробной попытки.
	OpenTimeout time.Duration

	// IsFailure решает, считать ли ошибку сбоем источника.
	// nil - любая ошибка считается сбоем.
	IsFailure func(error) bool

	OnStateChange func(name string, from, to State)

	// Now подменяется в тестах.
	Now func() time.Time
}

// RosterSettings - настройки для базы ростера: три сбоя подряд, пауза 30s.
func RosterSettings(isFailure func(error) bool, onStateChange func(name string, from, to State)) Settings {
	return Settings{
		Name:             "roster",
		FailureThreshold: 3,
		OpenTimeout:      30 * time.Second,
		IsFailure:        isFailure,
		OnStateChange:    onStateChange,
	}
}

// Breaker - предохранитель с тремя состояниями.
type Breaker struct {
	settings Settings

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// New создаёт замкнутый предохранитель.
func New(settings Settings) *Breaker {
	if settings.FailureThreshold <= 0 {
		settings.FailureThreshold = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 30 * time.Second
	}
	if settings.Now == nil {
		settings.Now = time.Now
	}
	return &Breaker{settings: settings}
}

// Execute вызывает fn, если цепь это позволяет, и учитывает результат.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn(ctx)
	b.record(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.settings.Now().Sub(b.openedAt) < b.settings.OpenTimeout {
			return ErrOpen
		}
		b.setState(StateHalfOpen)
		b.probing = true
		return nil
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
		return nil
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	failed := err != nil
	if failed && b.settings.IsFailure != nil {
		failed = b.settings.IsFailure(err)
	}

	if !failed {
		b.failures = 0
		if b.state != StateClosed {
			b.setState(StateClosed)
		}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.settings.FailureThreshold {
		b.openedAt = b.settings.Now()
		b.setState(StateOpen)
	}
}

func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	if to == StateClosed {
		b.failures = 0
	}
	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.settings.Name, from, to)
	}
}

// State возвращает текущее состояние. Разомкнутая цепь, у которой истекла
// пауза, остаётся StateOpen до следующего вызова.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
