// Package retry повторяет операции с экспоненциальной задержкой и джиттером.
// Используется при старте сервиса для подключения к Redis и базе ростера.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERMANENT ERRORS
// ══════════════════════════════════════════════════════════════════════════════

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent помечает ошибку, после которой повторять бессмысленно
// (неверный URL, отказ в доступе).
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent сообщает, помечена ли ошибка через Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy описывает расписание попыток.
type Policy struct {
	// MaxAttempts - общее число попыток, включая первую.
	MaxAttempts int

	InitialDelay time.Duration
	MaxDelay     time.Duration

	// Multiplier - во сколько раз растёт задержка после каждой попытки.
	Multiplier float64

	// Jitter - доля случайного отклонения задержки, от 0 до 1.
	Jitter float64
}

// ConnectPolicy - расписание для подключений при старте: пять попыток,
// задержка от 200ms до 5s.
func ConnectPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       0.2,
	}
}

// Delay возвращает паузу после попытки attempt (с единицы).
func (p Policy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (rand.Float64()*2 - 1)
	}
	return time.Duration(max(d, 0))
}

// Notify вызывается перед каждой повторной попыткой.
type Notify func(attempt int, err error, delay time.Duration)

// ══════════════════════════════════════════════════════════════════════════════
// DO
// ══════════════════════════════════════════════════════════════════════════════

// Do выполняет op, пока она не вернёт nil, Permanent-ошибку или пока не
// кончатся попытки. Возвращается последняя ошибка операции.
func Do(ctx context.Context, p Policy, op func(ctx context.Context) error, notify Notify) error {
	attempts := max(p.MaxAttempts, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if IsPermanent(lastErr) {
			return errors.Unwrap(lastErr)
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		if notify != nil {
			notify(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// DoValue - Do для операций, возвращающих значение.
func DoValue[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error), notify Notify) (T, error) {
	var result T
	err := Do(ctx, p, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}, notify)
	return result, err
}
