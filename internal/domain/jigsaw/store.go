package jigsaw

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// STORE INTERFACE
// Реализация находится в infrastructure/persistence/memory.
// ══════════════════════════════════════════════════════════════════════════════

// Store хранит текущую сессию и сериализует доступ к ней:
// каждый вызов Update - один атомарный шаг над состоянием.
type Store interface {
	// View выполняет fn только для чтения. fn не должна менять сессию.
	View(ctx context.Context, fn func(s *Session) error) error

	// Update выполняет fn с эксклюзивным доступом к сессии.
	Update(ctx context.Context, fn func(s *Session) error) error
}
