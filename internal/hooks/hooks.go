// Пакет hooks — явная таблица обработчиков событий жизненного цикла.
//
// Обработчики регистрируются при сборке приложения (On) и вызываются
// синхронно в порядке регистрации (Dispatch).
package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Event — тип события.
type Event string

const (
	// EventLoaded — приложение собрано и готово к работе
	EventLoaded Event = "loaded"
	// EventShutdown — приложение завершает работу
	EventShutdown Event = "shutdown"
	// EventArchiveExported — архив успешно создан
	EventArchiveExported Event = "archive.exported"
	// EventArchiveDeleted — архив удалён
	EventArchiveDeleted Event = "archive.deleted"
)

// Payload — данные события. Для событий приложения поля архива пустые.
type Payload struct {
	Event Event
	// Filename — имя файла архива
	Filename string
	// Path — полный путь к архиву
	Path string
	// SizeBytes — размер архива
	SizeBytes int64
	// At — момент события
	At time.Time
}

// Handler — обработчик события.
type Handler func(ctx context.Context, p Payload) error

// Registry — таблица event → упорядоченный список обработчиков.
// Безопасна для конкурентного использования.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Event][]Handler
	logger   *slog.Logger
}

// New создаёт пустой реестр.
func New(logger *slog.Logger) *Registry {
	return &Registry{
		handlers: make(map[Event][]Handler),
		logger:   logger.With(slog.String("component", "hooks")),
	}
}

// On регистрирует обработчик события.
func (r *Registry) On(event Event, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = append(r.handlers[event], h)
}

// Count возвращает количество обработчиков события.
func (r *Registry) Count(event Event) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[event])
}

// Dispatch вызывает обработчики события по порядку регистрации.
// Ошибка одного обработчика не прерывает остальные; все ошибки
// объединяются через errors.Join.
func (r *Registry) Dispatch(ctx context.Context, p Payload) error {
	if p.At.IsZero() {
		p.At = time.Now()
	}

	r.mu.RLock()
	handlers := append([]Handler(nil), r.handlers[p.Event]...)
	r.mu.RUnlock()

	var errs []error
	for i, h := range handlers {
		if err := h(ctx, p); err != nil {
			r.logger.Warn("Ошибка обработчика события",
				slog.String("event", string(p.Event)),
				slog.Int("handler", i),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("обработчик %d события %s: %w", i, p.Event, err))
		}
	}
	return errors.Join(errs...)
}

// Emit — сокращение для событий без данных архива.
func (r *Registry) Emit(ctx context.Context, event Event) error {
	return r.Dispatch(ctx, Payload{Event: event})
}
