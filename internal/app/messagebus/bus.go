package messagebus

import (
	"errors"
	"fmt"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"log/slog"
	"sync"
)

var ErrClosed = errors.New("message bus is closed")

type EventHandler func(event domain.Event) error

type MessageBus struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	closed   bool
	handlers map[string][]EventHandler
	inflight sync.WaitGroup
}

func New(logger *slog.Logger) *MessageBus {
	return &MessageBus{
		logger:   logger,
		handlers: make(map[string][]EventHandler),
	}
}

func (b *MessageBus) Register(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *MessageBus) RegisterAll(handler EventHandler, eventTypes ...string) {
	for _, eventType := range eventTypes {
		b.Register(eventType, handler)
	}
}

func (b *MessageBus) PublishEvents(events ...domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrClosed
	}

	for _, event := range events {
		for _, handler := range b.handlers[event.Type()] {
			b.inflight.Add(1)
			go b.dispatch(handler, event)
		}
	}
	return nil
}

func (b *MessageBus) dispatch(handler EventHandler, event domain.Event) {
	defer b.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "type", event.Type(), "panic", fmt.Sprint(r))
		}
	}()

	if err := handler(event); err != nil {
		b.logger.Error("failed to handle event", "type", event.Type(), "err", err)
	}
}

// Close is safe to call more than once.
func (b *MessageBus) Close() {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
}
