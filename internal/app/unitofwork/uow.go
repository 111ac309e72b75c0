package unitofwork

import (
	"context"
	"database/sql"
	"errors"
	"github.com/burenotti/go_routines_backend/internal/adapter/storage"
	"github.com/burenotti/go_routines_backend/internal/domain"
	"log/slog"
	"time"
)

var (
	ErrRollback = errors.New("rollback")
)

// RollbackError matches both Cause and ErrRollback with errors.Is.
type RollbackError struct {
	Cause error
}

func (e *RollbackError) Error() string {
	return "rolled back: " + e.Cause.Error()
}

func (e *RollbackError) Unwrap() []error {
	return []error{e.Cause, ErrRollback}
}

type AtomicContext interface {
	Context() context.Context
	Commit() error
	Close() error
	CollectEvents() []domain.Event
}

type MessageBus interface {
	PublishEvents(events ...domain.Event) error
}

type UnitOfWork[T AtomicContext] struct {
	db         storage.DBContext
	newContext func(context.Context, storage.DBContext) (T, error)
	msgBus     MessageBus
	logger     *slog.Logger
}

func New[T AtomicContext](
	db storage.DBContext,
	newCtx func(context.Context, storage.DBContext) (T, error),
	msgBus MessageBus,
	logger *slog.Logger,
) *UnitOfWork[T] {
	return &UnitOfWork[T]{
		db:         db,
		newContext: newCtx,
		msgBus:     msgBus,
		logger:     logger,
	}
}

// Whatever do did not commit is rolled back, also after a panic.
func (uow *UnitOfWork[T]) Atomic(ctx context.Context, do func(T) error) error {
	started := time.Now()

	tx, err := uow.db.Begin(ctx)
	if err != nil {
		return &RollbackError{Cause: err}
	}
	defer uow.rollback(tx)

	txCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	atomicCtx, err := uow.newContext(txCtx, tx)
	if err != nil {
		return &RollbackError{Cause: err}
	}
	defer func() {
		if err := atomicCtx.Close(); err != nil {
			uow.logger.Error("failed to close atomic context", "error", err)
		}
	}()

	if err := do(atomicCtx); err != nil {
		return &RollbackError{Cause: err}
	}

	events := atomicCtx.CollectEvents()
	uow.logger.Debug("unit of work done", "events", len(events), "took", time.Since(started))

	if uow.msgBus == nil || len(events) == 0 {
		return nil
	}
	if err := uow.msgBus.PublishEvents(events...); err != nil {
		uow.logger.Error("failed to publish events", "error", err)
		return err
	}
	return nil
}

func (uow *UnitOfWork[T]) rollback(tx storage.DBContext) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		uow.logger.Error("failed to rollback transaction", "error", err)
	}
}
