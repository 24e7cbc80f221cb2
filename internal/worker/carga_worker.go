// Package worker reacts to ETL load notifications inside the report server.
package worker

import (
	"context"
	"fmt"
	"time"

	"orcamento/internal/amqp"
	"orcamento/internal/log"
)

// Refresher reloads cached lookups from the database.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Invalidator drops every cached entry it manages.
type Invalidator interface {
	InvalidateAll() int
}

// Observer records how notifications were handled.
type Observer interface {
	MessageConsumed(err error)
	CacheInvalidated(trigger string)
}

// Consumer is the message source, usually an *amqp.Client.
type Consumer interface {
	ConsumeCargasConcluidas(ctx context.Context, handler func(context.Context, *amqp.CargaConcluidaMessage) error) error
}

// CargaWorker invalidates the server caches after each ETL run.
type CargaWorker struct {
	refresher   Refresher
	invalidator Invalidator
	observer    Observer
	logger      *log.Logger
	timeout     time.Duration
}

func NewCargaWorker(refresher Refresher, invalidator Invalidator, observer Observer, logger *log.Logger) *CargaWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &CargaWorker{
		refresher:   refresher,
		invalidator: invalidator,
		observer:    observer,
		logger:      logger.WithComponent(log.ComponentWorker),
		timeout:     30 * time.Second,
	}
}

// HandleCargaConcluida drops cached entries and reloads the lookups that
// every page needs. A failed reload is returned so the message is retried.
func (w *CargaWorker) HandleCargaConcluida(ctx context.Context, msg *amqp.CargaConcluidaMessage) error {
	w.logger.InfoContext(ctx, "Processing load notification",
		log.FieldRunID, msg.RunID,
		"tabelas", msg.Tabelas,
		log.FieldLinhas, msg.Linhas)

	cleared := 0
	if w.invalidator != nil {
		cleared = w.invalidator.InvalidateAll()
	}
	if w.observer != nil {
		w.observer.CacheInvalidated("amqp")
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	var err error
	if w.refresher != nil {
		if rerr := w.refresher.Refresh(ctx); rerr != nil {
			err = fmt.Errorf("refresh caches after run %s: %w", msg.RunID, rerr)
		}
	}
	if w.observer != nil {
		w.observer.MessageConsumed(err)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "Cache refresh failed", log.FieldRunID, msg.RunID, log.FieldError, err.Error())
		return err
	}

	w.logger.InfoContext(ctx, "Caches refreshed after load",
		log.FieldRunID, msg.RunID,
		"entries_cleared", cleared)
	return nil
}

// Run consumes notifications until ctx is cancelled.
func (w *CargaWorker) Run(ctx context.Context, c Consumer) error {
	w.logger.InfoContext(ctx, "Load notification worker started")
	err := c.ConsumeCargasConcluidas(ctx, w.HandleCargaConcluida)
	if ctx.Err() != nil {
		w.logger.InfoContext(ctx, "Load notification worker stopped")
		return nil
	}
	return err
}
