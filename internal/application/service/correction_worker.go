package service

import (
	"context"
	"sync"
	"time"

	"github.com/turtacn/riskserve/internal/domain/models"
	domainService "github.com/turtacn/riskserve/internal/domain/service"
	"github.com/turtacn/riskserve/pkg/constants"
	"github.com/turtacn/riskserve/pkg/errors"
	"github.com/turtacn/riskserve/pkg/logger"
)

// CorrectionApplier runs one correction to completion.
type CorrectionApplier interface {
	ApplyCorrection(ctx context.Context, corr *models.Correction) (*models.ModelVersion, error)
}

// CorrectionResult is reported once per processed correction.
type CorrectionResult struct {
	Correction *models.Correction
	Version    *models.ModelVersion
	Err        error
}

// CorrectionWorker feeds accepted corrections to the coordinator from a single
// goroutine through a bounded queue, so the HTTP handler returns as soon as the
// correction is queued.
// CorrectionWorker 通过有界队列在单个 goroutine 中串行处理纠正。
type CorrectionWorker struct {
	applier      CorrectionApplier
	queue        chan *models.Correction
	drainTimeout time.Duration
	metrics      domainService.Metrics
	logger       logger.Logger
	onResult     func(CorrectionResult)

	mu     sync.RWMutex
	closed bool
}

// NewCorrectionWorker creates a worker with a queue of queueSize corrections.
func NewCorrectionWorker(applier CorrectionApplier, queueSize int, drainTimeout time.Duration, metrics domainService.Metrics, log logger.Logger) *CorrectionWorker {
	if queueSize <= 0 {
		queueSize = 1
	}
	if drainTimeout <= 0 {
		drainTimeout = constants.DefaultDrainTimeout
	}
	if metrics == nil {
		metrics = domainService.NewNoopMetrics()
	}
	return &CorrectionWorker{
		applier:      applier,
		queue:        make(chan *models.Correction, queueSize),
		drainTimeout: drainTimeout,
		metrics:      metrics,
		logger:       log.WithComponent("CorrectionWorker"),
	}
}

// OnResult registers a callback invoked after each correction. Set it before Run.
func (w *CorrectionWorker) OnResult(fn func(CorrectionResult)) {
	w.onResult = fn
}

// Enqueue queues a correction without blocking. It fails with a queue-full error when
// the queue is at capacity and with a not-ready error once shutdown has begun.
func (w *CorrectionWorker) Enqueue(ctx context.Context, corr *models.Correction) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errors.NotReady("correction worker is shutting down")
	}

	select {
	case w.queue <- corr:
		w.metrics.SetCorrectionQueueDepth(len(w.queue))
		w.logger.Info(ctx, "Correction queued", logger.Fields{
			"correction_id": corr.ID,
			"label":         corr.Label.String(),
			"queue_depth":   len(w.queue),
		})
		return nil
	default:
		w.logger.Warn(ctx, "Correction queue is full", logger.Fields{"correction_id": corr.ID, "capacity": cap(w.queue)})
		return errors.QueueFull(cap(w.queue))
	}
}

// Depth returns the number of queued corrections.
func (w *CorrectionWorker) Depth() int {
	return len(w.queue)
}

// Run processes corrections until ctx is cancelled, then drains what is already queued
// for at most the drain timeout. It is a blocking call.
func (w *CorrectionWorker) Run(ctx context.Context) error {
	w.logger.Info(ctx, "Correction worker started", logger.Fields{"capacity": cap(w.queue)})
	for {
		if ctx.Err() != nil {
			return w.drain(context.WithoutCancel(ctx))
		}
		select {
		case corr := <-w.queue:
			// an in-flight fine-tune is never cancelled
			w.process(context.WithoutCancel(ctx), corr)
		case <-ctx.Done():
		}
	}
}

func (w *CorrectionWorker) drain(ctx context.Context) error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()

	pending := len(w.queue)
	if pending == 0 {
		w.logger.Info(ctx, "Correction worker stopped")
		return nil
	}
	w.logger.Info(ctx, "Draining correction queue", logger.Fields{"pending": pending, "timeout": w.drainTimeout.String()})

	deadline := time.Now().Add(w.drainTimeout)
	for {
		if time.Now().After(deadline) && len(w.queue) > 0 {
			w.logger.Warn(ctx, "Drain timeout reached, dropping queued corrections", logger.Fields{"dropped": len(w.queue)})
			return nil
		}
		select {
		case corr := <-w.queue:
			w.process(ctx, corr)
		default:
			w.logger.Info(ctx, "Correction worker stopped")
			return nil
		}
	}
}

func (w *CorrectionWorker) process(ctx context.Context, corr *models.Correction) {
	w.metrics.SetCorrectionQueueDepth(len(w.queue))
	ctx = context.WithValue(ctx, constants.ContextKeyRequestID, corr.ID)

	version, err := w.applier.ApplyCorrection(ctx, corr)
	if w.onResult != nil {
		w.onResult(CorrectionResult{Correction: corr, Version: version, Err: err})
	}
}

//Personal.AI order the ending
