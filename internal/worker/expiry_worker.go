package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/ledger-transfers/internal/observability"
	"github.com/ayo6706/ledger-transfers/internal/service"
	"go.uber.org/zap"
)

// ExpiryWorker sweeps prepared transfers whose expiry has passed and rejects
// them. Multiple instances are safe: the per-aggregate sequence constraint
// makes a double rejection a no-op for the loser.
type ExpiryWorker struct {
	transfers    *service.TransferService
	pollInterval time.Duration
	stopCh       chan struct{}
	stopOnce     sync.Once
}

func NewExpiryWorker(transfers *service.TransferService) *ExpiryWorker {
	return &ExpiryWorker{
		transfers:    transfers,
		pollInterval: time.Second,
		stopCh:       make(chan struct{}),
	}
}

// WithPollInterval sets the poll interval for the worker.
func (w *ExpiryWorker) WithPollInterval(interval time.Duration) *ExpiryWorker {
	if interval > 0 {
		w.pollInterval = interval
	}
	return w
}

// Start runs the sweep loop until Stop is called or the context is canceled.
func (w *ExpiryWorker) Start(ctx context.Context) {
	zap.L().Info("expiry worker starting", zap.Duration("interval", w.pollInterval))

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("expiry worker stopping", zap.String("reason", "context canceled"))
			return
		case <-w.stopCh:
			zap.L().Info("expiry worker stopping", zap.String("reason", "stop requested"))
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals the worker to stop. Safe to call more than once.
func (w *ExpiryWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	result, err := w.transfers.RejectExpired(ctx)
	if err != nil {
		observability.IncrementWorkerRun("expiry", "error")
		zap.L().Error("expiry sweep failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun("expiry", "ok")
	if result.Expired > 0 {
		zap.L().Info("expiry sweep",
			zap.Int("expired", result.Expired),
			zap.Int("rejected", result.Rejected),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
}

// SweepOnce runs a single sweep immediately. Useful for tests and the manual
// trigger endpoint.
func (w *ExpiryWorker) SweepOnce(ctx context.Context) (*service.ExpirySweepResult, error) {
	return w.transfers.RejectExpired(ctx)
}

// Run starts the worker and returns a function that can be called to stop it.
func (w *ExpiryWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// String returns a string representation of the worker.
func (w *ExpiryWorker) String() string {
	return fmt.Sprintf("ExpiryWorker(interval=%v)", w.pollInterval)
}
