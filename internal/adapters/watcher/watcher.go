package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mikey/gmail-spam-detector/internal/core"
	"go.uber.org/zap"
)

// Detector runs one detection pass
type Detector interface {
	DetectSpam(ctx context.Context, outputCSV string, maxEmails int) ([]core.SpamResult, error)
}

// Watcher runs the spam detector periodically. It implements ports.Service.
type Watcher struct {
	detector  Detector
	logger    *zap.Logger
	interval  time.Duration
	outputCSV string
	maxEmails int

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewWatcher creates a new watcher
func NewWatcher(detector Detector, logger *zap.Logger, interval time.Duration, outputCSV string, maxEmails int) *Watcher {
	return &Watcher{
		detector:  detector,
		logger:    logger,
		interval:  interval,
		outputCSV: outputCSV,
		maxEmails: maxEmails,
	}
}

// Start runs a first pass immediately and then one per interval
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher already started")
	}
	if w.interval <= 0 {
		return fmt.Errorf("invalid watcher interval: %s", w.interval)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.started = true

	go w.loop(ctx)

	w.logger.Info("Started spam watcher",
		zap.Duration("interval", w.interval),
		zap.Int("max_emails", w.maxEmails),
		zap.String("output", w.outputCSV))
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.done)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ticker.C:
			w.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) runOnce(ctx context.Context) {
	start := time.Now()
	results, err := w.detector.DetectSpam(ctx, w.outputCSV, w.maxEmails)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Error("Spam detection run failed", zap.Error(err))
		return
	}
	w.logger.Info("Spam detection run finished",
		zap.Int("emails", len(results)),
		zap.Duration("elapsed", time.Since(start)))
}

// Stop cancels the running pass and waits for the loop to exit
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.started = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	w.logger.Info("Stopped spam watcher")
	return nil
}
