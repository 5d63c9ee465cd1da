package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"chats/internal/logger"
)

var ErrRetentionDisabled = errors.New("retention is disabled")

// Sweeper periodically deletes messages that expired more than retention ago.
// Until a message is swept it stays fetchable by id.
type Sweeper struct {
	service   *MessageService
	interval  time.Duration
	retention time.Duration
	timeout   time.Duration

	mu        sync.Mutex
	ticker    *time.Ticker
	stopChan  chan struct{}
	done      chan struct{}
	isRunning bool
}

func NewSweeper(service *MessageService, interval, retention time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		service:   service,
		interval:  interval,
		retention: retention,
		timeout:   30 * time.Second,
	}
}

func (sw *Sweeper) Start() error {
	if sw.retention <= 0 {
		return ErrRetentionDisabled
	}
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.isRunning {
		logger.Info("sweeper is already running")
		return nil
	}
	sw.ticker = time.NewTicker(sw.interval)
	sw.stopChan = make(chan struct{})
	sw.done = make(chan struct{})
	sw.isRunning = true

	ticker, stop, done := sw.ticker, sw.stopChan, sw.done
	go func() {
		defer close(done)
		logger.Info("sweeper started", zap.Duration("interval", sw.interval), zap.Duration("retention", sw.retention))
		for {
			select {
			case <-stop:
				ticker.Stop()
				logger.Info("sweeper stopped")
				return
			case <-ticker.C:
				sw.SweepOnce(context.Background())
			}
		}
	}()
	return nil
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (sw *Sweeper) Stop() error {
	sw.mu.Lock()
	if !sw.isRunning {
		sw.mu.Unlock()
		logger.Info("sweeper is not running")
		return nil
	}
	close(sw.stopChan)
	sw.isRunning = false
	done := sw.done
	sw.mu.Unlock()

	<-done
	return nil
}

func (sw *Sweeper) IsRunning() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.isRunning
}

func (sw *Sweeper) Retention() time.Duration { return sw.retention }

// SweepOnce runs a single purge and returns the number of deleted messages.
func (sw *Sweeper) SweepOnce(ctx context.Context) int64 {
	ctx, cancel := context.WithTimeout(ctx, sw.timeout)
	defer cancel()
	n, err := sw.service.PurgeExpired(ctx, sw.retention)
	if err != nil {
		logger.Error("error purging expired messages", zap.Error(err))
		return 0
	}
	if n > 0 {
		logger.Info("purged expired messages", zap.Int64("count", n))
	}
	return n
}
