package session

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Janitor periodically evicts idle sessions.
type Janitor struct {
	manager  *Manager
	interval time.Duration
	logger   *logrus.Logger
	now      func() time.Time

	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
	started atomic.Bool
}

// NewJanitor creates a janitor sweeping manager every interval.
func NewJanitor(manager *Manager, interval time.Duration, logger *logrus.Logger) *Janitor {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Janitor{
		manager:  manager,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Start begins periodic sweeps in the background.
func (j *Janitor) Start() {
	if !j.started.CompareAndSwap(false, true) {
		return
	}
	j.logger.WithFields(logrus.Fields{
		"interval": j.interval.String(),
		"ttl":      j.manager.TTL().String(),
	}).Info("Starting session janitor")

	ticker := time.NewTicker(j.interval)
	go func() {
		defer close(j.done)
		defer ticker.Stop()
		for {
			select {
			case <-j.ctx.Done():
				return
			case <-ticker.C:
				j.RunOnce()
			}
		}
	}()
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.logger.Info("Stopping session janitor")
	j.cancel()
	if j.started.Load() {
		<-j.done
	}
}

// RunOnce performs a single sweep and returns the number of evicted sessions.
func (j *Janitor) RunOnce() int {
	evicted := j.manager.EvictIdle(j.now())
	if evicted > 0 {
		j.logger.WithFields(logrus.Fields{
			"evicted":   evicted,
			"remaining": j.manager.Len(),
		}).Info("Evicted idle sessions")
	}
	return evicted
}
