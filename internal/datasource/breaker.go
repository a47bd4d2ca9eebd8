package datasource

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/irfndi/foresight-go/internal/models"
	"github.com/sirupsen/logrus"
)

// BreakerState is the position of a circuit breaker.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive outages before opening
	SuccessThreshold int           `json:"success_threshold"` // probe successes needed to close
	Cooldown         time.Duration `json:"cooldown"`          // time spent open before probing
	MaxProbes        int           `json:"max_probes"`        // concurrent requests allowed half-open
}

// BreakerStats holds counters for the circuit breaker.
type BreakerStats struct {
	State           string    `json:"state"`
	TotalRequests   int64     `json:"total_requests"`
	Rejected        int64     `json:"rejected"`
	Outages         int64     `json:"outages"`
	StateChanges    int64     `json:"state_changes"`
	LastFailureTime time.Time `json:"last_failure_time,omitempty"`
}

// ErrCircuitOpen is the cause of fetches rejected while the data API is
// considered down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Breaker guards a Fetcher against a failing data API. Only temporary
// failures count against it; an unknown dataset or a cancelled recompute
// does not.
type Breaker struct {
	next   Fetcher
	config BreakerConfig
	logger *logrus.Logger
	now    func() time.Time

	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	probes          int
	lastStateChange time.Time
	stats           BreakerStats
}

// NewBreaker wraps next. Zero config fields take defaults.
func NewBreaker(next Fetcher, config BreakerConfig, logger *logrus.Logger) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.MaxProbes <= 0 {
		config.MaxProbes = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Breaker{
		next:            next,
		config:          config,
		logger:          logger,
		now:             time.Now,
		state:           BreakerClosed,
		lastStateChange: time.Now(),
	}
}

// FetchSeries forwards to the wrapped Fetcher unless the circuit is open.
func (b *Breaker) FetchSeries(ctx context.Context, req FetchRequest) (models.Series, error) {
	if !b.allow() {
		return models.Series{}, &FetchError{
			SourceID: req.SourceID,
			Reason:   "data API temporarily unavailable",
			Err:      ErrCircuitOpen,
		}
	}

	series, err := b.next.FetchSeries(ctx, req)
	b.record(ctx, err)
	return series, err
}

// State returns the current breaker position.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	return b.state
}

// Stats returns a snapshot of the counters.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()
	stats := b.stats
	stats.State = b.state.String()
	return stats
}

// Reset closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setState(BreakerClosed)
	b.logger.Info("Data API circuit breaker manually reset")
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.stats.TotalRequests++
	b.advance()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerHalfOpen:
		if b.probes < b.config.MaxProbes {
			b.probes++
			return true
		}
	}

	b.stats.Rejected++
	return false
}

// advance moves an open breaker to half-open once the cooldown has passed.
func (b *Breaker) advance() {
	if b.state == BreakerOpen && b.now().Sub(b.lastStateChange) >= b.config.Cooldown {
		b.setState(BreakerHalfOpen)
	}
}

// abandoned reports a fetch the caller gave up on. It says nothing about the
// data API. Client timeouts are not abandoned and count as outages.
func abandoned(ctx context.Context, err error) bool {
	return err != nil && (ctx.Err() != nil || errors.Is(err, context.Canceled))
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen && b.probes > 0 {
		b.probes--
	}
	if abandoned(ctx, err) {
		return
	}

	var fe *FetchError
	if err == nil || !errors.As(err, &fe) || !fe.Temporary {
		if b.state == BreakerHalfOpen {
			b.successes++
			if b.successes >= b.config.SuccessThreshold {
				b.setState(BreakerClosed)
			}
			return
		}
		b.failures = 0
		return
	}

	b.stats.Outages++
	b.stats.LastFailureTime = b.now()
	b.failures++

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.config.FailureThreshold {
			b.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(state BreakerState) {
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if b.state == state {
		return
	}

	old := b.state
	b.state = state
	b.lastStateChange = b.now()
	b.stats.StateChanges++

	b.logger.WithFields(logrus.Fields{
		"old_state": old.String(),
		"new_state": state.String(),
	}).Warn("Data API circuit breaker state changed")
}
