package circuit_breaker

import (
	"errors"
	"sync"
	"time"
)

type State uint8

const (
	Closed   State = 1
	Open     State = 2
	HalfOpen State = 3
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

type Config struct {
	// RecordLength is the size of the window of tracked calls.
	RecordLength int `envconfig:"CB_RECORD_LENGTH" default:"20"`
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `envconfig:"CB_TIMEOUT" default:"10s"`
	// Percentile of failed calls in the window that opens the breaker.
	Percentile float64 `envconfig:"CB_PERCENTILE" default:"0.5"`
	// RecoveryRequests is the number of successful half-open calls needed to close.
	RecoveryRequests int `envconfig:"CB_RECOVERY_REQUESTS" default:"3"`
}

type CircuitBreaker interface {
	Call(service func() error) error
	State() State
	Reset()
}

var ErrOpen = errors.New("upstream circuit breaker is open")

type circuitBreaker struct {
	mu sync.Mutex
	// CLOSED lets calls through, OPEN rejects them, HALFOPEN lets them through until one fails.
	state State
	cfg   Config

	openedAt time.Time
	// ring of call results, true marks a failure
	buffer []bool
	pos    int
	// successful calls made since switching to HALFOPEN
	successCount int

	now func() time.Time
}

func New(cfg Config) CircuitBreaker {
	if cfg.RecordLength <= 0 {
		cfg.RecordLength = 1
	}
	return &circuitBreaker{
		state:  Closed,
		cfg:    cfg,
		buffer: make([]bool, cfg.RecordLength),
		now:    time.Now,
	}
}

func (cb *circuitBreaker) Call(service func() error) error {
	cb.mu.Lock()
	if cb.state == Open {
		if cb.now().Sub(cb.openedAt) <= cb.cfg.Timeout {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.state = HalfOpen
		cb.successCount = 0
	}
	cb.mu.Unlock()

	err := service()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.buffer[cb.pos] = err != nil
	cb.pos = (cb.pos + 1) % len(cb.buffer)

	if cb.state == HalfOpen {
		if err != nil {
			cb.trip()
			return err
		}
		cb.successCount++
		if cb.successCount >= cb.cfg.RecoveryRequests {
			cb.reset()
		}
		return err
	}

	fails := 0
	for _, failed := range cb.buffer {
		if failed {
			fails++
		}
	}
	if float64(fails)/float64(len(cb.buffer)) >= cb.cfg.Percentile {
		cb.trip()
	}
	return err
}

func (cb *circuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.reset()
}

func (cb *circuitBreaker) trip() {
	cb.state = Open
	cb.successCount = 0
	cb.openedAt = cb.now()
}

func (cb *circuitBreaker) reset() {
	for i := range cb.buffer {
		cb.buffer[i] = false
	}
	cb.successCount = 0
	cb.pos = 0
	cb.state = Closed
}
