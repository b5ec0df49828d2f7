package youtube

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// BreakerMode is the circuit breaker state.
type BreakerMode string

const (
	BreakerClosed   BreakerMode = "CLOSED"
	BreakerOpen     BreakerMode = "OPEN"
	BreakerHalfOpen BreakerMode = "HALF_OPEN"
)

const (
	DefaultBreakerThreshold = 3
	DefaultBreakerTimeout   = 2 * time.Hour

	breakerLockTimeout = 5 * time.Second
)

// BreakerState is the persisted record.
type BreakerState struct {
	State           BreakerMode `json:"state"`
	FailureCount    int         `json:"failure_count"`
	LastFailureTime *time.Time  `json:"last_failure_time"`
	OpenedAt        *time.Time  `json:"opened_at"`
}

func freshBreakerState() BreakerState {
	return BreakerState{State: BreakerClosed}
}

// BreakerStats is a read-only snapshot for diagnostics.
type BreakerStats struct {
	State          BreakerMode `json:"state"`
	FailureCount   int         `json:"failure_count"`
	Threshold      int         `json:"failure_threshold"`
	TimeoutHours   float64     `json:"timeout_hours"`
	LastFailure    *time.Time  `json:"last_failure,omitempty"`
	OpenedAt       *time.Time  `json:"opened_at,omitempty"`
	RemainingHours *float64    `json:"time_remaining_hours,omitempty"`
}

// CircuitBreaker quarantines a flaky provider. State lives in a JSON file and
// is reloaded under lock before every operation, so several processes sharing
// a cache directory see one breaker.
//
// The Open to HalfOpen transition happens only inside IsOpen. A caller that
// never asks will never see it.
type CircuitBreaker struct {
	path      string
	threshold int
	timeout   time.Duration
	now       func() time.Time

	mu    sync.Mutex
	flock *fileLock
}

// NewCircuitBreaker loads state from path. A missing or corrupt file yields a
// fresh Closed breaker. threshold <= 0 and timeout <= 0 select the defaults.
func NewCircuitBreaker(path string, threshold int, timeout time.Duration) (*CircuitBreaker, error) {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if timeout <= 0 {
		timeout = DefaultBreakerTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("circuit breaker: mkdir: %w", err)
	}
	return &CircuitBreaker{
		path:      path,
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
		flock:     newFileLock(path),
	}, nil
}

// update runs fn on the current state under both locks and persists the
// result when fn reports a change.
func (b *CircuitBreaker) update(fn func(*BreakerState) bool) BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.flock.lock(breakerLockTimeout); err != nil {
		slog.Warn("circuit breaker: file lock unavailable, continuing unlocked",
			slog.String("path", b.path), slog.Any("error", err))
	} else {
		defer b.flock.unlock()
	}

	st := b.load()
	if fn(&st) {
		if err := b.save(st); err != nil {
			slog.Warn("circuit breaker: persist failed", slog.String("path", b.path), slog.Any("error", err))
		}
	}
	return st
}

func (b *CircuitBreaker) load() BreakerState {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("circuit breaker: unreadable state, starting closed", slog.Any("error", err))
		}
		return freshBreakerState()
	}
	var st BreakerState
	if err := json.Unmarshal(data, &st); err != nil {
		slog.Warn("circuit breaker: corrupt state, starting closed", slog.Any("error", err))
		return freshBreakerState()
	}
	switch st.State {
	case BreakerClosed, BreakerOpen, BreakerHalfOpen:
	default:
		slog.Warn("circuit breaker: unknown state, starting closed", slog.String("state", string(st.State)))
		return freshBreakerState()
	}
	return st
}

func (b *CircuitBreaker) save(st BreakerState) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return writeFileAtomic(b.path, data)
}

// IsOpen reports whether calls should be blocked. An Open breaker whose
// timeout has elapsed moves to HalfOpen here and lets the caller through.
func (b *CircuitBreaker) IsOpen() bool {
	st := b.update(func(st *BreakerState) bool {
		if st.State != BreakerOpen || st.OpenedAt == nil {
			return false
		}
		if b.now().Sub(*st.OpenedAt) >= b.timeout {
			st.State = BreakerHalfOpen
			slog.Info("circuit breaker: half-open, probing provider")
			return true
		}
		return false
	})
	return st.State == BreakerOpen
}

// RecordSuccess closes the breaker and clears the failure history.
func (b *CircuitBreaker) RecordSuccess() {
	b.update(func(st *BreakerState) bool {
		if st.State == BreakerHalfOpen {
			slog.Info("circuit breaker: provider recovered, closing")
		}
		st.State = BreakerClosed
		st.FailureCount = 0
		st.LastFailureTime = nil
		st.OpenedAt = nil
		return true
	})
}

// RecordFailure counts a failure. A failed HalfOpen trial call reopens the
// breaker immediately; otherwise it opens once the threshold is reached.
func (b *CircuitBreaker) RecordFailure() {
	b.update(func(st *BreakerState) bool {
		now := b.now()
		st.FailureCount++
		st.LastFailureTime = &now
		if st.State == BreakerHalfOpen || st.FailureCount >= b.threshold {
			if st.State != BreakerOpen {
				slog.Warn("circuit breaker: opening",
					slog.Int("failures", st.FailureCount), slog.Duration("timeout", b.timeout))
			}
			st.State = BreakerOpen
			st.OpenedAt = &now
		}
		return true
	})
}

// Reset returns the breaker to a fresh Closed state.
func (b *CircuitBreaker) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.flock.lock(breakerLockTimeout); err != nil {
		slog.Warn("circuit breaker: file lock unavailable, continuing unlocked",
			slog.String("path", b.path), slog.Any("error", err))
	} else {
		defer b.flock.unlock()
	}
	if err := b.save(freshBreakerState()); err != nil {
		return fmt.Errorf("circuit breaker: reset: %w", err)
	}
	return nil
}

// State returns the persisted state without applying the lazy transition.
func (b *CircuitBreaker) State() BreakerState {
	return b.update(func(*BreakerState) bool { return false })
}

// Stats describes the breaker for diagnostics.
func (b *CircuitBreaker) Stats() BreakerStats {
	st := b.State()
	out := BreakerStats{
		State:        st.State,
		FailureCount: st.FailureCount,
		Threshold:    b.threshold,
		TimeoutHours: b.timeout.Hours(),
		LastFailure:  st.LastFailureTime,
		OpenedAt:     st.OpenedAt,
	}
	if st.OpenedAt != nil {
		remaining := max(0, (b.timeout - b.now().Sub(*st.OpenedAt)).Hours())
		out.RemainingHours = &remaining
	}
	return out
}
