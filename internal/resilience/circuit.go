// Package resilience guards calls to AI providers with retry and per-platform
// circuit breaking.
package resilience

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a platform circuit breaker.
type BreakerState int

const (
	// BreakerClosed lets calls through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls until the reset timeout elapses.
	BreakerOpen
	// BreakerHalfOpen lets probe calls through.
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

// ErrCircuitOpen is returned without calling the provider while its breaker is open.
var ErrCircuitOpen = eris.New("circuit breaker is open")

// BreakerConfig controls a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive counted failures that
	// opens the breaker.
	FailureThreshold int

	// ResetTimeout is how long the breaker stays open before probing.
	ResetTimeout time.Duration

	// HalfOpenSuccesses closes a half-open breaker.
	HalfOpenSuccesses int

	// Counts decides which errors count as failures. Defaults to IsTransient,
	// so a 400 for one bad prompt does not take the platform offline.
	Counts func(err error) bool

	// OnStateChange observes transitions.
	OnStateChange func(name string, from, to BreakerState)
}

// DefaultBreakerConfig returns the defaults used when no fan-out settings apply.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold:  6,
		ResetTimeout:      30 * time.Second,
		HalfOpenSuccesses: 1,
	}
}

// Breaker is a circuit breaker for one platform.
type Breaker struct {
	name string
	cfg  BreakerConfig

	mu           sync.Mutex
	state        BreakerState
	failures     int
	openedAt     time.Time
	probesPassed int

	now func() time.Time
}

// NewBreaker creates a closed breaker.
func NewBreaker(name string, cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = def.FailureThreshold
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = def.ResetTimeout
	}
	if cfg.HalfOpenSuccesses <= 0 {
		cfg.HalfOpenSuccesses = def.HalfOpenSuccesses
	}
	if cfg.Counts == nil {
		cfg.Counts = IsTransient
	}
	return &Breaker{name: name, cfg: cfg, now: time.Now}
}

// Name returns the platform the breaker guards.
func (b *Breaker) Name() string {
	return b.name
}

// Call runs fn unless the breaker is open.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.allow(); err != nil {
		return zero, err
	}
	val, err := fn(ctx)
	b.record(ctx, err)
	return val, err
}

// State returns the current state, reporting half-open once the reset
// timeout has elapsed on an open breaker.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = 0
	b.probesPassed = 0
	b.setState(BreakerClosed)
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return nil
	}
	if b.now().Sub(b.openedAt) >= b.cfg.ResetTimeout {
		b.setState(BreakerHalfOpen)
		return nil
	}
	return eris.Wrapf(ErrCircuitOpen, "%s", b.name)
}

func (b *Breaker) record(ctx context.Context, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// The caller giving up says nothing about the provider.
	failed := err != nil && ctx.Err() == nil && b.cfg.Counts(err)
	if !failed {
		b.failures = 0
		if b.state == BreakerHalfOpen {
			b.probesPassed++
			if b.probesPassed >= b.cfg.HalfOpenSuccesses {
				b.probesPassed = 0
				b.setState(BreakerClosed)
			}
		}
		return
	}

	b.failures++
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.openedAt = b.now()
			b.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.probesPassed = 0
		b.openedAt = b.now()
		b.setState(BreakerOpen)
	}
}

func (b *Breaker) setState(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	zap.L().Info("platform breaker state change",
		zap.String("platform", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.name, from, to)
	}
}

// BreakerSet holds one breaker per platform. It is shared across runs in a
// process so an outage observed by one run protects the others.
type BreakerSet struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*Breaker
}

// NewBreakerSet creates an empty set.
func NewBreakerSet(cfg BreakerConfig) *BreakerSet {
	return &BreakerSet{cfg: cfg, breakers: make(map[string]*Breaker)}
}

// For returns the breaker for platform, creating it on first use.
func (s *BreakerSet) For(platform string) *Breaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.breakers[platform]
	if !ok {
		b = NewBreaker(platform, s.cfg)
		s.breakers[platform] = b
	}
	return b
}

// States returns a snapshot sorted by platform name.
func (s *BreakerSet) States() []PlatformState {
	s.mu.Lock()
	names := make([]string, 0, len(s.breakers))
	for name := range s.breakers {
		names = append(names, name)
	}
	s.mu.Unlock()
	sort.Strings(names)

	out := make([]PlatformState, 0, len(names))
	for _, name := range names {
		out = append(out, PlatformState{Platform: name, State: s.For(name).State().String()})
	}
	return out
}

// PlatformState is a breaker snapshot entry.
type PlatformState struct {
	Platform string `json:"platform"`
	State    string `json:"state"`
}
