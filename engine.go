package idle

import (
	"sync"
	"time"
)

// Phase enumerates the states of an idle episode. Exactly one phase holds
// at any instant; transitions move forward (active, warning, expired)
// except for an explicit Reset.
type Phase string

const (
	PhaseDisabled Phase = "disabled"
	PhaseActive   Phase = "active"
	PhaseWarning  Phase = "warning"
	PhaseExpired  Phase = "expired"
)

// EngineOption customizes engine construction.
type EngineOption func(*Engine)

// WithEngineClock injects a custom clock (useful for tests).
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithEngineScheduler overrides the deadline scheduler.
func WithEngineScheduler(s Scheduler) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.sched = s
		}
	}
}

// WithEngineLogger overrides the logger.
func WithEngineLogger(logger Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithTickInterval overrides the warning countdown cadence.
func WithTickInterval(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.tickEvery = d
		}
	}
}

// WithOnWarning registers the warning-phase callback. It receives the time
// remaining until expiry. Callbacks run on the scheduler goroutine after
// the transition committed and outside the engine mutex, so they may call
// back into the engine.
func WithOnWarning(fn func(remaining time.Duration)) EngineOption {
	return func(e *Engine) {
		e.onWarning = fn
	}
}

// WithOnTick registers the countdown callback, invoked once per tick
// interval while the engine is in the warning phase.
func WithOnTick(fn func(remaining time.Duration)) EngineOption {
	return func(e *Engine) {
		e.onTick = fn
	}
}

// WithOnTimeout registers the expiry callback. It fires at most once per
// idle episode.
func WithOnTimeout(fn func()) EngineOption {
	return func(e *Engine) {
		e.onTimeout = fn
	}
}

// WithOnActive registers the callback invoked when a Reset re-enters the
// active phase from the warning phase.
func WithOnActive(fn func()) EngineOption {
	return func(e *Engine) {
		e.onActive = fn
	}
}

// Engine is the idle timeout state machine. It exclusively owns the idle
// clock: the last-activity timestamp and the warning/expiry deadlines
// derived from it. Deadline callbacks carry the generation they were
// scheduled under and self-cancel when a Reset or disable has superseded
// them, so cancellation is atomic with respect to re-scheduling.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	now       func() time.Time
	sched     Scheduler
	logger    Logger
	tickEvery time.Duration

	phase        Phase
	generation   uint64
	lastActivity time.Time
	expiresAt    time.Time

	warningTimer Timer
	expiryTimer  Timer
	ticker       Ticker

	onWarning func(remaining time.Duration)
	onTick    func(remaining time.Duration)
	onTimeout func()
	onActive  func()
}

// NewEngine validates the configuration and returns an engine. If the
// configuration is enabled the engine arms itself immediately, otherwise it
// stays inert until SetEnabled(true).
func NewEngine(cfg Config, opts ...EngineOption) (*Engine, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		now:       time.Now,
		sched:     timerScheduler{},
		logger:    defLogger{},
		tickEvery: DefaultTickInterval,
		phase:     PhaseDisabled,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if cfg.Enabled {
		e.mu.Lock()
		e.rearmLocked()
		e.mu.Unlock()
	}

	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Phase returns the current episode phase.
func (e *Engine) Phase() Phase {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase
}

// Enabled reports whether the engine is armed.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.phase != PhaseDisabled
}

// LastActivity returns the timestamp of the most recent Reset.
func (e *Engine) LastActivity() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastActivity
}

// Remaining returns the time left until the expiry deadline. It is zero
// once the episode expired or while the engine is disabled.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

// RemainingSeconds returns Remaining rounded up to whole seconds, so the
// published countdown starts at the full warning window and reaches exactly
// zero at the expiry instant.
func (e *Engine) RemainingSeconds() int {
	return ceilSeconds(e.Remaining())
}

// Reset records fresh activity: it cancels the pending deadlines, marks now
// as the last activity, re-schedules warning and expiry, and returns the
// phase to active. It reports the phase it superseded so callers observing
// "was this a warning dismissal" see the same phase the reset acted on.
// The activity callback fires only when leaving the warning phase. Reset
// on a disabled engine is a no-op.
func (e *Engine) Reset() Phase {
	e.mu.Lock()
	prior := e.phase
	if prior == PhaseDisabled {
		e.mu.Unlock()
		return prior
	}
	e.rearmLocked()
	cb := e.onActive
	e.mu.Unlock()

	if prior == PhaseWarning && cb != nil {
		cb()
	}
	return prior
}

// SetEnabled arms or disarms the engine. Disabling releases every pending
// deadline and the countdown ticker; enabling an already enabled engine is
// a no-op so flipping authentication twice cannot silently extend a
// session.
func (e *Engine) SetEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !enabled {
		if e.phase == PhaseDisabled {
			return
		}
		e.generation++
		e.cancelLocked()
		e.phase = PhaseDisabled
		return
	}

	if e.phase != PhaseDisabled {
		return
	}
	e.rearmLocked()
}

// rearmLocked bumps the generation before cancelling so that any deadline
// callback already in flight fails its generation check.
func (e *Engine) rearmLocked() {
	e.generation++
	gen := e.generation
	e.cancelLocked()

	now := e.now()
	e.lastActivity = now
	e.expiresAt = now.Add(e.cfg.Timeout())
	e.phase = PhaseActive

	e.warningTimer = e.sched.AfterFunc(e.cfg.Timeout()-e.cfg.Warning(), func() { e.warn(gen) })
	e.expiryTimer = e.sched.AfterFunc(e.cfg.Timeout(), func() { e.expire(gen) })
}

func (e *Engine) cancelLocked() {
	if e.warningTimer != nil {
		e.warningTimer.Stop()
		e.warningTimer = nil
	}
	if e.expiryTimer != nil {
		e.expiryTimer.Stop()
		e.expiryTimer = nil
	}
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

func (e *Engine) warn(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.phase != PhaseActive {
		e.mu.Unlock()
		return
	}

	e.phase = PhaseWarning
	e.ticker = e.sched.TickEvery(e.tickEvery, func() { e.tick(gen) })
	cb := e.onWarning
	remaining := e.remainingLocked()
	e.mu.Unlock()

	if cb != nil {
		cb(remaining)
	}
}

func (e *Engine) tick(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.phase != PhaseWarning {
		e.mu.Unlock()
		return
	}

	cb := e.onTick
	remaining := e.remainingLocked()
	e.mu.Unlock()

	if cb != nil {
		cb(remaining)
	}
}

func (e *Engine) expire(gen uint64) {
	e.mu.Lock()
	if gen != e.generation || e.phase != PhaseWarning && e.phase != PhaseActive {
		e.mu.Unlock()
		return
	}

	e.phase = PhaseExpired
	e.cancelLocked()
	cb := e.onTimeout
	e.mu.Unlock()

	if cb != nil {
		cb()
	}
}

func (e *Engine) remainingLocked() time.Duration {
	if e.phase == PhaseDisabled || e.phase == PhaseExpired {
		return 0
	}
	d := e.expiresAt.Sub(e.now())
	if d < 0 {
		return 0
	}
	return d
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
