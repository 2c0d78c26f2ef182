package idle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the read-only contract consumed by presentation surfaces. It
// carries no behavior; user choices feed back through ResetTimer and
// RequestLogout on the coordinator.
type State struct {
	IsWarning        bool `json:"is_warning"`
	RemainingSeconds int  `json:"remaining_seconds"`
	IsEnabled        bool `json:"is_enabled"`
}

// CoordinatorOption customizes coordinator construction.
type CoordinatorOption func(*Coordinator)

// WithSink sets the compliance sink lifecycle events are recorded into.
func WithSink(sink Sink) CoordinatorOption {
	return func(c *Coordinator) {
		c.sink = normalizeSink(sink)
	}
}

// WithSignalSource attaches an activity monitor over the given source.
func WithSignalSource(source SignalSource) CoordinatorOption {
	return func(c *Coordinator) {
		c.source = source
	}
}

// WithMonitorOptions forwards options to the attached monitor.
func WithMonitorOptions(opts ...MonitorOption) CoordinatorOption {
	return func(c *Coordinator) {
		c.monitorOpts = append(c.monitorOpts, opts...)
	}
}

// WithSubject sets the session subject attached to compliance events.
func WithSubject(subject string) CoordinatorOption {
	return func(c *Coordinator) {
		c.subject = subject
	}
}

// WithCoordinatorLogger overrides the logger.
func WithCoordinatorLogger(logger Logger) CoordinatorOption {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithCoordinatorClock injects a custom clock (useful for tests).
func WithCoordinatorClock(clock func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithCoordinatorScheduler overrides the engine's deadline scheduler.
func WithCoordinatorScheduler(s Scheduler) CoordinatorOption {
	return func(c *Coordinator) {
		if s != nil {
			c.sched = s
		}
	}
}

// WithCoordinatorTickInterval overrides the warning countdown cadence.
func WithCoordinatorTickInterval(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.tickEvery = d
		}
	}
}

// Coordinator scopes one Engine to an authenticated session. It wires the
// engine to the logout collaborator and the compliance sink, guarantees at
// most one logout per idle episode regardless of trigger, and publishes a
// stable State for presentation surfaces.
type Coordinator struct {
	cfg    Config
	logout LogoutFunc
	sink   Sink
	logger Logger
	now    func() time.Time

	engine  *Engine
	monitor *Monitor

	source      SignalSource
	monitorOpts []MonitorOption
	sched       Scheduler
	tickEvery   time.Duration

	mu          sync.Mutex
	subject     string
	enabled     bool
	episodeID   uuid.UUID
	loggedOut   bool
	isWarning   bool
	remaining   int
	watchers    map[int]chan State
	nextWatcher int
	closed      bool
}

// NewCoordinator validates the configuration and wires a coordinator. The
// logout collaborator is mandatory; sink and signal source are optional.
// If the configuration is enabled the idle episode starts immediately.
func NewCoordinator(cfg Config, logout LogoutFunc, opts ...CoordinatorOption) (*Coordinator, error) {
	if logout == nil {
		return nil, ErrNilLogout
	}

	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Coordinator{
		cfg:       cfg,
		logout:    logout,
		sink:      noopSink{},
		logger:    defLogger{},
		now:       time.Now,
		enabled:   cfg.Enabled,
		episodeID: uuid.New(),
		remaining: ceilSeconds(cfg.Timeout()),
		watchers:  map[int]chan State{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	engineOpts := []EngineOption{
		WithEngineClock(c.now),
		WithEngineLogger(c.logger),
		WithOnWarning(c.handleWarning),
		WithOnTick(c.handleTick),
		WithOnTimeout(c.handleTimeout),
		WithOnActive(c.handleActive),
	}
	if c.sched != nil {
		engineOpts = append(engineOpts, WithEngineScheduler(c.sched))
	}
	if c.tickEvery > 0 {
		engineOpts = append(engineOpts, WithTickInterval(c.tickEvery))
	}

	engine, err := NewEngine(cfg, engineOpts...)
	if err != nil {
		return nil, err
	}
	c.engine = engine

	if c.source != nil {
		monitorOpts := append([]MonitorOption{WithMonitorClock(c.now)}, c.monitorOpts...)
		monitor, err := NewMonitor(c.source, c.activity, monitorOpts...)
		if err != nil {
			return nil, err
		}
		c.monitor = monitor
		if cfg.Enabled {
			if err := monitor.Start(); err != nil {
				return nil, err
			}
		}
	}

	return c, nil
}

// Config returns the configuration the coordinator was built with.
func (c *Coordinator) Config() Config {
	return c.cfg
}

// EpisodeID identifies the current idle episode in compliance events.
func (c *Coordinator) EpisodeID() uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.episodeID
}

// SetSubject updates the session subject attached to compliance events.
func (c *Coordinator) SetSubject(subject string) {
	c.mu.Lock()
	c.subject = subject
	c.mu.Unlock()
}

// State returns the current published snapshot.
func (c *Coordinator) State() State {
	remaining := c.engine.RemainingSeconds()

	c.mu.Lock()
	defer c.mu.Unlock()
	state := c.stateLocked()
	if !state.IsWarning {
		state.RemainingSeconds = remaining
	}
	return state
}

// Watch returns a channel of state snapshots, primed with the current
// state, plus an unsubscribe function. Slow consumers miss intermediate
// snapshots rather than blocking the state machine.
func (c *Coordinator) Watch() (<-chan State, func()) {
	c.mu.Lock()
	ch := make(chan State, 8)
	c.nextWatcher++
	id := c.nextWatcher
	c.watchers[id] = ch
	ch <- c.stateLocked()
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		if w, ok := c.watchers[id]; ok {
			delete(c.watchers, id)
			close(w)
		}
		c.mu.Unlock()
	}
}

// SetAuthenticated follows the externally driven authentication state.
// Becoming authenticated arms the engine and starts a fresh episode;
// becoming unauthenticated releases every schedule and subscription, after
// which no warning, timeout, or logout can fire.
func (c *Coordinator) SetAuthenticated(authenticated bool) {
	if authenticated {
		c.mu.Lock()
		if c.enabled || c.closed {
			c.mu.Unlock()
			return
		}
		c.enabled = true
		c.newEpisodeLocked()
		state := c.stateLocked()
		c.mu.Unlock()

		c.engine.SetEnabled(true)
		if c.monitor != nil {
			if err := c.monitor.Start(); err != nil {
				c.logger.Warn("activity monitor start: %v", err)
			}
		}
		c.publish(state)
		return
	}

	c.engine.SetEnabled(false)
	if c.monitor != nil {
		c.monitor.Stop()
	}

	c.mu.Lock()
	c.enabled = false
	c.isWarning = false
	c.remaining = 0
	state := c.stateLocked()
	c.mu.Unlock()
	c.publish(state)
}

// ResetTimer is the sole re-arming entry point. It restarts the full idle
// window, clears the warning, and begins a new episode. Invoked from the
// warning phase it records the user's choice to stay logged in.
func (c *Coordinator) ResetTimer(ctx context.Context) {
	wasWarning := c.engine.Reset() == PhaseWarning

	c.mu.Lock()
	var ev Event
	if wasWarning {
		ev = c.eventLocked(EventStayLoggedIn, nil)
	}
	c.isWarning = false
	c.newEpisodeLocked()
	state := c.stateLocked()
	c.mu.Unlock()

	if wasWarning {
		c.record(ctx, ev)
	}
	c.publish(state)
}

// RequestLogout handles the user's explicit "logout now" choice from the
// warning surface. It goes through the same idempotent path as the
// engine's own expiry, so a concurrent deadline cannot double-fire the
// collaborator or duplicate audit entries.
func (c *Coordinator) RequestLogout(ctx context.Context) error {
	return c.terminate(ctx, EventWarningLogout, nil)
}

// ForceLogout terminates the session on behalf of an operator, audited
// with the supplied reason.
func (c *Coordinator) ForceLogout(ctx context.Context, reason string) error {
	var metadata map[string]any
	if reason != "" {
		metadata = map[string]any{"reason": reason}
	}
	return c.terminate(ctx, EventForcedLogout, metadata)
}

// Close releases all scheduled work, signal subscriptions, and watcher
// channels. The coordinator must not be used afterwards.
func (c *Coordinator) Close() {
	c.engine.SetEnabled(false)
	if c.monitor != nil {
		c.monitor.Stop()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.enabled = false
	for id, ch := range c.watchers {
		delete(c.watchers, id)
		close(ch)
	}
}

func (c *Coordinator) terminate(ctx context.Context, name string, metadata map[string]any) error {
	c.mu.Lock()
	already := c.loggedOut
	c.loggedOut = true
	c.isWarning = false
	c.remaining = 0
	c.enabled = false
	var ev Event
	if !already {
		ev = c.eventLocked(name, metadata)
	}
	state := c.stateLocked()
	c.mu.Unlock()

	c.engine.SetEnabled(false)
	c.publish(state)

	if already {
		return nil
	}

	c.record(ctx, ev)
	return c.logout(ctx)
}

// Touch records user activity observed outside the monitor's signal set,
// e.g. an authenticated HTTP request. With a monitor attached the pulse is
// subject to the same debounce window.
func (c *Coordinator) Touch() {
	if c.monitor != nil {
		c.monitor.Pulse()
		return
	}
	c.activity()
}

// activity receives debounced pulses from the monitor. During the warning
// phase a pulse only dismisses the warning; the deadlines stay armed and
// only ResetTimer reschedules them. While active, a pulse refreshes the
// engine's idle clock.
func (c *Coordinator) activity() {
	c.mu.Lock()
	if c.isWarning {
		c.isWarning = false
		state := c.stateLocked()
		c.mu.Unlock()
		c.publish(state)
		return
	}
	c.mu.Unlock()

	if c.engine.Phase() == PhaseActive {
		c.engine.Reset()
	}
}

func (c *Coordinator) handleWarning(remaining time.Duration) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.isWarning = true
	c.remaining = ceilSeconds(remaining)
	ev := c.eventLocked(EventWarningShown, map[string]any{
		"timeout_minutes": c.cfg.TimeoutMinutes,
		"warning_minutes": c.cfg.WarningMinutes,
	})
	state := c.stateLocked()
	c.mu.Unlock()

	c.record(context.Background(), ev)
	c.publish(state)
}

func (c *Coordinator) handleTick(remaining time.Duration) {
	c.mu.Lock()
	if c.closed || !c.isWarning {
		c.mu.Unlock()
		return
	}
	c.remaining = ceilSeconds(remaining)
	state := c.stateLocked()
	c.mu.Unlock()

	c.publish(state)
}

func (c *Coordinator) handleTimeout() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.isWarning = false
	c.remaining = 0
	c.enabled = false
	already := c.loggedOut
	c.loggedOut = true
	var ev Event
	if !already {
		ev = c.eventLocked(EventTimeoutLogout, nil)
	}
	state := c.stateLocked()
	c.mu.Unlock()

	c.engine.SetEnabled(false)
	c.publish(state)
	if already {
		return
	}

	ctx := context.Background()
	c.record(ctx, ev)
	if err := c.logout(ctx); err != nil {
		c.logger.Error("logout collaborator error: %v", err)
	}
}

func (c *Coordinator) handleActive() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.isWarning = false
	state := c.stateLocked()
	c.mu.Unlock()

	c.publish(state)
}

func (c *Coordinator) newEpisodeLocked() {
	c.episodeID = uuid.New()
	c.loggedOut = false
	c.remaining = ceilSeconds(c.cfg.Timeout())
}

func (c *Coordinator) stateLocked() State {
	return State{
		IsWarning:        c.isWarning,
		RemainingSeconds: c.remaining,
		IsEnabled:        c.enabled,
	}
}

func (c *Coordinator) eventLocked(name string, metadata map[string]any) Event {
	return Event{
		Name:       name,
		EpisodeID:  c.episodeID,
		Subject:    c.subject,
		Metadata:   metadata,
		OccurredAt: c.now(),
	}
}

// record is best-effort: a failing sink is logged and never propagated
// into the timer state machine or allowed to delay logout.
func (c *Coordinator) record(ctx context.Context, event Event) {
	if err := c.sink.Record(ctx, event); err != nil {
		c.logger.Warn("compliance sink error: %v", err)
	}
}

func (c *Coordinator) publish(state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- state:
		default:
		}
	}
}
