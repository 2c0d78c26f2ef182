package idle

import (
	"sync"
	"time"
)

// SignalType names a user-interaction signal. The set is fixed; the core
// only cares that a pulse occurred, never about signal payloads.
type SignalType string

const (
	SignalPointerMove SignalType = "pointer.move"
	SignalKeyPress    SignalType = "key.press"
	SignalPointerDown SignalType = "pointer.down"
	SignalScroll      SignalType = "scroll"
	SignalTouch       SignalType = "touch"
)

// SignalTypes returns the interaction signals a monitor observes.
func SignalTypes() []SignalType {
	return []SignalType{
		SignalPointerMove,
		SignalKeyPress,
		SignalPointerDown,
		SignalScroll,
		SignalTouch,
	}
}

// SignalSource delivers named interaction signals from whatever surface the
// host application runs on. Subscribe returns an unsubscribe function.
type SignalSource interface {
	Subscribe(signal SignalType, fn func()) (func(), error)
}

// SignalBus is an in-process SignalSource. Adapters translate toolkit
// events into Emit calls; the bus fans them out to subscribers.
type SignalBus struct {
	mu     sync.Mutex
	subs   map[SignalType]map[int]func()
	nextID int
}

// NewSignalBus returns an empty bus.
func NewSignalBus() *SignalBus {
	return &SignalBus{
		subs: map[SignalType]map[int]func(){},
	}
}

// Subscribe implements SignalSource.
func (b *SignalBus) Subscribe(signal SignalType, fn func()) (func(), error) {
	if fn == nil {
		return func() {}, nil
	}

	b.mu.Lock()
	if b.subs[signal] == nil {
		b.subs[signal] = map[int]func(){}
	}
	b.nextID++
	id := b.nextID
	b.subs[signal][id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs[signal], id)
		b.mu.Unlock()
	}, nil
}

// Emit delivers a signal to every subscriber of its type.
func (b *SignalBus) Emit(signal SignalType) {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.subs[signal]))
	for _, fn := range b.subs[signal] {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// MonitorOption customizes monitor construction.
type MonitorOption func(*Monitor)

// WithDebounceWindow overrides the pulse coalescing window.
func WithDebounceWindow(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithMonitorClock injects a custom clock (useful for tests).
func WithMonitorClock(clock func() time.Time) MonitorOption {
	return func(m *Monitor) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithMonitorSignals restricts the observed signal types.
func WithMonitorSignals(signals ...SignalType) MonitorOption {
	return func(m *Monitor) {
		if len(signals) > 0 {
			m.signals = signals
		}
	}
}

// Monitor observes interaction signals and emits a debounced activity
// pulse: a burst of rapid signals (e.g. continuous pointer movement)
// collapses into one pulse per debounce window. It has no side effects
// beyond pulse emission.
type Monitor struct {
	mu      sync.Mutex
	source  SignalSource
	signals []SignalType
	window  time.Duration
	now     func() time.Time

	onPulse   func()
	unsubs    []func()
	started   bool
	lastPulse time.Time
}

// NewMonitor wires a monitor to a signal source. The pulse callback fires
// on the emitting goroutine.
func NewMonitor(source SignalSource, onPulse func(), opts ...MonitorOption) (*Monitor, error) {
	if source == nil {
		return nil, ErrNilSignalSource
	}

	m := &Monitor{
		source:  source,
		signals: SignalTypes(),
		window:  DefaultDebounceWindow,
		now:     time.Now,
		onPulse: onPulse,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m, nil
}

// Start subscribes to every observed signal type. Starting a running
// monitor is an error; the subscriptions would double up.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrMonitorStarted
	}

	unsubs := make([]func(), 0, len(m.signals))
	for _, signal := range m.signals {
		unsub, err := m.source.Subscribe(signal, m.signalled)
		if err != nil {
			for _, u := range unsubs {
				u()
			}
			return err
		}
		unsubs = append(unsubs, unsub)
	}

	m.unsubs = unsubs
	m.started = true
	m.lastPulse = time.Time{}
	return nil
}

// Stop unsubscribes from all signal types. It is idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	unsubs := m.unsubs
	m.unsubs = nil
	m.started = false
	m.mu.Unlock()

	for _, unsub := range unsubs {
		if unsub != nil {
			unsub()
		}
	}
}

// Started reports whether the monitor is observing signals.
func (m *Monitor) Started() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

// Pulse injects a synthetic activity pulse, subject to the same debounce
// window as observed signals. Server-side adapters use it to count an
// authenticated request as user activity.
func (m *Monitor) Pulse() {
	m.signalled()
}

func (m *Monitor) signalled() {
	m.mu.Lock()
	now := m.now()
	if !m.lastPulse.IsZero() && now.Sub(m.lastPulse) < m.window {
		m.mu.Unlock()
		return
	}
	m.lastPulse = now
	cb := m.onPulse
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
}
