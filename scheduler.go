package idle

import (
	"sync"
	"time"
)

// Scheduler abstracts deadline callbacks and countdown tickers so tests can
// drive time manually. The default implementation is backed by the runtime
// timer wheel.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	TickEvery(d time.Duration, fn func()) Ticker
}

// Timer is a cancellable scheduled callback.
type Timer interface {
	Stop() bool
}

// Ticker is a cancellable repeating callback.
type Ticker interface {
	Stop()
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (timerScheduler) TickEvery(d time.Duration, fn func()) Ticker {
	t := &tickHandle{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-t.ticker.C:
				fn()
			case <-t.done:
				return
			}
		}
	}()
	return t
}

type tickHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *tickHandle) Stop() {
	t.once.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}
