package timer

import (
	"sync"
	"time"
)

// Alarm is a Driver that calls fire once per interval from its own
// goroutine. fire must hand the tick to the engine's owner rather than
// calling Tick directly, and must not block: Stop waits for it.
type Alarm struct {
	interval time.Duration
	fire     func()

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// NewAlarm returns a stopped Alarm.
func NewAlarm(interval time.Duration, fire func()) *Alarm {
	if interval <= 0 {
		interval = time.Second
	}
	return &Alarm{interval: interval, fire: fire}
}

// Start (re)starts the alarm. Any previous tick stream is stopped first so
// streams never overlap.
func (a *Alarm) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()

	stop, done := make(chan struct{}), make(chan struct{})
	a.stop, a.done = stop, done
	go func() {
		defer close(done)
		t := time.NewTicker(a.interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				a.fire()
			}
		}
	}()
}

// Stop stops the alarm. Once it returns, fire is not called again until the
// next Start. Stopping a stopped alarm is a no-op.
func (a *Alarm) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Running reports whether the alarm is started.
func (a *Alarm) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stop != nil
}

func (a *Alarm) stopLocked() {
	if a.stop != nil {
		close(a.stop)
		<-a.done
		a.stop, a.done = nil, nil
	}
}
