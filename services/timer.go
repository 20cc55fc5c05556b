package services

import (
	"sync"
	"time"
)

// TimerPayload round-trips channel and slot identifiers through the host
// timer so the fire handler can re-derive current settings instead of
// reusing values captured at arm time.
type TimerPayload struct {
	UserID  string `json:"userId"`
	Channel string `json:"channel"`
	Slot    string `json:"slot,omitempty"`
}

// Timer is the host scheduling primitive. Registering an id that is already
// scheduled replaces the earlier registration; Cancel of an unknown or
// already-fired id is a no-op.
type Timer interface {
	ScheduleOnce(id string, at time.Time, payload TimerPayload) error
	ScheduleRepeating(id string, first time.Time, interval time.Duration, payload TimerPayload) error
	Cancel(id string)
}

// ClockTimer implements Timer on the runtime clock. The fire handler is
// bound once at startup, before anything is scheduled.
type ClockTimer struct {
	mu      sync.Mutex
	handler func(TimerPayload)
	stops   map[string]func()
}

func NewClockTimer() *ClockTimer {
	return &ClockTimer{stops: make(map[string]func())}
}

var _ Timer = (*ClockTimer)(nil)

// SetHandler binds the fire callback.
func (t *ClockTimer) SetHandler(h func(TimerPayload)) {
	t.mu.Lock()
	t.handler = h
	t.mu.Unlock()
}

func (t *ClockTimer) fire(p TimerPayload) {
	t.mu.Lock()
	h := t.handler
	t.mu.Unlock()
	if h != nil {
		h(p)
	}
}

func (t *ClockTimer) ScheduleOnce(id string, at time.Time, payload TimerPayload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop, ok := t.stops[id]; ok {
		stop()
	}
	tm := time.AfterFunc(time.Until(at), func() {
		t.mu.Lock()
		delete(t.stops, id)
		t.mu.Unlock()
		t.fire(payload)
	})
	t.stops[id] = func() { tm.Stop() }
	return nil
}

func (t *ClockTimer) ScheduleRepeating(id string, first time.Time, interval time.Duration, payload TimerPayload) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop, ok := t.stops[id]; ok {
		stop()
	}
	done := make(chan struct{})
	tm := time.AfterFunc(time.Until(first), func() {
		t.fire(payload)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.fire(payload)
			case <-done:
				return
			}
		}
	})
	var once sync.Once
	t.stops[id] = func() {
		tm.Stop()
		once.Do(func() { close(done) })
	}
	return nil
}

func (t *ClockTimer) Cancel(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop, ok := t.stops[id]; ok {
		stop()
		delete(t.stops, id)
	}
}
