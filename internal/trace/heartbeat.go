package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a driver-scope event at a fixed interval so a hung rewrite
// shows up in the trace as beats without span ends.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat returns nil when t is disabled or interval is not positive.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		start := time.Now()
		for beat := 1; ; beat++ {
			select {
			case now := <-ticker.C:
				t.Emit(&Event{
					Time:   now,
					Kind:   KindHeartbeat,
					Scope:  ScopeDriver,
					Name:   "heartbeat",
					Detail: "#" + strconv.Itoa(beat),
					Extra:  map[string]string{"uptime": now.Sub(start).Round(time.Millisecond).String()},
				})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for the goroutine. It is safe to call
// more than once and on nil.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
