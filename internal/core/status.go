package core

import (
	"sync"
	"time"
)

// Phase is the state of one surface's most recent operation.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseError   Phase = "error"
	PhaseSuccess Phase = "success"
)

// Status describes the last operation run on a surface. Count is the
// number of sheets imported or rows exported.
type Status struct {
	Phase       Phase     `json:"phase"`
	OperationID string    `json:"operation_id,omitempty"`
	Message     string    `json:"message,omitempty"`
	Code        string    `json:"code,omitempty"`
	Count       int       `json:"count"`
	Sheets      []string  `json:"sheets,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// statusTracker holds a surface's Status and fans updates out to
// subscribers.
type statusTracker struct {
	mu        sync.RWMutex
	status    Status
	listeners []chan Status
	now       func() time.Time
}

func newStatusTracker(now func() time.Time) *statusTracker {
	return &statusTracker{status: Status{Phase: PhaseIdle}, now: now}
}

func (t *statusTracker) get() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s := t.status
	s.Sheets = append([]string(nil), s.Sheets...)
	return s
}

func (t *statusTracker) set(s Status) {
	s.UpdatedAt = t.now()

	t.mu.Lock()
	t.status = s
	listeners := append([]chan Status(nil), t.listeners...)
	t.mu.Unlock()

	for _, ch := range listeners {
		// Slow subscribers miss intermediate states, never the latest one.
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

func (t *statusTracker) loading(opID string) {
	t.set(Status{Phase: PhaseLoading, OperationID: opID})
}

func (t *statusTracker) fail(opID string, err error) {
	msg := MapError(err)
	t.set(Status{Phase: PhaseError, OperationID: opID, Message: FormatStatusError(err), Code: msg.Code})
}

func (t *statusTracker) succeed(opID string, count int, sheets []string) {
	t.set(Status{Phase: PhaseSuccess, OperationID: opID, Count: count, Sheets: sheets})
}

// subscribe returns a channel receiving every later status and a function
// that ends the subscription.
func (t *statusTracker) subscribe() (<-chan Status, func()) {
	ch := make(chan Status, 1)
	t.mu.Lock()
	t.listeners = append(t.listeners, ch)
	t.mu.Unlock()

	return ch, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		for i, l := range t.listeners {
			if l == ch {
				t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
				break
			}
		}
	}
}
