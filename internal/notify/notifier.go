// Package notify holds the single transient user-facing message.
//
// A message stays visible for a fixed duration. Showing a new message
// supersedes the current one and cancels its pending clear.
package notify

import (
	"sync"
	"time"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

const DefaultDuration = 5 * time.Second

type Notification struct {
	Kind      Kind      `json:"type"`
	Message   string    `json:"message"`
	ShownAt   time.Time `json:"shownAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Notifier struct {
	mu       sync.Mutex
	duration time.Duration
	current  *Notification
	timer    *time.Timer
	seq      uint64
	now      func() time.Time
}

func New(duration time.Duration) *Notifier {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &Notifier{duration: duration, now: time.Now}
}

func (n *Notifier) Success(msg string) { n.Show(KindSuccess, msg) }

func (n *Notifier) Error(msg string) { n.Show(KindError, msg) }

// Show replaces the visible message and reschedules the auto-clear.
func (n *Notifier) Show(kind Kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}

	n.seq++
	seq := n.seq
	now := n.now()
	n.current = &Notification{
		Kind:      kind,
		Message:   msg,
		ShownAt:   now,
		ExpiresAt: now.Add(n.duration),
	}
	n.timer = time.AfterFunc(n.duration, func() { n.expire(seq) })
}

// expire clears the message only if it is still the one that scheduled it;
// a timer that fired concurrently with Show must not clear the newer message.
func (n *Notifier) expire(seq uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.seq != seq {
		return
	}
	n.current = nil
	n.timer = nil
}

// Current returns the visible message, if any.
func (n *Notifier) Current() (Notification, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.current == nil {
		return Notification{}, false
	}
	return *n.current, true
}

// Dismiss clears the message immediately and cancels its timer.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.seq++
	n.current = nil
}
