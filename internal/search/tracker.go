package search

import (
	"context"
	"sync"
)

// Tracker enforces last-query-wins per session. Starting a search cancels the
// session's previous search, and only the most recent ticket is current.
type Tracker struct {
	mu       sync.Mutex
	sessions map[string]*Ticket
	next     uint64
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{sessions: make(map[string]*Ticket)}
}

// Ticket identifies one search within a session.
type Ticket struct {
	tracker *Tracker
	session string
	seq     uint64
	cancel  context.CancelFunc
}

// Begin registers a new search for session and cancels the one in flight, if
// any. The returned context is cancelled when the search is superseded or Done
// is called. An empty session is never superseded.
func (t *Tracker) Begin(ctx context.Context, session string) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	ticket := &Ticket{tracker: t, session: session, seq: t.next, cancel: cancel}
	if session == "" {
		return ctx, ticket
	}

	if prev, ok := t.sessions[session]; ok {
		prev.cancel()
	}
	t.sessions[session] = ticket
	return ctx, ticket
}

// Current reports whether no newer search has started for the ticket's session.
func (k *Ticket) Current() bool {
	if k.session == "" {
		return true
	}
	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()
	return k.tracker.sessions[k.session] == k
}

// Done releases the ticket's context and forgets the session if this ticket
// is still its latest search.
func (k *Ticket) Done() {
	k.cancel()
	if k.session == "" {
		return
	}
	k.tracker.mu.Lock()
	defer k.tracker.mu.Unlock()
	if k.tracker.sessions[k.session] == k {
		delete(k.tracker.sessions, k.session)
	}
}

// InFlight returns the number of sessions with a search running.
func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
