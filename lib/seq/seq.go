// Package seq provides a ticket-ordered exclusion gate.
//
// Unlike a mutex, which admits waiters in arrival-at-lock order, a
// [Sequencer] admits them in ticket issue order: ticket k enters only
// after tickets 0..k-1 have released, no matter when k started waiting.
package seq

import "sync"

type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	turn    uint64
	waiters map[uint64]chan struct{}
}

func New() *Sequencer {
	return &Sequencer{waiters: make(map[uint64]chan struct{})}
}

// Next issues a ticket ordered after every previously issued ticket.
func (s *Sequencer) Next() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := Ticket{s: s, n: s.issued}
	s.issued++
	return t
}

type Ticket struct {
	s *Sequencer
	n uint64
}

// Acquire blocks until every earlier ticket has released.
func (t Ticket) Acquire() {
	s := t.s

	s.mu.Lock()
	if s.turn == t.n {
		s.mu.Unlock()
		return
	}

	ch := make(chan struct{})
	s.waiters[t.n] = ch
	s.mu.Unlock()

	<-ch
}

// Release ends this ticket's turn and admits the next one.
// The ticket must have been acquired, and each ticket releases once.
func (t Ticket) Release() {
	s := t.s

	s.mu.Lock()
	if s.turn != t.n {
		s.mu.Unlock()
		panic("seq: release out of turn")
	}

	s.turn++
	ch, waiting := s.waiters[s.turn]
	if waiting {
		delete(s.waiters, s.turn)
	}
	s.mu.Unlock()

	if waiting {
		close(ch)
	}
}
