package splitworld

import "sync"

// event is a manually reset signal shared by one raiser and one waiter. A
// Raise that happens before the matching Wait is not lost, and Wait consumes
// every raise seen so far.
type event struct {
	mu     sync.Mutex
	cond   *sync.Cond
	raised uint64
	seen   uint64
}

func newEvent() *event {
	e := &event{}
	e.cond = sync.NewCond(&e.mu)
	return e
}

func (e *event) Raise() {
	e.mu.Lock()
	e.raised++
	e.mu.Unlock()
	e.cond.Signal()
}

func (e *event) Wait() {
	e.mu.Lock()
	for e.raised == e.seen {
		e.cond.Wait()
	}
	e.seen = e.raised
	e.mu.Unlock()
}
