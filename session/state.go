package session

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
)

type State int

const (
	// host
	Listening State = iota
	AwaitInitGather
	AcceptingClient

	// worker
	FindingHost
	ReceivingInit
	ReceivedInit

	// both
	Synchronized
	Dropping
)

func (s State) String() string {
	switch s {
	case Listening:
		return "listening"
	case AwaitInitGather:
		return "await-init-gather"
	case AcceptingClient:
		return "accepting-client"
	case FindingHost:
		return "finding-host"
	case ReceivingInit:
		return "receiving-init"
	case ReceivedInit:
		return "received-init"
	case Synchronized:
		return "synchronized"
	case Dropping:
		return "dropping"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

type statePhase int

const (
	enter statePhase = iota
	execute
	exit
)

type stateFn func()

// machine runs the handlers registered for the current state. Transitions are
// deferred: changeState records the next state and the following tick runs
// the exit handlers of the old state and the enter handlers of the new one.
// changeState may be called from any goroutine; tick and start belong to the
// network goroutine.
type machine struct {
	mu            deadlock.Mutex
	state         State
	nextState     State
	transitioning bool

	handlers map[State]map[statePhase][]stateFn
	onChange func(from, to State)
}

func newMachine(initial State) *machine {
	return &machine{
		state:    initial,
		handlers: make(map[State]map[statePhase][]stateFn),
	}
}

func (m *machine) on(state State, phase statePhase, fn stateFn) {
	if _, ok := m.handlers[state]; !ok {
		m.handlers[state] = make(map[statePhase][]stateFn)
	}
	m.handlers[state][phase] = append(m.handlers[state][phase], fn)
}

func (m *machine) call(state State, phase statePhase) {
	for _, fn := range m.handlers[state][phase] {
		fn()
	}
}

func (m *machine) current() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// settled reports the current state and whether no transition is pending.
func (m *machine) settled() (State, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, !m.transitioning
}

func (m *machine) changeState(next State) {
	m.mu.Lock()
	m.nextState = next
	m.transitioning = true
	m.mu.Unlock()
}

// changeStateFrom only schedules the transition when the machine is still in
// from. It keeps a late request from one goroutine from undoing a transition
// scheduled by the other.
func (m *machine) changeStateFrom(from, next State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return false
	}
	if m.transitioning && m.nextState == Dropping {
		return false
	}
	m.nextState = next
	m.transitioning = true
	return true
}

func (m *machine) start() {
	m.call(m.current(), enter)
}

func (m *machine) tick() {
	m.mu.Lock()
	from, to, changing := m.state, m.nextState, m.transitioning
	m.mu.Unlock()

	if changing {
		m.executeChangeState(from, to)
	}
	m.call(m.current(), execute)
}

// executeChangeState keeps the transition pending until the enter handlers
// ran, so settled never reports a state that is only half entered.
func (m *machine) executeChangeState(from, to State) {
	if from != to {
		m.call(from, exit)
		m.mu.Lock()
		m.state = to
		m.mu.Unlock()
		if m.onChange != nil {
			m.onChange(from, to)
		}
		m.call(to, enter)
	}

	m.mu.Lock()
	if m.nextState == to {
		m.transitioning = false
	}
	m.mu.Unlock()
}

func (m *machine) stop() {
	m.call(m.current(), exit)
}
