// file: internal/dispatch/lifecycle.go
package dispatch

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	lfsm "github.com/looplab/fsm"
)

// Server lifecycle states (spec.md S4.5): a Server begins Detached (no
// framer attached), becomes Attached once a framer is wired in and the
// reader loop starts, and returns to Detached when the loop exits (peer
// closed the stream, a fatal framing error occurred, or ctx was cancelled).
type lifecycleState string

const (
	StateDetached lifecycleState = "detached"
	StateAttached lifecycleState = "attached"
)

// Lifecycle events.
type lifecycleEvent string

const (
	EventAttach lifecycleEvent = "attach"
	EventDetach lifecycleEvent = "detach"
)

// lifecycle is the Detached<->Attached state machine a Server uses to
// reject a second concurrent Attach. Grounded
// on the teacher's internal/mcp/state.MCPStateMachine and the generic
// looplab/fsm wrapper it built on; that wrapper's guard conditions,
// transition actions, and multi-source-state bookkeeping all existed to
// support FSMs larger than this one. A Server's lifecycle has exactly two
// states and two unconditional, unguarded transitions, so this wraps
// looplab/fsm directly instead of carrying machinery the dispatcher never
// exercises.
type lifecycle struct {
	mu  sync.Mutex
	fsm *lfsm.FSM
}

// newLifecycle builds a fresh Detached-state lifecycle.
func newLifecycle() *lifecycle {
	return &lifecycle{
		fsm: lfsm.NewFSM(
			string(StateDetached),
			lfsm.Events{
				{Name: string(EventAttach), Src: []string{string(StateDetached)}, Dst: string(StateAttached)},
				{Name: string(EventDetach), Src: []string{string(StateAttached)}, Dst: string(StateDetached)},
			},
			lfsm.Callbacks{},
		),
	}
}

// canAttach reports whether EventAttach is currently valid, used to give
// Server.Attach a clear precondition error instead of an opaque FSM one.
func (l *lifecycle) canAttach() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fsm.Can(string(EventAttach))
}

func (l *lifecycle) fireAttach(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Wrap(l.fsm.Event(ctx, string(EventAttach)), "lifecycle: attach")
}

func (l *lifecycle) fireDetach(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return errors.Wrap(l.fsm.Event(ctx, string(EventDetach)), "lifecycle: detach")
}
