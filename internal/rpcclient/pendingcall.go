// file: internal/rpcclient/pendingcall.go
package rpcclient

import (
	"context"

	"github.com/qmuntal/stateless"

	"github.com/dkoosis/jsonrpc2go/internal/envelope"
)

// callState and callTrigger are the local State/Trigger types
// qmuntal/stateless is configured over, matching the convention the
// teacher's connection package uses (its own State/Trigger string types
// rather than stateless's bare interface{} aliases).
type callState string
type callTrigger string

// Call lifecycle states and triggers (spec.md S4.6, S5): a call is Sent the
// moment its request is written, then transitions to Completed on a
// matching response or Cancelled when the caller's context is done first.
// Grounded on the teacher's connection.Manager, which wraps
// qmuntal/stateless the same way for its per-connection lifecycle.
const (
	callStateSent      callState   = "sent"
	callStateCompleted callState   = "completed"
	callStateCancelled callState   = "cancelled"
	triggerComplete    callTrigger = "complete"
	triggerCancel      callTrigger = "cancel"
)

// pendingCall is the outstanding-table entry for one in-flight Call
// (spec.md S4.6): it holds the completion handle (done channel) the caller
// blocks on and the state machine guarding against a late response being
// applied after cancellation already settled the call.
type pendingCall struct {
	id   envelope.MessageId
	sm   *stateless.StateMachine
	done chan struct{}
	resp *envelope.Response
}

func newPendingCall(id envelope.MessageId) *pendingCall {
	pc := &pendingCall{id: id, done: make(chan struct{})}
	pc.sm = stateless.NewStateMachine(callStateSent)
	pc.sm.Configure(callStateSent).
		Permit(triggerComplete, callStateCompleted).
		Permit(triggerCancel, callStateCancelled)
	pc.sm.Configure(callStateCompleted)
	pc.sm.Configure(callStateCancelled)
	return pc
}

// complete marks pc completed with resp, reporting whether this call won
// the race (false means the call was already cancelled or completed and
// resp should be treated as a foreign/late response instead).
func (pc *pendingCall) complete(resp *envelope.Response) bool {
	if err := pc.sm.Fire(triggerComplete); err != nil {
		return false
	}
	pc.resp = resp
	close(pc.done)
	return true
}

// cancel marks pc cancelled, reporting whether this call won the race
// against a concurrent response delivery.
func (pc *pendingCall) cancel(ctx context.Context) bool {
	if err := pc.sm.FireCtx(ctx, triggerCancel); err != nil {
		return false
	}
	close(pc.done)
	return true
}
