package host

import (
	"github.com/caffeineduck/gopad/restore"
	"github.com/caffeineduck/gopad/result"
)

// Event is one orchestrator notification. Callers drain them from
// channels obtained via Subscribe; dispatch is by type.
type Event interface {
	event()
}

// RestoreStartedEvent fires when a restore attempt begins running.
type RestoreStartedEvent struct{}

// RestoreCompletedEvent delivers the outcome of a restore attempt.
// Superseded attempts emit nothing.
type RestoreCompletedEvent struct {
	Result restore.Result
}

// CompilationErrorsEvent carries the surviving diagnostics of a compile.
// It never fires with an empty list.
type CompilationErrorsEvent struct {
	Diagnostics []result.CompileError
}

// DisassembledEvent carries the textual disassembly of the artifact.
type DisassembledEvent struct {
	Text string
}

// DumpedEvent carries one displayable result from the running snippet.
type DumpedEvent struct {
	Object *result.Dump
}

// ErrorEvent carries a runtime fault reported by the running snippet.
type ErrorEvent struct {
	Exception *result.Exception
}

// ReadInputEvent signals that the snippet is waiting for a line of input.
type ReadInputEvent struct{}

func (RestoreStartedEvent) event()    {}
func (RestoreCompletedEvent) event()  {}
func (CompilationErrorsEvent) event() {}
func (DisassembledEvent) event()      {}
func (DumpedEvent) event()            {}
func (ErrorEvent) event()             {}
func (ReadInputEvent) event()         {}

// Subscribe registers a new event listener. The returned channel is
// buffered; when a subscriber falls behind, the oldest pending event is
// dropped rather than blocking the orchestrator.
func (h *Host) Subscribe() <-chan Event {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	ch := make(chan Event, subscriberBuffer)
	h.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (h *Host) Unsubscribe(ch <-chan Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for sub := range h.subs {
		if (<-chan Event)(sub) == ch {
			delete(h.subs, sub)
			close(sub)
			return
		}
	}
}

const subscriberBuffer = 128

func (h *Host) publish(e Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for sub := range h.subs {
		select {
		case sub <- e:
		default:
			select {
			case <-sub:
			default:
			}
			select {
			case sub <- e:
			default:
			}
		}
	}
}
