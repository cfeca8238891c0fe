package navi

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/openav/naviplan/services/planning"
)

// PadCommandProcessor is a single-slot mailbox between the pad transport and the planning cycle.
// A command that arrives while another is pending replaces it.
type PadCommandProcessor struct {
	mu      sync.Mutex
	pending *planning.PadMessage

	overwritten atomic.Uint64
}

// OnPad stores msg as the pending command. It may be called from any goroutine.
func (p *PadCommandProcessor) OnPad(msg planning.PadMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending != nil {
		p.overwritten.Inc()
	}
	p.pending = &msg
}

// Drain takes the pending command and clears the slot. The second return is false when nothing
// was pending.
func (p *PadCommandProcessor) Drain() (planning.PadMessage, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pending == nil {
		return planning.PadMessage{}, false
	}
	msg := *p.pending
	p.pending = nil
	return msg, true
}

// Pending reports whether a command is waiting to be drained.
func (p *PadCommandProcessor) Pending() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// Overwritten returns how many commands were replaced before being drained.
func (p *PadCommandProcessor) Overwritten() uint64 {
	return p.overwritten.Load()
}
