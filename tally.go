// Package tally provides an embeddable calculator engine.
//
// Tally models a basic arithmetic calculator as an event-driven state
// machine: every keypress is an event, and a pure transition function
// maps the current state and an event to the next state. The service
// layers (REST API, MCP, REPL) are thin shells over this engine.
//
// # Quick Start
//
//	c := tally.New()
//	c.Press("12+3=")
//	fmt.Println(c.Value()) // "15"
//
// # Architecture
//
//   - pkg/calc: pure state machine, evaluator, and keymaps
//   - pkg/session: concurrency-safe sessions with optional persistence
//   - internal/api: REST API over sessions
//   - internal/mcp: calculator tools for AI assistants
package tally

import (
	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

// State is an alias for the calculator state type.
type State = calc.State

// Event is an alias for the calculator event type.
type Event = calc.Event

// Op is an alias for the arithmetic operation type.
type Op = calc.Op

// Session is an alias for the session interface.
type Session = session.Session

// Store is an alias for the session store.
type Store = session.Store

// Calculator is a convenience wrapper around a single in-memory
// session with the default key bindings.
type Calculator struct {
	sess *session.MemorySession
}

// New creates a calculator in its initial state.
func New() *Calculator {
	return &Calculator{
		sess: session.NewMemorySession("calc", calc.DefaultKeymap()),
	}
}

// Press feeds a keystroke sequence through the default keymap. Digits,
// '.', the four operators (+ - * / or × ÷), and '=' are bound. The
// returned state reflects everything up to the first unbound key.
func (c *Calculator) Press(keys string) (State, error) {
	return c.sess.ApplyKeys(keys)
}

// Apply applies a single event.
func (c *Calculator) Apply(ev Event) State {
	return c.sess.Apply(ev)
}

// Value returns the current display value.
func (c *Calculator) Value() string {
	return c.sess.State().ValueLine()
}

// History returns the pending-operation display line.
func (c *Calculator) History() string {
	return c.sess.State().HistoryLine()
}

// Clear resets the calculator to its initial state.
func (c *Calculator) Clear() State {
	return c.sess.Reset()
}

// State returns the current state.
func (c *Calculator) State() State {
	return c.sess.State()
}
