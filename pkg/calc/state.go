// Package calc implements the calculator state machine and evaluator.
//
// The machine holds a running expression of the form "previous OP current"
// and consumes discrete input events (digit, operation, clear, delete,
// evaluate). Transition is pure and total: every event yields a valid new
// State value, invalid input is a silent no-op, and nothing can panic.
// Operator chaining folds strictly left to right with no precedence.
package calc

import (
	"encoding/json"
	"fmt"
)

// ErrorValue is the sentinel displayed after division by zero. It is an
// inert but valid current value: clear resets the machine and the next
// digit overwrites it.
const ErrorValue = "Error"

// Op identifies a pending arithmetic operation.
type Op int

const (
	OpNone Op = iota
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
)

// String returns the display symbol for the operation.
func (o Op) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "×"
	case OpDivide:
		return "÷"
	default:
		return ""
	}
}

// ParseOp maps an operator symbol to an Op. Both the display symbols
// (× ÷) and their keyboard forms (* x /) are accepted.
func ParseOp(s string) (Op, bool) {
	switch s {
	case "+":
		return OpAdd, true
	case "-":
		return OpSubtract, true
	case "×", "*", "x":
		return OpMultiply, true
	case "÷", "/":
		return OpDivide, true
	default:
		return OpNone, false
	}
}

// MarshalJSON encodes the operation as its display symbol so persisted
// state stays readable and stable across versions.
func (o Op) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes an operation from its display symbol. The empty
// string decodes to OpNone.
func (o *Op) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*o = OpNone
		return nil
	}
	op, ok := ParseOp(s)
	if !ok {
		return fmt.Errorf("unknown operation %q", s)
	}
	*o = op
	return nil
}

// State is one immutable snapshot of the calculator. Transitions replace
// the whole value; no field is ever mutated in place.
type State struct {
	// Current is the number being entered or just computed. It is always
	// a valid numeric literal, the ErrorValue sentinel, or "0".
	Current string `json:"current"`

	// Previous holds the left operand of a pending operation. Empty means
	// no operand is pending.
	Previous string `json:"previous"`

	// Op is the pending operation, OpNone when no operator is chosen.
	Op Op `json:"op"`

	// Overwrite marks that the next digit replaces Current instead of
	// appending to it. Set after choosing an operator, evaluating, or
	// clearing.
	Overwrite bool `json:"overwrite"`
}

// Initial returns the power-on state.
func Initial() State {
	return State{Current: "0", Overwrite: true}
}

// HistoryLine returns the pending-operand-and-operator display projection.
// It is empty when no operation is pending.
func (s State) HistoryLine() string {
	if s.Previous == "" || s.Op == OpNone {
		return ""
	}
	return s.Previous + " " + s.Op.String()
}

// ValueLine returns the primary display projection.
func (s State) ValueLine() string {
	return s.Current
}
