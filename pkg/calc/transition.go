package calc

import "strings"

// Transition applies one input event to a state and returns the next
// state. It never panics: events that are invalid in the given state
// return the input unchanged.
func Transition(s State, e Event) State {
	switch e.Kind {
	case EventDigit:
		return applyDigit(s, e.Digit)
	case EventOperation:
		return applyOperation(s, e.Op)
	case EventClear:
		return Initial()
	case EventDelete:
		return applyDelete(s)
	case EventEvaluate:
		return applyEvaluate(s)
	default:
		return s
	}
}

func isDigitKey(r rune) bool {
	return (r >= '0' && r <= '9') || r == '.'
}

func applyDigit(s State, d rune) State {
	if !isDigitKey(d) {
		return s
	}
	if s.Overwrite {
		s.Current = string(d)
		s.Overwrite = false
		return s
	}
	if d == '.' && strings.ContainsRune(s.Current, '.') {
		return s
	}
	if s.Current == "0" && d != '.' {
		s.Current = string(d)
		return s
	}
	s.Current += string(d)
	return s
}

func applyOperation(s State, op Op) State {
	if op == OpNone {
		return s
	}
	if s.Current == "0" && s.Previous == "" {
		return s
	}
	if s.Previous == "" {
		return State{Current: "0", Previous: s.Current, Op: op, Overwrite: true}
	}
	if s.Overwrite {
		// Operator re-chosen before a right operand was typed: swap the
		// pending operator, nothing to fold yet.
		s.Op = op
		return s
	}
	// Fold the pending operation left to right and hold the new operator.
	return State{Current: "0", Previous: Evaluate(s.Previous, s.Current, s.Op), Op: op, Overwrite: true}
}

func applyDelete(s State) State {
	if s.Overwrite || len(s.Current) <= 1 {
		s.Current = "0"
		s.Overwrite = true
		return s
	}
	s.Current = s.Current[:len(s.Current)-1]
	return s
}

func applyEvaluate(s State) State {
	// Evaluation needs a pending operation and a typed right operand.
	// Overwrite still set means nothing was entered after the operator.
	if s.Op == OpNone || s.Previous == "" || s.Overwrite {
		return s
	}
	return State{Current: Evaluate(s.Previous, s.Current, s.Op), Overwrite: true}
}
