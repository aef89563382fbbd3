package calc

// EventKind discriminates the closed set of input events.
type EventKind int

const (
	EventNone EventKind = iota
	EventDigit
	EventOperation
	EventClear
	EventDelete
	EventEvaluate
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventDigit:
		return "digit"
	case EventOperation:
		return "operation"
	case EventClear:
		return "clear"
	case EventDelete:
		return "delete"
	case EventEvaluate:
		return "evaluate"
	default:
		return "none"
	}
}

// Event is a tagged variant. Only the payload field matching its kind is
// meaningful: Digit for EventDigit, Op for EventOperation.
type Event struct {
	Kind  EventKind
	Digit rune
	Op    Op
}

// Digit builds a digit-entry event for '0'-'9' or '.'.
func Digit(r rune) Event {
	return Event{Kind: EventDigit, Digit: r}
}

// Operation builds an operator-selection event.
func Operation(op Op) Event {
	return Event{Kind: EventOperation, Op: op}
}

// Clear builds the reset event.
func Clear() Event {
	return Event{Kind: EventClear}
}

// Delete builds the delete-last-character event.
func Delete() Event {
	return Event{Kind: EventDelete}
}

// Equals builds the evaluate event (the "=" key).
func Equals() Event {
	return Event{Kind: EventEvaluate}
}
