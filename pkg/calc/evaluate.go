package calc

import "strconv"

// Evaluate collapses "prev op cur" into a single display value. Operands
// that fail to parse fall back to "0" (unreachable through Transition,
// which only ever stores valid literals). Division by a zero right
// operand yields ErrorValue instead of a fault.
func Evaluate(prev, cur string, op Op) string {
	a, err := strconv.ParseFloat(prev, 64)
	if err != nil {
		return "0"
	}
	b, err := strconv.ParseFloat(cur, 64)
	if err != nil {
		return "0"
	}

	var result float64
	switch op {
	case OpAdd:
		result = a + b
	case OpSubtract:
		result = a - b
	case OpMultiply:
		result = a * b
	case OpDivide:
		if b == 0 {
			return ErrorValue
		}
		result = a / b
	default:
		return "0"
	}

	return strconv.FormatFloat(result, 'f', -1, 64)
}
