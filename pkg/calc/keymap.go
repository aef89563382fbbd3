package calc

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Keymap translates keystrokes into calculator events. Unbound keys
// report false so front-ends can ignore them.
type Keymap struct {
	bindings map[string]Event
}

// DefaultKeymap returns the built-in bindings: the digits and decimal
// point, the four operators under both display (× ÷) and keyboard
// (* x /) symbols, "=" and Enter for evaluate, Backspace or "d" for
// delete and Escape or "c" for clear.
func DefaultKeymap() *Keymap {
	k := &Keymap{bindings: make(map[string]Event)}
	for r := '0'; r <= '9'; r++ {
		k.bindings[string(r)] = Digit(r)
	}
	k.bindings["."] = Digit('.')
	for _, sym := range []string{"+", "-", "*", "x", "×", "/", "÷"} {
		op, _ := ParseOp(sym)
		k.bindings[sym] = Operation(op)
	}
	k.bindings["="] = Equals()
	k.bindings["\r"] = Equals()
	k.bindings["\n"] = Equals()
	k.bindings["d"] = Delete()
	k.bindings["\b"] = Delete()
	k.bindings["\x7f"] = Delete() // Backspace sends DEL on most terminals
	k.bindings["c"] = Clear()
	k.bindings["\x1b"] = Clear() // Escape
	return k
}

// Event returns the event bound to a keystroke.
func (k *Keymap) Event(key string) (Event, bool) {
	ev, ok := k.bindings[key]
	return ev, ok
}

// Bind attaches an action to a key. Actions are the digits "0"-"9", ".",
// and the names add, subtract, multiply, divide, evaluate, clear, delete.
func (k *Keymap) Bind(key, action string) error {
	switch action {
	case "add":
		k.bindings[key] = Operation(OpAdd)
	case "subtract":
		k.bindings[key] = Operation(OpSubtract)
	case "multiply":
		k.bindings[key] = Operation(OpMultiply)
	case "divide":
		k.bindings[key] = Operation(OpDivide)
	case "evaluate":
		k.bindings[key] = Equals()
	case "clear":
		k.bindings[key] = Clear()
	case "delete":
		k.bindings[key] = Delete()
	case ".":
		k.bindings[key] = Digit('.')
	default:
		if len(action) == 1 && action[0] >= '0' && action[0] <= '9' {
			k.bindings[key] = Digit(rune(action[0]))
			return nil
		}
		return fmt.Errorf("unknown keymap action %q", action)
	}
	return nil
}

// keymapFile is the TOML profile structure:
//
//	[keys]
//	"a" = "add"
//	"q" = "clear"
type keymapFile struct {
	Keys map[string]string `toml:"keys"`
}

// LoadKeymap overlays a TOML profile onto the default bindings.
func LoadKeymap(path string) (*Keymap, error) {
	var file keymapFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("parse keymap: %w", err)
	}

	k := DefaultKeymap()
	for key, action := range file.Keys {
		if err := k.Bind(key, action); err != nil {
			return nil, fmt.Errorf("keymap %s: %w", path, err)
		}
	}
	return k, nil
}
