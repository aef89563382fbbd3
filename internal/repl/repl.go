// Package repl implements a line-oriented calculator prompt.
package repl

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

// REPL reads keystroke lines and renders the display after each one.
type REPL struct {
	sess   session.Session
	in     io.Reader
	out    io.Writer
	prompt string
}

// New creates a REPL over the given session.
func New(sess session.Session, in io.Reader, out io.Writer) *REPL {
	return &REPL{
		sess:   sess,
		in:     in,
		out:    out,
		prompt: "> ",
	}
}

// Run reads lines until EOF or a quit command. Each line is fed through
// the keymap character by character; an empty line evaluates the pending
// expression. Unbound characters abort the line with a message, keeping
// whatever prefix already applied.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, "tally - type digits and operators, '=' or an empty line to evaluate,")
	fmt.Fprintln(r.out, "'c' to clear, 'q' to quit.")
	r.render(r.sess.State())

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, r.prompt)

		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "q", "quit", "exit":
			return nil
		case "":
			r.render(r.sess.Apply(calc.Equals()))
			continue
		case "c", "clear":
			r.render(r.sess.Reset())
			continue
		}

		st, err := r.sess.ApplyKeys(line)
		if err != nil {
			if errors.Is(err, session.ErrUnboundKey) {
				fmt.Fprintf(r.out, "%v\n", err)
			} else {
				fmt.Fprintf(r.out, "error: %v\n", err)
			}
		}
		r.render(st)
	}
}

// render writes the two display lines.
func (r *REPL) render(st calc.State) {
	if h := st.HistoryLine(); h != "" {
		fmt.Fprintf(r.out, "  %s\n", h)
	}
	fmt.Fprintf(r.out, "  %s\n", st.ValueLine())
}
