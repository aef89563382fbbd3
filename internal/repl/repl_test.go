package repl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/pkg/calc"
	"github.com/tallyhq/tally/pkg/session"
)

func runLines(t *testing.T, input string) (session.Session, string) {
	t.Helper()

	sess := session.NewMemorySession("repl", calc.DefaultKeymap())
	var out bytes.Buffer

	r := New(sess, strings.NewReader(input), &out)
	require.NoError(t, r.Run())

	return sess, out.String()
}

func TestRun_Evaluates(t *testing.T) {
	sess, out := runLines(t, "12+3=\nq\n")

	assert.Equal(t, "15", sess.State().ValueLine())
	assert.Contains(t, out, "  15\n")
}

func TestRun_EmptyLineEvaluates(t *testing.T) {
	sess, _ := runLines(t, "7+3\n\nq\n")

	assert.Equal(t, "10", sess.State().ValueLine())
}

func TestRun_ClearCommand(t *testing.T) {
	sess, _ := runLines(t, "12+\nc\nq\n")

	assert.Equal(t, calc.Initial(), sess.State())
}

func TestRun_HistoryLine(t *testing.T) {
	_, out := runLines(t, "8/\nq\n")

	assert.Contains(t, out, "  8 ÷\n")
}

func TestRun_UnboundKey(t *testing.T) {
	sess, out := runLines(t, "1z2\nq\n")

	// The prefix before the unbound key still applies.
	assert.Equal(t, "1", sess.State().ValueLine())
	assert.Contains(t, out, "unbound key")
}

func TestRun_QuitOnEOF(t *testing.T) {
	sess, _ := runLines(t, "42\n")

	assert.Equal(t, "42", sess.State().ValueLine())
}
