// Package session provides per-session calculator state with optional
// file persistence.
//
// The transition function assumes single-writer access, so every session
// serializes its events behind one lock. Any number of callers (HTTP
// handlers, MCP tools, the REPL) can feed events concurrently; each event
// reads the state and replaces it atomically before the next is applied.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	"github.com/tallyhq/tally/pkg/calc"
)

// Session is one calculator with serialized event application.
type Session interface {
	// ID returns the session identifier.
	ID() string

	// State returns the current state snapshot.
	State() calc.State

	// Apply feeds one event through the state machine and returns the
	// resulting state.
	Apply(ev calc.Event) calc.State

	// ApplyKeys feeds a keystroke sequence through the keymap. Keys up to
	// the first unbound one are applied; the unbound key is reported as
	// an error.
	ApplyKeys(keys string) (calc.State, error)

	// Reset restores the initial state.
	Reset() calc.State

	// Save persists the session.
	Save() error

	// Load restores the session.
	Load() error
}

// MemorySession implements Session with in-memory state only.
type MemorySession struct {
	mu      sync.Mutex
	id      string
	state   calc.State
	keymap  *calc.Keymap
	applied int
}

// NewMemorySession creates a session starting from the initial state.
func NewMemorySession(id string, keymap *calc.Keymap) *MemorySession {
	if keymap == nil {
		keymap = calc.DefaultKeymap()
	}
	return &MemorySession{
		id:     id,
		state:  calc.Initial(),
		keymap: keymap,
	}
}

// ID returns the session identifier.
func (s *MemorySession) ID() string {
	return s.id
}

// State returns the current state snapshot.
func (s *MemorySession) State() calc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Apply feeds one event through the state machine.
func (s *MemorySession) Apply(ev calc.Event) calc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = calc.Transition(s.state, ev)
	s.applied++
	return s.state
}

// ApplyKeys feeds a keystroke sequence through the keymap under a single
// lock, so the whole sequence is applied without interleaving.
func (s *MemorySession) ApplyKeys(keys string) (calc.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range keys {
		ev, ok := s.keymap.Event(string(r))
		if !ok {
			return s.state, fmt.Errorf("%w: %q", ErrUnboundKey, r)
		}
		s.state = calc.Transition(s.state, ev)
		s.applied++
	}
	return s.state, nil
}

// Reset restores the initial state.
func (s *MemorySession) Reset() calc.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = calc.Initial()
	s.applied++
	return s.state
}

// Save is a no-op for memory sessions.
func (s *MemorySession) Save() error {
	return nil
}

// Load is a no-op for memory sessions.
func (s *MemorySession) Load() error {
	return nil
}

// FileSession implements Session with JSON file persistence.
type FileSession struct {
	MemorySession
	fs   afero.Fs
	path string
}

// NewFileSession creates a file-backed session. An existing file is
// loaded; a corrupt one is discarded and the session starts fresh.
func NewFileSession(id, dir string, keymap *calc.Keymap, fs afero.Fs) (*FileSession, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	s := &FileSession{
		MemorySession: *NewMemorySession(id, keymap),
		fs:            fs,
		path:          filepath.Join(dir, id+".json"),
	}

	if err := s.Load(); err != nil && !os.IsNotExist(err) {
		// Corrupt or unreadable session files are not fatal; the caller
		// gets a fresh calculator.
		s.state = calc.Initial()
	}

	return s, nil
}

// sessionData is the persisted session format.
type sessionData struct {
	ID        string     `json:"id"`
	State     calc.State `json:"state"`
	Applied   int        `json:"events_applied"`
	Checksum  uint64     `json:"checksum"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// checksum fingerprints the persisted payload so a hand-edited or
// truncated file is detected on load.
func checksum(id string, st calc.State, applied int) uint64 {
	d := xxhash.New()
	for _, part := range []string{id, st.Current, st.Previous, st.Op.String(), strconv.FormatBool(st.Overwrite), strconv.Itoa(applied)} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return d.Sum64()
}

// Save persists the session to disk.
func (s *FileSession) Save() error {
	s.mu.Lock()
	data := sessionData{
		ID:        s.id,
		State:     s.state,
		Applied:   s.applied,
		Checksum:  checksum(s.id, s.state, s.applied),
		UpdatedAt: time.Now(),
	}
	s.mu.Unlock()

	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}

	return afero.WriteFile(s.fs, s.path, jsonData, 0644)
}

// Load restores the session from disk. It returns ErrChecksum when the
// stored payload does not match its fingerprint.
func (s *FileSession) Load() error {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return err
	}

	var sd sessionData
	if err := json.Unmarshal(data, &sd); err != nil {
		return fmt.Errorf("parse session file: %w", err)
	}

	if sd.Checksum != checksum(sd.ID, sd.State, sd.Applied) {
		return ErrChecksum
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.id = sd.ID
	s.state = sd.State
	s.applied = sd.Applied

	return nil
}
