package session

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/spf13/afero"

	"github.com/tallyhq/tally/pkg/calc"
)

// Store manages a set of calculator sessions. With a directory configured
// sessions are file-backed; otherwise they live in memory only.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]Session
	fs       afero.Fs
	dir      string
	keymap   *calc.Keymap
}

// Option configures a Store.
type Option func(*Store)

// WithFs replaces the filesystem used for persistence. Tests use
// afero.NewMemMapFs() to avoid touching disk.
func WithFs(fs afero.Fs) Option {
	return func(st *Store) {
		st.fs = fs
	}
}

// WithKeymap sets the keymap applied to keystroke sequences.
func WithKeymap(k *calc.Keymap) Option {
	return func(st *Store) {
		st.keymap = k
	}
}

// NewStore creates a session store. An empty dir disables persistence.
func NewStore(dir string, opts ...Option) (*Store, error) {
	st := &Store{
		sessions: make(map[string]Session),
		fs:       afero.NewOsFs(),
		dir:      dir,
		keymap:   calc.DefaultKeymap(),
	}

	for _, opt := range opts {
		opt(st)
	}

	if dir != "" {
		if err := st.fs.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	return st, nil
}

// Get retrieves or creates a session with the given id.
func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if s, ok := st.sessions[id]; ok {
		return s, nil
	}

	var s Session
	var err error

	if st.dir != "" {
		s, err = NewFileSession(id, st.dir, st.keymap, st.fs)
	} else {
		s = NewMemorySession(id, st.keymap)
	}

	if err != nil {
		return nil, err
	}

	st.sessions[id] = s
	return s, nil
}

// Create makes a new session under a generated id.
func (st *Store) Create() (Session, error) {
	return st.Get(newID())
}

// Lookup returns an existing session without creating one.
func (st *Store) Lookup(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Delete removes a session and its persisted file.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)

	if st.dir != "" {
		if err := st.fs.Remove(filepath.Join(st.dir, id+".json")); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// List returns all session ids in sorted order.
func (st *Store) List() []string {
	st.mu.RLock()
	defer st.mu.RUnlock()

	ids := make([]string, 0, len(st.sessions))
	for id := range st.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SaveAll persists every file-backed session. The first error is
// returned after attempting all of them.
func (st *Store) SaveAll() error {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var firstErr error
	for _, s := range st.sessions {
		if err := s.Save(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// newID generates a short random session identifier.
func newID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "session"
	}
	return hex.EncodeToString(b)
}
