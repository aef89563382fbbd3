package session

import (
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tallyhq/tally/pkg/calc"
)

func TestMemorySession_Apply(t *testing.T) {
	s := NewMemorySession("test", nil)

	st := s.Apply(calc.Digit('4'))
	assert.Equal(t, "4", st.Current)

	st = s.Apply(calc.Operation(calc.OpAdd))
	st = s.Apply(calc.Digit('2'))
	st = s.Apply(calc.Equals())
	assert.Equal(t, "6", st.Current)

	assert.Equal(t, "6", s.State().Current, "State must reflect applied events")
}

func TestMemorySession_ApplyKeys(t *testing.T) {
	s := NewMemorySession("test", nil)

	st, err := s.ApplyKeys("12+3=")
	require.NoError(t, err)
	assert.Equal(t, "15", st.Current)

	// Display symbols work too.
	st, err = s.ApplyKeys("×2=")
	require.NoError(t, err)
	assert.Equal(t, "30", st.Current)
}

func TestMemorySession_ApplyKeysClearDelete(t *testing.T) {
	s := NewMemorySession("test", nil)

	// "d" deletes mid-sequence.
	st, err := s.ApplyKeys("12d3")
	require.NoError(t, err)
	assert.Equal(t, "13", st.Current)

	// "c" clears mid-sequence.
	st, err = s.ApplyKeys("+5c9")
	require.NoError(t, err)
	assert.Equal(t, "9", st.Current)
	assert.Equal(t, "", st.Previous)
}

func TestMemorySession_ApplyKeysUnbound(t *testing.T) {
	s := NewMemorySession("test", nil)

	st, err := s.ApplyKeys("12z3")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnboundKey)
	assert.Equal(t, "12", st.Current, "keys before the unbound one are applied")
}

func TestMemorySession_Reset(t *testing.T) {
	s := NewMemorySession("test", nil)

	_, err := s.ApplyKeys("12+3")
	require.NoError(t, err)

	st := s.Reset()
	assert.Equal(t, calc.Initial(), st)
}

func TestMemorySession_ConcurrentApply(t *testing.T) {
	s := NewMemorySession("test", nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Apply(calc.Digit('1'))
		}()
	}
	wg.Wait()

	// 50 serialized digit events: first replaces "0", the rest append.
	assert.Len(t, s.State().Current, 50)
}

func TestFileSession_SaveLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/sessions"

	s, err := NewFileSession("abc", dir, nil, fs)
	require.NoError(t, err)

	_, err = s.ApplyKeys("7+3=")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	// A fresh session over the same file restores the state.
	restored, err := NewFileSession("abc", dir, nil, fs)
	require.NoError(t, err)
	assert.Equal(t, "10", restored.State().Current)
	assert.True(t, restored.State().Overwrite)
}

func TestFileSession_ChecksumMismatch(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/sessions"
	path := filepath.Join(dir, "abc.json")

	s, err := NewFileSession("abc", dir, nil, fs)
	require.NoError(t, err)
	_, err = s.ApplyKeys("42")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	// Tamper with the stored state without updating the checksum.
	raw, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &data))
	data["state"] = json.RawMessage(`{"current":"999","previous":"","op":"","overwrite":false}`)
	tampered, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, tampered, 0644))

	// Loading directly reports the mismatch.
	bad := &FileSession{MemorySession: *NewMemorySession("abc", nil), fs: fs, path: path}
	assert.ErrorIs(t, bad.Load(), ErrChecksum)

	// Creating through the constructor discards the file and starts fresh.
	fresh, err := NewFileSession("abc", dir, nil, fs)
	require.NoError(t, err)
	assert.Equal(t, calc.Initial(), fresh.State())
}

func TestFileSession_GarbageFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/sessions"
	require.NoError(t, fs.MkdirAll(dir, 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(dir, "abc.json"), []byte("not json"), 0644))

	s, err := NewFileSession("abc", dir, nil, fs)
	require.NoError(t, err)
	assert.Equal(t, calc.Initial(), s.State())
}

func TestStore_GetCreatesOnce(t *testing.T) {
	st, err := NewStore("", WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	a, err := st.Get("calc-1")
	require.NoError(t, err)
	a.Apply(calc.Digit('9'))

	b, err := st.Get("calc-1")
	require.NoError(t, err)
	assert.Equal(t, "9", b.State().Current, "same id must return the same session")
}

func TestStore_Create(t *testing.T) {
	st, err := NewStore("")
	require.NoError(t, err)

	a, err := st.Create()
	require.NoError(t, err)
	b, err := st.Create()
	require.NoError(t, err)

	assert.NotEmpty(t, a.ID())
	assert.NotEqual(t, a.ID(), b.ID())
	assert.Len(t, st.List(), 2)
}

func TestStore_LookupAndDelete(t *testing.T) {
	st, err := NewStore("/data/sessions", WithFs(afero.NewMemMapFs()))
	require.NoError(t, err)

	_, ok := st.Lookup("missing")
	assert.False(t, ok)
	assert.ErrorIs(t, st.Delete("missing"), ErrNotFound)

	s, err := st.Get("calc-1")
	require.NoError(t, err)
	require.NoError(t, s.Save())

	got, ok := st.Lookup("calc-1")
	require.True(t, ok)
	assert.Equal(t, "calc-1", got.ID())

	require.NoError(t, st.Delete("calc-1"))
	_, ok = st.Lookup("calc-1")
	assert.False(t, ok)
}

func TestStore_PersistenceAcrossStores(t *testing.T) {
	fs := afero.NewMemMapFs()
	dir := "/data/sessions"

	st, err := NewStore(dir, WithFs(fs))
	require.NoError(t, err)
	s, err := st.Get("calc-1")
	require.NoError(t, err)
	_, err = s.ApplyKeys("8-3=")
	require.NoError(t, err)
	require.NoError(t, st.SaveAll())

	// A second store over the same filesystem picks up the saved state.
	st2, err := NewStore(dir, WithFs(fs))
	require.NoError(t, err)
	s2, err := st2.Get("calc-1")
	require.NoError(t, err)
	assert.Equal(t, "5", s2.State().Current)
}

func TestStore_CustomKeymap(t *testing.T) {
	km := calc.DefaultKeymap()
	require.NoError(t, km.Bind("p", "add"))

	st, err := NewStore("", WithKeymap(km))
	require.NoError(t, err)

	s, err := st.Get("calc-1")
	require.NoError(t, err)

	got, err := s.ApplyKeys("2p3=")
	require.NoError(t, err)
	assert.Equal(t, "5", got.Current)
}
