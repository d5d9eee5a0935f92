package session

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAndSetToken(t *testing.T) {
	st, err := New(NewMemoryStore("initial"))
	require.NoError(t, err)

	snap := st.Snapshot()
	assert.Equal(t, "initial", snap.Token)
	assert.Equal(t, uint64(0), snap.Generation)

	require.NoError(t, st.SetToken("next"))
	snap = st.Snapshot()
	assert.Equal(t, "next", snap.Token)
	assert.Equal(t, uint64(1), snap.Generation)
}

func TestExpireOncePerGeneration(t *testing.T) {
	store := NewMemoryStore("tok")
	st, err := New(store)
	require.NoError(t, err)

	var events atomic.Int32
	unsubscribe := st.Subscribe(func(ev Event) {
		if ev.Reason == Expired {
			events.Add(1)
		}
	})
	defer unsubscribe()

	gen := st.Snapshot().Generation

	const callers = 32
	var wg sync.WaitGroup
	var winners atomic.Int32
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			if st.Expire(gen) {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), winners.Load())
	assert.Equal(t, int32(1), events.Load())
	assert.Equal(t, 1, store.Clears())
	assert.Empty(t, st.Token())

	// A late 401 from the old generation stays a no-op
	assert.False(t, st.Expire(gen))
	assert.Equal(t, 1, store.Clears())
}

func TestExpireAfterRelogin(t *testing.T) {
	st, err := New(NewMemoryStore("tok"))
	require.NoError(t, err)

	old := st.Snapshot().Generation
	require.NoError(t, st.SetToken("fresh"))

	assert.False(t, st.Expire(old), "response to a request made with the previous token")
	assert.Equal(t, "fresh", st.Token())

	assert.True(t, st.Expire(st.Snapshot().Generation))
	assert.Empty(t, st.Token())
}

func TestLogout(t *testing.T) {
	store := NewMemoryStore("tok")
	st, err := New(store)
	require.NoError(t, err)

	var got []Reason
	st.Subscribe(func(ev Event) { got = append(got, ev.Reason) })

	require.NoError(t, st.Logout())
	assert.Empty(t, st.Token())
	assert.Equal(t, []Reason{LoggedOut}, got)
}

func TestUnsubscribe(t *testing.T) {
	st, err := New(nil)
	require.NoError(t, err)

	calls := 0
	unsubscribe := st.Subscribe(func(Event) { calls++ })
	require.NoError(t, st.SetToken("a"))
	unsubscribe()
	require.NoError(t, st.SetToken("b"))
	assert.Equal(t, 1, calls)
}

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token")
	fs := NewFileStore(path)

	tok, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, tok, "missing file means logged out")

	require.NoError(t, fs.Save("abc.def.ghi"))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	tok, err = fs.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", tok)

	require.NoError(t, fs.Clear())
	require.NoError(t, fs.Clear(), "clearing twice is fine")
}

func TestWatcherReloadsToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	store := NewFileStore(path)
	st, err := New(store)
	require.NoError(t, err)

	events := make(chan Event, 8)
	st.Subscribe(func(ev Event) {
		select {
		case events <- ev:
		default:
		}
	})

	w, err := NewWatcher(st, path)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()
	assert.True(t, w.IsRunning())

	// Another process logs in
	require.NoError(t, os.WriteFile(path, []byte("from-elsewhere\n"), 0600))

	select {
	case ev := <-events:
		assert.Equal(t, Reloaded, ev.Reason)
		assert.True(t, ev.HasToken)
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for reload")
	}
	assert.Equal(t, "from-elsewhere", st.Token())

	w.Stop()
	assert.False(t, w.IsRunning())
}

func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "42",
		"email": "ops@rail.example",
		"role":  "admin",
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString([]byte("any-secret"))
	require.NoError(t, err)

	c, err := ParseClaims(signed)
	require.NoError(t, err)
	assert.Equal(t, "42", c.Subject)
	assert.Equal(t, "ops@rail.example", c.Email)
	assert.Equal(t, "admin", c.Role)
	assert.True(t, exp.Equal(c.ExpiresAt))
	assert.False(t, c.Expired(time.Now()))
	assert.True(t, c.Expired(exp.Add(time.Minute)))

	_, err = ParseClaims("not-a-token")
	assert.Error(t, err)
}
