package datastore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*DataStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "store.json")
	ds, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { ds.Close() })
	return ds, path
}

func TestSetGetDelete(t *testing.T) {
	ds, _ := newTestStore(t)

	_, ok := ds.Get("missing")
	require.False(t, ok)

	ds.Set("greeting", "hello")
	v, ok := ds.Get("greeting")
	require.True(t, ok)
	require.Equal(t, "hello", v)

	ds.Delete("greeting")
	_, ok = ds.Get("greeting")
	require.False(t, ok)
}

func TestKeysPrefixSorted(t *testing.T) {
	ds, _ := newTestStore(t)

	ds.Set("log:b", 1)
	ds.Set("log:a", 2)
	ds.Set("log:c", 3)
	ds.Set("other", 4)

	require.Equal(t, []string{"log:a", "log:b", "log:c"}, ds.Keys("log:"))
	require.Len(t, ds.Keys(""), 4)
}

func TestPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	ds, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	ds.Set("count", 42)
	ds.Set("nested", map[string]any{"name": "alpha"})
	require.NoError(t, ds.Close())

	ds2, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	defer ds2.Close()

	// Numbers come back as float64, objects as map[string]any.
	v, ok := ds2.Get("count")
	require.True(t, ok)
	require.Equal(t, float64(42), v)

	nested, ok := ds2.Get("nested")
	require.True(t, ok)
	require.Equal(t, map[string]any{"name": "alpha"}, nested)
}

func TestCreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deep", "dir", "store.json")

	ds, err := New(path, zerolog.Nop())
	require.NoError(t, err)
	defer ds.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := New(path, zerolog.Nop())
	require.Error(t, err)
}

func TestConcurrentSetAndSave(t *testing.T) {
	ds, _ := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				ds.Set(fmt.Sprintf("k%d-%d", n, j), j)
				if err := ds.Save(); err != nil {
					t.Error(err)
				}
			}
		}(i)
	}
	wg.Wait()

	require.Len(t, ds.Keys(""), 100)
}

func TestSaveSkipsUnchangedState(t *testing.T) {
	ds, path := newTestStore(t)

	ds.Set("k", "v")
	require.NoError(t, ds.Save())

	before, err := os.Stat(path)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, ds.Save())

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, before.ModTime(), after.ModTime())
}
