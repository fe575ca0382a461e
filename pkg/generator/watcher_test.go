package generator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher(t *testing.T) {
	dir, svc, _ := setup(t)

	type outcome struct {
		results []Result
		err     error
	}
	outcomes := make(chan outcome, 8)
	w, err := NewWatcher(svc, filepath.Join(dir, "elmgen.yaml"), func(results []Result, err error) {
		outcomes <- outcome{results, err}
	})
	require.NoError(t, err)
	w.debounce = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	next := func() outcome {
		t.Helper()
		select {
		case o := <-outcomes:
			return o
		case <-time.After(5 * time.Second):
			t.Fatal("no regeneration within 5s")
			return outcome{}
		}
	}

	first := next()
	require.NoError(t, first.err)
	require.Len(t, first.results, 1)
	assert.True(t, first.results[0].Changed)

	spec := filepath.Join(dir, "openapi.yaml")
	updated := strings.Replace(testSpec, "        name:\n          type: string\n", "        name:\n          type: string\n        age:\n          type: integer\n", 1)
	require.NoError(t, os.WriteFile(spec, []byte(updated), 0o644))

	second := next()
	require.NoError(t, second.err)
	assert.True(t, second.results[0].Changed)

	data, err := os.ReadFile(second.results[0].Out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "age : Maybe Int")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0o644))
	select {
	case o := <-outcomes:
		t.Fatalf("unrelated file triggered a regeneration: %+v", o)
	case <-time.After(400 * time.Millisecond):
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(NewService(), filepath.Join(t.TempDir(), "missing", "elmgen.yaml"), nil)
	assert.Error(t, err)
}
