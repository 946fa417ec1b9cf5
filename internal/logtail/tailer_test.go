package logtail

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func appendFile(t *testing.T, path, text string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(text)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestPollMissingFile(t *testing.T) {
	tl := New(Options{Path: filepath.Join(t.TempDir(), "Power.log"), FromStart: true}, zaptest.NewLogger(t))

	chunk, rotated, err := tl.Poll()
	require.NoError(t, err)
	assert.Empty(t, chunk)
	assert.False(t, rotated)
}

func TestPollFromStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Power.log")
	appendFile(t, path, "line one\nline two\n")
	tl := New(Options{Path: path, FromStart: true}, zaptest.NewLogger(t))

	chunk, rotated, err := tl.Poll()
	require.NoError(t, err)
	assert.False(t, rotated)
	assert.Equal(t, "line one\nline two\n", chunk)

	chunk, _, err = tl.Poll()
	require.NoError(t, err)
	assert.Empty(t, chunk)

	appendFile(t, path, "line three\n")
	chunk, _, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, "line three\n", chunk)
}

func TestPollSkipsExistingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Power.log")
	appendFile(t, path, "old\n")
	tl := New(Options{Path: path}, zaptest.NewLogger(t))

	chunk, _, err := tl.Poll()
	require.NoError(t, err)
	assert.Empty(t, chunk)
	assert.Equal(t, int64(4), tl.Offset())

	appendFile(t, path, "new\n")
	chunk, _, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, "new\n", chunk)
}

func TestPollHoldsPartialLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Power.log")
	appendFile(t, path, "complete\nhalf")
	tl := New(Options{Path: path, FromStart: true}, zaptest.NewLogger(t))

	chunk, _, err := tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, "complete\n", chunk)

	appendFile(t, path, " done\n")
	chunk, _, err = tl.Poll()
	require.NoError(t, err)
	assert.Equal(t, "half done\n", chunk)
}

func TestPollDetectsTruncation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Power.log")
	appendFile(t, path, "first game line\nmore\n")
	tl := New(Options{Path: path, FromStart: true}, zaptest.NewLogger(t))
	_, _, err := tl.Poll()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("new\n"), 0o644))
	chunk, rotated, err := tl.Poll()
	require.NoError(t, err)
	assert.True(t, rotated)
	assert.Equal(t, "new\n", chunk)
}

func TestRunDeliversChunksUntilCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Power.log")
	appendFile(t, path, "a\n")
	tl := New(Options{Path: path, FromStart: true, Interval: 5 * time.Millisecond}, zaptest.NewLogger(t))

	var mu sync.Mutex
	var got []string
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- tl.Run(ctx, func(chunk string, rotated bool) {
			mu.Lock()
			got = append(got, chunk)
			mu.Unlock()
		})
	}()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	}, time.Second, 5*time.Millisecond)

	appendFile(t, path, "b\n")
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a\n", "b\n"}, got)
}
