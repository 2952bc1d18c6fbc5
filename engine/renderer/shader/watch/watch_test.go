package watch

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-gl/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchLoadsAndReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fill.frag")
	require.NoError(t, os.WriteFile(path, []byte("x_fill.r = 1.0;"), 0o644))

	reloaded := make(chan string, 4)
	w, err := NewWatcher(WithOnReload(func(p string) { reloaded <- p }))
	require.NoError(t, err)
	defer w.Close()

	style := shader.NewShadeStyle()
	require.NoError(t, w.Watch(style, shader.SnippetFragmentTransform, path))
	assert.Equal(t, "x_fill.r = 1.0;", style.Snippet(shader.SnippetFragmentTransform))

	style.ClearDirty()
	require.NoError(t, os.WriteFile(path, []byte("x_fill.g = 1.0;"), 0o644))

	select {
	case p := <-reloaded:
		assert.Equal(t, filepath.Clean(path), p)
	case <-time.After(5 * time.Second):
		t.Fatal("snippet was not reloaded")
	}
	assert.Equal(t, "x_fill.g = 1.0;", style.Snippet(shader.SnippetFragmentTransform))
	assert.True(t, style.Dirty())
}

func TestWatchMissingFile(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	err = w.Watch(shader.NewShadeStyle(), shader.SnippetVertexTransform, filepath.Join(t.TempDir(), "absent.vert"))
	assert.Error(t, err)
}

func TestCloseTwice(t *testing.T) {
	w, err := NewWatcher()
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.NotPanics(t, func() { assert.NoError(t, w.Close()) })
}
