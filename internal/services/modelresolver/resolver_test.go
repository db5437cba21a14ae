package modelresolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeDownloader materializes a complete cache layout for the repo, the way
// a successful registry fetch would.
type fakeDownloader struct {
	cacheDir string
	calls    int
	fail     bool
}

func (f *fakeDownloader) Download(repoID string) error {
	f.calls++
	if f.fail {
		return fmt.Errorf("registry unreachable")
	}

	// A finished fetch leaves no partial blobs behind.
	blobs := filepath.Join(f.cacheDir, RepoDirName(repoID), "blobs")
	if partials, err := filepath.Glob(filepath.Join(blobs, "*.incomplete")); err == nil {
		for _, p := range partials {
			os.Remove(p)
		}
	}

	return writeSnapshot(f.cacheDir, repoID, "abc123")
}

func writeSnapshot(cacheDir, repoID, commit string) error {
	storageDir := filepath.Join(cacheDir, RepoDirName(repoID))
	if err := os.MkdirAll(filepath.Join(storageDir, "refs"), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(storageDir, "refs", "main"), []byte(commit+"\n"), 0644); err != nil {
		return err
	}
	snapshot := filepath.Join(storageDir, "snapshots", commit)
	if err := os.MkdirAll(snapshot, 0755); err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(storageDir, "blobs"), 0755)
}

func newTestResolver(t *testing.T) (*Resolver, *fakeDownloader) {
	t.Helper()
	cacheDir := t.TempDir()
	dl := &fakeDownloader{cacheDir: cacheDir}
	r := NewResolver(cacheDir, t.TempDir(), zap.NewNop(), WithDownloader(dl))
	return r, dl
}

func TestRepoDirName(t *testing.T) {
	assert.Equal(t, "models--Tongyi-MAI--Z-Image-Turbo", RepoDirName("Tongyi-MAI/Z-Image-Turbo"))
	assert.Equal(t, "models--single", RepoDirName("single"))
}

func TestResolveDownloadsWhenAbsent(t *testing.T) {
	r, dl := newTestResolver(t)

	path, err := r.Resolve(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Equal(t, 1, dl.calls)
	assert.Contains(t, path, filepath.Join("models--org--model", "snapshots", "abc123"))
}

func TestResolveSkipsDownloadWhenCached(t *testing.T) {
	r, dl := newTestResolver(t)
	require.NoError(t, writeSnapshot(r.CacheDir(), "org/model", "abc123"))

	_, err := r.Resolve(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Equal(t, 0, dl.calls)
}

func TestResolveRefetchesIncompleteSnapshot(t *testing.T) {
	r, dl := newTestResolver(t)
	require.NoError(t, writeSnapshot(r.CacheDir(), "org/model", "abc123"))

	// A leftover partial blob marks the whole repo incomplete.
	blobs := filepath.Join(r.CacheDir(), RepoDirName("org/model"), "blobs")
	require.NoError(t, os.WriteFile(filepath.Join(blobs, "deadbeef.incomplete"), []byte("x"), 0644))

	_, err := r.Resolve(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Equal(t, 1, dl.calls)
}

func TestResolveMissingRefTriggersDownload(t *testing.T) {
	r, dl := newTestResolver(t)

	// Snapshot dir exists but refs/main is missing: treated as absent.
	storageDir := filepath.Join(r.CacheDir(), RepoDirName("org/model"))
	require.NoError(t, os.MkdirAll(filepath.Join(storageDir, "snapshots", "abc123"), 0755))

	_, err := r.Resolve(context.Background(), "org/model")
	require.NoError(t, err)
	assert.Equal(t, 1, dl.calls)
}

func TestResolveDownloadFailure(t *testing.T) {
	r, dl := newTestResolver(t)
	dl.fail = true

	_, err := r.Resolve(context.Background(), "org/model")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "org/model")
}

func TestSetCacheDir(t *testing.T) {
	r, _ := newTestResolver(t)

	next := t.TempDir()
	r.SetCacheDir(next)
	assert.Equal(t, next, r.CacheDir())

	// Empty resets to the default location rather than resolving against "".
	r.SetCacheDir("")
	assert.NotEmpty(t, r.CacheDir())
}

func TestSourceType(t *testing.T) {
	assert.Equal(t, SourceTypeDirect, sourceType("https://example.com/model.safetensors"))
	assert.Equal(t, SourceTypeDirect, sourceType("http://example.com/model.safetensors"))
	assert.Equal(t, SourceTypeHuggingface, sourceType("org/model"))
}
