package filestorage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zimage-studio/zimage-server/internal/config"
)

func TestLocalUpload(t *testing.T) {
	assetsDir := t.TempDir()
	storage, err := NewLocalFileStorage(&config.Config{
		AssetsDir: assetsDir,
		Host:      "localhost",
		Port:      8000,
	})
	require.NoError(t, err)

	url, err := storage.Upload(FileInfo{
		Name:      "abc123",
		Extension: ".png",
		Content:   []byte("png-bytes"),
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/file/abc123.png", url)

	written, err := os.ReadFile(filepath.Join(assetsDir, "abc123.png"))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), written)
}

func TestLocalStorageRequiresAssetsDir(t *testing.T) {
	_, err := NewLocalFileStorage(&config.Config{})
	require.Error(t, err)
}

func TestNewFileStorageSelectsBackend(t *testing.T) {
	storage, err := NewFileStorage(&config.Config{
		Filesystem: config.FilesystemLocal,
		AssetsDir:  t.TempDir(),
	})
	require.NoError(t, err)
	assert.IsType(t, &LocalFileStorage{}, storage)

	_, err = NewFileStorage(&config.Config{Filesystem: "ftp"})
	require.Error(t, err)
	assert.Contains(t, fmt.Sprint(err), "ftp")
}
