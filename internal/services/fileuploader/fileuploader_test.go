package fileuploader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zimage-studio/zimage-server/internal/config"
	"github.com/zimage-studio/zimage-server/internal/services/filestorage"
	"github.com/zimage-studio/zimage-server/internal/utils/hashutil"
	"go.uber.org/zap"
)

func TestArchiveBytesStoresUnderContentHash(t *testing.T) {
	assetsDir := t.TempDir()
	storage, err := filestorage.NewLocalFileStorage(&config.Config{
		AssetsDir: assetsDir,
		Host:      "localhost",
		Port:      8000,
	})
	require.NoError(t, err)

	u := NewFileUploader(storage, 2, zap.NewNop())
	defer u.Stop()

	content := []byte("generated image")
	u.ArchiveBytes(content, ".png")

	expected := filepath.Join(assetsDir, hashutil.Blake3Hash(content)+".png")
	require.Eventually(t, func() bool {
		_, err := os.Stat(expected)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestArchiveBytesWithoutStorageIsNoop(t *testing.T) {
	u := NewFileUploader(nil, 1, zap.NewNop())
	defer u.Stop()

	// Must not panic.
	u.ArchiveBytes([]byte("x"), ".png")
}
