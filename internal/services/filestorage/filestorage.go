package filestorage

import (
	"fmt"
	"strings"

	"github.com/zimage-studio/zimage-server/internal/config"
)

type FileInfo struct {
	Name      string
	Extension string
	Content   []byte
}

// FileStorage archives generated images. Upload returns a URL or local path
// for the stored file.
type FileStorage interface {
	Upload(file FileInfo) (string, error)
}

func NewFileStorage(cfg *config.Config) (FileStorage, error) {
	switch strings.ToLower(cfg.Filesystem) {
	case "", config.FilesystemLocal:
		return NewLocalFileStorage(cfg)
	case config.FilesystemS3:
		return NewS3FileStorage(cfg)
	}

	return nil, fmt.Errorf("invalid filesystem type %s", cfg.Filesystem)
}
