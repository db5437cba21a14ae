package filestorage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zimage-studio/zimage-server/internal/config"
)

type LocalFileStorage struct {
	assetsDir string
	host      string
	port      int
}

func NewLocalFileStorage(cfg *config.Config) (*LocalFileStorage, error) {
	if cfg.AssetsDir == "" {
		return nil, fmt.Errorf("assets directory is not set")
	}

	return &LocalFileStorage{
		assetsDir: cfg.AssetsDir,
		host:      cfg.Host,
		port:      cfg.Port,
	}, nil
}

func (s *LocalFileStorage) Upload(file FileInfo) (string, error) {
	dest := filepath.Join(s.assetsDir, file.Name+file.Extension)

	if err := os.MkdirAll(filepath.Dir(dest), os.ModePerm); err != nil {
		return "", err
	}

	if err := os.WriteFile(dest, file.Content, 0644); err != nil {
		return "", err
	}

	return fmt.Sprintf("http://%s:%d/file/%s%s", s.host, s.port, file.Name, file.Extension), nil
}
