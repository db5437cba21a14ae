package fileuploader

import (
	"github.com/gammazero/workerpool"
	"github.com/zimage-studio/zimage-server/internal/services/filestorage"
	"github.com/zimage-studio/zimage-server/internal/utils/hashutil"
	"go.uber.org/zap"
)

// Uploader archives files on a worker pool so callers never wait on storage.
// Archive failures are logged and swallowed: losing an archive copy must not
// fail the request that produced the image.
type Uploader struct {
	wp      *workerpool.WorkerPool
	storage filestorage.FileStorage
	logger  *zap.Logger
}

func NewFileUploader(storage filestorage.FileStorage, maxWorkers int, logger *zap.Logger) *Uploader {
	return &Uploader{
		wp:      workerpool.New(maxWorkers),
		storage: storage,
		logger:  logger.Named("uploader"),
	}
}

func (u *Uploader) Stop() {
	u.wp.Stop()
}

// ArchiveBytes stores content under its blake3 hash, asynchronously.
func (u *Uploader) ArchiveBytes(content []byte, extension string) {
	if u.storage == nil {
		return
	}

	file := filestorage.FileInfo{
		Name:      hashutil.Blake3Hash(content),
		Extension: extension,
		Content:   content,
	}

	u.wp.Submit(func() {
		url, err := u.storage.Upload(file)
		if err != nil {
			u.logger.Warn("Failed to archive image", zap.Error(err))
			return
		}

		u.logger.Debug("Archived image", zap.String("url", url))
	})
}
