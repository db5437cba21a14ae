package modelresolver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cozy-creator/hf-hub/hub"
	"github.com/cozy-creator/hf-hub/hub/pipeline"
	"go.uber.org/zap"
)

// SourceType distinguishes the supported model sources. A bare identifier
// like "Tongyi-MAI/Z-Image-Turbo" is a HuggingFace repo; an http(s) URL is a
// direct single-file download.
type SourceType string

const (
	SourceTypeHuggingface SourceType = "huggingface"
	SourceTypeDirect      SourceType = "direct"
)

// hubDownloader is the blocking registry fetch, extracted so tests can
// substitute a fake.
type hubDownloader interface {
	Download(repoID string) error
}

type diffusionDownloader struct {
	client *hub.Client
}

func (d *diffusionDownloader) Download(repoID string) error {
	downloader := pipeline.NewDiffusionPipelineDownloader(d.client)
	if _, err := downloader.Download(repoID, "", nil, nil); err != nil {
		return fmt.Errorf("failed to download model from HuggingFace: %w", err)
	}
	return nil
}

// Resolver maps a model identifier to a local directory, fetching from the
// remote registry when the directory is absent or incomplete.
type Resolver struct {
	mu         sync.Mutex
	client     *hub.Client
	downloader hubDownloader
	modelsDir  string
	logger     *zap.Logger
}

type Option func(*Resolver)

// WithDownloader overrides the registry fetch. Used by tests.
func WithDownloader(d hubDownloader) Option {
	return func(r *Resolver) {
		r.downloader = d
	}
}

// NewResolver builds a resolver rooted at cacheDir. An empty cacheDir uses
// the default HuggingFace cache location.
func NewResolver(cacheDir, modelsDir string, logger *zap.Logger, opts ...Option) *Resolver {
	client := hub.DefaultClient()
	if cacheDir != "" {
		client.CacheDir = cacheDir
	}

	r := &Resolver{
		client:    client,
		modelsDir: modelsDir,
		logger:    logger.Named("resolver"),
	}
	r.downloader = &diffusionDownloader{client: r.client}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *Resolver) CacheDir() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.client.CacheDir
}

// SetCacheDir repoints the cache. Takes effect on the next Resolve; an
// in-flight load keeps the directory it started with.
func (r *Resolver) SetCacheDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if dir == "" {
		dir = hub.DefaultClient().CacheDir
	}
	r.client.CacheDir = dir
}

// Resolve returns the local directory for modelID, triggering a blocking
// fetch if it is not fully present. An incomplete directory (interrupted
// download) is treated as absent and re-fetched, so a failed fetch can never
// be mistaken for a present model on retry.
func (r *Resolver) Resolve(ctx context.Context, modelID string) (string, error) {
	switch sourceType(modelID) {
	case SourceTypeDirect:
		return r.resolveDirect(ctx, modelID)
	default:
		return r.resolveHuggingface(ctx, modelID)
	}
}

func (r *Resolver) resolveHuggingface(ctx context.Context, modelID string) (string, error) {
	storageDir := filepath.Join(r.CacheDir(), RepoDirName(modelID))

	if path, ok := snapshotPath(storageDir); ok {
		return path, nil
	}

	r.logger.Info("Downloading model from HuggingFace", zap.String("model_id", modelID))
	if err := r.downloader.Download(modelID); err != nil {
		return "", fmt.Errorf("failed to fetch model %s: %w", modelID, err)
	}

	path, ok := snapshotPath(storageDir)
	if !ok {
		return "", fmt.Errorf("model %s incomplete after download", modelID)
	}

	return path, nil
}

// RepoDirName converts "org/name" into the filesystem-safe cache directory
// name "models--org--name" used by the HuggingFace cache layout.
func RepoDirName(repoID string) string {
	parts := append([]string{"models"}, strings.Split(repoID, "/")...)
	return strings.Join(parts, "--")
}

// snapshotPath returns the current snapshot directory if the cached repo is
// complete: a main ref, the snapshot it points at, and no partially written
// blobs.
func snapshotPath(storageDir string) (string, bool) {
	commitHash, err := os.ReadFile(filepath.Join(storageDir, "refs", "main"))
	if err != nil {
		return "", false
	}

	snapshot := filepath.Join(storageDir, "snapshots", strings.TrimSpace(string(commitHash)))
	if info, err := os.Stat(snapshot); err != nil || !info.IsDir() {
		return "", false
	}

	if hasIncompleteBlobs(filepath.Join(storageDir, "blobs")) {
		return "", false
	}

	return snapshot, true
}

func hasIncompleteBlobs(blobsDir string) bool {
	incomplete := false
	filepath.Walk(blobsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.HasSuffix(info.Name(), ".incomplete") {
			incomplete = true
			return fmt.Errorf("found incomplete file")
		}
		return nil
	})

	return incomplete
}

func sourceType(modelID string) SourceType {
	if strings.HasPrefix(modelID, "http://") || strings.HasPrefix(modelID, "https://") {
		return SourceTypeDirect
	}
	return SourceTypeHuggingface
}
