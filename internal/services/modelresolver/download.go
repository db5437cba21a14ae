package modelresolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/vbauerster/mpb/v7"
	"github.com/vbauerster/mpb/v7/decor"
	"go.uber.org/zap"
)

// resolveDirect handles http(s) single-file model sources. The file lands in
// a directory keyed by a hash of the URL; the download is written to a .tmp
// path and renamed only once complete, so an interrupted fetch never leaves
// a directory that looks downloaded.
func (r *Resolver) resolveDirect(ctx context.Context, rawURL string) (string, error) {
	destDir := filepath.Join(r.modelsDir, directDirName(rawURL))
	destPath := filepath.Join(destDir, filepath.Base(rawURL))

	if info, err := os.Stat(destPath); err == nil && info.Size() > 0 {
		return destDir, nil
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	r.logger.Info("Downloading model from direct URL", zap.String("url", rawURL))

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 5 * time.Minute
	b.InitialInterval = 1 * time.Second
	b.MaxInterval = 30 * time.Second

	err := backoff.Retry(func() error {
		return r.downloadWithResume(ctx, rawURL, destPath)
	}, backoff.WithContext(b, ctx))
	if err != nil {
		os.Remove(destPath + ".tmp")
		return "", fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	return destDir, nil
}

func directDirName(rawURL string) string {
	h := sha256.Sum256([]byte(rawURL))
	return "direct--" + hex.EncodeToString(h[:])[:12]
}

func (r *Resolver) downloadWithResume(ctx context.Context, url, destPath string) error {
	tmpPath := destPath + ".tmp"

	var initialSize int64
	if info, err := os.Stat(tmpPath); err == nil {
		initialSize = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	if initialSize > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", initialSize))
	}

	client := &http.Client{
		Timeout: 0, // no total timeout; large weights can take a while
		Transport: &http.Transport{
			DialContext:           (&net.Dialer{Timeout: 60 * time.Second}).DialContext,
			TLSHandshakeTimeout:   60 * time.Second,
			ResponseHeaderTimeout: 60 * time.Second,
			IdleConnTimeout:       60 * time.Second,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var totalSize int64
	switch {
	case initialSize > 0 && resp.StatusCode == http.StatusPartialContent:
		totalSize = initialSize + resp.ContentLength
	case initialSize > 0 && resp.StatusCode == http.StatusOK:
		r.logger.Warn("Server does not support resume, restarting download")
		initialSize = 0
		if err := os.Truncate(tmpPath, 0); err != nil {
			return fmt.Errorf("failed to truncate partial file: %w", err)
		}
		totalSize = resp.ContentLength
	case resp.StatusCode == http.StatusOK:
		totalSize = resp.ContentLength
	default:
		return fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	flag := os.O_CREATE | os.O_WRONLY
	if initialSize > 0 {
		flag |= os.O_APPEND
	}

	f, err := os.OpenFile(tmpPath, flag, 0644)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to open file: %w", err))
	}

	progress := mpb.New(
		mpb.WithWidth(60),
		mpb.WithRefreshRate(180*time.Millisecond),
	)
	bar := progress.AddBar(totalSize,
		mpb.PrependDecorators(
			decor.Name(filepath.Base(destPath), decor.WC{W: 40, C: decor.DidentRight}),
			decor.CountersKibiByte("% .2f / % .2f"),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 90),
			decor.Name(" ] "),
			decor.EwmaSpeed(decor.UnitKiB, "% .2f", 60),
		),
	)
	if initialSize > 0 {
		bar.SetCurrent(initialSize)
	}

	written, err := io.Copy(f, bar.ProxyReader(resp.Body))
	if err != nil {
		f.Close()
		return fmt.Errorf("download interrupted: %w", err)
	}
	progress.Wait()

	if totalSize > 0 && initialSize+written != totalSize {
		f.Close()
		return fmt.Errorf("download size mismatch: expected %d, got %d", totalSize, initialSize+written)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to flush file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to move file into place: %w", err))
	}

	return nil
}
