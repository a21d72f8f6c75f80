package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/thesavant42/grit-find/internal/models"
)

// ProgressFunc receives the running byte count and the expected total
type ProgressFunc func(written, total int64)

// NewDownloadClient returns a client for asset downloads. Release assets
// redirect to a storage host and can be large, so only the wait for
// response headers is bounded, not the whole transfer. The cookie jar
// scopes cookies set during the redirect chain by public suffix.
func NewDownloadClient(headerTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout

	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	return &http.Client{
		Transport: transport,
		Jar:       jar,
	}
}

// DownloadAsset streams asset into destDir/<asset name>, creating destDir
// if needed. The file only appears under its final name once complete.
func (c *Client) DownloadAsset(ctx context.Context, asset models.Asset, destDir string, onProgress ProgressFunc) (string, error) {
	name := filepath.Base(asset.Name)
	if name == "." || name == string(filepath.Separator) || strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("invalid asset name %q", asset.Name)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req, "application/octet-stream")

	if c.logger != nil {
		c.logger.Info("GET asset", "name", name, "size", asset.Size)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		if c.logger != nil {
			c.logger.Error("Download failed", "asset", name, "error", err)
		}
		return "", &TransportError{Method: http.MethodGet, URL: asset.BrowserDownloadURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset download request failed: %w", newHTTPError(resp))
	}

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(destDir, ".grit-find-*")
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}
	tmpPath := tmp.Name()

	total := asset.Size
	if total <= 0 && resp.ContentLength > 0 {
		total = resp.ContentLength
	}
	pw := &progressWriter{total: total, onProgress: onProgress}

	if _, err := io.Copy(io.MultiWriter(tmp, pw), resp.Body); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write asset to file: %w", err)
	}
	// CreateTemp leaves the file owner-only
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to set asset permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to write asset to file: %w", err)
	}

	outputPath := filepath.Join(destDir, name)
	if err := os.Rename(tmpPath, outputPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", fmt.Errorf("failed to move asset into place: %w", err)
	}

	if c.logger != nil {
		c.logger.Info("Downloaded asset", "path", outputPath, "bytes", pw.written)
	}
	return outputPath, nil
}

type progressWriter struct {
	written    int64
	total      int64
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.onProgress != nil {
		p.onProgress(p.written, p.total)
	}
	return len(b), nil
}

// HumanReadableSize converts bytes to a human-readable string
func HumanReadableSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
