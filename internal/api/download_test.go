package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesavant42/grit-find/internal/models"
)

func TestDownloadAsset(t *testing.T) {
	payload := bytes.Repeat([]byte("grit"), 64*1024)
	var gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/download/tool.tar.gz":
			// release assets redirect to a storage host
			http.Redirect(w, r, "/storage/blob", http.StatusFound)
		case "/storage/blob":
			gotAccept = r.Header.Get("Accept")
			w.Write(payload)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	dest := filepath.Join(t.TempDir(), "nested", "out")
	asset := models.Asset{
		Name:               "tool.tar.gz",
		BrowserDownloadURL: srv.URL + "/download/tool.tar.gz",
		Size:               int64(len(payload)),
	}

	var lastWritten, lastTotal int64
	path, err := c.DownloadAsset(context.Background(), asset, dest, func(written, total int64) {
		assert.GreaterOrEqual(t, written, lastWritten)
		lastWritten, lastTotal = written, total
	})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dest, "tool.tar.gz"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, int64(len(payload)), lastWritten)
	assert.Equal(t, int64(len(payload)), lastTotal)
	assert.Equal(t, "application/octet-stream", gotAccept)

	// only the final file remains
	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDownloadAsset_FileIsWorldReadable(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("binary"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	asset := models.Asset{Name: "tool", BrowserDownloadURL: srv.URL + "/tool", Size: 6}

	path, err := c.DownloadAsset(context.Background(), asset, t.TempDir(), nil)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
}

func TestDownloadAsset_StripsPathFromName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	dest := t.TempDir()
	asset := models.Asset{Name: "../../escape.bin", BrowserDownloadURL: srv.URL + "/a"}

	path, err := c.DownloadAsset(context.Background(), asset, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "escape.bin"), path)
}

func TestDownloadAsset_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	dest := filepath.Join(t.TempDir(), "out")
	asset := models.Asset{Name: "tool.zip", BrowserDownloadURL: srv.URL + "/a"}

	_, err := c.DownloadAsset(context.Background(), asset, dest, nil)
	assert.Equal(t, http.StatusForbidden, StatusCode(err))
	_, statErr := os.Stat(filepath.Join(dest, "tool.zip"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestHumanReadableSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{10 * 1024 * 1024, "10.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
	}
	for _, tt := range tests {
		if got := HumanReadableSize(tt.size); got != tt.want {
			t.Errorf("HumanReadableSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
