package gamedata

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestDownloader_DownloadAndCache(t *testing.T) {
	const body = "won,opening_hand,drawn\n1,[1],[2]\n"
	payload := gzipBytes(t, body)

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/game_data_public.BLB.PremierDraft.csv.gz", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	d, err := NewDownloader(DownloaderOptions{
		CacheDir:  t.TempDir(),
		BaseURL:   srv.URL + "/",
		RateLimit: rate.Inf,
	})
	require.NoError(t, err)

	path, err := d.Download(context.Background(), "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Equal(t, d.CachedPath("BLB", "PremierDraft"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	// Second call is served from the cache.
	_, err = d.Download(context.Background(), "BLB", "PremierDraft")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	d, err := NewDownloader(DownloaderOptions{CacheDir: t.TempDir(), BaseURL: srv.URL, RateLimit: rate.Inf})
	require.NoError(t, err)

	_, err = d.Download(context.Background(), "XYZ", "PremierDraft")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")

	_, statErr := os.Stat(d.CachedPath("XYZ", "PremierDraft"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDownloader_Validation(t *testing.T) {
	_, err := NewDownloader(DownloaderOptions{})
	require.Error(t, err)

	d, err := NewDownloader(DownloaderOptions{CacheDir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, PublicDatasetsBaseURL+"/game_data_public.BLB.TradDraft.csv.gz", d.DatasetURL("BLB", "TradDraft"))

	_, err = d.Download(context.Background(), "", "PremierDraft")
	require.Error(t, err)
}
