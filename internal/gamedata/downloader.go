package gamedata

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ramonehamilton/mtga-synergy/internal/logging"
)

const (
	// PublicDatasetsBaseURL is the 17Lands public bucket for game data exports.
	PublicDatasetsBaseURL = "https://17lands-public.s3.amazonaws.com/analysis_data/game_data"

	// DownloadTimeout bounds a single dataset download.
	DownloadTimeout = 10 * time.Minute

	// DefaultMaxAge is how long a decompressed dataset is reused.
	DefaultMaxAge = 24 * time.Hour
)

// DefaultRateLimit allows one request every two seconds.
var DefaultRateLimit = rate.Every(2 * time.Second)

// Downloader fetches 17Lands game data exports and caches them decompressed.
type Downloader struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	cacheDir   string
	maxAge     time.Duration
	userAgent  string
}

// DownloaderOptions configures a Downloader.
type DownloaderOptions struct {
	// CacheDir receives the .csv.gz and .csv files. Required.
	CacheDir string

	// BaseURL overrides PublicDatasetsBaseURL (tests, mirrors).
	BaseURL string

	// MaxAge is how long cached CSVs stay fresh (default: 24h).
	MaxAge time.Duration

	// RateLimit throttles requests (default: one every 2s).
	RateLimit rate.Limit

	// HTTPClient allows a custom client (default: DownloadTimeout).
	HTTPClient *http.Client
}

// NewDownloader creates a Downloader and its cache directory.
func NewDownloader(opts DownloaderOptions) (*Downloader, error) {
	if opts.CacheDir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(opts.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = PublicDatasetsBaseURL
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.RateLimit == 0 {
		opts.RateLimit = DefaultRateLimit
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DownloadTimeout}
	}

	return &Downloader{
		httpClient: httpClient,
		limiter:    rate.NewLimiter(opts.RateLimit, 1),
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		cacheDir:   opts.CacheDir,
		maxAge:     opts.MaxAge,
		userAgent:  "mtga-synergy/1.0",
	}, nil
}

// DatasetURL returns the export URL for a set and event format.
func (d *Downloader) DatasetURL(setCode, format string) string {
	return fmt.Sprintf("%s/game_data_public.%s.%s.csv.gz", d.baseURL, setCode, format)
}

// CachedPath returns where the decompressed CSV for a set and format lives.
func (d *Downloader) CachedPath(setCode, format string) string {
	return filepath.Join(d.cacheDir, fmt.Sprintf("%s_%s.csv", setCode, format))
}

// Download returns the path of the decompressed CSV, fetching it unless a
// fresh copy is cached.
func (d *Downloader) Download(ctx context.Context, setCode, format string) (string, error) {
	if setCode == "" || format == "" {
		return "", fmt.Errorf("set code and format are required")
	}

	log := logging.With("downloader")
	csvPath := d.CachedPath(setCode, format)

	if info, err := os.Stat(csvPath); err == nil {
		age := time.Since(info.ModTime())
		if age < d.maxAge {
			log.Info().Str("path", csvPath).Dur("age", age).Msg("using cached dataset")
			return csvPath, nil
		}
		log.Info().Dur("age", age).Msg("cached dataset is stale, re-downloading")
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	url := d.DatasetURL(setCode, format)
	gzPath := csvPath + ".gz"
	log.Info().Str("url", url).Msg("downloading dataset")

	if err := d.fetch(ctx, url, gzPath); err != nil {
		return "", fmt.Errorf("download dataset: %w", err)
	}
	if err := decompress(gzPath, csvPath); err != nil {
		return "", fmt.Errorf("decompress dataset: %w", err)
	}
	_ = os.Remove(gzPath)

	log.Info().Str("path", csvPath).Msg("dataset ready")
	return csvPath, nil
}

func (d *Downloader) fetch(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return writeAtomic(destPath, resp.Body)
}

func decompress(gzPath, csvPath string) error {
	in, err := os.Open(gzPath)
	if err != nil {
		return fmt.Errorf("open gzip file: %w", err)
	}
	defer func() { _ = in.Close() }()

	gr, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("create gzip reader: %w", err)
	}
	defer func() { _ = gr.Close() }()

	return writeAtomic(csvPath, gr)
}

// writeAtomic copies r into a temp file next to path and renames it into place,
// so a failed download never leaves a truncated file that looks fresh.
func writeAtomic(path string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
