package market

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alanyoungcy/marketchat/internal/domain"
)

// Source yields the raw bytes of a market snapshot document.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
	// String identifies the source in logs and cache keys.
	String() string
}

// Kind classifies a snapshot URL as "http", "s3" or "file". Bare paths are
// files.
func Kind(raw string) string {
	switch {
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return "http"
	case strings.HasPrefix(raw, "s3://"):
		return "s3"
	default:
		return "file"
	}
}

// --------------------------------------------------------------------------
// HTTP
// --------------------------------------------------------------------------

// HTTPSource fetches the snapshot with a single GET.
type HTTPSource struct {
	url        string
	httpClient *http.Client
}

// DefaultFetchTimeout bounds a snapshot fetch when no timeout is configured.
const DefaultFetchTimeout = 30 * time.Second

// NewHTTPSource creates an HTTP snapshot source. A zero timeout uses
// DefaultFetchTimeout.
func NewHTTPSource(rawURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPSource{
		url: rawURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (s *HTTPSource) String() string { return s.url }

// Fetch implements Source. Any non-2xx status is an error.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("market: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("market: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("market: read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, fmt.Errorf("market: fetch %s: %w", s.url, err)
	}
	return body, nil
}

func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	if len(bodyStr) > 256 {
		bodyStr = bodyStr[:256]
	}
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}

// --------------------------------------------------------------------------
// File
// --------------------------------------------------------------------------

// FileSource reads the snapshot from local disk.
type FileSource struct {
	path string
}

// NewFileSource accepts a file:// URL or a bare path.
func NewFileSource(raw string) *FileSource {
	path := raw
	if u, err := url.Parse(raw); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	return &FileSource{path: path}
}

func (s *FileSource) String() string { return s.path }

// Fetch implements Source.
func (s *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("market: read %s: %w", s.path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("market: read %s: %w", s.path, err)
	}
	return data, nil
}

// --------------------------------------------------------------------------
// Object storage
// --------------------------------------------------------------------------

// BlobSource downloads the snapshot from object storage.
type BlobSource struct {
	reader domain.BlobReader
	key    string
	name   string
}

// NewBlobSource creates a source for key in reader's bucket. name is the
// original URL, used for logs and cache keys.
func NewBlobSource(reader domain.BlobReader, key, name string) *BlobSource {
	return &BlobSource{reader: reader, key: key, name: name}
}

func (s *BlobSource) String() string { return s.name }

// Fetch implements Source.
func (s *BlobSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.reader.Download(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("market: download %s: %w", s.name, err)
	}
	return data, nil
}

// --------------------------------------------------------------------------
// Cache
// --------------------------------------------------------------------------

// CachedSource serves the snapshot from a SnapshotCache when present and
// fills the cache after a successful fetch. Cache failures are logged and
// never fail the load.
type CachedSource struct {
	inner  Source
	cache  domain.SnapshotCache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedSource wraps inner with cache.
func NewCachedSource(inner Source, cache domain.SnapshotCache, ttl time.Duration, logger *slog.Logger) *CachedSource {
	return &CachedSource{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "snapshot_cache")),
	}
}

func (s *CachedSource) String() string { return s.inner.String() }

// Fetch implements Source.
func (s *CachedSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.cache.GetSnapshot(ctx, s.inner.String())
	if err == nil {
		s.logger.DebugContext(ctx, "snapshot cache hit", slog.String("source", s.inner.String()))
		return data, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		s.logger.WarnContext(ctx, "snapshot cache read failed",
			slog.String("source", s.inner.String()),
			slog.String("error", err.Error()),
		)
	}

	data, err = s.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	// Only cache documents that decode, so a bad upstream response is not
	// served for a whole TTL.
	if _, derr := DecodeSnapshot(data); derr == nil {
		if err := s.cache.SetSnapshot(ctx, s.inner.String(), data, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "snapshot cache write failed",
				slog.String("source", s.inner.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return data, nil
}
