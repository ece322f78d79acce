package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"pixelrank/internal/utils"
)

// Fetcher retrieves raw image bytes from a location. Locations with an
// http(s) scheme are downloaded; anything without a scheme (or file://) is
// read from the local filesystem.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
	logger    *utils.Logger
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout   time.Duration
	UserAgent string
	MaxBytes  int64
	Logger    *utils.Logger
}

// NewFetcher creates a fetcher with a shared timeout-bounded HTTP client.
func NewFetcher(opts FetcherOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = utils.DefaultLogger
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: opts.UserAgent,
		maxBytes:  opts.MaxBytes,
		logger:    logger,
	}
}

// Fetch returns the raw bytes at location plus a format hint derived from
// the response content type (empty when unknown).
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, string, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, "", fmt.Errorf("parse location: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return f.download(ctx, location)
	case "", "file":
		return f.readFile(u.Path)
	default:
		return nil, "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status: %s", resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isPlausibleImageContentType(contentType) {
		return nil, "", fmt.Errorf("unsupported content-type: %s", contentType)
	}

	if resp.ContentLength > 0 && f.maxBytes > 0 && resp.ContentLength > f.maxBytes {
		return nil, "", fmt.Errorf("remote image exceeds max size: %d", resp.ContentLength)
	}

	raw, err := f.readAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	f.logger.DebugTag("FETCH", "downloaded %d bytes from %s", len(raw), rawURL)
	return raw, inferFormatFromContentType(contentType), nil
}

func (f *Fetcher) readFile(path string) ([]byte, string, error) {
	if path == "" {
		return nil, "", fmt.Errorf("empty file path")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	raw, err := f.readAll(file)
	if err != nil {
		return nil, "", err
	}
	return raw, "", nil
}

// readAll streams the reader into memory, erroring once the payload passes
// the configured byte cap.
func (f *Fetcher) readAll(r io.Reader) ([]byte, error) {
	maxBytes := f.maxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	limited := &io.LimitedReader{
		R: r,
		N: maxBytes + 1,
	}

	buf := bytes.NewBuffer(make([]byte, 0, 32*1024))
	if _, err := io.Copy(buf, limited); err != nil {
		return nil, fmt.Errorf("stream image bytes: %w", err)
	}
	if limited.N <= 0 {
		return nil, fmt.Errorf("image exceeds maximum size of %d bytes", maxBytes)
	}

	return buf.Bytes(), nil
}

func isPlausibleImageContentType(contentType string) bool {
	if contentType == "" {
		return true
	}

	lower := strings.ToLower(contentType)
	if strings.HasPrefix(lower, "image/") {
		return true
	}
	// some hosts serve images untyped
	return strings.Contains(lower, "application/octet-stream")
}

func inferFormatFromContentType(contentType string) string {
	lower := strings.ToLower(contentType)
	switch {
	case strings.Contains(lower, "image/jpeg"), strings.Contains(lower, "image/jpg"):
		return "jpeg"
	case strings.Contains(lower, "image/png"):
		return "png"
	case strings.Contains(lower, "image/gif"):
		return "gif"
	case strings.Contains(lower, "image/webp"):
		return "webp"
	case strings.Contains(lower, "image/bmp"):
		return "bmp"
	case strings.Contains(lower, "image/tiff"):
		return "tiff"
	default:
		return ""
	}
}
