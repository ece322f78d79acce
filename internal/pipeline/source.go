package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// Source yields input lines lazily, one URL per line. The list may live on
// disk or behind an http(s) URL; either way it is streamed, never loaded
// whole.
type Source struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
}

// OpenSource opens the line source. Failure here is fatal to the run.
func OpenSource(ctx context.Context, location string) (*Source, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("parse input location: %w", err)
	}

	var rc io.ReadCloser
	switch u.Scheme {
	case "http", "https":
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
		if err != nil {
			return nil, fmt.Errorf("create input request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch input list: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			resp.Body.Close()
			return nil, fmt.Errorf("fetch input list: unexpected status %s", resp.Status)
		}
		rc = resp.Body
	case "", "file":
		file, err := os.Open(u.Path)
		if err != nil {
			return nil, fmt.Errorf("open input file: %w", err)
		}
		rc = file
	default:
		return nil, fmt.Errorf("unsupported input scheme: %s", u.Scheme)
	}

	return &Source{
		rc:      rc,
		scanner: bufio.NewScanner(rc),
	}, nil
}

// Scan advances to the next line.
func (s *Source) Scan() bool {
	return s.scanner.Scan()
}

// Text returns the current line without its terminator.
func (s *Source) Text() string {
	return s.scanner.Text()
}

// Err reports a mid-stream read failure, if any.
func (s *Source) Err() error {
	return s.scanner.Err()
}

// Close releases the underlying reader.
func (s *Source) Close() error {
	return s.rc.Close()
}
