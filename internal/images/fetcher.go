package images

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// MaxSourceBytes caps how much of a remote image is read
const MaxSourceBytes = 10 * 1024 * 1024

// Fetcher retrieves images from remote sources
type Fetcher struct {
	HTTPClient *http.Client
	// CoverURL builds the Open Library cover URL for an ISBN
	CoverURL func(isbn string) string
}

// NewFetcher creates a new image fetcher
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		CoverURL: func(isbn string) string {
			return fmt.Sprintf("https://covers.openlibrary.org/b/isbn/%s-L.jpg", isbn)
		},
	}
}

// Download reads an image from an http(s) URL
func (f *Fetcher) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create image request: %w", err)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxSourceBytes {
		return nil, fmt.Errorf("image too large (max %d bytes)", MaxSourceBytes)
	}
	return data, nil
}

// Cover downloads the Open Library cover for an ISBN
func (f *Fetcher) Cover(ctx context.Context, isbn string) ([]byte, error) {
	isbn = CleanISBN(isbn)
	if isbn == "" {
		return nil, fmt.Errorf("isbn is empty")
	}

	data, err := f.Download(ctx, f.CoverURL(isbn))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cover: %w", err)
	}

	// Open Library answers unknown ISBNs with a tiny placeholder
	if len(data) < 1000 {
		return nil, fmt.Errorf("no cover found for ISBN %s", isbn)
	}

	slog.Debug("Downloaded cover image", "isbn", isbn, "bytes", len(data))
	return data, nil
}

// CleanISBN removes hyphens and spaces
func CleanISBN(isbn string) string {
	return strings.ReplaceAll(strings.ReplaceAll(strings.TrimSpace(isbn), "-", ""), " ", "")
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// Load reads an image from a local path or an http(s) URL. Only local files
// go through the read permission check.
func (f *Fetcher) Load(ctx context.Context, source string) ([]byte, error) {
	if IsRemote(source) {
		return f.Download(ctx, source)
	}
	return ReadLocal(source)
}
