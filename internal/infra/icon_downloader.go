package infra

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultIconURL is the CDN pattern for crypto icons; %s is the lowercase base symbol.
const DefaultIconURL = "https://assets.coincap.io/assets/icons/%s@2x.png"

// IconSize is the edge length of cached icons.
const IconSize = 24

// IconDownloader handles downloading and caching crypto icons
type IconDownloader struct {
	basePath   string
	urlPattern string
	client     *http.Client
}

// NewIconDownloader creates a downloader caching into dir. An empty urlPattern uses DefaultIconURL.
func NewIconDownloader(dir, urlPattern string) (*IconDownloader, error) {
	if dir == "" {
		return nil, fmt.Errorf("empty icon directory")
	}
	if urlPattern == "" {
		urlPattern = DefaultIconURL
	}

	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create icon directory: %w", err)
	}

	// Optimize HTTP Transport to prevent connection leaks
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConns = 100
	transport.MaxConnsPerHost = 10
	transport.IdleConnTimeout = 30 * time.Second

	return &IconDownloader{
		basePath:   dir,
		urlPattern: urlPattern,
		client: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
	}, nil
}

// DownloadIcon fetches the icon for a symbol ("BTC-USD" or "btc") unless already cached.
// Icons are resized to IconSize x IconSize with a Lanczos filter. Returns the local path.
func (d *IconDownloader) DownloadIcon(symbol string) (string, error) {
	base := sanitizeSymbol(baseSymbol(symbol))
	if base == "" {
		return "", fmt.Errorf("invalid symbol: %q", symbol)
	}

	filePath := d.GetIconPath(base)

	// Cache hit
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil
	}

	resp, err := d.client.Get(fmt.Sprintf(d.urlPattern, base))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	srcImg, err := imaging.Decode(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	resized := imaging.Resize(srcImg, IconSize, IconSize, imaging.Lanczos)
	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save resized image: %w", err)
	}

	return filePath, nil
}

// GetIconPath returns the cache path for a symbol's icon
func (d *IconDownloader) GetIconPath(symbol string) string {
	return filepath.Join(d.basePath, sanitizeSymbol(baseSymbol(symbol))+".png")
}

// baseSymbol strips the quote suffix and lowercases ("BTC-USD" -> "btc").
func baseSymbol(symbol string) string {
	s := strings.ToLower(strings.TrimSpace(symbol))
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	return s
}

// sanitizeSymbol keeps only ASCII letters and digits (path traversal guard).
func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
