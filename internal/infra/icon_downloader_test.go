package infra

import (
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
)

func TestSanitizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"btc", "btc"},
		{"../../etc/passwd", "etcpasswd"},
		{"eth/..", "eth"},
		{"sol\x00", "sol"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeSymbol(tt.in); got != tt.want {
				t.Errorf("sanitizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBaseSymbol(t *testing.T) {
	for in, want := range map[string]string{
		"BTC-USD": "btc",
		" eth ":   "eth",
		"AAPL":    "aapl",
	} {
		if got := baseSymbol(in); got != want {
			t.Errorf("baseSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIconDownloader_DownloadAndCache(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if !strings.HasPrefix(r.URL.Path, "/btc") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		img := image.NewRGBA(image.Rect(0, 0, 64, 64))
		for x := 0; x < 64; x++ {
			img.Set(x, x, color.RGBA{R: 255, A: 255})
		}
		png.Encode(w, img)
	}))
	defer server.Close()

	d, err := NewIconDownloader(t.TempDir(), server.URL+"/%s.png")
	if err != nil {
		t.Fatalf("NewIconDownloader failed: %v", err)
	}

	path, err := d.DownloadIcon("BTC-USD")
	if err != nil {
		t.Fatalf("DownloadIcon failed: %v", err)
	}
	if path != d.GetIconPath("btc") {
		t.Errorf("unexpected path %s", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("cached icon unreadable: %v", err)
	}
	if b := img.Bounds(); b.Dx() != IconSize || b.Dy() != IconSize {
		t.Errorf("expected %dx%d icon, got %v", IconSize, IconSize, b)
	}

	// Second call is served from disk.
	if _, err := d.DownloadIcon("btc"); err != nil {
		t.Fatalf("cached DownloadIcon failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 HTTP call, got %d", calls.Load())
	}

	if _, err := d.DownloadIcon("ZZZ-USD"); err == nil {
		t.Error("expected error for missing icon")
	}
	if _, err := os.Stat(d.GetIconPath("zzz")); !os.IsNotExist(err) {
		t.Error("failed download should not leave a file")
	}
	if _, err := d.DownloadIcon("../"); err == nil {
		t.Error("expected error for invalid symbol")
	}
}
