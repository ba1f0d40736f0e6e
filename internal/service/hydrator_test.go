package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/timmy/prodcat/internal/domain"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHydrate_BoundedConcurrency(t *testing.T) {
	payload := pngBytes(t)
	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	auth := map[string]bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		mu.Lock()
		auth[r.Header.Get("Authorization")] = true
		mu.Unlock()
		time.Sleep(30 * time.Millisecond)
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	products := make([]*domain.Product, 12)
	for i := range products {
		products[i] = &domain.Product{ProductID: int64(i + 1), ImageURL: fmt.Sprintf("%s/img/%d.png", srv.URL, i)}
	}

	h := NewImageHydrator(&HydratorConfig{Concurrency: 3})
	h.Hydrate(context.Background(), "tok", products)

	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", got)
	}
	for _, p := range products {
		if !strings.HasPrefix(p.ImageURL, "data:image/png;base64,") || !p.ImageLoaded {
			t.Errorf("product %d not hydrated: %q", p.ProductID, p.ImageURL)
		}
	}
	if len(auth) != 1 || !auth["Bearer tok"] {
		t.Errorf("unexpected Authorization headers %v", auth)
	}
}

func TestHydrate_SkipsAndFailures(t *testing.T) {
	payload := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.png":
			w.Write(payload)
		case "/doc":
			w.Header().Set("Content-Type", "application/pdf")
			w.Write([]byte("%PDF-1.4 fake"))
		case "/big.png":
			w.Write(bytes.Repeat([]byte{0xff}, 2048))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	inline := "data:image/png;base64,AAAA"
	products := []*domain.Product{
		{ProductID: 1, ImageURL: srv.URL + "/ok.png"},
		{ProductID: 2, ImageURL: srv.URL + "/missing.png"},
		{ProductID: 3, ImageURL: srv.URL + "/doc"},
		{ProductID: 4, ImageURL: srv.URL + "/big.png"},
		{ProductID: 5, ImageURL: inline, ImageLoaded: true},
		{ProductID: 6},
		nil,
	}

	h := NewImageHydrator(&HydratorConfig{Concurrency: 2, MaxImageBytes: 1024})
	h.For("tok")(context.Background(), products)

	if !strings.HasPrefix(products[0].ImageURL, "data:image/png;base64,") {
		t.Errorf("ok image not inlined: %q", products[0].ImageURL)
	}
	for _, i := range []int{1, 2, 3} {
		if !strings.HasPrefix(products[i].ImageURL, srv.URL) {
			t.Errorf("product %d should keep its URL, got %q", products[i].ProductID, products[i].ImageURL)
		}
	}
	if products[4].ImageURL != inline {
		t.Errorf("data URL rewritten: %q", products[4].ImageURL)
	}
	if products[5].ImageURL != "" || products[5].ImageLoaded {
		t.Errorf("empty image changed: %+v", products[5])
	}
}

func TestImageFetcher_RejectsNonHTTP(t *testing.T) {
	f := newImageFetcher(time.Second, 0)
	for _, u := range []string{"ftp://x/a.png", "file:///etc/passwd", "https://x/manual.PDF?v=1"} {
		if _, _, err := f.fetch(context.Background(), "", u); err == nil {
			t.Errorf("fetch(%q) should fail", u)
		}
	}
}
