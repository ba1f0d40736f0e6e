package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/paging"
	"golang.org/x/sync/errgroup"
)

const (
	defaultHydrationConcurrency = 5
	defaultMaxImageBytes        = 4 * 1024 * 1024
)

// HydratorConfig holds configuration for image hydration.
type HydratorConfig struct {
	Concurrency   int
	MaxImageBytes int64
	Timeout       time.Duration
}

// ImageHydrator inlines product images as data URLs so clients can show them
// without holding the catalog token.
type ImageHydrator struct {
	fetcher     *imageFetcher
	concurrency int
}

// NewImageHydrator creates an ImageHydrator.
func NewImageHydrator(cfg *HydratorConfig) *ImageHydrator {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultHydrationConcurrency
	}
	return &ImageHydrator{
		fetcher:     newImageFetcher(cfg.Timeout, cfg.MaxImageBytes),
		concurrency: concurrency,
	}
}

// Hydrate downloads every remote product image, at most Concurrency at a time,
// and rewrites ImageURL in place. A failed download leaves the product as it is.
func (h *ImageHydrator) Hydrate(ctx context.Context, token string, products []*domain.Product) {
	start := time.Now()
	var g errgroup.Group
	g.SetLimit(h.concurrency)

	var inlined atomic.Int32
	for _, p := range products {
		if p == nil || !isRemoteURL(p.ImageURL) {
			continue
		}
		g.Go(func() error {
			dataURL, err := h.fetcher.fetchDataURL(ctx, token, p.ImageURL)
			if err != nil {
				logger.FromContext(ctx).WithFields(logger.Fields{
					logger.FieldProductID: p.ProductID,
					"url":                 p.ImageURL,
				}).WithError(err).Debug("Image not inlined")
				return nil
			}
			p.ImageURL = dataURL
			p.ImageLoaded = true
			inlined.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	logger.With(logger.Fields{
		logger.FieldCount:      int(inlined.Load()),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Chunk hydrated: %d products", len(products))
}

// For binds the token of one request, giving the fetcher's hook.
func (h *ImageHydrator) For(token string) paging.Hydrator[*domain.Product] {
	return func(ctx context.Context, chunk []*domain.Product) {
		h.Hydrate(ctx, token, chunk)
	}
}

// imageFetcher downloads images with a size cap and turns them into data URLs.
type imageFetcher struct {
	client   *resty.Client
	maxBytes int64
}

func newImageFetcher(timeout time.Duration, maxBytes int64) *imageFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "image/*")
	return &imageFetcher{client: client, maxBytes: maxBytes}
}

// fetch downloads rawURL. token is sent as a bearer token when non-empty.
func (f *imageFetcher) fetch(ctx context.Context, token, rawURL string) ([]byte, string, error) {
	if !isRemoteURL(rawURL) {
		return nil, "", fmt.Errorf("%w: only http(s) URLs can be fetched", ErrUnsupportedImage)
	}
	if looksLikePDFURL(rawURL) {
		return nil, "", fmt.Errorf("%w: PDF documents are not images", ErrUnsupportedImage)
	}

	req := f.client.R().SetContext(ctx).SetDoNotParseResponse(true)
	if token != "" {
		req.SetAuthToken(token)
	}
	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to download image: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if !resp.IsSuccess() {
		return nil, "", &UpstreamError{Provider: "image", StatusCode: resp.StatusCode(), Message: rawURL}
	}
	if resp.RawResponse.ContentLength > f.maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes exceeds %d", ErrUnsupportedImage, resp.RawResponse.ContentLength, f.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(body, f.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", ErrUnsupportedImage, f.maxBytes)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty body", ErrUnsupportedImage)
	}

	mime := strings.TrimSpace(strings.SplitN(resp.Header().Get("Content-Type"), ";", 2)[0])
	if mime == "application/pdf" || mimetype.Detect(data).Is("application/pdf") {
		return nil, "", fmt.Errorf("%w: PDF documents are not images", ErrUnsupportedImage)
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = sniffImageMIME(data)
	}
	return data, mime, nil
}

func (f *imageFetcher) fetchDataURL(ctx context.Context, token, rawURL string) (string, error) {
	data, mime, err := f.fetch(ctx, token, rawURL)
	if err != nil {
		return "", err
	}
	return BuildDataURL(data, mime), nil
}

func isRemoteURL(s string) bool {
	lower := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
