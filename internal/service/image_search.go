package service

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/prodcat/internal/logger"
)

const (
	imageSearchProvider = "google_cse"
	maxCSEResults       = 10
)

// ImageSearchClient searches product images through Google Custom Search.
// Several API keys may be configured; a key that fails is skipped in favor of
// the next one.
type ImageSearchClient struct {
	client  *resty.Client
	apiKeys []string
	cx      string
	baseURL string
}

// ImageSearchConfig holds configuration for the Custom Search client.
type ImageSearchConfig struct {
	APIKeys []string
	CX      string
	BaseURL string
	Timeout time.Duration
}

// NewImageSearchClient creates a Custom Search client.
func NewImageSearchClient(cfg *ImageSearchConfig) *ImageSearchClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/customsearch/v1"
	}
	var keys []string
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &ImageSearchClient{client: client, apiKeys: keys, cx: cfg.CX, baseURL: baseURL}
}

// Enabled reports whether at least one key and a search engine id are configured.
func (c *ImageSearchClient) Enabled() bool {
	return len(c.apiKeys) > 0 && c.cx != ""
}

type cseResponse struct {
	Items []struct {
		Link string `json:"link"`
		Mime string `json:"mime"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Search returns up to n image URLs for query. PDFs and non-image results are
// dropped.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: free text, usually the product description.
//   - n: wanted results, capped at 10.
//
// Returns:
//   - []string: http(s) image URLs.
//   - error: the last key's error when every key failed.
func (c *ImageSearchClient) Search(ctx context.Context, query string, n int) ([]string, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: google custom search", ErrProviderDisabled)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return []string{}, nil
	}
	if n <= 0 || n > maxCSEResults {
		n = maxCSEResults
	}

	var lastErr error
	succeeded := false
	for i, key := range c.apiKeys {
		links, err := c.searchWithKey(ctx, key, query, n)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.With(logger.Fields{
				logger.FieldProvider: imageSearchProvider,
				"key_index":          i,
			}).Warn(ctx, "Image search key failed, rotating: %v", err)
			lastErr = err
			continue
		}
		succeeded = true
		if len(links) > 0 {
			return links, nil
		}
	}
	if !succeeded && lastErr != nil {
		return nil, lastErr
	}
	return []string{}, nil
}

func (c *ImageSearchClient) searchWithKey(ctx context.Context, key, query string, n int) ([]string, error) {
	var result cseResponse
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":        key,
			"cx":         c.cx,
			"q":          query,
			"searchType": "image",
			"fileType":   "jpeg,png",
			"num":        strconv.Itoa(n),
		}).
		SetResult(&result).
		SetError(&result).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to call image search API: %w", err)
	}
	if !resp.IsSuccess() {
		msg := truncate(resp.String(), 300)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, &UpstreamError{Provider: imageSearchProvider, StatusCode: resp.StatusCode(), Message: msg}
	}

	links := make([]string, 0, len(result.Items))
	for _, item := range result.Items {
		mime := strings.ToLower(strings.TrimSpace(item.Mime))
		if mime != "" && !strings.HasPrefix(mime, "image/") {
			continue
		}
		if !isRemoteURL(item.Link) || looksLikePDFURL(item.Link) {
			continue
		}
		links = append(links, item.Link)
		if len(links) >= n {
			break
		}
	}
	return links, nil
}

// looksLikePDFURL spots links to PDF documents, including escaped ones and
// format/type query switches.
func looksLikePDFURL(raw string) bool {
	if raw == "" {
		return false
	}
	if hasPDFHint(raw) {
		return true
	}
	if decoded, err := url.QueryUnescape(raw); err == nil && decoded != raw {
		return hasPDFHint(decoded)
	}
	return false
}

func hasPDFHint(raw string) bool {
	lower := strings.ToLower(raw)
	if strings.Contains(lower, ".pdf") || strings.Contains(lower, "application/pdf") {
		return true
	}
	path, query, _ := strings.Cut(lower, "?")
	if strings.HasSuffix(path, "/pdf") {
		return true
	}
	return strings.Contains(query, "format=pdf") || strings.Contains(query, "type=pdf")
}

