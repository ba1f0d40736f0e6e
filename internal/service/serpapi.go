package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/prodcat/internal/logger"
)

const (
	serpProvider      = "serpapi"
	maxSerpImages     = 20
	defaultSerpGL     = "ar"
	defaultSerpHL     = "es"
	defaultSerpRegion = "Argentina"
)

// SerpAPIClient runs Google image and web searches through SerpAPI.
type SerpAPIClient struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// SerpAPIConfig holds configuration for the SerpAPI client.
type SerpAPIConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// NewSerpAPIClient creates a SerpAPI client.
func NewSerpAPIClient(cfg *SerpAPIConfig) *SerpAPIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://serpapi.com/search.json"
	}
	client := resty.New()
	client.SetTimeout(timeout)
	return &SerpAPIClient{client: client, apiKey: strings.TrimSpace(cfg.APIKey), baseURL: baseURL}
}

// Enabled reports whether an API key is configured.
func (c *SerpAPIClient) Enabled() bool {
	return c.apiKey != ""
}

type serpResponse struct {
	Error          string `json:"error"`
	SearchMetadata struct {
		Status string `json:"status"`
	} `json:"search_metadata"`
	ImagesResults []struct {
		Original  string `json:"original"`
		Thumbnail string `json:"thumbnail"`
	} `json:"images_results"`
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// SearchImages returns up to n image URLs (max 20), preferring the original
// image over its thumbnail.
func (c *SerpAPIClient) SearchImages(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 || n > maxSerpImages {
		n = maxSerpImages
	}
	resp, err := c.search(ctx, map[string]string{
		"engine":   "google_images",
		"q":        query,
		"location": defaultSerpRegion,
	})
	if err != nil || resp == nil {
		return []string{}, err
	}

	urls := make([]string, 0, n)
	for _, item := range resp.ImagesResults {
		u := strings.TrimSpace(item.Original)
		if u == "" {
			u = strings.TrimSpace(item.Thumbnail)
		}
		if !isRemoteURL(u) || looksLikePDFURL(u) {
			continue
		}
		urls = append(urls, u)
		if len(urls) >= n {
			break
		}
	}
	return urls, nil
}

// SearchSnippets returns up to n organic result snippets, falling back to the
// result title when a snippet is missing.
func (c *SerpAPIClient) SearchSnippets(ctx context.Context, query string, n int) ([]string, error) {
	if n <= 0 {
		n = 10
	}
	resp, err := c.search(ctx, map[string]string{
		"engine": "google",
		"q":      query,
	})
	if err != nil || resp == nil {
		return []string{}, err
	}

	snippets := make([]string, 0, n)
	for _, item := range resp.OrganicResults {
		s := strings.TrimSpace(item.Snippet)
		if s == "" {
			s = strings.TrimSpace(item.Title)
		}
		if s == "" {
			continue
		}
		snippets = append(snippets, s)
		if len(snippets) >= n {
			break
		}
	}
	return snippets, nil
}

// search runs one query. A nil response with a nil error means there were no
// results.
func (c *SerpAPIClient) search(ctx context.Context, params map[string]string) (*serpResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: serpapi", ErrProviderDisabled)
	}
	params["q"] = strings.TrimSpace(params["q"])
	if params["q"] == "" {
		return nil, nil
	}
	params["api_key"] = c.apiKey
	params["gl"] = defaultSerpGL
	params["hl"] = defaultSerpHL

	start := time.Now()
	var result serpResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&result).
		SetError(&result).
		Get(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to call SerpAPI: %w", err)
	}

	if result.Error != "" && isNoResults(result.Error) {
		return nil, nil
	}
	if !httpResp.IsSuccess() || result.Error != "" || strings.EqualFold(result.SearchMetadata.Status, "Error") {
		msg := result.Error
		if msg == "" {
			msg = truncate(httpResp.String(), 300)
		}
		return nil, &UpstreamError{Provider: serpProvider, StatusCode: httpResp.StatusCode(), Message: msg}
	}

	logger.With(logger.Fields{
		logger.FieldProvider:   serpProvider,
		"engine":               params["engine"],
		logger.FieldCount:      len(result.ImagesResults) + len(result.OrganicResults),
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "SerpAPI search completed")
	return &result, nil
}

// isNoResults matches SerpAPI's "Google hasn't returned any results" message.
func isNoResults(msg string) bool {
	return strings.Contains(strings.ToLower(msg), "returned any results")
}

