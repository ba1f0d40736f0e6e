package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/prodcat/internal/logger"
)

const geminiProvider = "gemini"

// GeminiClient calls the Gemini generateContent API for text and images.
// The API key travels in the query string; the client sends no Authorization header.
type GeminiClient struct {
	client     *resty.Client
	apiKey     string
	baseURL    string
	textModel  string
	imageModel string
}

// GeminiConfig holds configuration for the Gemini client.
type GeminiConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// InlineImage is an image sent to or received from Gemini.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// NewGeminiClient creates a Gemini client.
// Parameters:
//   - cfg: API key, base URL, model names and timeout.
//
// Returns:
//   - *GeminiClient: client; calls fail with ErrProviderDisabled when no key is set.
func NewGeminiClient(cfg *GeminiConfig) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	textModel := cfg.TextModel
	if textModel == "" {
		textModel = "gemini-2.5-flash-lite"
	}
	imageModel := cfg.ImageModel
	if imageModel == "" {
		imageModel = "gemini-2.5-flash-image"
	}

	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	return &GeminiClient{
		client:     client,
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		textModel:  textModel,
		imageModel: imageModel,
	}
}

// Enabled reports whether an API key is configured.
func (c *GeminiClient) Enabled() bool {
	return c.apiKey != ""
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// GenerateText runs a text-only prompt on the text model.
// Returns:
//   - string: concatenated text parts of the first candidate.
//   - error: ErrEmptyResult when the model answered without text.
func (c *GeminiClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt must not be empty")
	}
	req := geminiRequest{Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}}}

	resp, err := c.generate(ctx, c.textModel, req)
	if err != nil {
		return "", err
	}

	var texts []string
	for _, part := range firstParts(resp) {
		if part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	text := strings.TrimSpace(strings.Join(texts, ""))
	if text == "" {
		return "", fmt.Errorf("%w: no text in Gemini response", ErrEmptyResult)
	}
	return text, nil
}

// GenerateImage runs prompt on the image model. With a source image the
// model edits it; without one it creates a new image.
// Returns:
//   - *InlineImage: first image part of the answer.
//   - error: ErrEmptyResult when the answer holds no image.
func (c *GeminiClient) GenerateImage(ctx context.Context, prompt string, source *InlineImage) (*InlineImage, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	parts := []geminiPart{{Text: prompt}}
	if source != nil && len(source.Data) > 0 && source.MIMEType != "" {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MIMEType: source.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(source.Data),
		}})
	}
	req := geminiRequest{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	}

	resp, err := c.generate(ctx, c.imageModel, req)
	if err != nil {
		return nil, err
	}

	for _, part := range firstParts(resp) {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode Gemini image: %w", err)
		}
		mime := part.InlineData.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		return &InlineImage{MIMEType: mime, Data: data}, nil
	}
	return nil, fmt.Errorf("%w: Gemini response has no image", ErrEmptyResult)
}

func (c *GeminiClient) generate(ctx context.Context, model string, req geminiRequest) (*geminiResponse, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: gemini", ErrProviderDisabled)
	}

	start := time.Now()
	var result geminiResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model))
	if err != nil {
		return nil, fmt.Errorf("failed to call Gemini API: %w", err)
	}

	if !httpResp.IsSuccess() {
		msg := truncate(httpResp.String(), 300)
		if result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, &UpstreamError{Provider: geminiProvider, StatusCode: httpResp.StatusCode(), Message: msg}
	}
	if result.Error != nil {
		return nil, &UpstreamError{Provider: geminiProvider, StatusCode: result.Error.Code, Message: result.Error.Message}
	}

	logger.With(logger.Fields{
		logger.FieldProvider:   geminiProvider,
		"model":                model,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
	}).Debug(ctx, "Gemini call completed")
	return &result, nil
}

func firstParts(resp *geminiResponse) []geminiPart {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

// stripCodeFences removes a surrounding ``` block that models like to add.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	// drop the language tag line, if any
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
