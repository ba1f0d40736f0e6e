package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	visionProvider = "vision"

	// vertices at or below this bound on both axes are taken as normalized
	normalizedBound = 1.05
)

// VisionClient runs OCR through the Cloud Vision images:annotate endpoint.
type VisionClient struct {
	client  *resty.Client
	apiKey  string
	baseURL string
}

// VisionConfig holds configuration for the Vision client.
type VisionConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Point is a polygon vertex in image pixels, or in 0..1 when normalized.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextBlock is a detected block of text and its outline.
type TextBlock struct {
	Text    string  `json:"text"`
	Polygon []Point `json:"polygon"`
}

// OCRResult is the text detected in one image.
type OCRResult struct {
	Text   string      `json:"text"`
	Blocks []TextBlock `json:"blocks"`
}

// NewVisionClient creates a Vision client.
func NewVisionClient(cfg *VisionConfig) *VisionClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://vision.googleapis.com/v1"
	}
	client := resty.New()
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)
	return &VisionClient{client: client, apiKey: cfg.APIKey, baseURL: strings.TrimRight(baseURL, "/")}
}

// Enabled reports whether an API key is configured.
func (c *VisionClient) Enabled() bool {
	return c.apiKey != ""
}

type visionRequest struct {
	Requests []visionRequestItem `json:"requests"`
}

type visionRequestItem struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionVertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type visionBoundingPoly struct {
	Vertices           []visionVertex `json:"vertices"`
	NormalizedVertices []visionVertex `json:"normalizedVertices"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Blocks []struct {
					BoundingBox *visionBoundingPoly `json:"boundingBox"`
					Paragraphs  []struct {
						Words []struct {
							Symbols []struct {
								Text string `json:"text"`
							} `json:"symbols"`
						} `json:"words"`
					} `json:"paragraphs"`
				} `json:"blocks"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	} `json:"responses"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// DetectText runs DOCUMENT_TEXT_DETECTION on image.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: raw image bytes.
//   - naturalW, naturalH: image size in pixels, used to scale normalized outlines.
//
// Returns:
//   - *OCRResult: full text and per-block outlines.
//   - error: ErrEmptyResult when no text was detected.
func (c *VisionClient) DetectText(ctx context.Context, image []byte, naturalW, naturalH float64) (*OCRResult, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: vision", ErrProviderDisabled)
	}

	req := visionRequest{Requests: []visionRequestItem{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(image)},
		Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
	}}}

	var result visionResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&result).
		SetError(&result).
		Post(c.baseURL + "/images:annotate")
	if err != nil {
		return nil, fmt.Errorf("failed to call Vision API: %w", err)
	}
	if !httpResp.IsSuccess() {
		msg := truncate(httpResp.String(), 300)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, &UpstreamError{Provider: visionProvider, StatusCode: httpResp.StatusCode(), Message: msg}
	}
	if len(result.Responses) == 0 {
		return nil, fmt.Errorf("%w: no text detected", ErrEmptyResult)
	}
	first := result.Responses[0]
	if first.Error != nil {
		return nil, &UpstreamError{Provider: visionProvider, StatusCode: first.Error.Code, Message: first.Error.Message}
	}
	ann := first.FullTextAnnotation
	if ann == nil {
		return nil, fmt.Errorf("%w: no text detected", ErrEmptyResult)
	}

	out := &OCRResult{Text: ann.Text, Blocks: []TextBlock{}}
	for _, page := range ann.Pages {
		for _, block := range page.Blocks {
			var text strings.Builder
			for _, para := range block.Paragraphs {
				for _, word := range para.Words {
					for _, sym := range word.Symbols {
						text.WriteString(sym.Text)
					}
					text.WriteByte(' ')
				}
				text.WriteByte('\n')
			}

			pts := blockOutline(block.BoundingBox)
			if len(pts) < 3 {
				continue
			}
			out.Blocks = append(out.Blocks, TextBlock{
				Text:    strings.TrimSpace(text.String()),
				Polygon: NormalizePolygon(pts, naturalW, naturalH),
			})
		}
	}
	return out, nil
}

// blockOutline prefers pixel vertices and falls back to normalized ones when
// the pixel outline is degenerate (fewer than 3 points, or 2+ at the origin).
func blockOutline(poly *visionBoundingPoly) []Point {
	if poly == nil {
		return nil
	}
	pts := toPoints(poly.Vertices)
	origin := 0
	for _, p := range pts {
		if p.X == 0 && p.Y == 0 {
			origin++
		}
	}
	if (len(pts) < 3 || origin >= 2) && len(poly.NormalizedVertices) >= 3 {
		pts = toPoints(poly.NormalizedVertices)
	}
	return pts
}

func toPoints(vs []visionVertex) []Point {
	pts := make([]Point, len(vs))
	for i, v := range vs {
		pts[i] = Point{X: v.X, Y: v.Y}
	}
	return pts
}

// NormalizePolygon scales a normalized outline to pixels. Outlines already in
// pixels, or a non-positive image size, are returned unchanged.
func NormalizePolygon(pts []Point, naturalW, naturalH float64) []Point {
	if naturalW <= 0 || naturalH <= 0 || !looksNormalized(pts) {
		return pts
	}
	scaled := make([]Point, len(pts))
	for i, p := range pts {
		scaled[i] = Point{X: p.X * naturalW, Y: p.Y * naturalH}
	}
	return scaled
}

func looksNormalized(pts []Point) bool {
	if len(pts) == 0 {
		return false
	}
	for _, p := range pts {
		if p.X < 0 || p.Y < 0 || p.X > normalizedBound || p.Y > normalizedBound {
			return false
		}
	}
	return true
}
