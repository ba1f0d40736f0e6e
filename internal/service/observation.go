package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/prompts"
	"github.com/timmy/prodcat/internal/richtext"
	"golang.org/x/net/html"
)

const maxObservationSnippets = 8

// ObservationStore persists the history of saved observations.
type ObservationStore interface {
	Create(ctx context.Context, rev *domain.ObservationRevision) error
	ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.ObservationRevision, error)
}

// ObservationService edits, generates and saves product observations. The
// catalog stores them as RTF; editors work on HTML.
type ObservationService struct {
	catalog *CatalogClient
	store   ObservationStore
	gemini  *GeminiClient
	serp    *SerpAPIClient
}

// NewObservationService creates an ObservationService. store may be nil, in
// which case no history is kept.
func NewObservationService(catalog *CatalogClient, store ObservationStore, gemini *GeminiClient, serp *SerpAPIClient) *ObservationService {
	return &ObservationService{catalog: catalog, store: store, gemini: gemini, serp: serp}
}

// SaveResult reports the outcome of Save.
type SaveResult struct {
	Saved    bool                        `json:"saved"`
	RTF      string                      `json:"rtf"`
	Revision *domain.ObservationRevision `json:"revision,omitempty"`
}

// GeneratedObservation is a model-written observation, not yet saved.
type GeneratedObservation struct {
	RTF      string `json:"rtf"`
	HTML     string `json:"html"`
	Snippets int    `json:"snippets"`
}

// Preview renders a stored RTF observation as HTML.
func (s *ObservationService) Preview(rtf string) string {
	return richtext.ToHTML(rtf)
}

// Save converts the editor HTML to RTF and writes it to the catalog. An
// observation that converts to nothing is not sent.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: catalog bearer token.
//   - productID: catalog product id.
//   - htmlText: editor content.
//   - origin: who wrote it; empty means manual.
//
// Returns:
//   - *SaveResult: Saved is false when there was nothing to save.
//   - error: invalid origin or catalog failure.
func (s *ObservationService) Save(ctx context.Context, token string, productID int64, htmlText string, origin domain.ObservationOrigin) (*SaveResult, error) {
	if origin == "" {
		origin = domain.ObservationManual
	}
	if origin != domain.ObservationManual && origin != domain.ObservationGemini {
		return nil, fmt.Errorf("%w: observation origin %q", ErrInvalidArgument, origin)
	}

	rtf := richtext.ToRTF(htmlText)
	if rtf == "" {
		logger.CtxInfo(ctx, "Empty observation for product %d, nothing saved", productID)
		return &SaveResult{Saved: false}, nil
	}

	if err := s.catalog.PatchProduct(ctx, token, ProductPatch{
		ProductID:            productID,
		ObservationSpecified: true,
		Observation:          rtf,
	}); err != nil {
		return nil, fmt.Errorf("failed to save observation: %w", err)
	}

	rev := &domain.ObservationRevision{
		ID:          uuid.New().String(),
		ProductID:   productID,
		RTF:         rtf,
		HTMLPreview: richtext.ToHTML(rtf),
		Origin:      origin,
	}
	if s.store != nil {
		if err := s.store.Create(ctx, rev); err != nil {
			// the catalog already has it
			logger.FromContext(ctx).WithError(err).Warnf("Failed to record observation revision for product %d", productID)
		}
	}

	return &SaveResult{Saved: true, RTF: rtf, Revision: rev}, nil
}

// Generate writes an observation for a product with Gemini, grounded on web
// snippets about it when SerpAPI is configured.
func (s *ObservationService) Generate(ctx context.Context, description, code string) (*GeneratedObservation, error) {
	if strings.TrimSpace(description) == "" && strings.TrimSpace(code) == "" {
		return nil, fmt.Errorf("%w: description or code is required", ErrInvalidArgument)
	}

	if s.gemini == nil {
		return nil, fmt.Errorf("%w: gemini", ErrProviderDisabled)
	}

	var snippets []string
	if s.serp != nil && s.serp.Enabled() {
		found, err := s.serp.SearchSnippets(ctx, strings.TrimSpace(description+" "+code), maxObservationSnippets)
		if err != nil {
			logger.FromContext(ctx).WithError(err).Warn("Snippet search failed, generating from the description only")
		}
		snippets = found
	}

	text, err := s.gemini.GenerateText(ctx, prompts.Observation(description, code, snippets))
	if err != nil {
		return nil, fmt.Errorf("failed to generate observation: %w", err)
	}

	rtf := stripCodeFences(text)
	if !strings.HasPrefix(strings.ToLower(rtf), `{\rtf`) {
		rtf = richtext.ToRTF(html.EscapeString(rtf))
	}
	if rtf == "" {
		return nil, fmt.Errorf("%w: empty observation", ErrEmptyResult)
	}

	return &GeneratedObservation{RTF: rtf, HTML: richtext.ToHTML(rtf), Snippets: len(snippets)}, nil
}

// History returns the saved revisions of a product, newest first.
func (s *ObservationService) History(ctx context.Context, productID int64, limit int) ([]domain.ObservationRevision, error) {
	if s.store == nil {
		return []domain.ObservationRevision{}, nil
	}
	return s.store.ListByProduct(ctx, productID, limit)
}
