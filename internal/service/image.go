package service

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/logger"
	"github.com/timmy/prodcat/internal/prompts"
	"github.com/timmy/prodcat/internal/storage"
	_ "golang.org/x/image/webp"
)

const (
	ProviderGoogle  = "google"
	ProviderSerpAPI = "serpapi"

	defaultWebResults = 8

	defaultSearchCacheSize = 256
	defaultSearchCacheTTL  = 30 * time.Minute
)

// ImageAssignmentStore persists the history of images saved to products.
type ImageAssignmentStore interface {
	Create(ctx context.Context, a *domain.ImageAssignment) error
	ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.ImageAssignment, error)
}

// ImageService assigns, generates, finds and reads product images.
type ImageService struct {
	catalog  *CatalogClient
	store    ImageAssignmentStore
	objects  storage.ObjectStorage
	prefix   string
	fetcher  *imageFetcher
	maxBytes int64
	gemini   *GeminiClient
	vision   *VisionClient
	cse      *ImageSearchClient
	serp     *SerpAPIClient
	searches *resultCache[[]string]
}

// ImageServiceConfig holds the image limits, the archive key prefix and the
// web search cache. A negative SearchCacheSize disables the cache.
type ImageServiceConfig struct {
	MaxImageBytes   int64
	FetchTimeout    time.Duration
	StoragePrefix   string
	SearchCacheSize int
	SearchCacheTTL  time.Duration
}

// ImageProviders groups the optional external image providers.
type ImageProviders struct {
	Gemini *GeminiClient
	Vision *VisionClient
	CSE    *ImageSearchClient
	Serp   *SerpAPIClient
}

// NewImageService creates an ImageService. store and objects may be nil; the
// service then keeps no history or archive copy.
func NewImageService(catalog *CatalogClient, store ImageAssignmentStore, objects storage.ObjectStorage, providers ImageProviders, cfg *ImageServiceConfig) *ImageService {
	maxBytes := cfg.MaxImageBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxImageBytes
	}
	prefix := strings.Trim(cfg.StoragePrefix, "/")
	if prefix == "" {
		prefix = "products"
	}
	cacheSize := cfg.SearchCacheSize
	if cacheSize == 0 {
		cacheSize = defaultSearchCacheSize
	}
	cacheTTL := cfg.SearchCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = defaultSearchCacheTTL
	}
	return &ImageService{
		catalog:  catalog,
		store:    store,
		objects:  objects,
		prefix:   prefix,
		fetcher:  newImageFetcher(cfg.FetchTimeout, maxBytes),
		maxBytes: maxBytes,
		gemini:   providers.Gemini,
		vision:   providers.Vision,
		cse:      providers.CSE,
		serp:     providers.Serp,
		searches: newResultCache[[]string](cacheSize, cacheTTL),
	}
}

// decodedImage is a validated image payload.
type decodedImage struct {
	data   []byte
	mime   string
	format string
	width  int
	height int
}

// decode parses a data URL and checks that it holds a supported image within
// the size limit.
func (s *ImageService) decode(dataURL string) (*decodedImage, error) {
	_, data, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrUnsupportedImage, len(data), s.maxBytes)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	return &decodedImage{
		data:   data,
		mime:   "image/" + format,
		format: format,
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

// Save writes an image to a catalog product.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: catalog bearer token.
//   - productID: catalog product id.
//   - dataURL: the image as a base64 data URL.
//   - source: where the image came from; empty means upload.
//
// Returns:
//   - *domain.ImageAssignment: what was saved, with the archive location when storage is configured.
//   - error: invalid input or catalog failure.
func (s *ImageService) Save(ctx context.Context, token string, productID int64, dataURL string, source domain.ImageSource) (*domain.ImageAssignment, error) {
	if source == "" {
		source = domain.ImageSourceUpload
	}
	if !source.Valid() {
		return nil, fmt.Errorf("%w: image source %q", ErrInvalidArgument, source)
	}
	img, err := s.decode(dataURL)
	if err != nil {
		return nil, err
	}

	if err := s.catalog.PatchProduct(ctx, token, ProductPatch{
		ProductID:      productID,
		ImageSpecified: true,
		Image:          base64.StdEncoding.EncodeToString(img.data),
	}); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	sum := md5.Sum(img.data)
	assignment := &domain.ImageAssignment{
		ID:        uuid.New().String(),
		ProductID: productID,
		Source:    source,
		MimeType:  img.mime,
		SizeBytes: int64(len(img.data)),
		Width:     img.width,
		Height:    img.height,
		MD5Hash:   hex.EncodeToString(sum[:]),
	}

	if s.objects != nil {
		key := s.archiveKey(productID, assignment.MD5Hash, img.format)
		if err := s.objects.Upload(ctx, key, bytes.NewReader(img.data), int64(len(img.data)), img.mime); err != nil {
			logger.FromContext(ctx).WithError(err).Warnf("Failed to archive image for product %d", productID)
		} else {
			assignment.StorageKey = key
			assignment.StorageURL = s.objects.GetURL(key)
		}
	}

	if s.store != nil {
		if err := s.store.Create(ctx, assignment); err != nil {
			logger.FromContext(ctx).WithError(err).Warnf("Failed to record image assignment for product %d", productID)
		}
	}

	logger.With(logger.Fields{
		logger.FieldProductID: productID,
		logger.FieldSize:      assignment.SizeBytes,
		"source":              source,
	}).Info(ctx, "Image saved: %dx%d %s", img.width, img.height, img.mime)

	return assignment, nil
}

func (s *ImageService) archiveKey(productID int64, hash, format string) string {
	ext := format
	if ext == "jpeg" {
		ext = "jpg"
	}
	return path.Join(s.prefix, strconv.FormatInt(productID, 10), hash+"."+ext)
}

// FetchAsDataURL downloads a web image and returns it as a data URL.
func (s *ImageService) FetchAsDataURL(ctx context.Context, rawURL string) (string, error) {
	return s.fetcher.fetchDataURL(ctx, "", rawURL)
}

// CentralImage returns the image the central catalog holds for a barcode as
// a data URL, or "" when it has none.
func (s *ImageService) CentralImage(ctx context.Context, token, barcode string) (string, error) {
	imageURL, err := s.catalog.LookupCentralImage(ctx, token, barcode)
	if err != nil {
		return "", err
	}
	switch {
	case imageURL == "":
		return "", nil
	case strings.HasPrefix(imageURL, "data:"):
		return imageURL, nil
	}
	return s.fetcher.fetchDataURL(ctx, token, imageURL)
}

// Generate creates a new product image with Gemini.
func (s *ImageService) Generate(ctx context.Context, description, code, barcode string) (string, error) {
	if strings.TrimSpace(description) == "" && strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("%w: description or code is required", ErrInvalidArgument)
	}
	if s.gemini == nil {
		return "", fmt.Errorf("%w: gemini", ErrProviderDisabled)
	}
	out, err := s.gemini.GenerateImage(ctx, prompts.CreateProductImage(description, code, barcode), nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate image: %w", err)
	}
	return BuildDataURL(out.Data, out.MIMEType), nil
}

// Improve asks Gemini to clean up an existing product image.
func (s *ImageService) Improve(ctx context.Context, dataURL, description, code string) (string, error) {
	img, err := s.decode(dataURL)
	if err != nil {
		return "", err
	}
	if s.gemini == nil {
		return "", fmt.Errorf("%w: gemini", ErrProviderDisabled)
	}
	out, err := s.gemini.GenerateImage(ctx, prompts.ImproveProductImage(description, code), &InlineImage{
		MIMEType: img.mime,
		Data:     img.data,
	})
	if err != nil {
		return "", fmt.Errorf("failed to improve image: %w", err)
	}
	return BuildDataURL(out.Data, out.MIMEType), nil
}

// SearchWeb finds candidate image URLs for query. provider selects Google
// Custom Search or SerpAPI; empty picks the first one configured.
func (s *ImageService) SearchWeb(ctx context.Context, query, provider string, n int) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	if n <= 0 {
		n = defaultWebResults
	}

	if provider == "" {
		switch {
		case s.cse != nil && s.cse.Enabled():
			provider = ProviderGoogle
		case s.serp != nil && s.serp.Enabled():
			provider = ProviderSerpAPI
		default:
			return nil, fmt.Errorf("%w: image search", ErrProviderDisabled)
		}
	}

	provider = strings.ToLower(provider)
	cacheKey := searchCacheKey(provider, query, n)
	if urls, ok := s.searches.Get(cacheKey); ok {
		return urls, nil
	}

	var (
		urls []string
		err  error
	)
	switch provider {
	case ProviderGoogle:
		if s.cse == nil {
			return nil, fmt.Errorf("%w: google", ErrProviderDisabled)
		}
		urls, err = s.cse.Search(ctx, query, n)
	case ProviderSerpAPI:
		if s.serp == nil {
			return nil, fmt.Errorf("%w: serpapi", ErrProviderDisabled)
		}
		urls, err = s.serp.SearchImages(ctx, query, n)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidArgument, provider)
	}
	if err != nil {
		return nil, err
	}
	if urls == nil {
		urls = []string{}
	}
	if len(urls) > 0 {
		s.searches.Set(cacheKey, urls)
	}

	logger.With(logger.Fields{
		logger.FieldProvider: provider,
		logger.FieldCount:    len(urls),
	}).Debug(ctx, "Web image search for %q", query)
	return urls, nil
}

// OCR reads the text in an image with Cloud Vision.
func (s *ImageService) OCR(ctx context.Context, dataURL string) (*OCRResult, error) {
	_, data, err := ParseDataURL(dataURL)
	if err != nil {
		return nil, err
	}
	if s.vision == nil {
		return nil, fmt.Errorf("%w: vision", ErrProviderDisabled)
	}
	var w, h float64
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		w, h = float64(cfg.Width), float64(cfg.Height)
	}
	return s.vision.DetectText(ctx, data, w, h)
}

// History returns the images saved to a product, newest first.
func (s *ImageService) History(ctx context.Context, productID int64, limit int) ([]domain.ImageAssignment, error) {
	if s.store == nil {
		return []domain.ImageAssignment{}, nil
	}
	return s.store.ListByProduct(ctx, productID, limit)
}
