package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/prodcat/internal/domain"
	"github.com/timmy/prodcat/internal/logger"
)

const (
	catalogProvider = "catalog"

	productsPath = "/Producto/GetProducto"
	patchPath    = "/Producto"
	familiesPath = "/Producto/Familia"
	brandsPath   = "/Producto/Marca"
	centralPath  = "/Centralizadora/Producto"

	jsonPatchContentType = "application/json-patch+json"
)

// CatalogClient talks to the product catalog API. Every call carries the
// caller's bearer token; the client itself holds no credentials.
type CatalogClient struct {
	client  *resty.Client
	baseURL string
}

// CatalogConfig holds configuration for the catalog client.
type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewCatalogClient creates a catalog client.
// Parameters:
//   - cfg: base URL and request timeout.
//
// Returns:
//   - *CatalogClient: client with its own HTTP connection pool.
func NewCatalogClient(cfg *CatalogConfig) *CatalogClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	client := resty.New()
	client.SetBaseURL(baseURL)
	client.SetHeader("Accept", "application/json")
	client.SetTimeout(timeout)

	return &CatalogClient{client: client, baseURL: baseURL}
}

// BaseURL returns the catalog base URL, used to resolve relative image paths.
func (c *CatalogClient) BaseURL() string {
	return c.baseURL
}

// ListProducts fetches one catalog page.
// An unparseable body yields an empty page rather than an error, so a paging
// loop treats it as the end of the data.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: catalog bearer token.
//   - q: server-side filters.
//   - page: 1-based catalog page number.
//   - size: catalog page size, clamped to 1..500.
//
// Returns:
//   - []*domain.Product: products of the page.
//   - error: non-nil on transport failure or non-2xx status.
func (c *CatalogClient) ListProducts(ctx context.Context, token string, q domain.ProductQuery, page, size int) ([]*domain.Product, error) {
	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParamsFromValues(productParams(q, page, size)).
		Get(productsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog API: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &UpstreamError{Provider: catalogProvider, StatusCode: resp.StatusCode(), Message: truncate(resp.String(), 300)}
	}

	records, ok := dataArray(resp.Body())
	if !ok {
		logger.CtxWarn(ctx, "Catalog page %d has an unexpected shape, treating it as empty", page)
		return []*domain.Product{}, nil
	}

	products := make([]*domain.Product, 0, len(records))
	for _, rec := range records {
		if p := mapProduct(rec, c.baseURL); p != nil {
			products = append(products, p)
		}
	}

	logger.With(logger.Fields{
		logger.FieldProvider:    catalogProvider,
		logger.FieldBackendPage: page,
		logger.FieldCount:       len(products),
		logger.FieldDurationMs:  time.Since(start).Milliseconds(),
	}).Debug(ctx, "Catalog page fetched")

	return products, nil
}

func productParams(q domain.ProductQuery, page, size int) url.Values {
	params := url.Values{}
	params.Set("pageSize", strconv.Itoa(min(max(size, 1), domain.MaxPageSize)))
	params.Set("pageNumber", strconv.Itoa(max(page, 1)))
	if q.Barcode != "" {
		params.Set("codigoBarra", q.Barcode)
	}
	if q.Description != "" {
		params.Set("descripcionLarga", q.Description)
	}
	if q.FamilyID != 0 {
		params.Set("familiaID", strconv.FormatInt(q.FamilyID, 10))
	}
	if q.BrandID != 0 {
		params.Set("marcaID", strconv.FormatInt(q.BrandID, 10))
	}
	if q.BranchID != 0 {
		params.Set("sucursalID", strconv.FormatInt(q.BranchID, 10))
	}
	if q.ModifiedFrom != nil {
		params.Set("fechaModifDesde", q.ModifiedFrom.Format("2006-01-02"))
	}
	if q.ModifiedTo != nil {
		params.Set("fechaModifHasta", q.ModifiedTo.Format("2006-01-02"))
	}
	if q.Image != domain.PresenceAny {
		params.Set("Imagen", strconv.FormatBool(q.Image == domain.PresenceWith))
	}
	if q.BarcodeState != domain.PresenceAny {
		params.Set("ConCodigoBarra", strconv.FormatBool(q.BarcodeState == domain.PresenceWith))
	}
	return params
}

// ListFamilies returns the product families visible to the token.
func (c *CatalogClient) ListFamilies(ctx context.Context, token string) ([]domain.Family, error) {
	records, err := c.getList(ctx, token, familiesPath)
	if err != nil {
		return nil, err
	}
	families := make([]domain.Family, 0, len(records))
	for _, rec := range records {
		id := intField(rec, "familiaID", "FamiliaID", "id")
		desc := stringField(rec, "descripcion", "Descripcion")
		if id == 0 && desc == "" {
			continue
		}
		families = append(families, domain.Family{ID: id, Code: stringField(rec, "codigo", "Codigo"), Description: desc})
	}
	return families, nil
}

// ListBrands returns the product brands visible to the token.
func (c *CatalogClient) ListBrands(ctx context.Context, token string) ([]domain.Brand, error) {
	records, err := c.getList(ctx, token, brandsPath)
	if err != nil {
		return nil, err
	}
	brands := make([]domain.Brand, 0, len(records))
	for _, rec := range records {
		id := intField(rec, "marcaID", "MarcaID", "id")
		desc := stringField(rec, "descripcion", "Descripcion")
		if id == 0 && desc == "" {
			continue
		}
		brands = append(brands, domain.Brand{ID: id, Code: stringField(rec, "codigo", "Codigo"), Description: desc})
	}
	return brands, nil
}

func (c *CatalogClient) getList(ctx context.Context, token, path string) ([]map[string]any, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog API: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, &UpstreamError{Provider: catalogProvider, StatusCode: resp.StatusCode(), Message: truncate(resp.String(), 300)}
	}
	records, _ := dataArray(resp.Body())
	return records, nil
}

// ProductPatch is a partial product update. Only fields whose *Specified flag
// is set are applied by the catalog.
type ProductPatch struct {
	ProductID            int64  `json:"codigoID"`
	ImageSpecified       bool   `json:"imagenEspecified"`
	Image                string `json:"imagen,omitempty"`
	ObservationSpecified bool   `json:"observacionEspecified"`
	Observation          string `json:"observacion,omitempty"`
}

type patchResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PatchProduct sends a partial update. A 2xx answer whose body says
// status "error" is still a failure.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - token: catalog bearer token.
//   - patch: fields to update; Image is bare base64 without the data: prefix.
//
// Returns:
//   - error: *UpstreamError when the catalog rejects the update.
func (c *CatalogClient) PatchProduct(ctx context.Context, token string, patch ProductPatch) error {
	if patch.ProductID <= 0 {
		return fmt.Errorf("invalid product id %d", patch.ProductID)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetHeader("Content-Type", jsonPatchContentType).
		SetBody(patch).
		Patch(patchPath)
	if err != nil {
		return fmt.Errorf("failed to call catalog API: %w", err)
	}

	var body patchResponse
	_ = json.Unmarshal(resp.Body(), &body)

	if !resp.IsSuccess() {
		msg := body.Message
		if msg == "" {
			msg = truncate(resp.String(), 300)
		}
		return &UpstreamError{Provider: catalogProvider, StatusCode: resp.StatusCode(), Message: msg}
	}
	if strings.EqualFold(body.Status, "error") {
		return &UpstreamError{Provider: catalogProvider, StatusCode: resp.StatusCode(), Message: body.Message}
	}

	logger.With(logger.Fields{
		logger.FieldProvider:  catalogProvider,
		logger.FieldProductID: patch.ProductID,
		"image":               patch.ImageSpecified,
		"observation":         patch.ObservationSpecified,
	}).Info(ctx, "Catalog product patched")
	return nil
}

type centralProduct struct {
	Image    string `json:"imagen"`
	ImageWeb string `json:"imagenWeb"`
}

// LookupCentralImage asks the central product registry for an image by
// barcode. It returns "" when the registry has none.
func (c *CatalogClient) LookupCentralImage(ctx context.Context, token, barcode string) (string, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return "", nil
	}

	var result centralProduct
	resp, err := c.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("codigoBarra", barcode).
		Get(centralPath)
	if err != nil {
		return "", fmt.Errorf("failed to call catalog API: %w", err)
	}
	if resp.StatusCode() == 404 {
		return "", nil
	}
	if !resp.IsSuccess() {
		return "", &UpstreamError{Provider: catalogProvider, StatusCode: resp.StatusCode(), Message: truncate(resp.String(), 300)}
	}
	// the registry does not always label its JSON
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return "", nil
	}

	img := strings.TrimSpace(result.ImageWeb)
	if img == "" {
		img = strings.TrimSpace(result.Image)
	}
	return NormalizeImageURL(img, c.baseURL), nil
}
