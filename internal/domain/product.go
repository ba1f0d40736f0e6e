package domain

import "strings"

// Product is a catalog item as listed by the catalog API.
type Product struct {
	ProductID    int64  `json:"product_id"`
	Code         string `json:"code"`
	Description  string `json:"description"`
	Barcode      string `json:"barcode,omitempty"`
	FamilyCode   string `json:"family_code,omitempty"`
	Presentation string `json:"presentation,omitempty"`
	// ImageURL is an http(s) URL, or a data: URL once hydrated.
	ImageURL    string `json:"image_url,omitempty"`
	ImageLoaded bool   `json:"image_loaded"`
	// Observation is the RTF observation text.
	Observation string `json:"observation,omitempty"`
}

// HasImage reports whether the product has any image reference.
func HasImage(p *Product) bool {
	return strings.TrimSpace(p.ImageURL) != ""
}

// WithoutImage is the negation of HasImage.
func WithoutImage(p *Product) bool {
	return !HasImage(p)
}

// HasBarcode reports whether the product carries a barcode.
func HasBarcode(p *Product) bool {
	return strings.TrimSpace(p.Barcode) != ""
}

// WithoutBarcode is the negation of HasBarcode.
func WithoutBarcode(p *Product) bool {
	return !HasBarcode(p)
}

// IsDataURL reports whether the image is already inlined.
func (p *Product) IsDataURL() bool {
	return strings.HasPrefix(strings.ToLower(p.ImageURL), "data:")
}

// Family is a product family (rubro).
type Family struct {
	ID          int64  `json:"id"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// Brand is a product brand (marca).
type Brand struct {
	ID          int64  `json:"id"`
	Code        string `json:"code,omitempty"`
	Description string `json:"description"`
}

// ProductPage is one user-visible page of products.
type ProductPage struct {
	Items      []*Product `json:"items"`
	PageNumber int        `json:"page_number"`
	PageSize   int        `json:"page_size"`
	// Filtered is true when post-fetch filters were applied and the page was
	// assembled from several catalog pages.
	Filtered bool `json:"filtered"`
}
