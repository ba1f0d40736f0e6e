package domain

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Presence is a three-way filter on an optional product attribute.
type Presence string

const (
	PresenceAny     Presence = ""
	PresenceWith    Presence = "with"
	PresenceWithout Presence = "without"
)

// ParsePresence accepts with/without (and the catalog's con/sin) or empty.
func ParsePresence(s string) (Presence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all", "todos":
		return PresenceAny, nil
	case "with", "con", "true":
		return PresenceWith, nil
	case "without", "sin", "false":
		return PresenceWithout, nil
	}
	return PresenceAny, fmt.Errorf("invalid presence filter %q", s)
}

const (
	DefaultPageSize = 25
	MaxPageSize     = 500
)

// ProductQuery holds the catalog filters of a product listing.
// Image and Barcode are sent to the catalog and also enforced after fetching,
// because the catalog does not always honor them.
type ProductQuery struct {
	Barcode      string
	Description  string
	FamilyID     int64
	BrandID      int64
	BranchID     int64
	ModifiedFrom *time.Time
	ModifiedTo   *time.Time
	Image        Presence
	BarcodeState Presence
	PageSize     int
	PageNumber   int
}

// Normalize applies the default page, clamps the page size and cleans the
// text filters.
func (q *ProductQuery) Normalize(defaultSize, maxSize int) {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if maxSize <= 0 {
		maxSize = MaxPageSize
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultSize
	}
	if q.PageSize > maxSize {
		q.PageSize = maxSize
	}
	if q.PageNumber < 1 {
		q.PageNumber = 1
	}
	q.Barcode = strings.TrimSpace(q.Barcode)
	// composed form, so "o\u0301" and "ó" search alike
	q.Description = norm.NFC.String(strings.TrimSpace(q.Description))
}

// PostFetchFilters returns the predicates the catalog cannot be trusted with.
func (q *ProductQuery) PostFetchFilters() []func(*Product) bool {
	var filters []func(*Product) bool
	switch q.Image {
	case PresenceWith:
		filters = append(filters, HasImage)
	case PresenceWithout:
		filters = append(filters, WithoutImage)
	}
	switch q.BarcodeState {
	case PresenceWith:
		filters = append(filters, HasBarcode)
	case PresenceWithout:
		filters = append(filters, WithoutBarcode)
	}
	return filters
}
