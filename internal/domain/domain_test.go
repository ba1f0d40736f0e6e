package domain

import "testing"

func TestProductQueryNormalize(t *testing.T) {
	tests := []struct {
		name     string
		in       ProductQuery
		wantSize int
		wantPage int
	}{
		{"defaults", ProductQuery{}, 25, 1},
		{"clamped", ProductQuery{PageSize: 9000, PageNumber: 3}, 500, 3},
		{"negative page", ProductQuery{PageSize: 10, PageNumber: -2}, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.in
			q.Normalize(0, 0)
			if q.PageSize != tt.wantSize || q.PageNumber != tt.wantPage {
				t.Errorf("got size=%d page=%d, want size=%d page=%d", q.PageSize, q.PageNumber, tt.wantSize, tt.wantPage)
			}
		})
	}
}

func TestProductQueryNormalizeComposesDescription(t *testing.T) {
	q := ProductQuery{Description: "  jamo\u0301n "}
	q.Normalize(0, 0)
	if q.Description != "jam\u00f3n" {
		t.Errorf("description = %q", q.Description)
	}
}

func TestPostFetchFilters(t *testing.T) {
	withBoth := &Product{ImageURL: "https://x/img.jpg", Barcode: "779"}
	bare := &Product{}

	q := ProductQuery{Image: PresenceWith, BarcodeState: PresenceWithout}
	filters := q.PostFetchFilters()
	if len(filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(filters))
	}
	if !filters[0](withBoth) || filters[0](bare) {
		t.Error("image filter mismatch")
	}
	if filters[1](withBoth) || !filters[1](bare) {
		t.Error("barcode filter mismatch")
	}

	if got := (&ProductQuery{}).PostFetchFilters(); len(got) != 0 {
		t.Errorf("expected no filters, got %d", len(got))
	}
}

func TestParsePresence(t *testing.T) {
	tests := map[string]Presence{
		"":        PresenceAny,
		"Con":     PresenceWith,
		"with":    PresenceWith,
		"sin":     PresenceWithout,
		"without": PresenceWithout,
	}
	for in, want := range tests {
		got, err := ParsePresence(in)
		if err != nil || got != want {
			t.Errorf("ParsePresence(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePresence("maybe"); err == nil {
		t.Error("expected error for unknown value")
	}
}
