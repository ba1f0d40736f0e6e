package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/timmy/prodcat/internal/domain"
)

func newTestCatalog(t *testing.T, handler http.HandlerFunc) *CatalogClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewCatalogClient(&CatalogConfig{BaseURL: srv.URL, Timeout: 5 * time.Second})
}

func TestListProducts_QueryAndMapping(t *testing.T) {
	var gotQuery map[string][]string
	var gotAuth string
	client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != productsPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotQuery = r.URL.Query()
		gotAuth = r.Header.Get("Authorization")
		io.WriteString(w, `{"data":[
			{"codigoID": 7, "codigoFabrica": "A-1", "descripcionLarga": "Aceite", "codigoBarra": "779123",
			 "imagenWeb": "https://cdn.example.com/a.jpg", "presentaciones": [{"presentacionID": 0}]},
			{"codigoID": 8, "descripcionLarga": "Harina",
			 "presentaciones": [{"presentacionID": 3, "listaCodigoBarra": [{"codigoBarra": "111"}]}]},
			{"descripcionLarga": "sin id"}
		]}`)
	})

	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	q := domain.ProductQuery{
		Description:  "aceite",
		FamilyID:     12,
		ModifiedFrom: &from,
		Image:        domain.PresenceWithout,
		BarcodeState: domain.PresenceWith,
	}
	products, err := client.ListProducts(context.Background(), "tok", q, 2, 50)
	if err != nil {
		t.Fatalf("ListProducts() error = %v", err)
	}

	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	wantParams := map[string]string{
		"pageSize":         "50",
		"pageNumber":       "2",
		"descripcionLarga": "aceite",
		"familiaID":        "12",
		"fechaModifDesde":  "2024-03-05",
		"Imagen":           "false",
		"ConCodigoBarra":   "true",
	}
	for k, want := range wantParams {
		if got := firstParam(gotQuery[k]); got != want {
			t.Errorf("param %s = %q, want %q", k, got, want)
		}
	}
	for _, absent := range []string{"marcaID", "codigoBarra", "fechaModifHasta"} {
		if _, ok := gotQuery[absent]; ok {
			t.Errorf("param %s should not be sent", absent)
		}
	}

	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	p := products[0]
	if p.ProductID != 7 || p.Code != "A-1" || p.Barcode != "779123" || p.Presentation != "Unidad" {
		t.Errorf("unexpected first product: %+v", p)
	}
	if !p.ImageLoaded || p.ImageURL != "https://cdn.example.com/a.jpg" {
		t.Errorf("image not mapped: %+v", p)
	}
	p = products[1]
	if p.Code != "8" || p.Barcode != "111" || p.Presentation != "3" || p.ImageLoaded {
		t.Errorf("unexpected second product: %+v", p)
	}
}

func TestListProducts_ClampsPageSize(t *testing.T) {
	var size string
	client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		size = r.URL.Query().Get("pageSize")
		io.WriteString(w, `{"Data":[]}`)
	})
	if _, err := client.ListProducts(context.Background(), "tok", domain.ProductQuery{}, 1, 5000); err != nil {
		t.Fatal(err)
	}
	if size != "500" {
		t.Errorf("pageSize = %s, want 500", size)
	}
}

func TestListProducts_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		unauth  bool
	}{
		{"unauthorized", http.StatusUnauthorized, "no", true, true},
		{"server error", http.StatusInternalServerError, "boom", true, false},
		{"garbage body", http.StatusOK, "<html>", false, false},
		{"wrong shape", http.StatusOK, `{"items":[]}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			products, err := client.ListProducts(context.Background(), "tok", domain.ProductQuery{}, 1, 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (products == nil || len(products) != 0) {
				t.Errorf("expected an empty non-nil page, got %v", products)
			}
			if IsUnauthorized(err) != tt.unauth {
				t.Errorf("IsUnauthorized = %v, want %v", IsUnauthorized(err), tt.unauth)
			}
		})
	}
}

func TestPatchProduct(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"ok", http.StatusOK, `{"status":"ok"}`, ""},
		{"empty body", http.StatusNoContent, ``, ""},
		{"error status in body", http.StatusOK, `{"status":"error","message":"imagen invalida"}`, "imagen invalida"},
		{"http error", http.StatusBadRequest, `{"message":"codigo inexistente"}`, "codigo inexistente"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			var contentType string
			client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPatch || r.URL.Path != patchPath {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				contentType = r.Header.Get("Content-Type")
				json.NewDecoder(r.Body).Decode(&got)
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			err := client.PatchProduct(context.Background(), "tok", ProductPatch{
				ProductID:      9,
				ImageSpecified: true,
				Image:          "AAAA",
			})
			if tt.wantErr == "" && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)) {
				t.Fatalf("err = %v, want it to mention %q", err, tt.wantErr)
			}

			if !strings.HasPrefix(contentType, jsonPatchContentType) {
				t.Errorf("Content-Type = %q", contentType)
			}
			if got["codigoID"] != float64(9) || got["imagenEspecified"] != true || got["observacionEspecified"] != false {
				t.Errorf("unexpected body %v", got)
			}
			if _, ok := got["observacion"]; ok {
				t.Errorf("unspecified observation should be omitted: %v", got)
			}
		})
	}
}

func TestPatchProduct_RejectsInvalidID(t *testing.T) {
	client := NewCatalogClient(&CatalogConfig{BaseURL: "http://127.0.0.1:1"})
	if err := client.PatchProduct(context.Background(), "tok", ProductPatch{}); err == nil {
		t.Fatal("expected error for product id 0")
	}
}

func TestListFamilies(t *testing.T) {
	client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[{"familiaID": 1, "descripcion": "Bebidas"}, {"FamiliaID": "2", "Descripcion": "Lacteos"}, {}]`)
	})
	families, err := client.ListFamilies(context.Background(), "tok")
	if err != nil {
		t.Fatal(err)
	}
	want := []domain.Family{{ID: 1, Description: "Bebidas"}, {ID: 2, Description: "Lacteos"}}
	if len(families) != len(want) {
		t.Fatalf("got %v", families)
	}
	for i := range want {
		if families[i] != want[i] {
			t.Errorf("family %d = %+v, want %+v", i, families[i], want[i])
		}
	}
}

func TestLookupCentralImage(t *testing.T) {
	client := newTestCatalog(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("codigoBarra") {
		case "1":
			io.WriteString(w, `{"imagen":"https://x/a.png","imagenWeb":"https://x/web.png"}`)
		case "2":
			io.WriteString(w, `{"imagen":"https://x/a.png"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tests := []struct {
		barcode string
		want    string
	}{
		{"1", "https://x/web.png"},
		{"2", "https://x/a.png"},
		{"3", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		got, err := client.LookupCentralImage(context.Background(), "tok", tt.barcode)
		if err != nil {
			t.Fatalf("barcode %q: %v", tt.barcode, err)
		}
		if got != tt.want {
			t.Errorf("barcode %q = %q, want %q", tt.barcode, got, tt.want)
		}
	}
}

func TestFindImage(t *testing.T) {
	tests := []struct {
		name string
		rec  map[string]any
		want string
	}{
		{"direct", map[string]any{"Imagen": "a.jpg"}, "a.jpg"},
		{"web first", map[string]any{"imagen": "a.jpg", "imagenWeb": "b.jpg"}, "b.jpg"},
		{"object", map[string]any{"imagen": map[string]any{"ruta": "c.jpg"}}, "c.jpg"},
		{"list", map[string]any{"imagenes": []any{map[string]any{"url": "d.jpg"}, "e.jpg"}}, "d.jpg"},
		{"any imagen key", map[string]any{"fotoImagenAlt": "f.jpg"}, "f.jpg"},
		{"none", map[string]any{"foto": "g.jpg"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := findImage(tt.rec); got != tt.want {
				t.Errorf("findImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUpstreamErrorUnwrap(t *testing.T) {
	err := error(&UpstreamError{Provider: "catalog", StatusCode: 403, Message: "x"})
	wrapped := errors.Join(errors.New("ctx"), err)
	if !IsUnauthorized(wrapped) {
		t.Error("wrapped 403 should be unauthorized")
	}
}

func firstParam(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
