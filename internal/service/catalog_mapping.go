package service

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/timmy/prodcat/internal/domain"
)

const defaultPresentation = "Unidad"

// The catalog is not consistent about field casing or where barcodes and
// images live, so products are read from loose maps and each field is looked
// up under every name seen in the wild.
var (
	barcodeKeys      = []string{"codigoBarra", "CodigoBarra", "codigo_de_barras", "codigoDeBarras", "ean", "Ean", "gtin", "Gtin", "barcode", "Barcode"}
	barcodeListKeys  = []string{"listaCodigoBarra", "ListaCodigoBarra", "listaCodigoBarras", "codigosBarra"}
	presentationKeys = []string{"presentaciones", "Presentaciones"}
	imageKeys        = []string{"imagenWeb", "ImagenWeb", "imagen", "Imagen", "imagenPrincipal", "ImagenPrincipal", "imagenUrl", "ImagenUrl"}
	imageListKeys    = []string{"imagenes", "Imagenes", "listaImagenes", "ListaImagenes"}
	imageObjectKeys  = []string{"url", "Url", "ruta", "Ruta", "imagen", "Imagen", "imagenWeb", "ImagenWeb"}
)

// dataArray extracts the record list from {"data": [...]}, {"Data": [...]}
// or a bare array. ok is false when the body has none of these shapes.
func dataArray(body []byte) ([]map[string]any, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var root any
	if err := dec.Decode(&root); err != nil {
		return nil, false
	}

	var items []any
	switch v := root.(type) {
	case []any:
		items = v
	case map[string]any:
		arr, ok := firstValue(v, "data", "Data").([]any)
		if !ok {
			return nil, false
		}
		items = arr
	default:
		return nil, false
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			records = append(records, rec)
		}
	}
	return records, true
}

// mapProduct converts one catalog record. Records without a product id are
// dropped.
func mapProduct(rec map[string]any, baseURL string) *domain.Product {
	id := intField(rec, "codigoID", "CodigoID")
	if id <= 0 {
		return nil
	}

	code := strings.TrimSpace(stringField(rec, "codigoFabrica", "CodigoFabrica"))
	if code == "" {
		code = strconv.FormatInt(id, 10)
	}

	imageURL := NormalizeImageURL(findImage(rec), baseURL)
	return &domain.Product{
		ProductID:    id,
		Code:         code,
		Description:  stringField(rec, "descripcionLarga", "DescripcionLarga"),
		Barcode:      findBarcode(rec),
		FamilyCode:   stringField(rec, "familiaCodigo", "FamiliaCodigo", "familia", "Familia"),
		Presentation: presentation(rec),
		ImageURL:     imageURL,
		ImageLoaded:  imageURL != "",
		Observation:  stringField(rec, "observacion", "Observacion", "observaciones", "Observaciones"),
	}
}

// presentation names the first presentation; id 0 is the single unit.
func presentation(rec map[string]any) string {
	list, ok := rec["presentaciones"].([]any)
	if !ok || len(list) == 0 {
		return defaultPresentation
	}
	first, ok := list[0].(map[string]any)
	if !ok {
		return defaultPresentation
	}
	switch v := first["presentacionID"].(type) {
	case json.Number:
		if v.String() == "0" {
			return defaultPresentation
		}
		return v.String()
	case string:
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return defaultPresentation
}

// findBarcode looks on the product, then on each presentation, then inside
// each presentation's barcode lists.
func findBarcode(rec map[string]any) string {
	if s := nonEmptyString(rec, barcodeKeys); s != "" {
		return s
	}
	for _, presKey := range presentationKeys {
		list, _ := rec[presKey].([]any)
		for _, item := range list {
			pres, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s := nonEmptyString(pres, barcodeKeys); s != "" {
				return s
			}
			for _, listKey := range barcodeListKeys {
				codes, _ := pres[listKey].([]any)
				for _, c := range codes {
					if cb, ok := c.(map[string]any); ok {
						if s := nonEmptyString(cb, barcodeKeys); s != "" {
							return s
						}
					}
				}
			}
		}
	}
	return ""
}

// findImage tries the known image fields, then the first element of the known
// image lists, then any field whose name mentions "imagen".
func findImage(rec map[string]any) string {
	for _, k := range imageKeys {
		if s := imageValue(rec[k]); s != "" {
			return s
		}
	}
	for _, k := range imageListKeys {
		if list, ok := rec[k].([]any); ok && len(list) > 0 {
			if s := imageValue(list[0]); s != "" {
				return s
			}
		}
	}

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if strings.Contains(strings.ToLower(k), "imagen") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if s := imageValue(rec[k]); s != "" {
			return s
		}
	}
	return ""
}

func imageValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case map[string]any:
		return nonEmptyString(t, imageObjectKeys)
	}
	return ""
}

func nonEmptyString(rec map[string]any, keys []string) string {
	for _, k := range keys {
		if s, ok := rec[k].(string); ok {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstValue(rec map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := rec[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func stringField(rec map[string]any, keys ...string) string {
	switch v := firstValue(rec, keys...).(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	}
	return ""
}

func intField(rec map[string]any, keys ...string) int64 {
	switch v := firstValue(rec, keys...).(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return int64(f)
		}
	case string:
		n, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n
	}
	return 0
}
