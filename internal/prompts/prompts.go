package prompts

import (
	"fmt"
	"strings"
)

// ============================================================================
// Product image prompts (Gemini image model)
// ============================================================================

// shown in place of missing product fields
const placeholder = "—"

// CreateProductImagePrompt asks for a new catalog photo when the product has none.
const CreateProductImagePrompt = `Crea una imagen de producto profesional para catálogo. Fondo blanco o neutro, iluminación de estudio. Producto: %s. Código: %s. Código de barra: %s. La imagen debe ser realista, solo el producto, estilo fotografía comercial.`

// ImproveProductImagePrompt asks to clean up an existing product photo.
const ImproveProductImagePrompt = `Mejora esta imagen de producto para catálogo. Descripción del producto: %s. Fondo limpio y profesional, producto bien visible y reconocible.`

// CreateProductImage fills CreateProductImagePrompt.
func CreateProductImage(description, code, barcode string) string {
	return fmt.Sprintf(CreateProductImagePrompt, orDash(description), orDash(code), orDash(barcode))
}

// ImproveProductImage fills ImproveProductImagePrompt. An empty description
// falls back to the product code.
func ImproveProductImage(description, code string) string {
	if strings.TrimSpace(description) == "" {
		description = code
	}
	return fmt.Sprintf(ImproveProductImagePrompt, orDash(description))
}

// ============================================================================
// Observation prompts (Gemini text model)
// ============================================================================

// ObservationSystemPrompt defines the role and output format for observations.
const ObservationSystemPrompt = `Sos un redactor de fichas de producto para un catálogo mayorista argentino. Escribís observaciones breves, objetivas y útiles para el vendedor.

【Formato de salida】
- Devolvé ÚNICAMENTE un documento RTF válido que empiece con {\rtf1 y termine con }
- Usá solo \b para negrita, \i para cursiva, \par para párrafos y \bullet para ítems de lista
- Acentos y eñes como \'e1 \'e9 \'ed \'f3 \'fa \'f1
- Sin markdown, sin bloques de código, sin explicaciones

【Contenido】
- Un párrafo inicial de 1 a 2 oraciones con qué es el producto
- Entre 3 y 5 ítems con presentación, usos, conservación o datos técnicos
- No inventes precios, fechas ni datos que no estén en la información de referencia`

// ObservationUserPrompt carries the product and the web snippets found for it.
const ObservationUserPrompt = `Producto: %s
Código: %s

Información de referencia encontrada en la web:
%s

Redactá la observación en RTF:`

// Observation builds the full observation prompt.
func Observation(description, code string, snippets []string) string {
	ref := "(sin resultados, usá solo la descripción)"
	if len(snippets) > 0 {
		var b strings.Builder
		for _, s := range snippets {
			b.WriteString("- ")
			b.WriteString(strings.TrimSpace(s))
			b.WriteByte('\n')
		}
		ref = strings.TrimRight(b.String(), "\n")
	}
	return ObservationSystemPrompt + "\n\n" + fmt.Sprintf(ObservationUserPrompt, orDash(description), orDash(code), ref)
}

func orDash(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return placeholder
	}
	return s
}
