package richtext

import (
	"regexp"
	"strings"
)

// Cleanup passes for scanner output. Each pass is a plain string function so it
// can be tested or removed on its own. RE2 matching is linear in the input, so
// none of them can be driven into catastrophic backtracking.

const letterClass = `A-Za-zÁÉÍÓÚÜÑáéíóúüñ`

var (
	// '<' and '&' are kept so tags and entities are never cut in half.
	leadingJunkRe = regexp.MustCompile(`^\s*[^` + letterClass + `0-9<&]*0?\s*`)
	strongJunkRe  = regexp.MustCompile(`<strong>[^` + letterClass + `0-9<&]*0?\s*`)

	// Gemini sometimes leaves "313" runs after accented letters it escaped badly.
	digitArtifactRe = regexp.MustCompile(`([` + letterClass + `])(?:313)+`)
	brAfterItemRe   = regexp.MustCompile(`</li>\s*<br/>`)
	itemRunRe       = regexp.MustCompile(`(?:<li>.*?</li>\s*)+`)
	doubleBreakRe   = regexp.MustCompile(`<br/>\s*<br/>`)
)

// cleanupPasses run in order over the raw scanner output.
var cleanupPasses = []func(string) string{
	trimLeadingJunk,
	trimFirstStrongJunk,
	stripDigitArtifact,
	groupBullets,
	collapseBreaks,
	wrapContainer,
}

func cleanup(html string) string {
	for _, pass := range cleanupPasses {
		html = pass(html)
	}
	return html
}

// trimLeadingJunk drops control residue before the first letter, digit or tag.
func trimLeadingJunk(html string) string {
	return leadingJunkRe.ReplaceAllString(html, "")
}

// trimFirstStrongJunk drops residue right after the first <strong> only.
func trimFirstStrongJunk(html string) string {
	loc := strongJunkRe.FindStringIndex(html)
	if loc == nil {
		return html
	}
	return html[:loc[0]] + "<strong>" + html[loc[1]:]
}

func stripDigitArtifact(html string) string {
	return digitArtifactRe.ReplaceAllString(html, "$1")
}

// groupBullets wraps every run of consecutive list items in a single <ul>.
// The line break the scanner writes after each closed item is dropped first.
func groupBullets(html string) string {
	if !strings.Contains(html, "<li>") {
		return html
	}
	html = brAfterItemRe.ReplaceAllString(html, "</li>")
	return itemRunRe.ReplaceAllStringFunc(html, func(run string) string {
		trimmed := strings.TrimRight(run, " \t\r\n")
		return "<ul>" + trimmed + "</ul>" + run[len(trimmed):]
	})
}

func collapseBreaks(html string) string {
	return doubleBreakRe.ReplaceAllString(html, "</p><p>")
}

func wrapContainer(html string) string {
	return `<div class="rtf-preview">` + html + `</div>`
}
