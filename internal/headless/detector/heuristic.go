// Package detector decides when a statically fetched page should be
// re-rendered in a headless browser before extraction.
package detector

import (
	"bytes"
	"net/http"
)

const defaultThreshold = 2048

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector. A non-positive threshold selects 2048.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

var spaMarkers = [][]byte{
	[]byte("__next"),
	[]byte("id=\"root\""),
	[]byte("id=\"app\""),
	[]byte("data-reactroot"),
}

// ShouldPromote reports whether a 200 response looks like a script shell
// that will only show its anchors after rendering.
func (h *Heuristic) ShouldPromote(statusCode int, body []byte) bool {
	if statusCode != http.StatusOK {
		return false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	lower := bytes.ToLower(body)
	if !bytes.Contains(lower, []byte("<a")) {
		return true
	}
	if len(body) < h.BodyLengthThreshold && scriptDensityHigh(lower) {
		return true
	}
	for _, marker := range spaMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// scriptDensityHigh reports whether script elements cover a quarter or more
// of a lowercased document.
func scriptDensityHigh(lower []byte) bool {
	total := len(lower)
	if total == 0 {
		return false
	}

	openTag := []byte("<script")
	closeTag := []byte("</script>")
	coverage := 0
	pos := 0

	for {
		rel := bytes.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel

		tagClose := bytes.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Unterminated tag; the rest of the document counts as script.
			coverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		next := total
		if end := bytes.Index(lower[contentStart:], closeTag); end != -1 {
			next = contentStart + end + len(closeTag)
		}

		coverage += next - start
		pos = next
	}

	return coverage*100/total >= 25
}
