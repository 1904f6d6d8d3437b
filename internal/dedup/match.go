package dedup

import (
	"strings"

	"github.com/JakeFAU/keywatch/internal/watch"
)

// Match returns the candidates that are new to seen and contain one of the
// keywords. Candidates are scanned in fetch order and keywords in provider
// order; the first matching keyword is reported. Every returned title is added
// to seen before Match returns, so a title is reported at most once per call
// and at most once per run.
func Match(candidates []watch.Candidate, keywords []string, seen *SeenSet) []watch.Hit {
	var hits []watch.Hit
	for _, c := range candidates {
		if c.Title == "" || seen.Contains(c.Title) {
			continue
		}
		for _, kw := range keywords {
			if kw == "" || !strings.Contains(c.Title, kw) {
				continue
			}
			if seen.Add(c.Title) {
				hits = append(hits, watch.Hit{Keyword: kw, Candidate: c})
			}
			break
		}
	}
	return hits
}
