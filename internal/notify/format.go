// Package notify formats hit notifications for delivery.
package notify

import (
	"strings"

	"github.com/JakeFAU/keywatch/internal/watch"
)

// FormatHit renders the notification text for a hit. The link line is
// omitted when the candidate has no link.
func FormatHit(hit watch.Hit) string {
	var b strings.Builder
	b.WriteString("🚨 [")
	b.WriteString(hit.Keyword)
	b.WriteString("] 포착!\n\n")
	b.WriteString(hit.Candidate.Title)
	if hit.Candidate.Link != "" {
		b.WriteString("\n")
		b.WriteString(hit.Candidate.Link)
	}
	return b.String()
}
