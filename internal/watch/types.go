package watch

import (
	"fmt"
	"strings"
)

// Mode selects where the keyword list for a run comes from.
type Mode string

// Supported keyword modes.
const (
	ModeRanking Mode = "ranking"
	ModeTrend   Mode = "trend"
	ModeManual  Mode = "manual"
)

// ParseMode converts operator input into a Mode. Matching is case-insensitive.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeRanking:
		return ModeRanking, nil
	case ModeTrend:
		return ModeTrend, nil
	case ModeManual, "":
		return ModeManual, nil
	default:
		return "", fmt.Errorf("unknown keyword mode %q", raw)
	}
}

// Config is the immutable input for one monitor run.
type Config struct {
	NotifierToken  string   `json:"-"`
	ChatID         string   `json:"chat_id"`
	TargetURL      string   `json:"target_url"`
	Mode           Mode     `json:"mode"`
	ManualKeywords []string `json:"manual_keywords,omitempty"`
}

// Validate rejects configs that cannot deliver notifications.
func (c Config) Validate() error {
	if strings.TrimSpace(c.NotifierToken) == "" {
		return &ConfigError{Field: "token", Reason: "notifier token is required"}
	}
	if strings.TrimSpace(c.ChatID) == "" {
		return &ConfigError{Field: "chat_id", Reason: "chat id is required"}
	}
	return nil
}

// Candidate is a (title, link) pair extracted from a fetched page.
type Candidate struct {
	Title string `json:"title"`
	// Link is the anchor href; empty when the anchor had none.
	Link string `json:"link,omitempty"`
}

// Hit pairs a newly seen candidate with the first keyword it matched.
type Hit struct {
	Keyword   string    `json:"keyword"`
	Candidate Candidate `json:"candidate"`
}

// SplitKeywords splits a comma-separated operator list, trimming entries and
// dropping empty ones. Order is preserved.
func SplitKeywords(raw string) []string {
	return CleanKeywords(strings.Split(raw, ","))
}

// CleanKeywords trims every entry and drops empty ones. An empty keyword would
// match every title, so it is never allowed through.
func CleanKeywords(in []string) []string {
	out := make([]string, 0, len(in))
	for _, kw := range in {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, kw)
	}
	return out
}
