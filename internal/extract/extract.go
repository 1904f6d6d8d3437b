// Package extract turns fetched HTML into watch candidates using an ordered
// chain of selector strategies.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/keywatch/internal/watch"
)

// Strategy pulls candidates out of a parsed document. Matched counts the
// elements the strategy selected, including those that yielded no candidate.
type Strategy interface {
	Name() string
	Extract(doc *goquery.Document) (candidates []watch.Candidate, matched int)
}

// AnchorSelector treats every element matched by Selector as an anchor: its
// trimmed text is the title and its href the link.
type AnchorSelector struct {
	Label    string
	Selector string
}

// Name identifies the strategy in logs.
func (s AnchorSelector) Name() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Selector
}

// Extract returns one candidate per matched anchor with non-empty text.
func (s AnchorSelector) Extract(doc *goquery.Document) ([]watch.Candidate, int) {
	var out []watch.Candidate
	sel := doc.Find(s.Selector)
	sel.Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Text())
		if title == "" {
			return
		}
		link, _ := a.Attr("href")
		out = append(out, watch.Candidate{Title: title, Link: strings.TrimSpace(link)})
	})
	return out, sel.Length()
}

// Chain tries strategies in order. The first strategy whose selector matched
// anything decides the result, even when every match had empty text, so a
// page of image-only headlines never falls through to navigation links.
type Chain []Strategy

// DefaultChain prefers anchors inside definition terms, typical of list-style
// news pages, and falls back to every anchor on the page.
func DefaultChain() Chain {
	return Chain{
		AnchorSelector{Label: "definition-term anchors", Selector: "dt > a"},
		AnchorSelector{Label: "all anchors", Selector: "a"},
	}
}

// Result reports which strategy decided the candidates.
type Result struct {
	Strategy   string
	Matched    int
	Candidates []watch.Candidate
}

// Run applies the chain to an already parsed document.
func (c Chain) Run(doc *goquery.Document) Result {
	for _, strategy := range c {
		if candidates, matched := strategy.Extract(doc); matched > 0 {
			return Result{Strategy: strategy.Name(), Matched: matched, Candidates: candidates}
		}
	}
	return Result{}
}

// Parse parses body as HTML and applies the chain.
func (c Chain) Parse(body []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	return c.Run(doc), nil
}
