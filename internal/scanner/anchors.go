package scanner

import (

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
)

// AnchorParser treats every titled anchor on the page as a candidate.
type AnchorParser struct{}

// NewAnchorParser returns the generic anchor strategy.
func NewAnchorParser() *AnchorParser {
	return &AnchorParser{}
}

// Name identifies the strategy inside the registry.
func (p *AnchorParser) Name() string {
	return "anchors"
}

// Parse returns all a[href] elements with visible text.
func (p *AnchorParser) Parse(doc *goquery.Document) ([]domain.Candidate, error) {
	var candidates []domain.Candidate
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		if c, ok := anchorCandidate(a); ok {
			candidates = append(candidates, c)
		}
	})
	return candidates, nil
}
