package scanner

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
)

const (
	zhibo8Containers = "div.video.v_change, div.article_type_video, div.mixed_type_video"
	zhibo8Fallback   = "ul.articleList li, div.dataList ul li"
)

var (
	dateClassExpr = regexp.MustCompile(`time|date|label`)
	dateTextExpr  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
)

// Zhibo8Parser reads the zhibo8.cc football news listing layout.
type Zhibo8Parser struct{}

// NewZhibo8Parser returns the zhibo8 listing strategy.
func NewZhibo8Parser() *Zhibo8Parser {
	return &Zhibo8Parser{}
}

// Name identifies the strategy inside the registry.
func (p *Zhibo8Parser) Name() string {
	return "zhibo8"
}

// Parse walks news containers and emits every titled anchor inside them.
func (p *Zhibo8Parser) Parse(doc *goquery.Document) ([]domain.Candidate, error) {
	containers := doc.Find(zhibo8Containers)
	if containers.Length() == 0 {
		containers = doc.Find(zhibo8Fallback)
	}

	var candidates []domain.Candidate
	containers.Each(func(_ int, item *goquery.Selection) {
		rawDate := containerDate(item)
		item.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
			if c, ok := anchorCandidate(a); ok {
				c.RawDate = rawDate
				candidates = append(candidates, c)
			}
		})
	})

	return candidates, nil
}

// containerDate looks for a time/date/label element carrying a YYYY-MM-DD date.
func containerDate(item *goquery.Selection) string {
	var found string
	item.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		if !dateClassExpr.MatchString(class) {
			return true
		}
		if match := dateTextExpr.FindString(s.Text()); match != "" {
			found = match
			return false
		}
		return true
	})
	return found
}

func anchorCandidate(a *goquery.Selection) (domain.Candidate, bool) {
	title := strings.Join(strings.Fields(a.Text()), " ")
	href, _ := a.Attr("href")
	href = strings.TrimSpace(href)
	if title == "" || href == "" {
		return domain.Candidate{}, false
	}
	return domain.Candidate{Title: title, Link: href}, true
}
