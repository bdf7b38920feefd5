package scanner

import (
	"fmt"
	"sort"

	"github.com/PuerkitoBio/goquery"

	"NewsDigest/internal/domain"
)

// Parser captures a single listing-markup strategy (zhibo8, plain anchors, etc.).
// Links are returned as found in the markup; normalization happens at ingest.
type Parser interface {
	Name() string
	Parse(doc *goquery.Document) ([]domain.Candidate, error)
}

// Registry keeps a mapping from parser names to their implementations.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{parsers: map[string]Parser{}}
}

// DefaultRegistry returns a registry holding every built-in parser.
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewZhibo8Parser())
	reg.Register(NewAnchorParser())
	return reg
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(parser Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[parser.Name()] = parser
}

// Resolve returns a parser by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Parser, error) {
	if parser, ok := r.parsers[name]; ok {
		return parser, nil
	}
	return nil, fmt.Errorf("parser %s is not registered", name)
}

// Names lists registered parser names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.parsers))
	for name := range r.parsers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
