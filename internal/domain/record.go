package domain

import (
	"strings"
	"time"
)

// DateLayout is the ISO 8601 calendar date format used in links and in the store.
const DateLayout = "2006-01-02"

// Status tracks whether a record has been delivered in a digest.
type Status string

const (
	// StatusPending is persisted as an empty cell.
	StatusPending  Status = ""
	StatusNotified Status = "Notified"
)

// ParseStatus maps a persisted status cell to a Status. Unknown values are kept verbatim.
func ParseStatus(raw string) Status {
	return Status(strings.TrimSpace(raw))
}

// Record is a single stored news item keyed by its normalized link.
type Record struct {
	Title     string
	Link      string
	Published time.Time
	// RawDate keeps the verbatim date cell of rows whose date could not be parsed.
	RawDate string
	Status  Status
	// Extra holds values of columns the store does not interpret.
	Extra map[string]string
}

// NewRecord builds a pending record for a freshly ingested candidate.
func NewRecord(title, link string, published time.Time) Record {
	return Record{
		Title:     title,
		Link:      link,
		Published: DateOf(published),
	}
}

// Valid reports whether the record carries every field required for eligibility.
func (r Record) Valid() bool {
	return strings.TrimSpace(r.Title) != "" && strings.TrimSpace(r.Link) != "" && !r.Published.IsZero()
}

// IsPending reports whether the record still awaits notification.
func (r Record) IsPending() bool {
	return r.Status == StatusPending
}

// DateString renders the persisted date cell.
func (r Record) DateString() string {
	if r.Published.IsZero() {
		return r.RawDate
	}
	return r.Published.Format(DateLayout)
}

// Candidate is a parsed listing entry before link normalization, filtering and dedup.
type Candidate struct {
	Title   string
	Link    string
	RawDate string
}

// Digest is the batch of eligible records delivered in one notifier call.
type Digest struct {
	Subject     string
	GeneratedAt time.Time
	Records     []Record
}

// Links returns the dedup keys of the digest records in order.
func (d Digest) Links() []string {
	links := make([]string, 0, len(d.Records))
	for _, rec := range d.Records {
		links = append(links, rec.Link)
	}
	return links
}
