package storage

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"NewsDigest/internal/domain"
)

const (
	columnTitle  = "title"
	columnLink   = "link"
	columnDate   = "date"
	columnStatus = "status"
)

var fixedColumns = []string{columnTitle, columnLink, columnDate, columnStatus}

// Headers written by the earlier scraper scripts map onto the fixed columns.
var columnAliases = map[string]string{
	"新闻标题": columnTitle,
	"新闻链接": columnLink,
	"新闻日期": columnDate,
	"状态":   columnStatus,
	"发送状态": columnStatus,
}

// decodeTable parses the persisted table. Rows with a bad date or missing
// fields are kept as-is; only a header without a link column is fatal.
func decodeTable(r io.Reader) ([]domain.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	index := map[string]int{}
	var extras []string
	extraIndex := map[string]int{}
	for i, name := range rows[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if canonical, ok := columnAliases[name]; ok {
			name = canonical
		}
		switch name {
		case columnTitle, columnLink, columnDate, columnStatus:
			if _, dup := index[name]; !dup {
				index[name] = i
			}
		case "":
		default:
			if _, dup := extraIndex[name]; !dup {
				extraIndex[name] = i
				extras = append(extras, name)
			}
		}
	}

	if _, ok := index[columnLink]; !ok {
		return nil, fmt.Errorf("%w: header %v has no link column", domain.ErrStoreMalformed, rows[0])
	}

	records := make([]domain.Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}

		rec := domain.Record{
			Title:  cell(row, index, columnTitle),
			Link:   cell(row, index, columnLink),
			Status: domain.ParseStatus(cell(row, index, columnStatus)),
		}

		rawDate := cell(row, index, columnDate)
		if published, err := domain.ParseDate(rawDate); err == nil {
			rec.Published = published
		} else {
			rec.RawDate = rawDate
		}

		for _, name := range extras {
			if rec.Extra == nil {
				rec.Extra = map[string]string{}
			}
			rec.Extra[name] = cellAt(row, extraIndex[name])
		}

		records = append(records, rec)
	}

	return records, nil
}

// encodeTable renders records with the fixed columns first, then any extra
// columns in lexical order.
func encodeTable(records []domain.Record) ([]byte, error) {
	extraSet := map[string]struct{}{}
	for _, rec := range records {
		for name := range rec.Extra {
			extraSet[name] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for name := range extraSet {
		extras = append(extras, name)
	}
	sort.Strings(extras)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := append(append([]string{}, fixedColumns...), extras...)
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		row := []string{rec.Title, rec.Link, rec.DateString(), string(rec.Status)}
		for _, name := range extras {
			row = append(row, rec.Extra[name])
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write row %s: %w", rec.Link, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return buf.Bytes(), nil
}

func cell(row []string, index map[string]int, column string) string {
	i, ok := index[column]
	if !ok {
		return ""
	}
	return cellAt(row, i)
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
