// backend/scraper/csv_parser.go
package scraper

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseCSV reads a delimited export whose first record is the header row.
// Rows may be shorter or longer than the header.
func ParseCSV(reader io.Reader) ([]string, []RawRow, error) {
	br := bufio.NewReader(reader)
	if b, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(b, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	headers, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
	}

	var rows []RawRow
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return headers, rows, fmt.Errorf("failed to read CSV record %d: %w", len(rows)+2, err)
		}
		rows = append(rows, NewRawRow(headers, record))
	}
	return headers, rows, nil
}
