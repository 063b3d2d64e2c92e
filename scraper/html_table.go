// backend/scraper/html_table.go
package scraper

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// looksLikeHTML sniffs the start of a response body. Google answers an
// unpublished sheet with an HTML sign-in page and status 200.
func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

// ParseHTMLTable extracts the first table of a published sheet page. The
// first row with cells is the header row. When the page has no table the
// error carries the page title, which usually explains what went wrong.
func ParseHTMLTable(reader io.Reader) ([]string, []RawRow, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		title := strings.TrimSpace(doc.Find("title").First().Text())
		if title == "" {
			title = "untitled page"
		}
		return nil, nil, fmt.Errorf("received HTML page without a table: %q", title)
	}

	var headers []string
	var rows []RawRow
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		var cells []string
		// pubhtml pages put a row-number <th> in front of every row
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) == 0 || allBlank(cells) {
			return
		}
		if headers == nil {
			headers = cells
			return
		}
		rows = append(rows, NewRawRow(headers, cells))
	})

	return headers, rows, nil
}

func allBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}
