package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ItemMarker labels the canonical identifier on a product detail page ("Item: 57554").
const ItemMarker = "Item:"

// MarkerValue returns the first token after marker in text.
func MarkerValue(text, marker string) (string, bool) {
	idx := strings.Index(text, marker)
	if idx < 0 {
		return "", false
	}

	fields := strings.Fields(text[idx+len(marker):])
	if len(fields) == 0 {
		return "", false
	}
	return fields[0], true
}

// ScanPageID walks every element of a detail page and returns the first numeric value
// labelled "Item ...: <digits>". It is the last resort when no selector rule matched.
func ScanPageID(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	var id string
	doc.Find("body *").EachWithBreak(func(i int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if !strings.Contains(text, "Item") || !strings.Contains(text, ":") {
			return true
		}

		parts := strings.Split(text, ":")
		candidate := strings.TrimSpace(parts[1])
		if IsNumeric(candidate) {
			id = candidate
			return false
		}
		return true
	})

	return id, nil
}

// URLSegmentID derives an identifier from the last path segment of a product URL:
// the text before the first hyphen, or the whole segment.
func URLSegmentID(rawURL string) string {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		path = u.Path
	}

	path = strings.TrimRight(path, "/")
	segment := path[strings.LastIndex(path, "/")+1:]

	if head, _, found := strings.Cut(segment, "-"); found {
		return head
	}
	return segment
}

func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
