package fetch

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseHTML parses a decoded page into a queryable document
func ParseHTML(page string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(page))
}
