// Package linkcard fetches a page referenced by an import row and extracts
// the metadata needed to show a preview card.
package linkcard

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Card is the preview metadata pulled from a linked page.
type Card struct {
	URL      string `json:"url"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Fetcher resolves link cards over HTTP.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a Fetcher with a bounded request timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{httpClient: &http.Client{Timeout: 10 * time.Second}}
}

// Fetch loads the page and extracts Open Graph metadata, falling back to the
// document title. Callers treat a failed fetch as "no card", never as an
// import failure.
func (f *Fetcher) Fetch(url string) (*Card, error) {
	resp, err := f.httpClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch %s: status %d", url, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}

	return extract(url, doc), nil
}

// extract pulls card fields out of a parsed document.
func extract(url string, doc *goquery.Document) *Card {
	card := &Card{URL: url}

	if v, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		card.Title = strings.TrimSpace(v)
	}
	if card.Title == "" {
		card.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if v, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		card.ImageURL = strings.TrimSpace(v)
	}
	return card
}
