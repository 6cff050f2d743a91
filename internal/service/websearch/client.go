package websearch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

// ErrEmptyQuery is returned for blank queries.
var ErrEmptyQuery = errors.New("search query cannot be empty")

// Snippet is one search hit reduced to the text the model needs.
type Snippet struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Text  string `json:"text"`
}

// String renders the snippet as a single context line.
func (s Snippet) String() string {
	if s.Text == "" {
		return s.Title
	}
	return s.Title + ": " + s.Text
}

// Config configures the HTML search client.
type Config struct {
	Endpoint   string
	MaxResults int
	Timeout    time.Duration
}

// Client scrapes an HTML search endpoint (DuckDuckGo's html front-end by
// default) for short snippets.
type Client struct {
	client     *resty.Client
	endpoint   string
	maxResults int
}

// NewClient builds a Client. A zero Timeout uses 10 seconds.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 3
	}

	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("User-Agent", "Mozilla/5.0 (compatible; HealBuddy/1.0)")

	return &Client{
		client:     client,
		endpoint:   cfg.Endpoint,
		maxResults: maxResults,
	}
}

// Search returns up to MaxResults snippets for query.
func (c *Client) Search(ctx context.Context, query string) ([]Snippet, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("q", query).
		Get(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("fetch search results: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("HTTP error %d when fetching search results", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, fmt.Errorf("parse search results: %w", err)
	}

	snippets := parseResults(doc, c.maxResults)
	log.Printf("[websearch] query=%q results=%d", query, len(snippets))
	return snippets, nil
}

func parseResults(doc *goquery.Document, limit int) []Snippet {
	var out []Snippet
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		link := s.Find(".result__a").First()
		title := collapse(link.Text())
		if title == "" {
			return true
		}
		href, _ := link.Attr("href")
		out = append(out, Snippet{
			Title: title,
			URL:   href,
			Text:  collapse(s.Find(".result__snippet").First().Text()),
		})
		return len(out) < limit
	})
	return out
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
