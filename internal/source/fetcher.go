// Package source downloads articles and video pages and extracts text to talk about.
package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lorecast/lorecast/internal/content"
)

// Kind tells how a document's text was obtained
type Kind string

// document kinds
const (
	KindArticle Kind = "article"
	KindVideo   Kind = "video"
)

// videoHosts are pages whose text lives in meta tags, not paragraphs
var videoHosts = []string{"youtube.com", "youtu.be", "vimeo.com"}

// Document is the extracted title and text of a page
type Document struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Kind    Kind   `json:"kind"`
}

// HTTPClient defines the interface for HTTP client operations
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher implements page fetching over HTTP
type Fetcher struct {
	client    HTTPClient
	maxLength int
}

// NewFetcher creates a fetcher, a nil client gets a default with timeout
func NewFetcher(client HTTPClient) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: content.DefaultHTTPTimeout}
	}
	return &Fetcher{client: client, maxLength: content.MaxSourceContentLength}
}

// Fetch downloads the page and extracts its title and text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Document{}, fmt.Errorf("invalid source url %q", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return Document{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "lorecast/1.0 (+https://github.com/lorecast/lorecast)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Document{}, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, fmt.Errorf("failed to fetch page: status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	res := Document{URL: u.String(), Kind: KindArticle}
	if isVideoHost(u.Hostname()) {
		res.Kind = KindVideo
		res.Title, res.Content = extractVideo(doc)
	} else {
		res.Title = strings.TrimSpace(doc.Find("title").First().Text())
		res.Content = extractArticle(doc)
	}

	if strings.TrimSpace(res.Content) == "" {
		return Document{}, fmt.Errorf("no text found at %s", u.Redacted())
	}

	// limit length for api calls
	if len(res.Content) > f.maxLength {
		res.Content = content.TruncateString(res.Content, f.maxLength)
	}
	return res, nil
}

func isVideoHost(host string) bool {
	host = strings.ToLower(host)
	for _, h := range videoHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}

// extractVideo reads the open graph title and description of a video page
func extractVideo(doc *goquery.Document) (title, text string) {
	meta := func(selectors ...string) string {
		for _, sel := range selectors {
			if v, ok := doc.Find(sel).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		}
		return ""
	}

	title = meta(`meta[property="og:title"]`, `meta[name="title"]`)
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	text = meta(`meta[property="og:description"]`, `meta[name="description"]`)
	return title, text
}

// extractArticle extracts the main text content from the HTML document
func extractArticle(doc *goquery.Document) string {
	var articleText strings.Builder

	// first try to find article content in common containers
	article := doc.Find("article, .article, .post, .content, main")
	if article.Length() > 0 {
		article.First().Find("p").Each(func(_ int, s *goquery.Selection) {
			if p := strings.TrimSpace(s.Text()); p != "" {
				articleText.WriteString(p)
				articleText.WriteString("\n\n")
			}
		})
	} else {
		// fallback to all paragraphs, skipping short ones which are likely navigation
		doc.Find("p").Each(func(_ int, s *goquery.Selection) {
			if p := strings.TrimSpace(s.Text()); len(p) > content.DisplayTruncateLength {
				articleText.WriteString(p)
				articleText.WriteString("\n\n")
			}
		})
	}

	return strings.TrimSpace(articleText.String())
}
