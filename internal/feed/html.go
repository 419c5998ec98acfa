package feed

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/sources"
)

const (
	maxArticlesPerListing = 10
	articleFetchPause     = 500 * time.Millisecond
	userAgent             = "Mozilla/5.0 (compatible; clubcyber/1.0)"
)

// linkSelectors locate article links on a listing page, most specific first.
var linkSelectors = []string{
	"article a[href]",
	"h2 a[href]",
	"h3 a[href]",
	".post-title a[href]",
	".entry-title a[href]",
	".article-title a[href]",
}

// contentSelectors locate body paragraphs on an article page.
var contentSelectors = []string{
	"article p",
	".article-body p",
	".post-content p",
	".entry-content p",
	".content p",
	"main p",
	"#content p",
	"p",
}

// HTMLFetcher scrapes article listings that have no usable feed: it collects
// article links from the listing page, then fetches each article and extracts
// its paragraphs.
type HTMLFetcher struct {
	client *http.Client
}

func NewHTMLFetcher(client *http.Client) *HTMLFetcher {
	return &HTMLFetcher{client: client}
}

func (f *HTMLFetcher) Fetch(ctx context.Context, site sources.Site) ([]Article, error) {
	doc, err := f.getDocument(ctx, site.URL)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", site.URL, err)
	}

	links := collectLinks(doc, site.URL)
	if len(links) == 0 {
		return nil, fmt.Errorf("no article links found on %s", site.URL)
	}
	if len(links) > maxArticlesPerListing {
		links = links[:maxArticlesPerListing]
	}

	var articles []Article
	for i, link := range links {
		if i > 0 {
			select {
			case <-ctx.Done():
				return articles, ctx.Err()
			case <-time.After(articleFetchPause):
			}
		}

		article, err := f.fetchArticle(ctx, link)
		if err != nil {
			logger.Debug("skip article", "url", link, "error", err)
			continue
		}
		articles = append(articles, article)
	}
	return articles, nil
}

func (f *HTMLFetcher) fetchArticle(ctx context.Context, link string) (Article, error) {
	doc, err := f.getDocument(ctx, link)
	if err != nil {
		return Article{}, err
	}

	title := extractTitle(doc)
	content := extractContent(doc)
	if content == "" {
		return Article{}, fmt.Errorf("no content extracted")
	}

	return Article{URL: link, Title: title, Content: content}, nil
}

func (f *HTMLFetcher) getDocument(ctx context.Context, rawURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
	}
	return goquery.NewDocumentFromReader(resp.Body)
}

// collectLinks gathers unique absolute article URLs from the listing page,
// trying each selector until one yields links on the listing's own host.
func collectLinks(doc *goquery.Document, baseURL string) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	for _, selector := range linkSelectors {
		seen := map[string]struct{}{}
		var links []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			href, ok := s.Attr("href")
			if !ok {
				return
			}
			ref, err := url.Parse(strings.TrimSpace(href))
			if err != nil {
				return
			}
			abs := base.ResolveReference(ref)
			if abs.Scheme != "http" && abs.Scheme != "https" {
				return
			}
			if abs.Host != base.Host {
				return
			}
			key := abs.String()
			if _, dup := seen[key]; dup {
				return
			}
			seen[key] = struct{}{}
			links = append(links, key)
		})
		if len(links) > 0 {
			return links
		}
	}
	return nil
}

func extractTitle(doc *goquery.Document) string {
	for _, selector := range []string{"h1", ".article-title", ".entry-title", "title"} {
		title := strings.TrimSpace(doc.Find(selector).First().Text())
		if title != "" {
			return title
		}
	}
	return ""
}

// extractContent joins body paragraphs, trying selectors until enough text
// shows up. Three paragraphs is taken as a real article body.
func extractContent(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		var paragraphs []string
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) >= 3 {
			return strings.Join(paragraphs, "\n\n")
		}
	}
	return ""
}

// stripTags removes markup from feed descriptions that embed HTML.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strings.Join(strings.Fields(b.String()), " "))
}
