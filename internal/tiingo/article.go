package tiingo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// contentSelectors are tried in order; the first match supplies the paragraphs.
var contentSelectors = []string{
	"article", "main", ".article-content", ".post-content",
	"#article-content", "#main-content", ".story-content",
	`[role="main"]`, ".entry-content", ".content-body",
	".article-body", ".article__body", ".story__body",
	".post__content", ".post-body", ".entry__content",
	`[data-testid="article-body"]`,
}

// ArticleText downloads pageURL and returns its main body text, or "" when
// the page has no paragraphs.
func (c *Client) ArticleText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &APIError{StatusCode: resp.StatusCode, Message: string(body), Endpoint: pageURL}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse article: %w", err)
	}
	return ExtractText(doc), nil
}

// ExtractText pulls paragraph text out of the main content area of doc.
func ExtractText(doc *goquery.Document) string {
	doc.Find("script, style, nav, header, footer, iframe, aside").Remove()

	root := doc.Selection
	for _, sel := range contentSelectors {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			root = found
			break
		}
	}

	var parts []string
	root.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := strings.TrimSpace(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return CleanHTML(strings.Join(parts, " "))
}
