package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/m4xw311/ask/errors"
)

const (
	maxResponseSize = 5 * 1024 * 1024
	userAgent       = "Mozilla/5.0 (compatible; ask/1.0)"
)

// WebFetchTool fetches a URL and returns its content, converting HTML to
// markdown so the model gets readable text instead of markup.
type WebFetchTool struct {
	client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{client: &http.Client{}}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }
func (t *WebFetchTool) Description() string {
	return "Fetch content from a URL via HTTP GET. HTML pages are converted to markdown. Responses are capped at 5MB."
}

func (t *WebFetchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{
				"type":        "string",
				"description": "The URL to fetch, starting with http:// or https://",
			},
		},
		"required": []string{"url"},
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	target, ok := args["url"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'url' argument")
	}
	if !strings.HasPrefix(target, "http://") && !strings.HasPrefix(target, "https://") {
		return "", errors.New("URL must start with http:// or https://")
	}

	body, contentType, err := t.get(ctx, target)
	if err != nil {
		return "", err
	}

	if strings.Contains(contentType, "text/html") {
		markdown, err := htmlToMarkdown(body)
		if err != nil {
			return "", errors.Wrapf(err, "failed to convert HTML to markdown")
		}
		return markdown, nil
	}
	return body, nil
}

func (t *WebFetchTool) get(ctx context.Context, target string) (body, contentType string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to build request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", errors.Wrapf(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", errors.New("request failed with status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize+1))
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to read response")
	}
	if len(data) > maxResponseSize {
		return "", "", errors.New("response too large (exceeds 5MB limit)")
	}
	return string(data), resp.Header.Get("Content-Type"), nil
}

func htmlToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}

// WebSearchTool queries the DuckDuckGo lite endpoint, which serves plain
// HTML tables that can be scraped without an API key.
type WebSearchTool struct {
	client  *http.Client
	baseURL string
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		client:  &http.Client{},
		baseURL: "https://lite.duckduckgo.com/lite/",
	}
}

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Description() string {
	return "Search the web for information using DuckDuckGo. Returns the top results as text."
}

func (t *WebSearchTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "The search query",
			},
		},
		"required": []string{"query"},
	}
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (string, error) {
	query, ok := args["query"].(string)
	if !ok {
		return "", errors.New("missing or invalid 'query' argument")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"?q="+url.QueryEscape(query), nil)
	if err != nil {
		return "", errors.Wrapf(err, "failed to build search request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errors.Wrapf(err, "search request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New("search request failed with status code: %d", resp.StatusCode)
	}

	results, err := parseSearchResults(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "No results found for: " + query, nil
	}
	return strings.Join(results, "\n\n"), nil
}

// parseSearchResults extracts up to five title/snippet/link triples from
// the DDG lite result table.
func parseSearchResults(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse search results")
	}

	var results []string
	doc.Find("a.result-link").EachWithBreak(func(i int, link *goquery.Selection) bool {
		if i >= 5 {
			return false
		}
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		snippet := strings.TrimSpace(link.Closest("tr").Next().Find("td.result-snippet").Text())
		results = append(results, fmt.Sprintf("**%s**\n%s\n%s", title, snippet, href))
		return true
	})
	return results, nil
}
