package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"crashscraper/internal/config"
	"crashscraper/internal/domain/entity"
	"crashscraper/internal/usecase/crawl"
	"crashscraper/internal/utils/text"

	"github.com/PuerkitoBio/goquery"
)

// Extractor returns the readable text of an already downloaded page.
type Extractor interface {
	Extract(html []byte, pageURL *url.URL) (string, error)
}

// HTMLAdapter crawls a paginated section page and reads article pages with
// the CSS selectors of its SourceConfig.
type HTMLAdapter struct {
	cfg       config.SourceConfig
	client    *Client
	extractor Extractor // nil disables the readability fallback
}

// NewHTMLAdapter creates an adapter for an html source.
func NewHTMLAdapter(cfg config.SourceConfig, client *Client, extractor Extractor) *HTMLAdapter {
	return &HTMLAdapter{cfg: cfg, client: client, extractor: extractor}
}

// NextPage implements crawl.SourceAdapter. Page tokens are page numbers.
func (a *HTMLAdapter) NextPage(ctx context.Context, token string) ([]crawl.Candidate, string, error) {
	page := a.cfg.FirstPage
	if token != "" {
		n, err := strconv.Atoi(token)
		if err != nil {
			return nil, "", fmt.Errorf("invalid page token %q: %w", token, err)
		}
		page = n
	}

	listingURL := a.cfg.PageURL(page)
	p, err := a.client.Get(ctx, listingURL, KindListing)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return nil, "", &entity.ParseError{URL: listingURL, Field: "listing", Err: err}
	}

	candidates := a.candidates(doc, p.URL)
	next := ""
	if len(candidates) > 0 && a.cfg.Paginated() {
		next = strconv.Itoa(page + 1)
	}
	return candidates, next, nil
}

func (a *HTMLAdapter) candidates(doc *goquery.Document, base *url.URL) []crawl.Candidate {
	var items *goquery.Selection
	if a.cfg.ItemSelector != "" {
		items = doc.Find(a.cfg.ItemSelector)
	} else {
		items = doc.Find(a.cfg.LinkSelector)
	}

	seen := make(map[string]struct{})
	var out []crawl.Candidate
	allDated := true

	items.Each(func(_ int, item *goquery.Selection) {
		link := item
		if a.cfg.ItemSelector != "" {
			link = item.Find(a.cfg.LinkSelector).First()
		}
		href, ok := link.Attr("href")
		if !ok {
			return
		}
		abs := resolve(base, href)
		if abs == "" {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}

		title := ""
		if a.cfg.TitleSelector != "" {
			title = text.CollapseSpace(item.Find(a.cfg.TitleSelector).First().Text())
		}
		if title == "" {
			title = text.CollapseSpace(link.Text())
		}

		var published time.Time
		if a.cfg.DateSelector != "" {
			published = a.selectionDate(item.Find(a.cfg.DateSelector).First())
		}
		if published.IsZero() {
			allDated = false
		}

		out = append(out, crawl.Candidate{URL: abs, Title: title, PublishedAt: published})
	})

	// 全件に日付がある場合のみ新しい順に並べ直す
	if allDated && len(out) > 1 {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].PublishedAt.After(out[j].PublishedAt)
		})
	}
	return out
}

// FetchDetail implements crawl.SourceAdapter.
func (a *HTMLAdapter) FetchDetail(ctx context.Context, c crawl.Candidate) (crawl.Detail, error) {
	p, err := a.client.Get(ctx, c.URL, KindDetail)
	if err != nil {
		return crawl.Detail{}, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(p.Body))
	if err != nil {
		return crawl.Detail{}, &entity.ParseError{URL: c.URL, Field: "document", Err: err}
	}

	d := crawl.Detail{
		Title:       detailTitle(doc),
		Body:        a.detailBody(doc, p),
		RawContent:  string(p.Body),
		PublishedAt: a.detailDate(doc),
	}
	return d, nil
}

func detailTitle(doc *goquery.Document) string {
	if t := text.CollapseSpace(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	if t, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && strings.TrimSpace(t) != "" {
		return text.CollapseSpace(t)
	}
	return text.CollapseSpace(doc.Find("title").First().Text())
}

func (a *HTMLAdapter) detailBody(doc *goquery.Document, p *Page) string {
	if a.cfg.BodySelector != "" {
		if body := selectorText(doc.Selection, a.cfg.BodySelector); body != "" {
			return body
		}
	}
	if a.extractor == nil {
		return ""
	}
	body, err := a.extractor.Extract(p.Body, p.URL)
	if err != nil {
		return ""
	}
	return body
}

// selectorText joins the paragraphs found under selector. A match without
// <p> children contributes its own text.
func selectorText(root *goquery.Selection, selector string) string {
	var parts []string
	root.Find(selector).Each(func(_ int, s *goquery.Selection) {
		paragraphs := s.Find("p")
		if paragraphs.Length() == 0 {
			if t := text.CollapseSpace(s.Text()); t != "" {
				parts = append(parts, t)
			}
			return
		}
		paragraphs.Each(func(_ int, p *goquery.Selection) {
			if t := text.CollapseSpace(p.Text()); t != "" {
				parts = append(parts, t)
			}
		})
	})
	return strings.Join(parts, "\n\n")
}

func (a *HTMLAdapter) detailDate(doc *goquery.Document) time.Time {
	var found time.Time
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return true
		}
		if raw := findDatePublished(v); raw != "" {
			if t, ok := ParseDate(raw, a.cfg.DateLayouts); ok {
				found = t
				return false
			}
		}
		return true
	})
	if !found.IsZero() {
		return found
	}

	for _, sel := range []string{
		`meta[property="article:published_time"]`,
		`meta[itemprop="datePublished"]`,
		`meta[name="date"]`,
	} {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if t, ok := ParseDate(v, a.cfg.DateLayouts); ok {
				return t
			}
		}
	}

	selectors := []string{"time[datetime]"}
	if a.cfg.DateSelector != "" {
		selectors = append(selectors, a.cfg.DateSelector)
	}
	selectors = append(selectors, ".fecha", ".date")
	for _, sel := range selectors {
		if t := a.selectionDate(doc.Find(sel).First()); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

// selectionDate reads a datetime attribute first, then the element text.
func (a *HTMLAdapter) selectionDate(s *goquery.Selection) time.Time {
	if s.Length() == 0 {
		return time.Time{}
	}
	if v, ok := s.Attr("datetime"); ok {
		if t, ok := ParseDate(v, a.cfg.DateLayouts); ok {
			return t
		}
	}
	if t, ok := ParseDate(text.CollapseSpace(s.Text()), a.cfg.DateLayouts); ok {
		return t
	}
	return time.Time{}
}

// findDatePublished walks a decoded JSON-LD value, including @graph arrays.
func findDatePublished(v any) string {
	switch x := v.(type) {
	case map[string]any:
		if s, ok := x["datePublished"].(string); ok && s != "" {
			return s
		}
		for _, child := range x {
			if s := findDatePublished(child); s != "" {
				return s
			}
		}
	case []any:
		for _, child := range x {
			if s := findDatePublished(child); s != "" {
				return s
			}
		}
	}
	return ""
}

// resolve returns href as an absolute http(s) URL without fragment, or "".
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := ref
	if base != nil {
		abs = base.ResolveReference(ref)
	}
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	return abs.String()
}
