package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// StaticSession fetches pages over plain HTTP and queries them with goquery.
// Nothing client-side runs, so it serves test mode and fixture pages.
type StaticSession struct {
	page *staticPage
}

// NewStaticSession creates a session using client. A nil client uses one
// with the given page-load timeout.
func NewStaticSession(client *http.Client, userAgent string, timeout time.Duration) *StaticSession {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &StaticSession{page: &staticPage{client: client, userAgent: userAgent}}
}

// StaticFactory returns a SessionFactory for static sessions
func StaticFactory(client *http.Client, userAgent string, timeout time.Duration) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		return NewStaticSession(client, userAgent, timeout), nil
	}
}

// Page returns the lookup page
func (s *StaticSession) Page() Page {
	return s.page
}

// Close releases nothing; the client is shared
func (s *StaticSession) Close() error {
	return nil
}

type staticPage struct {
	client    *http.Client
	userAgent string
	url       string
	doc       *goquery.Document
}

func (p *staticPage) Navigate(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse page: %w", err)
	}

	p.doc = doc
	p.url = resp.Request.URL.String()
	return nil
}

func (p *staticPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	_, ok := p.Find(selector)
	return ok
}

func (p *staticPage) Find(selector string) (Element, bool) {
	if p.doc == nil {
		return nil, false
	}
	return firstStatic(p.doc.Find(selector))
}

func (p *staticPage) FindAll(selector string) []Element {
	if p.doc == nil {
		return nil
	}
	return allStatic(p.doc.Find(selector))
}

func (p *staticPage) URL() string {
	return p.url
}

func (p *staticPage) Title() string {
	if p.doc == nil {
		return ""
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

func (p *staticPage) BodyText() string {
	if p.doc == nil {
		return ""
	}
	return strings.TrimSpace(p.doc.Find("body").Text())
}

type staticElement struct {
	sel *goquery.Selection
}

func (e staticElement) Find(selector string) (Element, bool) {
	return firstStatic(e.sel.Find(selector))
}

func (e staticElement) FindAll(selector string) []Element {
	return allStatic(e.sel.Find(selector))
}

func (e staticElement) Text() string {
	return strings.TrimSpace(e.sel.Text())
}

func (e staticElement) Attribute(name string) (string, bool) {
	if value, ok := e.sel.Attr(name); ok {
		return value, true
	}
	if name == "innerText" || name == "textContent" {
		return e.sel.Text(), true
	}
	return "", false
}

func (e staticElement) Parent() (Element, bool) {
	parent := e.sel.Parent()
	if parent.Length() == 0 {
		return nil, false
	}
	return staticElement{sel: parent}, true
}

// Click never succeeds: static pages run no scripts, so there is no
// overlay to dismiss
func (e staticElement) Click(ctx context.Context, timeout time.Duration) error {
	return ErrNotClickable
}

func firstStatic(sel *goquery.Selection) (Element, bool) {
	if sel.Length() == 0 {
		return nil, false
	}
	return staticElement{sel: sel.First()}, true
}

func allStatic(sel *goquery.Selection) []Element {
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, staticElement{sel: s})
	})
	return out
}
