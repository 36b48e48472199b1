package scraper

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"partsync/config"
)

func page(title, body string) string {
	return "<html><head><title>" + title + "</title></head><body>" + body + "</body></html>"
}

// fixturePages maps request URIs to HTML. Anything else is a 404.
var fixturePages = map[string]string{
	"/jk/search?q=J1": page("Search results", `
		<div class="product-item">
			<div class="amlabel-text">J10</div>
			<span class="price" data-price-amount="99.00">£99.00</span>
		</div>
		<div class="product-item">
			<div class="amlabel-text">J1</div>
			<span class="price" data-price-amount="23.5">£23.50</span>
			<a class="product-item-link" href="/jk/product/j1">Wheel Bearing</a>
		</div>`),
	"/jk/search?q=J2": page("Search results", `
		<button class="accept-cookies">Accept all</button>
		<div class="product-item">
			<div class="amlabel-text">J2</div>
			<div class="price-box"><span class="price">£1,079.00</span></div>
		</div>`),
	"/jk/search?q=J3": page("Search results", `
		<div class="product-item">
			<div class="amlabel-text"></div>
			<div class="amlabel-text">J3</div>
			<a class="product-item-photo" href="/jk/product/j3"><img src="j3.jpg"></a>
		</div>`),
	"/jk/product/j3": page("Door Seal J3", `<div class="product-info-main"><span class="price">£45.99</span></div>`),
	"/jk/search?q=J4": page("Search results", `
		<div class="product-item"><div class="amlabel-text">J40</div><span class="price">£5.00</span></div>`),
	"/jk/search?q=J5": page("Search results", `
		<ol><li class="product-item"><div class="amlabel-text">J5</div><span class="price">£8.10</span></li></ol>`),
	"/jk/search?q=J6": page("Search results", `
		<div class="product-item">
			<div class="amlabel-text">J6</div>
			<span class="price" data-price-amount="0">£0.00</span>
			<a class="product-item-link" href="/jk/product/j6">Clip</a>
		</div>`),
	"/jk/product/j6": page("Clip J6", `<span class="price">£12.00</span>`),
	"/jk/search?q=J7": page("Search results", `
		<div class="product-item"><div class="amlabel-text">J7</div></div>`),
	"/jk/search?q=J9": page("Search results", `
		<div class="product-item">
			<div class="amlabel-text">J9</div>
			<span class="price" data-price-amount="23.50">£23.50</span>
		</div>`+strings.Repeat("<p>Genuine and reproduction parts for classic VW campers.</p>", 100)+
		`<footer>This site is protected by reCAPTCHA and the Google Privacy Policy and Terms of Service apply.</footer>`),
	"/jk/search?q=J8":   page("Search results", `<p>Your search returned no results.</p>`),
	"/jk/search?q=JBOT": page("Just a moment...", `Checking your browser before accessing the site.`),
	"/h/search?q=A1002": page("Search results", `
		<div class="products-grid">
			<div class="product-item-info">
				<div class="product__sku"><mark>A 1002</mark></div>
				<span class="price-wrapper" data-price-including-tax="15"><span class="price"></span></span>
				<a class="product-item-link" href="/h/product/a1002">Rear Light Lens</a>
			</div>
		</div>`),
	"/h/search?q=BR55": page("Search results", `
		<div class="products-grid">
			<div class="product-item-info">
				<a class="product-item-link" href="/h/product/br55">Brake Hose BR55</a>
				<span class="price">£7.25</span>
			</div>
		</div>`),
	"/h/search?q=ABC": page("Search results", `
		<div class="products-grid">
			<article class="product-item-info">
				<span class="sku">abc</span>
				<span itemprop="lowPrice" content="3.40"></span>
			</article>
		</div>`),
	"/h/search?q=NONE": page("Search results", `<p>Your search returned no results.</p>`),
}

func newFixtureServer(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		if r.URL.Path == "/fail" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		body, ok := fixturePages[r.URL.RequestURI()]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func fixtureCatalogs(base string) config.Catalogs {
	catalogs := config.DefaultCatalogs().WithoutDelays()

	jk := catalogs[config.CatalogJustKampers]
	jk.SearchURL = base + "/jk/search?q={query}"
	catalogs[config.CatalogJustKampers] = jk

	heritage := catalogs[config.CatalogHeritage]
	heritage.SearchURL = base + "/h/search?q={query}"
	catalogs[config.CatalogHeritage] = heritage

	return catalogs
}

func TestCatalogSearch(t *testing.T) {
	srv, _ := newFixtureServer(t)
	catalogs := fixtureCatalogs(srv.URL)
	jk := NewCatalog(catalogs[config.CatalogJustKampers])
	heritage := NewCatalog(catalogs[config.CatalogHeritage])

	testCases := []struct {
		name       string
		catalog    *Catalog
		identifier string
		price      string
		url        string
	}{
		{"Amount attribute on matched listing", jk, "J1", "23.5", srv.URL + "/jk/product/j1"},
		{"Visible text with thousands separator", jk, "J2", "1079", srv.URL + "/jk/search?q=J2"},
		{"Product page fallback", jk, "J3", "45.99", srv.URL + "/jk/product/j3"},
		{"Alternate candidate locator", jk, "J5", "8.10", srv.URL + "/jk/search?q=J5"},
		{"Zero listing price falls through", jk, "J6", "12", srv.URL + "/jk/product/j6"},
		{"Full page with reCAPTCHA footer", jk, "J9", "23.50", srv.URL + "/jk/search?q=J9"},
		{"Parent tax-inclusive attribute", heritage, "A1002", "15", srv.URL + "/h/product/a1002"},
		{"Title stands in for label", heritage, "BR55", "7.25", srv.URL + "/h/product/br55"},
		{"Content attribute on empty element", heritage, "ABC", "3.40", srv.URL + "/h/search?q=ABC"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session := NewStaticSession(srv.Client(), "", 0)
			match, err := tc.catalog.Search(context.Background(), session.Page(), tc.identifier)
			if err != nil {
				t.Fatalf("Search(%q) failed: %v", tc.identifier, err)
			}
			if !match.Price.Equal(decimal.RequireFromString(tc.price)) {
				t.Errorf("price = %s; want %s", match.Price, tc.price)
			}
			if match.URL != tc.url {
				t.Errorf("url = %s; want %s", match.URL, tc.url)
			}
		})
	}
}

func TestCatalogSearchFailures(t *testing.T) {
	srv, _ := newFixtureServer(t)
	catalogs := fixtureCatalogs(srv.URL)
	jk := NewCatalog(catalogs[config.CatalogJustKampers])
	heritage := NewCatalog(catalogs[config.CatalogHeritage])

	broken := catalogs[config.CatalogJustKampers]
	broken.SearchURL = srv.URL + "/fail?q={query}"

	testCases := []struct {
		name       string
		catalog    *Catalog
		identifier string
		expected   error
	}{
		{"No listing matches", jk, "J4", ErrNoMatchFound},
		{"No listings at all", jk, "J8", ErrNoMatchFound},
		{"Missing search page", jk, "J404", ErrTransientPageFailure},
		{"No results container", heritage, "NONE", ErrNoMatchFound},
		{"Matched without price or link", jk, "J7", ErrPriceUnextractable},
		{"Server error", NewCatalog(broken), "J1", ErrTransientPageFailure},
		{"Bot wall", jk, "JBOT", ErrTransientPageFailure},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			session := NewStaticSession(srv.Client(), "", 0)
			_, err := tc.catalog.Search(context.Background(), session.Page(), tc.identifier)
			if !errors.Is(err, tc.expected) {
				t.Errorf("Search(%q) error = %v; want %v", tc.identifier, err, tc.expected)
			}
		})
	}
}

func TestCatalogSearchURL(t *testing.T) {
	catalog := NewCatalog(config.DefaultCatalogs()[config.CatalogHeritage])
	got := catalog.SearchURL("113 837/311")
	want := "https://www.heritagepartscentre.com/uk/catalogsearch/result/?q=113+837%2F311"
	if got != want {
		t.Errorf("SearchURL = %s; want %s", got, want)
	}
}

type fakeButton struct {
	text    string
	class   string
	hidden  bool
	clicks  int
	timeout time.Duration
	ctx     context.Context
}

func (b *fakeButton) Find(string) (Element, bool) { return nil, false }
func (b *fakeButton) FindAll(string) []Element { return nil }
func (b *fakeButton) Text() string { return b.text }
func (b *fakeButton) Parent() (Element, bool) { return nil, false }

func (b *fakeButton) Attribute(name string) (string, bool) {
	if name == "class" {
		return b.class, true
	}
	return "", false
}

func (b *fakeButton) Click(ctx context.Context, timeout time.Duration) error {
	b.ctx = ctx
	b.timeout = timeout
	if b.hidden {
		return ErrNotClickable
	}
	b.clicks++
	return nil
}

type buttonPage struct {
	panickingPage
	buttons []*fakeButton
}

func (p buttonPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	return selector == "button" && len(p.buttons) > 0
}

func (p buttonPage) FindAll(selector string) []Element {
	if selector != "button" {
		return nil
	}
	out := make([]Element, 0, len(p.buttons))
	for _, b := range p.buttons {
		out = append(out, b)
	}
	return out
}

func TestDismissConsentSkipsHiddenButtons(t *testing.T) {
	hidden := &fakeButton{text: "Accept", class: "accept-all", hidden: true}
	unrelated := &fakeButton{text: "Sign in"}
	visible := &fakeButton{text: "Accept cookies"}
	page := buttonPage{buttons: []*fakeButton{hidden, unrelated, visible}}

	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "batch")

	catalog := NewCatalog(config.DefaultCatalogs().WithoutDelays()[config.CatalogJustKampers])
	if !catalog.dismissConsent(ctx, page) {
		t.Fatal("expected the visible button to dismiss the overlay")
	}

	if hidden.clicks != 0 || unrelated.clicks != 0 || visible.clicks != 1 {
		t.Errorf("clicks hidden=%d unrelated=%d visible=%d", hidden.clicks, unrelated.clicks, visible.clicks)
	}
	for _, b := range []*fakeButton{hidden, visible} {
		if b.timeout <= 0 || b.timeout > clickTimeout {
			t.Errorf("%q clicked with unbounded timeout %v", b.text, b.timeout)
		}
		if b.ctx == nil || b.ctx.Value(ctxKey{}) != "batch" {
			t.Errorf("%q clicked without the lookup context", b.text)
		}
	}
}

func TestDismissConsentNothingClickable(t *testing.T) {
	page := buttonPage{buttons: []*fakeButton{{text: "Accept", hidden: true}}}
	catalog := NewCatalog(config.DefaultCatalogs().WithoutDelays()[config.CatalogJustKampers])
	if catalog.dismissConsent(context.Background(), page) {
		t.Error("a hidden button must not count as dismissed")
	}
}
