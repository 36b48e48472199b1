package scraper

import (
	"context"
	"time"
)

// Scope is anything that can be searched with a CSS selector
type Scope interface {
	// Find returns the first element matching selector
	Find(selector string) (Element, bool)
	// FindAll returns every element matching selector, in document order
	FindAll(selector string) []Element
}

// Element is one node of a loaded page
type Element interface {
	Scope
	Text() string
	// Attribute reads an HTML attribute, falling back to a DOM property
	// such as innerText
	Attribute(name string) (string, bool)
	Parent() (Element, bool)
	// Click clicks the element within timeout. Hidden elements are not
	// clicked and return ErrNotClickable.
	Click(ctx context.Context, timeout time.Duration) error
}

// Page is the single tab a session reuses for every lookup. Each
// navigation replaces its content.
type Page interface {
	Scope
	Navigate(ctx context.Context, url string) error
	// WaitFor waits up to timeout for selector to appear. A zero timeout
	// checks once.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) bool
	URL() string
	Title() string
	BodyText() string
}

// Session owns a browser (or its stand-in) and the page it drives
type Session interface {
	Page() Page
	Close() error
}

// SessionFactory starts a new session
type SessionFactory func(ctx context.Context) (Session, error)

// sleep waits for d unless ctx ends first
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
