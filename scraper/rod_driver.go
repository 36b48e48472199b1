package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/rs/zerolog/log"

	"partsync/config"
)

// RodSession is a live Chromium driven over the DevTools protocol
type RodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage
}

// LaunchRod starts Chromium and opens the stealth page used for lookups
func LaunchRod(cfg config.BrowserConfig) (*RodSession, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-dev-shm-usage").
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
		log.Debug().Str("bin", cfg.Bin).Msg("Using configured Chromium")
	} else {
		log.Debug().Msg("Using auto-detected Chromium")
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	session := &RodSession{launcher: l, browser: browser}

	page, err := stealth.Page(browser)
	if err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             1920,
		Height:            1080,
		DeviceScaleFactor: 1,
	}); err != nil {
		session.Close()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			session.Close()
			return nil, fmt.Errorf("failed to set user agent: %w", err)
		}
	}

	session.page = &rodPage{page: page, loadTimeout: cfg.PageLoadTimeout}
	log.Info().Str("control_url", controlURL).Bool("headless", cfg.Headless).Msg("Browser session started")
	return session, nil
}

// RodFactory returns a SessionFactory that launches Chromium with cfg
func RodFactory(cfg config.BrowserConfig) SessionFactory {
	return func(ctx context.Context) (Session, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return LaunchRod(cfg)
	}
}

// Page returns the lookup page
func (s *RodSession) Page() Page {
	return s.page
}

// Close closes the browser and kills its process
func (s *RodSession) Close() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Kill()
		s.launcher.Cleanup()
	}
	log.Info().Msg("Browser session closed")
	return err
}

type rodPage struct {
	page        *rod.Page
	loadTimeout time.Duration
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if p.loadTimeout > 0 {
		page = page.Timeout(p.loadTimeout)
		defer page.CancelTimeout()
	}

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	return nil
}

func (p *rodPage) WaitFor(ctx context.Context, selector string, timeout time.Duration) bool {
	if timeout <= 0 {
		_, ok := p.Find(selector)
		return ok
	}

	page := p.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()
	_, err := page.Element(selector)
	return err == nil
}

func (p *rodPage) Find(selector string) (Element, bool) {
	return firstRod(p.page.Elements(selector))
}

func (p *rodPage) FindAll(selector string) []Element {
	return allRod(p.page.Elements(selector))
}

func (p *rodPage) URL() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (p *rodPage) Title() string {
	info, err := p.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

func (p *rodPage) BodyText() string {
	body, ok := p.Find("body")
	if !ok {
		return ""
	}
	return body.Text()
}

type rodElement struct {
	el *rod.Element
}

func (e rodElement) Find(selector string) (Element, bool) {
	return firstRod(e.el.Elements(selector))
}

func (e rodElement) FindAll(selector string) []Element {
	return allRod(e.el.Elements(selector))
}

func (e rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

func (e rodElement) Attribute(name string) (string, bool) {
	if value, err := e.el.Attribute(name); err == nil && value != nil {
		return *value, true
	}

	prop, err := e.el.Property(name)
	if err != nil || prop.Nil() {
		return "", false
	}
	return prop.Str(), true
}

func (e rodElement) Parent() (Element, bool) {
	parent, err := e.el.Parent()
	if err != nil || parent == nil {
		return nil, false
	}
	return rodElement{el: parent}, true
}

func (e rodElement) Click(ctx context.Context, timeout time.Duration) error {
	el := e.el.Context(ctx).Timeout(timeout)
	defer el.CancelTimeout()

	// Click waits until the element is interactable, which never happens
	// for hidden elements
	visible, err := el.Visible()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotClickable, err)
	}
	if !visible {
		return ErrNotClickable
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func firstRod(els rod.Elements, err error) (Element, bool) {
	if err != nil || len(els) == 0 {
		return nil, false
	}
	return rodElement{el: els[0]}, true
}

func allRod(els rod.Elements, err error) []Element {
	if err != nil {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, rodElement{el: el})
	}
	return out
}
