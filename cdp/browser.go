// Package cdp implements the sizewatch detector contracts over Chrome
// DevTools Protocol via rod. One injected JS runtime per page hosts a
// shared ResizeObserver, per-element MutationObservers and a window resize
// listener, all reporting through a single Runtime binding.
package cdp

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserConfig configures the browser manager.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote string

	// Headful disables headless mode. Default: headless.
	Headful bool

	Logger *slog.Logger
}

func (c *BrowserConfig) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Browser manages the Chrome lifecycle for sizewatch pages.
type Browser struct {
	cfg     BrowserConfig
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewBrowser creates a Browser. Call Start to launch or connect.
func NewBrowser(cfg BrowserConfig) *Browser {
	cfg.defaults()
	return &Browser{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (b *Browser) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("cdp: browser is closed")
	}
	log := b.cfg.Logger

	var wsURL string
	if b.cfg.Remote != "" {
		wsURL = b.cfg.Remote
		log.Info("cdp: connecting to remote chrome", "url", wsURL)
	} else {
		l := launcher.New().Headless(!b.cfg.Headful)
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("cdp: launch chrome: %w", err)
		}
		wsURL = u
		b.lnch = l
		log.Info("cdp: launched local chrome", "url", wsURL)
	}

	br := rod.New().ControlURL(wsURL).Context(ctx)
	if err := br.Connect(); err != nil {
		return fmt.Errorf("cdp: connect: %w", err)
	}
	b.browser = br
	return nil
}

// OpenPage creates a stealth tab, navigates to url and waits for load.
func (b *Browser) OpenPage(ctx context.Context, url string) (*rod.Page, error) {
	b.mu.Lock()
	br := b.browser
	b.mu.Unlock()
	if br == nil {
		return nil, fmt.Errorf("cdp: no active browser")
	}

	page, err := stealth.Page(br)
	if err != nil {
		return nil, fmt.Errorf("cdp: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := page.Context(navCtx).Navigate(url); err != nil {
		page.Close()
		return nil, fmt.Errorf("cdp: navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.cfg.Logger.Warn("cdp: wait load timeout", "url", url, "error", err)
	}
	return page, nil
}

// Close shuts down Chrome.
func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.browser != nil {
		b.browser.Close()
		b.browser = nil
	}
	if b.lnch != nil {
		b.lnch.Cleanup()
		b.lnch = nil
	}
	return nil
}
