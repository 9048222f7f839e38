// Package render owns the headless browser used for rendered fetches. The
// orchestration core never imports this package; it consumes the renderer
// only as a source.RenderFunc handed over at startup.
package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/use-agent/pricescope/config"
)

// Renderer manages the browser lifecycle and a reusable page pool. Safe for
// concurrent use.
type Renderer struct {
	browser     *rod.Browser
	pagePool    rod.Pool[rod.Page]
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// New launches a headless browser and initialises the page pool.
func New(cfg config.BrowserConfig) (*Renderer, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}

	// Flags that make headless Chrome look less like automation.
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("render: launch browser: %w", err)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("render: connect browser: %w", err)
	}

	return &Renderer{
		browser:  browser,
		pagePool: rod.NewPagePool(cfg.MaxPages),
		cfg:      cfg,
	}, nil
}

// Render navigates to the URL under the given user agent and returns the
// rendered HTML. It satisfies source.RenderFunc.
func (r *Renderer) Render(ctx context.Context, url, userAgent string) (string, error) {
	r.activePages.Add(1)
	defer r.activePages.Add(-1)

	page, err := r.pagePool.Get(func() (*rod.Page, error) {
		return r.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return "", fmt.Errorf("render: acquire page: %w", err)
	}

	// Always reset to about:blank before returning the tab, so the pool
	// never hands a previous query's DOM to the next caller.
	defer func() {
		if navErr := page.Navigate("about:blank"); navErr != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
		}
		r.pagePool.Put(page)
	}()

	// Stealth script and UA override only apply to navigations performed
	// after they are installed.
	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
	}
	if userAgent != "" {
		_ = proto.NetworkSetUserAgentOverride{UserAgent: userAgent}.Call(page)
	}

	p := page.Context(ctx)

	if err := p.Navigate(url); err != nil {
		return "", fmt.Errorf("render: navigate: %w", err)
	}
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM",
			"error", stableErr)
	}

	html, err := p.HTML()
	if err != nil {
		return "", fmt.Errorf("render: extract html: %w", err)
	}
	return html, nil
}

// ActivePages reports how many pool pages are currently in use.
func (r *Renderer) ActivePages() int {
	return int(r.activePages.Load())
}

// Close drains the page pool and kills the browser process. Call on
// graceful shutdown to prevent zombie Chrome processes.
func (r *Renderer) Close() {
	slog.Info("renderer shutting down: draining page pool")
	r.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	r.browser.MustClose()
	slog.Info("renderer shutdown complete")
}
