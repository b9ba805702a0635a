// Package render loads a page in headless Chrome and returns its rendered
// HTML, annotated with the computed visibility and active media source of
// every element so the dom package can read them without a live browser.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/hyperifyio/pagetext/internal/dom"
)

// Options configures a Renderer.
type Options struct {
	UserAgent      string
	AcceptLanguage string
	// ChromePath overrides the browser binary lookup.
	ChromePath string
	Headless   bool
	Width      int
	Height     int
	// Timeout bounds one Render call, browser start included.
	Timeout time.Duration
	// Settle is how long to wait after the body is ready for scripts to
	// finish populating the page.
	Settle time.Duration
}

// DefaultOptions returns settings suitable for most pages.
func DefaultOptions() Options {
	return Options{
		UserAgent:      "pagetext/1.0 (+https://github.com/hyperifyio/pagetext)",
		AcceptLanguage: "en-US,en;q=0.9",
		Headless:       true,
		Width:          1920,
		Height:         1080,
		Timeout:        45 * time.Second,
		Settle:         2 * time.Second,
	}
}

// Page is a rendered snapshot.
type Page struct {
	HTML     string
	FinalURL string
	Title    string
	// Hidden is the number of elements annotated as not rendered.
	Hidden int
}

// Renderer starts a fresh browser per call. It holds no state between calls
// and is safe for concurrent use.
type Renderer struct {
	Options Options
}

// New returns a Renderer with zero fields of opts filled from DefaultOptions.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = def.UserAgent
	}
	if strings.TrimSpace(opts.AcceptLanguage) == "" {
		opts.AcceptLanguage = def.AcceptLanguage
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = def.Width, def.Height
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}
	return &Renderer{Options: opts}
}

func (r *Renderer) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoFirstRun,
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-service-autorun", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.Flag("use-mock-keychain", true),
		chromedp.UserAgent(r.Options.UserAgent),
		chromedp.WindowSize(r.Options.Width, r.Options.Height),
	}
	if r.Options.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	}
	if r.Options.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(r.Options.ChromePath))
	}
	return opts
}

func (r *Renderer) headers() network.Headers {
	return network.Headers(map[string]interface{}{
		"Accept":          "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8",
		"Accept-Language": r.Options.AcceptLanguage,
	})
}

// Render navigates to targetURL, waits for the body and the settle delay,
// annotates the live tree and returns its outer HTML.
func (r *Renderer) Render(ctx context.Context, targetURL string) (*Page, error) {
	if strings.TrimSpace(targetURL) == "" {
		return nil, errors.New("render: empty url")
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, r.allocatorOptions()...)
	defer allocCancel()

	ctx, cancel := context.WithTimeout(allocCtx, r.Options.Timeout)
	defer cancel()
	ctx, cancel = chromedp.NewContext(ctx)
	defer cancel()

	var p Page
	actions := []chromedp.Action{
		network.Enable(),
		network.SetExtraHTTPHeaders(r.headers()),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if r.Options.Settle > 0 {
		actions = append(actions, chromedp.Sleep(r.Options.Settle))
	}
	actions = append(actions,
		chromedp.Evaluate(annotateScript, &p.Hidden),
		chromedp.Title(&p.Title),
		chromedp.OuterHTML("html", &p.HTML, chromedp.ByQuery),
		chromedp.Location(&p.FinalURL),
	)
	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("render %s: %w", targetURL, err)
	}
	if p.FinalURL == "" {
		p.FinalURL = targetURL
	}
	return &p, nil
}

// annotateScript marks elements whose computed style hides them and records
// the source each img/video actually loaded. It returns the hidden count.
var annotateScript = fmt.Sprintf(`(() => {
	const hiddenAttr = %q, srcAttr = %q;
	let hidden = 0;
	for (const el of document.querySelectorAll('body *')) {
		const cs = window.getComputedStyle(el);
		if (cs.display === 'none' || cs.visibility === 'hidden' || cs.visibility === 'collapse') {
			el.setAttribute(hiddenAttr, '1');
			hidden++;
		}
		if ((el.tagName === 'IMG' || el.tagName === 'VIDEO') && el.currentSrc) {
			el.setAttribute(srcAttr, el.currentSrc);
		}
	}
	return hidden;
})()`, dom.AttrComputedHidden, dom.AttrActiveSource)
