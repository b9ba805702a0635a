// Package app wires input acquisition, extraction and output writing into
// the pagetext command.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/pagetext/internal/budget"
	"github.com/hyperifyio/pagetext/internal/cache"
	"github.com/hyperifyio/pagetext/internal/dom"
	"github.com/hyperifyio/pagetext/internal/extract"
	"github.com/hyperifyio/pagetext/internal/fetch"
	"github.com/hyperifyio/pagetext/internal/render"
	"github.com/hyperifyio/pagetext/internal/robots"
)

// ErrEmptyExtraction is returned when the page yields no output lines. The
// CLI maps it to a non-zero exit code.
var ErrEmptyExtraction = errors.New("extraction produced no text")

// maxBudgetPasses bounds re-extraction when fitting a token budget.
const maxBudgetPasses = 8

type pageFetcher interface {
	Get(ctx context.Context, url string) (*fetch.Page, error)
}

type pageRenderer interface {
	Render(ctx context.Context, url string) (*render.Page, error)
}

type robotsChecker interface {
	Check(ctx context.Context, pageURL string) (robots.Source, error)
}

type App struct {
	cfg       Config
	httpCache *cache.HTTPCache
	fetcher   pageFetcher
	renderer  pageRenderer
	robots    robotsChecker

	stdin  io.Reader
	stdout io.Writer
	now    func() time.Time
}

// source is raw page markup plus where it came from.
type source struct {
	html        []byte
	contentType string
	baseURL     string
	finalURL    string
	rendered    bool
	fromCache   bool
}

func New(cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, stdin: os.Stdin, stdout: os.Stdout, now: time.Now}

	if fetch.IsURL(cfg.InputPath) {
		if !cfg.NoCache && cfg.CacheDir != "" {
			// Apply cache invalidation controls; failures only cost a refetch.
			if cfg.CacheClear {
				if err := cache.ClearDir(cfg.CacheDir); err != nil {
					log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
				}
			}
			if cfg.CacheMaxAge > 0 {
				if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
					log.Warn().Err(err).Msg("cache purge failed")
				} else if n > 0 {
					log.Debug().Int("removed", n).Msg("purged stale cache entries")
				}
			}
			a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
		}
		a.fetcher = &fetch.Client{
			HTTPClient:        newHTTPClient(cfg.FetchTimeout),
			UserAgent:         cfg.UserAgent,
			MaxAttempts:       cfg.MaxAttempts,
			PerRequestTimeout: cfg.FetchTimeout,
			Cache:             a.httpCache,
			BypassCache:       cfg.CacheClear,
			RedirectMaxHops:   5,
			MaxConcurrent:     1,
		}
		if !cfg.IgnoreRobots {
			a.robots = &robots.Manager{
				HTTPClient:  newHTTPClient(cfg.FetchTimeout),
				Cache:       a.httpCache,
				UserAgent:   cfg.UserAgent,
				EntryExpiry: 30 * time.Minute,
			}
		}
		if cfg.Render {
			a.renderer = render.New(render.Options{
				UserAgent:  cfg.UserAgent,
				ChromePath: cfg.ChromePath,
				Headless:   true,
				Timeout:    cfg.RenderTimeout,
				Settle:     cfg.RenderSettle,
			})
		}
	}
	return a, nil
}

// Run extracts the configured input and writes it in the configured format.
func (a *App) Run(ctx context.Context) error {
	doc, err := a.Process(ctx)
	if err != nil {
		return err
	}
	if len(doc.Lines) == 0 {
		log.Warn().Str("input", a.cfg.InputPath).Msg("no text extracted")
		return ErrEmptyExtraction
	}
	return a.write(doc)
}

// Process acquires, parses and extracts the input without writing anything.
func (a *App) Process(ctx context.Context) (*Document, error) {
	src, err := a.acquire(ctx)
	if err != nil {
		return nil, err
	}
	tree, err := parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	res, limit := a.extract(tree)
	tokens := budget.EstimateTokens(res.Text)
	doc := &Document{
		Result: res,
		Manifest: Manifest{
			Input:       a.cfg.InputPath,
			FinalURL:    src.finalURL,
			Rendered:    src.rendered,
			FromCache:   src.fromCache,
			SHA256:      computeSHA256Hex(res.Text),
			Chars:       len([]rune(res.Text)),
			Tokens:      tokens,
			TokenBudget: limit,
			Model:       a.cfg.Model,
			Generator:   Generator(),
			GeneratedAt: a.now().UTC(),
		},
	}
	log.Info().
		Str("input", a.cfg.InputPath).
		Int("lines", res.Stats.Lines).
		Int("items", res.Stats.Items).
		Int("links", len(res.Links)).
		Int("shell_lines", res.Stats.ShellLines).
		Bool("fallback", res.Stats.Fallback).
		Bool("truncated", res.Truncated).
		Int("tokens", tokens).
		Bool("rendered", src.rendered).
		Bool("from_cache", src.fromCache).
		Msg("extracted")
	return doc, nil
}

func (a *App) acquire(ctx context.Context) (source, error) {
	in := strings.TrimSpace(a.cfg.InputPath)
	switch {
	case in == "-":
		b, err := io.ReadAll(a.stdin)
		if err != nil {
			return source{}, fmt.Errorf("read stdin: %w", err)
		}
		return source{html: b, baseURL: a.cfg.BaseURL}, nil
	case fetch.IsURL(in):
		return a.acquireURL(ctx, in)
	default:
		b, err := os.ReadFile(in)
		if err != nil {
			return source{}, fmt.Errorf("read input: %w", err)
		}
		return source{html: b, baseURL: a.cfg.BaseURL}, nil
	}
}

func (a *App) acquireURL(ctx context.Context, u string) (source, error) {
	if a.robots != nil {
		src, err := a.robots.Check(ctx, u)
		if err != nil {
			return source{}, fmt.Errorf("robots %s: %w", u, err)
		}
		log.Debug().Str("url", u).Stringer("source", src).Msg("robots.txt allows fetch")
	}
	if a.renderer != nil {
		p, err := a.renderer.Render(ctx, u)
		if err == nil {
			return source{
				html:        []byte(p.HTML),
				contentType: "text/html; charset=utf-8",
				baseURL:     p.FinalURL,
				finalURL:    p.FinalURL,
				rendered:    true,
			}, nil
		}
		if ctx.Err() != nil {
			return source{}, err
		}
		log.Warn().Err(err).Str("url", u).Msg("render failed; falling back to plain fetch")
	}
	if a.fetcher == nil {
		return source{}, errors.New("fetch client not configured")
	}
	p, err := a.fetcher.Get(ctx, u)
	if err != nil {
		return source{}, fmt.Errorf("fetch %s: %w", u, err)
	}
	a.enforceCacheLimits()
	final := p.FinalURL
	if final == "" {
		final = u
	}
	return source{
		html:        p.Body,
		contentType: p.ContentType,
		baseURL:     final,
		finalURL:    final,
		fromCache:   p.FromCache,
	}, nil
}

func (a *App) enforceCacheLimits() {
	if a.httpCache == nil || (a.cfg.CacheMaxBytes <= 0 && a.cfg.CacheMaxCount <= 0) {
		return
	}
	if n, err := cache.EnforceHTTPCacheLimits(a.httpCache.Dir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxCount); err != nil {
		log.Warn().Err(err).Msg("cache limit enforcement failed")
	} else if n > 0 {
		log.Debug().Int("evicted", n).Msg("evicted cache entries")
	}
}

// parse decodes src to UTF-8 using its content type and any <meta charset>,
// then builds the document tree.
func parse(src source) (*dom.HTMLDocument, error) {
	r, err := charset.NewReader(bytes.NewReader(src.html), src.contentType)
	if err != nil {
		r = bytes.NewReader(src.html)
	}
	return dom.Parse(r, src.baseURL)
}

// extract runs the extraction, shrinking the item cap until the text fits
// the token budget. It returns the result and the budget applied (0 when
// none).
func (a *App) extract(doc dom.Document) (extract.Result, int) {
	opts := a.cfg.ExtractOptions()
	res := extract.NewEngine(opts).Extract(doc)
	limit := a.tokenBudget()
	if limit <= 0 {
		return res, 0
	}
	for i := 0; i < maxBudgetPasses && budget.EstimateTokens(res.Text) > limit; i++ {
		n := budget.LinesWithinTokens(lineTexts(res.Lines), limit)
		if opts.MaxItems > 0 && n >= opts.MaxItems {
			n = opts.MaxItems - 1
		}
		if n < 1 {
			n = 1
		}
		if n == opts.MaxItems {
			break
		}
		opts.MaxItems = n
		res = extract.NewEngine(opts).Extract(doc)
	}
	if budget.EstimateTokens(res.Text) > limit {
		log.Warn().Int("budget", limit).Msg("output still exceeds token budget")
	}
	return res, limit
}

// tokenBudget is MaxTokens, or the input room left in Model's context after
// reserving output tokens and headroom.
func (a *App) tokenBudget() int {
	if a.cfg.MaxTokens > 0 {
		return a.cfg.MaxTokens
	}
	if strings.TrimSpace(a.cfg.Model) == "" {
		return 0
	}
	return budget.RemainingContextWithHeadroom(a.cfg.Model, a.cfg.ReservedOutputTokens, 0)
}

func lineTexts(lines []extract.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
