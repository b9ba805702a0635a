package app

import (
	"time"

	"github.com/hyperifyio/pagetext/internal/extract"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

// Config holds runtime configuration for the application.
type Config struct {
	// InputPath is a file path, "-" for stdin, or an http(s) URL.
	InputPath string
	// OutputPath is a file path; empty or "-" writes to stdout unless
	// OutputDir is set.
	OutputPath string
	// OutputDir receives a file named after the input when OutputPath is empty.
	OutputDir string
	Format    string
	// Manifest writes a JSON sidecar next to text and PDF output files.
	Manifest bool
	// BaseURL resolves relative links for file and stdin input.
	BaseURL string

	// Extraction
	Selector      string
	MaxDepth      int
	MaxItems      int
	MaxListItems  int
	MaxLineLength int
	FilterMode    string
	NoLinks       bool
	NoDedupe      bool
	DedupeWindow  int
	IncludeFooter bool
	IncludeShell  bool

	// Token budget
	Model                string
	MaxTokens            int
	ReservedOutputTokens int

	// Acquisition
	Render        bool
	ChromePath    string
	RenderTimeout time.Duration
	RenderSettle  time.Duration
	UserAgent     string
	FetchTimeout  time.Duration
	MaxAttempts   int
	IgnoreRobots  bool

	// Cache
	NoCache          bool
	CacheDir         string
	CacheMaxAge      time.Duration
	CacheClear       bool
	CacheStrictPerms bool
	CacheMaxBytes    int64
	CacheMaxCount    int

	Verbose bool
}

const (
	defaultUserAgent = "pagetext/1.0 (+https://github.com/hyperifyio/pagetext)"
	defaultCacheDir  = ".pagetext-cache"
)

// DefaultConfig returns the values the CLI flags start from. A field still
// equal to its default counts as unset when env and file config are applied.
func DefaultConfig() Config {
	opts := extract.DefaultOptions()
	return Config{
		Format:        FormatText,
		MaxDepth:      opts.MaxDepth,
		FilterMode:    string(opts.FilterMode),
		DedupeWindow:  opts.DedupeWindow,
		RenderTimeout: 45 * time.Second,
		RenderSettle:  2 * time.Second,
		UserAgent:     defaultUserAgent,
		FetchTimeout:  15 * time.Second,
		MaxAttempts:   2,
		CacheDir:      defaultCacheDir,

		ReservedOutputTokens: 2048,
	}
}

// ExtractOptions maps the extraction settings onto extract.Options.
func (c Config) ExtractOptions() extract.Options {
	mode, _ := extract.ParseFilterMode(c.FilterMode)
	return extract.Options{
		Selector:      c.Selector,
		MaxDepth:      c.MaxDepth,
		MaxItems:      c.MaxItems,
		MaxListItems:  c.MaxListItems,
		MaxLineLength: c.MaxLineLength,
		FilterMode:    mode,
		Links:         !c.NoLinks,
		Dedupe:        !c.NoDedupe,
		DedupeWindow:  c.DedupeWindow,
		IncludeFooter: c.IncludeFooter,
		IncludeShell:  c.IncludeShell,
	}
}

func unsetString(v, def string) bool { return v == "" || v == def }

func unsetInt(v, def int) bool { return v == 0 || v == def }

func unsetDuration(v, def time.Duration) bool { return v == 0 || v == def }
