package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pagetext/internal/app"
)

// cliOptions are flags that steer config loading rather than the run itself.
type cliOptions struct {
	configPath  string
	envFiles    string
	showVersion bool
}

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(exitCode(err))
	}
	if opts.showVersion {
		fmt.Printf("pagetext %s (commit %s, built %s)\n", app.BuildVersion, app.BuildCommit, app.BuildDate)
		return
	}

	cfg, err = loadConfig(cfg, opts)
	if err != nil {
		log.Error().Err(err).Msg("config")
		os.Exit(1)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	os.Exit(exitCode(run(ctx, cfg)))
}

func parseFlags(args []string, stderr io.Writer) (app.Config, cliOptions, error) {
	cfg := app.DefaultConfig()
	var opts cliOptions

	fs := flag.NewFlagSet("pagetext", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: pagetext [flags] <file|URL|->\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&cfg.InputPath, "input", "", "Input HTML file, http(s) URL, or - for stdin (may also be given as the first argument)")
	fs.StringVar(&cfg.OutputPath, "output", "", "Output file; empty or - writes to stdout")
	fs.StringVar(&cfg.OutputDir, "output.dir", "", "Directory for an output file named after the input (used when -output is empty)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "Output format: text, json or pdf")
	fs.BoolVar(&cfg.Manifest, "manifest", false, "Write a .manifest.json sidecar next to text/pdf output files")
	fs.StringVar(&cfg.BaseURL, "base", "", "Base URL for resolving relative links in file or stdin input")

	fs.StringVar(&cfg.Selector, "selector", "", "CSS selector for the content root; falls back to automatic selection when nothing matches")
	fs.IntVar(&cfg.MaxDepth, "max.depth", cfg.MaxDepth, "Maximum structural depth below each root")
	fs.IntVar(&cfg.MaxItems, "max.items", 0, "Maximum output lines (0 = unbounded)")
	fs.IntVar(&cfg.MaxListItems, "max.listItems", 0, "Maximum items walked per list (0 = unbounded)")
	fs.IntVar(&cfg.MaxLineLength, "max.line", 0, "Maximum characters per line, at least 40 (0 = unbounded)")
	fs.StringVar(&cfg.FilterMode, "filter", cfg.FilterMode, "Filter widget rendering: summary, compact or full")
	fs.BoolVar(&cfg.NoLinks, "no-links", false, "Disable link references and the link table")
	fs.BoolVar(&cfg.NoDedupe, "no-dedupe", false, "Disable duplicate line suppression")
	fs.IntVar(&cfg.DedupeWindow, "dedupe.window", cfg.DedupeWindow, "Number of recent lines remembered for duplicate suppression")
	fs.BoolVar(&cfg.IncludeFooter, "footer", false, "Include page footers")
	fs.BoolVar(&cfg.IncludeShell, "shell", false, "Also summarize navigation, header and sidebar regions")

	fs.StringVar(&cfg.Model, "model", "", "Fit output into this model's context window (e.g. gpt-4o)")
	fs.IntVar(&cfg.MaxTokens, "max.tokens", 0, "Fit output into this many estimated tokens (overrides -model)")
	fs.IntVar(&cfg.ReservedOutputTokens, "reserve.tokens", cfg.ReservedOutputTokens, "Tokens reserved for the model's answer when using -model")

	fs.BoolVar(&cfg.Render, "render", false, "Render URL input in headless Chrome before extraction")
	fs.StringVar(&cfg.ChromePath, "chrome", "", "Path to the Chrome/Chromium binary")
	fs.DurationVar(&cfg.RenderTimeout, "render.timeout", cfg.RenderTimeout, "Overall timeout for a rendered page load")
	fs.DurationVar(&cfg.RenderSettle, "render.settle", cfg.RenderSettle, "Extra wait after the page is ready for scripts to finish")
	fs.StringVar(&cfg.UserAgent, "ua", cfg.UserAgent, "User-Agent for fetching and rendering")
	fs.DurationVar(&cfg.FetchTimeout, "fetch.timeout", cfg.FetchTimeout, "Per-request timeout for plain fetches")
	fs.IntVar(&cfg.MaxAttempts, "fetch.attempts", cfg.MaxAttempts, "Attempts per fetch including retries of transient failures")
	fs.BoolVar(&cfg.IgnoreRobots, "robots.ignore", false, "Fetch URLs even when robots.txt disallows them")

	fs.BoolVar(&cfg.NoCache, "no-cache", false, "Disable the on-disk HTTP cache")
	fs.StringVar(&cfg.CacheDir, "cache.dir", cfg.CacheDir, "Cache directory path")
	fs.DurationVar(&cfg.CacheMaxAge, "cache.maxAge", 0, "Max age for cache entries before purge (e.g. 24h); 0 disables")
	fs.BoolVar(&cfg.CacheClear, "cache.clear", false, "Clear cache directory before run")
	fs.BoolVar(&cfg.CacheStrictPerms, "cache.strictPerms", false, "Restrict cache permissions (0700 dirs, 0600 files)")
	fs.Int64Var(&cfg.CacheMaxBytes, "cache.maxBytes", 0, "Evict least recently used entries above this total size (0 disables)")
	fs.IntVar(&cfg.CacheMaxCount, "cache.maxCount", 0, "Evict least recently used entries above this count (0 disables)")

	fs.BoolVar(&cfg.Verbose, "v", false, "Verbose logging")
	fs.StringVar(&opts.configPath, "config", os.Getenv("PAGETEXT_CONFIG"), "YAML or JSON config file")
	fs.StringVar(&opts.envFiles, "env", ".env", "Comma-separated dotenv files to load (missing files are ignored)")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cfg, opts, err
	}
	if cfg.InputPath == "" && fs.NArg() > 0 {
		cfg.InputPath = fs.Arg(0)
	}
	return cfg, opts, nil
}

// loadConfig layers env and the optional config file under the flags, then
// validates the result.
func loadConfig(cfg app.Config, opts cliOptions) (app.Config, error) {
	var files []string
	for _, p := range strings.Split(opts.envFiles, ",") {
		if p = strings.TrimSpace(p); p != "" {
			files = append(files, p)
		}
	}
	if err := app.LoadEnvFiles(files...); err != nil {
		return cfg, fmt.Errorf("load env: %w", err)
	}
	app.ApplyEnvToConfig(&cfg)
	if path := strings.TrimSpace(opts.configPath); path != "" {
		fc, err := app.LoadConfigFile(path)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		app.ApplyFileConfig(&cfg, fc)
	}
	if err := app.ValidateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// exitCode maps run errors: 0 on success, 2 when the page yielded no text,
// 1 for any other failure.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, app.ErrEmptyExtraction):
		log.Error().Err(err).Msg("run failed")
		return 2
	default:
		log.Error().Err(err).Msg("run failed")
		return 1
	}
}

func run(ctx context.Context, cfg app.Config) error {
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	return a.Run(ctx)
}
