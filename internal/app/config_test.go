package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/pagetext/internal/extract"
)

func TestLoadConfigFile_YAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pagetext.yaml")
	content := `
input: https://example.com/docs
format: json
extract:
  selector: "#content"
  maxItems: 200
  filterMode: compact
  links: false
  includeShell: true
tokens:
  model: gpt-4o
render:
  enable: true
  timeout: 30s
fetch:
  ignoreRobots: true
cache:
  dir: /tmp/pt-cache
  maxAge: 24h
  maxCount: 100
`
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg := DefaultConfig()
	ApplyFileConfig(&cfg, fc)
	if cfg.InputPath != "https://example.com/docs" || cfg.Format != FormatJSON {
		t.Fatalf("input/format = %q / %q", cfg.InputPath, cfg.Format)
	}
	if cfg.Selector != "#content" || cfg.MaxItems != 200 || cfg.FilterMode != "compact" {
		t.Fatalf("extract section not applied: %+v", cfg)
	}
	if !cfg.NoLinks || !cfg.IncludeShell || cfg.NoDedupe {
		t.Fatalf("booleans: NoLinks=%v IncludeShell=%v NoDedupe=%v", cfg.NoLinks, cfg.IncludeShell, cfg.NoDedupe)
	}
	if cfg.Model != "gpt-4o" || !cfg.Render || cfg.RenderTimeout != 30*time.Second {
		t.Fatalf("tokens/render not applied: %+v", cfg)
	}
	if !cfg.IgnoreRobots {
		t.Fatalf("fetch.ignoreRobots not applied")
	}
	if cfg.CacheDir != "/tmp/pt-cache" || cfg.CacheMaxAge != 24*time.Hour || cfg.CacheMaxCount != 100 {
		t.Fatalf("cache not applied: %+v", cfg)
	}
}

func TestLoadConfigFile_JSON(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "pagetext.json")
	if err := os.WriteFile(p, []byte(`{"input":"page.html","extract":{"maxDepth":4}}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	fc, err := LoadConfigFile(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if fc.Input != "page.html" || fc.Extract.MaxDepth != 4 {
		t.Fatalf("unexpected: %+v", fc)
	}
}

func TestLoadConfigFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "broken.yaml")
	if err := os.WriteFile(p, []byte("extract: [unterminated"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfigFile(p); err == nil || !strings.Contains(err.Error(), "parse yaml") {
		t.Fatalf("expected parse yaml error, got %v", err)
	}
	if _, err := LoadConfigFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

// Flags that differ from their defaults are kept over file values.
func TestApplyFileConfig_FlagsWin(t *testing.T) {
	var fc FileConfig
	fc.Input = "file.html"
	fc.Format = "pdf"
	fc.Extract.MaxDepth = 2

	cfg := DefaultConfig()
	cfg.InputPath = "cli.html"
	cfg.MaxDepth = 8
	ApplyFileConfig(&cfg, fc)
	if cfg.InputPath != "cli.html" || cfg.MaxDepth != 8 {
		t.Fatalf("file overrode flags: %q %d", cfg.InputPath, cfg.MaxDepth)
	}
	if cfg.Format != FormatPDF {
		t.Fatalf("format at default should take file value, got %q", cfg.Format)
	}
}

func TestValidateConfig(t *testing.T) {
	ok := DefaultConfig()
	ok.InputPath = "page.html"
	if err := ValidateConfig(ok); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := map[string]func(*Config){
		"input":  func(c *Config) { c.InputPath = " " },
		"format": func(c *Config) { c.Format = "markdown" },
		"filter": func(c *Config) { c.FilterMode = "everything" },
		"limits": func(c *Config) { c.MaxItems = -1 },
		"render": func(c *Config) { c.Render = true },
	}
	for name, mutate := range cases {
		cfg := ok
		mutate(&cfg)
		if err := ValidateConfig(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestExtractOptions(t *testing.T) {
	cfg := DefaultConfig()
	if got, want := cfg.ExtractOptions(), extract.DefaultOptions(); got != want {
		t.Fatalf("default config should map to default options:\n got %+v\nwant %+v", got, want)
	}
	cfg.NoLinks = true
	cfg.FilterMode = "full"
	cfg.MaxItems = 10
	opts := cfg.ExtractOptions()
	if opts.Links || opts.FilterMode != extract.FilterFull || opts.MaxItems != 10 {
		t.Fatalf("unexpected options: %+v", opts)
	}
}
