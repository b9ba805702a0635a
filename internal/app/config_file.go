package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"

	"github.com/hyperifyio/pagetext/internal/extract"
	"github.com/hyperifyio/pagetext/internal/fetch"
)

// FileConfig represents the single-file configuration schema.
// Nested sections improve readability and map naturally to flags/env.
type FileConfig struct {
	Input     string `yaml:"input" json:"input"`
	Output    string `yaml:"output" json:"output"`
	OutputDir string `yaml:"outputDir" json:"outputDir"`
	Format    string `yaml:"format" json:"format"`
	Manifest  bool   `yaml:"manifest" json:"manifest"`
	BaseURL   string `yaml:"baseURL" json:"baseURL"`
	Verbose   bool   `yaml:"verbose" json:"verbose"`

	Extract struct {
		Selector      string `yaml:"selector" json:"selector"`
		MaxDepth      int    `yaml:"maxDepth" json:"maxDepth"`
		MaxItems      int    `yaml:"maxItems" json:"maxItems"`
		MaxListItems  int    `yaml:"maxListItems" json:"maxListItems"`
		MaxLineLength int    `yaml:"maxLineLength" json:"maxLineLength"`
		FilterMode    string `yaml:"filterMode" json:"filterMode"`
		Links         *bool  `yaml:"links" json:"links"`
		Dedupe        *bool  `yaml:"dedupe" json:"dedupe"`
		DedupeWindow  int    `yaml:"dedupeWindow" json:"dedupeWindow"`
		IncludeFooter bool   `yaml:"includeFooter" json:"includeFooter"`
		IncludeShell  bool   `yaml:"includeShell" json:"includeShell"`
	} `yaml:"extract" json:"extract"`

	Tokens struct {
		Model          string `yaml:"model" json:"model"`
		Max            int    `yaml:"max" json:"max"`
		ReservedOutput int    `yaml:"reservedOutput" json:"reservedOutput"`
	} `yaml:"tokens" json:"tokens"`

	Render struct {
		Enable     bool          `yaml:"enable" json:"enable"`
		ChromePath string        `yaml:"chromePath" json:"chromePath"`
		Timeout    time.Duration `yaml:"timeout" json:"timeout"`
		Settle     time.Duration `yaml:"settle" json:"settle"`
	} `yaml:"render" json:"render"`

	Fetch struct {
		UserAgent    string        `yaml:"ua" json:"ua"`
		Timeout      time.Duration `yaml:"timeout" json:"timeout"`
		MaxAttempts  int           `yaml:"maxAttempts" json:"maxAttempts"`
		IgnoreRobots bool          `yaml:"ignoreRobots" json:"ignoreRobots"`
	} `yaml:"fetch" json:"fetch"`

	Cache struct {
		Disable     bool          `yaml:"disable" json:"disable"`
		Dir         string        `yaml:"dir" json:"dir"`
		MaxAge      time.Duration `yaml:"maxAge" json:"maxAge"`
		Clear       bool          `yaml:"clear" json:"clear"`
		StrictPerms bool          `yaml:"strictPerms" json:"strictPerms"`
		MaxBytes    int64         `yaml:"maxBytes" json:"maxBytes"`
		MaxCount    int           `yaml:"maxCount" json:"maxCount"`
	} `yaml:"cache" json:"cache"`
}

// LoadConfigFile reads YAML or JSON into FileConfig.
func LoadConfigFile(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse json: %w", err)
		}
	default:
		// Try YAML then JSON
		if err := yaml.Unmarshal(b, &fc); err != nil {
			if jerr := json.Unmarshal(b, &fc); jerr != nil {
				return fc, fmt.Errorf("parse config: %v (yaml) / %v (json)", err, jerr)
			}
		}
	}
	return fc, nil
}

// ApplyFileConfig overlays values from FileConfig into cfg for any fields that
// are still unset or at their flag default. Flags and env have already been
// applied; this lets the file supply the remaining defaults.
func ApplyFileConfig(cfg *Config, fc FileConfig) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	if cfg.InputPath == "" && fc.Input != "" {
		cfg.InputPath = fc.Input
	}
	if cfg.OutputPath == "" && fc.Output != "" {
		cfg.OutputPath = fc.Output
	}
	if cfg.OutputDir == "" && fc.OutputDir != "" {
		cfg.OutputDir = fc.OutputDir
	}
	if unsetString(cfg.Format, def.Format) && fc.Format != "" {
		cfg.Format = fc.Format
	}
	if !cfg.Manifest && fc.Manifest {
		cfg.Manifest = true
	}
	if cfg.BaseURL == "" && fc.BaseURL != "" {
		cfg.BaseURL = fc.BaseURL
	}
	if !cfg.Verbose && fc.Verbose {
		cfg.Verbose = true
	}

	ex := fc.Extract
	if cfg.Selector == "" && ex.Selector != "" {
		cfg.Selector = ex.Selector
	}
	if unsetInt(cfg.MaxDepth, def.MaxDepth) && ex.MaxDepth > 0 {
		cfg.MaxDepth = ex.MaxDepth
	}
	if cfg.MaxItems == 0 && ex.MaxItems > 0 {
		cfg.MaxItems = ex.MaxItems
	}
	if cfg.MaxListItems == 0 && ex.MaxListItems > 0 {
		cfg.MaxListItems = ex.MaxListItems
	}
	if cfg.MaxLineLength == 0 && ex.MaxLineLength > 0 {
		cfg.MaxLineLength = ex.MaxLineLength
	}
	if unsetString(cfg.FilterMode, def.FilterMode) && ex.FilterMode != "" {
		cfg.FilterMode = ex.FilterMode
	}
	// links/dedupe default on; the file may only turn them off.
	if ex.Links != nil && !*ex.Links {
		cfg.NoLinks = true
	}
	if ex.Dedupe != nil && !*ex.Dedupe {
		cfg.NoDedupe = true
	}
	if unsetInt(cfg.DedupeWindow, def.DedupeWindow) && ex.DedupeWindow > 0 {
		cfg.DedupeWindow = ex.DedupeWindow
	}
	if !cfg.IncludeFooter && ex.IncludeFooter {
		cfg.IncludeFooter = true
	}
	if !cfg.IncludeShell && ex.IncludeShell {
		cfg.IncludeShell = true
	}

	if cfg.Model == "" && fc.Tokens.Model != "" {
		cfg.Model = fc.Tokens.Model
	}
	if cfg.MaxTokens == 0 && fc.Tokens.Max > 0 {
		cfg.MaxTokens = fc.Tokens.Max
	}
	if unsetInt(cfg.ReservedOutputTokens, def.ReservedOutputTokens) && fc.Tokens.ReservedOutput > 0 {
		cfg.ReservedOutputTokens = fc.Tokens.ReservedOutput
	}

	if !cfg.Render && fc.Render.Enable {
		cfg.Render = true
	}
	if cfg.ChromePath == "" && fc.Render.ChromePath != "" {
		cfg.ChromePath = fc.Render.ChromePath
	}
	if unsetDuration(cfg.RenderTimeout, def.RenderTimeout) && fc.Render.Timeout > 0 {
		cfg.RenderTimeout = fc.Render.Timeout
	}
	if unsetDuration(cfg.RenderSettle, def.RenderSettle) && fc.Render.Settle > 0 {
		cfg.RenderSettle = fc.Render.Settle
	}

	if unsetString(cfg.UserAgent, def.UserAgent) && fc.Fetch.UserAgent != "" {
		cfg.UserAgent = fc.Fetch.UserAgent
	}
	if unsetDuration(cfg.FetchTimeout, def.FetchTimeout) && fc.Fetch.Timeout > 0 {
		cfg.FetchTimeout = fc.Fetch.Timeout
	}
	if unsetInt(cfg.MaxAttempts, def.MaxAttempts) && fc.Fetch.MaxAttempts > 0 {
		cfg.MaxAttempts = fc.Fetch.MaxAttempts
	}
	if !cfg.IgnoreRobots && fc.Fetch.IgnoreRobots {
		cfg.IgnoreRobots = true
	}

	if !cfg.NoCache && fc.Cache.Disable {
		cfg.NoCache = true
	}
	if unsetString(cfg.CacheDir, def.CacheDir) && fc.Cache.Dir != "" {
		cfg.CacheDir = fc.Cache.Dir
	}
	if cfg.CacheMaxAge == 0 && fc.Cache.MaxAge > 0 {
		cfg.CacheMaxAge = fc.Cache.MaxAge
	}
	if !cfg.CacheClear && fc.Cache.Clear {
		cfg.CacheClear = true
	}
	if !cfg.CacheStrictPerms && fc.Cache.StrictPerms {
		cfg.CacheStrictPerms = true
	}
	if cfg.CacheMaxBytes == 0 && fc.Cache.MaxBytes > 0 {
		cfg.CacheMaxBytes = fc.Cache.MaxBytes
	}
	if cfg.CacheMaxCount == 0 && fc.Cache.MaxCount > 0 {
		cfg.CacheMaxCount = fc.Cache.MaxCount
	}
}

// ValidateConfig performs minimal schema validation for required settings.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.InputPath) == "" {
		return errors.New("config: input is required (file path, URL or -)")
	}
	switch cfg.Format {
	case FormatText, FormatJSON, FormatPDF:
	default:
		return fmt.Errorf("config: unknown format %q (want text, json or pdf)", cfg.Format)
	}
	if _, ok := extract.ParseFilterMode(cfg.FilterMode); !ok {
		return fmt.Errorf("config: unknown filter mode %q (want summary, compact or full)", cfg.FilterMode)
	}
	if cfg.MaxDepth < 0 || cfg.MaxItems < 0 || cfg.MaxListItems < 0 || cfg.MaxLineLength < 0 ||
		cfg.MaxTokens < 0 || cfg.CacheMaxBytes < 0 || cfg.CacheMaxCount < 0 {
		return errors.New("config: negative limits are not allowed")
	}
	if cfg.Render && !fetch.IsURL(cfg.InputPath) {
		return errors.New("config: -render needs an http(s) URL input")
	}
	return nil
}
