package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvToConfig populates unset fields of cfg from PAGETEXT_* environment
// variables. Fields that differ from DefaultConfig were set explicitly and
// take precedence over env.
func ApplyEnvToConfig(cfg *Config) {
	if cfg == nil {
		return
	}
	def := DefaultConfig()

	setString := func(dst *string, defVal string, keys ...string) {
		if !unsetString(*dst, defVal) {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.Format, def.Format, "PAGETEXT_FORMAT")
	setString(&cfg.BaseURL, def.BaseURL, "PAGETEXT_BASE_URL")
	setString(&cfg.OutputDir, def.OutputDir, "PAGETEXT_OUTPUT_DIR")
	setString(&cfg.Selector, def.Selector, "PAGETEXT_SELECTOR")
	setString(&cfg.FilterMode, def.FilterMode, "PAGETEXT_FILTER_MODE")
	setString(&cfg.Model, def.Model, "PAGETEXT_MODEL")
	setString(&cfg.UserAgent, def.UserAgent, "PAGETEXT_USER_AGENT")
	// CHROME_PATH is the name chromedp users commonly already export.
	setString(&cfg.ChromePath, def.ChromePath, "PAGETEXT_CHROME_PATH", "CHROME_PATH")
	setString(&cfg.CacheDir, def.CacheDir, "PAGETEXT_CACHE_DIR")

	setInt := func(dst *int, defVal int, key string) {
		if !unsetInt(*dst, defVal) {
			return
		}
		if n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil && n >= 0 {
			*dst = n
		}
	}
	setInt(&cfg.MaxDepth, def.MaxDepth, "PAGETEXT_MAX_DEPTH")
	setInt(&cfg.MaxItems, def.MaxItems, "PAGETEXT_MAX_ITEMS")
	setInt(&cfg.MaxListItems, def.MaxListItems, "PAGETEXT_MAX_LIST_ITEMS")
	setInt(&cfg.MaxLineLength, def.MaxLineLength, "PAGETEXT_MAX_LINE")
	setInt(&cfg.DedupeWindow, def.DedupeWindow, "PAGETEXT_DEDUPE_WINDOW")
	setInt(&cfg.MaxTokens, def.MaxTokens, "PAGETEXT_MAX_TOKENS")
	setInt(&cfg.CacheMaxCount, def.CacheMaxCount, "PAGETEXT_CACHE_MAX_COUNT")

	if cfg.CacheMaxBytes == 0 {
		if n, err := strconv.ParseInt(strings.TrimSpace(os.Getenv("PAGETEXT_CACHE_MAX_BYTES")), 10, 64); err == nil && n > 0 {
			cfg.CacheMaxBytes = n
		}
	}

	setDuration := func(dst *time.Duration, defVal time.Duration, key string) {
		if !unsetDuration(*dst, defVal) {
			return
		}
		if s := os.Getenv(key); s != "" {
			if d, err := time.ParseDuration(s); err == nil {
				*dst = d
			}
		}
	}
	setDuration(&cfg.CacheMaxAge, def.CacheMaxAge, "PAGETEXT_CACHE_MAX_AGE")
	setDuration(&cfg.RenderTimeout, def.RenderTimeout, "PAGETEXT_RENDER_TIMEOUT")
	setDuration(&cfg.FetchTimeout, def.FetchTimeout, "PAGETEXT_FETCH_TIMEOUT")

	// Booleans
	setBool := func(dst *bool, envKey string) {
		if *dst {
			return
		}
		switch strings.ToLower(strings.TrimSpace(os.Getenv(envKey))) {
		case "1", "true", "yes", "on":
			*dst = true
		}
	}
	setBool(&cfg.Render, "PAGETEXT_RENDER")
	setBool(&cfg.Manifest, "PAGETEXT_MANIFEST")
	setBool(&cfg.IncludeShell, "PAGETEXT_INCLUDE_SHELL")
	setBool(&cfg.IncludeFooter, "PAGETEXT_INCLUDE_FOOTER")
	setBool(&cfg.NoLinks, "PAGETEXT_NO_LINKS")
	setBool(&cfg.NoDedupe, "PAGETEXT_NO_DEDUPE")
	setBool(&cfg.IgnoreRobots, "PAGETEXT_IGNORE_ROBOTS")
	setBool(&cfg.NoCache, "PAGETEXT_NO_CACHE")
	setBool(&cfg.CacheClear, "PAGETEXT_CACHE_CLEAR")
	setBool(&cfg.CacheStrictPerms, "PAGETEXT_CACHE_STRICT_PERMS")
	setBool(&cfg.Verbose, "PAGETEXT_VERBOSE")
}
