package render

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hyperifyio/pagetext/internal/dom"
)

func TestNew_FillsDefaults(t *testing.T) {
	r := New(Options{Settle: -time.Second})
	def := DefaultOptions()
	if r.Options.UserAgent != def.UserAgent {
		t.Fatalf("user agent = %q", r.Options.UserAgent)
	}
	if r.Options.Width != def.Width || r.Options.Height != def.Height {
		t.Fatalf("window = %dx%d", r.Options.Width, r.Options.Height)
	}
	if r.Options.Timeout != def.Timeout {
		t.Fatalf("timeout = %v", r.Options.Timeout)
	}
	if r.Options.Settle != 0 {
		t.Fatalf("negative settle should clamp to 0, got %v", r.Options.Settle)
	}
	if r.Options.Headless {
		t.Fatal("explicit Options keep Headless as given")
	}
}

func TestAllocatorOptions(t *testing.T) {
	base := len(New(Options{}).allocatorOptions())
	full := len(New(Options{Headless: true, ChromePath: "/usr/bin/chromium"}).allocatorOptions())
	if full != base+2 {
		t.Fatalf("headless and exec path should add two options: base=%d full=%d", base, full)
	}
}

func TestHeaders(t *testing.T) {
	h := New(Options{AcceptLanguage: "fi"}).headers()
	if h["Accept-Language"] != "fi" {
		t.Fatalf("Accept-Language = %v", h["Accept-Language"])
	}
	if _, ok := h["Accept"]; !ok {
		t.Fatal("missing Accept header")
	}
}

func TestAnnotateScript_UsesDomAttributes(t *testing.T) {
	for _, attr := range []string{dom.AttrComputedHidden, dom.AttrActiveSource} {
		if !strings.Contains(annotateScript, `"`+attr+`"`) {
			t.Fatalf("script does not set %s", attr)
		}
	}
	if !strings.Contains(annotateScript, "getComputedStyle") || !strings.Contains(annotateScript, "currentSrc") {
		t.Fatal("script should read computed style and currentSrc")
	}
}

func TestRender_EmptyURL(t *testing.T) {
	if _, err := New(DefaultOptions()).Render(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty url")
	}
}
