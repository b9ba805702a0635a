package app

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestDeriveOutputPath(t *testing.T) {
	cases := []struct {
		input, format, prefix, ext string
	}{
		{"https://Example.com/Docs/Intro?x=1", FormatText, "example-com-docs-intro-", ".txt"},
		{"/tmp/pages/Product Page.html", FormatJSON, "product-page-", ".json"},
		{"-", FormatPDF, "stdin-", ".pdf"},
	}
	for _, c := range cases {
		got := deriveOutputPath("out", c.input, c.format)
		if filepath.Dir(got) != "out" {
			t.Fatalf("%s: dir = %q", c.input, filepath.Dir(got))
		}
		base := filepath.Base(got)
		if !strings.HasPrefix(base, c.prefix) || !strings.HasSuffix(base, c.ext) {
			t.Fatalf("%s: got %q, want %s<hash>%s", c.input, base, c.prefix, c.ext)
		}
		if got != deriveOutputPath("out", c.input, c.format) {
			t.Fatalf("%s: path not stable", c.input)
		}
	}
	if deriveOutputPath("out", "https://a.example/x", FormatText) == deriveOutputPath("out", "https://a.example/x?y", FormatText) {
		t.Fatal("distinct inputs should not collide")
	}
}

func TestSlugify(t *testing.T) {
	if got := slugify("  !!  "); got != "page" {
		t.Fatalf("empty slug = %q", got)
	}
	if got := slugify(strings.Repeat("ab-", 60)); len(got) > 80 || strings.HasSuffix(got, "-") {
		t.Fatalf("long slug = %q", got)
	}
}
