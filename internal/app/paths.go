package app

import (
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
)

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// deriveOutputPath returns a stable output path under dir for the given
// input. The filename uses a slug of the URL host and path (or the file's
// base name) and a short hash of the full input to avoid collisions.
func deriveOutputPath(dir, input, format string) string {
	name := input
	if u, err := url.Parse(input); err == nil && u.Host != "" {
		name = u.Host + u.Path
	} else if input != "-" {
		name = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	} else {
		name = "stdin"
	}
	short := computeSHA256Hex(input)[:12]
	return filepath.Join(dir, slugify(name)+"-"+short+formatExt(format))
}

func formatExt(format string) string {
	switch format {
	case FormatJSON:
		return ".json"
	case FormatPDF:
		return ".pdf"
	}
	return ".txt"
}

func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugRe.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	if s == "" {
		s = "page"
	}
	return s
}
