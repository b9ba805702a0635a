package extract

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	bulletGlyphs    = "•·●▪◦‣∙⋅"
	bulletSeparator = " • "
	ellipsis        = "…"
)

var (
	bulletRunRe   = regexp.MustCompile(`\s*(?:[` + bulletGlyphs + `]\s*)+`)
	bulletCharsRe = regexp.MustCompile(`[` + bulletGlyphs + `]`)
	updatedRe     = regexp.MustCompile(`\bupdated\b[^` + bulletGlyphs + `]*`)

	styleRuleRe  = regexp.MustCompile(`\{\s*[a-zA-Z-]+\s*:[^{}]*\}`)
	stylePropRe  = regexp.MustCompile(`(?:^|[\s;{"'])(?:fill|stroke|stroke-width|stroke-linecap|stroke-linejoin|fill-rule|clip-rule|clip-path|fill-opacity|font-family|z-index|-webkit-[a-z-]+|-moz-[a-z-]+):`)
	hostObjectRe = regexp.MustCompile(`\b(?:document|window|this)\.[A-Za-z_$]`)
	keywordRe    = regexp.MustCompile(`(?i)\b(?:const|let|var|function)\b`)
)

// collapseSpace folds non-breaking spaces and whitespace runs into single
// spaces and trims the ends.
func collapseSpace(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f', '\u2009', '\u3000':
			return ' '
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// clean normalizes whitespace and rejects bullet-only fragments and text that
// looks like leaked script or stylesheet source.
func clean(s string) string {
	s = collapseSpace(s)
	if strings.TrimSpace(bulletCharsRe.ReplaceAllString(s, "")) == "" {
		return ""
	}
	if looksLikeCode(s) {
		return ""
	}
	return s
}

// looksLikeCode matches any whole-word const/let/var/function regardless of
// case, so prose such as "Let me know" is dropped as well.
func looksLikeCode(s string) bool {
	if strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/*") {
		return true
	}
	if strings.HasSuffix(s, ";") || strings.HasSuffix(s, "{") || strings.HasSuffix(s, "}") {
		return true
	}
	if strings.Contains(s, "=>") {
		return true
	}
	return styleRuleRe.MatchString(s) ||
		stylePropRe.MatchString(s) ||
		keywordRe.MatchString(s) ||
		hostObjectRe.MatchString(s)
}

// normalizeBullets collapses runs of bullet glyphs into one separator and
// trims bullets from both ends.
func normalizeBullets(s string) string {
	s = bulletRunRe.ReplaceAllString(s, bulletSeparator)
	return strings.Trim(s, " "+bulletGlyphs)
}

// fingerprint is the comparison-only form of a line used for duplicate
// suppression. It is never displayed.
func fingerprint(s string) string {
	s = norm.NFKC.String(strings.ToLower(s))
	s = collapseSpace(s)
	s = updatedRe.ReplaceAllString(s, "")
	s = bulletCharsRe.ReplaceAllString(s, " ")
	return strings.Join(strings.Fields(s), " ")
}

// truncateLine shortens s to at most max runes, ending with a single
// ellipsis. max <= 0 disables truncation.
func truncateLine(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	if max == 1 {
		return ellipsis
	}
	r := []rune(s)
	cut := strings.TrimRightFunc(string(r[:max-1]), unicode.IsSpace)
	return cut + ellipsis
}

// compactLines splits rendered text into cleaned segments, drops empties and
// consecutive case-insensitive repeats, and joins them with a bullet.
func compactLines(text string) string {
	var parts []string
	prev := ""
	for _, line := range strings.Split(text, "\n") {
		c := clean(line)
		if c == "" {
			continue
		}
		if strings.EqualFold(c, prev) {
			continue
		}
		parts = append(parts, c)
		prev = c
	}
	return normalizeBullets(strings.Join(parts, bulletSeparator))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
