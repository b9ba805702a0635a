// Package extract turns a rendered document tree into compact, annotated
// plain text: headings, lists, quotes, media captions and link references,
// with boilerplate stripped, repeats suppressed and output budgets enforced.
package extract

import (
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

// Stats summarizes one extraction.
type Stats struct {
	Lines    int `json:"lines"`
	MaxDepth int `json:"maxDepth"`
	Items    int `json:"items"`
	// Fallback is set when the low-yield sweep ran.
	Fallback   bool `json:"fallback"`
	ShellLines int  `json:"shellLines"`
}

// Result is the output of Extract. Text is Lines joined by newlines.
type Result struct {
	Title     string `json:"title,omitempty"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
	Stats     Stats  `json:"stats"`
	Links     []Link `json:"links"`
	Lines     []Line `json:"lines,omitempty"`
}

// Extract runs one synchronous pass over doc. It never fails: a nil document
// or one without content yields an empty Result.
func Extract(doc dom.Document, opts Options) Result {
	cfg := opts.resolve()
	if doc == nil {
		return Result{Links: []Link{}}
	}

	roots, article := selectRoots(doc, cfg.selector)
	if article {
		cfg.widenForArticle()
	}
	s := newState(cfg)
	for _, r := range roots {
		s.mainRoots[r] = true
	}

	var shell []dom.Node
	if cfg.includeShell {
		shell = selectShellRoots(doc, roots)
		for _, r := range shell {
			s.shellRoots[r] = true
		}
		s.shellPass(shell)
	}

	start := len(s.lines)
	for _, r := range roots {
		s.walk(r, 0, 0, modeMain)
	}
	if len(roots) > 0 && !s.truncated && s.lowYield(start) {
		s.runFallback(roots, start)
	}

	s.registerAnchors(roots, 0)
	if cfg.includeShell {
		s.registerAnchors(shell, shellLinkBudget)
	}
	s.emitLinkTable()

	return s.result(doc)
}

// shellPass walks the shell roots under their own item budget. The budget is
// released afterwards so later main-mode lines are unaffected.
func (s *state) shellPass(roots []dom.Node) {
	if len(roots) == 0 {
		return
	}
	s.shellBudget = shellItemBudget
	for _, r := range roots {
		s.walk(r, 0, 0, modeShell)
	}
	s.shellBudget = 0
}

func (s *state) result(doc dom.Document) Result {
	texts := make([]string, len(s.lines))
	for i, l := range s.lines {
		texts[i] = l.Text
	}
	return Result{
		Title:     documentTitle(doc),
		Text:      strings.Join(texts, "\n"),
		Truncated: s.truncated,
		Stats: Stats{
			Lines:      len(s.lines),
			MaxDepth:   s.cfg.maxDepth,
			Items:      s.items,
			Fallback:   s.fallback,
			ShellLines: s.shellLines,
		},
		Links: s.links.list(),
		Lines: s.lines,
	}
}

func documentTitle(doc dom.Document) string {
	for _, t := range doc.Query("head title") {
		if title := collapseSpace(t.RawText()); title != "" {
			return title
		}
	}
	return ""
}
