package extract

import (
	"strconv"
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

// Link is one entry of the link table.
type Link struct {
	Ref  string `json:"ref"`
	Href string `json:"href"`
}

// linkRegistry interns URLs to ordinal reference tokens (L1, L2, ...) in
// first-seen order. A URL keeps its token for the whole extraction.
type linkRegistry struct {
	refs  map[string]string
	links []Link
}

func newLinkRegistry() *linkRegistry {
	return &linkRegistry{refs: make(map[string]string)}
}

// register returns the reference for url, allocating one on first sight.
// Empty, script, fragment-only, data: and blob: URLs get no reference.
func (r *linkRegistry) register(url string) string {
	url = strings.TrimSpace(url)
	if !linkable(url) {
		return ""
	}
	if ref, ok := r.refs[url]; ok {
		return ref
	}
	ref := "L" + strconv.Itoa(len(r.links)+1)
	r.refs[url] = ref
	r.links = append(r.links, Link{Ref: ref, Href: url})
	return ref
}

func (r *linkRegistry) len() int { return len(r.links) }

func (r *linkRegistry) list() []Link {
	out := make([]Link, len(r.links))
	copy(out, r.links)
	return out
}

func linkable(url string) bool {
	if url == "" || strings.HasPrefix(url, "#") {
		return false
	}
	lower := strings.ToLower(url)
	for _, scheme := range []string{"javascript:", "data:", "blob:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}

// anchorRef registers the target of anchor a. The raw attribute is screened
// first so that fragment-only and script links stay out even though the
// resolved form would be absolute.
func (s *state) anchorRef(a dom.Node) string {
	if !s.cfg.links || a == nil {
		return ""
	}
	raw, ok := a.Attr("href")
	if !ok || !linkable(strings.TrimSpace(raw)) {
		return ""
	}
	return s.links.register(a.Href())
}

// mediaRef registers a resolved media source.
func (s *state) mediaRef(src string) string {
	if !s.cfg.links {
		return ""
	}
	return s.links.register(src)
}

// registerAnchors interns every anchor under roots so the link table also
// lists targets that compact formatting folded away. limit <= 0 means all.
func (s *state) registerAnchors(roots []dom.Node, limit int) {
	if !s.cfg.links {
		return
	}
	added := 0
	for _, root := range roots {
		for _, a := range root.Query("a[href]") {
			if limit > 0 && added >= limit {
				return
			}
			before := s.links.len()
			s.anchorRef(a)
			if s.links.len() > before {
				added++
			}
		}
	}
}

// emitLinkTable appends the "### Links" section.
func (s *state) emitLinkTable() {
	if !s.cfg.links || s.links.len() == 0 {
		return
	}
	s.emit(modeMain, candidate{text: "Links", prefix: "### ", heading: true})
	for _, l := range s.links.links {
		s.emit(modeMain, candidate{text: "@" + l.Ref + " " + l.Href, verbatim: true, exempt: true})
	}
}
