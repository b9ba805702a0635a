package extract

import (
	"strings"

	"github.com/hyperifyio/pagetext/internal/dom"
)

var cardMarkerAttrs = []string{"data-testid", "data-test", "data-test-id", "data-qa", "id"}

// isCard reports a small block-free tile that reads best as one line.
func (s *state) isCard(n dom.Node) bool {
	if s.isRoot(n) || !cardShaped(n) || hasBlockDescendant(n) {
		return false
	}
	text := collapseSpace(n.Text())
	return text != "" && runeLen(text) <= 2*s.cfg.workLine
}

func cardShaped(n dom.Node) bool {
	if n.Tag() == "article" {
		return true
	}
	switch strings.ToLower(dom.AttrValue(n, "role")) {
	case "article", "listitem":
		return true
	}
	for _, attr := range cardMarkerAttrs {
		v := strings.ToLower(dom.AttrValue(n, attr))
		if strings.Contains(v, "card") || strings.Contains(v, "model") {
			return true
		}
	}
	return false
}

func (s *state) emitCard(n dom.Node, mode walkMode) {
	s.emit(mode, candidate{text: compactLines(n.Text()), ref: s.anchorRef(s.anchorFor(n))})
}
