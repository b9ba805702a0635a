package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkRegistry(t *testing.T) {
	r := newLinkRegistry()

	assert.Equal(t, "L1", r.register("https://a.example/"))
	assert.Equal(t, "L2", r.register(" https://b.example/ "))
	assert.Equal(t, "L1", r.register("https://a.example/"))

	for _, bad := range []string{"", "   ", "#top", "javascript:void(0)", "JavaScript:alert(1)", "data:image/png;base64,xx", "blob:https://a.example/1"} {
		assert.Empty(t, r.register(bad), bad)
	}

	assert.Equal(t, []Link{
		{Ref: "L1", Href: "https://a.example/"},
		{Ref: "L2", Href: "https://b.example/"},
	}, r.list())
}

func TestRegisterAnchorsLimit(t *testing.T) {
	doc := parse(t, `<body><nav><a href="/1">1</a><a href="/2">2</a><a href="/1">again</a><a href="/3">3</a></nav></body>`)
	s := newState(DefaultOptions().resolve())

	s.registerAnchors(doc.Query("nav"), 2)

	assert.Equal(t, []Link{
		{Ref: "L1", Href: "https://example.com/1"},
		{Ref: "L2", Href: "https://example.com/2"},
	}, s.links.list())
}
