// Package dom exposes a read-only view of a rendered document tree.
//
// The extraction core never touches a concrete tree library. It sees only the
// Node and Document capabilities below, so a statically parsed page, a page
// rendered by a headless browser, or a synthetic tree in a test all look the
// same to it.
package dom

import "strings"

// Node is one node of a rendered document. Element nodes carry a tag and
// attributes; text nodes carry only character data.
type Node interface {
	// IsElement reports whether the node is an element rather than text.
	IsElement() bool
	// Tag is the lower-case element name, or "" for text nodes.
	Tag() string
	// Attr returns the attribute value and whether it is present.
	Attr(name string) (string, bool)
	// Parent returns the parent element, or nil at the top of the tree.
	Parent() Node
	// ChildNodes returns element and text children in document order.
	ChildNodes() []Node
	// Children returns element children only.
	Children() []Node
	// RawText is the concatenated character data of the subtree.
	RawText() string
	// Text is the rendered text of the subtree: hidden content is left out
	// and block boundaries become newlines.
	Text() string
	// Hidden reports the effective computed visibility, including hiding
	// inherited from ancestors.
	Hidden() bool
	// Source is the currently active media URL for img/video, resolved to
	// an absolute URL when possible.
	Source() string
	// Href is the resolved link target of an anchor.
	Href() string
	// Matches reports whether the node matches a CSS selector. Invalid
	// selectors match nothing.
	Matches(selector string) bool
	// Query returns descendant elements matching selector in document order.
	Query(selector string) []Node
}

// Document is a queryable document snapshot.
type Document interface {
	Root() Node
	Body() Node
	Query(selector string) []Node
}

// AttrValue returns the trimmed attribute value or "".
func AttrValue(n Node, name string) string {
	if n == nil {
		return ""
	}
	v, _ := n.Attr(name)
	return strings.TrimSpace(v)
}

// HasAttr reports whether the attribute is present on n.
func HasAttr(n Node, name string) bool {
	if n == nil {
		return false
	}
	_, ok := n.Attr(name)
	return ok
}

// Closest returns n or its nearest ancestor matching selector.
func Closest(n Node, selector string) Node {
	for cur := n; cur != nil; cur = cur.Parent() {
		if cur.IsElement() && cur.Matches(selector) {
			return cur
		}
	}
	return nil
}

// ClosestWithin is Closest bounded by stop: stop and its ancestors are not
// considered.
func ClosestWithin(n, stop Node, selector string) Node {
	for cur := n; cur != nil && cur != stop; cur = cur.Parent() {
		if cur.IsElement() && cur.Matches(selector) {
			return cur
		}
	}
	return nil
}

// Contains reports whether a is b or an ancestor of b.
func Contains(a, b Node) bool {
	if a == nil {
		return false
	}
	for cur := b; cur != nil; cur = cur.Parent() {
		if cur == a {
			return true
		}
	}
	return false
}

// PrevElementSibling returns the element sibling immediately before n.
func PrevElementSibling(n Node) Node {
	if n == nil || n.Parent() == nil {
		return nil
	}
	var prev Node
	for _, c := range n.Parent().Children() {
		if c == n {
			return prev
		}
		prev = c
	}
	return nil
}
