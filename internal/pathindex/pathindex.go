// Package pathindex provides a segment trie of URL paths that are excluded
// from in-flight call accounting.
//
// URLs are normalized before every operation: a leading "http://" or
// "https://" is stripped, the rest is split on "/", and every all-numeric
// segment is replaced by Wildcard. A rule registered as "users/:id" therefore
// covers "users/42" and "https://users/7".
//
// By default a node is an exclusion iff it has no children. Adding a longer
// path under an existing rule turns the shorter rule into a pass-through
// segment. New(WithExplicitTerminals()) keeps an explicit flag per node instead.
package pathindex

import (
	"sort"
	"strings"
)

// Wildcard replaces every all-numeric path segment.
const Wildcard = ":id"

var schemes = []string{"http://", "https://"}

type node struct {
	segment  string
	children map[string]*node
	terminal bool
}

func newNode(segment string) *node {
	return &node{segment: segment, children: make(map[string]*node)}
}

// Index is a trie of excluded URL paths.
// It is not safe for concurrent use.
type Index struct {
	root     *node
	explicit bool
}

// Option configures an Index.
type Option func(*Index)

// WithExplicitTerminals makes exclusion depend on a per-node flag set by Add
// instead of on the node being childless. Registering "a/b/c" then keeps
// "a/b" excluded.
func WithExplicitTerminals() Option {
	return func(ix *Index) { ix.explicit = true }
}

// New returns an empty Index.
func New(opts ...Option) *Index {
	ix := &Index{root: newNode("")}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Normalize returns the segments used to match url.
// An empty url yields no segments.
func Normalize(url string) []string {
	for _, scheme := range schemes {
		if strings.HasPrefix(url, scheme) {
			url = url[len(scheme):]
			break
		}
	}
	if url == "" {
		return nil
	}

	segments := strings.Split(url, "/")
	for i, s := range segments {
		if isInteger(s) {
			segments[i] = Wildcard
		}
	}
	return segments
}

// isInteger reports whether s is a base-10 integer with an optional sign.
func isInteger(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Add registers url as excluded. Adding the same path twice is a no-op.
func (ix *Index) Add(url string) {
	segments := Normalize(url)
	if len(segments) == 0 {
		return
	}

	n := ix.root
	for _, s := range segments {
		c, ok := n.children[s]
		if !ok {
			c = newNode(s)
			n.children[s] = c
		}
		n = c
	}
	n.terminal = true
}

// Remove unregisters url and prunes every ancestor left without children.
// Removing a path that was never added, or one that still has deeper rules
// below it, is a no-op.
func (ix *Index) Remove(url string) {
	segments := Normalize(url)
	if len(segments) == 0 {
		return
	}
	ix.remove(ix.root, segments)
}

// remove reports whether the child of parent named segments[0] was detached.
func (ix *Index) remove(parent *node, segments []string) bool {
	c, ok := parent.children[segments[0]]
	if !ok {
		return false
	}

	if len(segments) == 1 {
		if ix.explicit {
			if !c.terminal {
				return false
			}
			c.terminal = false
		}
		if len(c.children) > 0 {
			return false
		}
		delete(parent.children, c.segment)
		return true
	}

	if !ix.remove(c, segments[1:]) {
		return false
	}
	if len(c.children) > 0 || (ix.explicit && c.terminal) {
		return false
	}
	delete(parent.children, c.segment)
	return true
}

// Excluded reports whether url falls under a registered rule.
func (ix *Index) Excluded(url string) bool {
	_, ok := ix.Lookup(url)
	return ok
}

// Lookup returns the normalized rule that covers url. The walk stops at the
// first rule node it reaches, so deeper segments of url are never consulted.
func (ix *Index) Lookup(url string) (string, bool) {
	segments := Normalize(url)

	n := ix.root
	for i, s := range segments {
		c, ok := n.children[s]
		if !ok {
			return "", false
		}
		if ix.isRule(c) {
			return strings.Join(segments[:i+1], "/"), true
		}
		n = c
	}
	return "", false
}

func (ix *Index) isRule(n *node) bool {
	if ix.explicit {
		return n.terminal
	}
	return len(n.children) == 0
}

// Paths returns every registered rule in normalized form, sorted.
func (ix *Index) Paths() []string {
	var out []string
	var walk func(n *node, prefix []string)
	walk = func(n *node, prefix []string) {
		for _, c := range n.children {
			p := append(prefix[:len(prefix):len(prefix)], c.segment)
			if ix.isRule(c) {
				out = append(out, strings.Join(p, "/"))
			}
			walk(c, p)
		}
	}
	walk(ix.root, nil)
	sort.Strings(out)
	return out
}

// Len returns the number of registered rules.
func (ix *Index) Len() int {
	return len(ix.Paths())
}
