package htmlmd

import (
	"fmt"

	"github.com/hazyhaar/docmd/idgen"
)

type placeholderKind string

const (
	kindTable placeholderKind = "tbl"
	kindMath  placeholderKind = "math"
	kindImage placeholderKind = "img"
)

type placeholderEntry struct {
	token    string
	kind     placeholderKind
	markdown string
}

// placeholderMap is an insertion-ordered mapping from placeholder token to
// rendered markdown, scoped to a single document conversion.
//
// Tokens contain only letters, digits, and hyphens so the generic converter
// can neither escape nor split them, and carry a per-document random suffix
// so they cannot collide with literal document text. Restoration is a blind
// string replace; the token format is what makes that safe.
type placeholderMap struct {
	entries []placeholderEntry
	counts  map[placeholderKind]int
	suffix  string
}

func newPlaceholderMap() *placeholderMap {
	return &placeholderMap{
		counts: make(map[placeholderKind]int),
		suffix: idgen.NanoID(6)(),
	}
}

// add registers rendered markdown under a fresh token and returns the token.
func (m *placeholderMap) add(kind placeholderKind, markdown string) string {
	idx := m.counts[kind]
	m.counts[kind]++
	token := fmt.Sprintf("docmdph-%s-%d-%s", kind, idx, m.suffix)
	m.entries = append(m.entries, placeholderEntry{token: token, kind: kind, markdown: markdown})
	return token
}

func (m *placeholderMap) count(kind placeholderKind) int {
	return m.counts[kind]
}
