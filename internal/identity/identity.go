// Package identity derives the stable dedup key of a candidate.
package identity

import (
	"crypto/sha256"
	"fmt"
	"strconv"
	"strings"

	"dealer_hunt/internal/model"
)

// ID is a canonical identifier and where it came from.
type ID struct {
	Value string
	Kind  model.IdentityKind
}

// Canonical returns "{source}:{native-id}" when the source exposes a stable
// id, otherwise a content hash over the listing's visible fields.
func Canonical(sourceName, nativeID, title string, price, odometer int, state string) ID {
	if sourceName != "" && nativeID != "" {
		return ID{Value: strings.ToLower(sourceName) + ":" + nativeID, Kind: model.IdentitySource}
	}
	return ID{Value: ContentHash(title, price, odometer, state), Kind: model.IdentityHash}
}

// ContentHash is the last-resort key. Title whitespace and case are
// normalized so cosmetic differences between pages collapse.
func ContentHash(title string, price, odometer int, state string) string {
	norm := strings.Join([]string{
		strings.ToLower(strings.Join(strings.Fields(title), " ")),
		strconv.Itoa(price),
		strconv.Itoa(odometer),
		strings.ToUpper(strings.TrimSpace(state)),
	}, "|")
	h := sha256.Sum256([]byte(norm))
	return fmt.Sprintf("sha256:%x", h[:16])
}

// Seen is the per-run dedup context. It is not safe for concurrent use and
// belongs to exactly one run.
type Seen struct {
	ids  map[string]struct{}
	urls map[string]struct{}
}

// NewSeen returns an empty dedup context.
func NewSeen() *Seen {
	return &Seen{ids: map[string]struct{}{}, urls: map[string]struct{}{}}
}

// Add records id and reports whether it was new in this run.
func (s *Seen) Add(id string) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// AddURL records a fetched URL and reports whether it was new in this run.
func (s *Seen) AddURL(u string) bool {
	if _, ok := s.urls[u]; ok {
		return false
	}
	s.urls[u] = struct{}{}
	return true
}

// Len returns the number of distinct identifiers recorded.
func (s *Seen) Len() int {
	return len(s.ids)
}
