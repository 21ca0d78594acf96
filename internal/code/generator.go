// Package code produces booking codes.  A code is a fixed prefix followed
// by two dash-separated groups written in Crockford's base-32 alphabet:
// six characters taken from the millisecond clock and eight characters of
// random entropy, e.g. EVT-1Z9K4M-7QH2XW0C.  The alphabet has no I, L, O
// or U so a printed code cannot be misread between letters and digits.
//
// Uniqueness is not guaranteed here.  The booking store carries a unique
// constraint and callers retry with a fresh code on conflict.
package code

import (
	"crypto/rand"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultPrefix is printed in front of every code unless configured.
const DefaultPrefix = "EVT"

const (
	timeChars   = 6
	randomChars = 8
)

// Generator issues candidate booking codes.
type Generator interface {
	Generate() string
}

// ULIDGenerator derives codes from a ULID: the tail of its timestamp
// part and the tail of its entropy part.  It is safe for concurrent use.
type ULIDGenerator struct {
	prefix string
	now    func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewGenerator returns a generator using crypto/rand entropy.  An empty
// prefix falls back to DefaultPrefix.
func NewGenerator(prefix string) *ULIDGenerator {
	return newGenerator(prefix, time.Now, rand.Reader)
}

func newGenerator(prefix string, now func() time.Time, entropy io.Reader) *ULIDGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &ULIDGenerator{prefix: prefix, now: now, entropy: entropy}
}

// Prefix returns the configured prefix without the trailing dash.
func (g *ULIDGenerator) Prefix() string { return g.prefix }

// Generate returns a new candidate code.  If the entropy source fails the
// random group is all zeros; the store's unique constraint rejects any
// duplicate that produces.
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	if err != nil {
		id, _ = ulid.New(ulid.Timestamp(g.now()), nil)
	}
	s := id.String()
	// 0..9 is the timestamp, 10..25 the entropy.
	return fmt.Sprintf("%s-%s-%s", g.prefix, s[10-timeChars:10], s[len(s)-randomChars:])
}

var pattern = regexp.MustCompile(`^[A-Z]{2,8}-[0-9A-HJKMNP-TV-Z]{6}-[0-9A-HJKMNP-TV-Z]{8}$`)

// Normalize trims surrounding whitespace and folds to the canonical upper
// case used by the generator.
func Normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Valid reports whether s is a well-formed code.  s must already be
// normalized.
func Valid(s string) bool {
	return pattern.MatchString(s)
}
