// Package manifest turns a web server's directory index page into a
// name-keyed manifest of remote files.
//
// Directory-index markup is not well-formed HTML, so it is scanned as
// semi-structured text: line breaks are normalized and each line is tried
// against a Grammar. Lines that do not match are ignored.
package manifest

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Identity is what the source listing tells us about a file besides its name.
type Identity struct {
	// Timestamp is kept in the listing's own format. Empty when the grammar
	// does not expose one.
	Timestamp string
	Size      int64
}

type Entry struct {
	Name     string
	Identity Identity
}

// Size is shorthand for e.Identity.Size.
func (e Entry) Size() int64 {
	return e.Identity.Size
}

// Manifest maps a file name to its entry.
type Manifest map[string]Entry

// Names returns the manifest's names in lexical order.
func (m Manifest) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var validNameRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidName reports whether name is safe to use as the last segment of an
// object key. "." and ".." pass the charset but are rejected anyway.
func ValidName(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return validNameRe.MatchString(name)
}

var (
	brTagRe        = regexp.MustCompile(`(?i)<br\s*/?>`)
	brokenTagStart = strings.NewReplacer("<\r\n", "<", "<\n", "<")
)

// Normalize rewrites the line-break variants found in directory listings
// into plain newlines.
func Normalize(markup string) string {
	s := brokenTagStart.Replace(markup)
	s = brTagRe.ReplaceAllString(s, "\n")
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// ErrEmptyManifest is wrapped by every ParseError.
var ErrEmptyManifest = errors.Base("listing produced no valid entries")

// ParseError means a listing yielded zero usable entries. An empty listing
// cannot be told apart from a broken one, so callers must not treat it as
// "the source is now empty".
type ParseError struct {
	Grammars []string
	Lines    int
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse listing: %s (grammars: %s; lines scanned: %d)",
		ErrEmptyManifest, strings.Join(e.Grammars, ", "), e.Lines)
}

func (e *ParseError) Unwrap() error {
	return ErrEmptyManifest
}

// Parse scans markup with g. Lines that do not match, and entries whose
// name fails ValidName, are skipped.
func Parse(markup string, g Grammar) (Manifest, error) {
	if g == nil {
		return nil, errors.New("parse listing: nil grammar")
	}

	lines := strings.Split(Normalize(markup), "\n")
	m := make(Manifest)
	for _, line := range lines {
		entry, ok := g.Match(line)
		if !ok {
			continue
		}
		if !ValidName(entry.Name) {
			continue
		}
		m[entry.Name] = entry
	}

	if len(m) == 0 {
		return nil, &ParseError{Grammars: []string{g.Name()}, Lines: len(lines)}
	}
	return m, nil
}

// ParseAuto tries each grammar in turn and returns the first non-empty
// manifest along with the grammar that produced it. With no grammars given
// it uses DefaultGrammars.
func ParseAuto(markup string, grammars ...Grammar) (Manifest, Grammar, error) {
	if len(grammars) == 0 {
		grammars = DefaultGrammars()
	}

	var tried []string
	var lines int
	for _, g := range grammars {
		m, err := Parse(markup, g)
		if err == nil {
			return m, g, nil
		}
		var perr *ParseError
		if !errors.As(err, &perr) {
			return nil, nil, err
		}
		tried = append(tried, g.Name())
		lines = perr.Lines
	}

	return nil, nil, &ParseError{Grammars: tried, Lines: lines}
}
