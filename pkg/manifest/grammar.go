package manifest

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Grammar recognizes one data line of a directory listing.
type Grammar interface {
	Name() string
	// Match returns the entry described by line. Lines that only partly
	// match must report false.
	Match(line string) (Entry, bool)
}

const (
	GrammarUSDate   = "us-date"
	GrammarDayMonth = "day-month"
	GrammarAuto     = "auto"
)

// DefaultGrammars is the order ParseAuto tries grammars in.
func DefaultGrammars() []Grammar {
	return []Grammar{USDateGrammar{}, DayMonthGrammar{}}
}

// GrammarByName resolves a configured grammar name. GrammarAuto returns
// nil, meaning "detect with ParseAuto".
func GrammarByName(name string) (Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case GrammarUSDate:
		return USDateGrammar{}, nil
	case GrammarDayMonth:
		return DayMonthGrammar{}, nil
	case GrammarAuto, "":
		return nil, nil
	default:
		return nil, errors.Errorf("unknown listing grammar %q (want %s, %s or %s)", name, GrammarUSDate, GrammarDayMonth, GrammarAuto)
	}
}

// USDateGrammar matches IIS-style listings:
//
//	 3/11/2026  8:30 AM        22408 <A HREF="/pub/x/pr.class">pr.class</A>
type USDateGrammar struct{}

var usDateLineRe = regexp.MustCompile(
	`(?i)^\s*(\d{1,2}/\d{1,2}/\d{4})\s+(\d{1,2}:\d{2})\s+(AM|PM)\s+(\d+)\s+<A\s+HREF="[^"]+"\s*>([^<]+)</A>\s*$`,
)

func (USDateGrammar) Name() string { return GrammarUSDate }

func (USDateGrammar) Match(line string) (Entry, bool) {
	m := usDateLineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}
	size, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Name: strings.TrimSpace(m[5]),
		Identity: Identity{
			Timestamp: m[1] + " " + m[2] + " " + strings.ToUpper(m[3]),
			Size:      size,
		},
	}, true
}

// DayMonthGrammar matches Apache/nginx-style listings:
//
//	<a href="pr.class">pr.class</a>    11-Mar-2026 08:30    22408
//
// Apache's fancy indexing puts an icon before the link; it is skipped.
//
// The name comes from the last segment of the href, not the link text,
// since servers truncate long link texts.
type DayMonthGrammar struct{}

var dayMonthLineRe = regexp.MustCompile(
	`(?i)^\s*(?:<img[^>]*>\s*)?<a\s+href="([^"]+)"[^>]*>[^<]*</a>\s+(\d{2}-[a-z]{3}-\d{4})\s+(\d{2}:\d{2})\s+(\d+)\s*$`,
)

func (DayMonthGrammar) Name() string { return GrammarDayMonth }

func (DayMonthGrammar) Match(line string) (Entry, bool) {
	m := dayMonthLineRe.FindStringSubmatch(line)
	if m == nil {
		return Entry{}, false
	}

	href := m[1]
	if strings.HasSuffix(href, "/") {
		return Entry{}, false
	}
	if i := strings.IndexAny(href, "?#"); i >= 0 {
		href = href[:i]
	}
	name := href[strings.LastIndex(href, "/")+1:]
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	if name == "" {
		return Entry{}, false
	}

	size, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return Entry{}, false
	}
	return Entry{
		Name: name,
		Identity: Identity{
			Timestamp: m[2] + " " + m[3],
			Size:      size,
		},
	}, true
}
