// Package fuzzy turns noisy player-reported track titles into search queries.
package fuzzy

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// DefaultStripTags are the promotional and version markers removed from titles.
var DefaultStripTags = []string{
	"Remaster",
	"2021 ver",
	"Instrumental",
	"feat.",
	"Original Mix",
}

var (
	bracketRegex    = regexp.MustCompile(`[\(\[][^\)\]]*[\)\]]`)
	jpBossRegex     = regexp.MustCompile(`[-~][ \t\x{3000}]*[0-9]*[ \t\x{3000}]*面[ \t\x{3000}]*ボス[^-~]*[-~]?`)
	enBossRegex     = regexp.MustCompile(`(?i)[-~]\s*(?:[0-9]+(?:st|nd|rd|th)?\s*)?(?:extra\s*)?stage\s*(?:[0-9]+\s*)?boss[^-~]*(?:[-~][^-~]*)?`)
	whitespaceRegex = regexp.MustCompile(`[\s\x{3000}]+`)
)

// Normalizer cleans track titles. The zero value is not usable; call NewNormalizer.
type Normalizer struct {
	tagRegexes []*regexp.Regexp
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithStripTags replaces the default strip tag list. Blank tags are ignored.
func WithStripTags(tags ...string) Option {
	return func(n *Normalizer) {
		n.tagRegexes = compileTags(tags)
	}
}

func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{tagRegexes: compileTags(DefaultStripTags)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func compileTags(tags []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		// Tags are matched after NFKC, so fold the tag the same way.
		compiled = append(compiled, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(norm.NFKC.String(tag))))
	}
	return compiled
}

// NormalizeTitle returns a search-friendly form of rawTitle, or "" when nothing
// searchable is left. The result is stable under repeated application.
func (n *Normalizer) NormalizeTitle(rawTitle string) string {
	// After the first pass every change only removes text, so this terminates.
	title := rawTitle
	for {
		next := n.normalizeOnce(title)
		if next == title {
			break
		}
		title = next
	}

	if !hasSearchableRune(title) {
		return ""
	}
	return title
}

func (n *Normalizer) normalizeOnce(title string) string {
	if title == "" {
		return ""
	}

	title = norm.NFKC.String(title)
	title = bracketRegex.ReplaceAllString(title, "")
	title = jpBossRegex.ReplaceAllString(title, "")
	title = enBossRegex.ReplaceAllString(title, "")

	for _, tagRegex := range n.tagRegexes {
		title = tagRegex.ReplaceAllString(title, "")
	}

	title = whitespaceRegex.ReplaceAllString(title, " ")
	return strings.TrimSpace(title)
}

func hasSearchableRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}
