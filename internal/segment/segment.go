// Package segment splits a biography collection's text into per-author chunks.
//
// Entry boundaries are located with a document-specific regular expression.
// Layout conventions vary across source books, so the pattern is supplied per
// document rather than inferred; the default matches the common
// "<ordinal> - <name>" heading convention. Chunks keep the original script
// untouched - no diacritic stripping or normalization happens here.
package segment

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultExpr matches the common author heading layout: an ordinal, a dash,
// and the entry heading to end of line. Group 1 is the ordinal marker,
// group 2 the heading. Printed editions number entries in either ASCII or
// Arabic-Indic digits (٠-٩), so the ordinal class covers both; RE2's \d is
// ASCII-only and would miss a book numbered "١ - ...".
//
// The source-side convention also produces false positives on page ranges
// like "12 - 15"; those are filtered after matching (RE2 has no lookahead).
const DefaultExpr = `([0-9٠-٩]+)\s*-\s*([^\n]+)`

// Pattern is a compiled author-boundary expression.
type Pattern struct {
	re *regexp.Regexp
}

// Compile compiles an author-boundary expression. The expression must have at
// least two capture groups: the ordinal marker and the start of the entry text.
func Compile(expr string) (*Pattern, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid segmentation pattern: %w", err)
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("segmentation pattern needs two capture groups (ordinal, heading), got %d", re.NumSubexp())
	}
	return &Pattern{re: re}, nil
}

// MustCompile is like Compile but panics on error. For use with known-good
// expressions such as DefaultExpr.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the pattern's source expression.
func (p *Pattern) String() string {
	return p.re.String()
}

// Chunk is the contiguous span of source text attributed to one
// biographical entry. Chunks are immutable once produced.
type Chunk struct {
	// Index is the 1-based sequence number, assigned in order of appearance.
	Index int `json:"index"`

	// Ordinal is the entry's marker as matched (group 1), e.g. "17".
	Ordinal string `json:"ordinal"`

	// Heading is the trimmed entry heading (group 2), usually the author name.
	Heading string `json:"heading"`

	// Text is the entry body: everything from the heading to the next entry
	// boundary, trimmed. This is what gets sent for extraction.
	Text string `json:"text"`

	// Span is the raw, untrimmed source slice [Start, End). Concatenating
	// spans in index order reconstructs the source text from the first
	// boundary to end-of-text exactly.
	Span  string `json:"-"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Split applies the pattern to the full document text and returns the ordered
// chunk sequence. Zero matches yields an empty (nil) result, not an error -
// the caller decides whether that is invalid.
func (p *Pattern) Split(text string) []Chunk {
	matches := p.re.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}

	// Drop page-range false positives: headings that start with a digit
	// ("12 - 15") or consist only of numbers and punctuation ("12 - 15].").
	kept := matches[:0]
	for _, m := range matches {
		heading := strings.TrimSpace(group(text, m, 2))
		if isPageReference(heading) {
			continue
		}
		kept = append(kept, m)
	}
	if len(kept) == 0 {
		return nil
	}

	chunks := make([]Chunk, 0, len(kept))
	for i, m := range kept {
		start := m[0]
		end := len(text)
		if i+1 < len(kept) {
			end = kept[i+1][0]
		}

		// Group 2 start marks where the entry's own text begins.
		bodyStart := m[4]
		if bodyStart < 0 {
			bodyStart = m[1]
		}

		chunks = append(chunks, Chunk{
			Index:   i + 1,
			Ordinal: group(text, m, 1),
			Heading: strings.TrimSpace(group(text, m, 2)),
			Text:    strings.TrimSpace(text[bodyStart:end]),
			Span:    text[start:end],
			Start:   start,
			End:     end,
		})
	}

	return chunks
}

// Label returns the chunk's display identifier, e.g. "17 - الذهبي".
func (c Chunk) Label() string {
	if c.Ordinal == "" {
		return c.Heading
	}
	return c.Ordinal + " - " + c.Heading
}

var numericOnly = regexp.MustCompile(`^[0-9٠-٩.\]\)\s]+$`)

func isPageReference(heading string) bool {
	if heading == "" {
		return true
	}
	r := []rune(heading)[0]
	if (r >= '0' && r <= '9') || (r >= '٠' && r <= '٩') {
		return true
	}
	return numericOnly.MatchString(heading)
}

// group returns the text of capture group n from a SubmatchIndex result.
func group(text string, m []int, n int) string {
	lo, hi := m[2*n], m[2*n+1]
	if lo < 0 || hi < 0 {
		return ""
	}
	return text[lo:hi]
}
