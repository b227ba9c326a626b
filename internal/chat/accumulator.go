package chat

import (
	"regexp"
	"strings"
)

// Citation markers embedded by the knowledge-base tool: 【4:0†source】 style
// inline citations and bracketed numeric references like [3].
var (
	citationRe = regexp.MustCompile(`【[^】]*】`)
	numericRe  = regexp.MustCompile(`\[\d+\]`)

	// A trailing "[", optionally followed by digits, may be the start of a
	// numeric marker split across fragments.
	partialNumericRe = regexp.MustCompile(`\[\d*$`)
)

// Accumulator assembles the streamed assistant response. Fragments are
// appended in arrival order to a single buffer; citation-marker stripping
// runs over the cumulative buffer so markers split across fragment
// boundaries are still removed. A marker left open at the buffer tail is
// withheld from Current until the fragment that closes it arrives, which
// keeps the displayed text append-only.
type Accumulator struct {
	buf strings.Builder
}

// Append adds one fragment to the buffer.
func (a *Accumulator) Append(fragment string) {
	a.buf.WriteString(fragment)
}

// Empty reports whether any fragment has arrived.
func (a *Accumulator) Empty() bool {
	return a.buf.Len() == 0
}

// Current returns the text to display mid-turn: the buffer with complete
// markers stripped and any unterminated marker at the tail held back.
func (a *Accumulator) Current() string {
	s := a.buf.String()
	if i := firstUnclosedMarker(s); i >= 0 {
		s = s[:i]
	}
	if loc := partialNumericRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]]
	}
	return stripMarkers(s)
}

// Final returns the finished content: the full buffer with all complete
// citation markers removed and surrounding whitespace trimmed.
func (a *Accumulator) Final() string {
	return strings.TrimSpace(stripMarkers(a.buf.String()))
}

// firstUnclosedMarker returns the index of the first 【 with no closing 】
// anywhere after it, or -1. Holding back from the first unmatched opener
// matters when several markers are open at once: the strip regex will
// later swallow from the first opener to the eventual closer, so anything
// between them must never have been displayed.
func firstUnclosedMarker(s string) int {
	off := 0
	for {
		i := strings.Index(s[off:], "【")
		if i < 0 {
			return -1
		}
		i += off
		j := strings.Index(s[i:], "】")
		if j < 0 {
			return i
		}
		off = i + j + len("】")
	}
}

func stripMarkers(s string) string {
	s = citationRe.ReplaceAllString(s, "")
	return numericRe.ReplaceAllString(s, "")
}
