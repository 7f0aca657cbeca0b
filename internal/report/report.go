// Package report renders rename results for a terminal.
package report

import (
	"strings"
	"unicode"

	"github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/width"
)

const (
	spaceBox = '▯'
	emptyBox = "␣"

	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
	ansiGray  = "\x1b[38;2;128;128;128m"
	ansiReset = "\x1b[0m"

	prefixOriginal = "   "
	prefixPlanned  = "-->"
	prefixApplied  = "==>"
)

// Pair is an entry's name before and after a rename.
type Pair struct {
	Original string `json:"original"`
	New      string `json:"new"`
}

// Renderer formats pairs. The zero value prints both names verbatim.
type Renderer struct {
	// Color highlights removed runs red and added runs green.
	Color bool
	// Align pads unchanged runs so both lines line up.
	Align bool
}

// Render returns the two-line report for p. The second line is prefixed
// "==>" for an applied rename and "-->" for a planned one.
func (r Renderer) Render(p Pair, applied bool) string {
	original, edited := p.Original, p.New
	if r.Color || r.Align {
		original, edited = r.Compare(p.Original, p.New)
	}

	prefix := prefixPlanned
	if applied {
		prefix = prefixApplied
	}
	return prefixOriginal + original + "\n" + prefix + edited
}

// Compare diffs two names character by character. Whitespace is shown as
// a box so trailing or doubled spaces stay visible.
func (r Renderer) Compare(original, edited string) (string, string) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(original, edited, false)

	var left, right strings.Builder
	var leftWidth, rightWidth int
	for _, d := range diffs {
		text := boxSpaces(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if r.Align {
				switch {
				case leftWidth < rightWidth:
					left.WriteString(r.paint(ansiGray, strings.Repeat(emptyBox, rightWidth-leftWidth)))
					leftWidth = rightWidth
				case leftWidth > rightWidth:
					right.WriteString(r.paint(ansiGray, strings.Repeat(emptyBox, leftWidth-rightWidth)))
					rightWidth = leftWidth
				}
			}
			left.WriteString(text)
			right.WriteString(text)
			leftWidth += Width(text)
			rightWidth += Width(text)
		case diffmatchpatch.DiffDelete:
			left.WriteString(r.paint(ansiRed, text))
			leftWidth += Width(text)
		case diffmatchpatch.DiffInsert:
			right.WriteString(r.paint(ansiGreen, text))
			rightWidth += Width(text)
		}
	}
	return left.String(), right.String()
}

func (r Renderer) paint(code, s string) string {
	if !r.Color || s == "" {
		return s
	}
	return code + s + ansiReset
}

func boxSpaces(s string) string {
	return strings.Map(func(c rune) rune {
		if unicode.IsSpace(c) {
			return spaceBox
		}
		return c
	}, s)
}

// Width is the number of terminal columns s occupies. East Asian wide and
// fullwidth runes count two, combining marks zero.
func Width(s string) int {
	n := 0
	for _, c := range s {
		switch {
		case unicode.Is(unicode.Mn, c):
		case isWide(c):
			n += 2
		default:
			n++
		}
	}
	return n
}

func isWide(c rune) bool {
	switch width.LookupRune(c).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return true
	}
	return false
}
