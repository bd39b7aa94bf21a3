// Package export renders completed lab jobs into downloadable documents.
package export

import "strings"

// Segment is a run of text with uniform styling.
type Segment struct {
	Text string
	Bold bool
}

// ParseMarkup splits text containing **bold** markers into styled segments.
// An unclosed marker is treated as literal text.
func ParseMarkup(text string) []Segment {
	var segs []Segment
	for len(text) > 0 {
		open := strings.Index(text, "**")
		if open < 0 {
			segs = append(segs, Segment{Text: text})
			break
		}
		close := strings.Index(text[open+2:], "**")
		if close < 0 {
			segs = append(segs, Segment{Text: text})
			break
		}

		if open > 0 {
			segs = append(segs, Segment{Text: text[:open]})
		}
		bold := text[open+2 : open+2+close]
		if bold != "" {
			segs = append(segs, Segment{Text: bold, Bold: true})
		}
		text = text[open+2+close+2:]
	}
	return segs
}

// PlainText strips **bold** markers, keeping the text.
func PlainText(text string) string {
	var b strings.Builder
	for _, s := range ParseMarkup(text) {
		b.WriteString(s.Text)
	}
	return b.String()
}
