package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMarkup(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []Segment
	}{
		{
			"plain text",
			"no formatting here",
			[]Segment{{Text: "no formatting here"}},
		},
		{
			"single bold",
			"The **stack** structure",
			[]Segment{{Text: "The "}, {Text: "stack", Bold: true}, {Text: " structure"}},
		},
		{
			"leading bold",
			"**The aim of this experiment was to** implement a stack",
			[]Segment{{Text: "The aim of this experiment was to", Bold: true}, {Text: " implement a stack"}},
		},
		{
			"multiple bold runs",
			"**a** and **b**",
			[]Segment{{Text: "a", Bold: true}, {Text: " and "}, {Text: "b", Bold: true}},
		},
		{
			"unclosed marker is literal",
			"broken **bold",
			[]Segment{{Text: "broken **bold"}},
		},
		{
			"empty bold dropped",
			"a****b",
			[]Segment{{Text: "a"}, {Text: "b"}},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseMarkup(tc.in))
		})
	}
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "The stack structure", PlainText("The **stack** structure"))
	assert.Equal(t, "", PlainText(""))
}
