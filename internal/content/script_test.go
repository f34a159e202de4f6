package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorecast/lorecast/podcast"
)

func TestParseScript(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []podcast.Segment
	}{
		{
			name:  "two hosts",
			input: "Host 1: Hello there\nHost 2: Hi back\n",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "Hello there"},
				{Speaker: podcast.Host2, Text: "Hi back"},
			},
		},
		{
			name:  "stray preamble is discarded",
			input: "Some stray preamble\nHost 1: Real start",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "Real start"},
			},
		},
		{
			name:  "unlabeled line continues previous speaker",
			input: "Host 2: First thought\nand a second line\nHost 1: Reply",
			expected: []podcast.Segment{
				{Speaker: podcast.Host2, Text: "First thought"},
				{Speaker: podcast.Host2, Text: "and a second line"},
				{Speaker: podcast.Host1, Text: "Reply"},
			},
		},
		{
			name:  "empty lines produce nothing",
			input: "Host 1: One\n\n   \nHost 2: Two\n\n",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "One"},
				{Speaker: podcast.Host2, Text: "Two"},
			},
		},
		{
			name:  "tone notes are dropped",
			input: "Host 1 (laughing): That map is upside down\nHost 2: (whispering) Don't tell the archivist",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "That map is upside down"},
				{Speaker: podcast.Host2, Text: "Don't tell the archivist"},
			},
		},
		{
			name:  "label variants",
			input: "host1: lower\nHOST 2 : upper\n[Host 1]: bracketed",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "lower"},
				{Speaker: podcast.Host2, Text: "upper"},
				{Speaker: podcast.Host1, Text: "bracketed"},
			},
		},
		{
			name:  "markup is stripped before segmentation",
			input: "# Episode 3\n**Host 1:** The *Ember Court* is [real](https://example.com)\n**Host 2 (dry):** Sure.",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "The Ember Court is real"},
				{Speaker: podcast.Host2, Text: "Sure."},
			},
		},
		{
			name:  "empty label sets speaker for following line",
			input: "Host 2:\nTold you so",
			expected: []podcast.Segment{
				{Speaker: podcast.Host2, Text: "Told you so"},
			},
		},
		{
			name:  "windows line endings",
			input: "Host 1: A\r\nHost 2: B\r\n",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "A"},
				{Speaker: podcast.Host2, Text: "B"},
			},
		},
		{
			name:  "unknown host number is continuation text",
			input: "Host 1: A\nHost 3: B",
			expected: []podcast.Segment{
				{Speaker: podcast.Host1, Text: "A"},
				{Speaker: podcast.Host1, Text: "Host 3: B"},
			},
		},
		{
			name:     "no labels at all",
			input:    "just some prose\nwith no hosts",
			expected: nil,
		},
		{
			name:     "empty input",
			input:    "",
			expected: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseScript(tc.input))
		})
	}
}

func TestParseScript_CountMatchesLabeledLines(t *testing.T) {
	input := "Intro music\nHost 1: a\nHost 2: b\nHost 1: c\nHost 2: d\nHost 1: e\n"
	segments := ParseScript(input)
	require.Len(t, segments, 5)
	for i, text := range []string{"a", "b", "c", "d", "e"} {
		assert.Equal(t, text, segments[i].Text)
	}
}

func TestFormatScript(t *testing.T) {
	segments := []podcast.Segment{
		{Speaker: podcast.Host1, Text: "Hello"},
		{Speaker: podcast.Host2, Text: "Hi"},
	}
	formatted := FormatScript(segments)
	assert.Equal(t, "Host 1: Hello\nHost 2: Hi\n", formatted)
	assert.Equal(t, segments, ParseScript(formatted))
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "bold", input: "a **bold** move", expected: "a bold move"},
		{name: "underscore bold", input: "a __bold__ move", expected: "a bold move"},
		{name: "italic", input: "an *italic* word", expected: "an italic word"},
		{name: "underscore italic", input: "an _italic_ word", expected: "an italic word"},
		{name: "snake case untouched", input: "some_var_name", expected: "some_var_name"},
		{name: "heading", input: "## The Fall", expected: "The Fall"},
		{name: "link", input: "see [the map](http://x.test/map)", expected: "see the map"},
		{name: "image", input: "![banner](http://x.test/a.png) text", expected: "banner text"},
		{name: "inline code", input: "use `spell` now", expected: "use spell now"},
		{name: "strikethrough", input: "~~old~~ new", expected: "old new"},
		{name: "quote", input: "> spoken", expected: "spoken"},
		{name: "bullet", input: "- item", expected: "item"},
		{name: "stray asterisk", input: "wow*", expected: "wow"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, StripMarkup(tc.input))
		})
	}
}
