package content

import (
	"regexp"
	"strings"

	"github.com/lorecast/lorecast/podcast"
)

// speakerLabel matches "Host 1:", "host2:", "[Host 1]:", "Host 1 (laughing):" and
// "Host 2: (whispering) text"; the tone note never reaches the spoken text
var speakerLabel = regexp.MustCompile(`(?i)^\s*\[?host\s*([12])\]?\s*(?:\([^)]*\))?\s*:\s*(?:\([^)]*\)\s*)?(.*)$`)

// ParseScript splits a generated script into ordered speaker segments.
//
// Lines before the first speaker label are dropped, empty lines produce nothing and
// unlabeled lines are attributed to the previous speaker. It never fails: a script
// without any label yields no segments.
func ParseScript(text string) []podcast.Segment {
	text = StripMarkup(text)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	var (
		segments []podcast.Segment
		current  podcast.Speaker
		started  bool
	)

	for _, line := range lines {
		speaker, rest, ok := matchSpeaker(line)
		if ok {
			started = true
			current = speaker
			line = rest
		} else if !started {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		segments = append(segments, podcast.Segment{Speaker: current, Text: line})
	}

	return segments
}

// matchSpeaker reports the speaker label of a line and the text after it
func matchSpeaker(line string) (podcast.Speaker, string, bool) {
	m := speakerLabel.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	speaker, ok := podcast.ParseSpeaker(m[1])
	if !ok {
		return 0, "", false
	}
	return speaker, m[2], true
}

// FormatScript renders segments back into the "Host N: text" convention
func FormatScript(segments []podcast.Segment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(seg.Speaker.String())
		sb.WriteString(": ")
		sb.WriteString(seg.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
