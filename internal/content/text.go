package content

import (
	"unicode"
	"unicode/utf8"

	"github.com/lorecast/lorecast/podcast"
)

// EstimateAudioDuration estimates the spoken duration of text in seconds
func EstimateAudioDuration(text string) float64 {
	// count characters excluding whitespace
	charCount := 0
	for _, char := range text {
		if !unicode.IsSpace(char) {
			charCount++
		}
	}

	estimatedWords := float64(charCount) / avgCharsPerWord
	return estimatedWords / avgWordsPerMinute * 60.0
}

// EstimateTotalDuration estimates the spoken duration of all segments in seconds
func EstimateTotalDuration(segments []podcast.Segment) float64 {
	var total float64
	for _, seg := range segments {
		total += EstimateAudioDuration(seg.Text)
	}
	return total
}

// TruncateString truncates a string to maxLength runes and adds "..." if truncated
func TruncateString(s string, maxLength int) string {
	if utf8.RuneCountInString(s) <= maxLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLength]) + "..."
}
