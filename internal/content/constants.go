package content

import "time"

// http and network timeouts
const (
	DefaultHTTPTimeout = 30 * time.Second
	AIHTTPTimeout      = 2 * time.Minute
	SpeechFetchTimeout = 30 * time.Second
)

// content processing limits
const (
	MaxSourceContentLength = 8000
	DisplayTruncateLength  = 50
)

// generation parameters
const (
	AITemperature     = 0.8
	AIMaxTokens       = 4000
	MessagesPerMinute = 4
)

// text processing constants
const (
	avgCharsPerWord   = 4.7
	avgWordsPerMinute = 150.0
)
