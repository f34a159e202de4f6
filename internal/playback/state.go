package playback

import (
	"fmt"
	"strings"
)

// Status is the sequencer's position in its state machine
type Status int

// sequencer statuses
const (
	StatusIdle Status = iota
	StatusLoading
	StatusPlaying
	StatusPaused
	StatusStopped
)

var statusNames = map[Status]string{
	StatusIdle:    "idle",
	StatusLoading: "loading",
	StatusPlaying: "playing",
	StatusPaused:  "paused",
	StatusStopped: "stopped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// MarshalText renders the status by name in JSON payloads
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a status name
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToLower(strings.TrimSpace(string(text)))
	for st, n := range statusNames {
		if n == name {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown playback status %q", name)
}

// State is a snapshot of the sequencer published to observers
type State struct {
	Index    int    `json:"index"`
	Status   Status `json:"status"`
	HasAudio bool   `json:"hasAudio"`
	Total    int    `json:"total"`
}
