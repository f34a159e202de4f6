package podcast

import "strings"

// Speaker identifies one of the two podcast hosts
type Speaker int

const (
	Host1 Speaker = iota + 1
	Host2
)

// String returns the label used in generated scripts
func (s Speaker) String() string {
	switch s {
	case Host1:
		return "Host 1"
	case Host2:
		return "Host 2"
	default:
		return "Unknown"
	}
}

// ParseSpeaker converts a host number ("1", "2") into a Speaker
func ParseSpeaker(n string) (Speaker, bool) {
	switch strings.TrimSpace(n) {
	case "1":
		return Host1, true
	case "2":
		return Host2, true
	default:
		return 0, false
	}
}

// Segment is one speaker turn extracted from a script
type Segment struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Host represents a podcast host with name and character traits
type Host struct {
	Speaker   Speaker
	Name      string
	Character string // personality traits and perspective
	Voice     string // tts voice id, empty for the default table
}

// Script is a generated podcast script before segmentation
type Script struct {
	Title string
	Text  string
}

// DefaultHosts returns the two hosts used when none are configured
func DefaultHosts() []Host {
	return []Host{
		{
			Speaker:   Host1,
			Name:      "Mira",
			Character: "Enthusiastic loremaster who loves connecting small details to the bigger history of the world.",
		},
		{
			Speaker:   Host2,
			Name:      "Tobin",
			Character: "Skeptical archivist who questions contradictions and asks what the canon actually says.",
		},
	}
}

// CreateVoiceMap maps speakers to their configured voices, skipping hosts without one
func CreateVoiceMap(hosts []Host) map[Speaker]string {
	voiceMap := make(map[Speaker]string)
	for _, host := range hosts {
		if host.Voice == "" {
			continue
		}
		voiceMap[host.Speaker] = host.Voice
	}
	return voiceMap
}
