package podcast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateVoiceMap(t *testing.T) {
	hosts := []Host{
		{Speaker: Host1, Name: "Alice", Voice: "voice-a"},
		{Speaker: Host2, Name: "Bob", Voice: "voice-b"},
	}

	voiceMap := CreateVoiceMap(hosts)

	assert.Len(t, voiceMap, 2)
	assert.Equal(t, "voice-a", voiceMap[Host1])
	assert.Equal(t, "voice-b", voiceMap[Host2])
}

func TestCreateVoiceMapEmpty(t *testing.T) {
	var hosts []Host
	voiceMap := CreateVoiceMap(hosts)
	assert.Empty(t, voiceMap)
	assert.NotNil(t, voiceMap)
}

func TestCreateVoiceMapSkipsHostsWithoutVoice(t *testing.T) {
	voiceMap := CreateVoiceMap(DefaultHosts())
	assert.Empty(t, voiceMap)
}

func TestSpeaker(t *testing.T) {
	tests := []struct {
		input    string
		expected Speaker
		ok       bool
	}{
		{input: "1", expected: Host1, ok: true},
		{input: " 2 ", expected: Host2, ok: true},
		{input: "3", ok: false},
		{input: "", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			s, ok := ParseSpeaker(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.expected, s)
		})
	}

	assert.Equal(t, "Host 1", Host1.String())
	assert.Equal(t, "Host 2", Host2.String())
	assert.Equal(t, "Unknown", Speaker(0).String())
}
