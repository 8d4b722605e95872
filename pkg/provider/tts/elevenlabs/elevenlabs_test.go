package elevenlabs

import (
	"strings"
	"testing"
)

func TestParseVoicesResponse(t *testing.T) {
	data := []byte(`{
		"voices": [
			{
				"voice_id": "pNInz6obpgDQGcFmaJgB",
				"name": "Adam",
				"category": "premade",
				"labels": {"accent": "american", "gender": "male"}
			},
			{
				"voice_id": "EXAVITQu4vr4xnSDxMaL",
				"name": "Bella"
			}
		]
	}`)

	voices, err := parseVoicesResponse(data)
	if err != nil {
		t.Fatalf("parseVoicesResponse: %v", err)
	}
	if len(voices) != 2 {
		t.Fatalf("len(voices) = %d, want 2", len(voices))
	}

	adam := voices[0]
	if adam.ID != "pNInz6obpgDQGcFmaJgB" || adam.Name != "Adam" {
		t.Errorf("voices[0] = %+v", adam)
	}
	if adam.Provider != "elevenlabs" {
		t.Errorf("provider = %q, want elevenlabs", adam.Provider)
	}
	if adam.Metadata["category"] != "premade" || adam.Metadata["accent"] != "american" {
		t.Errorf("metadata = %v", adam.Metadata)
	}

	if voices[1].Metadata["category"] != "" {
		t.Errorf("voices[1] metadata has category: %v", voices[1].Metadata)
	}
}

func TestParseVoicesResponse_InvalidJSON(t *testing.T) {
	if _, err := parseVoicesResponse([]byte("{nope")); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestSampleRateFromFormat(t *testing.T) {
	tests := []struct {
		format string
		want   int
	}{
		{"pcm_16000", 16000},
		{"pcm_22050", 22050},
		{"pcm_44100", 44100},
		{"mp3_44100_128", 16000},
		{"pcm_garbage", 16000},
		{"", 16000},
	}

	for _, tc := range tests {
		if got := sampleRateFromFormat(tc.format); got != tc.want {
			t.Errorf("sampleRateFromFormat(%q) = %d, want %d", tc.format, got, tc.want)
		}
	}
}

func TestBuildURLForVoice(t *testing.T) {
	url := buildURLForVoice("voice123", "eleven_flash_v2_5")

	if !strings.HasPrefix(url, "wss://api.elevenlabs.io/v1/text-to-speech/voice123/stream-input") {
		t.Errorf("url = %q", url)
	}
	if !strings.Contains(url, "model_id=eleven_flash_v2_5") {
		t.Errorf("url missing model: %q", url)
	}
}
