package protocol

import "encoding/json"

// Outbound callback event names.
const (
	EventDebugLog          = "debugLog"
	EventSubtitleShown     = "subtitleShown"
	EventAudioEnded        = "audioEnded"
	EventAudioError        = "audioError"
	EventAudioTimeResponse = "audioTimeResponse"
)

// Event is an outbound callback payload.
type Event interface {
	EventName() string
}

// DebugLog mirrors a log line to the host.
type DebugLog struct {
	Message string `json:"message"`
}

// SubtitleShown reports a subtitle that has just been displayed.
type SubtitleShown struct {
	Text       string  `json:"text"`
	Duration   float64 `json:"duration"`
	SubtitleID string  `json:"subtitleId"`
	Timestamp  int64   `json:"timestamp"` // ms since epoch
}

// AudioEnded reports a session that played to the end.
type AudioEnded struct {
	AudioID     string          `json:"audioId"`
	AudioFile   string          `json:"audioFile"`
	CustomEvent json.RawMessage `json:"customEvent"`
	ServerEvent json.RawMessage `json:"serverEvent"`
}

// AudioError reports a session torn down by a playback failure.
type AudioError struct {
	AudioID   string `json:"audioId"`
	Error     string `json:"error"`
	AudioFile string `json:"audioFile"`
}

// AudioTimeResponse answers a getCurrentTime control.
type AudioTimeResponse struct {
	AudioID     string  `json:"audioId"`
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

func (DebugLog) EventName() string          { return EventDebugLog }
func (SubtitleShown) EventName() string     { return EventSubtitleShown }
func (AudioEnded) EventName() string        { return EventAudioEnded }
func (AudioError) EventName() string        { return EventAudioError }
func (AudioTimeResponse) EventName() string { return EventAudioTimeResponse }

// nullable returns raw, or JSON null when it is empty.
func nullable(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}

// NewAudioEnded builds an AudioEnded event; empty passthrough tags encode
// as null.
func NewAudioEnded(audioID, audioFile string, customEvent, serverEvent json.RawMessage) AudioEnded {
	return AudioEnded{
		AudioID:     audioID,
		AudioFile:   audioFile,
		CustomEvent: nullable(customEvent),
		ServerEvent: nullable(serverEvent),
	}
}
