// Package protocol defines the JSON messages exchanged with the host: the
// inbound actions and the outbound callback events.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/llehouerou/subcue/internal/cue"
	"github.com/llehouerou/subcue/internal/overlay"
)

// ErrUnknownAction is reported for unrecognized actions and control verbs.
var ErrUnknownAction = errors.New("unknown action")

// Action names of inbound messages.
const (
	ActionInitialize      = "initialize"
	ActionPlayAudio       = "playAudioWithSubtitles"
	ActionControlAudio    = "controlAudio"
	ActionAddSubtitle     = "addSubtitleDynamic"
	ActionStopAll         = "stopAllAudio"
	ActionSetMasterVolume = "setMasterVolume"
	ActionShowSubtitle    = "showSubtitle"
	ActionHideSubtitle    = "hideSubtitle"
	ActionSyncSubtitle    = "syncSubtitleToTime"
)

// Message is an inbound message. The set of implementations is closed.
type Message interface {
	Action() string
	message()
}

// Initialize installs the overlay layout.
type Initialize struct {
	Config overlay.Layout `json:"config"`
}

// PlayAudio starts a session. SubtitlesFile, when set, is loaded and merged
// with Subtitles.
type PlayAudio struct {
	AudioID       string          `json:"audioId"`
	AudioFile     string          `json:"audioFile"`
	Subtitles     []cue.Cue       `json:"subtitles"`
	SubtitlesFile string          `json:"subtitlesFile,omitempty"`
	Autoplay      *bool           `json:"autoplay,omitempty"`
	Volume        *float64        `json:"volume,omitempty"`
	Loop          bool            `json:"loop,omitempty"`
	CustomEvent   json.RawMessage `json:"customEvent,omitempty"`
	ServerEvent   json.RawMessage `json:"serverEvent,omitempty"`
}

// ControlAudio applies a control verb to a session.
type ControlAudio struct {
	Control string        `json:"control"`
	AudioID string        `json:"audioId"`
	Params  ControlParams `json:"params"`
}

// ControlParams carries the optional arguments of control verbs.
type ControlParams struct {
	Volume *float64 `json:"volume,omitempty"`
	Time   *float64 `json:"time,omitempty"`
}

// AddSubtitle appends a cue to a running session.
type AddSubtitle struct {
	AudioID  string  `json:"audioId"`
	Subtitle cue.Cue `json:"subtitle"`
}

// StopAll destroys every session and clears the overlay.
type StopAll struct{}

// SetMasterVolume changes the master volume.
type SetMasterVolume struct {
	Volume float64 `json:"volume"`
}

// ShowSubtitle displays text outside of any session.
type ShowSubtitle struct {
	Text     string  `json:"text"`
	Duration float64 `json:"duration"`
	Position string  `json:"position"`
	Style    string  `json:"style"`
}

// HideSubtitle fades out the overlay.
type HideSubtitle struct{}

// SyncSubtitle inserts a cue into a session at the given time.
type SyncSubtitle struct {
	AudioID  string  `json:"audioId"`
	Time     float64 `json:"time"`
	Subtitle cue.Cue `json:"subtitle"`
}

// Unknown is any message whose action is not recognized.
type Unknown struct {
	Name string
}

func (Initialize) Action() string      { return ActionInitialize }
func (PlayAudio) Action() string       { return ActionPlayAudio }
func (ControlAudio) Action() string    { return ActionControlAudio }
func (AddSubtitle) Action() string     { return ActionAddSubtitle }
func (StopAll) Action() string         { return ActionStopAll }
func (SetMasterVolume) Action() string { return ActionSetMasterVolume }
func (ShowSubtitle) Action() string    { return ActionShowSubtitle }
func (HideSubtitle) Action() string    { return ActionHideSubtitle }
func (SyncSubtitle) Action() string    { return ActionSyncSubtitle }
func (u Unknown) Action() string       { return u.Name }

func (Initialize) message()      {}
func (PlayAudio) message()       {}
func (ControlAudio) message()    {}
func (AddSubtitle) message()     {}
func (StopAll) message()         {}
func (SetMasterVolume) message() {}
func (ShowSubtitle) message()    {}
func (HideSubtitle) message()    {}
func (SyncSubtitle) message()    {}
func (Unknown) message()         {}

// Decode parses one inbound message. An unrecognized action decodes to
// Unknown without error; only malformed JSON fails.
func Decode(data []byte) (Message, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch head.Action {
	case ActionInitialize:
		return decodeAs[Initialize](data)
	case ActionPlayAudio:
		return decodeAs[PlayAudio](data)
	case ActionControlAudio:
		return decodeAs[ControlAudio](data)
	case ActionAddSubtitle:
		return decodeAs[AddSubtitle](data)
	case ActionStopAll:
		return StopAll{}, nil
	case ActionSetMasterVolume:
		return decodeAs[SetMasterVolume](data)
	case ActionShowSubtitle:
		return decodeAs[ShowSubtitle](data)
	case ActionHideSubtitle:
		return HideSubtitle{}, nil
	case ActionSyncSubtitle:
		return decodeAs[SyncSubtitle](data)
	default:
		return Unknown{Name: head.Action}, nil
	}
}

func decodeAs[T Message](data []byte) (Message, error) {
	var msg T
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", msg.Action(), err)
	}
	return msg, nil
}

// Encode serializes msg with its action field, as Decode expects it.
func Encode(msg Message) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	action, _ := json.Marshal(msg.Action())
	fields["action"] = action
	return json.Marshal(fields)
}
