package spotify

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownEvent is returned by DecodeEvent for an unrecognised type.
var ErrUnknownEvent = errors.New("spotify: unknown event type")

// Event is one SDK callback. The set of variants is closed.
type Event interface {
	event()
}

// Ready carries the device id the SDK registered.
type Ready struct{ DeviceID string }

// NotReady reports that the device went offline.
type NotReady struct{ DeviceID string }

// StateChanged carries a new player state. State is nil when the SDK
// has no information, e.g. after playback moved to another device.
type StateChanged struct{ State *PlaybackState }

type InitializationError struct{ Message string }
type AuthenticationError struct{ Message string }
type AccountError struct{ Message string }
type PlaybackError struct{ Message string }

func (Ready) event()               {}
func (NotReady) event()            {}
func (StateChanged) event()        {}
func (InitializationError) event() {}
func (AuthenticationError) event() {}
func (AccountError) event()        {}
func (PlaybackError) event()       {}

// wireEvent is the spotify_event payload forwarded by the host page.
type wireEvent struct {
	Type     string          `json:"type"`
	DeviceID string          `json:"device_id"`
	Message  string          `json:"message"`
	State    json.RawMessage `json:"state"`
}

// DecodeEvent parses a forwarded SDK callback.
func DecodeEvent(data []byte) (Event, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("spotify: decode event: %w", err)
	}
	switch w.Type {
	case "ready":
		return Ready{DeviceID: w.DeviceID}, nil
	case "not_ready":
		return NotReady{DeviceID: w.DeviceID}, nil
	case "player_state_changed":
		var st *PlaybackState
		if len(w.State) > 0 && string(w.State) != "null" {
			st = &PlaybackState{}
			if err := json.Unmarshal(w.State, st); err != nil {
				return nil, fmt.Errorf("spotify: decode state: %w", err)
			}
		}
		return StateChanged{State: st}, nil
	case "initialization_error":
		return InitializationError{Message: w.Message}, nil
	case "authentication_error":
		return AuthenticationError{Message: w.Message}, nil
	case "account_error":
		return AccountError{Message: w.Message}, nil
	case "playback_error":
		return PlaybackError{Message: w.Message}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, w.Type)
}
