package session

import (
	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/spotify"
	"github.com/satindergrewal/chillatc/internal/waveform"
)

// ATCStatus describes the broadcast side.
type ATCStatus struct {
	Attached      bool    `json:"attached"`
	Playing       bool    `json:"playing"`
	Volume        float64 `json:"volume"`
	Stream        string  `json:"stream,omitempty"`
	Switching     bool    `json:"switching"`
	ListenSeconds float64 `json:"listen_seconds"`
}

// WaveStatus is one source's wave shape, enough to redraw it elsewhere.
type WaveStatus struct {
	Params    waveform.Params `json:"params"`
	Amplitude float64         `json:"amplitude"`
	Frequency float64         `json:"frequency"`
	Volume    float64         `json:"volume"`
}

// Status is a point-in-time view of the session.
type Status struct {
	ATC         ATCStatus                       `json:"atc"`
	Spotify     spotify.Snapshot                `json:"spotify"`
	BothPlaying bool                            `json:"both_playing"`
	Waves       map[playstate.Source]WaveStatus `json:"waves"`
	Width       int                             `json:"width"`
	Height      int                             `json:"height"`
	Frames      uint64                          `json:"frames"`
}

// Status snapshots the session.
func (s *Session) Status() Status {
	st := Status{
		ATC: ATCStatus{
			Attached:      s.atc.Attached(),
			Playing:       s.atc.Playing(),
			Volume:        s.atc.Volume(),
			Stream:        s.atc.Source(),
			Switching:     s.atc.Guard().Active(),
			ListenSeconds: s.listen.Total(),
		},
		Spotify:     s.spotify.Snapshot(),
		BothPlaying: s.reporter.Playing(),
		Waves:       make(map[playstate.Source]WaveStatus, 2),
		Frames:      s.renderer.Frames(),
	}
	st.Width, st.Height = s.renderer.Size()
	vols := map[playstate.Source]float64{
		playstate.ATC:       s.atc.Volume(),
		playstate.Streaming: s.spotify.Volume(),
	}
	for src, vol := range vols {
		p, _ := s.renderer.Params(src)
		amp, freq, _ := s.renderer.Scales(src)
		st.Waves[src] = WaveStatus{Params: p, Amplitude: amp, Frequency: freq, Volume: vol}
	}
	return st
}
