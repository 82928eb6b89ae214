// Package spotify tracks the Web Playback SDK player and drives the
// streaming side of the session.
package spotify

// PlaybackState is the SDK's player state as delivered to
// player_state_changed listeners and getCurrentState.
type PlaybackState struct {
	Context     Context     `json:"context"`
	Paused      bool        `json:"paused"`
	Position    int64       `json:"position"`
	Duration    int64       `json:"duration"`
	Shuffle     bool        `json:"shuffle"`
	RepeatMode  int         `json:"repeat_mode"`
	TrackWindow TrackWindow `json:"track_window"`
}

type Context struct {
	URI string `json:"uri"`
}

type TrackWindow struct {
	CurrentTrack   *Track  `json:"current_track"`
	PreviousTracks []Track `json:"previous_tracks"`
	NextTracks     []Track `json:"next_tracks"`
}

type Track struct {
	URI        string   `json:"uri"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DurationMs int64    `json:"duration_ms"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
}

type Artist struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

type Album struct {
	URI    string  `json:"uri"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// TrackInfo is the current_track payload.
type TrackInfo struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	Album    string `json:"album"`
	Image    string `json:"image"`
	Duration int64  `json:"duration"`
	Position int64  `json:"position"`
}

// Progress is the track_progress payload, in milliseconds.
type Progress struct {
	Position int64 `json:"position"`
	Duration int64 `json:"duration"`
}

// PlaylistPosition is the playlist_position payload. Index is zero-based.
type PlaylistPosition struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// Current returns the current track's info, or false if there is none.
func (s *PlaybackState) Current() (TrackInfo, bool) {
	if s == nil || s.TrackWindow.CurrentTrack == nil {
		return TrackInfo{}, false
	}
	tr := s.TrackWindow.CurrentTrack
	info := TrackInfo{
		URI:      tr.URI,
		Name:     tr.Name,
		Album:    tr.Album.Name,
		Duration: s.Duration,
		Position: s.Position,
	}
	if len(tr.Artists) > 0 {
		info.Artist = tr.Artists[0].Name
	}
	if len(tr.Album.Images) > 0 {
		info.Image = tr.Album.Images[0].URL
	}
	return info, true
}

// PlaylistPosition derives the position within the visible track window.
func (s *PlaybackState) PlaylistPosition() (PlaylistPosition, bool) {
	if s == nil || s.TrackWindow.CurrentTrack == nil {
		return PlaylistPosition{}, false
	}
	prev := len(s.TrackWindow.PreviousTracks)
	return PlaylistPosition{
		Index: prev,
		Total: prev + len(s.TrackWindow.NextTracks) + 1,
	}, true
}
