package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/satindergrewal/chillatc/internal/catalog"
	"github.com/satindergrewal/chillatc/internal/host"
	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/spotify"
)

// Inbound channel names.
const (
	ChanInitAudio         = "init_audio"
	ChanUpdateStream      = "update_stream"
	ChanSelectStream      = "select_stream"
	ChanPlayToggle        = "play_toggle"
	ChanSetVolume         = "set_volume"
	ChanPlaybackControl   = "playback_control"
	ChanSpotifyPlayToggle = "spotify_play_toggle"
	ChanRestartPlaylist   = "restart_playlist"
	ChanSetPlaylistURI    = "set_playlist_uri"
	ChanSpotifyToken      = "spotify_token"
	ChanSpotifyEvent      = "spotify_event"
	ChanSDKResult         = "sdk_result"
	ChanResetWaveform     = "reset_waveform"
	ChanResizeWaveform    = "resize_waveform"
)

var (
	ErrBadPayload    = errors.New("session: bad payload")
	ErrUnknownSource = errors.New("session: unknown source")
)

func (s *Session) routes() {
	r := s.router
	r.Handle(ChanInitAudio, func(json.RawMessage) error { return s.initAudio() })
	r.Handle(ChanUpdateStream, s.onUpdateStream)
	r.Handle(ChanSelectStream, s.onSelectStream)
	r.Handle(ChanPlayToggle, func(json.RawMessage) error {
		s.atc.PlayToggle()
		return nil
	})
	r.Handle(ChanSetVolume, s.onSetVolume)
	r.Handle(ChanPlaybackControl, s.onPlaybackControl)
	r.Handle(ChanSpotifyPlayToggle, func(json.RawMessage) error { return s.spotify.PlayToggle() })
	r.Handle(ChanRestartPlaylist, func(json.RawMessage) error { return s.spotify.RestartPlaylist() })
	r.Handle(ChanSetPlaylistURI, s.onSetPlaylistURI)
	r.Handle(ChanSpotifyToken, s.onSpotifyToken)
	r.Handle(ChanSpotifyEvent, s.onSpotifyEvent)
	r.Handle(ChanSDKResult, s.onSDKResult)
	r.Handle(ChanResetWaveform, s.onResetWaveform)
	r.Handle(ChanResizeWaveform, s.onResizeWaveform)
}

func decode(channel string, raw json.RawMessage, v any) error {
	if err := (host.Message{Channel: channel, Payload: raw}).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}

// ParseSource maps a host source name to a Source. "spotify" is accepted
// for the streaming source.
func ParseSource(name string) (playstate.Source, error) {
	switch name {
	case "atc":
		return playstate.ATC, nil
	case "spotify", "streaming":
		return playstate.Streaming, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// initAudio attaches the atc listeners and loads the default stream when
// the element has no source yet.
func (s *Session) initAudio() error {
	if !s.atc.Attach() {
		return nil
	}
	if s.atc.Source() != "" || s.cfg.DefaultStream == "" {
		return nil
	}
	url, err := s.catalog.Get().Stream(s.cfg.DefaultStream)
	if err != nil {
		s.log.Warn().Err(err).Str("stream", s.cfg.DefaultStream).Msg("default stream not in catalog")
		return nil
	}
	return s.switchStream(url)
}

func (s *Session) switchStream(url string) error {
	if err := s.atc.UpdateStream(url); err != nil {
		return err
	}
	s.renderer.Reset(playstate.ATC)
	return nil
}

func (s *Session) onUpdateStream(raw json.RawMessage) error {
	var p struct {
		URL string `json:"url"`
	}
	if err := decode(ChanUpdateStream, raw, &p); err != nil {
		return err
	}
	if p.URL == "" {
		return fmt.Errorf("%w: missing url", ErrBadPayload)
	}
	return s.switchStream(p.URL)
}

func (s *Session) onSelectStream(raw json.RawMessage) error {
	var p struct {
		Name string `json:"name"`
	}
	if err := decode(ChanSelectStream, raw, &p); err != nil {
		return err
	}
	url, err := s.catalog.Get().Stream(p.Name)
	if err != nil {
		return err
	}
	return s.switchStream(url)
}

func (s *Session) onSetVolume(raw json.RawMessage) error {
	var p struct {
		Source string   `json:"source"`
		Volume *float64 `json:"volume"`
	}
	if err := decode(ChanSetVolume, raw, &p); err != nil {
		return err
	}
	if p.Volume == nil {
		return fmt.Errorf("%w: missing volume", ErrBadPayload)
	}
	src, err := ParseSource(p.Source)
	if err != nil {
		return err
	}
	if src == playstate.ATC {
		s.atc.SetVolume(*p.Volume)
		return nil
	}
	return s.spotify.SetVolume(*p.Volume)
}

func (s *Session) onPlaybackControl(raw json.RawMessage) error {
	var p struct {
		Action string `json:"action"`
	}
	if err := decode(ChanPlaybackControl, raw, &p); err != nil {
		return err
	}
	return s.spotify.Control(p.Action)
}

func (s *Session) onSetPlaylistURI(raw json.RawMessage) error {
	var p struct {
		URI  string `json:"uri"`
		Name string `json:"name"`
	}
	if err := decode(ChanSetPlaylistURI, raw, &p); err != nil {
		return err
	}
	var uri string
	switch {
	case p.URI != "":
		uri = catalog.PlaylistURI(p.URI)
		if uri == "" {
			return fmt.Errorf("%w: bad playlist uri %q", ErrBadPayload, p.URI)
		}
	case p.Name != "":
		var err error
		if uri, err = s.catalog.Get().Playlist(p.Name); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: missing uri or name", ErrBadPayload)
	}
	if uri == s.spotify.PlaylistURI() {
		return nil
	}
	s.spotify.SetPlaylistURI(uri)
	s.renderer.Reset(playstate.Streaming)
	return nil
}

func (s *Session) onSpotifyToken(raw json.RawMessage) error {
	var p struct {
		Token string `json:"token"`
	}
	if err := decode(ChanSpotifyToken, raw, &p); err != nil {
		return err
	}
	s.tokens.Set(p.Token)
	s.log.Debug().Bool("present", p.Token != "").Msg("spotify token updated")
	return nil
}

func (s *Session) onSpotifyEvent(raw json.RawMessage) error {
	ev, err := spotify.DecodeEvent(raw)
	if err != nil {
		return err
	}
	s.spotify.Dispatch(ev)
	return nil
}

func (s *Session) onSDKResult(raw json.RawMessage) error {
	var r spotify.Result
	if err := decode(ChanSDKResult, raw, &r); err != nil {
		return err
	}
	if s.remote == nil || !s.remote.Resolve(r) {
		s.log.Debug().Str("id", r.ID).Msg("sdk result for unknown request")
	}
	return nil
}

func (s *Session) onResetWaveform(raw json.RawMessage) error {
	var p struct {
		Source string `json:"source"`
	}
	if err := decode(ChanResetWaveform, raw, &p); err != nil {
		return err
	}
	src, err := ParseSource(p.Source)
	if err != nil {
		return err
	}
	return s.renderer.Reset(src)
}

func (s *Session) onResizeWaveform(raw json.RawMessage) error {
	var p struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	}
	if err := decode(ChanResizeWaveform, raw, &p); err != nil {
		return err
	}
	return s.renderer.Resize(p.Width, p.Height)
}
