package spotify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/sched"
)

// Outputs receives the tracker's notifications. Nil fields are skipped.
type Outputs struct {
	Playing      func(bool)
	DeviceID     func(string)
	Track        func(TrackInfo)
	Progress     func(Progress)
	Position     func(PlaylistPosition)
	TrackChanged func()
}

// Options tunes the tracker.
type Options struct {
	PollInterval time.Duration // position poll while playing
	CallTimeout  time.Duration // per SDK or API call
	Volume       float64       // initial SDK volume, clamped to [0,1]; 0 is muted
}

// Snapshot is a copy of the tracker's state for status reporting.
type Snapshot struct {
	Ready       bool              `json:"ready"`
	DeviceID    string            `json:"device_id,omitempty"`
	Playing     bool              `json:"playing"`
	Volume      float64           `json:"volume"`
	PlaylistURI string            `json:"playlist_uri,omitempty"`
	Track       *TrackInfo        `json:"track,omitempty"`
	Position    *PlaylistPosition `json:"playlist_position,omitempty"`
}

// Tracker follows the SDK player through its events. All methods except
// Playing and Volume must run on the scheduler's thread.
type Tracker struct {
	player  Player
	control ControlSurface
	sched   sched.Scheduler
	log     zerolog.Logger
	out     Outputs
	opts    Options

	gate   *playstate.Gate
	volume *playstate.Volume

	ready       bool
	deviceID    string
	playlistURI string

	track    TrackInfo
	hasTrack bool
	position PlaylistPosition
	hasPos   bool

	poll     *sched.Task
	inflight bool
}

// NewTracker creates a tracker that is not ready until a Ready event.
func NewTracker(p Player, c ControlSurface, s sched.Scheduler, out Outputs, opts Options, log zerolog.Logger) *Tracker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = time.Second
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 10 * time.Second
	}
	return &Tracker{
		player:  p,
		control: c,
		sched:   s,
		log:     log,
		out:     out,
		opts:    opts,
		gate:    playstate.NewGate(out.Playing),
		volume:  playstate.NewVolume(opts.Volume),
	}
}

// Playing returns the last-known state. Safe from any goroutine.
func (t *Tracker) Playing() bool { return t.gate.Playing() }

// Emitted returns the last value sent downstream, if any.
func (t *Tracker) Emitted() (value, ok bool) { return t.gate.Emitted() }

// Volume returns the last volume applied to the SDK. Safe from any goroutine.
func (t *Tracker) Volume() float64 { return t.volume.Volume() }

// Ready reports whether the SDK device is connected.
func (t *Tracker) Ready() bool { return t.ready }

// DeviceID returns the SDK device id, "" before the first Ready.
func (t *Tracker) DeviceID() string { return t.deviceID }

// SetPlaylistURI sets the context that toggles and restarts target.
func (t *Tracker) SetPlaylistURI(uri string) {
	t.playlistURI = uri
	t.log.Info().Str("uri", uri).Msg("playlist selected")
}

// PlaylistURI returns the target context.
func (t *Tracker) PlaylistURI() string { return t.playlistURI }

// Snapshot copies the tracker's state.
func (t *Tracker) Snapshot() Snapshot {
	s := Snapshot{
		Ready:       t.ready,
		DeviceID:    t.deviceID,
		Playing:     t.gate.Playing(),
		Volume:      t.volume.Volume(),
		PlaylistURI: t.playlistURI,
	}
	if t.hasTrack {
		tr := t.track
		s.Track = &tr
	}
	if t.hasPos {
		p := t.position
		s.Position = &p
	}
	return s
}

// Dispatch consumes one SDK event.
func (t *Tracker) Dispatch(ev Event) {
	switch e := ev.(type) {
	case Ready:
		t.onReady(e.DeviceID)
	case NotReady:
		t.ready = false
		t.log.Warn().Str("device_id", e.DeviceID).Msg("spotify device went offline")
	case StateChanged:
		if e.State == nil {
			t.log.Debug().Msg("player state unavailable")
			return
		}
		t.applyState(e.State)
	case InitializationError:
		t.log.Error().Str("kind", "initialization").Msg(e.Message)
	case AuthenticationError:
		t.log.Error().Str("kind", "authentication").Msg(e.Message)
	case AccountError:
		t.log.Error().Str("kind", "account").Msg(e.Message)
	case PlaybackError:
		t.log.Error().Str("kind", "playback").Msg(e.Message)
	default:
		t.log.Warn().Msgf("unhandled spotify event %T", ev)
	}
}

func (t *Tracker) onReady(deviceID string) {
	t.deviceID = deviceID
	t.ready = true
	t.log.Info().Str("device_id", deviceID).Msg("spotify player ready")
	if t.out.DeviceID != nil {
		t.out.DeviceID(deviceID)
	}
	if t.control == nil {
		return
	}
	t.async("transfer playback", func(ctx context.Context) error {
		return t.control.TransferPlayback(ctx, deviceID, false)
	})
}

func (t *Tracker) applyState(st *PlaybackState) {
	t.gate.Set(!st.Paused)
	if info, ok := st.Current(); ok {
		if t.updateTrack(info) && t.out.Track != nil {
			t.out.Track(info)
		}
	}
	t.updatePosition(st)

	if !st.Paused && t.poll == nil {
		t.poll = t.sched.Every(t.opts.PollInterval, t.pollTick)
	}
}

// updateTrack stores info and reports whether the track changed.
func (t *Tracker) updateTrack(info TrackInfo) bool {
	changed := !t.hasTrack || t.track.URI != info.URI
	t.track = info
	t.hasTrack = true
	if changed {
		t.log.Info().Str("track", info.Name).Str("artist", info.Artist).Msg("now playing")
		if t.out.TrackChanged != nil {
			t.out.TrackChanged()
		}
	}
	return changed
}

func (t *Tracker) updatePosition(st *PlaybackState) {
	pos, ok := st.PlaylistPosition()
	if !ok || (t.hasPos && pos == t.position) {
		return
	}
	t.position = pos
	t.hasPos = true
	if t.out.Position != nil {
		t.out.Position(pos)
	}
}

func (t *Tracker) pollTick() {
	if !t.gate.Playing() || t.inflight || t.player == nil {
		return
	}
	t.inflight = true
	t.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.CallTimeout)
		defer cancel()
		st, err := t.player.CurrentState(ctx)
		return func() {
			t.inflight = false
			if err != nil {
				t.log.Warn().Err(err).Msg("position poll failed")
				return
			}
			if st == nil {
				return
			}
			t.applyPoll(st)
		}
	})
}

func (t *Tracker) applyPoll(st *PlaybackState) {
	info, ok := st.Current()
	if !ok {
		return
	}
	t.updateTrack(info)
	if t.out.Track != nil {
		t.out.Track(info)
	}
	if t.out.Progress != nil {
		t.out.Progress(Progress{Position: st.Position, Duration: st.Duration})
	}
	t.updatePosition(st)
}

var controlActions = map[string]bool{"play": true, "pause": true, "next": true, "prev": true}

// Control runs a playback action: play, pause, next or prev.
func (t *Tracker) Control(action string) error {
	if !controlActions[action] {
		t.log.Warn().Str("action", action).Msg("unknown playback action")
		return ErrUnknownAction
	}
	if !t.ready || t.player == nil {
		t.log.Warn().Str("action", action).Msg("spotify player not ready, control dropped")
		return ErrNotReady
	}
	call := t.player.Resume
	switch action {
	case "pause":
		call = t.player.Pause
	case "next":
		call = t.player.NextTrack
	case "prev":
		call = t.player.PreviousTrack
	}
	t.async("playback control "+action, call)
	return nil
}

// SetVolume sets the SDK volume, clamped to [0,1].
func (t *Tracker) SetVolume(v float64) error {
	if !t.ready || t.player == nil {
		t.log.Warn().Float64("volume", v).Msg("spotify player not ready, volume dropped")
		return ErrNotReady
	}
	v = t.volume.Set(v)
	t.async("set volume", func(ctx context.Context) error {
		return t.player.SetVolume(ctx, v)
	})
	return nil
}

type toggleAction int

const (
	startContext toggleAction = iota
	pausePlayback
	resumePlayback
)

// decideToggle picks between starting the target context from the top and
// pausing or resuming the context already loaded.
func decideToggle(st *PlaybackState, target string, playing bool) toggleAction {
	if st == nil || st.TrackWindow.CurrentTrack == nil {
		return startContext
	}
	if st.Context.URI != target {
		return startContext
	}
	if playing {
		return pausePlayback
	}
	return resumePlayback
}

// PlayToggle resumes, pauses or (re)starts the target playlist depending
// on what the SDK is currently playing.
func (t *Tracker) PlayToggle() error {
	if !t.ready || t.player == nil {
		t.log.Warn().Msg("spotify player not ready, toggle dropped")
		return ErrNotReady
	}
	t.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.CallTimeout)
		defer cancel()
		st, err := t.player.CurrentState(ctx)
		return func() {
			if err != nil {
				t.log.Error().Err(err).Msg("read player state for toggle failed")
				return
			}
			switch decideToggle(st, t.playlistURI, t.gate.Playing()) {
			case startContext:
				t.startPlaylist()
			case pausePlayback:
				t.async("pause", t.player.Pause)
			case resumePlayback:
				t.async("resume", t.player.Resume)
			}
		}
	})
	return nil
}

// RestartPlaylist starts the target playlist from its first track.
func (t *Tracker) RestartPlaylist() error {
	if !t.ready {
		t.log.Warn().Msg("spotify player not ready, restart dropped")
		return ErrNotReady
	}
	t.startPlaylist()
	return nil
}

func (t *Tracker) startPlaylist() {
	uri, device := t.playlistURI, t.deviceID
	if uri == "" || device == "" || t.control == nil {
		t.log.Warn().Str("uri", uri).Str("device_id", device).Msg("missing playlist uri or device id")
		return
	}
	t.async("start playlist", func(ctx context.Context) error {
		return t.control.PlayContext(ctx, device, uri, 0)
	})
}

// Stop cancels the position poll.
func (t *Tracker) Stop() {
	t.poll.Stop()
	t.poll = nil
}

// async runs call off the scheduler thread and logs its outcome. Failures
// are never retried.
func (t *Tracker) async(what string, call func(context.Context) error) {
	t.sched.Go(func() func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.opts.CallTimeout)
		defer cancel()
		err := call(ctx)
		return func() {
			if err != nil {
				t.log.Error().Err(err).Msg(what + " failed")
				return
			}
			t.log.Debug().Msg(what + " ok")
		}
	})
}
