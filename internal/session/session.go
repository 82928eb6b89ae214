// Package session composes the two trackers, the sync reporter and the
// waveform renderer behind the host channel.
package session

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/atc"
	"github.com/satindergrewal/chillatc/internal/catalog"
	"github.com/satindergrewal/chillatc/internal/config"
	"github.com/satindergrewal/chillatc/internal/host"
	"github.com/satindergrewal/chillatc/internal/logging"
	"github.com/satindergrewal/chillatc/internal/media"
	"github.com/satindergrewal/chillatc/internal/playstate"
	"github.com/satindergrewal/chillatc/internal/reporter"
	"github.com/satindergrewal/chillatc/internal/sched"
	"github.com/satindergrewal/chillatc/internal/spotify"
	"github.com/satindergrewal/chillatc/internal/waveform"
)

// Outbound channel names.
const (
	ChanATCPlaying       = "atc_playing"
	ChanSpotifyPlaying   = "spotify_playing"
	ChanBothPlaying      = "both_playing"
	ChanDeviceID         = "device_id"
	ChanCurrentTrack     = "current_track"
	ChanTrackProgress    = "track_progress"
	ChanPlaylistPosition = "playlist_position"
	ChanATCListenSeconds = "atc_listen_seconds"
	ChanSDKRequest       = "sdk_request"
	ChanCatalog          = "catalog"
)

// Sender delivers outbound messages to the host. *host.Link satisfies it.
type Sender interface {
	Send(channel string, payload any) error
}

// Options supplies the session's collaborators. Player and Control
// default to the host-proxied SDK player and the Web API client.
type Options struct {
	Element media.Element
	Catalog *catalog.Store
	Sched   sched.Scheduler
	Sender  Sender
	Player  spotify.Player
	Control spotify.ControlSurface
	Log     zerolog.Logger
}

// Session owns every tracker and timer of one listening session. All
// methods must run on the scheduler's thread.
type Session struct {
	cfg     config.Config
	sched   sched.Scheduler
	sender  Sender
	catalog *catalog.Store
	log     zerolog.Logger

	atc      *atc.Tracker
	listen   *atc.ListenTimer
	remote   *spotify.RemotePlayer
	tokens   *spotify.TokenStore
	spotify  *spotify.Tracker
	reporter *reporter.Reporter
	renderer *waveform.Renderer
	router   *host.Router

	group     sched.Group
	started   bool
	closeOnce sync.Once
}

// New builds a session. Nothing runs until Start.
func New(cfg config.Config, opts Options) *Session {
	if opts.Catalog == nil {
		opts.Catalog = catalog.NewStore(nil)
	}
	s := &Session{
		cfg:     cfg,
		sched:   opts.Sched,
		sender:  opts.Sender,
		catalog: opts.Catalog,
		log:     logging.Component(opts.Log, "session"),
		tokens:  &spotify.TokenStore{},
	}
	s.tokens.Set(cfg.SpotifyToken)

	if opts.Element != nil {
		opts.Element.SetVolume(cfg.StreamVolume)
	}
	s.atc = atc.NewTracker(opts.Element, s.sched, s.emitter(ChanATCPlaying), atc.Options{
		PollInterval: cfg.ATCPollInterval,
		GuardWindow:  cfg.SwitchGuardWindow,
	}, logging.Component(opts.Log, "atc"))

	s.listen = atc.NewListenTimer(s.sched, s.atc.Listening(), cfg.ListenTickInterval, cfg.ListenReportInterval, func(secs int) {
		s.send(ChanATCListenSeconds, secs)
	})

	player := opts.Player
	if player == nil {
		s.remote = spotify.NewRemotePlayer(func(r spotify.Request) error {
			return s.sender.Send(ChanSDKRequest, r)
		}, cfg.SDKTimeout)
		player = s.remote
	}
	control := opts.Control
	if control == nil {
		control = spotify.NewWebAPI(cfg.SpotifyAPIURL, s.tokens, cfg.ControlTimeout)
	}
	s.spotify = spotify.NewTracker(player, control, s.sched, spotify.Outputs{
		Playing:      s.emitter(ChanSpotifyPlaying),
		DeviceID:     func(id string) { s.send(ChanDeviceID, id) },
		Track:        func(ti spotify.TrackInfo) { s.send(ChanCurrentTrack, ti) },
		Progress:     func(p spotify.Progress) { s.send(ChanTrackProgress, p) },
		Position:     func(p spotify.PlaylistPosition) { s.send(ChanPlaylistPosition, p) },
		TrackChanged: func() { s.renderer.Reset(playstate.Streaming) },
	}, spotify.Options{
		PollInterval: cfg.PositionPollInterval,
		CallTimeout:  cfg.ControlTimeout,
		Volume:       cfg.SpotifyVolume,
	}, logging.Component(opts.Log, "spotify"))

	s.reporter = reporter.New(s.atc, s.spotify, cfg.SyncInterval, s.emitter(ChanBothPlaying),
		logging.Component(opts.Log, "sync"))

	pal := waveform.Theme(cfg.Theme).Palette()
	s.renderer = waveform.NewRenderer(waveform.Options{
		Width:         cfg.CanvasWidth,
		Height:        cfg.CanvasHeight,
		Smoothing:     cfg.Smoothing,
		IdleAmplitude: cfg.IdleAmplitude,
		IdleFrequency: cfg.IdleFrequency,
		Background:    pal.Background,
	},
		waveform.Layer{Source: playstate.ATC, Playing: s.atc, Volume: s.atc, Dark: pal.ATCDark, Light: pal.ATCLight},
		waveform.Layer{Source: playstate.Streaming, Playing: s.spotify, Volume: s.spotify, Dark: pal.SpotifyDark, Light: pal.SpotifyLight},
	)

	s.router = host.NewRouter(logging.Component(opts.Log, "router"))
	s.routes()
	return s
}

// Start schedules the sync reporter and the listen timer.
func (s *Session) Start() {
	if s.started {
		return
	}
	s.started = true
	s.group.Track(s.reporter.Start(s.sched))
	s.listen.Start(&s.group)
	s.group.Add(s.atc.Detach)
	s.group.Add(s.spotify.Stop)
	s.log.Info().Dur("sync_interval", s.cfg.SyncInterval).Msg("session started")
}

// Close cancels every task and listener. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.group.Stop()
		s.log.Info().Float64("atc_listen_total", s.listen.Total()).Msg("session closed")
	})
}

// Handle routes one inbound message.
func (s *Session) Handle(m host.Message) error {
	return s.router.Dispatch(m)
}

// Resync replays what a newly connected host has missed: the last
// emitted playing flags, the spotify device and track, and the catalog.
// Flags never emitted are left to their first change.
func (s *Session) Resync() {
	flags := []struct {
		channel string
		emitted func() (bool, bool)
	}{
		{ChanATCPlaying, s.atc.Emitted},
		{ChanSpotifyPlaying, s.spotify.Emitted},
		{ChanBothPlaying, s.reporter.Emitted},
	}
	for _, f := range flags {
		if v, ok := f.emitted(); ok {
			s.send(f.channel, v)
		}
	}
	snap := s.spotify.Snapshot()
	if snap.DeviceID != "" {
		s.send(ChanDeviceID, snap.DeviceID)
	}
	if snap.Track != nil {
		s.send(ChanCurrentTrack, *snap.Track)
	}
	if snap.Position != nil {
		s.send(ChanPlaylistPosition, *snap.Position)
	}
	s.SendCatalog()
}

// SendCatalog publishes the current catalog to the host.
func (s *Session) SendCatalog() {
	s.send(ChanCatalog, s.catalog.Get())
}

func (s *Session) ATC() *atc.Tracker            { return s.atc }
func (s *Session) Spotify() *spotify.Tracker    { return s.spotify }
func (s *Session) Reporter() *reporter.Reporter { return s.reporter }
func (s *Session) Renderer() *waveform.Renderer { return s.renderer }
func (s *Session) Tokens() *spotify.TokenStore  { return s.tokens }
func (s *Session) Router() *host.Router         { return s.router }

func (s *Session) emitter(channel string) func(bool) {
	return func(v bool) { s.send(channel, v) }
}

func (s *Session) send(channel string, payload any) {
	if s.sender == nil {
		return
	}
	s.sender.Send(channel, payload)
}
