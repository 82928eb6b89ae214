package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satindergrewal/chillatc/internal/catalog"
	"github.com/satindergrewal/chillatc/internal/config"
	"github.com/satindergrewal/chillatc/internal/host"
	"github.com/satindergrewal/chillatc/internal/logging"
	"github.com/satindergrewal/chillatc/internal/media"
	"github.com/satindergrewal/chillatc/internal/relay"
	"github.com/satindergrewal/chillatc/internal/sched"
	"github.com/satindergrewal/chillatc/internal/session"
	"github.com/satindergrewal/chillatc/internal/waveform"
	"github.com/satindergrewal/chillatc/internal/web"
)

type hostStatus struct {
	Connected      bool   `json:"connected"`
	Transport      string `json:"transport,omitempty"`
	Dropped        uint64 `json:"dropped"`
	WebRTCPeers    int    `json:"webrtc_peers"`
	RelayListeners int    `json:"relay_listeners"`
	RelayFrames    uint64 `json:"relay_frames"`
}

type statusResponse struct {
	session.Status
	Host hostStatus `json:"host"`
}

func main() {
	cfg := config.Load()
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogPretty)
	log := logging.Component(logger, "main")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info().Msg("chillatc starting up...")

	// Session loop: every tracker callback runs here. It outlives ctx so
	// the session can be closed on it during shutdown.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	loop := sched.NewLoop(0)
	go loop.Run(loopCtx)

	// Catalog of streams and playlists, hot-reloaded
	var cat *catalog.Catalog
	if cfg.CatalogPath != "" {
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			log.Warn().Err(err).Msg("catalog not loaded, starting empty")
		}
		cat = c
	}
	store := catalog.NewStore(cat)
	log.Info().
		Strs("streams", store.Get().StreamNames()).
		Strs("playlists", store.Get().PlaylistNames()).
		Msg("catalog loaded")

	// Broadcaster: fan-out atc PCM frames to WebRTC and MP3 listeners
	broadcaster := relay.NewBroadcaster()

	element := media.NewStreamElement(media.StreamOptions{
		Sink:     broadcaster,
		Dispatch: func(fn func()) { loop.Post(fn) },
		Volume:   cfg.StreamVolume,
		Log:      logging.Component(logger, "media"),
	})
	defer element.Close()

	link := host.NewLink(host.Namespace(cfg.Namespace), host.DefaultOutbox, logging.Component(logger, "host"))
	sess := session.New(cfg, session.Options{
		Element: element,
		Catalog: store,
		Sched:   loop,
		Sender:  link,
		Log:     logger,
	})
	loop.Post(sess.Start)
	log.Debug().Strs("channels", sess.Router().Channels()).Msg("host commands registered")

	link.OnMessage(func(m host.Message) {
		loop.Post(func() { sess.Handle(m) })
	})
	link.OnConnect(func(*host.Peer) {
		loop.Post(sess.Resync)
	})

	if cfg.CatalogPath != "" {
		watcher, err := catalog.NewWatcher(cfg.CatalogPath, store, func(*catalog.Catalog) {
			loop.Post(sess.SendCatalog)
		}, logging.Component(logger, "catalog"))
		if err != nil {
			log.Warn().Err(err).Msg("catalog watch disabled")
		} else {
			defer watcher.Close()
		}
	}

	// Waveform frame loop
	animator := waveform.NewAnimator(sess.Renderer(), cfg.FrameRate, logging.Component(logger, "waveform"))
	go animator.Run(ctx)

	webrtcHandler := host.NewWebRTCHandler(link, broadcaster, cfg.OpusBitrate, logging.Component(logger, "webrtc"))
	defer webrtcHandler.Close()

	// HTTP routes
	mux := http.NewServeMux()

	// Web UI
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write(web.IndexHTML)
	})

	// Host transports
	mux.Handle("/ws", host.NewWebSocketHandler(link, nil, logging.Component(logger, "websocket")))
	mux.Handle("/offer", webrtcHandler)

	// Plain MP3 relay of the atc stream
	mux.Handle("/atc.mp3", relay.NewHTTPHandler(broadcaster, cfg.FFmpegPath, cfg.MP3Bitrate, logging.Component(logger, "relay")))

	// API endpoints
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		var resp statusResponse
		if err := loop.Do(r.Context(), func() { resp.Status = sess.Status() }); err != nil {
			http.Error(w, "session unavailable", http.StatusServiceUnavailable)
			return
		}
		resp.Host = hostStatus{
			Connected:      link.Connected(),
			WebRTCPeers:    webrtcHandler.PeerCount(),
			RelayListeners: broadcaster.ListenerCount(),
			RelayFrames:    broadcaster.Frames(),
		}
		if p := link.Current(); p != nil {
			resp.Host.Transport = p.Transport
			resp.Host.Dropped = p.Dropped()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(resp)
	})

	mux.HandleFunc("/api/waveform.png", func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := sess.Renderer().WritePNG(&buf); err != nil {
			http.Error(w, "encode failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Write(buf.Bytes())
	})

	mux.HandleFunc("/api/catalog", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		json.NewEncoder(w).Encode(store.Get())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := loop.Do(shutdownCtx, sess.Close); err != nil {
			log.Warn().Err(err).Msg("session close")
		}
		server.Close()
	}()

	log.Info().Str("addr", addr).Msg("chillatc live")
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server error")
	}
}
