package host

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog"
	"gopkg.in/hraban/opus.v2"

	"github.com/satindergrewal/chillatc/internal/audio"
	"github.com/satindergrewal/chillatc/internal/relay"
)

// DataChannelLabel is the label of the data channel carrying host messages.
const DataChannelLabel = "host"

// WebRTCHandler answers SDP offers. Each peer gets the atc relay as an
// Opus track and may open a "host" data channel that becomes the host
// connection.
type WebRTCHandler struct {
	link    *Link
	relay   *relay.Broadcaster
	bitrate int
	log     zerolog.Logger

	mu    sync.Mutex
	peers map[*webrtc.PeerConnection]chan struct{} // closed when the peer goes away
}

// NewWebRTCHandler creates a handler. relay may be nil for a data-only peer.
func NewWebRTCHandler(link *Link, b *relay.Broadcaster, bitrate int, log zerolog.Logger) *WebRTCHandler {
	if bitrate <= 0 {
		bitrate = 64000
	}
	return &WebRTCHandler{
		link:    link,
		relay:   b,
		bitrate: bitrate,
		log:     log,
		peers:   make(map[*webrtc.PeerConnection]chan struct{}),
	}
}

// PeerCount returns the number of active WebRTC peers.
func (h *WebRTCHandler) PeerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.peers)
}

func (h *WebRTCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	var offer webrtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil || offer.SDP == "" {
		http.Error(w, "invalid SDP offer", http.StatusBadRequest)
		return
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		h.log.Error().Err(err).Msg("create peer connection failed")
		http.Error(w, "create peer connection failed", http.StatusInternalServerError)
		return
	}

	var track *webrtc.TrackLocalStaticSample
	if h.relay != nil {
		track, err = webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
			"audio",
			"chillatc-atc",
		)
		if err != nil {
			pc.Close()
			http.Error(w, "create audio track failed", http.StatusInternalServerError)
			return
		}
		if _, err := pc.AddTrack(track); err != nil {
			pc.Close()
			http.Error(w, "add track failed", http.StatusInternalServerError)
			return
		}
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != DataChannelLabel {
			h.log.Debug().Str("label", dc.Label()).Msg("ignoring data channel")
			return
		}
		h.bindDataChannel(dc)
	})

	if err := pc.SetRemoteDescription(offer); err != nil {
		pc.Close()
		http.Error(w, "set remote description failed", http.StatusBadRequest)
		return
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		http.Error(w, "create answer failed", http.StatusInternalServerError)
		return
	}

	if err := pc.SetLocalDescription(answer); err != nil {
		pc.Close()
		http.Error(w, "set local description failed", http.StatusInternalServerError)
		return
	}

	// Wait for ICE gathering to complete
	<-webrtc.GatheringCompletePromise(pc)

	done := h.addPeer(pc)
	h.log.Info().Int("peers", h.PeerCount()).Msg("webrtc peer connected")

	if track != nil {
		go h.streamToPeer(done, track)
	}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		if s == webrtc.PeerConnectionStateFailed ||
			s == webrtc.PeerConnectionStateClosed ||
			s == webrtc.PeerConnectionStateDisconnected {
			if h.removePeer(pc) {
				pc.Close()
				h.log.Info().Int("peers", h.PeerCount()).Msg("webrtc peer disconnected")
			}
		}
	})

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	json.NewEncoder(w).Encode(pc.LocalDescription())
}

// bindDataChannel makes dc the host connection once it opens.
func (h *WebRTCHandler) bindDataChannel(dc *webrtc.DataChannel) {
	dc.OnOpen(func() {
		peer := h.link.Connect("webrtc")
		dc.OnMessage(func(msg webrtc.DataChannelMessage) {
			h.link.Receive(peer, msg.Data)
		})
		dc.OnClose(func() {
			h.link.Disconnect(peer)
		})
		go func() {
			for {
				select {
				case <-peer.Done():
					dc.Close()
					return
				case data := <-peer.Outbox():
					if err := dc.SendText(string(data)); err != nil {
						h.log.Warn().Err(err).Str("peer", peer.ID).Msg("data channel send failed")
						h.link.Disconnect(peer)
						return
					}
				}
			}
		}()
	})
}

// streamToPeer encodes relay frames onto track until done closes. A closed
// peer's track accepts writes silently, so done is the only reliable exit.
func (h *WebRTCHandler) streamToPeer(done <-chan struct{}, track *webrtc.TrackLocalStaticSample) {
	listener := h.relay.Subscribe()
	defer h.relay.Unsubscribe(listener)

	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		h.log.Error().Err(err).Msg("opus encoder init failed")
		return
	}
	if err := enc.SetBitrate(h.bitrate); err != nil {
		h.log.Warn().Err(err).Int("bitrate", h.bitrate).Msg("opus bitrate rejected")
	}

	opusBuf := make([]byte, 4000)

	for {
		select {
		case <-done:
			return
		case <-listener.Done():
			return
		case frame, ok := <-listener.C:
			if !ok {
				return
			}
			n, err := enc.Encode(frame, opusBuf)
			if err != nil {
				h.log.Warn().Err(err).Msg("opus encode failed")
				continue
			}
			if err := track.WriteSample(media.Sample{
				Data:     opusBuf[:n],
				Duration: audio.FrameDuration,
			}); err != nil {
				return
			}
		}
	}
}

func (h *WebRTCHandler) addPeer(pc *webrtc.PeerConnection) <-chan struct{} {
	done := make(chan struct{})
	h.mu.Lock()
	h.peers[pc] = done
	h.mu.Unlock()
	return done
}

// removePeer drops pc, stops its audio, and reports whether it was still
// tracked.
func (h *WebRTCHandler) removePeer(pc *webrtc.PeerConnection) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	done, ok := h.peers[pc]
	if !ok {
		return false
	}
	delete(h.peers, pc)
	close(done)
	return true
}

// Close tears down every peer.
func (h *WebRTCHandler) Close() {
	h.mu.Lock()
	peers := h.peers
	h.peers = make(map[*webrtc.PeerConnection]chan struct{})
	h.mu.Unlock()
	for pc, done := range peers {
		close(done)
		pc.Close()
	}
}
