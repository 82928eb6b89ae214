package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/audio"
)

// HTTPHandler serves the relay as a chunked MP3 stream for players
// without WebRTC. Each connection runs its own ffmpeg encoder.
type HTTPHandler struct {
	b       *Broadcaster
	ffmpeg  string
	bitrate int // kbps
	log     zerolog.Logger
}

// NewHTTPHandler creates a handler encoding with the ffmpeg binary at
// path, or "ffmpeg" from PATH when empty.
func NewHTTPHandler(b *Broadcaster, ffmpeg string, kbps int, log zerolog.Logger) *HTTPHandler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if kbps <= 0 {
		kbps = 128
	}
	return &HTTPHandler{b: b, ffmpeg: ffmpeg, bitrate: kbps, log: log}
}

func (h *HTTPHandler) args() []string {
	return []string{
		"-f", "s16le",
		"-ar", strconv.Itoa(audio.SampleRate),
		"-ac", strconv.Itoa(audio.Channels),
		"-i", "pipe:0",
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", h.bitrate),
		"-f", "mp3",
		"-fflags", "nobuffer",
		"-flush_packets", "1",
		"-loglevel", "error",
		"pipe:1",
	}
}

func (h *HTTPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	bin, err := exec.LookPath(h.ffmpeg)
	if err != nil {
		h.log.Error().Err(err).Msg("mp3 relay unavailable")
		http.Error(w, "mp3 relay unavailable", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, h.args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		h.log.Error().Err(err).Msg("ffmpeg stdin pipe")
		return
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		h.log.Error().Err(err).Msg("ffmpeg stdout pipe")
		return
	}
	if err := cmd.Start(); err != nil {
		h.log.Error().Err(err).Msg("ffmpeg start")
		http.Error(w, "encoder failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Cache-Control", "no-cache, no-store")
	w.Header().Set("Connection", "close")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("ICY-Name", "chillatc")

	listener := h.b.Subscribe()
	defer h.b.Unsubscribe(listener)

	h.log.Info().Int("listeners", h.b.ListenerCount()).Msg("mp3 listener connected")
	defer h.log.Info().Uint64("dropped", listener.Dropped()).Msg("mp3 listener disconnected")

	go func() {
		defer stdin.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-listener.Done():
				return
			case frame, ok := <-listener.C:
				if !ok {
					return
				}
				if _, err := stdin.Write(audio.SamplesToBytes(frame)); err != nil {
					return
				}
			}
		}
	}()

	buf := make([]byte, 4096)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				break
			}
			flusher.Flush()
		}
		if err != nil {
			if err != io.EOF {
				h.log.Warn().Err(err).Msg("ffmpeg read")
			}
			break
		}
	}
	cancel()
	cmd.Wait()
}
