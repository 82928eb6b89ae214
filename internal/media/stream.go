package media

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/rs/zerolog"

	"github.com/satindergrewal/chillatc/internal/audio"
	"github.com/satindergrewal/chillatc/internal/playstate"
)

const resampleQuality = 4

// FrameSink receives paced 48kHz stereo PCM frames.
type FrameSink interface {
	Publish(frame []int16)
}

// StreamOptions configures a StreamElement.
type StreamOptions struct {
	Client   *http.Client
	Sink     FrameSink
	Dispatch func(func()) // delivers listener callbacks; nil runs them inline
	Volume   float64
	Log      zerolog.Logger
}

// StreamElement is a headless Element playing a live mp3 stream over
// HTTP. Decoded audio is resampled to 48kHz and published one 20ms frame
// per tick to the sink while unpaused.
type StreamElement struct {
	client   *http.Client
	sink     FrameSink
	dispatch func(func())
	log      zerolog.Logger
	volume   *playstate.Volume
	events   listenerSet

	mu     sync.Mutex
	src    string
	paused bool
	ready  ReadyState
	gen    int
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamElement returns a paused element with no source.
func NewStreamElement(opts StreamOptions) *StreamElement {
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: 0, // streams are long-lived
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 15 * time.Second,
				DisableCompression:    true,
			},
		}
	}
	dispatch := opts.Dispatch
	if dispatch == nil {
		dispatch = func(fn func()) { fn() }
	}
	return &StreamElement{
		client:   client,
		sink:     opts.Sink,
		dispatch: dispatch,
		log:      opts.Log,
		volume:   playstate.NewVolume(opts.Volume),
		paused:   true,
	}
}

func (e *StreamElement) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

func (e *StreamElement) ReadyState() ReadyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ready
}

func (e *StreamElement) Source() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.src
}

func (e *StreamElement) SetSource(url string) {
	e.mu.Lock()
	e.src = url
	e.mu.Unlock()
}

func (e *StreamElement) Volume() float64 { return e.volume.Volume() }

func (e *StreamElement) SetVolume(v float64) { e.volume.Set(v) }

func (e *StreamElement) On(ev Event, fn func()) func() {
	return e.events.on(ev, fn)
}

// Load aborts any running fetch and starts fetching the current source.
func (e *StreamElement) Load() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	gen := e.gen
	wasPaused := e.paused
	e.paused = true
	e.ready = HaveNothing
	src := e.src

	var ctx context.Context
	if src != "" {
		ctx, e.cancel = context.WithCancel(context.Background())
	}
	e.mu.Unlock()

	e.emit(EventEmptied)
	if !wasPaused {
		e.emit(EventPause)
	}
	if src == "" {
		e.log.Warn().Err(ErrNoSource).Msg("load without source")
		e.emit(EventError)
		return
	}
	e.emit(EventLoadStart)

	e.wg.Add(1)
	go e.run(ctx, gen, src)
}

// Play unpauses the element, loading the source first if it was never
// loaded.
func (e *StreamElement) Play() error {
	e.mu.Lock()
	if e.src == "" {
		e.mu.Unlock()
		return ErrNoSource
	}
	needsLoad := e.gen == 0
	e.mu.Unlock()

	if needsLoad {
		e.Load()
	}

	e.mu.Lock()
	wasPaused := e.paused
	e.paused = false
	ready := e.ready
	e.mu.Unlock()

	if wasPaused {
		e.emit(EventPlay)
		if ready >= HaveCurrentData {
			e.emit(EventPlaying)
		}
	}
	return nil
}

func (e *StreamElement) Pause() {
	e.mu.Lock()
	wasPaused := e.paused
	e.paused = true
	e.mu.Unlock()
	if !wasPaused {
		e.emit(EventPause)
	}
}

// Close stops any running fetch and waits for it to exit.
func (e *StreamElement) Close() {
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.gen++
	e.mu.Unlock()
	e.wg.Wait()
}

func (e *StreamElement) emit(ev Event) {
	e.dispatch(func() { e.events.fire(ev) })
}

// current reports whether gen is still the active load.
func (e *StreamElement) current(gen int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *StreamElement) run(ctx context.Context, gen int, src string) {
	defer e.wg.Done()

	err := e.play(ctx, gen, src)
	if !e.current(gen) || errors.Is(err, context.Canceled) {
		return
	}

	e.mu.Lock()
	wasPaused := e.paused
	e.paused = true
	e.ready = HaveNothing
	e.mu.Unlock()

	if !wasPaused {
		e.emit(EventPause)
	}
	if err != nil {
		e.log.Error().Err(err).Str("url", src).Msg("stream failed")
		e.emit(EventError)
		return
	}
	e.log.Info().Str("url", src).Msg("stream ended")
	e.emit(EventEnded)
}

func (e *StreamElement) play(ctx context.Context, gen int, src string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	streamer, format, err := mp3.Decode(resp.Body)
	if err != nil {
		resp.Body.Close()
		return fmt.Errorf("decode mp3: %w", err)
	}
	defer streamer.Close()

	e.log.Debug().
		Str("url", src).
		Int("sample_rate", int(format.SampleRate)).
		Msg("stream decoded")

	if !e.advance(gen, HaveMetadata) {
		return context.Canceled
	}

	resampled := beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(audio.SampleRate), streamer)
	return e.pump(ctx, gen, resampled)
}

// pump paces decoded audio out to the sink at real-time rate.
func (e *StreamElement) pump(ctx context.Context, gen int, s beep.Streamer) error {
	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	buf := make([][2]float64, audio.FrameSize)
	pcm := make([]int16, 0, audio.FrameSamples)
	var framer audio.Framer

	// Buffer one frame up front so the element reports playable before
	// the first tick, the way a browser does after canplay.
	n, ok := s.Stream(buf)
	if n > 0 && !e.advance(gen, HaveEnoughData) {
		return context.Canceled
	}

	for {
		if !ok {
			if err := s.Err(); err != nil {
				return fmt.Errorf("stream audio: %w", err)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if e.Paused() {
			continue
		}

		pcm = audio.FromFloat(pcm[:0], buf[:n], e.volume.Volume())
		if e.sink != nil {
			for _, frame := range framer.Push(pcm) {
				e.sink.Publish(frame)
			}
		}
		n, ok = s.Stream(buf)
	}
}

// advance raises the ready state for the active load and fires the
// matching events. Returns false if the load was superseded.
func (e *StreamElement) advance(gen int, rs ReadyState) bool {
	e.mu.Lock()
	if e.gen != gen {
		e.mu.Unlock()
		return false
	}
	prev := e.ready
	if rs > prev {
		e.ready = rs
	}
	paused := e.paused
	e.mu.Unlock()

	if prev < HaveCurrentData && rs >= HaveCurrentData {
		e.emit(EventCanPlay)
		if !paused {
			e.emit(EventPlaying)
		}
	}
	return true
}
