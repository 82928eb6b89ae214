package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port      int
	Namespace string // prefix for host channel names, "" for none

	// Logging
	LogLevel  string
	LogPretty bool

	// Catalog of ATC streams and playlists
	CatalogPath   string
	DefaultStream string // catalog stream name loaded on init_audio

	// Reconciliation cadence
	ATCPollInterval      time.Duration // broadcast failure-safety poll
	PositionPollInterval time.Duration // streaming position poll
	SyncInterval         time.Duration // both_playing recheck
	SwitchGuardWindow    time.Duration // suppression after a stream swap
	ListenTickInterval   time.Duration // listen timer accumulation step
	ListenReportInterval time.Duration // atc_listen_seconds report period

	// Waveform
	Smoothing     float64 // per-frame easing factor
	IdleAmplitude float64 // amplitude scale when not playing
	IdleFrequency float64 // frequency scale when not playing
	FrameRate     int
	CanvasWidth   int
	CanvasHeight  int
	Theme         Theme

	// Streaming provider
	SpotifyAPIURL  string
	SpotifyToken   string
	SDKTimeout     time.Duration // RemotePlayer request timeout
	ControlTimeout time.Duration // Web API call timeout

	// Broadcast relay
	StreamVolume  float64 // initial atc element volume
	SpotifyVolume float64 // initial SDK volume
	OpusBitrate   int
	FFmpegPath    string // encoder for the /atc.mp3 relay
	MP3Bitrate    int    // kbps
}

// Theme holds the waveform palette as hex strings.
type Theme struct {
	Background   string
	ATCDark      string
	ATCLight     string
	SpotifyDark  string
	SpotifyLight string
}

// Load reads configuration from environment variables with sane defaults.
func Load() Config {
	return Config{
		Port:      envInt("CHILLATC_PORT", 8080),
		Namespace: envStr("CHILLATC_NAMESPACE", ""),

		LogLevel:  envStr("CHILLATC_LOG_LEVEL", "info"),
		LogPretty: envBool("CHILLATC_LOG_PRETTY", true),

		CatalogPath:   envStr("CHILLATC_CATALOG", "resources/config.yml"),
		DefaultStream: envStr("CHILLATC_STREAM", ""),

		ATCPollInterval:      envDuration("CHILLATC_ATC_POLL", 2*time.Second),
		PositionPollInterval: envDuration("CHILLATC_POSITION_POLL", time.Second),
		SyncInterval:         envDuration("CHILLATC_SYNC_INTERVAL", time.Second),
		SwitchGuardWindow:    envDuration("CHILLATC_SWITCH_GUARD", 300*time.Millisecond),
		ListenTickInterval:   envDuration("CHILLATC_LISTEN_TICK", time.Second),
		ListenReportInterval: envDuration("CHILLATC_LISTEN_REPORT", 60*time.Second),

		Smoothing:     envFloat("CHILLATC_WAVE_SMOOTHING", 0.05),
		IdleAmplitude: envFloat("CHILLATC_WAVE_IDLE_AMP", 0.2),
		IdleFrequency: envFloat("CHILLATC_WAVE_IDLE_FREQ", 0.3),
		FrameRate:     envInt("CHILLATC_WAVE_FPS", 60),
		CanvasWidth:   envInt("CHILLATC_WAVE_WIDTH", 800),
		CanvasHeight:  envInt("CHILLATC_WAVE_HEIGHT", 200),
		Theme: Theme{
			Background:   envStr("CHILLATC_COLOR_BACKGROUND", "#121212"),
			ATCDark:      envStr("CHILLATC_COLOR_ATC_DARK", ""),
			ATCLight:     envStr("CHILLATC_COLOR_ATC_LIGHT", ""),
			SpotifyDark:  envStr("CHILLATC_COLOR_SPOTIFY_DARK", "#1db954"),
			SpotifyLight: envStr("CHILLATC_COLOR_SPOTIFY_LIGHT", "#1ed760"),
		},

		SpotifyAPIURL:  envStr("SPOTIFY_API_URL", "https://api.spotify.com/v1"),
		SpotifyToken:   envStr("SPOTIFY_TOKEN", ""),
		SDKTimeout:     envDuration("SPOTIFY_SDK_TIMEOUT", 5*time.Second),
		ControlTimeout: envDuration("SPOTIFY_CONTROL_TIMEOUT", 10*time.Second),

		StreamVolume:  envFloat("CHILLATC_ATC_VOLUME", 1.0),
		SpotifyVolume: envFloat("SPOTIFY_VOLUME", 0.8),
		OpusBitrate:   envInt("CHILLATC_OPUS_BITRATE", 64000),
		FFmpegPath:    envStr("CHILLATC_FFMPEG", "ffmpeg"),
		MP3Bitrate:    envInt("CHILLATC_MP3_KBPS", 128),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go duration strings ("300ms", "2s") or a bare
// integer number of milliseconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
