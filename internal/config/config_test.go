package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"CHILLATC_PORT", "CHILLATC_NAMESPACE", "CHILLATC_LOG_LEVEL", "CHILLATC_LOG_PRETTY",
		"CHILLATC_CATALOG", "CHILLATC_STREAM", "CHILLATC_ATC_POLL", "CHILLATC_POSITION_POLL",
		"CHILLATC_SYNC_INTERVAL", "CHILLATC_SWITCH_GUARD", "CHILLATC_LISTEN_TICK",
		"CHILLATC_LISTEN_REPORT", "CHILLATC_WAVE_SMOOTHING", "CHILLATC_WAVE_IDLE_AMP",
		"CHILLATC_WAVE_IDLE_FREQ", "CHILLATC_WAVE_FPS", "CHILLATC_WAVE_WIDTH",
		"CHILLATC_WAVE_HEIGHT", "SPOTIFY_API_URL", "SPOTIFY_TOKEN", "SPOTIFY_SDK_TIMEOUT",
		"SPOTIFY_CONTROL_TIMEOUT", "CHILLATC_ATC_VOLUME", "SPOTIFY_VOLUME", "CHILLATC_OPUS_BITRATE",
		"CHILLATC_COLOR_SPOTIFY_DARK",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.Namespace != "" {
		t.Errorf("Namespace = %q, want empty default", cfg.Namespace)
	}
	if cfg.LogLevel != "info" || !cfg.LogPretty {
		t.Errorf("LogLevel/LogPretty = %q/%v, want info/true", cfg.LogLevel, cfg.LogPretty)
	}
	if cfg.CatalogPath != "resources/config.yml" {
		t.Errorf("CatalogPath = %q, want default", cfg.CatalogPath)
	}
	if cfg.ATCPollInterval != 2*time.Second {
		t.Errorf("ATCPollInterval = %v, want 2s", cfg.ATCPollInterval)
	}
	if cfg.PositionPollInterval != time.Second {
		t.Errorf("PositionPollInterval = %v, want 1s", cfg.PositionPollInterval)
	}
	if cfg.SyncInterval != time.Second {
		t.Errorf("SyncInterval = %v, want 1s", cfg.SyncInterval)
	}
	if cfg.SwitchGuardWindow != 300*time.Millisecond {
		t.Errorf("SwitchGuardWindow = %v, want 300ms", cfg.SwitchGuardWindow)
	}
	if cfg.ListenReportInterval != time.Minute {
		t.Errorf("ListenReportInterval = %v, want 1m", cfg.ListenReportInterval)
	}
	if cfg.Smoothing != 0.05 {
		t.Errorf("Smoothing = %v, want 0.05", cfg.Smoothing)
	}
	if cfg.IdleAmplitude != 0.2 || cfg.IdleFrequency != 0.3 {
		t.Errorf("Idle scales = %v/%v, want 0.2/0.3", cfg.IdleAmplitude, cfg.IdleFrequency)
	}
	if cfg.FrameRate != 60 {
		t.Errorf("FrameRate = %d, want 60", cfg.FrameRate)
	}
	if cfg.SpotifyAPIURL != "https://api.spotify.com/v1" {
		t.Errorf("SpotifyAPIURL = %q, want default", cfg.SpotifyAPIURL)
	}
	if cfg.SDKTimeout != 5*time.Second {
		t.Errorf("SDKTimeout = %v, want 5s", cfg.SDKTimeout)
	}
	if cfg.SpotifyVolume != 0.8 {
		t.Errorf("SpotifyVolume = %v, want 0.8", cfg.SpotifyVolume)
	}
	if cfg.Theme.SpotifyDark != "#1db954" {
		t.Errorf("Theme.SpotifyDark = %q, want #1db954", cfg.Theme.SpotifyDark)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CHILLATC_PORT", "3000")
	t.Setenv("CHILLATC_NAMESPACE", "player1")
	t.Setenv("CHILLATC_LOG_PRETTY", "false")
	t.Setenv("CHILLATC_CATALOG", "/etc/chillatc.yml")
	t.Setenv("CHILLATC_SWITCH_GUARD", "450ms")
	t.Setenv("CHILLATC_ATC_POLL", "5s")
	t.Setenv("CHILLATC_WAVE_SMOOTHING", "0.1")
	t.Setenv("CHILLATC_WAVE_FPS", "30")
	t.Setenv("SPOTIFY_TOKEN", "tok-123")

	cfg := Load()

	if cfg.Port != 3000 {
		t.Errorf("Port = %d, want 3000", cfg.Port)
	}
	if cfg.Namespace != "player1" {
		t.Errorf("Namespace = %q, want player1", cfg.Namespace)
	}
	if cfg.LogPretty {
		t.Error("LogPretty = true, want env override false")
	}
	if cfg.CatalogPath != "/etc/chillatc.yml" {
		t.Errorf("CatalogPath = %q, want env override", cfg.CatalogPath)
	}
	if cfg.SwitchGuardWindow != 450*time.Millisecond {
		t.Errorf("SwitchGuardWindow = %v, want 450ms", cfg.SwitchGuardWindow)
	}
	if cfg.ATCPollInterval != 5*time.Second {
		t.Errorf("ATCPollInterval = %v, want 5s", cfg.ATCPollInterval)
	}
	if cfg.Smoothing != 0.1 {
		t.Errorf("Smoothing = %v, want 0.1", cfg.Smoothing)
	}
	if cfg.FrameRate != 30 {
		t.Errorf("FrameRate = %d, want 30", cfg.FrameRate)
	}
	if cfg.SpotifyToken != "tok-123" {
		t.Errorf("SpotifyToken = %q, want env override", cfg.SpotifyToken)
	}
}

func TestEnvDurationMilliseconds(t *testing.T) {
	t.Setenv("CHILLATC_SWITCH_GUARD", "250")
	cfg := Load()
	if cfg.SwitchGuardWindow != 250*time.Millisecond {
		t.Errorf("bare integer should be milliseconds: got %v", cfg.SwitchGuardWindow)
	}
}

func TestEnvDurationInvalidFallsBack(t *testing.T) {
	t.Setenv("CHILLATC_SYNC_INTERVAL", "soon")
	cfg := Load()
	if cfg.SyncInterval != time.Second {
		t.Errorf("Invalid duration should fallback: got %v", cfg.SyncInterval)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("CHILLATC_PORT", "not-a-number")
	cfg := Load()
	if cfg.Port != 8080 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 8080", cfg.Port)
	}
}

func TestEnvBoolInvalidFallsBack(t *testing.T) {
	t.Setenv("CHILLATC_LOG_PRETTY", "sometimes")
	cfg := Load()
	if !cfg.LogPretty {
		t.Error("Invalid bool env should fallback to true")
	}
}

func TestZeroVolumeIsKept(t *testing.T) {
	t.Setenv("SPOTIFY_VOLUME", "0")
	t.Setenv("CHILLATC_ATC_VOLUME", "0")
	cfg := Load()
	if cfg.SpotifyVolume != 0 || cfg.StreamVolume != 0 {
		t.Errorf("volumes = %v/%v, want 0/0", cfg.SpotifyVolume, cfg.StreamVolume)
	}
}
