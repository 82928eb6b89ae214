package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ErrNoToken is returned when no bearer token has been received yet.
var ErrNoToken = errors.New("spotify: no access token")

// TokenStore holds the bearer token handed over by the host.
type TokenStore struct {
	mu    sync.RWMutex
	token string
}

func (s *TokenStore) Set(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

func (s *TokenStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// APIError is a non-2xx response from the Web API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify api: status %d: %s", e.Status, e.Message)
}

// WebAPI implements ControlSurface against the Spotify Web API.
type WebAPI struct {
	base   string
	client *http.Client
	tokens *TokenStore
}

// NewWebAPI returns a client for the API rooted at base.
func NewWebAPI(base string, tokens *TokenStore, timeout time.Duration) *WebAPI {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebAPI{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: timeout},
		tokens: tokens,
	}
}

type transferBody struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

type offsetBody struct {
	Position int `json:"position"`
}

type playBody struct {
	ContextURI string     `json:"context_uri"`
	Offset     offsetBody `json:"offset"`
	PositionMs int        `json:"position_ms"`
}

// TransferPlayback makes deviceID the active device.
func (a *WebAPI) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	return a.put(ctx, "/me/player", transferBody{DeviceIDs: []string{deviceID}, Play: play})
}

// PlayContext starts contextURI on deviceID at the given track offset.
func (a *WebAPI) PlayContext(ctx context.Context, deviceID, contextURI string, offset int) error {
	path := "/me/player/play?device_id=" + url.QueryEscape(deviceID)
	return a.put(ctx, path, playBody{ContextURI: contextURI, Offset: offsetBody{Position: offset}})
}

func (a *WebAPI) put(ctx context.Context, path string, body any) error {
	token := a.tokens.Token()
	if token == "" {
		return ErrNoToken
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("spotify api: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.base+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("spotify api: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("spotify api: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return decodeAPIError(resp)
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var envelope struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Message != "" {
		msg = envelope.Error.Message
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: msg}
}
