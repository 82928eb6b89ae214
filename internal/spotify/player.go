package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotReady      = errors.New("spotify: player not ready")
	ErrTimeout       = errors.New("spotify: sdk request timed out")
	ErrUnknownAction = errors.New("spotify: unknown playback action")
)

// Player is the SDK player surface.
type Player interface {
	CurrentState(ctx context.Context) (*PlaybackState, error)
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	NextTrack(ctx context.Context) error
	PreviousTrack(ctx context.Context) error
	SetVolume(ctx context.Context, v float64) error
}

// ControlSurface is the remote-control HTTP surface.
type ControlSurface interface {
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
	PlayContext(ctx context.Context, deviceID, contextURI string, offset int) error
}

// Request is an sdk_request sent to the host page, which runs the named
// SDK method and answers with a Result.
type Request struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	Args   any    `json:"args,omitempty"`
}

// Result is an sdk_result from the host page.
type Result struct {
	ID    string          `json:"id"`
	State json.RawMessage `json:"state,omitempty"`
	Error string          `json:"error,omitempty"`
}

// SDKError is an error reported by the SDK for a request.
type SDKError struct {
	Method  string
	Message string
}

func (e *SDKError) Error() string {
	return fmt.Sprintf("spotify: %s: %s", e.Method, e.Message)
}

// RemotePlayer implements Player by proxying each call to the SDK running
// in the host page.
type RemotePlayer struct {
	send    func(Request) error
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan Result
}

// NewRemotePlayer returns a player that delivers requests through send.
func NewRemotePlayer(send func(Request) error, timeout time.Duration) *RemotePlayer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RemotePlayer{
		send:    send,
		timeout: timeout,
		pending: make(map[string]chan Result),
	}
}

// Resolve hands a result to the waiting call. Returns false for unknown
// or already-expired ids.
func (p *RemotePlayer) Resolve(r Result) bool {
	p.mu.Lock()
	ch, ok := p.pending[r.ID]
	delete(p.pending, r.ID)
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- r
	return true
}

// Pending returns the number of unanswered requests.
func (p *RemotePlayer) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *RemotePlayer) call(ctx context.Context, method string, args any) (Result, error) {
	req := Request{ID: uuid.NewString(), Method: method, Args: args}
	ch := make(chan Result, 1)

	p.mu.Lock()
	p.pending[req.ID] = ch
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		delete(p.pending, req.ID)
		p.mu.Unlock()
	}()

	if err := p.send(req); err != nil {
		return Result{}, fmt.Errorf("spotify: send %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	select {
	case r := <-ch:
		if r.Error != "" {
			return r, &SDKError{Method: method, Message: r.Error}
		}
		return r, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, fmt.Errorf("%w: %s", ErrTimeout, method)
		}
		return Result{}, ctx.Err()
	}
}

func (p *RemotePlayer) CurrentState(ctx context.Context) (*PlaybackState, error) {
	r, err := p.call(ctx, "getCurrentState", nil)
	if err != nil {
		return nil, err
	}
	if len(r.State) == 0 || string(r.State) == "null" {
		return nil, nil
	}
	var st PlaybackState
	if err := json.Unmarshal(r.State, &st); err != nil {
		return nil, fmt.Errorf("spotify: decode state: %w", err)
	}
	return &st, nil
}

func (p *RemotePlayer) Resume(ctx context.Context) error {
	_, err := p.call(ctx, "resume", nil)
	return err
}

func (p *RemotePlayer) Pause(ctx context.Context) error {
	_, err := p.call(ctx, "pause", nil)
	return err
}

func (p *RemotePlayer) NextTrack(ctx context.Context) error {
	_, err := p.call(ctx, "nextTrack", nil)
	return err
}

func (p *RemotePlayer) PreviousTrack(ctx context.Context) error {
	_, err := p.call(ctx, "previousTrack", nil)
	return err
}

func (p *RemotePlayer) SetVolume(ctx context.Context, v float64) error {
	_, err := p.call(ctx, "setVolume", map[string]float64{"volume": v})
	return err
}
