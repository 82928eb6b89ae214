package main

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/satindergrewal/chillatc/internal/session"
)

// serverStatus mirrors the /api/status response.
type serverStatus struct {
	session.Status
	Host struct {
		Connected      bool   `json:"connected"`
		Transport      string `json:"transport"`
		Dropped        uint64 `json:"dropped"`
		WebRTCPeers    int    `json:"webrtc_peers"`
		RelayListeners int    `json:"relay_listeners"`
		RelayFrames    uint64 `json:"relay_frames"`
	} `json:"host"`
}

type statusSource struct {
	url    string
	client *http.Client
}

func (s *statusSource) fetch() (*serverStatus, error) {
	resp, err := s.client.Get(s.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d from %s", resp.StatusCode, s.url)
	}
	var st serverStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return &st, nil
}
