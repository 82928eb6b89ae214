// Package host carries the message channel between the core and the
// page hosting the two players.
package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownChannel = errors.New("host: unknown channel")
	ErrNoHost         = errors.New("host: no connection")
	ErrOutboxFull     = errors.New("host: outbox full")
)

// Message is one framed exchange on the host channel.
type Message struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage marshals payload into a message on channel. A nil payload
// leaves the field empty.
func NewMessage(channel string, payload any) (Message, error) {
	m := Message{Channel: channel}
	if payload == nil {
		return m, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("host: marshal %s: %w", channel, err)
	}
	m.Payload = data
	return m, nil
}

// Decode unmarshals the payload into v. An empty payload is not an error
// and leaves v untouched.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 || string(m.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("host: decode %s: %w", m.Channel, err)
	}
	return nil
}

// Namespace prefixes channel names so several cores can share one page.
// The empty namespace leaves names as they are.
type Namespace string

// Qualify returns the wire name of channel.
func (n Namespace) Qualify(channel string) string {
	if n == "" {
		return channel
	}
	return string(n) + "-" + channel
}

// Strip returns the bare channel name, or false if name is outside n.
func (n Namespace) Strip(name string) (string, bool) {
	if n == "" {
		return name, true
	}
	return strings.CutPrefix(name, string(n)+"-")
}
