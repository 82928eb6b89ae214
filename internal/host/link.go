package host

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultOutbox is the per-connection outbound queue depth.
const DefaultOutbox = 256

// Peer is one host connection. Its transport drains Outbox until Done.
type Peer struct {
	ID        string
	Transport string

	out     chan []byte
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// Outbox yields encoded messages for the transport to write.
func (p *Peer) Outbox() <-chan []byte { return p.out }

// Done is closed when the peer is replaced or disconnected.
func (p *Peer) Done() <-chan struct{} { return p.done }

// Dropped returns how many outbound messages were discarded.
func (p *Peer) Dropped() uint64 { return p.dropped.Load() }

func (p *Peer) close() {
	p.once.Do(func() { close(p.done) })
}

// Link holds the single active host connection. A new connection
// replaces the previous one.
type Link struct {
	ns    Namespace
	queue int
	log   zerolog.Logger

	mu        sync.Mutex
	peer      *Peer
	onMessage func(Message)
	onConnect func(*Peer)
}

// NewLink returns a link using namespace ns and an outbox of queue
// messages per connection.
func NewLink(ns Namespace, queue int, log zerolog.Logger) *Link {
	if queue <= 0 {
		queue = DefaultOutbox
	}
	return &Link{ns: ns, queue: queue, log: log}
}

// Namespace returns the link's channel namespace.
func (l *Link) Namespace() Namespace { return l.ns }

// OnMessage sets the inbound callback. Channel names are already stripped
// of the namespace.
func (l *Link) OnMessage(fn func(Message)) {
	l.mu.Lock()
	l.onMessage = fn
	l.mu.Unlock()
}

// OnConnect sets a callback run after each new connection is installed.
func (l *Link) OnConnect(fn func(*Peer)) {
	l.mu.Lock()
	l.onConnect = fn
	l.mu.Unlock()
}

// Connect installs a new peer, closing the previous one.
func (l *Link) Connect(transport string) *Peer {
	p := &Peer{
		ID:        uuid.NewString(),
		Transport: transport,
		out:       make(chan []byte, l.queue),
		done:      make(chan struct{}),
	}
	l.mu.Lock()
	old := l.peer
	l.peer = p
	onConnect := l.onConnect
	l.mu.Unlock()

	if old != nil {
		old.close()
		l.log.Info().Str("old", old.ID).Str("new", p.ID).Msg("host connection replaced")
	} else {
		l.log.Info().Str("peer", p.ID).Str("transport", transport).Msg("host connected")
	}
	if onConnect != nil {
		onConnect(p)
	}
	return p
}

// Disconnect removes p if it is still the active peer.
func (l *Link) Disconnect(p *Peer) {
	l.mu.Lock()
	active := l.peer == p
	if active {
		l.peer = nil
	}
	l.mu.Unlock()
	p.close()
	if active {
		l.log.Info().Str("peer", p.ID).Msg("host disconnected")
	}
}

// Connected reports whether a host is attached.
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peer != nil
}

// Current returns the active peer or nil.
func (l *Link) Current() *Peer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.peer
}

// Receive decodes data from p and hands it to the inbound callback.
// Frames from a replaced peer are ignored.
func (l *Link) Receive(p *Peer, data []byte) error {
	l.mu.Lock()
	active := l.peer == p
	fn := l.onMessage
	l.mu.Unlock()
	if !active {
		return nil
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		l.log.Warn().Err(err).Msg("malformed host message")
		return fmt.Errorf("host: decode message: %w", err)
	}
	name, ok := l.ns.Strip(m.Channel)
	if !ok {
		l.log.Warn().Str("channel", m.Channel).Msg("message outside namespace ignored")
		return fmt.Errorf("%w: %q", ErrUnknownChannel, m.Channel)
	}
	m.Channel = name
	if fn != nil {
		fn(m)
	}
	return nil
}

// Send queues a message for the active host. A full outbox drops the
// message with a warning.
func (l *Link) Send(channel string, payload any) error {
	m, err := NewMessage(l.ns.Qualify(channel), payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("host: marshal message: %w", err)
	}

	p := l.Current()
	if p == nil {
		l.log.Debug().Str("channel", channel).Msg("no host, message dropped")
		return ErrNoHost
	}
	select {
	case <-p.done:
		return ErrNoHost
	default:
	}
	select {
	case p.out <- data:
		return nil
	default:
		n := p.dropped.Add(1)
		l.log.Warn().Str("channel", channel).Uint64("dropped", n).Msg("host outbox full, message dropped")
		return ErrOutboxFull
	}
}
