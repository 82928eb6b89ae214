package host

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
)

// Handler consumes one inbound payload.
type Handler func(payload json.RawMessage) error

// Router maps bare channel names to handlers.
type Router struct {
	handlers map[string]Handler
	log      zerolog.Logger
}

// NewRouter returns an empty router.
func NewRouter(log zerolog.Logger) *Router {
	return &Router{handlers: make(map[string]Handler), log: log}
}

// Handle registers h for channel, replacing any previous handler.
func (r *Router) Handle(channel string, h Handler) {
	r.handlers[channel] = h
}

// Channels returns the registered channel names, sorted.
func (r *Router) Channels() []string {
	out := make([]string, 0, len(r.handlers))
	for ch := range r.handlers {
		out = append(out, ch)
	}
	sort.Strings(out)
	return out
}

// Dispatch runs the handler for m. Unknown channels and handler errors
// are logged and returned; neither is fatal.
func (r *Router) Dispatch(m Message) error {
	h, ok := r.handlers[m.Channel]
	if !ok {
		r.log.Warn().Str("channel", m.Channel).Msg("unknown command ignored")
		return fmt.Errorf("%w: %q", ErrUnknownChannel, m.Channel)
	}
	if err := h(m.Payload); err != nil {
		r.log.Warn().Err(err).Str("channel", m.Channel).Msg("command failed")
		return err
	}
	return nil
}
