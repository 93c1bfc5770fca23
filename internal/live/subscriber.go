// Package live keeps the console's caches in sync with other consoles by
// listening for appointment change notifications over a websocket. On every
// change it calls the invalidate hook; the views refetch and converge on
// canonical server state.
package live

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Change mirrors the notification payload the change feed emits.
type Change struct {
	Action        string    `json:"action"`
	AppointmentID uuid.UUID `json:"appointment_id"`
}

// Subscriber maintains a websocket connection to the change feed and
// reconnects with backoff when the connection drops.
type Subscriber struct {
	url        string
	onChange   func(Change)
	logger     zerolog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// NewSubscriber builds a subscriber for the given ws:// url. onChange is
// called from the read goroutine; it must be safe to call concurrently with
// the rest of the application.
func NewSubscriber(url string, onChange func(Change), logger zerolog.Logger) *Subscriber {
	return &Subscriber{
		url:        url,
		onChange:   onChange,
		logger:     logger.With().Str("component", "live").Logger(),
		minBackoff: time.Second,
		maxBackoff: 30 * time.Second,
	}
}

// Run connects and listens until ctx is cancelled. Connection failures are
// retried with exponential backoff; a successful connection resets the
// backoff.
func (s *Subscriber) Run(ctx context.Context) {
	backoff := s.minBackoff
	for {
		if err := s.listen(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Dur("retry_in", backoff).Msg("change feed disconnected")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

func (s *Subscriber) listen(ctx context.Context) error {
	dialer := gorillawebsocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.logger.Info().Str("url", s.url).Msg("change feed connected")

	// Close the connection when ctx is cancelled so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var change Change
		if err := json.Unmarshal(payload, &change); err != nil {
			s.logger.Debug().Err(err).Msg("ignoring malformed change")
			continue
		}
		s.logger.Debug().
			Str("action", change.Action).
			Str("appointment_id", change.AppointmentID.String()).
			Msg("change received")
		if s.onChange != nil {
			s.onChange(change)
		}
	}
}
