// Package client keeps a display connected to the broadcast server and
// feeds what it receives into the render inbox.
package client

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"pixelcast/handlers"
	"pixelcast/internal/display"
	"pixelcast/internal/logger"
)

// Client dials the server, reads frames and posts decoded display messages
// to the inbox. It reconnects on failure at no more than the configured
// rate.
type Client struct {
	url     string
	inbox   *display.Inbox
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	log     zerolog.Logger

	name atomic.Pointer[string] // assigned by the last roster
}

// New builds a client for url. reconnectPerSec <= 0 selects one attempt
// every two seconds.
func New(url string, inbox *display.Inbox, reconnectPerSec float64) *Client {
	if reconnectPerSec <= 0 {
		reconnectPerSec = 0.5
	}
	return &Client{
		url:     url,
		inbox:   inbox,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(reconnectPerSec), 1),
		log:     logger.With("client"),
	}
}

// Name is the display name the server last assigned, empty before the
// first roster.
func (c *Client) Name() string {
	if p := c.name.Load(); p != nil {
		return *p
	}
	return ""
}

// Run connects and reconnects until ctx is cancelled.
func (c *Client) Run(ctx context.Context) error {
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil
		}
		err := c.session(ctx)
		if ctx.Err() != nil {
			return nil
		}
		c.log.Warn().Err(err).Str("url", c.url).Msg("Connection lost, retrying")
	}
}

// session runs one connection until it fails or ctx ends.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	c.log.Info().Str("url", c.url).Msg("Connected to server")

	stop := context.AfterFunc(ctx, func() {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	})
	defer func() {
		stop()
		conn.Close()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return errors.New("server closed the connection")
			}
			return err
		}
		if messageType != websocket.TextMessage {
			continue
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	msg, err := handlers.Decode(data)
	if err != nil {
		c.log.Debug().Err(err).Int("len", len(data)).Msg("Discarding frame")
		return
	}
	switch msg.Kind {
	case handlers.KindRoster:
		self := msg.Self
		c.name.Store(&self)
		c.log.Info().Str("name", msg.Self).Strs("clients", msg.Roster).Msg("Roster updated")
	default:
		c.log.Debug().Str("type", msg.Kind.String()).Int64("ttl_ms", msg.TTLMs).Msg("Received")
		c.inbox.Post(msg)
	}
}
