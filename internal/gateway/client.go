package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"

	"github.com/goodtune/muster/internal/metrics"
)

const (
	// dedupCacheSize bounds the set of recently seen frame IDs used to
	// drop redundant gateway deliveries.
	dedupCacheSize = 4096

	initialBackoff = time.Second
	maxBackoff     = time.Minute
)

// Config holds gateway client settings.
type Config struct {
	URL   string
	Token string
	Room  string
}

// Client maintains the websocket connection to the platform gateway
// and dispatches monitored-room events to a Handler. A single read
// loop serializes all dispatch, so the session store sees one writer.
type Client struct {
	cfg     Config
	handler Handler
	seen    *lru.Cache[string, struct{}]
	logger  zerolog.Logger

	dial func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error)
}

// NewClient creates a gateway client. The handler receives every
// event for the monitored room, already de-duplicated by frame ID.
func NewClient(cfg Config, handler Handler, logger zerolog.Logger) (*Client, error) {
	seen, err := lru.New[string, struct{}](dedupCacheSize)
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		seen:    seen,
		logger:  logger.With().Str("component", "gateway").Logger(),
		dial: func(ctx context.Context, url string, header http.Header) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
			return conn, err
		},
	}, nil
}

// Run connects to the gateway and processes frames until the context
// is cancelled, reconnecting with capped exponential backoff.
func (c *Client) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, err := c.connect(ctx)
		if err != nil {
			c.logger.Error().Err(err).Dur("retry_in", backoff).Msg("Gateway connect failed")
			metrics.GatewayReconnects.Inc()
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		backoff = initialBackoff
		c.logger.Info().Str("url", c.cfg.URL).Msg("Gateway connected")

		err = c.readLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Warn().Err(err).Msg("Gateway connection lost, reconnecting")
		metrics.GatewayReconnects.Inc()
	}
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if c.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	return c.dial(ctx, c.cfg.URL, header)
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	// Unblock ReadMessage when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn().Err(err).Msg("Discarding malformed gateway frame")
			continue
		}

		c.dispatch(ctx, frame)
	}
}

func (c *Client) dispatch(ctx context.Context, frame Frame) {
	if frame.Room != "" && frame.Room != c.cfg.Room {
		// Transitions for unrelated rooms are expected traffic.
		return
	}

	if frame.ID != "" {
		if _, dup := c.seen.Get(frame.ID); dup {
			metrics.GatewayDuplicateFrames.Inc()
			c.logger.Debug().Str("frame_id", frame.ID).Msg("Duplicate gateway frame dropped")
			return
		}
		c.seen.Add(frame.ID, struct{}{})
	}

	switch frame.Type {
	case FrameMembership:
		c.handler.HandleMembership(frame.User, frame.Joined, frame.Left)
	case FrameCommand:
		c.handler.HandleCommand(ctx, frame.Command, frame.Requester, frame.Privileged)
	default:
		c.logger.Debug().Str("type", frame.Type).Msg("Unknown gateway frame type")
	}
}
