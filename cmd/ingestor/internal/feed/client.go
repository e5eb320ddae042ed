package feed

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// RetryPolicy decides how long to wait before the next connection attempt.
// Tests substitute a zero-delay policy.
type RetryPolicy interface {
	Wait(ctx context.Context)
}

// FixedDelay waits the same interval every time. There is deliberately no
// ceiling and no maximum-retry abort: this process has no other job, so it
// retries forever.
type FixedDelay struct {
	Delay time.Duration
}

func (f FixedDelay) Wait(ctx context.Context) {
	select {
	case <-time.After(f.Delay):
	case <-ctx.Done():
	}
}

// Client maintains one multiplexed streaming connection carrying the trade
// streams of a fixed symbol set. Message handling is strictly sequential:
// the handler is invoked inline from the single read loop.
type Client struct {
	url          string
	symbols      []string
	pingInterval time.Duration
	retry        RetryPolicy
	logger       *zap.Logger

	state atomic.Int32
}

func NewClient(url string, symbols []string, pingInterval time.Duration, retry RetryPolicy, logger *zap.Logger) *Client {
	return &Client{
		url:          url,
		symbols:      symbols,
		pingInterval: pingInterval,
		retry:        retry,
		logger:       logger,
	}
}

func (c *Client) State() State {
	return State(c.state.Load())
}

// streamURL builds the combined-stream endpoint, e.g.
// wss://host/stream?streams=btcusdt@trade/ethusdt@trade
func (c *Client) streamURL() string {
	params := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		params[i] = strings.ToLower(s) + "@trade"
	}
	return c.url + "?streams=" + strings.Join(params, "/")
}

// Run blocks until the context is cancelled, dialing, pumping and redialing
// forever. Missed ticks during a disconnect are not backfilled.
func (c *Client) Run(ctx context.Context, handler func(raw []byte)) {
	url := c.streamURL()

	for ctx.Err() == nil {
		c.state.Store(int32(StateConnecting))
		c.logger.Info("Connecting to upstream feed", zap.String("url", url))

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			c.state.Store(int32(StateDisconnected))
			c.logger.Error("Feed dial failed", zap.Error(err))
			c.retry.Wait(ctx)
			continue
		}

		c.state.Store(int32(StateConnected))
		c.logger.Info("Feed connected", zap.Strings("symbols", c.symbols))

		c.pump(ctx, conn, handler)

		c.state.Store(int32(StateDisconnected))
		conn.Close()
		c.logger.Warn("Feed disconnected, will reconnect")
		c.retry.Wait(ctx)
	}
}

// pump reads until the connection errors out. A keepalive ping goes out on a
// fixed interval while connected.
func (c *Client) pump(ctx context.Context, conn *websocket.Conn, handler func(raw []byte)) {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					conn.Close() // forces the read loop to exit and reconnect
					return
				}
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			}
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Error("Feed read error", zap.Error(err))
			}
			return
		}
		handler(message)
	}
}
