package bitfinex

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient handles the WebSocket connection to Bitfinex: outbound command
// writes and inbound raw-message routing. Frame interpretation lives in the
// handler installed via SetMessageHandler.
type WSClient struct {
	url           string
	conn          *websocket.Conn
	writeMu       sync.Mutex // gorilla allows one concurrent writer only
	handler       func([]byte)
	onReconnect   func()
	authenticated atomic.Bool
	logger        *zap.Logger
}

// NewWSClient creates a new WebSocket client with the given URL and logger.
func NewWSClient(url string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:    url,
		logger: logger,
	}
}

// SetMessageHandler sets the function to handle incoming raw messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetReconnectHook sets a function invoked after every successful reconnect,
// before new messages are read. Callers use it to reset local channel state
// and replay their subscriptions.
func (c *WSClient) SetReconnectHook(h func()) {
	c.onReconnect = h
}

// Connect establishes the WebSocket connection. It does not start the listener.
func (c *WSClient) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		c.logger.Error("failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return err
	}
	c.conn = conn
	c.logger.Info("WebSocket connected", zap.String("url", c.url))

	return nil
}

// SendCommand encodes the command and writes it to the socket. The write is
// serialized; the call returns once the frame is handed to the connection,
// without waiting for any remote confirmation.
func (c *WSClient) SendCommand(cmd Command) error {
	payload, err := cmd.Encode()
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("websocket not connected")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// IsAuthenticated reports whether the auth handshake has completed on the
// current connection.
func (c *WSClient) IsAuthenticated() bool {
	return c.authenticated.Load()
}

// MarkAuthenticated records the outcome of the auth handshake. Called by the
// inbound router when the auth event arrives.
func (c *WSClient) MarkAuthenticated(ok bool) {
	c.authenticated.Store(ok)
}

// Listen reads messages until the connection drops, then reconnects
// indefinitely. Each raw message is passed to the installed handler.
func (c *WSClient) Listen() {
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Error("WebSocket read error", zap.Error(err))
			c.authenticated.Store(false)

			// Retry reconnecting indefinitely
			for {
				time.Sleep(3 * time.Second)
				if err := c.reconnect(); err != nil {
					c.logger.Warn("retrying reconnect...")
					continue
				}
				c.logger.Info("reconnected successfully")
				break
			}
			continue // Start listening again with the new connection
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

// Close closes the underlying connection.
func (c *WSClient) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *WSClient) reconnect() error {
	newConn, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	c.conn = newConn
	c.writeMu.Unlock()

	// Channel ids do not survive the connection; the hook resets local
	// bookkeeping and replays subscriptions.
	if c.onReconnect != nil {
		c.onReconnect()
	}

	return nil
}
