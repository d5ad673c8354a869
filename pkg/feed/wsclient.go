package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSClient subscribes to the coinwatch state stream and hands every message
// to the registered handler, reconnecting when the connection drops.
type WSClient struct {
	url        string
	retryDelay time.Duration
	handler    func([]byte)
	logger     *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSClient(url string, logger *zap.Logger) *WSClient {
	return &WSClient{
		url:        url,
		retryDelay: 3 * time.Second,
		logger:     logger,
	}
}

// SetMessageHandler sets the function to handle incoming messages.
func (c *WSClient) SetMessageHandler(h func([]byte)) {
	c.handler = h
}

// SetRetryDelay changes the pause between reconnect attempts.
func (c *WSClient) SetRetryDelay(d time.Duration) {
	c.retryDelay = d
}

// Connect establishes the WebSocket connection. It does not start the listener.
func (c *WSClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.logger.Error("Failed to connect to WebSocket", zap.String("url", c.url), zap.Error(err))
		return fmt.Errorf("websocket dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Info("WebSocket connected", zap.String("url", c.url))
	return nil
}

// Listen reads messages until ctx is cancelled, reconnecting on read errors.
func (c *WSClient) Listen(ctx context.Context) error {
	// unblock ReadMessage on cancel
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	for {
		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			return errors.New("websocket not connected")
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("WebSocket read error", zap.Error(err))

			// Retry reconnecting until the context ends
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
				if err := c.reconnect(ctx); err != nil {
					c.logger.Warn("Retrying reconnect...", zap.Error(err))
					continue
				}
				c.logger.Info("Reconnected successfully")
				break
			}
			continue
		}

		if c.handler != nil {
			c.handler(msg)
		}
	}
}

func (c *WSClient) reconnect(ctx context.Context) error {
	newConn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.conn
	c.conn = newConn
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
	if ctx.Err() != nil {
		_ = c.Close()
		return ctx.Err()
	}
	return nil
}

func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
