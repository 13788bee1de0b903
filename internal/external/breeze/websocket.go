package breeze

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/naveenvino/breezepython/pkg/config"
	"github.com/naveenvino/breezepython/pkg/logger"
)

const (
	pingInterval          = 30 * time.Second
	reconnectInitialDelay = 1 * time.Second
	reconnectMaxDelay     = 30 * time.Second
	maxReconnectAttempts  = 10
)

// Tick is one live index quote from the streaming feed
type Tick struct {
	Symbol    string
	LastPrice float64
	Timestamp time.Time
}

// WSClient streams live index ticks over the Breeze websocket feed.
// It is used by the collector to keep the current hourly bar warm
// during market hours; the backtest itself never touches it.
type WSClient struct {
	cfg    config.BreezeConfig
	logger *logger.Logger

	conn      *websocket.Conn
	connMu    sync.Mutex
	connected bool

	subscriptions map[string]bool
	subMu         sync.RWMutex

	onTick  func(Tick)
	onError func(error)

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewWSClient creates a new websocket client
func NewWSClient(cfg config.BreezeConfig, log *logger.Logger) *WSClient {
	return &WSClient{
		cfg:           cfg,
		logger:        log,
		subscriptions: make(map[string]bool),
		stopCh:        make(chan struct{}),
	}
}

// OnTick registers the tick callback. Must be set before Connect.
func (c *WSClient) OnTick(fn func(Tick)) { c.onTick = fn }

// OnError registers the error callback
func (c *WSClient) OnError(fn func(error)) { c.onError = fn }

// Connect dials the feed and starts the read and ping loops
func (c *WSClient) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}

	c.wg.Add(2)
	go c.readLoop()
	go c.pingLoop()

	c.logger.Info("Breeze websocket connected")
	return nil
}

func (c *WSClient) dial(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}

	header := map[string][]string{
		"X-AppKey":       {c.cfg.APIKey},
		"X-SessionToken": {c.cfg.SessionToken},
	}

	conn, _, err := dialer.DialContext(ctx, c.cfg.WSBaseURL, header)
	if err != nil {
		return err
	}

	c.conn = conn
	c.connected = true
	return nil
}

// Disconnect closes the connection and waits for loops to finish
func (c *WSClient) Disconnect() error {
	close(c.stopCh)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.connected = false
	}
	c.connMu.Unlock()

	c.wg.Wait()
	c.logger.Info("Breeze websocket disconnected")
	return nil
}

// IsConnected returns connection status
func (c *WSClient) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.connected
}

// Subscribe registers symbols for tick delivery
func (c *WSClient) Subscribe(symbols ...string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, symbol := range symbols {
		if c.subscriptions[symbol] {
			continue
		}

		if err := c.sendSubscribe(symbol, "subscribe"); err != nil {
			return fmt.Errorf("subscribe %s: %w", symbol, err)
		}
		c.subscriptions[symbol] = true

		c.logger.WithField("symbol", symbol).Debug("Subscribed to tick feed")
	}
	return nil
}

// Unsubscribe removes symbol subscriptions
func (c *WSClient) Unsubscribe(symbols ...string) error {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	for _, symbol := range symbols {
		if !c.subscriptions[symbol] {
			continue
		}

		if err := c.sendSubscribe(symbol, "unsubscribe"); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", symbol, err)
		}
		delete(c.subscriptions, symbol)
	}
	return nil
}

type wsRequest struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	Token  string `json:"token"`
}

type wsTickMessage struct {
	Symbol    string `json:"symbol"`
	LastPrice string `json:"last"`
	Timestamp string `json:"ltt"`
}

func (c *WSClient) sendSubscribe(symbol, action string) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	if c.conn == nil {
		return fmt.Errorf("not connected")
	}

	return c.conn.WriteJSON(wsRequest{
		Action: action,
		Symbol: symbol,
		Token:  c.cfg.SessionToken,
	})
}

// readLoop consumes tick frames until stopped, reconnecting with
// exponential backoff on transport errors.
func (c *WSClient) readLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		c.connMu.Lock()
		conn := c.conn
		c.connMu.Unlock()

		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-c.stopCh:
				return
			default:
			}

			c.logger.WithError(err).Warn("Websocket read failed, reconnecting")
			if !c.reconnect() {
				return
			}
			continue
		}

		c.handleMessage(message)
	}
}

func (c *WSClient) handleMessage(message []byte) {
	var msg wsTickMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.WithError(err).Debug("Skipping unparseable frame")
		return
	}

	if msg.Symbol == "" || c.onTick == nil {
		return
	}

	price, err := strconv.ParseFloat(msg.LastPrice, 64)
	if err != nil {
		return
	}

	ts, err := parseAPITime(msg.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	c.onTick(Tick{
		Symbol:    msg.Symbol,
		LastPrice: price,
		Timestamp: ts,
	})
}

// reconnect re-dials and re-subscribes. Returns false when attempts
// are exhausted or the client is stopping.
func (c *WSClient) reconnect() bool {
	delay := reconnectInitialDelay

	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		select {
		case <-c.stopCh:
			return false
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.dial(ctx)
		cancel()

		if err == nil {
			c.resubscribe()
			c.logger.WithField("attempt", attempt).Info("Websocket reconnected")
			return true
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
		}).Warn("Websocket reconnect failed")

		delay *= 2
		if delay > reconnectMaxDelay {
			delay = reconnectMaxDelay
		}
	}

	if c.onError != nil {
		c.onError(fmt.Errorf("websocket reconnect attempts exhausted"))
	}
	return false
}

func (c *WSClient) resubscribe() {
	c.subMu.RLock()
	symbols := make([]string, 0, len(c.subscriptions))
	for symbol := range c.subscriptions {
		symbols = append(symbols, symbol)
	}
	c.subMu.RUnlock()

	for _, symbol := range symbols {
		if err := c.sendSubscribe(symbol, "subscribe"); err != nil {
			c.logger.WithError(err).Warn("Resubscribe failed")
		}
	}
}

func (c *WSClient) pingLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.connMu.Lock()
			if c.conn != nil {
				if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					c.logger.WithError(err).Debug("Websocket ping failed")
				}
			}
			c.connMu.Unlock()
		}
	}
}
