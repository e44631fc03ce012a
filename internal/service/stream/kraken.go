package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"CoinScope/internal/domain/models"
	drepo "CoinScope/internal/domain/repository"
	applogger "CoinScope/pkg/logger"
)

// KrakenClient implements a TickStream backed by the Kraken WebSocket v2
// public trade channel.
type KrakenClient struct {
	websocketURL   string
	symbols        []string
	quote          string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	l              *applogger.Logger

	conn      *websocket.Conn
	connected bool
}

// New creates a new Kraken TickStream. Symbols are base assets; pairs are
// formed against the USD quote.
func New(websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.TickStream {
	return &KrakenClient{
		websocketURL:   websocketURL,
		symbols:        symbols,
		quote:          "USD",
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		l:              l,
	}
}

// Connect establishes the WebSocket connection.
func (c *KrakenClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("kraken connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	if c.l != nil {
		c.l.Info("kraken stream connected", applogger.String("url", c.websocketURL))
	}
	return nil
}

type subscribeParams struct {
	Channel string   `json:"channel"`
	Symbol  []string `json:"symbol"`
}

type subscribeMessage struct {
	Method string          `json:"method"`
	Params subscribeParams `json:"params"`
}

// Subscribe subscribes to the trade channel for all configured symbols in
// one request.
func (c *KrakenClient) Subscribe(ctx context.Context) error {
	if c.conn == nil || !c.connected {
		return fmt.Errorf("kraken not connected")
	}
	pairs := make([]string, 0, len(c.symbols))
	for _, s := range c.symbols {
		pairs = append(pairs, c.pairFor(s))
	}
	msg := subscribeMessage{
		Method: "subscribe",
		Params: subscribeParams{Channel: "trade", Symbol: pairs},
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("subscribe trade: %w", err)
	}
	if c.l != nil {
		c.l.Info("kraken stream subscribed", applogger.Any("pairs", pairs))
	}
	return nil
}

func (c *KrakenClient) pairFor(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol)) + "/" + c.quote
}

type wsTrade struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Qty       float64 `json:"qty"`
	Timestamp string  `json:"timestamp"`
}

type wsMessage struct {
	Channel string    `json:"channel"`
	Type    string    `json:"type"`
	Data    []wsTrade `json:"data"`
}

// Read streams Tick events and errors. Slow consumers lose ticks rather
// than stalling the socket.
func (c *KrakenClient) Read(ctx context.Context) (<-chan *models.Tick, <-chan error) {
	ticks := make(chan *models.Tick, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(ticks)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("kraken conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("kraken read: %w", err)
					return
				}
				var m wsMessage
				if err := json.Unmarshal(b, &m); err != nil {
					// ignore heartbeat/status frames
					continue
				}
				if m.Channel != "trade" {
					continue
				}
				for _, d := range m.Data {
					tick := tickFromTrade(d)
					if tick == nil {
						continue
					}
					select {
					case ticks <- tick:
					default:
						// drop on backpressure
					}
				}
			}
		}
	}()

	return ticks, errs
}

// tickFromTrade maps one wire trade to the internal tick, stripping the
// quote from the pair so downstream sees base symbols.
func tickFromTrade(d wsTrade) *models.Tick {
	base := d.Symbol
	if i := strings.IndexByte(base, '/'); i >= 0 {
		base = base[:i]
	}
	if base == "" || d.Price <= 0 {
		return nil
	}
	ts, err := time.Parse(time.RFC3339Nano, d.Timestamp)
	if err != nil {
		ts = time.Now().UTC()
	}
	return &models.Tick{
		Symbol:    base,
		Timestamp: ts.Unix(),
		Price:     d.Price,
		Volume:    d.Qty,
		Side:      d.Side,
		Source:    "kraken",
	}
}

// Reconnect closes and reconnects.
func (c *KrakenClient) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

// Close closes the WS connection.
func (c *KrakenClient) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *KrakenClient) IsConnected() bool { return c.connected }
