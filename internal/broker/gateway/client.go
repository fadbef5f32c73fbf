// Package gateway is the WebSocket adapter to the broker gateway process. It
// implements the tick subscription and order placement capabilities the
// monitoring service depends on; the gateway itself owns the vendor session.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/akulikov/tickwatch/internal/domain"
)

const (
	// writeWait bounds a single frame write to the gateway.
	writeWait = 10 * time.Second

	// pongWait is how long the connection may stay silent before the read
	// loop gives up. pingPeriod must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// streamBuffer is the per-subscription tick buffer. A consumer that falls
	// this far behind loses the oldest observations.
	streamBuffer = 64
)

// Client talks to the broker gateway over one WebSocket connection and
// multiplexes tick subscriptions and order placements on it. It implements
// domain.TickSubscriber and domain.OrderPlacer.
type Client struct {
	url    string
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool

	writeMu sync.Mutex

	nextID atomic.Int64

	subMu sync.RWMutex
	subs  map[int64]*tickStream

	orderMu sync.Mutex
	orders  map[int64]chan message

	closeOnce sync.Once
	done      chan struct{}
}

// New creates a Client for the given gateway WebSocket URL. Connect must be
// called before use.
func New(url string, logger *slog.Logger) *Client {
	return &Client{
		url:    url,
		logger: logger.With(slog.String("component", "gateway")),
		subs:   make(map[int64]*tickStream),
		orders: make(map[int64]chan message),
		done:   make(chan struct{}),
	}
}

// Connect dials the gateway and starts the read and keep-alive loops.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("gateway: connect: %w", domain.ErrGatewayDisconnect)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("gateway: connect %s: %w", c.url, err)
	}
	c.conn = conn

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readLoop(conn)
	go c.pingLoop(conn)

	c.logger.Info("gateway connected", slog.String("url", c.url))
	return nil
}

// SubscribeTicks opens a live tick feed for the given contract. The returned
// stream stays open until cancelled or the connection drops.
func (c *Client) SubscribeTicks(ctx context.Context, ref domain.InstrumentRef) (domain.TickStream, error) {
	if ref.Empty() {
		return nil, fmt.Errorf("gateway: subscribe: empty contract: %w", domain.ErrInvalidArgument)
	}

	reqID := c.nextID.Add(1)
	stream := &tickStream{
		client: c,
		reqID:  reqID,
		ch:     make(chan domain.Tick, streamBuffer),
	}

	c.subMu.Lock()
	c.subs[reqID] = stream
	c.subMu.Unlock()

	if err := c.send(request{Op: "subscribe", ReqID: reqID, Contract: contractFromRef(ref)}); err != nil {
		c.subMu.Lock()
		delete(c.subs, reqID)
		c.subMu.Unlock()
		return nil, fmt.Errorf("gateway: subscribe %s: %w", ref, err)
	}

	c.logger.Debug("tick subscription opened",
		slog.Int64("req_id", reqID),
		slog.String("contract", ref.String()),
	)
	return stream, nil
}

// PlaceOrder submits a GTC limit order and waits for the gateway's
// submission verdict. A rejection is reported in the result; transport
// failures come back as errors.
func (c *Client) PlaceOrder(ctx context.Context, ref domain.InstrumentRef, side domain.Side, quantity int, limitPrice float64) (domain.OrderResult, error) {
	if quantity <= 0 || limitPrice <= 0 {
		return domain.OrderResult{}, fmt.Errorf("gateway: place order: quantity %d, limit %.4f: %w", quantity, limitPrice, domain.ErrInvalidArgument)
	}

	reqID := c.nextID.Add(1)
	respCh := make(chan message, 1)

	c.orderMu.Lock()
	c.orders[reqID] = respCh
	c.orderMu.Unlock()
	defer func() {
		c.orderMu.Lock()
		delete(c.orders, reqID)
		c.orderMu.Unlock()
	}()

	req := request{
		Op:         "place_order",
		ReqID:      reqID,
		Contract:   contractFromRef(ref),
		Side:       string(side),
		Quantity:   quantity,
		LimitPrice: limitPrice,
		TIF:        "GTC",
	}
	if err := c.send(req); err != nil {
		return domain.OrderResult{}, fmt.Errorf("gateway: place order %s: %w", ref, err)
	}

	select {
	case <-ctx.Done():
		return domain.OrderResult{}, fmt.Errorf("gateway: place order %s: %w", ref, ctx.Err())
	case <-c.done:
		return domain.OrderResult{}, fmt.Errorf("gateway: place order %s: %w", ref, domain.ErrGatewayDisconnect)
	case msg := <-respCh:
		switch {
		case msg.Type == "error":
			return domain.OrderResult{}, fmt.Errorf("gateway: place order %s: %s: %w", ref, msg.Message, domain.ErrOrderRejected)
		case msg.Status == "submitted":
			return domain.OrderResult{Submitted: true, OrderID: msg.OrderID}, nil
		default:
			return domain.OrderResult{Submitted: false, Reason: msg.Reason}, nil
		}
	}
}

// Done is closed when the client shuts down, whether through Close or because
// the connection dropped. All tick streams are closed at the same time; the
// client does not reconnect.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close shuts the client down, closing every open tick stream.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)

		c.mu.Lock()
		c.closed = true
		conn := c.conn
		c.conn = nil
		c.mu.Unlock()

		if conn != nil {
			_ = conn.Close()
		}
		c.closeAllStreams()
	})
}

func (c *Client) send(req request) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return domain.ErrGatewayDisconnect
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-c.done:
			default:
				c.logger.Error("gateway read failed, closing", slog.String("error", err.Error()))
			}
			c.Close()
			return
		}

		switch msg.Type {
		case "tick":
			c.routeTick(msg)
		case "order_status":
			c.routeOrderStatus(msg)
		case "error":
			c.logger.Warn("gateway error frame",
				slog.Int64("req_id", msg.ReqID),
				slog.String("message", msg.Message),
			)
			// An error frame for a pending order resolves it; waiting the
			// full placement timeout would gain nothing.
			c.routeOrderStatus(msg)
		default:
			c.logger.Debug("unknown gateway frame", slog.String("type", msg.Type))
		}
	}
}

// routeTick delivers a tick frame to its subscription. The read lock is held
// across the channel send so cancellation cannot close the channel while a
// send is in progress.
func (c *Client) routeTick(msg message) {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	stream := c.subs[msg.ReqID]
	if stream == nil {
		// Late tick for a cancelled subscription.
		return
	}

	received := time.Now()
	if msg.TsNano > 0 {
		received = time.Unix(0, msg.TsNano)
	}
	t := domain.Tick{Kind: domain.TickKind(msg.Kind), Price: msg.Price, Received: received}

	select {
	case stream.ch <- t:
	default:
		c.logger.Warn("tick stream buffer full, observation dropped",
			slog.Int64("req_id", msg.ReqID),
		)
	}
}

func (c *Client) routeOrderStatus(msg message) {
	c.orderMu.Lock()
	ch := c.orders[msg.ReqID]
	c.orderMu.Unlock()
	if ch != nil {
		select {
		case ch <- msg:
		default:
		}
	}
}

func (c *Client) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Warn("gateway ping failed", slog.String("error", err.Error()))
				c.Close()
				return
			}
		}
	}
}

// unsubscribe removes a stream and tells the gateway to stop the feed. The
// cancel frame is fire and forget; the local stream is closed regardless.
func (c *Client) unsubscribe(reqID int64) {
	c.subMu.Lock()
	stream, ok := c.subs[reqID]
	delete(c.subs, reqID)
	c.subMu.Unlock()
	if !ok {
		return
	}

	close(stream.ch)
	if err := c.send(request{Op: "unsubscribe", ReqID: reqID}); err != nil {
		c.logger.Debug("unsubscribe frame dropped",
			slog.Int64("req_id", reqID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Client) closeAllStreams() {
	c.subMu.Lock()
	subs := c.subs
	c.subs = make(map[int64]*tickStream)
	c.subMu.Unlock()

	for _, stream := range subs {
		close(stream.ch)
	}
}

// tickStream is one live subscription. It implements domain.TickStream.
type tickStream struct {
	client     *Client
	reqID      int64
	ch         chan domain.Tick
	cancelOnce sync.Once
}

func (s *tickStream) Ticks() <-chan domain.Tick { return s.ch }

func (s *tickStream) Cancel() {
	s.cancelOnce.Do(func() { s.client.unsubscribe(s.reqID) })
}

var (
	_ domain.TickSubscriber = (*Client)(nil)
	_ domain.OrderPlacer    = (*Client)(nil)
)
