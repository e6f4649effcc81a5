package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"forumkit/internal/logging"
	"forumkit/internal/model"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

// ConnConfig tunes the shared WebSocket connection.
type ConnConfig struct {
	URL          string
	PingInterval time.Duration
	Backoff      time.Duration // initial reconnect delay
	MaxBackoff   time.Duration
}

// Conn maintains the single shared WebSocket connection to the backend and
// feeds decoded events into a Dispatcher. It reconnects with exponential
// backoff until the context is cancelled.
type Conn struct {
	cfg        ConnConfig
	token      func() string // bearer token source, may return ""
	dispatcher *Dispatcher
	log        *logging.Logger

	mu      sync.Mutex
	started bool
	done    chan struct{}
}

// NewConn creates the connection. token is consulted on every (re)dial so a
// refreshed session is picked up without restarting the client.
func NewConn(cfg ConnConfig, token func() string, d *Dispatcher) *Conn {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Conn{
		cfg:        cfg,
		token:      token,
		dispatcher: d,
		log:        logging.Get(logging.CategoryRealtime),
		done:       make(chan struct{}),
	}
}

// Start runs the connection loop in a goroutine. Non-blocking; call once.
func (c *Conn) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
}

// Done is closed when the connection loop has fully exited.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

func (c *Conn) run(ctx context.Context) {
	defer close(c.done)

	backoff := c.cfg.Backoff
	for {
		if ctx.Err() != nil {
			return
		}

		ws, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("dial %s failed: %v (retrying in %v)", c.cfg.URL, err, backoff)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, c.cfg.MaxBackoff)
			continue
		}

		c.log.Info("connected to %s", c.cfg.URL)
		backoff = c.cfg.Backoff

		if err := c.serve(ctx, ws); err != nil && ctx.Err() == nil {
			c.log.Warn("connection lost: %v", err)
		}
		_ = ws.Close()
	}
}

func (c *Conn) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	if tok := c.token(); tok != "" {
		header.Set("Authorization", "Bearer "+tok)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	return ws, err
}

// serve runs the read and ping pumps until either fails or ctx is cancelled.
func (c *Conn) serve(ctx context.Context, ws *websocket.Conn) error {
	g, ctx := errgroup.WithContext(ctx)

	readDeadline := 2 * c.cfg.PingInterval
	_ = ws.SetReadDeadline(time.Now().Add(readDeadline))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readDeadline))
	})

	g.Go(func() error {
		return c.readPump(ws)
	})
	g.Go(func() error {
		return c.pingPump(ctx, ws)
	})
	g.Go(func() error {
		// Unblock the read pump when the context dies.
		<-ctx.Done()
		_ = ws.Close()
		return ctx.Err()
	})
	return g.Wait()
}

func (c *Conn) readPump(ws *websocket.Conn) error {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return err
		}

		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			c.log.Warn("undecodable frame dropped: %v", err)
			continue
		}
		if ev.Channel == "" {
			continue
		}
		c.dispatcher.Dispatch(ev)
	}
}

func (c *Conn) pingPump(ctx context.Context, ws *websocket.Conn) error {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return err
			}
		}
	}
}
