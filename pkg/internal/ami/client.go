package ami

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handler consumes one event. Events of a single connection are handled
// serially: the next frame is not read until the handler returns.
type Handler func(event Event)

type Config struct {
	Host     string
	Port     int
	Username string
	Secret   string
}

// Client keeps one manager-interface session and feeds decoded events
// into its handler.
type Client struct {
	cfg     Config
	handler Handler

	mu   sync.Mutex
	conn net.Conn
}

func NewClient(cfg Config, handler Handler) *Client {
	return &Client{cfg: cfg, handler: handler}
}

// Run connects and pumps events until the context is cancelled,
// reconnecting with backoff after connection loss.
func (c *Client) Run(ctx context.Context) {
	backoff := time.Second
	for {
		if err := c.session(ctx); err != nil {
			log.Warn().Err(err).Str("host", c.cfg.Host).Msg("Manager session ended, reconnecting...")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (c *Client) session(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("dial manager interface: %w", err)
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The watcher lives for this session only, a reconnect gets a
	// fresh one.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	reader := bufio.NewReader(conn)

	// The server greets with a protocol banner before any frame.
	if _, err := reader.ReadString('\n'); err != nil {
		return fmt.Errorf("read banner: %w", err)
	}

	if err := c.Send(Action{
		"Action":   "Login",
		"Username": c.cfg.Username,
		"Secret":   c.cfg.Secret,
	}); err != nil {
		return err
	}

	frame, err := readFrame(reader)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if frame.Get("Response") != "Success" {
		return fmt.Errorf("manager login rejected: %s", frame.Get("Message"))
	}
	log.Info().Str("host", c.cfg.Host).Msg("Manager interface connected.")

	for {
		frame, err := readFrame(reader)
		if err != nil {
			return err
		}
		if frame.Name() == "" {
			continue
		}
		c.handler(frame)
	}
}

// Send writes one action frame, stamping an ActionID when absent.
func (c *Client) Send(action Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("manager interface not connected")
	}

	if _, ok := action["ActionID"]; !ok {
		action["ActionID"] = uuid.NewString()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Action: %s\r\n", action["Action"]))
	for key, value := range action {
		if key == "Action" {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\r\n", key, value))
	}
	sb.WriteString("\r\n")

	_, err := c.conn.Write([]byte(sb.String()))
	return err
}

// readFrame decodes one CRLF-terminated header block.
func readFrame(reader *bufio.Reader) (Event, error) {
	frame := Event{}
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			if len(frame) == 0 {
				continue
			}
			return frame, nil
		}
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		frame[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
}
