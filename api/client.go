package api

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Client is a connection to an ArrowServer. It is safe for concurrent use;
// requests are serialized over the one connection.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	timeout time.Duration
}

// Dial connects to the server at addr.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial %s", addr)
	}
	return &Client{conn: conn, timeout: 30 * time.Second}, nil
}

// SetTimeout sets the deadline applied to each round trip. Zero disables it.
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Validate sends an IPC stream for validation and returns the number of rows
// the server accepted.
func (c *Client) Validate(stream []byte) (int64, error) {
	body, err := c.roundTrip(OpValidate, stream)
	if err != nil {
		return 0, err
	}
	rows, err := strconv.ParseInt(string(bytes.TrimPrefix(body, []byte(" rows="))), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "malformed validate reply %q", body)
	}
	return rows, nil
}

// Compare sends a two-column IPC stream and returns the per-row equality.
func (c *Client) Compare(stream []byte) ([]bool, error) {
	body, err := c.roundTrip(OpCompare, stream)
	if err != nil {
		return nil, err
	}
	eq := make([]bool, len(body))
	for i, b := range body {
		eq[i] = b != 0
	}
	return eq, nil
}

func (c *Client) roundTrip(op Op, stream []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
			return nil, errors.Wrap(err, "failed to set deadline")
		}
	}
	if err := WriteMessage(c.conn, EncodeRequest(op, stream)); err != nil {
		return nil, errors.Wrapf(err, "%s request", op)
	}
	reply, err := ReadMessage(c.conn)
	if err != nil {
		return nil, errors.Wrapf(err, "%s reply", op)
	}
	return parseReply(reply)
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
