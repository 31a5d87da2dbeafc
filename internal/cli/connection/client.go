package connection

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/yndnr/miniredis-go/pkg/resp"
)

// DefaultTimeout bounds dialing and each round trip.
const DefaultTimeout = 5 * time.Second

// ErrNotConnected is returned by Do after Close.
var ErrNotConnected = errors.New("connection: not connected")

// Client is a RESP client for a single server.
type Client struct {
	addr    string
	timeout time.Duration

	conn net.Conn
	bw   *bufio.Writer
	br   *bufio.Reader
	buf  []byte
}

// Dial connects to addr. A zero timeout uses DefaultTimeout.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}
	return &Client{
		addr:    addr,
		timeout: timeout,
		conn:    conn,
		bw:      bufio.NewWriter(conn),
		br:      bufio.NewReader(conn),
	}, nil
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends args as one command and returns the server's reply. An error
// reply from the server is a successful round trip: check Reply.IsError.
func (c *Client) Do(args ...string) (resp.Reply, error) {
	if c.conn == nil {
		return resp.Reply{}, ErrNotConnected
	}
	if len(args) == 0 {
		return resp.Reply{}, errors.New("connection: empty command")
	}

	if err := c.conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return resp.Reply{}, err
	}
	if _, err := c.bw.Write(resp.EncodeCommand(args...)); err != nil {
		return resp.Reply{}, fmt.Errorf("send: %w", err)
	}
	if err := c.bw.Flush(); err != nil {
		return resp.Reply{}, fmt.Errorf("send: %w", err)
	}
	return c.readReply()
}

func (c *Client) readReply() (resp.Reply, error) {
	chunk := make([]byte, 4096)
	for {
		r, n, err := resp.DecodeReply(c.buf)
		if err == nil {
			c.buf = c.buf[:copy(c.buf, c.buf[n:])]
			return r, nil
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			return resp.Reply{}, fmt.Errorf("read reply: %w", err)
		}

		m, err := c.br.Read(chunk)
		c.buf = append(c.buf, chunk[:m]...)
		if err != nil && m == 0 {
			return resp.Reply{}, fmt.Errorf("read reply: %w", err)
		}
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
