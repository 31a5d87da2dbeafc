package redisserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/yndnr/miniredis-go/internal/storage/memory"
	"github.com/yndnr/miniredis-go/internal/telemetry/metric"
	"github.com/yndnr/miniredis-go/pkg/resp"
)

// ============================================================
// Test helpers
// ============================================================

type testServer struct {
	*Server
	clock *testClock
	store *memory.Store
}

func startTestServer(t *testing.T, cfg *Config, opts ...ServerOption) *testServer {
	t.Helper()

	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Addr = "127.0.0.1:0"

	clock := newTestClock()
	store := memory.New(memory.WithClock(clock.Now))
	srv := New(cfg, NewDispatcher(store), opts...)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return &testServer{Server: srv, clock: clock, store: store}
}

type testClient struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
}

func dial(t *testing.T, addr net.Addr) *testClient {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), 2*time.Second)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	return &testClient{t: t, conn: conn, br: bufio.NewReader(conn)}
}

func (c *testClient) write(raw string) {
	c.t.Helper()
	if _, err := io.WriteString(c.conn, raw); err != nil {
		c.t.Fatalf("write error = %v", err)
	}
}

func (c *testClient) send(args ...string) {
	c.t.Helper()
	c.write(string(resp.EncodeCommand(args...)))
}

// read decodes the next reply from the connection.
func (c *testClient) read() resp.Reply {
	c.t.Helper()
	var buf []byte
	for {
		r, _, err := resp.DecodeReply(buf)
		if err == nil {
			return r
		}
		if !errors.Is(err, resp.ErrIncomplete) {
			c.t.Fatalf("DecodeReply() error = %v", err)
		}
		b, err := c.br.ReadByte()
		if err != nil {
			c.t.Fatalf("read error = %v (partial %q)", err, buf)
		}
		buf = append(buf, b)
	}
}

func (c *testClient) do(args ...string) resp.Reply {
	c.t.Helper()
	c.send(args...)
	return c.read()
}

// expectClosed asserts the server closed the connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.br.ReadByte(); !errors.Is(err, io.EOF) {
		c.t.Errorf("read after close error = %v, want EOF", err)
	}
}

// ============================================================
// Session Tests
// ============================================================

func TestServer_Basic(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	if got := c.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING = %v", got)
	}
	if got := c.do("SET", "mykey", "hello"); !got.Equal(resp.OK) {
		t.Errorf("SET = %v", got)
	}
	if got := c.do("GET", "mykey"); !got.Equal(resp.BulkString("hello")) {
		t.Errorf("GET = %v", got)
	}
	if got := c.do("GET", "other"); !got.Equal(resp.Nil()) {
		t.Errorf("GET missing = %v", got)
	}
}

func TestServer_WireFormat(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	c.write("*5\r\n$3\r\nSET\r\n$5\r\nmykey\r\n$5\r\nhello\r\n$2\r\nEX\r\n$2\r\n10\r\n")
	c.write("*2\r\n$3\r\nGET\r\n$5\r\nmykey\r\n")

	want := "+OK\r\n$5\r\nhello\r\n"
	got := make([]byte, len(want))
	if _, err := io.ReadFull(c.br, got); err != nil {
		t.Fatalf("ReadFull() error = %v", err)
	}
	if string(got) != want {
		t.Errorf("wire reply = %q, want %q", got, want)
	}
}

func TestServer_UnknownCommandKeepsConnection(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	got := c.do("FOO")
	if !got.IsError() || !strings.Contains(got.Str, "FOO") {
		t.Errorf("FOO = %v, want an error naming FOO", got)
	}
	if got := c.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING after unknown command = %v", got)
	}
}

func TestServer_Pipelining(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	var batch []byte
	for i := 0; i < 100; i++ {
		batch = resp.AppendCommand(batch, "SET", fmt.Sprintf("k%d", i), fmt.Sprintf("v%d", i))
		batch = resp.AppendCommand(batch, "GET", fmt.Sprintf("k%d", i))
	}
	c.write(string(batch))

	for i := 0; i < 100; i++ {
		if got := c.read(); !got.Equal(resp.OK) {
			t.Fatalf("reply %d = %v, want OK", 2*i, got)
		}
		if got := c.read(); !got.Equal(resp.BulkString(fmt.Sprintf("v%d", i))) {
			t.Fatalf("reply %d = %v, want v%d", 2*i+1, got, i)
		}
	}
}

func TestServer_Fragmentation(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	raw := string(resp.EncodeCommand("SET", "frag", "line1\r\nline2")) +
		string(resp.EncodeCommand("GET", "frag"))

	// One byte per write; Nagle is off by default for Go TCP conns.
	for i := 0; i < len(raw); i++ {
		c.write(raw[i : i+1])
	}

	if got := c.read(); !got.Equal(resp.OK) {
		t.Errorf("SET = %v", got)
	}
	if got := c.read(); !got.Equal(resp.BulkString("line1\r\nline2")) {
		t.Errorf("GET = %v", got)
	}
}

func TestServer_LargeValue(t *testing.T) {
	srv := startTestServer(t, &Config{ReadBufferSize: 512})
	c := dial(t, srv.Addr())

	value := strings.Repeat("x", 64<<10)
	if got := c.do("SET", "big", value); !got.Equal(resp.OK) {
		t.Fatalf("SET = %v", got)
	}
	if got := c.do("GET", "big"); !got.Equal(resp.BulkString(value)) {
		t.Errorf("GET returned %d bytes, want %d", len(got.Bulk), len(value))
	}
}

func TestServer_ExpiryOverTheWire(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	c.do("SET", "k", "v", "EX", "1")
	if got := c.do("GET", "k"); !got.Equal(resp.BulkString("v")) {
		t.Errorf("GET before expiry = %v", got)
	}

	srv.clock.Advance(time.Second)
	if got := c.do("GET", "k"); !got.Equal(resp.Nil()) {
		t.Errorf("GET after expiry = %v, want nil", got)
	}
	if srv.store.Len() != 0 {
		t.Errorf("store Len() = %d, want 0 after lazy expiry", srv.store.Len())
	}
}

func TestServer_ProtocolErrorClosesConnection(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"inline command", "PING\r\n"},
		{"bad count", "*x\r\n"},
		{"bad bulk header", "*1\r\n+PING\r\n"},
		{"bad bulk length", "*1\r\n$abc\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := metric.NewRegistry()
			srv := startTestServer(t, nil, WithServerMetrics(reg))
			c := dial(t, srv.Addr())

			c.write(tt.input)
			got := c.read()
			if !got.IsError() || !strings.HasPrefix(got.Str, "ERR Protocol error: ") {
				t.Errorf("reply = %v, want a protocol error", got)
			}
			c.expectClosed()

			if n := testutil.ToFloat64(reg.ProtocolErrors); n != 1 {
				t.Errorf("protocol errors = %v, want 1", n)
			}
		})
	}
}

func TestServer_RepliesBeforeProtocolError(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	c.write(string(resp.EncodeCommand("PING")) + "garbage\r\n")
	if got := c.read(); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("first reply = %v, want PONG", got)
	}
	if got := c.read(); !got.IsError() {
		t.Errorf("second reply = %v, want protocol error", got)
	}
	c.expectClosed()
}

func TestServer_EmptyFrame(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	c.write("*0\r\n")
	if got := c.read(); !got.Equal(resp.Error("ERR empty command")) {
		t.Errorf("empty frame = %v", got)
	}
	if got := c.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("PING after empty frame = %v", got)
	}
}

func TestServer_Quit(t *testing.T) {
	srv := startTestServer(t, nil)
	c := dial(t, srv.Addr())

	// Commands pipelined after QUIT are never answered.
	c.write(string(resp.EncodeCommand("QUIT")) + string(resp.EncodeCommand("PING")))
	if got := c.read(); !got.Equal(resp.OK) {
		t.Errorf("QUIT = %v", got)
	}
	c.expectClosed()
}

func TestServer_FrameLimits(t *testing.T) {
	srv := startTestServer(t, &Config{MaxArrayLen: 3, MaxBulkLen: 8})
	c := dial(t, srv.Addr())

	c.send("SET", "k", "0123456789")
	got := c.read()
	if !got.IsError() || !strings.Contains(got.Str, "limit exceeded") {
		t.Errorf("oversized bulk = %v, want a limit error", got)
	}
	c.expectClosed()
}

// ============================================================
// Concurrency Tests
// ============================================================

func TestServer_ConcurrentClients(t *testing.T) {
	srv := startTestServer(t, nil)

	const clients = 16
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			conn, err := net.Dial("tcp", srv.Addr().String())
			if err != nil {
				t.Errorf("Dial() error = %v", err)
				return
			}
			defer conn.Close()
			_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
			c := &testClient{t: t, conn: conn, br: bufio.NewReader(conn)}

			value := fmt.Sprintf("client-%d", id)
			for j := 0; j < 50; j++ {
				c.send("SET", "shared", value)
				c.send("SET", value, value)
				c.send("GET", value)
				if r := c.read(); !r.Equal(resp.OK) {
					t.Errorf("SET shared = %v", r)
					return
				}
				c.read()
				if r := c.read(); !r.Equal(resp.BulkString(value)) {
					t.Errorf("GET own key = %v, want %s", r, value)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	c := dial(t, srv.Addr())
	got := c.do("GET", "shared")
	if !strings.HasPrefix(string(got.Bulk), "client-") {
		t.Errorf("GET shared = %v, want one client's value", got)
	}
}

// ============================================================
// Listener Tests
// ============================================================

func TestServer_MaxConnections(t *testing.T) {
	reg := metric.NewRegistry()
	srv := startTestServer(t, &Config{MaxConnections: 1}, WithServerMetrics(reg))

	first := dial(t, srv.Addr())
	if got := first.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Fatalf("first PING = %v", got)
	}

	second := dial(t, srv.Addr())
	if got := second.read(); !got.Equal(resp.Error("ERR max number of clients reached")) {
		t.Errorf("second connection reply = %v", got)
	}
	second.expectClosed()

	if n := testutil.ToFloat64(reg.ConnectionsRejected); n != 1 {
		t.Errorf("rejected = %v, want 1", n)
	}
	if got := first.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Errorf("first connection after rejection = %v", got)
	}
}

func TestServer_RateLimit(t *testing.T) {
	srv := startTestServer(t, &Config{RateLimit: 1, RateBurst: 2})
	c := dial(t, srv.Addr())

	c.send("PING")
	c.send("PING")
	c.send("PING")

	for i := 0; i < 2; i++ {
		if got := c.read(); !got.Equal(resp.SimpleString("PONG")) {
			t.Errorf("reply %d = %v, want PONG", i, got)
		}
	}
	if got := c.read(); !got.Equal(resp.Error("ERR rate limit exceeded")) {
		t.Errorf("third reply = %v, want rate limit error", got)
	}
}

func TestServer_IdleTimeout(t *testing.T) {
	srv := startTestServer(t, &Config{IdleTimeout: 50 * time.Millisecond})
	c := dial(t, srv.Addr())

	if got := c.do("PING"); !got.Equal(resp.SimpleString("PONG")) {
		t.Fatalf("PING = %v", got)
	}
	c.expectClosed()
}

func TestServer_ShutdownClosesSessions(t *testing.T) {
	reg := metric.NewRegistry()
	srv := startTestServer(t, nil, WithServerMetrics(reg))
	c := dial(t, srv.Addr())
	c.do("PING")

	if n := srv.Connections(); n != 1 {
		t.Errorf("Connections() = %d, want 1", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	c.expectClosed()

	if n := srv.Connections(); n != 0 {
		t.Errorf("Connections() after Shutdown = %d, want 0", n)
	}
	if n := testutil.ToFloat64(reg.ConnectionsActive); n != 0 {
		t.Errorf("active connections = %v, want 0", n)
	}
	if _, err := net.DialTimeout("tcp", srv.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("Dial() after Shutdown succeeded")
	}
	if err := srv.Start(context.Background()); !errors.Is(err, ErrServerClosed) {
		t.Errorf("Start() after Shutdown error = %v, want ErrServerClosed", err)
	}
}

func TestServer_StartBindError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	defer ln.Close()

	srv := New(&Config{Addr: ln.Addr().String()}, NewDispatcher(memory.New()))
	if err := srv.Start(context.Background()); err == nil {
		t.Error("Start() on a used port succeeded")
		_ = srv.Shutdown(context.Background())
	}
}
