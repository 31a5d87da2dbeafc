package redisserver

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/yndnr/miniredis-go/internal/telemetry/logger"
	"github.com/yndnr/miniredis-go/pkg/resp"
)

var errRateLimited = &CommandError{Msg: "ERR rate limit exceeded"}

// session owns one client connection: its receive buffer, its buffered
// writer and its limiter. Nothing in it is shared with other sessions.
type session struct {
	id   string
	srv  *Server
	conn net.Conn

	buf      []byte
	readSize int
	bw       *bufio.Writer
	dec      resp.Decoder
	limiter  *rate.Limiter

	closed atomic.Bool
}

func newSession(srv *Server, c net.Conn) *session {
	cfg := srv.cfg
	s := &session{
		id:       "conn-" + ulid.Make().String(),
		srv:      srv,
		conn:     c,
		readSize: cfg.ReadBufferSize,
		buf:      make([]byte, 0, cfg.ReadBufferSize),
		bw:       bufio.NewWriterSize(c, cfg.ReadBufferSize),
		dec:      resp.Decoder{MaxArrayLen: cfg.MaxArrayLen, MaxBulkLen: cfg.MaxBulkLen},
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = max(1, int(cfg.RateLimit))
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s
}

func (s *session) close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.conn.Close()
}

// serve runs the read/decode/dispatch loop until the peer goes away, an
// I/O error occurs or a frame is malformed.
func (s *session) serve(ctx context.Context) {
	defer s.close()

	ctx = logger.WithLogger(ctx, s.srv.logger)
	ctx = logger.WithConnID(ctx, s.id)
	ctx = logger.WithRemoteAddr(ctx, s.conn.RemoteAddr().String())
	log := logger.L(ctx)
	log.Debug("connection opened")

	for {
		if err := s.conn.SetReadDeadline(s.readDeadline()); err != nil {
			return
		}

		if cap(s.buf)-len(s.buf) < s.readSize {
			s.buf = slices.Grow(s.buf, s.readSize)
		}
		n, err := s.conn.Read(s.buf[len(s.buf):cap(s.buf)])
		if n > 0 {
			s.buf = s.buf[:len(s.buf)+n]
			if !s.process(ctx) {
				return
			}
		}
		if err != nil {
			s.logReadError(log, err)
			return
		}
	}
}

// readDeadline allows the idle timeout between commands and tightens to
// the read timeout while a command is partially received.
func (s *session) readDeadline() time.Time {
	cfg := s.srv.cfg
	if len(s.buf) > 0 {
		return time.Now().Add(cfg.ReadTimeout)
	}
	if cfg.IdleTimeout > 0 {
		return time.Now().Add(cfg.IdleTimeout)
	}
	return time.Time{}
}

// process decodes and answers every complete frame in the buffer, then
// flushes. It reports whether the connection should stay open.
func (s *session) process(ctx context.Context) bool {
	off := 0
	defer func() { s.compact(off) }()

	for {
		frame, n, err := s.dec.Decode(s.buf[off:])
		if errors.Is(err, resp.ErrIncomplete) {
			break
		}
		if err != nil {
			s.srv.metrics.IncProtocolError()
			logger.L(ctx).Warn("protocol error, closing connection", "error", err)
			_ = resp.WriteReply(s.bw, resp.Error("ERR Protocol error: "+protocolDetail(err)))
			_ = s.flush()
			return false
		}
		off += n

		argv := frame.Strings()
		reply := s.execute(ctx, argv)
		if err := resp.WriteReply(s.bw, reply); err != nil {
			return false
		}
		if IsQuit(argv) && !reply.IsError() {
			_ = s.flush()
			return false
		}
	}

	return s.flush() == nil
}

func (s *session) execute(ctx context.Context, argv []string) resp.Reply {
	if s.limiter != nil && !s.limiter.Allow() {
		return errorReply(errRateLimited)
	}
	return s.srv.dispatcher.Dispatch(ctx, argv)
}

func (s *session) flush() error {
	if s.bw.Buffered() == 0 {
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.srv.cfg.WriteTimeout)); err != nil {
		return err
	}
	return s.bw.Flush()
}

// compact drops the consumed prefix of the buffer. A buffer grown for a
// large frame is released once it drains.
func (s *session) compact(off int) {
	if off == 0 {
		return
	}
	rest := copy(s.buf, s.buf[off:])
	s.buf = s.buf[:rest]
	if rest == 0 && cap(s.buf) > 4*s.readSize {
		s.buf = make([]byte, 0, s.readSize)
	}
}

func (s *session) logReadError(log logger.Logger, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		log.Debug("connection closed")
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.Debug("connection timed out", "pending_bytes", len(s.buf))
		return
	}
	log.Debug("connection read error", "error", err)
}

// protocolDetail strips the package prefix from a decoder error.
func protocolDetail(err error) string {
	msg := err.Error()
	for _, prefix := range []string{resp.ErrProtocol.Error() + ": ", "resp: "} {
		if strings.HasPrefix(msg, prefix) {
			return strings.TrimPrefix(msg, prefix)
		}
	}
	return msg
}
