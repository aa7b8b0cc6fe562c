package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/armdeck/internal/observability"
	"github.com/danmuck/armdeck/internal/protocol"
)

// Handler answers one request with the given codec.
type Handler interface {
	HandleWith(codec protocol.Codec, data []byte) []byte
}

// StreamCodec is a codec that can find message boundaries on a byte stream.
type StreamCodec interface {
	protocol.Codec
	ReadMessage(r *bufio.Reader) ([]byte, error)
}

// StreamServer serves one request/response exchange at a time per
// connection.
type StreamServer struct {
	handler     Handler
	codec       StreamCodec
	readTimeout time.Duration
	clients     atomic.Int64
	wg          sync.WaitGroup
}

// NewStreamServer builds a server. readTimeout <= 0 disables idle
// disconnects.
func NewStreamServer(handler Handler, codec StreamCodec, readTimeout time.Duration) *StreamServer {
	return &StreamServer{handler: handler, codec: codec, readTimeout: readTimeout}
}

func (s *StreamServer) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", strings.TrimSpace(addr))
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts until ctx is done, then waits for open connections to
// finish their current exchange.
func (s *StreamServer) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	log.Info().Msgf("transport.stream listening addr=%q codec=%s", ln.Addr().String(), s.codec.Name())

	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn reads messages until EOF, a framing error or ctx is done.
func (s *StreamServer) ServeConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	remote := conn.RemoteAddr().String()
	active := s.clients.Add(1)
	observability.RecordConnection(s.codec.Name())
	log.Info().Msgf("transport.stream client connected remote=%q active_clients=%d", remote, active)
	defer func() {
		remaining := s.clients.Add(-1)
		log.Info().Msgf("transport.stream client disconnected remote=%q active_clients=%d", remote, remaining)
	}()

	reader := bufio.NewReader(conn)
	for {
		if s.readTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(s.readTimeout))
		}
		msg, err := s.codec.ReadMessage(reader)
		if err != nil {
			s.readFailed(conn, remote, err)
			return
		}
		out := s.handler.HandleWith(s.codec, msg)
		if len(out) == 0 {
			continue
		}
		if _, err := conn.Write(out); err != nil {
			log.Warn().Err(err).Msgf("transport.stream write remote=%q", remote)
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// readFailed answers framing errors with a NACK before the connection is
// dropped; the stream cannot be realigned after one.
func (s *StreamServer) readFailed(conn net.Conn, remote string, err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		log.Info().Msgf("transport.stream idle timeout remote=%q", remote)
		return
	}
	log.Warn().Err(err).Msgf("transport.stream read remote=%q", remote)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return
	}
	nack, encErr := s.codec.EncodeResponse(protocol.Nack(protocol.CodeFor(err), nil))
	if encErr != nil {
		return
	}
	_, _ = conn.Write(nack)
}
