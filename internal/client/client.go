// Package client talks to armdeckd from the host side, over the stream link
// or the HTTP gateway, in either codec.
package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/protocol"
	"github.com/danmuck/armdeck/internal/protocol/document"
	"github.com/danmuck/armdeck/internal/protocol/frame"
	"github.com/danmuck/armdeck/internal/transport"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 5 * time.Second

// ResponseError is a response that carried a non-zero error code.
type ResponseError struct {
	Command protocol.CommandID
	Code    protocol.ErrorCode
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("client: %s answered %s", e.Command, e.Code)
}

// CodecByName returns the stream codec registered under name.
func CodecByName(name string) (transport.StreamCodec, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "frame":
		return frame.NewCodec(), nil
	case "json":
		return document.NewCodec(), nil
	default:
		return nil, fmt.Errorf("client: unknown codec %q", name)
	}
}

type roundTripper interface {
	roundTrip(ctx context.Context, req []byte) ([]byte, error)
	Close() error
}

// Client issues one command at a time.
type Client struct {
	mu    sync.Mutex
	codec transport.StreamCodec
	rt    roundTripper
}

// Dial returns a stream client. The connection is opened lazily and
// reopened after a transport failure.
func Dial(addr string, codec transport.StreamCodec, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{codec: codec, rt: &streamLink{addr: addr, codec: codec, timeout: timeout}}
}

// NewHTTP returns a client for the gateway's POST /command route.
func NewHTTP(baseURL string, codec transport.StreamCodec, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	contentType := transport.ContentTypeFrame
	if codec.Name() == "json" {
		contentType = transport.ContentTypeDocument
	}
	return &Client{codec: codec, rt: &httpLink{
		url:         strings.TrimRight(baseURL, "/") + "/command",
		contentType: contentType,
		http:        &http.Client{Timeout: timeout},
	}}
}

func (c *Client) Close() error {
	return c.rt.Close()
}

// Call sends cmd and decodes the reply. A reply with a non-zero code is
// returned together with a *ResponseError.
func (c *Client) Call(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := c.codec.EncodeCommand(cmd)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: encode %s: %w", cmd.ID, err)
	}
	raw, err := c.rt.roundTrip(ctx, req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: %s: %w", cmd.ID, err)
	}
	resp, err := c.codec.DecodeResponse(raw)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: decode %s reply: %w", cmd.ID, err)
	}
	log.Debug().Msgf("client.Client.call codec=%s command=%s code=%s result=%d", c.codec.Name(), cmd.ID, resp.Code, len(resp.Result))
	if !resp.OK() {
		return resp, &ResponseError{Command: resp.Command, Code: resp.Code}
	}
	return resp, nil
}

func (c *Client) Info(ctx context.Context) (devinfo.Info, error) {
	resp, err := c.Call(ctx, protocol.Command{ID: protocol.CmdGetInfo})
	if err != nil {
		return devinfo.Info{}, err
	}
	return devinfo.Decode(resp.Result)
}

func (c *Client) Config(ctx context.Context) (deck.DeviceConfig, error) {
	resp, err := c.Call(ctx, protocol.Command{ID: protocol.CmdGetConfig})
	if err != nil {
		return deck.DeviceConfig{}, err
	}
	return deck.DecodeConfig(resp.Result)
}

// SetConfig seals cfg before sending it.
func (c *Client) SetConfig(ctx context.Context, cfg deck.DeviceConfig) error {
	raw, err := cfg.Seal().MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Call(ctx, protocol.Command{ID: protocol.CmdSetConfig, Payload: raw})
	return err
}

func (c *Client) Reset(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.Command{ID: protocol.CmdResetConfig})
	return err
}

func (c *Client) Button(ctx context.Context, id uint8) (deck.Button, error) {
	resp, err := c.Call(ctx, protocol.Command{ID: protocol.CmdGetButton, Payload: []byte{id}})
	if err != nil {
		return deck.Button{}, err
	}
	return deck.DecodeButton(resp.Result)
}

func (c *Client) SetButton(ctx context.Context, b deck.Button) error {
	raw, err := b.MarshalBinary()
	if err != nil {
		return err
	}
	_, err = c.Call(ctx, protocol.Command{ID: protocol.CmdSetButton, Payload: raw})
	return err
}

func (c *Client) Test(ctx context.Context, id uint8) error {
	_, err := c.Call(ctx, protocol.Command{ID: protocol.CmdTestButton, Payload: []byte{id}})
	return err
}

func (c *Client) Restart(ctx context.Context) error {
	_, err := c.Call(ctx, protocol.Command{ID: protocol.CmdRestart})
	return err
}

type streamLink struct {
	addr    string
	codec   transport.StreamCodec
	timeout time.Duration
	conn    net.Conn
	r       *bufio.Reader
}

func (l *streamLink) roundTrip(ctx context.Context, req []byte) ([]byte, error) {
	if err := l.ensureConn(ctx); err != nil {
		return nil, err
	}
	deadline := time.Now().Add(l.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := l.conn.SetDeadline(deadline); err != nil {
		l.resetConn()
		return nil, err
	}
	if _, err := l.conn.Write(req); err != nil {
		l.resetConn()
		return nil, err
	}
	msg, err := l.codec.ReadMessage(l.r)
	if err != nil {
		l.resetConn()
		return nil, err
	}
	return msg, nil
}

func (l *streamLink) ensureConn(ctx context.Context) error {
	if l.conn != nil {
		return nil
	}
	dialer := net.Dialer{Timeout: l.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", l.addr)
	if err != nil {
		return err
	}
	l.conn = conn
	l.r = bufio.NewReader(conn)
	return nil
}

func (l *streamLink) resetConn() {
	if l.conn != nil {
		_ = l.conn.Close()
	}
	l.conn = nil
	l.r = nil
}

func (l *streamLink) Close() error {
	if l.conn == nil {
		return nil
	}
	err := l.conn.Close()
	l.conn = nil
	l.r = nil
	return err
}

type httpLink struct {
	url         string
	contentType string
	http        *http.Client
}

func (l *httpLink) roundTrip(ctx context.Context, req []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(req))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", l.contentType)
	resp, err := l.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, document.MaxDocumentSize+1))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, errors.New("empty reply from gateway")
	}
	return body, nil
}

func (l *httpLink) Close() error {
	l.http.CloseIdleConnections()
	return nil
}
