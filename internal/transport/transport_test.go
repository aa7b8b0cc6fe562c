package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danmuck/armdeck/internal/deck"
	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/dispatch"
	"github.com/danmuck/armdeck/internal/nvs"
	"github.com/danmuck/armdeck/internal/protocol"
	"github.com/danmuck/armdeck/internal/protocol/document"
	"github.com/danmuck/armdeck/internal/protocol/frame"
	"github.com/danmuck/armdeck/internal/store"
	"github.com/danmuck/armdeck/internal/testutil/testlog"
)

func newDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()
	st := store.New(nvs.NewMemory())
	if err := st.Init(); err != nil {
		t.Fatalf("init store: %v", err)
	}
	info := devinfo.NewProvider()
	return dispatch.New(frame.NewCodec(), st, info)
}

func pipeServer(t *testing.T, codec StreamCodec) (net.Conn, context.CancelFunc) {
	t.Helper()
	server, client := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewStreamServer(newDispatcher(t), codec, time.Second)
	done := make(chan struct{})
	go func() {
		srv.ServeConn(ctx, server)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
		<-done
	})
	_ = client.SetDeadline(time.Now().Add(5 * time.Second))
	return client, cancel
}

func TestStreamFrameExchange(t *testing.T) {
	testlog.Start(t)

	client, _ := pipeServer(t, frame.NewCodec())
	reader := bufio.NewReader(client)

	for _, id := range []uint8{0, deck.MaxButtons - 1} {
		req, _ := frame.Build(uint8(protocol.CmdGetButton), []byte{id})
		if _, err := client.Write(req); err != nil {
			t.Fatalf("write: %v", err)
		}
		raw, err := frame.ReadFrame(reader)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		resp, err := frame.NewCodec().DecodeResponse(raw)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		want, _ := deck.DefaultButton(id).MarshalBinary()
		if !resp.OK() || !bytes.Equal(resp.Result, want) {
			t.Fatalf("unexpected response for button %d: %+v", id, resp)
		}
	}
}

func TestStreamBadMagicNacksAndCloses(t *testing.T) {
	testlog.Start(t)

	client, _ := pipeServer(t, frame.NewCodec())
	if _, err := client.Write([]byte{0x01, 0x02, 0x03, 0x04}); err != nil {
		t.Fatalf("write: %v", err)
	}
	reader := bufio.NewReader(client)
	raw, err := frame.ReadFrame(reader)
	if err != nil {
		t.Fatalf("read nack: %v", err)
	}
	resp, _ := frame.NewCodec().DecodeResponse(raw)
	if resp.Command != protocol.CmdNack || resp.Code != protocol.CodeMagic {
		t.Fatalf("expected NACK magic, got %+v", resp)
	}
	if _, err := reader.ReadByte(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected connection close, got %v", err)
	}
}

func TestStreamDocumentExchange(t *testing.T) {
	testlog.Start(t)

	codec := document.NewCodec()
	client, _ := pipeServer(t, codec)
	reader := bufio.NewReader(client)

	go func() {
		_, _ = client.Write([]byte("{\"cmd\":\"0x10\"}\n{\"cmd\":\"0x30\",\"data\":{\"button\":99}}\n"))
	}()

	first, err := codec.ReadMessage(reader)
	if err != nil {
		t.Fatalf("read first: %v", err)
	}
	resp, err := codec.DecodeResponse(first)
	if err != nil || !resp.OK() || resp.Command != protocol.CmdGetInfo {
		t.Fatalf("unexpected info response: %+v %v", resp, err)
	}

	second, err := codec.ReadMessage(reader)
	if err != nil {
		t.Fatalf("read second: %v", err)
	}
	resp, _ = codec.DecodeResponse(second)
	if resp.Command != protocol.CmdGetButton || resp.Code != protocol.CodeInvalidParam {
		t.Fatalf("expected INVALID_PARAM for button 99, got %+v", resp)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewStreamServer(newDispatcher(t), frame.NewCodec(), 0)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	conn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	req, _ := frame.Build(uint8(protocol.CmdGetInfo), nil)
	_, _ = conn.Write(req)
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, err := frame.ReadFrame(conn); err != nil {
		t.Fatalf("read: %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("serve did not stop after cancel")
	}
}

func newGateway(t *testing.T) *Gateway {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewGateway(newDispatcher(t), frame.NewCodec(), document.NewCodec(), GatewayConfig{})
}

func TestGatewayFrameCommand(t *testing.T) {
	testlog.Start(t)

	g := newGateway(t)
	req, _ := frame.Build(uint8(protocol.CmdGetConfig), nil)
	r := httptest.NewRequest(http.MethodPost, "/command", bytes.NewReader(req))
	r.Header.Set("Content-Type", ContentTypeFrame)
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, r)

	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != ContentTypeFrame {
		t.Fatalf("unexpected status=%d content-type=%q", w.Code, w.Header().Get("Content-Type"))
	}
	resp, err := frame.NewCodec().DecodeResponse(w.Body.Bytes())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want, _ := deck.Default().MarshalBinary()
	if !resp.OK() || !bytes.Equal(resp.Result, want) {
		t.Fatalf("expected default config, got %+v", resp)
	}
}

func TestGatewayDocumentCommand(t *testing.T) {
	testlog.Start(t)

	g := newGateway(t)
	body := `{"cmd":"0x31","data":{"buttons":[{"id":2,"label":"Mic","action":"VOLUME_MUTE","color":"#FF0000"}]}}`
	r := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, r)

	var msg document.Message
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode body: %v (%s)", err, w.Body.String())
	}
	if msg.Status != document.StatusOK || msg.Cmd != "0x31" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	g.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config", nil))
	if err := json.Unmarshal(w.Body.Bytes(), &msg); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if msg.Data == nil || len(msg.Data.Buttons) != deck.MaxButtons {
		t.Fatalf("expected full config, got %s", w.Body.String())
	}
	got := msg.Data.Buttons[2]
	if got.Label == nil || *got.Label != "Mic" || got.Action != "VOLUME_MUTE" || got.Color != "#FF0000" {
		t.Fatalf("expected updated button 2, got %+v", got)
	}
}

func TestGatewayHealthAndMetrics(t *testing.T) {
	testlog.Start(t)

	g := newGateway(t)
	w := httptest.NewRecorder()
	g.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status %d", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body["status"] != "ok" || body["device"] != devinfo.DeviceName {
		t.Fatalf("unexpected health body: %#v", body)
	}

	w = httptest.NewRecorder()
	g.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "armdeck_http_requests_total") {
		t.Fatalf("expected armdeck metrics, status=%d", w.Code)
	}
}
