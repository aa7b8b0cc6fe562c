package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/armdeck/internal/devinfo"
	"github.com/danmuck/armdeck/internal/observability"
	"github.com/danmuck/armdeck/internal/protocol"
)

const (
	ContentTypeFrame    = "application/octet-stream"
	ContentTypeDocument = "application/json"

	maxBodyBytes = 16 << 10
)

type GatewayConfig struct {
	CORSOrigins []string
	DeviceName  string
}

// Gateway exposes the dispatcher over HTTP. POST /command takes one request
// in either codec, chosen by Content-Type, and answers in the same codec.
type Gateway struct {
	handler  Handler
	frame    protocol.Codec
	document protocol.Codec
	router   *gin.Engine
	name     string
	started  time.Time
}

func NewGateway(handler Handler, frameCodec, documentCodec protocol.Codec, cfg GatewayConfig) *Gateway {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(observability.ComponentLogger("gateway")))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CORSOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	name := cfg.DeviceName
	if name == "" {
		name = devinfo.DeviceName
	}
	g := &Gateway{
		handler:  handler,
		frame:    frameCodec,
		document: documentCodec,
		router:   r,
		name:     name,
		started:  time.Now(),
	}
	g.registerRoutes()
	return g
}

func (g *Gateway) Router() *gin.Engine {
	return g.router
}

func (g *Gateway) registerRoutes() {
	g.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(g.started).String(),
			"device":  g.name,
			"version": devinfo.Firmware,
		})
	})

	g.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	g.router.POST("/command", func(c *gin.Context) {
		body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
		if err != nil {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return
		}
		codec, contentType := g.codecFor(c.ContentType())
		c.Set(observability.KeyCodec, codec.Name())
		c.Set(observability.KeyRequestBytes, len(body))
		out := g.handler.HandleWith(codec, body)
		c.Data(http.StatusOK, contentType, out)
	})

	g.router.GET("/config", func(c *gin.Context) {
		g.documentCommand(c, protocol.Command{ID: protocol.CmdGetConfig})
	})

	g.router.GET("/info", func(c *gin.Context) {
		g.documentCommand(c, protocol.Command{ID: protocol.CmdGetInfo})
	})
}

// documentCommand runs a parameterless command for plain GET callers.
func (g *Gateway) documentCommand(c *gin.Context, cmd protocol.Command) {
	req, err := g.document.EncodeCommand(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Set(observability.KeyCodec, g.document.Name())
	c.Data(http.StatusOK, ContentTypeDocument, g.handler.HandleWith(g.document, req))
}

func (g *Gateway) codecFor(contentType string) (protocol.Codec, string) {
	if strings.EqualFold(contentType, ContentTypeDocument) {
		return g.document, ContentTypeDocument
	}
	return g.frame, ContentTypeFrame
}

// Serve runs the gateway until ctx is done.
func (g *Gateway) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           g.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Msgf("transport.gateway listening addr=%q", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:5173"}
	}
	return origins
}
