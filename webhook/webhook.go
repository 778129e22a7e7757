// Package webhook receives Zoom event notifications that announce RTMS
// streams, so a process can join them as they start.
package webhook

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/thesyncim/rtms"
)

// Zoom event names relevant to RTMS.
const (
	EventRTMSStarted   = "meeting.rtms_started"
	EventRTMSStopped   = "meeting.rtms_stopped"
	EventURLValidation = "endpoint.url_validation"
)

var ErrCertKeyMismatch = errors.New("both certificate and key must be provided for HTTPS")

// Payload is a decoded webhook body.
type Payload map[string]any

// Event returns the "event" field, or "" when absent.
func (p Payload) Event() string {
	s, _ := p["event"].(string)
	return s
}

// Stream is the join information carried by an rtms_started event.
type Stream struct {
	MeetingUUID string
	StreamID    string
	ServerURLs  string
}

// Stream extracts the join information from the nested "payload" object.
func (p Payload) Stream() (Stream, bool) {
	inner, ok := p["payload"].(map[string]any)
	if !ok {
		return Stream{}, false
	}
	str := func(k string) string {
		s, _ := inner[k].(string)
		return s
	}
	st := Stream{
		MeetingUUID: str("meeting_uuid"),
		StreamID:    str("rtms_stream_id"),
		ServerURLs:  str("server_urls"),
	}
	return st, st.MeetingUUID != "" && st.StreamID != ""
}

// Handler is invoked asynchronously for every accepted event; the request
// has already been answered with 200 when it runs.
type Handler func(Payload)

// RawHandler is invoked synchronously and writes its own response.
type RawHandler func(p Payload, c *gin.Context)

// Server is an HTTP(S) listener for webhook events.
type Server struct {
	cfg     rtms.WebhookConfig
	engine  *gin.Engine
	log     zerolog.Logger
	handler Handler
	raw     RawHandler

	inflight sync.WaitGroup
}

// New returns a server that acknowledges every valid event and hands it to h.
func New(cfg rtms.WebhookConfig, h Handler) *Server {
	s := newServer(cfg)
	s.handler = h
	return s
}

// NewRaw returns a server that leaves the response to h.
func NewRaw(cfg rtms.WebhookConfig, h RawHandler) *Server {
	s := newServer(cfg)
	s.raw = h
	return s
}

func newServer(cfg rtms.WebhookConfig) *Server {
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	s := &Server{
		cfg: cfg,
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Str("module", "webhook").Logger(),
	}
	s.engine = s.routes()
	return s
}

// SetLogger replaces the server logger. Call it before serving.
func (s *Server) SetLogger(l zerolog.Logger) { s.log = l }

func (s *Server) routes() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	notFound := func(c *gin.Context) {
		s.log.Debug().Str("method", c.Request.Method).Str("path", c.Request.URL.Path).
			Str("expected", "POST "+s.cfg.Path).Msg("rejected request")
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	}
	r.NoRoute(notFound)
	r.NoMethod(notFound)
	r.POST(s.cfg.Path, s.receive)
	return r
}

func (s *Server) receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to read webhook body")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON received"})
		return
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil || p == nil {
		s.log.Error().Err(err).Msg("error parsing webhook JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON received"})
		return
	}

	event := p.Event()
	if event == "" {
		event = "unknown"
	}
	s.log.Info().Str("event", event).Int("size", len(body)).Msg("received event")

	if s.raw != nil {
		s.dispatchRaw(p, c)
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("error in webhook callback")
			}
		}()
		if s.handler != nil {
			s.handler(p)
		}
	}()
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) dispatchRaw(p Payload, c *gin.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("error in webhook callback")
			if !c.Writer.Written() {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
			}
		}
	}()
	s.raw(p, c)
}

// Handler returns the router, for mounting or tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Wait blocks until every asynchronously dispatched event has been handled.
func (s *Server) Wait() { s.inflight.Wait() }

// tlsConfig returns nil for plain HTTP.
func (s *Server) tlsConfig() (*tls.Config, error) {
	hasCert := s.cfg.CertFile != "" && fileExists(s.cfg.CertFile)
	hasKey := s.cfg.KeyFile != "" && fileExists(s.cfg.KeyFile)
	if hasCert != hasKey {
		s.log.Error().Bool("cert_exists", hasCert).Bool("key_exists", hasKey).Msg("certificate and key mismatch")
		return nil, ErrCertKeyMismatch
	}
	if !hasCert {
		return nil, nil
	}

	cert, err := tls.LoadX509KeyPair(s.cfg.CertFile, s.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}

	if s.cfg.ClientCA != "" && fileExists(s.cfg.ClientCA) {
		pem, err := os.ReadFile(s.cfg.ClientCA)
		if err != nil {
			return nil, fmt.Errorf("read client CA: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates in %s", s.cfg.ClientCA)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
		s.log.Debug().Str("ca", s.cfg.ClientCA).Msg("verifying client certificates")
	}
	return cfg, nil
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	tlsCfg, err := s.tlsConfig()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.engine,
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	scheme := "http"
	if tlsCfg != nil {
		scheme = "https"
		ln = tls.NewListener(ln, tlsCfg)
	}
	s.log.Info().Str("url", fmt.Sprintf("%s://localhost:%d%s", scheme, s.cfg.Port, s.cfg.Path)).Msg("listening for webhook events")

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

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
		s.Wait()
		return nil
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
