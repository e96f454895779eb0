package handlers

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Conceptual-Machines/aideas-relay/internal/logger"
	"github.com/Conceptual-Machines/aideas-relay/internal/metrics"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/coder/websocket"
	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SocketPath is where clients open the event connection
const SocketPath = "/socket"

const (
	maxFrameBytes = 1 << 20
	writeTimeout  = 10 * time.Second
)

// Generator produces one response envelope per music request
type Generator interface {
	Generate(ctx context.Context, req *models.GenerationRequest) *models.ResponseEnvelope
}

// SocketHandler upgrades clients to WebSocket and relays music events
type SocketHandler struct {
	generator      Generator
	collector      *metrics.Collector
	originPatterns []string

	activeConnections atomic.Int64
	inFlight          atomic.Int64
}

// NewSocketHandler creates a socket handler. collector may be nil.
func NewSocketHandler(generator Generator, collector *metrics.Collector, allowedOrigins []string) *SocketHandler {
	return &SocketHandler{
		generator:      generator,
		collector:      collector,
		originPatterns: allowedOrigins,
	}
}

// ActiveConnections returns the number of open connections
func (h *SocketHandler) ActiveConnections() int64 {
	return h.activeConnections.Load()
}

// InFlightRequests returns the number of music events still being generated
func (h *SocketHandler) InFlightRequests() int64 {
	return h.inFlight.Load()
}

// Serve handles GET /socket
func (h *SocketHandler) Serve(c *gin.Context) {
	opts := &websocket.AcceptOptions{}
	if len(h.originPatterns) == 0 || slices.Contains(h.originPatterns, "*") {
		opts.InsecureSkipVerify = true
	} else {
		opts.OriginPatterns = h.originPatterns
	}

	conn, err := websocket.Accept(newUpgradeWriter(c.Writer), c.Request, opts)
	if err != nil {
		// Accept has already written the HTTP error
		logger.Warn("WebSocket upgrade failed", logger.WithContext(c).Merge(logger.Fields{"error": err.Error()}))
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	connID := uuid.New().String()
	c.Set("conn_id", connID)
	fields := logger.WithConnection(connID, c.ClientIP())
	if requestID := c.GetString("request_id"); requestID != "" {
		fields["request_id"] = requestID
	}
	session := &socketSession{
		handler: h,
		conn:    conn,
		fields:  fields,
	}

	h.connectionOpened()
	defer h.connectionClosed()

	logger.Info("Client connected", session.fields)
	session.run(c.Request.Context())
}

// upgradeWriter lets the websocket handshake run under gin.
// The 101 goes straight to net/http, because gin defers WriteHeader and refuses to
// hijack once it has flushed headers itself. The hijack still goes through gin so the
// context knows the response is taken and records the status.
type upgradeWriter struct {
	gin gin.ResponseWriter
	raw http.ResponseWriter
}

func newUpgradeWriter(w gin.ResponseWriter) http.ResponseWriter {
	unwrapper, ok := w.(interface{ Unwrap() http.ResponseWriter })
	if !ok {
		return w
	}
	return &upgradeWriter{gin: w, raw: unwrapper.Unwrap()}
}

func (w *upgradeWriter) Header() http.Header {
	return w.gin.Header()
}

func (w *upgradeWriter) Write(b []byte) (int, error) {
	return w.gin.Write(b)
}

func (w *upgradeWriter) WriteHeader(code int) {
	w.gin.WriteHeader(code)
	if code == http.StatusSwitchingProtocols {
		w.raw.WriteHeader(code)
	}
}

func (w *upgradeWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return w.gin.Hijack()
}

func (h *SocketHandler) connectionOpened() {
	h.activeConnections.Add(1)
	if h.collector != nil {
		h.collector.ConnectionOpened()
	}
}

func (h *SocketHandler) connectionClosed() {
	h.activeConnections.Add(-1)
	if h.collector != nil {
		h.collector.ConnectionClosed()
	}
}

// socketSession is the state of one client connection
type socketSession struct {
	handler *SocketHandler
	conn    *websocket.Conn
	fields  logger.Fields

	writeMu sync.Mutex
}

// run reads frames until the client goes away.
// Requests already dispatched keep running after disconnect; their responses are dropped.
func (s *socketSession) run(ctx context.Context) {
	defer s.conn.CloseNow()

	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			s.logDisconnect(err)
			return
		}
		if msgType != websocket.MessageText {
			logger.Warn("Ignoring binary frame", s.fields)
			continue
		}
		s.handleFrame(ctx, data)
	}
}

func (s *socketSession) handleFrame(ctx context.Context, data []byte) {
	frame, err := decodeFrame(data)
	if err != nil {
		logger.Warn("Ignoring malformed frame", s.fields.Merge(logger.Fields{"error": err.Error()}))
		return
	}

	if frame.Event != eventMusic {
		s.countEvent("unknown")
		logger.Warn("Ignoring unknown event", s.fields.Merge(logger.Fields{"event": frame.Event}))
		return
	}
	s.countEvent(eventMusic)

	// A payload we cannot read still gets an answer: the error envelope with empty params
	req, err := decodeGenerationRequest(frame.Payload)
	if err != nil {
		logger.Warn("Unreadable music payload", s.fields.Merge(logger.Fields{"error": err.Error()}))
	}

	// Each event gets its own goroutine and a context that outlives the connection
	eventCtx := context.WithoutCancel(ctx)
	s.handler.inFlight.Add(1)
	go s.serveMusic(eventCtx, req)
}

// serveMusic answers one music event. A nil req means the payload was unreadable.
func (s *socketSession) serveMusic(ctx context.Context, req *models.GenerationRequest) {
	defer s.handler.inFlight.Add(-1)

	// Each event logs and reports through its own hub so scopes never mix across events
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	ctx = sentry.SetHubOnContext(ctx, hub.Clone())
	ctx = logger.ContextWithFields(ctx, s.fields)

	var envelope *models.ResponseEnvelope
	if req == nil {
		envelope = models.NewErrorEnvelope(models.GenerationRequest{})
	} else {
		logger.DebugCtx(ctx, "Music event received", s.fields.Merge(logger.Fields{"kind": req.Type, "backend": req.Model}))
		envelope = s.handler.generator.Generate(ctx, req)
	}

	frame, err := encodeResponseFrame(envelope)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to encode response", err, s.fields)
		return
	}
	if err := s.write(ctx, frame); err != nil {
		logger.WarnCtx(ctx, "Dropping response for closed connection", s.fields.Merge(logger.Fields{"error": err.Error()}))
	}
}

// write sends one frame; writes on a connection never interleave
func (s *socketSession) write(ctx context.Context, frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return s.conn.Write(writeCtx, websocket.MessageText, frame)
}

func (s *socketSession) countEvent(event string) {
	if s.handler.collector != nil {
		s.handler.collector.SocketEvent(event)
	}
}

func (s *socketSession) logDisconnect(err error) {
	status := websocket.CloseStatus(err)
	if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
		logger.Info("Client disconnected", s.fields)
		return
	}
	logger.Info("Client disconnected", s.fields.Merge(logger.Fields{"reason": err.Error()}))
}
