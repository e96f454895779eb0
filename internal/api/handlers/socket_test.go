package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Conceptual-Machines/aideas-relay/internal/logger"
	"github.com/Conceptual-Machines/aideas-relay/internal/models"
	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockGenerator struct {
	generateFunc func(ctx context.Context, req *models.GenerationRequest) *models.ResponseEnvelope
}

func (m *mockGenerator) Generate(ctx context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
	return m.generateFunc(ctx, req)
}

func echoGenerator() *mockGenerator {
	return &mockGenerator{
		generateFunc: func(_ context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
			return models.NewSuccessEnvelope(*req, models.TokenSequence{req.Type, req.Genre}, nil)
		},
	}
}

func newSocketTestServer(t *testing.T, handler *SocketHandler) string {
	t.Helper()
	router := gin.New()
	router.GET(SocketPath, handler.Serve)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + SocketPath
}

func dialSocket(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, frame string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(frame)))
}

func readEnvelope(t *testing.T, conn *websocket.Conn) *models.ResponseEnvelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, raw, err := conn.Read(ctx)
	require.NoError(t, err)

	var frame outboundFrame
	require.NoError(t, json.Unmarshal(raw, &frame))
	require.Equal(t, "music_response", frame.Event)

	var envelope models.ResponseEnvelope
	require.NoError(t, json.Unmarshal([]byte(frame.Data), &envelope))
	return &envelope
}

func TestSocketHandler_MusicEvent(t *testing.T) {
	url := newSocketTestServer(t, NewSocketHandler(echoGenerator(), nil, []string{"*"}))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `{"event":"music","data":{"type":"chord","model":"4","genre":"jazz"}}`)

	envelope := readEnvelope(t, conn)
	assert.Nil(t, envelope.Error)
	assert.Equal(t, models.TokenSequence{"chord", "jazz"}, envelope.Data)
	assert.Equal(t, models.TokenSequence{}, envelope.Instruments)
	assert.Equal(t, "jazz", envelope.Param.Genre)
}

func TestSocketHandler_ArrayFrame(t *testing.T) {
	url := newSocketTestServer(t, NewSocketHandler(echoGenerator(), nil, nil))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `["music",{"type":"rhythm","model":"G","genre":"funk"}]`)

	envelope := readEnvelope(t, conn)
	assert.Equal(t, models.TokenSequence{"rhythm", "funk"}, envelope.Data)
}

func TestSocketHandler_IgnoresUnknownAndMalformedFrames(t *testing.T) {
	url := newSocketTestServer(t, NewSocketHandler(echoGenerator(), nil, []string{"*"}))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `not json`)
	sendFrame(t, conn, `{"event":"lyrics","data":{"type":"chord"}}`)
	sendFrame(t, conn, `{"event":"music","data":{"type":"harmony","model":"C","genre":"soul"}}`)

	// Only the music event is answered and the connection stays open
	envelope := readEnvelope(t, conn)
	assert.Equal(t, models.TokenSequence{"harmony", "soul"}, envelope.Data)
}

func TestSocketHandler_UnreadablePayloadGetsErrorEnvelope(t *testing.T) {
	var generated atomic.Int32
	generator := &mockGenerator{
		generateFunc: func(_ context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
			generated.Add(1)
			return models.NewSuccessEnvelope(*req, nil, nil)
		},
	}
	url := newSocketTestServer(t, NewSocketHandler(generator, nil, []string{"*"}))
	conn := dialSocket(t, url)

	frames := []string{
		`["music","chord"]`,
		`["music"]`,
		`{"event":"music","data":42}`,
	}
	for _, frame := range frames {
		sendFrame(t, conn, frame)
	}

	for range frames {
		envelope := readEnvelope(t, conn)
		require.NotNil(t, envelope.Error)
		assert.Equal(t, models.ErrorInternalServer, *envelope.Error)
		assert.Equal(t, models.GenerationRequest{}, envelope.Param)
		assert.Equal(t, models.TokenSequence{}, envelope.Data)
		assert.Equal(t, models.TokenSequence{}, envelope.Instruments)
	}
	assert.Zero(t, generated.Load())
}

func TestSocketHandler_UpgradeRecordedByGin(t *testing.T) {
	statusCh := make(chan int, 1)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Next()
		statusCh <- c.Writer.Status()
	})
	router.GET(SocketPath, NewSocketHandler(echoGenerator(), nil, []string{"*"}).Serve)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	conn := dialSocket(t, "ws"+strings.TrimPrefix(srv.URL, "http")+SocketPath)

	sendFrame(t, conn, `{"event":"music","data":{"type":"chord","model":"4","genre":"jazz"}}`)
	assert.Equal(t, models.TokenSequence{"chord", "jazz"}, readEnvelope(t, conn).Data)
	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))

	select {
	case status := <-statusCh:
		assert.Equal(t, http.StatusSwitchingProtocols, status)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not return after close")
	}
}

func TestSocketHandler_EventsRunConcurrently(t *testing.T) {
	release := make(chan struct{})
	generator := &mockGenerator{
		generateFunc: func(_ context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
			if req.Genre == "slow" {
				<-release
			}
			return models.NewSuccessEnvelope(*req, models.TokenSequence{req.Genre}, nil)
		},
	}
	url := newSocketTestServer(t, NewSocketHandler(generator, nil, []string{"*"}))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `{"event":"music","data":{"type":"melody","model":"4","genre":"slow"}}`)
	sendFrame(t, conn, `{"event":"music","data":{"type":"melody","model":"4","genre":"fast"}}`)

	first := readEnvelope(t, conn)
	assert.Equal(t, models.TokenSequence{"fast"}, first.Data)

	close(release)
	second := readEnvelope(t, conn)
	assert.Equal(t, models.TokenSequence{"slow"}, second.Data)
}

func TestSocketHandler_ErrorEnvelope(t *testing.T) {
	generator := &mockGenerator{
		generateFunc: func(_ context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
			return models.NewErrorEnvelope(*req)
		},
	}
	url := newSocketTestServer(t, NewSocketHandler(generator, nil, []string{"*"}))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `{"event":"music","data":{"type":"chord","model":"X"}}`)

	envelope := readEnvelope(t, conn)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, models.ErrorInternalServer, *envelope.Error)
	assert.Equal(t, "X", envelope.Param.Model)
}

func TestSocketHandler_ContextCarriesConnectionFields(t *testing.T) {
	fieldsCh := make(chan logger.Fields, 1)
	generator := &mockGenerator{
		generateFunc: func(ctx context.Context, req *models.GenerationRequest) *models.ResponseEnvelope {
			fieldsCh <- logger.FieldsFromContext(ctx)
			return models.NewSuccessEnvelope(*req, nil, nil)
		},
	}
	url := newSocketTestServer(t, NewSocketHandler(generator, nil, []string{"*"}))
	conn := dialSocket(t, url)

	sendFrame(t, conn, `{"event":"music","data":{"type":"chord","model":"4"}}`)
	readEnvelope(t, conn)

	fields := <-fieldsCh
	assert.NotEmpty(t, fields["conn_id"])
	assert.NotEmpty(t, fields["remote_addr"])
}

func TestSocketHandler_ConnectionCount(t *testing.T) {
	handler := NewSocketHandler(echoGenerator(), nil, []string{"*"})
	url := newSocketTestServer(t, handler)
	conn := dialSocket(t, url)

	// A round trip guarantees the server side has registered the connection
	sendFrame(t, conn, `{"event":"music","data":{"type":"chord","model":"4"}}`)
	readEnvelope(t, conn)
	assert.EqualValues(t, 1, handler.ActiveConnections())

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, ""))
	assert.Eventually(t, func() bool { return handler.ActiveConnections() == 0 }, 2*time.Second, 10*time.Millisecond)
}
