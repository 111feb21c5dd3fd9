package http_test

import (
	"context"
	"net"
	"net/http/httptest"
	"testing"
	"time"

	authhttp "secure-auth/internal/auth/adapter/http"
	"secure-auth/internal/auth/domain/model"
	"secure-auth/internal/auth/usecase"
	"secure-auth/internal/shared/eventbus"
	"secure-auth/internal/shared/logger"

	fws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventsServer struct {
	bus     *eventbus.EventBus
	handler *authhttp.SessionEventsHandler
	app     *fiber.App
	addr    string
}

func startEventsServer(t *testing.T) *eventsServer {
	t.Helper()
	bus := eventbus.NewEventBus(logger.Nop())
	handler := authhttp.NewSessionEventsHandler(bus, nil)

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	// Stands in for Protect: the session id comes from the query string.
	app.Get("/events", func(c *fiber.Ctx) error {
		c.Locals(authhttp.LocalsSession, &model.Session{SessionID: c.Query("sid"), UserID: "user-123", IsActive: true})
		return c.Next()
	}, handler.Upgrade(), handler.Handle())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = app.Listener(ln) }()

	t.Cleanup(func() {
		handler.Close()
		_ = app.Shutdown()
	})
	return &eventsServer{bus: bus, handler: handler, app: app, addr: ln.Addr().String()}
}

func (s *eventsServer) dial(t *testing.T, sessionID string) *fws.Conn {
	t.Helper()
	conn, _, err := fws.DefaultDialer.Dial("ws://"+s.addr+"/events?sid="+sessionID, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	connected := readEvent(t, conn)
	require.Equal(t, authhttp.EventConnected, connected.Type)
	require.Equal(t, sessionID, connected.SessionID)
	return conn
}

func (s *eventsServer) revoke(t *testing.T, rev usecase.Revocation) {
	t.Helper()
	require.NoError(t, s.bus.Publish(context.Background(), eventbus.NewBasicEvent(eventbus.EventTypeSessionRevoked, rev, "test")))
}

func readEvent(t *testing.T, conn *fws.Conn) authhttp.SessionEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev authhttp.SessionEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestSessionEvents_RevocationClosesAffectedConnection(t *testing.T) {
	srv := startEventsServer(t)
	current := srv.dial(t, "s1")
	other := srv.dial(t, "s2")
	require.Equal(t, 2, srv.handler.ClientCount("user-123"))

	srv.revoke(t, usecase.Revocation{
		UserID:     "user-123",
		SessionIDs: []string{"s2"},
		Reason:     model.RevokeReasonManual,
		Count:      1,
		At:         time.Now(),
	})

	ev := readEvent(t, current)
	assert.Equal(t, authhttp.EventSessionRevoked, ev.Type)
	assert.Equal(t, []string{"s2"}, ev.SessionIDs)
	assert.False(t, ev.Current)

	ev = readEvent(t, other)
	assert.True(t, ev.Current)
	assert.Equal(t, model.RevokeReasonManual, ev.Reason)

	require.NoError(t, other.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := other.ReadMessage()
	require.Error(t, err)
	assert.True(t, fws.IsCloseError(err, fws.ClosePolicyViolation), err.Error())

	assert.Eventually(t, func() bool {
		return srv.handler.ClientCount("user-123") == 1
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSessionEvents_BulkRevocationSparesCurrent(t *testing.T) {
	srv := startEventsServer(t)
	kept := srv.dial(t, "keep")

	srv.revoke(t, usecase.Revocation{UserID: "user-123", AllExcept: "keep", Reason: model.RevokeReasonLogoutAll, Count: 2})

	ev := readEvent(t, kept)
	assert.Equal(t, "keep", ev.AllExcept)
	assert.Equal(t, int64(2), ev.Count)
	assert.False(t, ev.Current)
}

func TestSessionEvents_OtherUsersIgnored(t *testing.T) {
	srv := startEventsServer(t)
	srv.dial(t, "s1")

	srv.revoke(t, usecase.Revocation{UserID: "someone-else", SessionIDs: []string{"s1"}, Count: 1})

	assert.Equal(t, 1, srv.handler.ClientCount("user-123"))
	assert.Equal(t, 0, srv.handler.ClientCount("someone-else"))
}

func TestSessionEvents_RequiresUpgrade(t *testing.T) {
	srv := startEventsServer(t)

	resp, err := srv.app.Test(httptest.NewRequest("GET", "/events?sid=s1", nil))

	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
