package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catalog/internal/auth"

	"github.com/gin-gonic/gin"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversPublishedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	hub := NewHub(nil)
	go hub.Run()

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, issuer) })
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	token, err := issuer.Issue(5)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	hub.Publish("product.created", 12, map[string]string{"name": "Desk Lamp"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev Event
	require.NoError(t, json.Unmarshal(msg, &ev))
	assert.Equal(t, "product.created", ev.Event)
	assert.Equal(t, uint(12), ev.ID)
}

func TestServeWsRejectsMissingOrBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := auth.NewTokenIssuer("secret", time.Hour)
	hub := NewHub(nil)

	router := gin.New()
	router.GET("/ws", func(c *gin.Context) { ServeWs(hub, c, issuer) })

	for _, q := range []string{"", "?token=bogus"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws"+q, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code, q)
	}
}

func TestPublishOnNilHubIsNoop(t *testing.T) {
	var hub *Hub
	hub.Publish("x", 1, nil)
}
