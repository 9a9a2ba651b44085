package ws

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/devlinkhq/backend/internal/notify"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startHub(t *testing.T) (*Hub, *websocket.Conn) {
	t.Helper()

	hub := NewHub(zap.NewNop())
	t.Cleanup(hub.Close)

	e := echo.New()
	e.GET("/ws", hub.Handle)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	url := strings.Replace(server.URL, "http", "ws", 1) + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 1
	}, time.Second, 10*time.Millisecond)

	return hub, conn
}

func TestPublishDeliversNamedEvent(t *testing.T) {
	hub, conn := startHub(t)

	batch := &notify.Batch{TotalCount: 3}
	require.NoError(t, hub.Publish(t.Context(), "posts", batch))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame struct {
		Event string       `json:"event"`
		Data  notify.Batch `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "new-posts", frame.Event)
	assert.Equal(t, int64(3), frame.Data.TotalCount)
}

func TestConcurrentChannelFlushesShareOneConnection(t *testing.T) {
	hub, conn := startHub(t)

	const perChannel = 50
	channels := []string{"posts", "jobs"}

	var wg sync.WaitGroup
	for _, channel := range channels {
		wg.Add(1)
		go func(channel string) {
			defer wg.Done()
			for i := 0; i < perChannel; i++ {
				assert.NoError(t, hub.Publish(t.Context(), channel, &notify.Batch{TotalCount: 1}))
			}
		}(channel)
	}

	received := make(map[string]int)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for i := 0; i < perChannel*len(channels); i++ {
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		received[frame.Event]++
	}
	wg.Wait()

	assert.Equal(t, perChannel, received["new-posts"])
	assert.Equal(t, perChannel, received["new-jobs"])
}

func TestClosedClientIsDropped(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		hub.mu.Lock()
		defer hub.mu.Unlock()
		return len(hub.clients) == 0
	}, time.Second, 10*time.Millisecond)

	// Broadcasting with no clients is a no-op.
	require.NoError(t, hub.Publish(t.Context(), "posts", &notify.Batch{}))
}
