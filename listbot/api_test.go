package listbot

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusEndpoints(t *testing.T) {
	bot, _, _ := newTestBot(t)
	bot.startedAt = time.Now().Add(-time.Minute)

	require.NoError(
		t,
		bot.db.Create(
			&PendingShiftNotification{
				UserID:  "u1",
				StartAt: time.Now().Add(time.Hour),
			},
		).Error,
	)

	server := httptest.NewServer(bot.statusAPI.engine)
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(server.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Version              string `json:"version"`
		Uptime               string `json:"uptime"`
		WebsocketConnected   bool   `json:"websocket_connected"`
		PendingNotifications int64  `json:"pending_notifications"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.NotEmpty(t, status.Version)
	assert.NotEmpty(t, status.Uptime)
	assert.False(t, status.WebsocketConnected)
	assert.Equal(t, int64(1), status.PendingNotifications)
}
