package commander

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAPI(t *testing.T) (*API, *Commander) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config := DefaultConfig()
	bot := &Commander{
		config:    config,
		logger:    slog.Default(),
		cache:     NewGuildCache(),
		startedAt: time.Now(),
		discord: &Discord{
			session: &mockSession{guild: &discordgo.Guild{ID: "g1"}},
		},
	}
	return newAPI(bot, config.API), bot
}

func TestAPIHealthCheck(t *testing.T) {
	t.Parallel()

	api, _ := newTestAPI(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, apiHealthCheck, nil)
	api.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "ok"}`, w.Body.String())
}

func TestAPIStatus(t *testing.T) {
	t.Parallel()

	api, bot := newTestAPI(t)
	bot.dispatcher = newDispatcher(
		bot.config.Dispatch,
		bot.cache,
		newMemStore(),
		buildCommandMap(commandRegistry(), slog.Default()),
		nil,
		slog.Default(),
	)
	bot.dispatcher.countServed("record")
	bot.dispatcher.countServed("record")
	bot.dispatcher.countServed("help")
	bot.discord.connected.Store(true)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, apiPathStatus, nil)
	api.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, Version, status.Version)
	assert.Equal(t, 1, status.GuildCount)
	assert.True(t, status.GatewayConnected)
	assert.Equal(t, 0, status.ProcessingGuilds)
	assert.Equal(t, int64(2), status.CommandsServed["record"])
	assert.Equal(t, int64(1), status.CommandsServed["help"])
}
