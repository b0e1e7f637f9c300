package commander

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

const (
	apiHealthCheck = "/healthz"
	apiPathStatus  = "/status"
)

// API is the read-only status HTTP server: a health check and a status
// snapshot for monitoring. It never mutates bot state.
type API struct {
	config     *APIConfig
	httpServer *http.Server
	listener   net.Listener
	engine     *gin.Engine
	bot        *Commander
	logger     *slog.Logger
}

func newAPI(bot *Commander, config *APIConfig) *API {
	r := gin.New()

	api := &API{
		config: config,
		engine: r,
		bot:    bot,
		logger: slog.New(
			tint.NewHandler(
				os.Stdout, &tint.Options{
					Level:     config.LogLevel,
					AddSource: true,
				},
			),
		).With(loggerNameKey, "api"),
	}

	api.httpServer = &http.Server{
		Addr:              config.Listen,
		Handler:           r,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
	}

	corsConfig := config.CORS.GINConfig()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	r.Use(
		gin.Recovery(),
		apiLoggingMiddleware(api.logger),
		cors.New(corsConfig),
	)

	r.GET(apiHealthCheck, api.healthCheck)
	r.GET(apiPathStatus, api.getStatus)

	return api
}

// Serve listens on the configured address and serves until the server is
// shut down.
func (a *API) Serve(ctx context.Context) error {
	if a.listener == nil {
		listenCfg := &net.ListenConfig{}
		ln, err := listenCfg.Listen(
			ctx,
			a.config.ListenNetwork,
			a.config.Listen,
		)
		if err != nil {
			return fmt.Errorf("error listening on %s: %w", a.config.Listen, err)
		}
		a.listener = ln
	}
	return a.httpServer.Serve(a.listener)
}

func (a *API) Shutdown(ctx context.Context) error {
	return a.httpServer.Shutdown(ctx)
}

func (a *API) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// statusResponse is the payload for GET /status.
type statusResponse struct {
	Version          string           `json:"version"`
	CommitSHA        string           `json:"commit_sha,omitempty"`
	BuildTime        string           `json:"build_time,omitempty"`
	Uptime           string           `json:"uptime"`
	GatewayConnected bool             `json:"gateway_connected"`
	GuildCount       int              `json:"guild_count"`
	ProcessingGuilds int              `json:"processing_guilds"`
	CommandsServed   map[string]int64 `json:"commands_served"`
}

func (a *API) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, a.bot.status())
}

// apiLoggingMiddleware logs each request with its duration and response
// status.
func apiLoggingMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(
			fmt.Sprintf("%s %s finished", c.Request.Method, c.Request.URL),
			"duration", time.Since(start),
			slog.Group(
				"request",
				"remote_addr", c.Request.RemoteAddr,
				"user_agent", c.Request.UserAgent(),
			),
			slog.Group(
				"response",
				"status_code", c.Writer.Status(),
				"body_size", c.Writer.Size(),
			),
		)
	}
}
