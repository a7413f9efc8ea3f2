package listbot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
)

// API is a small status/health HTTP server. It exposes read-only
// operational state; there's no admin surface.
type API struct {
	config *APIConfig
	bot    *Bot
	logger *slog.Logger
	engine *gin.Engine
	server *http.Server
}

func newAPI(bot *Bot, config *APIConfig, handler slog.Handler) *API {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	api := &API{
		config: config,
		bot:    bot,
		logger: slog.New(handler).With(loggerNameKey, "api"),
		engine: engine,
	}

	engine.GET("/healthz", api.getHealth)
	engine.GET("/status", api.getStatus)

	api.server = &http.Server{
		Addr:              config.Listen,
		Handler:           engine,
		ReadTimeout:       config.ReadTimeout,
		ReadHeaderTimeout: config.ReadHeaderTimeout,
		WriteTimeout:      config.WriteTimeout,
		IdleTimeout:       config.IdleTimeout,
	}
	return api
}

func (a *API) getHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (a *API) getStatus(c *gin.Context) {
	var pendingNotifications int64
	_ = a.bot.db.Model(&PendingShiftNotification{}).Count(&pendingNotifications)

	c.JSON(
		http.StatusOK, gin.H{
			"version":               a.bot.version(),
			"started_at":            a.bot.startedAt,
			"uptime":                time.Since(a.bot.startedAt).String(),
			"websocket_connected":   a.bot.ws.Connected(),
			"websocket_reconnects":  a.bot.ws.Reconnects(),
			"pending_notifications": pendingNotifications,
		},
	)
}

// Serve runs the server until ctx is canceled.
func (a *API) Serve(ctx context.Context) {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()
		_ = a.server.Shutdown(shutdownCtx)
	}()
	a.logger.Info("starting status server", "listen", a.config.Listen)
	if err := a.server.ListenAndServe(); err != nil &&
		!errors.Is(err, http.ErrServerClosed) {
		a.logger.Error("status server error", tint.Err(err))
	}
}
