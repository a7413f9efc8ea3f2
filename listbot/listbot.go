package listbot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-playground/validator/v10"
	"github.com/lmittmann/tint"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

var (
	// Version is the bot version, set at build time
	Version = "dev"

	// CommitSHA is the git commit the binary was built from, set at build time
	CommitSHA = ""

	// BuildTime is the binary's build timestamp, set at build time
	BuildTime = ""

	defaultLogWriter io.Writer = os.Stdout

	structValidator = validator.New()
)

func init() {
	structValidator.SetTagName("binding")
}

// Bot is the top-level coordinator. It owns the database, the Discord
// session, the upstream list API client and notification websocket, and
// the scheduled task runner. One Bot runs at a time; Run blocks until
// the given context is canceled.
type Bot struct {
	config *Config

	db *gorm.DB

	discord *Discord

	// api is the upstream list REST client
	api AredlAPI

	// ws is the upstream notification websocket
	ws *NotificationSocket

	// statusAPI is the read-only status/health HTTP server
	statusAPI *API

	// handlers maps notification type names to their handler units.
	// Built once in New, never mutated afterward.
	handlers map[string]NotificationHandler

	cron *cron.Cron

	logger     *slog.Logger
	logHandler slog.Handler

	// runCtx is the runtime context set by Run; timers armed by
	// scheduleShiftNotification are bound to it
	runCtx context.Context

	// wg tracks in-flight shift notification timers
	wg sync.WaitGroup

	// runMu prevents concurrent Run calls
	runMu sync.Mutex

	startedAt time.Time

	// signalStop enables an explicit stop signal to be sent to the bot,
	// canceling the runtime context
	signalStop chan struct{}
}

func (b *Bot) version() string {
	if CommitSHA != "" {
		return fmt.Sprintf("%s (%s)", Version, CommitSHA)
	}
	return Version
}

// New creates a new Bot from the given config. The returned Bot is
// inert until Run is called.
func New(config *Config) (*Bot, error) {
	var errs []error

	switch config.DatabaseType {
	case dbTypeSQLite, dbTypePostgres:
		//
	default:
		errs = append(
			errs,
			errors.New("invalid database type (must be 'sqlite' or 'postgres')"),
		)
	}

	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}

	b := &Bot{config: config}

	b.logHandler = tint.NewHandler(
		defaultLogWriter, &tint.Options{
			Level:     b.config.LogLevel,
			AddSource: true,
		},
	)

	b.logger = slog.New(b.logHandler)
	slog.SetDefault(b.logger)

	handlers, err := buildHandlerRegistry(b.notificationHandlers())
	if err != nil {
		errs = append(errs, err)
	}
	b.handlers = handlers

	b.config.Aredl.httpClient = b.config.HTTPClient
	b.config.Discord.httpClient = b.config.HTTPClient

	b.api = NewAredlClient(
		b.config.Aredl,
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Aredl.LogLevel,
				AddSource: true,
			},
		),
	)

	disc, err := newDiscord(
		b,
		b.config.Discord,
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Discord.LogLevel,
				AddSource: true,
			},
		),
	)
	if err != nil {
		errs = append(errs, err)
	}
	b.discord = disc

	discordgo.Logger = discordgoLoggerFunc(
		context.Background(),
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Discord.DiscordGoLogLevel,
				AddSource: true,
			},
		).WithAttrs([]slog.Attr{slog.String(loggerNameKey, "discordgo")}),
	)

	b.ws = newNotificationSocket(
		b.config.Aredl,
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.Aredl.LogLevel,
				AddSource: true,
			},
		),
		b.dispatchNotification,
	)

	b.statusAPI = newAPI(
		b,
		b.config.API,
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.API.LogLevel,
				AddSource: true,
			},
		),
	)

	b.cron = cron.New()

	return b, errors.Join(errs...)
}

// ValidateConfig validates the bot's static configuration.
func (b *Bot) ValidateConfig() error {
	return structValidator.Struct(b.config)
}

// Stop sends an explicit stop signal, canceling the runtime context.
// Only valid after Run has been called.
func (b *Bot) Stop() {
	if b.signalStop != nil {
		select {
		case b.signalStop <- struct{}{}:
		default:
		}
	}
}

// Run starts the bot and blocks until ctx is canceled or Stop is
// called, then shuts down gracefully within Config.ShutdownTimeout.
func (b *Bot) Run(ctx context.Context) error {
	// prevents concurrent runs
	b.runMu.Lock()
	defer b.runMu.Unlock()

	b.signalStop = make(chan struct{}, 1)
	b.startedAt = time.Now()
	logger := b.logger

	if err := b.ValidateConfig(); err != nil {
		logger.Error("invalid config", tint.Err(err))
		return err
	}

	ctx = WithLogger(ctx, logger)

	logger.LogAttrs(ctx, slog.LevelInfo, "starting", slog.Any("config", b.config))

	// this is the 'runtime' context - canceling it triggers a graceful
	// shutdown
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b.runCtx = ctx

	go func() {
		select {
		case <-b.signalStop:
			logger.Warn("got stop signal, canceling")
			cancel()
		case <-ctx.Done():
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, b.config.StartupTimeout)
	defer startCancel()

	if err := b.initRun(startCtx); err != nil {
		logger.ErrorContext(ctx, "init error", tint.Err(err))
		return err
	}
	logger.InfoContext(ctx, "init complete")

	runtimeWG := &sync.WaitGroup{}

	runtimeWG.Add(1)
	go func() {
		defer runtimeWG.Done()
		b.ws.Run(ctx)
	}()

	if b.config.API.Enabled {
		runtimeWG.Add(1)
		go func() {
			defer runtimeWG.Done()
			b.statusAPI.Serve(ctx)
		}()
	}

	b.cron.Start()

	// block until something cancels the runtime context
	<-ctx.Done()
	logger.WarnContext(ctx, "shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		b.config.ShutdownTimeout,
	)
	defer shutdownCancel()

	cronDone := b.cron.Stop()

	wsDone := make(chan struct{}, 1)
	go func() {
		runtimeWG.Wait()
		b.wg.Wait()
		wsDone <- struct{}{}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("shutdown timed out waiting on background jobs")
	case <-cronDone.Done():
		select {
		case <-shutdownCtx.Done():
			logger.Warn("shutdown timed out waiting on background jobs")
		case <-wsDone:
			logger.Info("background jobs finished")
		}
	}

	if b.discord != nil && b.discord.session != nil {
		if err := b.discord.session.Close(); err != nil {
			logger.Error("error closing discord session", tint.Err(err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// initRun performs startup work bounded by Config.StartupTimeout: the
// database connection and migration, the Discord gateway session and
// slash commands, durable shift notification recovery, and scheduled
// task registration.
func (b *Bot) initRun(ctx context.Context) error {
	db, err := CreateDB(
		ctx,
		b.config.DatabaseType,
		b.config.Database,
		tint.NewHandler(
			defaultLogWriter, &tint.Options{
				Level:     b.config.DatabaseLogLevel,
				AddSource: true,
			},
		),
		b.config.DatabaseSlowThreshold,
	)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	b.db = db

	b.discord.session.AddHandler(b.discord.handleGuildMemberAdd)
	b.discord.session.AddHandler(b.discord.handleGuildMemberRemove)
	b.discord.session.AddHandler(b.discord.handleInteractionCreate)

	if err = b.discord.session.Open(); err != nil {
		return fmt.Errorf("error opening discord session: %w", err)
	}

	if err = b.discord.registerCommands(); err != nil {
		return fmt.Errorf("error registering slash commands: %w", err)
	}

	if err = b.recoverPendingShiftNotifications(ctx); err != nil {
		b.logger.ErrorContext(
			ctx,
			"error recovering pending shift notifications",
			tint.Err(err),
		)
	}

	return b.scheduleTasks()
}

// scheduleTasks registers the cron-driven tasks. Schedules are
// validated here so a bad expression fails startup rather than being
// silently dropped.
func (b *Bot) scheduleTasks() error {
	tasks := b.config.Tasks

	if b.config.Points.Enabled && b.config.Points.WeeklyEnabled {
		if _, err := b.cron.AddFunc(
			tasks.WeeklyPointsSchedule,
			func() { b.runWeeklyPoints(b.runCtx) },
		); err != nil {
			return fmt.Errorf("invalid weekly points schedule: %w", err)
		}
	}

	if tasks.ShiftRemindersEnabled {
		if _, err := b.cron.AddFunc(
			tasks.ShiftReminderSchedule,
			func() { b.runShiftReminders(b.runCtx) },
		); err != nil {
			return fmt.Errorf("invalid shift reminder schedule: %w", err)
		}
	}

	if tasks.UcRemindersEnabled {
		if _, err := b.cron.AddFunc(
			tasks.UcReminderSchedule,
			func() { b.runUcReminders(b.runCtx) },
		); err != nil {
			return fmt.Errorf("invalid uc reminder schedule: %w", err)
		}
	}

	return nil
}
