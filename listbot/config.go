//nolint:lll // struct tags can't be split
package listbot

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	DefaultDatabaseType          = "sqlite"
	DefaultDatabase              = "aredl-manager.sqlite3"
	DefaultLogLevel              = slog.LevelInfo
	DefaultDatabaseLogLevel      = slog.LevelInfo
	DefaultDiscordLogLevel       = slog.LevelWarn
	DefaultDiscordgoLogLevel     = slog.LevelWarn
	DefaultAPILogLevel           = slog.LevelInfo
	DefaultAredlLogLevel         = slog.LevelInfo
	DefaultDatabaseSlowThreshold = 200 * time.Millisecond

	DefaultStartupTimeout  = 30 * time.Second
	DefaultShutdownTimeout = 60 * time.Second

	// EnvvarSetEnvPrefix overrides the environment variable prefix
	// used for configuration
	EnvvarSetEnvPrefix = "AREDL_MANAGER_ENV_PREFIX"
	DefaultEnvPrefix   = "AM"

	DefaultAredlBaseURL           = "https://api.aredl.net/v2"
	DefaultAredlWebsocketURL      = "wss://api.aredl.net/ws"
	DefaultAredlRequestsPerSecond = 5
	DefaultReconnectDelay         = 5 * time.Second

	DefaultStatusListen      = "127.0.0.1:5000"
	DefaultReadTimeout       = 5 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultIdleTimeout       = 30 * time.Second

	DefaultDiscordGatewayIntent = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentMessageContent

	DefaultPoints               = 50.0
	DefaultMaxPoints            = 100.0
	DefaultPointsShiftCompleted = 2.0
	DefaultPointsShiftMissedMax = 6.0
	DefaultPointsWeeklyBonus    = 1.0
	DefaultPointsBiweeklyMissed = 10.0

	DefaultWeeklyPointsSchedule  = "0 0 * * 0"
	DefaultShiftReminderSchedule = "*/30 * * * *"
	DefaultUcReminderSchedule    = "0 12 * * *"
	DefaultShiftReminderWindow   = 2 * time.Hour
	DefaultUcReminderAge         = 7 * 24 * time.Hour

	// discord rejects message bodies over 2000 characters; reminder
	// chunks stop short of that to leave room for the chunk prefix
	ucReminderChunkLimit = 1500

	// discord caps the number of embeds attached to a single message
	embedBatchSize = 10

	discordThreadNameLimit = 100
)

// Config is the static bot configuration, loaded once at startup.
type Config struct {
	// Database connection string, or SQLite file path
	Database string `yaml:"database" mapstructure:"database" json:"database"`

	// DatabaseType specifies the type of database, either 'sqlite' or 'postgres'
	DatabaseType string `yaml:"database_type" mapstructure:"database_type" json:"database_type" binding:"oneof=sqlite postgres"`

	// DatabaseLogLevel sets the log level for database operations
	DatabaseLogLevel *slog.LevelVar `yaml:"database_log_level" mapstructure:"database_log_level" json:"database_log_level"`

	// DatabaseSlowThreshold is the duration threshold for identifying slow database queries
	DatabaseSlowThreshold time.Duration `yaml:"database_slow_threshold" mapstructure:"database_slow_threshold" json:"database_slow_threshold"`

	// LogLevel is the base log level, for the default logger
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// StartupTimeout sets a limit on the amount of time the bot has to
	// initialize. If this is passed, the bot will abort startup.
	StartupTimeout time.Duration `yaml:"startup_timeout" mapstructure:"startup_timeout" json:"startup_timeout"`

	// ShutdownTimeout is the time to allow for a graceful shutdown. After this
	// elapses, the bot will force close all connections and exit.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout" json:"shutdown_timeout"`

	// Discord configures the Discord bot itself
	Discord *DiscordConfig `yaml:"discord" mapstructure:"discord" json:"discord"`

	// Aredl configures the upstream list API (REST + notification websocket)
	Aredl *AredlConfig `yaml:"aredl" mapstructure:"aredl" json:"aredl"`

	// API configures the status/health HTTP server
	API *APIConfig `yaml:"api" mapstructure:"api" json:"api"`

	// Points configures the staff points system
	Points *PointsConfig `yaml:"points" mapstructure:"points" json:"points"`

	// Tasks configures the scheduled task runner
	Tasks *TaskConfig `yaml:"tasks" mapstructure:"tasks" json:"tasks"`

	HTTPClient *http.Client `log:"[redacted]"`
}

func (c Config) LogValue() slog.Value {
	return structToSlogValue(c)
}

// DiscordConfig configures the discord bot itself.
//
//nolint:lll // can't break tags
type DiscordConfig struct {
	// Discord bot token (from the 'Bot' tab in the discord dev portal)
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// Discord application ID (from the 'General Information' tab in the discord dev portal)
	ApplicationID string `yaml:"application_id" mapstructure:"application_id" json:"application_id" binding:"required"`

	// GuildID is the main (public) server
	GuildID string `yaml:"guild_id" mapstructure:"guild_id" json:"guild_id" binding:"required"`

	// StaffGuildID is the staff server, used when SeparateStaffServer is set
	StaffGuildID string `yaml:"staff_guild_id" mapstructure:"staff_guild_id" json:"staff_guild_id" binding:"required_if=SeparateStaffServer true"`

	// SeparateStaffServer routes staff-facing notifications to StaffGuildID
	// instead of GuildID
	SeparateStaffServer bool `yaml:"separate_staff_server" mapstructure:"separate_staff_server" json:"separate_staff_server"`

	// Channels maps notification kinds to channel IDs
	Channels ChannelConfig `yaml:"channels" mapstructure:"channels" json:"channels"`

	// Base discord logging level
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Log level for the `discordgo` library's logger
	DiscordGoLogLevel *slog.LevelVar `yaml:"discordgo_log_level" mapstructure:"discordgo_log_level" json:"discordgo_log_level"`

	// Discord gateway intents. See: https://discord.com/developers/docs/topics/gateway#gateway-intents
	GatewayIntents discordgo.Intent `yaml:"gateway_intents" mapstructure:"gateway_intents" json:"gateway_intents"`

	httpClient *http.Client
}

// ChannelConfig holds the channel IDs notifications are routed to. A
// notification whose channel ID is unset is skipped rather than failed.
type ChannelConfig struct {
	// CompletedShifts receives shift-completed archive notifications (staff)
	CompletedShifts string `yaml:"completed_shifts" mapstructure:"completed_shifts" json:"completed_shifts"`

	// MissedShifts receives shift-missed archive notifications (staff)
	MissedShifts string `yaml:"missed_shifts" mapstructure:"missed_shifts" json:"missed_shifts"`

	// ShiftsStarted receives shift-started notifications (staff)
	ShiftsStarted string `yaml:"shifts_started" mapstructure:"shifts_started" json:"shifts_started"`

	// ClassicRecords receives public classic-list submission outcomes
	ClassicRecords string `yaml:"classic_records" mapstructure:"classic_records" json:"classic_records"`

	// ClassicArchiveRecords receives staff-facing classic-list submission outcomes
	ClassicArchiveRecords string `yaml:"classic_archive_records" mapstructure:"classic_archive_records" json:"classic_archive_records"`

	// PlatRecords receives public platformer-list submission outcomes
	PlatRecords string `yaml:"plat_records" mapstructure:"plat_records" json:"plat_records"`

	// PlatArchiveRecords receives staff-facing platformer-list submission outcomes
	PlatArchiveRecords string `yaml:"plat_archive_records" mapstructure:"plat_archive_records" json:"plat_archive_records"`

	// UcRecords holds under-consideration discussion threads (staff)
	UcRecords string `yaml:"uc_records" mapstructure:"uc_records" json:"uc_records"`

	// UcReminders receives batched under-consideration reminders (staff)
	UcReminders string `yaml:"uc_reminders" mapstructure:"uc_reminders" json:"uc_reminders"`

	// WeeklyUpdates receives weekly points rollup summaries (staff)
	WeeklyUpdates string `yaml:"weekly_updates" mapstructure:"weekly_updates" json:"weekly_updates"`
}

// AredlConfig configures the upstream list API integration.
//
//nolint:lll // can't break tags
type AredlConfig struct {
	// BaseURL is the REST API root (ex: https://api.aredl.net/v2)
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" binding:"required,url"`

	// WebsocketURL is the notification websocket endpoint
	WebsocketURL string `yaml:"websocket_url" mapstructure:"websocket_url" json:"websocket_url" binding:"required,url"`

	// Token is the API bearer credential, used for both REST and websocket
	Token string `yaml:"token" mapstructure:"token" json:"token" log:"[redacted]" binding:"required"`

	// ReconnectDelay is the fixed delay between websocket reconnect attempts
	ReconnectDelay time.Duration `yaml:"reconnect_delay" mapstructure:"reconnect_delay" json:"reconnect_delay" binding:"min=1s"`

	// RequestsPerSecond caps outbound REST calls
	RequestsPerSecond int `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second" binding:"min=1"`

	// LogLevel for the API client
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	httpClient *http.Client
}

// APIConfig configures the status/health HTTP server.
//
//nolint:lll // can't break tags
type APIConfig struct {
	// Determines whether the status server should be active
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// The address and port on which the server should listen (e.g., "127.0.0.1:5000")
	Listen string `yaml:"listen" mapstructure:"listen" json:"listen" binding:"required_if=Enabled true"`

	// The logging level for the status server
	LogLevel *slog.LevelVar `yaml:"log_level" mapstructure:"log_level" json:"log_level"`

	// Maximum duration for reading the entire request, including the body
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout" json:"read_timeout"`

	// Amount of time allowed to read request headers
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout" mapstructure:"read_header_timeout" json:"read_header_timeout"`

	// Maximum duration before timing out writes of the response
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout" json:"write_timeout"`

	// Maximum amount of time to wait for the next request when keep-alives are enabled
	IdleTimeout time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout" json:"idle_timeout"`
}

// PointsConfig configures the staff points system. Every mutation is
// clamped to [0, Max].
//
//nolint:lll // can't break tags
type PointsConfig struct {
	// Enabled gates all points mutations
	Enabled bool `yaml:"enabled" mapstructure:"enabled" json:"enabled"`

	// Default is the points value assigned to a staff member on first reference
	Default float64 `yaml:"default" mapstructure:"default" json:"default" binding:"min=0"`

	// Max is the points ceiling
	Max float64 `yaml:"max" mapstructure:"max" json:"max" binding:"gtfield=Default"`

	// ShiftCompleted is awarded for each completed shift
	ShiftCompleted float64 `yaml:"shift_completed" mapstructure:"shift_completed" json:"shift_completed" binding:"min=0"`

	// ShiftMissedMax is the full penalty for a missed shift; partial
	// completion reduces it in thirds
	ShiftMissedMax float64 `yaml:"shift_missed_max" mapstructure:"shift_missed_max" json:"shift_missed_max" binding:"min=0"`

	// WeeklyEnabled gates the weekly rollup task
	WeeklyEnabled bool `yaml:"weekly_enabled" mapstructure:"weekly_enabled" json:"weekly_enabled"`

	// WeeklyBonus is awarded when all of a user's shifts in the trailing
	// week were completed
	WeeklyBonus float64 `yaml:"weekly_bonus" mapstructure:"weekly_bonus" json:"weekly_bonus" binding:"min=0"`

	// BiweeklyMissed is deducted when all of a user's shifts were missed
	// two weeks in a row
	BiweeklyMissed float64 `yaml:"biweekly_missed" mapstructure:"biweekly_missed" json:"biweekly_missed" binding:"min=0"`

	// FilterByGuildMembers skips rollup entries for users not in the staff guild
	FilterByGuildMembers bool `yaml:"filter_by_guild_members" mapstructure:"filter_by_guild_members" json:"filter_by_guild_members"`

	// SendWeeklyUpdates posts rollup change summaries to the weekly updates channel
	SendWeeklyUpdates bool `yaml:"send_weekly_updates" mapstructure:"send_weekly_updates" json:"send_weekly_updates"`
}

// TaskConfig configures the scheduled task runner. Schedules are
// standard five-field cron expressions.
//
//nolint:lll // can't break tags
type TaskConfig struct {
	// WeeklyPointsSchedule fires the weekly points rollup
	WeeklyPointsSchedule string `yaml:"weekly_points_schedule" mapstructure:"weekly_points_schedule" json:"weekly_points_schedule" binding:"required"`

	// ShiftRemindersEnabled gates the expiring-shift reminder task
	ShiftRemindersEnabled bool `yaml:"shift_reminders_enabled" mapstructure:"shift_reminders_enabled" json:"shift_reminders_enabled"`

	// ShiftReminderSchedule fires the expiring-shift reminder task
	ShiftReminderSchedule string `yaml:"shift_reminder_schedule" mapstructure:"shift_reminder_schedule" json:"shift_reminder_schedule" binding:"required_if=ShiftRemindersEnabled true"`

	// ShiftReminderWindow is how close to its end a running shift must be
	// before its owner is reminded
	ShiftReminderWindow time.Duration `yaml:"shift_reminder_window" mapstructure:"shift_reminder_window" json:"shift_reminder_window" binding:"min=0"`

	// UcRemindersEnabled gates the under-consideration reminder task
	UcRemindersEnabled bool `yaml:"uc_reminders_enabled" mapstructure:"uc_reminders_enabled" json:"uc_reminders_enabled"`

	// UcReminderSchedule fires the under-consideration reminder task
	UcReminderSchedule string `yaml:"uc_reminder_schedule" mapstructure:"uc_reminder_schedule" json:"uc_reminder_schedule" binding:"required_if=UcRemindersEnabled true"`

	// UcReminderAge is how long a submission must sit under consideration
	// before it appears in the reminder digest
	UcReminderAge time.Duration `yaml:"uc_reminder_age" mapstructure:"uc_reminder_age" json:"uc_reminder_age" binding:"min=0"`
}

// DefaultConfig returns a Config with default values set.
func DefaultConfig() *Config {
	mainLogLevel := &slog.LevelVar{}
	dbLogLevel := &slog.LevelVar{}
	discordLogLevel := &slog.LevelVar{}
	discordgoLogLevel := &slog.LevelVar{}
	apiLogLevel := &slog.LevelVar{}
	aredlLogLevel := &slog.LevelVar{}

	mainLogLevel.Set(DefaultLogLevel)
	dbLogLevel.Set(DefaultDatabaseLogLevel)
	discordLogLevel.Set(DefaultDiscordLogLevel)
	discordgoLogLevel.Set(DefaultDiscordgoLogLevel)
	apiLogLevel.Set(DefaultAPILogLevel)
	aredlLogLevel.Set(DefaultAredlLogLevel)

	return &Config{
		DatabaseType:          DefaultDatabaseType,
		Database:              DefaultDatabase,
		DatabaseLogLevel:      dbLogLevel,
		DatabaseSlowThreshold: DefaultDatabaseSlowThreshold,
		LogLevel:              mainLogLevel,
		StartupTimeout:        DefaultStartupTimeout,
		ShutdownTimeout:       DefaultShutdownTimeout,
		Discord: &DiscordConfig{
			GatewayIntents:    DefaultDiscordGatewayIntent,
			LogLevel:          discordLogLevel,
			DiscordGoLogLevel: discordgoLogLevel,
		},
		Aredl: &AredlConfig{
			BaseURL:           DefaultAredlBaseURL,
			WebsocketURL:      DefaultAredlWebsocketURL,
			ReconnectDelay:    DefaultReconnectDelay,
			RequestsPerSecond: DefaultAredlRequestsPerSecond,
			LogLevel:          aredlLogLevel,
		},
		API: &APIConfig{
			Enabled:           false,
			Listen:            DefaultStatusListen,
			LogLevel:          apiLogLevel,
			ReadTimeout:       DefaultReadTimeout,
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			WriteTimeout:      DefaultWriteTimeout,
			IdleTimeout:       DefaultIdleTimeout,
		},
		Points: &PointsConfig{
			Enabled:           true,
			Default:           DefaultPoints,
			Max:               DefaultMaxPoints,
			ShiftCompleted:    DefaultPointsShiftCompleted,
			ShiftMissedMax:    DefaultPointsShiftMissedMax,
			WeeklyEnabled:     true,
			WeeklyBonus:       DefaultPointsWeeklyBonus,
			BiweeklyMissed:    DefaultPointsBiweeklyMissed,
			SendWeeklyUpdates: true,
		},
		Tasks: &TaskConfig{
			WeeklyPointsSchedule:  DefaultWeeklyPointsSchedule,
			ShiftRemindersEnabled: true,
			ShiftReminderSchedule: DefaultShiftReminderSchedule,
			ShiftReminderWindow:   DefaultShiftReminderWindow,
			UcRemindersEnabled:    true,
			UcReminderSchedule:    DefaultUcReminderSchedule,
			UcReminderAge:         DefaultUcReminderAge,
		},
	}
}
