package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"reflect"
	"strings"
	"syscall"

	"github.com/All-Rated-Extreme-Demon-List/AREDL-Manager-V4/listbot"
	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfg        = listbot.DefaultConfig()
	configFile string
)

var rootCmd = &cobra.Command{
	Use: "aredl-manager [flags]",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		err := viper.Unmarshal(
			cfg,
			viper.DecodeHook(
				mapstructure.ComposeDecodeHookFunc(
					mapstructure.StringToTimeDurationHookFunc(),
					LevelToStringHookFunc(),
				),
			),
		)
		if err != nil {
			log.Fatalln(err)
		}
	},
}

func getLogLevel(level string) (slog.Level, error) {
	switch level {
	case slog.LevelDebug.String():
		return slog.LevelDebug, nil
	case slog.LevelInfo.String():
		return slog.LevelInfo, nil
	case slog.LevelWarn.String():
		return slog.LevelWarn, nil
	case slog.LevelError.String():
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s", level)
	}
}

func LevelToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(
		f reflect.Type,
		t reflect.Type,
		data any,
	) (any, error) {
		if f.Kind() != reflect.String {
			return data, nil
		}
		if t.Kind() != reflect.Ptr {
			return data, nil
		}

		typ := t.Elem()

		if typ != reflect.TypeOf(slog.LevelVar{}) {
			return data, nil
		}
		lvl, err := getLogLevel(data.(string))
		if err != nil {
			return nil, fmt.Errorf("invalid log level: %s", data)
		}
		lvlVar := &slog.LevelVar{}
		lvlVar.Set(lvl)
		return lvlVar, nil
	}
}

func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	rootCmd.SetContext(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(
		signals,
		os.Interrupt,
		syscall.SIGHUP,
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer func() {
		signal.Stop(signals)
		cancel()
	}()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
			//
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func initConfig() {
	if configFile == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found")
		}
	} else {
		fmt.Println("loading env from file", configFile)
		if err := godotenv.Load(configFile); err != nil {
			log.Println("No .env file found")
		}
	}

	viper.SetDefault("database", listbot.DefaultDatabase)
	viper.SetDefault("database_type", listbot.DefaultDatabaseType)
	viper.SetDefault(
		"database_slow_threshold",
		listbot.DefaultDatabaseSlowThreshold,
	)
	viper.SetDefault(
		"database_log_level",
		listbot.DefaultDatabaseLogLevel.String(),
	)

	viper.SetDefault("log_level", listbot.DefaultLogLevel.String())

	viper.SetDefault("startup_timeout", listbot.DefaultStartupTimeout)
	viper.SetDefault("shutdown_timeout", listbot.DefaultShutdownTimeout)

	// Discord config
	viper.SetDefault("discord.token", "")
	viper.SetDefault("discord.application_id", "")
	viper.SetDefault("discord.guild_id", "")
	viper.SetDefault("discord.staff_guild_id", "")
	viper.SetDefault("discord.separate_staff_server", false)
	viper.SetDefault(
		"discord.log_level",
		listbot.DefaultDiscordLogLevel.String(),
	)
	viper.SetDefault(
		"discord.discordgo_log_level",
		listbot.DefaultDiscordgoLogLevel.String(),
	)
	viper.SetDefault(
		"discord.gateway_intents",
		listbot.DefaultDiscordGatewayIntent,
	)

	viper.SetDefault("discord.channels.completed_shifts", "")
	viper.SetDefault("discord.channels.missed_shifts", "")
	viper.SetDefault("discord.channels.shifts_started", "")
	viper.SetDefault("discord.channels.classic_records", "")
	viper.SetDefault("discord.channels.classic_archive_records", "")
	viper.SetDefault("discord.channels.plat_records", "")
	viper.SetDefault("discord.channels.plat_archive_records", "")
	viper.SetDefault("discord.channels.uc_records", "")
	viper.SetDefault("discord.channels.uc_reminders", "")
	viper.SetDefault("discord.channels.weekly_updates", "")

	// AREDL API config
	viper.SetDefault("aredl.base_url", listbot.DefaultAredlBaseURL)
	viper.SetDefault("aredl.websocket_url", listbot.DefaultAredlWebsocketURL)
	viper.SetDefault("aredl.token", "")
	viper.SetDefault("aredl.reconnect_delay", listbot.DefaultReconnectDelay)
	viper.SetDefault(
		"aredl.requests_per_second",
		listbot.DefaultAredlRequestsPerSecond,
	)
	viper.SetDefault("aredl.log_level", listbot.DefaultAredlLogLevel.String())

	// Status API config
	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.listen", listbot.DefaultStatusListen)
	viper.SetDefault("api.log_level", listbot.DefaultAPILogLevel.String())
	viper.SetDefault("api.read_timeout", listbot.DefaultReadTimeout)
	viper.SetDefault(
		"api.read_header_timeout",
		listbot.DefaultReadHeaderTimeout,
	)
	viper.SetDefault("api.write_timeout", listbot.DefaultWriteTimeout)
	viper.SetDefault("api.idle_timeout", listbot.DefaultIdleTimeout)

	// Points config
	viper.SetDefault("points.enabled", true)
	viper.SetDefault("points.default", listbot.DefaultPoints)
	viper.SetDefault("points.max", listbot.DefaultMaxPoints)
	viper.SetDefault("points.shift_completed", listbot.DefaultPointsShiftCompleted)
	viper.SetDefault("points.shift_missed_max", listbot.DefaultPointsShiftMissedMax)
	viper.SetDefault("points.weekly_enabled", true)
	viper.SetDefault("points.weekly_bonus", listbot.DefaultPointsWeeklyBonus)
	viper.SetDefault("points.biweekly_missed", listbot.DefaultPointsBiweeklyMissed)
	viper.SetDefault("points.filter_by_guild_members", true)
	viper.SetDefault("points.send_weekly_updates", true)

	// Task config
	viper.SetDefault(
		"tasks.weekly_points_schedule",
		listbot.DefaultWeeklyPointsSchedule,
	)
	viper.SetDefault("tasks.shift_reminders_enabled", true)
	viper.SetDefault(
		"tasks.shift_reminder_schedule",
		listbot.DefaultShiftReminderSchedule,
	)
	viper.SetDefault(
		"tasks.shift_reminder_window",
		listbot.DefaultShiftReminderWindow,
	)
	viper.SetDefault("tasks.uc_reminders_enabled", true)
	viper.SetDefault(
		"tasks.uc_reminder_schedule",
		listbot.DefaultUcReminderSchedule,
	)
	viper.SetDefault("tasks.uc_reminder_age", listbot.DefaultUcReminderAge)

	envPrefix := os.Getenv(listbot.EnvvarSetEnvPrefix)
	if envPrefix == "" {
		envPrefix = listbot.DefaultEnvPrefix
	}
	viper.SetEnvPrefix(envPrefix)

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	for _, key := range []string{
		"log_level",
		"database_log_level",
		"discord.log_level",
		"discord.discordgo_log_level",
		"aredl.log_level",
		"api.log_level",
	} {
		logLevelVar, err := levelStringToLevelVar(viper.GetString(key))
		if err != nil {
			log.Fatalf("error parsing %s: %v", key, err)
		}
		viper.Set(key, logLevelVar)
	}
}

func levelStringToLevelVar(lvl string) (*slog.LevelVar, error) {
	level := &slog.LevelVar{}
	err := level.UnmarshalText([]byte(lvl))
	return level, err
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(
		&configFile,
		"config",
		"",
		"Config file to use",
	)
}
