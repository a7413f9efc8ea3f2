package listbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiscordSessionHandler defines the interface for handling Discord
// sessions. This basically defines methods from `discordgo.Session`
// which are used in this application, to enable testing/mocking.
type DiscordSessionHandler interface {
	// Open creates a websocket connection to Discord
	Open() error

	// Close closes the websocket connection to Discord
	Close() error

	// AddHandler adds a discord gateway event handler
	AddHandler(handler any) func()

	// ChannelMessageSendComplex sends a message (content and/or embeds)
	// to the given channel
	ChannelMessageSendComplex(
		channelID string,
		data *discordgo.MessageSend,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// ChannelMessage fetches a single message from a channel
	ChannelMessage(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Message, error)

	// MessageThreadStartComplex starts a thread on the given message
	MessageThreadStartComplex(
		channelID string,
		messageID string,
		data *discordgo.ThreadStart,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	// ChannelEdit edits a channel (used to rename UC threads)
	ChannelEdit(
		channelID string,
		data *discordgo.ChannelEdit,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	// MessageReactionAdd adds a reaction to a message
	MessageReactionAdd(
		channelID string,
		messageID string,
		emojiID string,
		options ...discordgo.RequestOption,
	) error

	// MessageReactionsRemoveAll removes all reactions from a message
	MessageReactionsRemoveAll(
		channelID string,
		messageID string,
		options ...discordgo.RequestOption,
	) error

	// UserChannelCreate creates (or returns) a DM channel with the given user
	UserChannelCreate(
		recipientID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Channel, error)

	// GuildMember fetches a guild member
	GuildMember(
		guildID string,
		userID string,
		options ...discordgo.RequestOption,
	) (*discordgo.Member, error)

	// ApplicationCommandBulkOverwrite overwrites Discord application
	// commands in bulk
	ApplicationCommandBulkOverwrite(
		appID string,
		guildID string,
		commands []*discordgo.ApplicationCommand,
		options ...discordgo.RequestOption,
	) ([]*discordgo.ApplicationCommand, error)

	// InteractionRespond sends an interaction response to Discord
	InteractionRespond(
		interaction *discordgo.Interaction,
		resp *discordgo.InteractionResponse,
		options ...discordgo.RequestOption,
	) error
}

// Discord handles the bot's Discord integration: the gateway session,
// outbound notifications, member join/leave stats and slash commands.
type Discord struct {
	config  *DiscordConfig
	session DiscordSessionHandler
	logger  *slog.Logger
	bot     *Bot
}

func newDiscord(bot *Bot, config *DiscordConfig, handler slog.Handler) (
	*Discord,
	error,
) {
	d := &Discord{
		config: config,
		logger: slog.New(handler).With(loggerNameKey, "discord"),
		bot:    bot,
	}

	session, err := discordgo.New(fmt.Sprintf("Bot %s", config.Token))
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	session.Identify.Intents = config.GatewayIntents
	if config.httpClient != nil {
		session.Client = config.httpClient
	}
	logLevel := slog.LevelWarn
	if config.DiscordGoLogLevel != nil {
		logLevel = config.DiscordGoLogLevel.Level()
	}
	session.LogLevel = discordgoToLibraryLevel(logLevel)
	d.session = discordSession{session: session, logger: d.logger}
	return d, nil
}

// discordSession wraps a *discordgo.Session as a DiscordSessionHandler.
type discordSession struct {
	session *discordgo.Session
	logger  *slog.Logger
}

func (d discordSession) Open() error  { return d.session.Open() }
func (d discordSession) Close() error { return d.session.Close() }

func (d discordSession) AddHandler(handler any) func() {
	return d.session.AddHandler(handler)
}

func (d discordSession) ChannelMessageSendComplex(
	channelID string,
	data *discordgo.MessageSend,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessageSendComplex(channelID, data, options...)
}

func (d discordSession) ChannelMessage(
	channelID string,
	messageID string,
	options ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return d.session.ChannelMessage(channelID, messageID, options...)
}

func (d discordSession) MessageThreadStartComplex(
	channelID string,
	messageID string,
	data *discordgo.ThreadStart,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	return d.session.MessageThreadStartComplex(
		channelID,
		messageID,
		data,
		options...,
	)
}

func (d discordSession) ChannelEdit(
	channelID string,
	data *discordgo.ChannelEdit,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	return d.session.ChannelEdit(channelID, data, options...)
}

func (d discordSession) MessageReactionAdd(
	channelID string,
	messageID string,
	emojiID string,
	options ...discordgo.RequestOption,
) error {
	return d.session.MessageReactionAdd(channelID, messageID, emojiID, options...)
}

func (d discordSession) MessageReactionsRemoveAll(
	channelID string,
	messageID string,
	options ...discordgo.RequestOption,
) error {
	return d.session.MessageReactionsRemoveAll(channelID, messageID, options...)
}

func (d discordSession) UserChannelCreate(
	recipientID string,
	options ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	return d.session.UserChannelCreate(recipientID, options...)
}

func (d discordSession) GuildMember(
	guildID string,
	userID string,
	options ...discordgo.RequestOption,
) (*discordgo.Member, error) {
	return d.session.GuildMember(guildID, userID, options...)
}

func (d discordSession) ApplicationCommandBulkOverwrite(
	appID string,
	guildID string,
	commands []*discordgo.ApplicationCommand,
	options ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	return d.session.ApplicationCommandBulkOverwrite(
		appID,
		guildID,
		commands,
		options...,
	)
}

func (d discordSession) InteractionRespond(
	interaction *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	options ...discordgo.RequestOption,
) error {
	return d.session.InteractionRespond(interaction, resp, options...)
}

// discordgoToLibraryLevel maps an slog level to discordgo's log level ints.
func discordgoToLibraryLevel(level slog.Level) int {
	switch {
	case level <= slog.LevelDebug:
		return discordgo.LogDebug
	case level <= slog.LevelInfo:
		return discordgo.LogInformational
	case level <= slog.LevelWarn:
		return discordgo.LogWarning
	default:
		return discordgo.LogError
	}
}

// staffGuildID returns the guild staff-facing notifications go to.
func (d *Discord) staffGuildID() string {
	if d.config.SeparateStaffServer && d.config.StaffGuildID != "" {
		return d.config.StaffGuildID
	}
	return d.config.GuildID
}

// sendToChannel sends a message to the given channel. An empty channel
// ID is treated as "notification disabled" and skipped silently.
func (d *Discord) sendToChannel(
	ctx context.Context,
	channelID string,
	data *discordgo.MessageSend,
) (*discordgo.Message, error) {
	if channelID == "" {
		return nil, nil
	}
	msg, err := d.session.ChannelMessageSendComplex(channelID, data)
	if err != nil {
		d.logger.ErrorContext(
			ctx,
			"error sending channel message",
			tint.Err(err),
			"channel_id", channelID,
		)
		return nil, err
	}
	return msg, nil
}

// sendEmbedBatches sends embeds to the given channel in batches of ten,
// the most Discord allows per message.
func (d *Discord) sendEmbedBatches(
	ctx context.Context,
	channelID string,
	embeds []*discordgo.MessageEmbed,
) {
	for i := 0; i < len(embeds); i += embedBatchSize {
		batch := embeds[i:min(i+embedBatchSize, len(embeds))]
		_, _ = d.sendToChannel(
			ctx,
			channelID,
			&discordgo.MessageSend{Embeds: batch},
		)
	}
}

// directMessage delivers an embed to the given user via DM.
func (d *Discord) directMessage(
	ctx context.Context,
	userID string,
	embed *discordgo.MessageEmbed,
) error {
	channel, err := d.session.UserChannelCreate(userID)
	if err != nil {
		return fmt.Errorf("error creating DM channel: %w", err)
	}
	_, err = d.session.ChannelMessageSendComplex(
		channel.ID,
		&discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}},
	)
	if err != nil {
		d.logger.ErrorContext(
			ctx,
			"error sending direct message",
			tint.Err(err),
			"user_id", userID,
		)
	}
	return err
}

// isGuildMember reports whether the given user is a member of the
// staff guild.
func (d *Discord) isGuildMember(userID string) bool {
	member, err := d.session.GuildMember(d.staffGuildID(), userID)
	return err == nil && member != nil
}

// isUnknownResourceErr reports whether err is a Discord "unknown
// message/channel" REST error, meaning the referenced resource no
// longer exists.
func isUnknownResourceErr(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Message == nil {
		return false
	}
	switch restErr.Message.Code {
	case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage:
		return true
	default:
		return false
	}
}

// handleGuildMemberAdd increments the daily join counter for the main guild.
func (d *Discord) handleGuildMemberAdd(
	_ *discordgo.Session,
	m *discordgo.GuildMemberAdd,
) {
	if m.GuildID != d.config.GuildID {
		return
	}
	d.bumpDailyStat("members_joined")
}

// handleGuildMemberRemove increments the daily leave counter for the main guild.
func (d *Discord) handleGuildMemberRemove(
	_ *discordgo.Session,
	m *discordgo.GuildMemberRemove,
) {
	if m.GuildID != d.config.GuildID {
		return
	}
	d.bumpDailyStat("members_left")
}

func (d *Discord) bumpDailyStat(column string) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	err := d.bot.db.Clauses(clause.OnConflict{DoNothing: true}).Create(
		&DailyStat{Date: today},
	).Error
	if err != nil {
		d.logger.Error("error creating daily stat row", tint.Err(err))
		return
	}
	err = d.bot.db.Model(&DailyStat{}).Where("date = ?", today).Update(
		column,
		gorm.Expr(fmt.Sprintf("%s + 1", column)),
	).Error
	if err != nil {
		d.logger.Error("error updating daily stat", tint.Err(err))
	}
}
