package listbot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

const (
	slashCommandPoints   = "points"
	slashCommandSettings = "settings"
)

// applicationCommands declares the bot's slash commands for bulk
// registration.
func applicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        slashCommandPoints,
			Description: "Show a staff member's points",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionUser,
					Name:        "user",
					Description: "Staff member (defaults to you)",
					Required:    false,
				},
				{
					Type:        discordgo.ApplicationCommandOptionNumber,
					Name:        "set",
					Description: "Overwrite the member's points (managers only)",
					Required:    false,
				},
			},
		},
		{
			Name:        slashCommandSettings,
			Description: "Change your bot settings",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionBoolean,
					Name:        "shift_pings",
					Description: "Whether shift notifications mention you",
					Required:    true,
				},
			},
		},
	}
}

// registerCommands bulk-overwrites the bot's slash commands on the
// staff guild.
func (d *Discord) registerCommands() error {
	created, err := d.session.ApplicationCommandBulkOverwrite(
		d.config.ApplicationID,
		d.staffGuildID(),
		applicationCommands(),
	)
	if err != nil {
		return fmt.Errorf("error registering commands: %w", err)
	}
	for _, c := range created {
		d.logger.Info("registered command", "command", c.Name)
	}
	return nil
}

// handleInteractionCreate routes incoming slash command interactions.
func (d *Discord) handleInteractionCreate(
	_ *discordgo.Session,
	i *discordgo.InteractionCreate,
) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	ctx := WithLogger(d.bot.runCtx, d.logger)
	data := i.ApplicationCommandData()

	var err error
	switch data.Name {
	case slashCommandPoints:
		err = d.handlePointsCommand(ctx, i)
	case slashCommandSettings:
		err = d.handleSettingsCommand(ctx, i)
	default:
		d.logger.Warn("unknown command", "command", data.Name)
		return
	}
	if err != nil {
		d.logger.ErrorContext(
			ctx,
			"command failed",
			tint.Err(err),
			"command", data.Name,
		)
	}
}

// interactionUser returns the invoking user, which lives in a different
// field for guild vs DM interactions.
func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func (d *Discord) respondEphemeral(
	i *discordgo.InteractionCreate,
	content string,
) error {
	return d.session.InteractionRespond(
		i.Interaction,
		&discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: content,
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		},
	)
}
