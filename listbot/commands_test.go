package listbot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandInteraction(
	name string,
	userID string,
	options ...*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
			Member: &discordgo.Member{
				User: &discordgo.User{ID: userID},
			},
		},
	}
}

func TestApplicationCommands(t *testing.T) {
	commands := applicationCommands()
	require.Len(t, commands, 2)

	names := map[string]bool{}
	for _, c := range commands {
		names[c.Name] = true
	}
	assert.True(t, names[slashCommandPoints])
	assert.True(t, names[slashCommandSettings])
}

func TestPointsCommandDefaultsToInvoker(t *testing.T) {
	bot, _, session := newTestBot(t)
	ctx := context.Background()

	_, err := bot.SetStaffPoints(ctx, "invoker-1", 42)
	require.NoError(t, err)

	i := commandInteraction(slashCommandPoints, "invoker-1")
	require.NoError(t, bot.discord.handlePointsCommand(ctx, i))

	require.Len(t, session.responses, 1)
	data := session.responses[0].Data
	assert.Contains(t, data.Content, "invoker-1")
	assert.Contains(t, data.Content, "42")
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)
}

func TestPointsCommandTargetsOption(t *testing.T) {
	bot, _, session := newTestBot(t)
	ctx := context.Background()

	_, err := bot.SetStaffPoints(ctx, "other-user", 13.5)
	require.NoError(t, err)

	i := commandInteraction(
		slashCommandPoints,
		"invoker-1",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "user",
			Type:  discordgo.ApplicationCommandOptionUser,
			Value: "other-user",
		},
	)
	require.NoError(t, bot.discord.handlePointsCommand(ctx, i))

	require.Len(t, session.responses, 1)
	assert.Contains(t, session.responses[0].Data.Content, "other-user")
	assert.Contains(t, session.responses[0].Data.Content, "13.5")
}

func TestPointsCommandUnknownUserShowsDefault(t *testing.T) {
	bot, _, session := newTestBot(t)

	i := commandInteraction(slashCommandPoints, "nobody")
	require.NoError(t, bot.discord.handlePointsCommand(context.Background(), i))

	require.Len(t, session.responses, 1)
	assert.Contains(t, session.responses[0].Data.Content, "50")
}

func TestPointsCommandSetRequiresManager(t *testing.T) {
	bot, _, session := newTestBot(t)
	ctx := context.Background()

	i := commandInteraction(
		slashCommandPoints,
		"invoker-1",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "set",
			Type:  discordgo.ApplicationCommandOptionNumber,
			Value: 12.5,
		},
	)
	require.NoError(t, bot.discord.handlePointsCommand(ctx, i))

	require.Len(t, session.responses, 1)
	assert.Contains(t, session.responses[0].Data.Content, "permission")

	var count int64
	require.NoError(t, bot.db.Model(&StaffPoints{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestPointsCommandSet(t *testing.T) {
	bot, _, session := newTestBot(t)
	ctx := context.Background()

	i := commandInteraction(
		slashCommandPoints,
		"invoker-1",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "user",
			Type:  discordgo.ApplicationCommandOptionUser,
			Value: "other-user",
		},
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "set",
			Type:  discordgo.ApplicationCommandOptionNumber,
			Value: 12.5,
		},
	)
	i.Member.Permissions = discordgo.PermissionManageServer
	require.NoError(t, bot.discord.handlePointsCommand(ctx, i))

	require.Len(t, session.responses, 1)
	assert.Contains(t, session.responses[0].Data.Content, "other-user")
	assert.Contains(t, session.responses[0].Data.Content, "12.5")

	points, err := bot.GetStaffPoints(ctx, "other-user")
	require.NoError(t, err)
	assert.Equal(t, 12.5, points)
}

func TestSettingsCommandPersists(t *testing.T) {
	bot, _, session := newTestBot(t)
	ctx := context.Background()

	i := commandInteraction(
		slashCommandSettings,
		"invoker-1",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "shift_pings",
			Type:  discordgo.ApplicationCommandOptionBoolean,
			Value: false,
		},
	)
	require.NoError(t, bot.discord.handleSettingsCommand(ctx, i))

	setting, err := getSetting(ctx, bot.db, "invoker-1")
	require.NoError(t, err)
	assert.False(t, setting.ShiftPings)

	require.Len(t, session.responses, 1)
	assert.Contains(t, session.responses[0].Data.Content, "disabled")

	// flip it back
	i = commandInteraction(
		slashCommandSettings,
		"invoker-1",
		&discordgo.ApplicationCommandInteractionDataOption{
			Name:  "shift_pings",
			Type:  discordgo.ApplicationCommandOptionBoolean,
			Value: true,
		},
	)
	require.NoError(t, bot.discord.handleSettingsCommand(ctx, i))

	setting, err = getSetting(ctx, bot.db, "invoker-1")
	require.NoError(t, err)
	assert.True(t, setting.ShiftPings)
}

func TestRegisterCommands(t *testing.T) {
	bot, _, _ := newTestBot(t)
	require.NoError(t, bot.discord.registerCommands())
}

func TestInteractionUser(t *testing.T) {
	guild := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Member: &discordgo.Member{User: &discordgo.User{ID: "from-guild"}},
		},
	}
	assert.Equal(t, "from-guild", interactionUser(guild).ID)

	dm := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			User: &discordgo.User{ID: "from-dm"},
		},
	}
	assert.Equal(t, "from-dm", interactionUser(dm).ID)
}
