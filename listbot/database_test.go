package listbot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateStaffPoints(t *testing.T) {
	bot, _, _ := newTestBot(t)
	ctx := context.Background()

	row, err := getOrCreateStaffPoints(ctx, bot.db, "d1", 50)
	require.NoError(t, err)
	assert.Equal(t, 50.0, row.Points)

	// second call returns the stored row, not a fresh default
	require.NoError(
		t,
		bot.db.Model(&StaffPoints{}).Where("user = ?", "d1").
			Update("points", 12.5).Error,
	)
	row, err = getOrCreateStaffPoints(ctx, bot.db, "d1", 50)
	require.NoError(t, err)
	assert.Equal(t, 12.5, row.Points)
}

func TestGetSettingDefaults(t *testing.T) {
	bot, _, _ := newTestBot(t)
	ctx := context.Background()

	// no row: pings default on, and no row is created
	setting, err := getSetting(ctx, bot.db, "d1")
	require.NoError(t, err)
	assert.True(t, setting.ShiftPings)

	var count int64
	require.NoError(t, bot.db.Model(&Setting{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(
		t,
		bot.db.Create(&Setting{User: "d1", ShiftPings: false}).Error,
	)
	setting, err = getSetting(ctx, bot.db, "d1")
	require.NoError(t, err)
	assert.False(t, setting.ShiftPings)
}

func TestSettingFirstWriteOptOut(t *testing.T) {
	bot, _, _ := newTestBot(t)
	ctx := context.Background()

	// an upsert on a user with no existing row must keep false false
	require.NoError(
		t,
		bot.db.Save(&Setting{User: "d2", ShiftPings: false}).Error,
	)

	setting, err := getSetting(ctx, bot.db, "d2")
	require.NoError(t, err)
	assert.False(t, setting.ShiftPings)

	var stored Setting
	require.NoError(t, bot.db.Take(&stored, "user = ?", "d2").Error)
	assert.False(t, stored.ShiftPings)
}

func TestGuildMemberStats(t *testing.T) {
	bot, _, _ := newTestBot(t)

	member := &discordgo.Member{User: &discordgo.User{ID: "u1"}}
	join := &discordgo.GuildMemberAdd{Member: member}
	join.GuildID = bot.config.Discord.GuildID
	bot.discord.handleGuildMemberAdd(nil, join)
	bot.discord.handleGuildMemberAdd(nil, join)

	leave := &discordgo.GuildMemberRemove{Member: member}
	leave.GuildID = bot.config.Discord.GuildID
	bot.discord.handleGuildMemberRemove(nil, leave)

	var stat DailyStat
	require.NoError(t, bot.db.Take(&stat).Error)
	assert.Equal(t, 2, stat.MembersJoined)
	assert.Equal(t, 1, stat.MembersLeft)

	// other guilds don't count
	other := &discordgo.GuildMemberAdd{Member: member}
	other.GuildID = "unrelated-guild"
	bot.discord.handleGuildMemberAdd(nil, other)
	require.NoError(t, bot.db.Take(&stat).Error)
	assert.Equal(t, 2, stat.MembersJoined)
}

func TestCreateDBMigratesTables(t *testing.T) {
	bot, _, _ := newTestBot(t)

	for _, model := range []any{
		&StaffPoints{},
		&Setting{},
		&PendingShiftNotification{},
		&SentUcReminder{},
		&WeeklyMissedShift{},
		&UcThread{},
		&NoPingEntry{},
		&DailyStat{},
	} {
		assert.True(
			t,
			bot.db.Migrator().HasTable(model),
			"missing table for %T", model,
		)
	}
}

func TestDiscordTimestamp(t *testing.T) {
	at := time.Unix(1700000000, 0)
	assert.Equal(t, "<t:1700000000>", discordTimestamp(at, ""))
	assert.Equal(t, "<t:1700000000:R>", discordTimestamp(at, "R"))
}

func TestStructToSlogValueRedaction(t *testing.T) {
	cfg := defaultTestConfig(t)
	rendered := structToSlogValue(cfg.Discord).String()
	assert.NotContains(t, rendered, "test-token")
	assert.Contains(t, rendered, "[redacted]")
}
