package listbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runningShift(userID string, endsIn time.Duration) AredlShift {
	return AredlShift{
		ID:     userID + "-shift",
		User:   AredlUser{ID: userID},
		EndAt:  time.Now().Add(endsIn),
		Status: ShiftStatusRunning,
	}
}

func TestRunShiftRemindersWindow(t *testing.T) {
	bot, api, session := newTestBot(t)
	bot.config.Tasks.ShiftReminderWindow = 2 * time.Hour

	api.users["u1"] = &AredlUser{ID: "u1", DiscordID: "d1"}
	api.users["u2"] = &AredlUser{ID: "u2", DiscordID: "d2"}
	api.users["u3"] = &AredlUser{ID: "u3", DiscordID: "d3"}
	api.shiftPages["1"] = []AredlShift{
		// inside the window: reminded
		runningShift("u1", time.Hour),
		// well outside: skipped
		runningShift("u2", 10*time.Hour),
		// already over: skipped
		runningShift("u3", -time.Minute),
	}

	bot.runShiftReminders(context.Background())

	require.Len(t, session.dmChannels, 1)
	assert.Equal(t, "d1", session.dmChannels[0])
	assert.Len(t, session.messagesTo("dm-d1"), 1)
}

func TestRunShiftRemindersOptOut(t *testing.T) {
	bot, api, session := newTestBot(t)
	bot.config.Tasks.ShiftReminderWindow = 2 * time.Hour

	api.users["u1"] = &AredlUser{ID: "u1", DiscordID: "d1"}
	api.shiftPages["1"] = []AredlShift{runningShift("u1", time.Hour)}

	require.NoError(
		t,
		bot.db.Create(&Setting{User: "d1", ShiftPings: false}).Error,
	)

	bot.runShiftReminders(context.Background())
	assert.Empty(t, session.dmChannels)
}

func TestRunShiftRemindersUnlinkedReviewer(t *testing.T) {
	bot, api, session := newTestBot(t)
	bot.config.Tasks.ShiftReminderWindow = 2 * time.Hour

	api.users["u1"] = &AredlUser{ID: "u1"}
	api.shiftPages["1"] = []AredlShift{runningShift("u1", time.Hour)}

	bot.runShiftReminders(context.Background())
	assert.Empty(t, session.dmChannels)
}
