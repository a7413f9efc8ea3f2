package listbot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeklyShift(userID string, discordID string, status ShiftStatus) AredlShift {
	return AredlShift{
		ID:      userID + "-" + string(status),
		User:    AredlUser{ID: userID, DiscordID: discordID},
		EndAt:   time.Now().Add(-24 * time.Hour),
		StartAt: time.Now().Add(-28 * time.Hour),
		Status:  status,
	}
}

func TestRunWeeklyPointsBonus(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()

	api.shiftPages["1"] = []AredlShift{
		weeklyShift("u1", "d1", ShiftStatusCompleted),
		weeklyShift("u2", "d2", ShiftStatusExpired),
	}

	bot.runWeeklyPoints(ctx)

	points, err := bot.GetStaffPoints(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, bot.config.Points.Default+bot.config.Points.WeeklyBonus, points)

	// missed-all on an odd week records the marker but applies no penalty
	points, err = bot.GetStaffPoints(ctx, "d2")
	require.NoError(t, err)
	assert.Equal(t, bot.config.Points.Default, points)

	var markers []WeeklyMissedShift
	require.NoError(t, bot.db.Find(&markers).Error)
	require.Len(t, markers, 2)

	// a change summary went out
	assert.NotEmpty(t, session.messagesTo(bot.config.Discord.Channels.WeeklyUpdates))
}

func TestRunWeeklyPointsBiweeklyPenalty(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx := context.Background()

	api.shiftPages["1"] = []AredlShift{
		weeklyShift("u1", "d1", ShiftStatusExpired),
	}

	// odd week: marker written, no penalty
	bot.runWeeklyPoints(ctx)
	points, err := bot.GetStaffPoints(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, bot.config.Points.Default, points)

	// even week: missed all again, penalty lands and markers reset
	bot.runWeeklyPoints(ctx)
	points, err = bot.GetStaffPoints(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(
		t,
		bot.config.Points.Default-bot.config.Points.BiweeklyMissed,
		points,
	)

	var count int64
	require.NoError(t, bot.db.Model(&WeeklyMissedShift{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunWeeklyPointsNoPenaltyAfterRecovery(t *testing.T) {
	bot, api, _ := newTestBot(t)
	ctx := context.Background()

	// missed everything in the odd week...
	api.shiftPages["1"] = []AredlShift{weeklyShift("u1", "d1", ShiftStatusExpired)}
	bot.runWeeklyPoints(ctx)

	// ...but completed some shifts the next week
	api.mu.Lock()
	api.shiftPages["1"] = []AredlShift{
		weeklyShift("u1", "d1", ShiftStatusExpired),
		weeklyShift("u1", "d1", ShiftStatusCompleted),
	}
	api.mu.Unlock()
	bot.runWeeklyPoints(ctx)

	points, err := bot.GetStaffPoints(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, bot.config.Points.Default, points)
}

func TestRunWeeklyPointsAbortsOnListingError(t *testing.T) {
	bot, api, session := newTestBot(t)

	api.shiftsErr = assert.AnError
	bot.runWeeklyPoints(context.Background())

	var count int64
	require.NoError(t, bot.db.Model(&StaffPoints{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, session.sent)
}

func TestRunWeeklyPointsDisabled(t *testing.T) {
	bot, api, session := newTestBot(t)
	bot.config.Points.WeeklyEnabled = false

	api.shiftPages["1"] = []AredlShift{weeklyShift("u1", "d1", ShiftStatusCompleted)}
	bot.runWeeklyPoints(context.Background())

	var count int64
	require.NoError(t, bot.db.Model(&StaffPoints{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, session.sent)
}

func TestFetchShiftsSinceFilters(t *testing.T) {
	bot, api, _ := newTestBot(t)

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	api.shiftPages["1"] = []AredlShift{
		// inside the window, finished
		weeklyShift("u1", "d1", ShiftStatusCompleted),
		// still running: excluded
		weeklyShift("u2", "d2", ShiftStatusRunning),
		// before the cutoff: excluded, and stops pagination
		{
			ID:     "ancient",
			User:   AredlUser{ID: "u3", DiscordID: "d3"},
			EndAt:  cutoff.Add(-48 * time.Hour),
			Status: ShiftStatusExpired,
		},
	}
	api.shiftPages["2"] = []AredlShift{weeklyShift("u4", "d4", ShiftStatusCompleted)}

	shifts, err := bot.fetchShiftsSince(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, shifts, 1)
	assert.Equal(t, "d1", shifts[0].User.DiscordID)
}
