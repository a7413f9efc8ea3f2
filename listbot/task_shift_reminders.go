package listbot

import (
	"context"
	"net/url"
	"time"

	"github.com/lmittmann/tint"
)

// runShiftReminders DMs every reviewer whose running shift ends within
// the configured window, unless they've opted out of shift pings.
// There's no "already reminded" marker: a rerun inside the window
// re-notifies. The schedule is expected to be at least as long as the
// window to keep that from being obnoxious.
func (b *Bot) runShiftReminders(ctx context.Context) {
	b.logger.InfoContext(ctx, "scheduled - sending shift reminders")

	query := url.Values{}
	query.Set("per_page", "999")
	query.Set("status", string(ShiftStatusRunning))
	page, err := b.api.Shifts(ctx, query)
	if err != nil {
		b.logger.ErrorContext(ctx, "error listing running shifts", tint.Err(err))
		return
	}

	now := time.Now()
	for _, shift := range page.Data {
		untilEnd := shift.EndAt.Sub(now)
		if untilEnd <= 0 || untilEnd > b.config.Tasks.ShiftReminderWindow {
			continue
		}

		reviewer, userErr := b.api.User(ctx, shift.User.ID)
		if userErr != nil {
			b.logger.ErrorContext(ctx, "error fetching reviewer", tint.Err(userErr))
			continue
		}
		if reviewer.DiscordID == "" {
			b.logger.WarnContext(
				ctx,
				"shift reminder - reviewer has no discord id",
				"user_id", shift.User.ID,
			)
			continue
		}

		setting, settingErr := getSetting(ctx, b.db, reviewer.DiscordID)
		if settingErr == nil && !setting.ShiftPings {
			continue
		}

		_ = b.discord.directMessage(
			ctx,
			reviewer.DiscordID,
			shiftReminderEmbed(shift.EndAt),
		)
	}
}
