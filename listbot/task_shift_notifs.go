package listbot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// recoverPendingShiftNotifications re-arms a timer for every
// PendingShiftNotification row still in the store. Called once at
// startup, so notifications persisted before a restart aren't silently
// dropped.
func (b *Bot) recoverPendingShiftNotifications(ctx context.Context) error {
	var pending []PendingShiftNotification
	if err := b.db.WithContext(ctx).Find(&pending).Error; err != nil {
		return err
	}
	if len(pending) > 0 {
		b.logger.InfoContext(
			ctx,
			"recovering pending shift notifications",
			"count", len(pending),
		)
	}
	for _, notif := range pending {
		b.scheduleShiftNotification(notif)
	}
	return nil
}

// scheduleShiftNotification arms a one-shot timer firing at the shift's
// start time, or immediately when the start is already past. The row is
// deleted after at most one delivery attempt, success or failure, so a
// notification is never sent twice.
func (b *Bot) scheduleShiftNotification(notif PendingShiftNotification) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ctx := b.runCtx

		delay := time.Until(notif.StartAt)
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
		}
		b.sendShiftNotification(ctx, notif)
	}()
}

// sendShiftNotification posts the "shift started" notification for one
// pending row and removes the row. Users who opted out of shift pings
// get the embed without a mention.
func (b *Bot) sendShiftNotification(
	ctx context.Context,
	notif PendingShiftNotification,
) {
	logger := b.logger.With("shift_notification_id", notif.ID)

	// the row comes out regardless of what happens below: one attempt only
	defer func() {
		if err := b.db.WithContext(ctx).Delete(
			&PendingShiftNotification{},
			notif.ID,
		).Error; err != nil {
			logger.ErrorContext(
				ctx,
				"error deleting pending shift notification",
				tint.Err(err),
			)
		}
	}()

	reviewer, err := b.api.User(ctx, notif.UserID)
	if err != nil {
		logger.ErrorContext(ctx, "error fetching reviewer", tint.Err(err))
		return
	}

	content := ""
	if reviewer.DiscordID != "" {
		setting, settingErr := getSetting(ctx, b.db, reviewer.DiscordID)
		if settingErr != nil {
			logger.ErrorContext(ctx, "error loading settings", tint.Err(settingErr))
		}
		if settingErr != nil || setting.ShiftPings {
			content = mention(reviewer.DiscordID, "")
		}
	}

	_, err = b.discord.sendToChannel(
		ctx,
		b.config.Discord.Channels.ShiftsStarted,
		&discordgo.MessageSend{
			Content: content,
			Embeds: []*discordgo.MessageEmbed{
				shiftStartedEmbed(reviewer, notif),
			},
		},
	)
	if err != nil {
		logger.ErrorContext(ctx, "error sending shift notification", tint.Err(err))
		return
	}
	logger.InfoContext(ctx, "sent shift notification", "user_id", notif.UserID)
}
