package listbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lmittmann/tint"
)

// handleShiftsCreated persists a PendingShiftNotification row per new
// shift and arms a timer firing at its start time (immediately when the
// start is already past). The rows make the schedule durable: on
// restart, recoverPendingShiftNotifications re-arms a timer for every
// row that hasn't fired yet.
func (b *Bot) handleShiftsCreated(
	ctx context.Context,
	data json.RawMessage,
) error {
	var shifts []WebsocketShift
	if err := json.Unmarshal(data, &shifts); err != nil {
		return fmt.Errorf("error decoding created shifts payload: %w", err)
	}

	if b.config.Discord.Channels.ShiftsStarted == "" {
		return nil
	}

	for _, shift := range shifts {
		notif := PendingShiftNotification{
			UserID:      shift.UserID,
			StartAt:     shift.StartAt,
			EndAt:       shift.EndAt,
			TargetCount: shift.TargetCount,
		}
		if err := b.db.WithContext(ctx).Create(&notif).Error; err != nil {
			b.logger.ErrorContext(
				ctx,
				"error persisting shift notification",
				tint.Err(err),
				"user_id", shift.UserID,
			)
			continue
		}
		b.scheduleShiftNotification(notif)
	}
	return nil
}
