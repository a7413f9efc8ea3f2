package listbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleShiftCompleted awards points for a completed shift and posts an
// archive notification. If the reviewer can't be resolved upstream the
// event is dropped without mutating points - no partial credit.
//
// Redelivery of the same event double-awards; the upstream source
// doesn't carry idempotency keys for shift events.
func (b *Bot) handleShiftCompleted(
	ctx context.Context,
	data json.RawMessage,
) error {
	var shift WebsocketShift
	if err := json.Unmarshal(data, &shift); err != nil {
		return fmt.Errorf("error decoding shift payload: %w", err)
	}

	reviewer, err := b.api.User(ctx, shift.UserID)
	if err != nil {
		return fmt.Errorf("error fetching reviewer %s: %w", shift.UserID, err)
	}

	var newPoints *float64
	if reviewer.DiscordID == "" {
		b.logger.WarnContext(
			ctx,
			"shift completed - no discord id for reviewer",
			"global_name", reviewer.GlobalName,
		)
	} else if b.config.Points.Enabled {
		points, addErr := b.AddStaffPoints(
			ctx,
			reviewer.DiscordID,
			b.config.Points.ShiftCompleted,
		)
		if addErr != nil {
			return addErr
		}
		newPoints = &points
	}

	_, err = b.discord.sendToChannel(
		ctx,
		b.config.Discord.Channels.CompletedShifts,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				shiftCompletedEmbed(reviewer, shift, newPoints),
			},
		},
	)
	return err
}
