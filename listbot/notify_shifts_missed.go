package listbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
)

// handleShiftsMissed deducts points for a batch of missed shifts and
// posts one archive embed per shift, batched ten to a message. A shift
// whose reviewer can't be resolved is skipped; the rest of the batch
// still processes.
func (b *Bot) handleShiftsMissed(
	ctx context.Context,
	data json.RawMessage,
) error {
	var payload ShiftsMissedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("error decoding missed shifts payload: %w", err)
	}

	// reviewers often have several shifts in one batch
	reviewers := map[string]*AredlUser{}
	var embeds []*discordgo.MessageEmbed

	for _, shift := range payload.Shifts {
		reviewer, ok := reviewers[shift.UserID]
		if !ok {
			var err error
			reviewer, err = b.api.User(ctx, shift.UserID)
			if err != nil {
				b.logger.ErrorContext(
					ctx,
					"error fetching reviewer, skipping shift",
					tint.Err(err),
					"user_id", shift.UserID,
				)
				continue
			}
			reviewers[shift.UserID] = reviewer
		}

		var newPoints *float64
		if reviewer.DiscordID == "" {
			b.logger.WarnContext(
				ctx,
				"shift missed - reviewer has no discord id, skipping points",
				"user_id", shift.UserID,
			)
		} else if b.config.Points.Enabled {
			penalty := missedShiftPenalty(
				shift.CompletedCount,
				shift.TargetCount,
				b.config.Points.ShiftMissedMax,
			)
			points, err := b.AddStaffPoints(ctx, reviewer.DiscordID, -penalty)
			if err != nil {
				b.logger.ErrorContext(
					ctx,
					"error deducting points",
					tint.Err(err),
					"user_id", shift.UserID,
				)
				continue
			}
			newPoints = &points
		}

		embeds = append(embeds, shiftMissedEmbed(reviewer, shift, newPoints))
	}

	b.discord.sendEmbedBatches(
		ctx,
		b.config.Discord.Channels.MissedShifts,
		embeds,
	)
	return nil
}
