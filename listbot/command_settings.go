package listbot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleSettingsCommand upserts the invoker's Setting row from the
// `shift_pings` option.
func (d *Discord) handleSettingsCommand(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) error {
	invoker := interactionUser(i)
	if invoker == nil {
		return fmt.Errorf("interaction has no user")
	}

	shiftPings := true
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "shift_pings" {
			shiftPings = opt.BoolValue()
		}
	}

	setting := Setting{User: invoker.ID, ShiftPings: shiftPings}
	if err := d.bot.db.WithContext(ctx).Save(&setting).Error; err != nil {
		return fmt.Errorf("error saving settings: %w", err)
	}

	state := "enabled"
	if !shiftPings {
		state = "disabled"
	}
	return d.respondEphemeral(
		i,
		fmt.Sprintf("Shift pings %s.", state),
	)
}
