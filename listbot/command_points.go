package listbot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handlePointsCommand responds with the target user's point balance.
// Without a `user` option the invoker is the target; users without a
// stored row read back the configured default. The `set` option
// overwrites the balance and requires Manage Server.
func (d *Discord) handlePointsCommand(
	ctx context.Context,
	i *discordgo.InteractionCreate,
) error {
	invoker := interactionUser(i)
	if invoker == nil {
		return fmt.Errorf("interaction has no user")
	}
	target := invoker.ID
	var setValue *float64
	for _, opt := range i.ApplicationCommandData().Options {
		switch opt.Name {
		case "user":
			target = opt.Value.(string)
		case "set":
			v := opt.FloatValue()
			setValue = &v
		}
	}

	if setValue != nil {
		if i.Member == nil ||
			i.Member.Permissions&discordgo.PermissionManageServer == 0 {
			return d.respondEphemeral(
				i,
				"You don't have permission to set points.",
			)
		}
		points, err := d.bot.SetStaffPoints(ctx, target, *setValue)
		if err != nil {
			return err
		}
		return d.respondEphemeral(
			i,
			fmt.Sprintf(
				"<@%s> now has **%v** points.",
				target,
				roundPoints(points),
			),
		)
	}

	points, err := d.bot.GetStaffPoints(ctx, target)
	if err != nil {
		return err
	}
	return d.respondEphemeral(
		i,
		fmt.Sprintf("<@%s> has **%v** points.", target, roundPoints(points)),
	)
}
