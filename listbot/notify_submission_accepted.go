package listbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleSubmissionAccepted mirrors handleSubmissionDenied for accepted
// submissions: staff archive notification, public announcement, and
// reconciliation of the linked UC thread.
func (b *Bot) handleSubmissionAccepted(
	ctx context.Context,
	data json.RawMessage,
) error {
	var sub SubmissionPayload
	if err := json.Unmarshal(data, &sub); err != nil {
		return fmt.Errorf("error decoding submission payload: %w", err)
	}

	level, submitter, reviewer, err := b.resolveSubmission(ctx, sub)
	if err != nil {
		return err
	}

	archiveChannel, publicChannel := b.submissionChannels(sub)

	_, _ = b.discord.sendToChannel(
		ctx,
		archiveChannel,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				submissionArchiveEmbed(
					colorGreen,
					":white_check_mark:",
					level,
					submitter,
					reviewer,
					"Record accepted by",
					sub,
				),
			},
		},
	)

	if _, err = b.discord.sendToChannel(
		ctx,
		publicChannel,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				submissionPublicEmbed(
					colorGreen,
					":white_check_mark:",
					"Accepted",
					level,
					submitter,
					sub,
				),
			},
		},
	); err == nil {
		_, _ = b.discord.sendToChannel(
			ctx,
			publicChannel,
			&discordgo.MessageSend{Content: sub.VideoURL},
		)
	}

	b.updateUcThread(
		ctx,
		sub,
		"✅",
		fmt.Sprintf(
			"[Accepted] #%d %s - %s",
			level.Position,
			level.Name,
			submitter.GlobalName,
		),
		ucResolutionEmbed(
			colorGreen,
			":white_check_mark: Accepted",
			"Accepted by",
			reviewer,
			sub,
		),
	)
	return nil
}
