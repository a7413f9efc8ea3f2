package listbot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// handleSubmissionDenied posts a detailed staff archive notification
// and a redacted public one for a denied submission, then updates the
// linked UC thread if the submission went through consideration. Any
// failed upstream lookup aborts before anything is posted.
func (b *Bot) handleSubmissionDenied(
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
					colorRed,
					":x:",
					level,
					submitter,
					reviewer,
					"Record rejected by",
					sub,
				),
			},
		},
	)

	// the public announcement stands on its own: thread reconciliation
	// failing shouldn't suppress it
	if _, err = b.discord.sendToChannel(
		ctx,
		publicChannel,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				submissionPublicEmbed(
					colorRed,
					":x:",
					"Denied",
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
		"❌",
		fmt.Sprintf(
			"[Denied] #%d %s - %s",
			level.Position,
			level.Name,
			submitter.GlobalName,
		),
		ucResolutionEmbed(colorRed, ":x: Denied", "Denied by", reviewer, sub),
	)
	return nil
}
