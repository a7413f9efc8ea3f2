package listbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// handleSubmissionUnderConsideration posts a staff archive notification
// and, the first time a submission enters consideration, starts a
// discussion thread and persists its UcThread link. The existence check
// makes redelivery a no-op beyond the archive post: a submission id
// gets exactly one thread, ever.
func (b *Bot) handleSubmissionUnderConsideration(
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

	archiveChannel, _ := b.submissionChannels(sub)
	_, _ = b.discord.sendToChannel(
		ctx,
		archiveChannel,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{
				submissionArchiveEmbed(
					colorYellow,
					":hourglass:",
					level,
					submitter,
					reviewer,
					"Record put under consideration by",
					sub,
				),
			},
		},
	)

	var existing UcThread
	err = b.db.WithContext(ctx).Take(&existing, "submission_id = ?", sub.ID).Error
	if err == nil {
		// already has a thread; redelivery
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("error checking uc thread link: %w", err)
	}

	ucChannel := b.config.Discord.Channels.UcRecords
	if ucChannel == "" {
		return nil
	}

	content := ""
	if reviewer != nil && reviewer.DiscordID != "" {
		content = fmt.Sprintf("<@%s>", reviewer.DiscordID)
	}
	starter, err := b.discord.sendToChannel(
		ctx,
		ucChannel,
		&discordgo.MessageSend{
			Content: content,
			Embeds: []*discordgo.MessageEmbed{
				ucThreadStarterEmbed(level, submitter, reviewer, sub),
			},
		},
	)
	if err != nil || starter == nil {
		return err
	}

	threadName := truncateName(
		fmt.Sprintf(
			"[UC] #%d %s - %s",
			level.Position,
			level.Name,
			submitter.GlobalName,
		),
		discordThreadNameLimit,
	)
	thread, err := b.discord.session.MessageThreadStartComplex(
		ucChannel,
		starter.ID,
		&discordgo.ThreadStart{
			Name:                threadName,
			AutoArchiveDuration: 10080,
		},
	)
	if err != nil {
		return fmt.Errorf("error starting uc thread: %w", err)
	}

	link := UcThread{
		SubmissionID: sub.ID,
		MessageID:    starter.ID,
		ThreadID:     thread.ID,
	}
	if err = b.db.WithContext(ctx).Create(&link).Error; err != nil {
		return fmt.Errorf("error persisting uc thread link: %w", err)
	}
	return nil
}
