package listbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
)

// resolveSubmission looks up the level, submitter and reviewer for a
// submission payload. Any failed lookup aborts the whole handler, so
// nothing is partially posted. The reviewer lookup is skipped when the
// payload carries no reviewer (a submission can enter consideration
// without one).
func (b *Bot) resolveSubmission(
	ctx context.Context,
	sub SubmissionPayload,
) (level *AredlLevel, submitter *AredlUser, reviewer *AredlUser, err error) {
	level, err = b.api.Level(ctx, sub.list(), sub.LevelID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error fetching level: %w", err)
	}
	submitter, err = b.api.User(ctx, sub.SubmittedBy)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error fetching submitter: %w", err)
	}
	submitter = b.applyNoPing(ctx, submitter)
	if sub.ReviewerID != "" {
		reviewer, err = b.api.User(ctx, sub.ReviewerID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("error fetching reviewer: %w", err)
		}
	}
	return level, submitter, reviewer, nil
}

// applyNoPing clears the Discord ID from a user on the no-ping list,
// so downstream mentions fall back to their plain name.
func (b *Bot) applyNoPing(ctx context.Context, user *AredlUser) *AredlUser {
	if user == nil || user.DiscordID == "" {
		return user
	}
	var entry NoPingEntry
	err := b.db.WithContext(ctx).Take(&entry, "user_id = ?", user.DiscordID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			b.logger.ErrorContext(ctx, "error checking no-ping list", tint.Err(err))
		}
		return user
	}
	muted := *user
	muted.DiscordID = ""
	return &muted
}

// submissionChannels returns the staff archive and public channels for
// the submission's list.
func (b *Bot) submissionChannels(sub SubmissionPayload) (
	archive string,
	public string,
) {
	channels := b.config.Discord.Channels
	if sub.list() == ListPlatformer {
		return channels.PlatArchiveRecords, channels.PlatRecords
	}
	return channels.ClassicArchiveRecords, channels.ClassicRecords
}

// updateUcThread reconciles an existing UC discussion thread with a
// submission's resolution: swaps the starter message's reaction,
// renames the thread, and posts a resolution embed inside it. A
// missing UcThread row means the submission never went through
// consideration, which is not an error.
//
// When Discord reports the linked message or thread as gone, the stale
// link row is deleted so later events stop retrying it.
func (b *Bot) updateUcThread(
	ctx context.Context,
	sub SubmissionPayload,
	reaction string,
	threadName string,
	resolution *discordgo.MessageEmbed,
) {
	var link UcThread
	err := b.db.WithContext(ctx).Take(&link, "submission_id = ?", sub.ID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			b.logger.ErrorContext(ctx, "error loading uc thread link", tint.Err(err))
		}
		return
	}

	ucChannel := b.config.Discord.Channels.UcRecords
	session := b.discord.session

	if _, err = session.ChannelMessage(ucChannel, link.MessageID); err != nil {
		if isUnknownResourceErr(err) {
			b.logger.WarnContext(
				ctx,
				"uc thread starter message is gone, removing link",
				"submission_id", sub.ID,
			)
			b.db.WithContext(ctx).Delete(&link)
			return
		}
		b.logger.ErrorContext(ctx, "error fetching uc starter message", tint.Err(err))
		return
	}

	if err = session.MessageReactionsRemoveAll(ucChannel, link.MessageID); err != nil {
		b.logger.ErrorContext(ctx, "error clearing uc reactions", tint.Err(err))
	}
	if err = session.MessageReactionAdd(ucChannel, link.MessageID, reaction); err != nil {
		b.logger.ErrorContext(ctx, "error adding uc reaction", tint.Err(err))
	}

	name := truncateName(threadName, discordThreadNameLimit)
	if _, err = session.ChannelEdit(
		link.ThreadID,
		&discordgo.ChannelEdit{Name: name},
	); err != nil {
		if isUnknownResourceErr(err) {
			b.logger.WarnContext(
				ctx,
				"uc thread is gone, removing link",
				"submission_id", sub.ID,
			)
			b.db.WithContext(ctx).Delete(&link)
			return
		}
		b.logger.ErrorContext(ctx, "error renaming uc thread", tint.Err(err))
	}

	if _, err = session.ChannelMessageSendComplex(
		link.ThreadID,
		&discordgo.MessageSend{
			Embeds: []*discordgo.MessageEmbed{resolution},
		},
	); err != nil {
		b.logger.ErrorContext(ctx, "error posting uc resolution", tint.Err(err))
	}
}
