package listbot

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm/clause"
)

// runUcReminders posts a digest of submissions that have sat under
// consideration past the configured age, one reminder per submission
// ever (tracked by SentUcReminder markers). Markers for submissions
// that left the under-consideration set are pruned, so a submission
// that re-enters consideration later is eligible again.
//
// The check-then-insert on the marker isn't atomic; the task runs on a
// single schedule with no concurrent invocations, which is what makes
// that acceptable.
func (b *Bot) runUcReminders(ctx context.Context) {
	channelID := b.config.Discord.Channels.UcReminders
	if channelID == "" {
		return
	}

	var submissions []AredlSubmission
	for _, list := range []ListKind{ListClassic, ListPlatformer} {
		page, err := b.api.Submissions(
			ctx,
			list,
			SubmissionStatusUnderConsideration,
		)
		if err != nil {
			b.logger.ErrorContext(
				ctx,
				"error listing under-consideration submissions",
				tint.Err(err),
				"list", list,
			)
			continue
		}
		submissions = append(submissions, page.Data...)
	}

	sort.Slice(
		submissions, func(i, j int) bool {
			return submissions[i].UpdatedAt.After(submissions[j].UpdatedAt)
		},
	)

	b.pruneUcReminderMarkers(ctx, submissions)

	reminded := map[string]bool{}
	var markers []SentUcReminder
	if err := b.db.WithContext(ctx).Find(&markers).Error; err != nil {
		b.logger.ErrorContext(ctx, "error loading uc reminder markers", tint.Err(err))
		return
	}
	for _, marker := range markers {
		reminded[marker.ID] = true
	}

	cutoff := time.Now().Add(-b.config.Tasks.UcReminderAge)
	var lines []string
	for _, submission := range submissions {
		if reminded[submission.ID] {
			continue
		}
		if submission.UpdatedAt.After(cutoff) {
			continue
		}
		days := int(time.Since(submission.UpdatedAt).Hours()/24 + 0.5)
		lines = append(
			lines,
			fmt.Sprintf(
				"[This submission](<https://staff.aredl.net/dashboard/submissions/%s>)"+
					" has been Under Consideration for %d days (since %s).",
				submission.ID,
				days,
				submission.UpdatedAt.UTC().Format("1/2"),
			),
		)
		err := b.db.WithContext(ctx).Clauses(
			clause.OnConflict{DoNothing: true},
		).Create(&SentUcReminder{ID: submission.ID}).Error
		if err != nil {
			b.logger.ErrorContext(
				ctx,
				"error marking uc reminder",
				tint.Err(err),
				"submission_id", submission.ID,
			)
		}
	}

	if len(lines) == 0 {
		return
	}

	_, _ = b.discord.sendToChannel(
		ctx,
		channelID,
		&discordgo.MessageSend{Content: "# -----------------------"},
	)
	for _, message := range chunkReminderLines(lines, ucReminderChunkLimit) {
		_, err := b.discord.sendToChannel(
			ctx,
			channelID,
			&discordgo.MessageSend{
				Content: message,
				Flags:   discordgo.MessageFlagsSuppressEmbeds,
			},
		)
		if err != nil {
			b.logger.ErrorContext(ctx, "error sending uc reminder", tint.Err(err))
		}
	}
}

// pruneUcReminderMarkers removes markers for submissions no longer in
// the under-consideration set.
func (b *Bot) pruneUcReminderMarkers(
	ctx context.Context,
	current []AredlSubmission,
) {
	underConsideration := map[string]bool{}
	for _, submission := range current {
		underConsideration[submission.ID] = true
	}
	var markers []SentUcReminder
	if err := b.db.WithContext(ctx).Find(&markers).Error; err != nil {
		b.logger.ErrorContext(ctx, "error loading uc reminder markers", tint.Err(err))
		return
	}
	for _, marker := range markers {
		if underConsideration[marker.ID] {
			continue
		}
		err := b.db.WithContext(ctx).Delete(&SentUcReminder{}, "id = ?", marker.ID).Error
		if err != nil {
			b.logger.ErrorContext(
				ctx,
				"error pruning uc reminder marker",
				tint.Err(err),
				"submission_id", marker.ID,
			)
		}
	}
}

// chunkReminderLines joins numbered quote lines into messages that stay
// under the given length limit. A single line longer than the limit is
// emitted as its own oversized chunk, never split.
func chunkReminderLines(lines []string, limit int) []string {
	var messages []string
	var current strings.Builder
	for i, line := range lines {
		next := fmt.Sprintf("> (%d/%d) %s\n", i+1, len(lines), line)
		if current.Len() > 0 && current.Len()+len(next) > limit {
			messages = append(messages, current.String())
			current.Reset()
		}
		current.WriteString(next)
	}
	if current.Len() > 0 {
		messages = append(messages, current.String())
	}
	return messages
}
