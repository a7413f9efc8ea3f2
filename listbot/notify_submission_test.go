package listbot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSubmissionFixtures(api *stubAredlAPI) SubmissionPayload {
	api.levels["aredl/lvl-1"] = &AredlLevel{
		ID:       "lvl-1",
		Name:     "Spacewall",
		Position: 3,
		LevelID:  12345678,
	}
	api.users["submitter-1"] = &AredlUser{
		ID:         "submitter-1",
		GlobalName: "Player One",
		DiscordID:  "discord-submitter",
	}
	api.users["reviewer-1"] = &AredlUser{
		ID:         "reviewer-1",
		GlobalName: "Reviewer One",
		DiscordID:  "discord-reviewer",
	}
	return SubmissionPayload{
		ID:          "sub-1",
		LevelID:     "lvl-1",
		SubmittedBy: "submitter-1",
		ReviewerID:  "reviewer-1",
		VideoURL:    "https://example.com/video",
	}
}

func TestUnderConsiderationCreatesThreadOnce(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)

	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)

	// starter message mentions the reviewer, thread started on it
	starters := session.messagesTo(bot.config.Discord.Channels.UcRecords)
	require.Len(t, starters, 1)
	assert.Contains(t, starters[0].Data.Content, "discord-reviewer")
	require.Len(t, session.threads, 1)
	assert.Contains(t, session.threads[0].Data.Name, "[UC]")
	assert.Contains(t, session.threads[0].Data.Name, "Spacewall")

	var links []UcThread
	require.NoError(t, bot.db.Find(&links).Error)
	require.Len(t, links, 1)
	assert.Equal(t, "sub-1", links[0].SubmissionID)
	assert.Equal(t, session.threads[0].MessageID, links[0].MessageID)

	// redelivery: archive posts again, but no second thread or link
	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)
	assert.Len(t, session.threads, 1)
	require.NoError(t, bot.db.Find(&links).Error)
	assert.Len(t, links, 1)
	assert.Len(
		t,
		session.messagesTo(bot.config.Discord.Channels.ClassicArchiveRecords),
		2,
	)
}

func TestUnderConsiderationWithoutReviewer(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)
	sub.ReviewerID = ""

	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)

	starters := session.messagesTo(bot.config.Discord.Channels.UcRecords)
	require.Len(t, starters, 1)
	assert.Empty(t, starters[0].Data.Content)
	assert.Len(t, session.threads, 1)
}

func TestUnderConsiderationAbortsOnFailedLookup(t *testing.T) {
	bot, api, session := newTestBot(t)
	sub := seedSubmissionFixtures(api)
	delete(api.users, "submitter-1")

	err := bot.handleSubmissionUnderConsideration(
		context.Background(),
		mustMarshal(t, sub),
	)
	require.Error(t, err)

	// nothing posted anywhere
	assert.Empty(t, session.sent)
	assert.Empty(t, session.threads)
}

func TestSubmissionDeniedUpdatesThread(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)

	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)
	var link UcThread
	require.NoError(t, bot.db.Take(&link, "submission_id = ?", sub.ID).Error)

	require.NoError(t, bot.handleSubmissionDenied(ctx, mustMarshal(t, sub)))

	// staff archive + public embed + video URL follow-up
	assert.Len(
		t,
		session.messagesTo(bot.config.Discord.Channels.ClassicArchiveRecords),
		2,
	)
	public := session.messagesTo(bot.config.Discord.Channels.ClassicRecords)
	require.Len(t, public, 2)
	assert.Equal(t, sub.VideoURL, public[1].Data.Content)

	// reaction swapped, thread renamed, resolution posted inside it
	require.Len(t, session.reactionsCleared, 1)
	require.Len(t, session.reactions, 1)
	assert.Equal(t, "❌", session.reactions[0].Emoji)
	require.Len(t, session.edits, 1)
	assert.Equal(t, link.ThreadID, session.edits[0].ChannelID)
	assert.Contains(t, session.edits[0].Data.Name, "[Denied]")
	assert.Len(t, session.messagesTo(link.ThreadID), 1)
}

func TestSubmissionAcceptedUpdatesThread(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)

	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)
	require.NoError(t, bot.handleSubmissionAccepted(ctx, mustMarshal(t, sub)))

	require.Len(t, session.reactions, 1)
	assert.Equal(t, "✅", session.reactions[0].Emoji)
	require.Len(t, session.edits, 1)
	assert.Contains(t, session.edits[0].Data.Name, "[Accepted]")
}

func TestSubmissionDeniedWithoutThread(t *testing.T) {
	bot, api, session := newTestBot(t)
	sub := seedSubmissionFixtures(api)

	// never went through consideration: no link, no thread work
	require.NoError(
		t,
		bot.handleSubmissionDenied(context.Background(), mustMarshal(t, sub)),
	)
	assert.Empty(t, session.edits)
	assert.Empty(t, session.reactions)
}

func TestSubmissionDeniedStaleThreadLinkRemoved(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)

	require.NoError(
		t,
		bot.db.Create(
			&UcThread{
				SubmissionID: sub.ID,
				MessageID:    "gone-message",
				ThreadID:     "gone-thread",
			},
		).Error,
	)

	session.channelMessageErr = &discordgo.RESTError{
		Message: &discordgo.APIErrorMessage{
			Code: discordgo.ErrCodeUnknownMessage,
		},
	}

	require.NoError(t, bot.handleSubmissionDenied(ctx, mustMarshal(t, sub)))

	var count int64
	require.NoError(t, bot.db.Model(&UcThread{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSubmissionPlatformerChannels(t *testing.T) {
	bot, api, session := newTestBot(t)
	sub := seedSubmissionFixtures(api)
	completionTime := int64(92500)
	sub.CompletionTime = &completionTime
	api.levels["arepl/lvl-1"] = api.levels["aredl/lvl-1"]

	require.NoError(
		t,
		bot.handleSubmissionDenied(context.Background(), mustMarshal(t, sub)),
	)

	assert.Len(
		t,
		session.messagesTo(bot.config.Discord.Channels.PlatArchiveRecords),
		1,
	)
	assert.Len(
		t,
		session.messagesTo(bot.config.Discord.Channels.PlatRecords),
		2,
	)
	assert.Empty(t, session.messagesTo(bot.config.Discord.Channels.ClassicRecords))
}

func TestSubmissionNoPingListSuppressesMention(t *testing.T) {
	bot, api, session := newTestBot(t)
	ctx := context.Background()
	sub := seedSubmissionFixtures(api)

	require.NoError(
		t,
		bot.db.Create(&NoPingEntry{UserID: "discord-submitter"}).Error,
	)

	require.NoError(
		t,
		bot.handleSubmissionUnderConsideration(ctx, mustMarshal(t, sub)),
	)

	starters := session.messagesTo(bot.config.Discord.Channels.UcRecords)
	require.Len(t, starters, 1)
	for _, field := range starters[0].Data.Embeds[0].Fields {
		assert.NotContains(t, field.Value, "<@discord-submitter>")
	}
	// the thread still gets named after them
	require.Len(t, session.threads, 1)
	assert.Contains(t, session.threads[0].Data.Name, "Player One")
}

func TestTruncateName(t *testing.T) {
	assert.Equal(t, "abc", truncateName("abc", 100))
	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	assert.Len(t, truncateName(string(long), discordThreadNameLimit), 100)
}
