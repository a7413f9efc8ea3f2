package listbot

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	colorGreen  = 0x8fce00
	colorRed    = 0xcc0000
	colorYellow = 0xffff00
	colorOrange = 0xf59842
)

func embedTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

func embedField(name string, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}

// shiftCompletedEmbed is the staff archive notification for a
// completed shift.
func shiftCompletedEmbed(
	reviewer *AredlUser,
	shift WebsocketShift,
	newPoints *float64,
) *discordgo.MessageEmbed {
	pointsValue := "N/A"
	if newPoints != nil {
		pointsValue = fmt.Sprintf("%v", roundPoints(*newPoints))
	}
	return &discordgo.MessageEmbed{
		Color:       colorGreen,
		Title:       ":white_check_mark: Shift complete!",
		Description: mention(reviewer.DiscordID, reviewer.GlobalName),
		Fields: []*discordgo.MessageEmbedField{
			embedField(
				"Count",
				fmt.Sprintf("%d/%d", shift.CompletedCount, shift.TargetCount),
				true,
			),
			embedField(
				"Time",
				fmt.Sprintf(
					"%s - %s",
					discordTimestamp(shift.StartAt, ""),
					discordTimestamp(shift.EndAt, ""),
				),
				true,
			),
			embedField("Points", pointsValue, true),
		},
		Timestamp: embedTimestamp(),
	}
}

// shiftMissedEmbed is the staff archive notification for one missed shift.
func shiftMissedEmbed(
	reviewer *AredlUser,
	shift WebsocketShift,
	newPoints *float64,
) *discordgo.MessageEmbed {
	pointsValue := "N/A"
	if newPoints != nil {
		pointsValue = fmt.Sprintf("%v", roundPoints(*newPoints))
	}
	return &discordgo.MessageEmbed{
		Color:       colorRed,
		Title:       ":x: Shift missed...",
		Description: mention(reviewer.DiscordID, reviewer.GlobalName),
		Fields: []*discordgo.MessageEmbedField{
			embedField(
				"Count",
				fmt.Sprintf("%d/%d", shift.CompletedCount, shift.TargetCount),
				true,
			),
			embedField("Time", discordTimestamp(shift.StartAt, ""), true),
			embedField("Points", pointsValue, true),
		},
		Timestamp: embedTimestamp(),
	}
}

// shiftStartedEmbed notifies a reviewer their shift has begun.
func shiftStartedEmbed(
	reviewer *AredlUser,
	notif PendingShiftNotification,
) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color:       colorGreen,
		Title:       ":white_check_mark: Shift started!",
		Description: mention(reviewer.DiscordID, reviewer.GlobalName),
		Fields: []*discordgo.MessageEmbedField{
			embedField(
				"Count",
				fmt.Sprintf("%d records", notif.TargetCount),
				false,
			),
			embedField("Starts at", discordTimestamp(notif.StartAt, ""), false),
			embedField(
				"Ends at",
				fmt.Sprintf(
					"%s, %s",
					discordTimestamp(notif.EndAt, ""),
					discordTimestamp(notif.EndAt, "R"),
				),
				false,
			),
		},
		Timestamp: embedTimestamp(),
	}
}

// shiftReminderEmbed warns a reviewer their running shift is about to expire.
func shiftReminderEmbed(endAt time.Time) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Color: colorOrange,
		Title: ":warning: Shift Reminder",
		Description: fmt.Sprintf(
			"Your shift will expire %s!",
			discordTimestamp(endAt, "R"),
		),
		Timestamp: embedTimestamp(),
	}
}

// submissionLink renders a markdown link to the staff submission page.
func submissionLink(submissionID string, list ListKind) string {
	listName := "classic"
	if list == ListPlatformer {
		listName = "platformer"
	}
	return fmt.Sprintf(
		"[Open submission](https://aredl.net/staff/submissions/%s?list=%s)",
		submissionID,
		listName,
	)
}

// submissionArchiveEmbed is the detailed staff-facing notification for
// a submission entering a terminal or under-consideration state.
func submissionArchiveEmbed(
	color int,
	titlePrefix string,
	level *AredlLevel,
	submitter *AredlUser,
	reviewer *AredlUser,
	reviewerAction string,
	sub SubmissionPayload,
) *discordgo.MessageEmbed {
	device := "PC"
	if sub.Mobile {
		device = "Mobile"
	}
	ldm := "None"
	if sub.LdmID != 0 {
		ldm = fmt.Sprintf("%d", sub.LdmID)
	}
	reviewerValue := "Unknown"
	if reviewer != nil {
		reviewerValue = mention(reviewer.DiscordID, reviewer.GlobalName)
	}

	fields := []*discordgo.MessageEmbedField{
		embedField(
			"Record submitted by",
			mention(submitter.DiscordID, submitter.GlobalName),
			false,
		),
		embedField(reviewerAction, reviewerValue, false),
		embedField("Device", device, true),
		embedField("LDM", ldm, true),
	}
	if sub.CompletionTime != nil {
		fields = append(
			fields,
			embedField(
				"Completion time",
				formatCompletionTime(*sub.CompletionTime),
				false,
			),
		)
	}
	fields = append(
		fields,
		embedField("Completion link", sub.VideoURL, false),
		embedField("Raw link", orNone(sub.RawURL), false),
		embedField("Mod menu", orNone(sub.ModMenu), false),
		embedField("User notes", orNone(sub.UserNotes), false),
		embedField("Reviewer notes", orNone(sub.ReviewerNotes), false),
		embedField(
			"Private Reviewer Notes",
			orNone(sub.PrivateReviewerNotes),
			false,
		),
		embedField("Link", submissionLink(sub.ID, sub.list()), false),
	)

	return &discordgo.MessageEmbed{
		Color: color,
		Title: fmt.Sprintf(
			"%s [#%d] %s",
			titlePrefix,
			level.Position,
			level.Name,
		),
		Fields:    fields,
		Timestamp: embedTimestamp(),
	}
}

// submissionPublicEmbed is the redacted notification posted to the
// public records channel. The description padding keeps the embed at
// full width.
func submissionPublicEmbed(
	color int,
	titlePrefix string,
	outcome string,
	level *AredlLevel,
	submitter *AredlUser,
	sub SubmissionPayload,
) *discordgo.MessageEmbed {
	device := "PC"
	if sub.Mobile {
		device = "Mobile"
	}
	fields := []*discordgo.MessageEmbedField{
		embedField("Record holder", submitter.GlobalName, true),
		embedField("Device", device, true),
	}
	if sub.CompletionTime != nil {
		fields = append(
			fields,
			embedField(
				"Completion time",
				formatCompletionTime(*sub.CompletionTime),
				false,
			),
		)
	}
	if sub.ReviewerNotes != "" {
		fields = append(fields, embedField("Notes", sub.ReviewerNotes, false))
	}
	return &discordgo.MessageEmbed{
		Color: color,
		Title: fmt.Sprintf(
			"%s [#%d] %s",
			titlePrefix,
			level.Position,
			level.Name,
		),
		Description: outcome + strings.Repeat("⠀", 43),
		Fields:      fields,
	}
}

// ucThreadStarterEmbed is the message a UC discussion thread is
// started from.
func ucThreadStarterEmbed(
	level *AredlLevel,
	submitter *AredlUser,
	reviewer *AredlUser,
	sub SubmissionPayload,
) *discordgo.MessageEmbed {
	reviewerValue := "Unknown"
	if reviewer != nil {
		reviewerValue = mention(reviewer.DiscordID, reviewer.GlobalName)
	}
	return &discordgo.MessageEmbed{
		Color: colorYellow,
		Title: fmt.Sprintf(
			":hourglass: [#%d] %s",
			level.Position,
			level.Name,
		),
		Fields: []*discordgo.MessageEmbedField{
			embedField(
				"Submitted by",
				mention(submitter.DiscordID, submitter.GlobalName),
				false,
			),
			embedField("Put under consideration by", reviewerValue, false),
			embedField("Reviewer notes", orNone(sub.ReviewerNotes), true),
			embedField(
				"Private reviewer notes",
				orNone(sub.PrivateReviewerNotes),
				true,
			),
			embedField("Link", submissionLink(sub.ID, sub.list()), false),
		},
		Timestamp: embedTimestamp(),
	}
}

// ucResolutionEmbed is posted inside an existing UC thread when the
// submission is accepted or denied.
func ucResolutionEmbed(
	color int,
	title string,
	action string,
	reviewer *AredlUser,
	sub SubmissionPayload,
) *discordgo.MessageEmbed {
	reviewerValue := "Unknown"
	if reviewer != nil {
		reviewerValue = mention(reviewer.DiscordID, reviewer.GlobalName)
	}
	return &discordgo.MessageEmbed{
		Color: color,
		Title: title,
		Fields: []*discordgo.MessageEmbedField{
			embedField(action, reviewerValue, false),
			embedField("Reviewer notes", orNone(sub.ReviewerNotes), true),
			embedField(
				"Private reviewer notes",
				orNone(sub.PrivateReviewerNotes),
				true,
			),
		},
		Timestamp: embedTimestamp(),
	}
}

// weeklyPointsEmbed summarizes one staff member's weekly rollup change.
func weeklyPointsEmbed(change weeklyPointsChange) *discordgo.MessageEmbed {
	title := "Weekly points removed"
	status := "Missed"
	color := colorRed
	if change.completed {
		title = "Weekly points added"
		status = "Completed"
		color = colorGreen
	}
	return &discordgo.MessageEmbed{
		Color:       color,
		Title:       title,
		Description: fmt.Sprintf("<@%s>", change.user),
		Fields: []*discordgo.MessageEmbedField{
			embedField("Status", status, true),
			embedField("Points", fmt.Sprintf("%v", change.diff), true),
		},
	}
}
