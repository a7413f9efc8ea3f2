package listbot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/lmittmann/tint"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const weeklyShiftsMaxPages = 15

type weeklyPointsChange struct {
	user      string
	completed bool
	diff      float64
}

// runWeeklyPoints is the weekly rollup: staff who completed every shift
// in the trailing week gain a bonus, staff who missed every shift two
// weeks running lose a penalty. The WeeklyMissedShift markers carry the
// "missed all of last week" state across runs; whether markers exist
// distinguishes the writing (odd) week from the comparing (even) week.
//
// A failed shift listing aborts the whole run with no mutations.
func (b *Bot) runWeeklyPoints(ctx context.Context) {
	if !b.config.Points.Enabled || !b.config.Points.WeeklyEnabled {
		return
	}
	b.logger.InfoContext(ctx, "scheduled - calculating weekly points")

	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	shifts, err := b.fetchShiftsSince(ctx, cutoff)
	if err != nil {
		b.logger.ErrorContext(ctx, "error getting shifts, aborting rollup", tint.Err(err))
		return
	}

	byUser := map[string][]AredlShift{}
	for _, shift := range shifts {
		if shift.User.DiscordID == "" {
			continue
		}
		byUser[shift.User.DiscordID] = append(byUser[shift.User.DiscordID], shift)
	}

	var markerCount int64
	if err = b.db.WithContext(ctx).Model(&WeeklyMissedShift{}).Count(&markerCount).Error; err != nil {
		b.logger.ErrorContext(ctx, "error counting missed-shift markers", tint.Err(err))
		return
	}
	isOddWeek := markerCount == 0

	// deterministic processing order
	staffIDs := make([]string, 0, len(byUser))
	for staffID := range byUser {
		staffIDs = append(staffIDs, staffID)
	}
	sort.Strings(staffIDs)

	var changes []weeklyPointsChange
	for _, staffID := range staffIDs {
		userShifts := byUser[staffID]
		if b.config.Points.FilterByGuildMembers && !b.discord.isGuildMember(staffID) {
			continue
		}

		allCompleted := true
		allMissed := true
		for _, shift := range userShifts {
			if shift.Status != ShiftStatusCompleted {
				allCompleted = false
			}
			if shift.Status != ShiftStatusExpired {
				allMissed = false
			}
		}

		if isOddWeek {
			err = b.db.WithContext(ctx).Clauses(
				clause.OnConflict{DoNothing: true},
			).Create(&WeeklyMissedShift{User: staffID, MissedAll: allMissed}).Error
			if err != nil {
				b.logger.ErrorContext(
					ctx,
					"error recording missed-shift marker",
					tint.Err(err),
					"user", staffID,
				)
			}
		}

		switch {
		case allCompleted:
			if _, err = b.AddStaffPoints(
				ctx,
				staffID,
				b.config.Points.WeeklyBonus,
			); err != nil {
				b.logger.ErrorContext(ctx, "error adding weekly bonus", tint.Err(err))
				continue
			}
			changes = append(
				changes,
				weeklyPointsChange{
					user:      staffID,
					completed: true,
					diff:      b.config.Points.WeeklyBonus,
				},
			)
		case !isOddWeek && allMissed:
			var lastWeek WeeklyMissedShift
			err = b.db.WithContext(ctx).Take(&lastWeek, "user = ?", staffID).Error
			if err != nil {
				if !errors.Is(err, gorm.ErrRecordNotFound) {
					b.logger.ErrorContext(
						ctx,
						"error loading missed-shift marker",
						tint.Err(err),
					)
				}
				continue
			}
			if !lastWeek.MissedAll {
				continue
			}
			if _, err = b.AddStaffPoints(
				ctx,
				staffID,
				-b.config.Points.BiweeklyMissed,
			); err != nil {
				b.logger.ErrorContext(ctx, "error applying biweekly penalty", tint.Err(err))
				continue
			}
			changes = append(
				changes,
				weeklyPointsChange{
					user:      staffID,
					completed: false,
					diff:      -b.config.Points.BiweeklyMissed,
				},
			)
		}
	}

	// markers were consumed this week; reset for the next odd week
	if !isOddWeek {
		err = b.db.WithContext(ctx).Where("1 = 1").Delete(&WeeklyMissedShift{}).Error
		if err != nil {
			b.logger.ErrorContext(ctx, "error clearing missed-shift markers", tint.Err(err))
		}
	}

	if !b.config.Points.SendWeeklyUpdates || len(changes) == 0 {
		return
	}
	sort.Slice(
		changes, func(i, j int) bool {
			return changes[i].diff > changes[j].diff
		},
	)
	embeds := make([]*discordgo.MessageEmbed, 0, len(changes))
	for _, change := range changes {
		embeds = append(embeds, weeklyPointsEmbed(change))
	}
	b.discord.sendEmbedBatches(
		ctx,
		b.config.Discord.Channels.WeeklyUpdates,
		embeds,
	)
}

// fetchShiftsSince pages through the shifts listing until it reaches
// shifts ending before the cutoff, then drops still-running shifts and
// those outside the window.
func (b *Bot) fetchShiftsSince(ctx context.Context, cutoff time.Time) (
	[]AredlShift,
	error,
) {
	var shifts []AredlShift
	for page := 1; page <= weeklyShiftsMaxPages; page++ {
		query := url.Values{}
		query.Set("page", fmt.Sprintf("%d", page))
		listing, err := b.api.Shifts(ctx, query)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, listing.Data...)
		if len(listing.Data) == 0 {
			break
		}
		last := shifts[len(shifts)-1]
		if last.EndAt.Before(cutoff) {
			break
		}
	}

	var rv []AredlShift
	for _, shift := range shifts {
		if shift.EndAt.Before(cutoff) || shift.Status == ShiftStatusRunning {
			continue
		}
		rv = append(rv, shift)
	}
	return rv, nil
}
