package listbot

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// clampPoints bounds a points value to [0, max].
func clampPoints(points float64, max float64) float64 {
	if points < 0 {
		return 0
	}
	if points > max {
		return max
	}
	return points
}

// missedShiftPenalty computes the deduction for a missed shift from how
// much of the target was completed: the full penalty below one third,
// two thirds of it below two thirds, and one third of it otherwise.
func missedShiftPenalty(completed int, target int, fullPenalty float64) float64 {
	var ratio float64
	if target > 0 {
		ratio = float64(completed) / float64(target)
	}
	switch {
	case ratio >= 2.0/3.0:
		return fullPenalty / 3
	case ratio >= 1.0/3.0:
		return fullPenalty * 2 / 3
	default:
		return fullPenalty
	}
}

// AddStaffPoints applies a points delta to the given staff member,
// creating their points row with the default value on first reference.
// The stored value is clamped to [0, PointsConfig.Max]. Returns the
// resulting points value.
func (b *Bot) AddStaffPoints(
	ctx context.Context,
	discordID string,
	delta float64,
) (float64, error) {
	row, err := getOrCreateStaffPoints(ctx, b.db, discordID, b.config.Points.Default)
	if err != nil {
		return 0, fmt.Errorf("error loading staff points: %w", err)
	}
	newPoints := clampPoints(row.Points+delta, b.config.Points.Max)
	err = b.db.WithContext(ctx).Model(&StaffPoints{}).Where(
		"user = ?", discordID,
	).Update("points", newPoints).Error
	if err != nil {
		return 0, fmt.Errorf("error updating staff points: %w", err)
	}
	return newPoints, nil
}

// SetStaffPoints overwrites the given staff member's points value,
// clamped to [0, PointsConfig.Max].
func (b *Bot) SetStaffPoints(
	ctx context.Context,
	discordID string,
	points float64,
) (float64, error) {
	newPoints := clampPoints(points, b.config.Points.Max)
	row := StaffPoints{User: discordID, Points: newPoints}
	err := b.db.WithContext(ctx).Save(&row).Error
	if err != nil {
		return 0, fmt.Errorf("error setting staff points: %w", err)
	}
	return newPoints, nil
}

// GetStaffPoints returns the given staff member's current points value,
// or the configured default when no row exists yet.
func (b *Bot) GetStaffPoints(ctx context.Context, discordID string) (
	float64,
	error,
) {
	var row StaffPoints
	err := b.db.WithContext(ctx).Take(&row, "user = ?", discordID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return b.config.Points.Default, nil
		}
		return 0, err
	}
	return row.Points, nil
}
