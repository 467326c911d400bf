package reminder

import (
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/starford/recall/internal/models"
)

// Bucket labels, in display order.
const (
	LabelToday    = "Today"
	LabelThisWeek = "This Week"
	LabelLater    = "Later"
)

// Group partitions open reminders into Today, This Week and Later relative
// to now, whose location defines the calendar. Completed reminders are
// dropped, empty buckets are omitted, and each bucket is ordered by due date.
func Group(reminders []models.Reminder, now time.Time, weekStart time.Weekday) []models.ReminderGroup {
	loc := now.Location()
	open := lo.Filter(reminders, func(r models.Reminder, _ int) bool {
		return !r.IsCompleted
	})

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	offset := (int(now.Weekday()) - int(weekStart) + 7) % 7
	startOfWeek := startOfDay.AddDate(0, 0, -offset)
	endOfWeek := startOfWeek.AddDate(0, 0, 7)

	buckets := map[string][]models.Reminder{}
	for _, r := range open {
		due := r.DueDate.In(loc)
		switch {
		case sameDay(due, now.In(loc)):
			buckets[LabelToday] = append(buckets[LabelToday], r)
		case !due.Before(startOfWeek) && due.Before(endOfWeek):
			buckets[LabelThisWeek] = append(buckets[LabelThisWeek], r)
		default:
			buckets[LabelLater] = append(buckets[LabelLater], r)
		}
	}

	out := make([]models.ReminderGroup, 0, len(buckets))
	for _, label := range []string{LabelToday, LabelThisWeek, LabelLater} {
		items, ok := buckets[label]
		if !ok {
			continue
		}
		slices.SortStableFunc(items, func(a, b models.Reminder) int {
			return a.DueDate.Compare(b.DueDate)
		})
		out = append(out, models.ReminderGroup{Label: label, Items: items})
	}
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// ParseWeekday maps "monday" or "sunday" to a time.Weekday, defaulting to Monday.
func ParseWeekday(s string) time.Weekday {
	if s == "sunday" {
		return time.Sunday
	}
	return time.Monday
}
