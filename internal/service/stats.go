package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"compost-tracker/internal/model"
	"compost-tracker/internal/repository"
)

// StatsService recomputes and serves the per-user aggregates.
type StatsService struct {
	entries EntryStore
	stats   StatsStore
	loc     *time.Location
	now     func() time.Time
}

// NewStatsService creates a new StatsService instance.
// Calendar windows and streak days are evaluated in loc.
func NewStatsService(entries EntryStore, stats StatsStore, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		entries: entries,
		stats:   stats,
		loc:     loc,
		now:     time.Now,
	}
}

// Recompute replays every entry of the user and persists the result.
// The cached rank is kept as stored.
func (s *StatsService) Recompute(ctx context.Context, userID string) (*model.Stats, error) {
	entries, err := s.entries.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entries: %w", err)
	}

	stats := ComputeStats(userID, entries, s.now(), s.loc)
	if err := s.stats.Upsert(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to save stats: %w", err)
	}

	return stats, nil
}

// Get returns the cached stats, creating a zeroed record when none exists.
func (s *StatsService) Get(ctx context.Context, userID string) (*model.Stats, error) {
	stats, err := s.stats.Get(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, repository.ErrStatsNotFound) {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if err := s.stats.CreateEmpty(ctx, userID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.stats.Get(ctx, userID)
}

// ComputeStats derives a fresh Stats record from a user's full entry set.
// It is pure; now and loc fix the calendar month and week.
func ComputeStats(userID string, entries []*model.Entry, now time.Time, loc *time.Location) *model.Stats {
	if loc == nil {
		loc = time.UTC
	}

	stats := &model.Stats{
		UserID:       userID,
		TotalEntries: len(entries),
		LastUpdated:  now.UTC(),
	}

	today := dayOf(now, loc)
	monthStart := startOfMonth(today)
	monthEnd := monthStart.AddDate(0, 1, 0)
	weekStart := startOfWeek(today)
	weekEnd := weekStart.AddDate(0, 0, 7)

	for _, e := range entries {
		stats.TotalComposted += e.Weight
		stats.TotalCO2Avoided += e.CO2Avoided
		stats.WasteByCategory.Add(e.Category, e.Weight)

		day := dayOf(e.Date, loc)
		if within(day, monthStart, monthEnd) {
			stats.MonthlyComposted += e.Weight
		}
		if within(day, weekStart, weekEnd) {
			stats.WeeklyComposted += e.Weight
		}
	}

	stats.CurrentStreak = CalculateStreak(entries, loc)
	stats.FavoriteMethod = favoriteMethod(entries)

	return stats
}

// CalculateStreak counts consecutive calendar days with at least one entry,
// anchored at the most recent entry's day. Several entries on one day count
// once; a gap of two or more days ends the walk.
func CalculateStreak(entries []*model.Entry, loc *time.Location) int {
	if len(entries) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}

	days := make([]time.Time, len(entries))
	for i, e := range entries {
		days[i] = dayOf(e.Date, loc)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	anchor := days[0]
	streak := 1
	for _, d := range days[1:] {
		switch {
		case d.Equal(anchor):
			continue
		case d.Equal(anchor.AddDate(0, 0, -1)):
			streak++
			anchor = d
		default:
			return streak
		}
	}

	return streak
}

// favoriteMethod returns the most used method. Ties go to the
// lexically smallest so the result is stable.
func favoriteMethod(entries []*model.Entry) model.Method {
	counts := make(map[model.Method]int)
	for _, e := range entries {
		counts[e.Method]++
	}

	var best model.Method
	bestCount := 0
	for m, c := range counts {
		if c > bestCount || (c == bestCount && m < best) {
			best, bestCount = m, c
		}
	}
	return best
}

// dayOf returns the calendar date of t in loc as midnight UTC. Day
// arithmetic then never meets a DST transition, including zones whose
// clocks skip midnight itself.
func dayOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// startOfMonth and startOfWeek take a value from dayOf.
func startOfMonth(day time.Time) time.Time {
	y, m, _ := day.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// startOfWeek returns the most recent Sunday.
func startOfWeek(day time.Time) time.Time {
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// within reports start <= day < end.
func within(day, start, end time.Time) bool {
	return !day.Before(start) && day.Before(end)
}
