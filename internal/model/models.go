// Package model defines the data models for the compost tracker.
package model

import "time"

// User is the display profile of an authenticated user.
// Profiles are upserted from bearer token claims.
type User struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	AvatarURL string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Entry is one logged waste-disposal event. Entries are immutable once
// created; the only mutation is deletion.
type Entry struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"userId" db:"user_id"`
	WasteType  WasteType `json:"wasteType" db:"waste_type"`
	Category   Category  `json:"category" db:"category"`
	Weight     float64   `json:"weight" db:"weight"`
	Method     Method    `json:"method" db:"method"`
	Date       time.Time `json:"date" db:"date"`
	Notes      string    `json:"notes" db:"notes"`
	CO2Avoided float64   `json:"co2Avoided" db:"co2_avoided"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// CategoryTotals holds the weight subtotal per category.
type CategoryTotals struct {
	Food  float64 `json:"food"`
	Yard  float64 `json:"yard"`
	Paper float64 `json:"paper"`
}

// Add accumulates weight into the bucket for c. Unknown categories are ignored.
func (t *CategoryTotals) Add(c Category, weight float64) {
	switch c {
	case CategoryFood:
		t.Food += weight
	case CategoryYard:
		t.Yard += weight
	case CategoryPaper:
		t.Paper += weight
	}
}

// Sum returns the total across all categories.
func (t CategoryTotals) Sum() float64 {
	return t.Food + t.Yard + t.Paper
}

// Stats is the cached per-user aggregate. It is always derivable by
// replaying the user's entries; Rank is written by the leaderboard stage.
type Stats struct {
	UserID           string         `json:"userId" db:"user_id"`
	TotalComposted   float64        `json:"totalComposted" db:"total_composted"`
	MonthlyComposted float64        `json:"monthlyComposted" db:"monthly_composted"`
	WeeklyComposted  float64        `json:"weeklyComposted" db:"weekly_composted"`
	CurrentStreak    int            `json:"currentStreak" db:"current_streak"`
	TotalEntries     int            `json:"totalEntries" db:"total_entries"`
	WasteByCategory  CategoryTotals `json:"wasteByCategory"`
	FavoriteMethod   Method         `json:"favoriteMethod" db:"favorite_method"`
	Rank             int            `json:"rank" db:"rank"`
	TotalCO2Avoided  float64        `json:"totalCo2Avoided" db:"total_co2_avoided"`
	LastUpdated      time.Time      `json:"lastUpdated" db:"last_updated"`
}

// Achievement is one unlock event. At most one row exists per
// (UserID, AchievementID) and rows are never removed.
type Achievement struct {
	ID            int64         `json:"id" db:"id"`
	UserID        string        `json:"userId" db:"user_id"`
	AchievementID AchievementID `json:"achievementId" db:"achievement_id"`
	Name          string        `json:"name" db:"name"`
	Icon          string        `json:"icon" db:"icon"`
	UnlockedAt    time.Time     `json:"unlockedAt" db:"unlocked_at"`
}

// ScoreRecord is a user's composite score within a period, before ranking.
type ScoreRecord struct {
	UserID      string    `db:"user_id"`
	Period      Period    `db:"period"`
	Score       float64   `db:"score"`
	LastUpdated time.Time `db:"last_updated"`
}

// RankedRecord is a ScoreRecord with its dense rank assigned.
type RankedRecord struct {
	ScoreRecord
	Rank int `db:"rank"`
}

// LeaderboardEntry is one public leaderboard row with display fields.
type LeaderboardEntry struct {
	UserID      string    `json:"userId" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	AvatarURL   string    `json:"avatarUrl,omitempty" db:"avatar_url"`
	Period      Period    `json:"period" db:"period"`
	Rank        int       `json:"rank" db:"rank"`
	Score       float64   `json:"score" db:"score"`
	LastUpdated time.Time `json:"lastUpdated" db:"last_updated"`
}

// Participant is a challenge member with display fields.
type Participant struct {
	UserID   string    `json:"userId" db:"user_id"`
	Username string    `json:"username" db:"username"`
	JoinedAt time.Time `json:"joinedAt" db:"joined_at"`
}

// Challenge is a community composting challenge.
type Challenge struct {
	ID           string        `json:"id" db:"id"`
	Title        string        `json:"title" db:"title"`
	Description  string        `json:"description" db:"description"`
	GoalKg       float64       `json:"goalKg" db:"goal_kg"`
	StartDate    time.Time     `json:"startDate" db:"start_date"`
	EndDate      time.Time     `json:"endDate" db:"end_date"`
	Active       bool          `json:"active" db:"active"`
	Participants []Participant `json:"participants"`
}

// IsOpen reports whether the challenge accepts participants at t.
func (c *Challenge) IsOpen(t time.Time) bool {
	return c.Active && !t.After(c.EndDate)
}
