package model

import "fmt"

// AchievementID identifies an entry of the fixed achievement catalog.
type AchievementID string

const (
	AchievementFirstCompost     AchievementID = "first-compost"
	AchievementCompostCollector AchievementID = "compost-collector"
	AchievementWasteWarrior     AchievementID = "waste-warrior"
	AchievementGreenGuardian    AchievementID = "green-guardian"
	AchievementSevenDayStreak   AchievementID = "seven-day-streak"
	AchievementCommunityHero    AchievementID = "community-hero"
)

// AchievementDefinition describes one catalog entry.
type AchievementDefinition struct {
	ID          AchievementID `json:"id"`
	Name        string        `json:"name"`
	Icon        string        `json:"icon"`
	Description string        `json:"description"`
}

// Achievements contains the catalog keyed by id.
var Achievements = map[AchievementID]AchievementDefinition{
	AchievementFirstCompost: {
		ID:          AchievementFirstCompost,
		Name:        "First Compost",
		Icon:        "🌱",
		Description: "Log your first composting entry",
	},
	AchievementCompostCollector: {
		ID:          AchievementCompostCollector,
		Name:        "Compost Collector",
		Icon:        "🧺",
		Description: "Log 10 composting entries",
	},
	AchievementWasteWarrior: {
		ID:          AchievementWasteWarrior,
		Name:        "Waste Warrior",
		Icon:        "♻️",
		Description: "Compost 50 kg in total",
	},
	AchievementGreenGuardian: {
		ID:          AchievementGreenGuardian,
		Name:        "Green Guardian",
		Icon:        "🌳",
		Description: "Compost 100 kg in total",
	},
	AchievementSevenDayStreak: {
		ID:          AchievementSevenDayStreak,
		Name:        "Seven Day Streak",
		Icon:        "🔥",
		Description: "Log compost seven days in a row",
	},
	AchievementCommunityHero: {
		ID:          AchievementCommunityHero,
		Name:        "Community Hero",
		Icon:        "🏆",
		Description: "Reach the top 5 of the all-time leaderboard",
	},
}

// AchievementCatalog returns all definitions in evaluation order.
func AchievementCatalog() []AchievementDefinition {
	order := []AchievementID{
		AchievementFirstCompost,
		AchievementCompostCollector,
		AchievementWasteWarrior,
		AchievementGreenGuardian,
		AchievementSevenDayStreak,
		AchievementCommunityHero,
	}

	defs := make([]AchievementDefinition, 0, len(order))
	for _, id := range order {
		if def, ok := Achievements[id]; ok {
			defs = append(defs, def)
		}
	}
	return defs
}

// GetAchievement returns the definition for id.
func GetAchievement(id AchievementID) (AchievementDefinition, bool) {
	def, ok := Achievements[id]
	return def, ok
}

// Period is a leaderboard scoring bucket.
type Period string

const (
	PeriodAllTime Period = "all-time"
	PeriodMonthly Period = "monthly"
	PeriodWeekly  Period = "weekly"
)

// Periods returns every scoring period.
func Periods() []Period {
	return []Period{PeriodAllTime, PeriodMonthly, PeriodWeekly}
}

// ParsePeriod validates s. An empty string selects all-time.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case "":
		return PeriodAllTime, nil
	case PeriodAllTime, PeriodMonthly, PeriodWeekly:
		return p, nil
	default:
		return "", fmt.Errorf("unknown period %q", s)
	}
}
