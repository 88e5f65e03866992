// Package memory implements in-memory repositories for development and testing.
// It mirrors the PostgreSQL repositories, including their sentinel errors.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"compost-tracker/internal/model"
	"compost-tracker/internal/repository"
)

type scoreKey struct {
	userID string
	period model.Period
}

type leaderboardRow struct {
	model.ScoreRecord
	rank int
}

// DB implements an in-memory database storage.
type DB struct {
	mu           sync.Mutex
	users        map[string]model.User
	entries      map[string]model.Entry
	stats        map[string]model.Stats
	achievements []model.Achievement
	leaderboard  map[scoreKey]leaderboardRow
	challenges   map[string]model.Challenge
	participants map[string][]model.Participant

	achievementIDCounter int64
}

// New creates a new in-memory database seeded with the same community
// challenges the SQL migration creates.
func New() *DB {
	db := &DB{
		users:        make(map[string]model.User),
		entries:      make(map[string]model.Entry),
		stats:        make(map[string]model.Stats),
		leaderboard:  make(map[scoreKey]leaderboardRow),
		challenges:   make(map[string]model.Challenge),
		participants: make(map[string][]model.Participant),
	}

	now := time.Now().UTC()
	for _, c := range []model.Challenge{
		{
			ID:          "6f1c2a8e-4b7d-4e0a-9c1b-2d3e4f5a6b01",
			Title:       "Kitchen Scraps Sprint",
			Description: "Compost 20 kg of food scraps together this season.",
			GoalKg:      20,
		},
		{
			ID:          "6f1c2a8e-4b7d-4e0a-9c1b-2d3e4f5a6b02",
			Title:       "Leaf Drop",
			Description: "Turn autumn leaves into leaf mould instead of bagging them.",
			GoalKg:      50,
		},
	} {
		c.StartDate = now
		c.EndDate = now.AddDate(0, 0, 90)
		c.Active = true
		db.challenges[c.ID] = c
	}

	return db
}

// Users returns the user repository view.
func (db *DB) Users() *UserRepo { return &UserRepo{db: db} }

// Entries returns the entry repository view.
func (db *DB) Entries() *EntryRepo { return &EntryRepo{db: db} }

// Stats returns the stats repository view.
func (db *DB) Stats() *StatsRepo { return &StatsRepo{db: db} }

// Achievements returns the achievement repository view.
func (db *DB) Achievements() *AchievementRepo { return &AchievementRepo{db: db} }

// Leaderboard returns the leaderboard repository view.
func (db *DB) Leaderboard() *LeaderboardRepo { return &LeaderboardRepo{db: db} }

// Challenges returns the challenge repository view.
func (db *DB) Challenges() *ChallengeRepo { return &ChallengeRepo{db: db} }

// --- UserRepository ---

// UserRepo stores display profiles.
type UserRepo struct{ db *DB }

// Upsert creates the profile or refreshes its non-empty display fields.
func (r *UserRepo) Upsert(ctx context.Context, id, username, avatarURL string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	now := time.Now().UTC()
	u, ok := r.db.users[id]
	if !ok {
		u = model.User{ID: id, CreatedAt: now}
	}
	if username != "" {
		u.Username = username
	}
	if avatarURL != "" {
		u.AvatarURL = avatarURL
	}
	u.UpdatedAt = now
	r.db.users[id] = u

	return &u, nil
}

// GetByID retrieves a profile.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	u, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return &u, nil
}

// --- EntryRepository ---

// EntryRepo stores composting entries.
type EntryRepo struct{ db *DB }

// Create inserts an entry.
func (r *EntryRepo) Create(ctx context.Context, e *model.Entry) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e.CreatedAt = time.Now().UTC()
	r.db.entries[e.ID] = *e
	return nil
}

// GetByID retrieves an entry.
func (r *EntryRepo) GetByID(ctx context.Context, id string) (*model.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	e, ok := r.db.entries[id]
	if !ok {
		return nil, repository.ErrEntryNotFound
	}
	return &e, nil
}

// ListByUser returns a user's entries, newest first.
func (r *EntryRepo) ListByUser(ctx context.Context, userID string) ([]*model.Entry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	entries := make([]*model.Entry, 0)
	for _, e := range r.db.entries {
		if e.UserID == userID {
			e := e
			entries = append(entries, &e)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.After(entries[j].Date)
		}
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})
	return entries, nil
}

// Delete removes an entry.
func (r *EntryRepo) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.entries[id]; !ok {
		return repository.ErrEntryNotFound
	}
	delete(r.db.entries, id)
	return nil
}

// --- StatsRepository ---

// StatsRepo stores cached aggregates.
type StatsRepo struct{ db *DB }

// Get retrieves a user's stats.
func (r *StatsRepo) Get(ctx context.Context, userID string) (*model.Stats, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.stats[userID]
	if !ok {
		return nil, repository.ErrStatsNotFound
	}
	return &s, nil
}

// CreateEmpty inserts a zeroed row unless one already exists.
func (r *StatsRepo) CreateEmpty(ctx context.Context, userID string, at time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.stats[userID]; !ok {
		r.db.stats[userID] = model.Stats{UserID: userID, LastUpdated: at}
	}
	return nil
}

// Upsert replaces every aggregate field but keeps the cached rank.
func (r *StatsRepo) Upsert(ctx context.Context, s *model.Stats) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing, ok := r.db.stats[s.UserID]; ok {
		s.Rank = existing.Rank
	} else {
		s.Rank = 0
	}
	r.db.stats[s.UserID] = *s
	return nil
}

// SetRanks writes the cached rank for users that have a stats row.
func (r *StatsRepo) SetRanks(ctx context.Context, ranks map[string]int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for userID, rank := range ranks {
		if s, ok := r.db.stats[userID]; ok {
			s.Rank = rank
			r.db.stats[userID] = s
		}
	}
	return nil
}

// --- AchievementRepository ---

// AchievementRepo stores unlock events.
type AchievementRepo struct{ db *DB }

// Insert records an unlock, reporting false if it already exists.
func (r *AchievementRepo) Insert(ctx context.Context, a *model.Achievement) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, existing := range r.db.achievements {
		if existing.UserID == a.UserID && existing.AchievementID == a.AchievementID {
			return false, nil
		}
	}

	r.db.achievementIDCounter++
	a.ID = r.db.achievementIDCounter
	r.db.achievements = append(r.db.achievements, *a)
	return true, nil
}

// ListByUser returns a user's achievements, newest first.
func (r *AchievementRepo) ListByUser(ctx context.Context, userID string) ([]*model.Achievement, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	list := make([]*model.Achievement, 0)
	for _, a := range r.db.achievements {
		if a.UserID == userID {
			a := a
			list = append(list, &a)
		}
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].UnlockedAt.Equal(list[j].UnlockedAt) {
			return list[i].UnlockedAt.After(list[j].UnlockedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

// --- LeaderboardRepository ---

// LeaderboardRepo stores per-period scores and ranks.
type LeaderboardRepo struct{ db *DB }

// UpsertScore stores a score, keeping any existing rank.
func (r *LeaderboardRepo) UpsertScore(ctx context.Context, rec model.ScoreRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	key := scoreKey{userID: rec.UserID, period: rec.Period}
	row := r.db.leaderboard[key]
	row.ScoreRecord = rec
	r.db.leaderboard[key] = row
	return nil
}

// ListScores returns every score record of a period.
func (r *LeaderboardRepo) ListScores(ctx context.Context, period model.Period) ([]model.ScoreRecord, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var records []model.ScoreRecord
	for key, row := range r.db.leaderboard {
		if key.period == period {
			records = append(records, row.ScoreRecord)
		}
	}
	return records, nil
}

// SaveRanks writes all ranks of a period atomically.
func (r *LeaderboardRepo) SaveRanks(ctx context.Context, period model.Period, ranked []model.RankedRecord) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for _, rec := range ranked {
		key := scoreKey{userID: rec.UserID, period: period}
		if row, ok := r.db.leaderboard[key]; ok {
			row.rank = rec.Rank
			r.db.leaderboard[key] = row
		}
	}
	return nil
}

// Top returns the ranked rows of a period, best first.
func (r *LeaderboardRepo) Top(ctx context.Context, period model.Period, limit int) ([]*model.LeaderboardEntry, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	entries := make([]*model.LeaderboardEntry, 0)
	for key, row := range r.db.leaderboard {
		if key.period != period || row.rank <= 0 {
			continue
		}
		u := r.db.users[key.userID]
		entries = append(entries, &model.LeaderboardEntry{
			UserID:      key.userID,
			Username:    u.Username,
			AvatarURL:   u.AvatarURL,
			Period:      period,
			Rank:        row.rank,
			Score:       row.Score,
			LastUpdated: row.LastUpdated,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Rank != entries[j].Rank {
			return entries[i].Rank < entries[j].Rank
		}
		return entries[i].UserID < entries[j].UserID
	})
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// --- ChallengeRepository ---

// ChallengeRepo stores community challenges.
type ChallengeRepo struct{ db *DB }

// Create inserts a challenge.
func (r *ChallengeRepo) Create(ctx context.Context, c *model.Challenge) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	stored := *c
	stored.Participants = nil
	r.db.challenges[c.ID] = stored
	return nil
}

// ListActive returns the open challenges at now, soonest ending first.
func (r *ChallengeRepo) ListActive(ctx context.Context, now time.Time) ([]*model.Challenge, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	list := make([]*model.Challenge, 0)
	for _, c := range r.db.challenges {
		if !c.IsOpen(now) {
			continue
		}
		c := c
		c.Participants = make([]model.Participant, 0, len(r.db.participants[c.ID]))
		for _, p := range r.db.participants[c.ID] {
			p.Username = r.db.users[p.UserID].Username
			c.Participants = append(c.Participants, p)
		}
		list = append(list, &c)
	}

	sort.Slice(list, func(i, j int) bool {
		if !list[i].EndDate.Equal(list[j].EndDate) {
			return list[i].EndDate.Before(list[j].EndDate)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

// GetByID retrieves a challenge without participants.
func (r *ChallengeRepo) GetByID(ctx context.Context, id string) (*model.Challenge, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	c, ok := r.db.challenges[id]
	if !ok {
		return nil, repository.ErrChallengeNotFound
	}
	return &c, nil
}

// AddParticipant joins a user, reporting false if already a member.
func (r *ChallengeRepo) AddParticipant(ctx context.Context, challengeID, userID string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.challenges[challengeID]; !ok {
		return false, repository.ErrChallengeNotFound
	}
	for _, p := range r.db.participants[challengeID] {
		if p.UserID == userID {
			return false, nil
		}
	}
	r.db.participants[challengeID] = append(r.db.participants[challengeID], model.Participant{UserID: userID, JoinedAt: at})
	return true, nil
}
