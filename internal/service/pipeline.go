package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"compost-tracker/internal/model"
	"compost-tracker/internal/pkg/lock"
	"compost-tracker/internal/pkg/metrics"
)

// Stage names one step of the recompute pipeline.
type Stage string

const (
	StageLock         Stage = "lock"
	StageStats        Stage = "stats"
	StageAchievements Stage = "achievements"
	StageLeaderboard  Stage = "leaderboard"
)

// Policy decides what happens after a stage fails.
type Policy int

const (
	// PolicyBestEffort runs every stage regardless of earlier failures.
	PolicyBestEffort Policy = iota
	// PolicyHalt skips the remaining stages after the first failure.
	PolicyHalt
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "best_effort":
		return PolicyBestEffort, nil
	case "halt":
		return PolicyHalt, nil
	default:
		return PolicyBestEffort, fmt.Errorf("unknown pipeline policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyHalt {
		return "halt"
	}
	return "best_effort"
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    Stage
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Report collects the stage results of one pipeline run.
type Report struct {
	UserID   string
	Policy   Policy
	Results  []StageResult
	Stats    *model.Stats
	Unlocked []*model.Achievement
}

// OK reports whether every stage ran and succeeded.
func (r *Report) OK() bool {
	for _, res := range r.Results {
		if res.Err != nil || res.Skipped {
			return false
		}
	}
	return true
}

// Failed returns the results that carry an error.
func (r *Report) Failed() []StageResult {
	var failed []StageResult
	for _, res := range r.Results {
		if res.Err != nil {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err joins every stage error, or returns nil.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Failed() {
		errs = append(errs, fmt.Errorf("%s: %w", res.Stage, res.Err))
	}
	return errors.Join(errs...)
}

// Result returns the result recorded for stage.
func (r *Report) Result(stage Stage) (StageResult, bool) {
	for _, res := range r.Results {
		if res.Stage == stage {
			return res, true
		}
	}
	return StageResult{}, false
}

// Pipeline runs stats, achievements and leaderboard in that order for one
// user. Runs for the same user are serialized.
type Pipeline struct {
	stats        *StatsService
	achievements *AchievementService
	leaderboard  *LeaderboardService
	locks        *lock.UserLock
	lockTimeout  time.Duration
	policy       Policy
	metrics      *metrics.Metrics
}

// NewPipeline creates a new Pipeline. m may be nil.
func NewPipeline(
	stats *StatsService,
	achievements *AchievementService,
	leaderboard *LeaderboardService,
	locks *lock.UserLock,
	lockTimeout time.Duration,
	policy Policy,
	m *metrics.Metrics,
) *Pipeline {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &Pipeline{
		stats:        stats,
		achievements: achievements,
		leaderboard:  leaderboard,
		locks:        locks,
		lockTimeout:  lockTimeout,
		policy:       policy,
		metrics:      m,
	}
}

func userLockKey(userID string) string {
	return "user:" + userID
}

// RunAll runs every stage. Used after an entry is created.
func (p *Pipeline) RunAll(ctx context.Context, userID string) *Report {
	return p.Run(ctx, userID, StageStats, StageAchievements, StageLeaderboard)
}

// RunStatsOnly recomputes stats only. Used after an entry is deleted.
func (p *Pipeline) RunStatsOnly(ctx context.Context, userID string) *Report {
	return p.Run(ctx, userID, StageStats)
}

// Run executes the given stages in order under the user's lock. Errors
// never escape; they are recorded in the report and logged.
func (p *Pipeline) Run(ctx context.Context, userID string, stages ...Stage) *Report {
	report := &Report{UserID: userID, Policy: p.policy}

	start := time.Now()
	err := p.locks.WithLockContext(ctx, userLockKey(userID), p.lockTimeout, func() error {
		halted := false
		for _, stage := range stages {
			if halted {
				report.Results = append(report.Results, StageResult{Stage: stage, Skipped: true})
				continue
			}

			res := p.runStage(ctx, report, stage)
			report.Results = append(report.Results, res)

			if res.Err != nil && p.policy == PolicyHalt {
				halted = true
			}
		}
		return nil
	})
	if err != nil {
		res := StageResult{Stage: StageLock, Err: err, Duration: time.Since(start)}
		p.record(userID, res)
		report.Results = append(report.Results, res)
		for _, stage := range stages {
			report.Results = append(report.Results, StageResult{Stage: stage, Skipped: true})
		}
	}

	return report
}

func (p *Pipeline) runStage(ctx context.Context, report *Report, stage Stage) StageResult {
	start := time.Now()

	var err error
	switch stage {
	case StageStats:
		report.Stats, err = p.stats.Recompute(ctx, report.UserID)
	case StageAchievements:
		report.Unlocked, err = p.achievements.Evaluate(ctx, report.UserID)
	case StageLeaderboard:
		err = p.leaderboard.Update(ctx, report.UserID)
	default:
		err = fmt.Errorf("unknown stage %q", stage)
	}

	res := StageResult{Stage: stage, Err: err, Duration: time.Since(start)}
	p.record(report.UserID, res)
	return res
}

func (p *Pipeline) record(userID string, res StageResult) {
	p.metrics.ObserveStage(string(res.Stage), res.Duration, res.Err)

	if res.Err != nil {
		log.Error().
			Err(res.Err).
			Str("user_id", userID).
			Str("stage", string(res.Stage)).
			Str("policy", p.policy.String()).
			Msg("Pipeline stage failed")
		return
	}

	log.Debug().
		Str("user_id", userID).
		Str("stage", string(res.Stage)).
		Dur("duration", res.Duration).
		Msg("Pipeline stage completed")
}
