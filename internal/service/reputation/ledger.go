// Package reputation maintains the bounded reliability score kept per SME.
// Scores live in [0,150], start at 100, and move by fixed deltas on
// lifecycle events. This package is the only writer of the score.
package reputation

import (
	"context"
	"strconv"
	"time"

	"github.com/aimd54/sme-dispatch/internal/cache"
	prommetrics "github.com/aimd54/sme-dispatch/internal/metrics"
	"github.com/aimd54/sme-dispatch/internal/models"
	"github.com/aimd54/sme-dispatch/internal/repository"
	"github.com/aimd54/sme-dispatch/pkg/logger"
)

// Score deltas applied on lifecycle events. The feedback and SLA deltas are
// reserved for coordinator-side flows that are not yet triggered by the
// lifecycle itself.
const (
	DeltaPenalizedRejection   = -5
	DeltaNoResponseSLA        = -10
	DeltaAbandonedAfterAccept = -15
	DeltaClientComplaint      = -20
	DeltaCompleted            = +3
	DeltaCompletedWithinSLA   = +5
	DeltaPositiveFeedback     = +10
)

// Score bounds. A missing profile reads as DefaultScore without one ever
// being persisted.
const (
	ScoreMin     = 0
	ScoreMax     = 150
	DefaultScore = 100
)

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
}

// Ledger applies score deltas with clamping and serves score reads.
type Ledger struct {
	userRepo UserRepository
	cache    cache.Cache
	cacheTTL time.Duration
	log      *logger.Logger
}

// NewLedger creates a new reputation ledger with concrete repository types.
func NewLedger(userRepo *repository.UserRepository, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Ledger {
	return &Ledger{
		userRepo: userRepo,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// NewLedgerWithInterfaces creates a new ledger with interface dependencies (useful for testing).
func NewLedgerWithInterfaces(userRepo UserRepository, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Ledger {
	return &Ledger{
		userRepo: userRepo,
		cache:    c,
		cacheTTL: cacheTTL,
		log:      log,
	}
}

// GetScore returns the SME's current score, or DefaultScore when the SME has
// no profile record or cannot be read.
func (l *Ledger) GetScore(ctx context.Context, smeUserID uint) int {
	if l.cache != nil {
		if cached, err := l.cache.Get(ctx, scoreKey(smeUserID)); err == nil && cached != "" {
			if score, err := strconv.Atoi(cached); err == nil {
				return score
			}
		}
	}

	user, err := l.userRepo.GetByID(smeUserID)
	if err != nil {
		l.log.Warn().Err(err).Uint("sme_user_id", smeUserID).Msg("Failed to load SME for score read, using default")
		return DefaultScore
	}

	score := scoreOrDefault(user)

	if l.cache != nil {
		if err := l.cache.Set(ctx, scoreKey(smeUserID), score, l.cacheTTL); err != nil {
			l.log.Warn().Err(err).Uint("sme_user_id", smeUserID).Msg("Failed to cache SME score")
		}
	}

	return score
}

// AdjustScore applies a delta to the SME's score, clamped to [ScoreMin,
// ScoreMax], and logs the reason. Unknown SMEs are a logged no-op.
func (l *Ledger) AdjustScore(ctx context.Context, smeUserID uint, delta int, reason string) {
	user, err := l.userRepo.GetByID(smeUserID)
	if err != nil {
		l.log.Warn().
			Err(err).
			Uint("sme_user_id", smeUserID).
			Int("delta", delta).
			Str("reason", reason).
			Msg("Score adjustment skipped, SME not found")
		return
	}

	oldScore := scoreOrDefault(user)
	newScore := clamp(oldScore+delta, ScoreMin, ScoreMax)
	user.Score = &newScore

	if err := l.userRepo.Update(user); err != nil {
		l.log.Error().
			Err(err).
			Uint("sme_user_id", smeUserID).
			Int("delta", delta).
			Msg("Failed to persist score adjustment")
		return
	}

	if l.cache != nil {
		if err := l.cache.Set(ctx, scoreKey(smeUserID), newScore, l.cacheTTL); err != nil {
			l.log.Warn().Err(err).Uint("sme_user_id", smeUserID).Msg("Failed to refresh cached SME score")
		}
	}

	prommetrics.RecordScoreAdjustment(delta)

	l.log.Info().
		Uint("sme_user_id", smeUserID).
		Int("old_score", oldScore).
		Int("new_score", newScore).
		Int("delta", delta).
		Str("reason", reason).
		Msg("SME score adjusted")
}

// scoreOrDefault reads a user's score, applying the default at the read
// boundary so the default is never persisted by a read.
func scoreOrDefault(user *models.User) int {
	if user.Score == nil {
		return DefaultScore
	}
	return *user.Score
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func scoreKey(smeUserID uint) string {
	return "sme:score:" + strconv.FormatUint(uint64(smeUserID), 10)
}
