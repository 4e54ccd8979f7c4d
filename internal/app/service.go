// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Yuiko81/anek-counter/internal/adapters/repository"
	"github.com/Yuiko81/anek-counter/internal/domain/model"
	"github.com/Yuiko81/anek-counter/internal/domain/period"
	"github.com/Yuiko81/anek-counter/internal/domain/session"
	"github.com/Yuiko81/anek-counter/pkg/logger"
	"github.com/Yuiko81/anek-counter/pkg/metrics"
)

// weeklyWindow is the fixed lookback used by the post-insert summary
// and by rank queries, regardless of any caller-supplied period.
const weeklyWindow = 7 * 24 * time.Hour

// defaultLeaderboardSize caps leaderboards when no option overrides it.
const defaultLeaderboardSize = 10

// Service implements the statistics core: user identity, the event
// recorder, the personal aggregator and the global ranker.
type Service struct {
	store    repository.Store
	sessions *session.Store

	leaderboardSize int
	now             func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLeaderboardSize caps every leaderboard returned by GlobalTop.
func WithLeaderboardSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.leaderboardSize = size
		}
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service on top of the given store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:           store,
		sessions:        session.NewStore(),
		leaderboardSize: defaultLeaderboardSize,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s
}

// EnsureUser resolves or creates the user identity for a platform id,
// refreshing the handle and name on every contact.
func (s *Service) EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error) {
	u, err := s.store.EnsureUser(ctx, id, username, firstName)
	if err != nil {
		return model.User{}, fmt.Errorf("ensure user: %w", err)
	}
	metrics.RecordUserUpserted()
	return u, nil
}

// RecordEvent validates and appends one logged event. Range validation
// happens here; the type code is additionally re-verified against the
// live reference table by the store.
func (s *Service) RecordEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error {
	if errs := model.ValidateEvent(typeCode, minutes, rating); len(errs) > 0 {
		metrics.RecordEventRejected()
		return errs
	}
	if err := s.store.InsertEvent(ctx, userID, typeCode, minutes, rating); err != nil {
		metrics.RecordEventRejected()
		return err
	}
	metrics.RecordEventRecorded(typeCode)
	s.logger.Info(ctx, "event recorded",
		logger.Int64("user_id", userID),
		logger.String("type", typeCode),
		logger.Int("minutes", minutes),
		logger.Int("rating", rating),
	)
	return nil
}

// PersonalStats aggregates the user's events over a symbolic period.
// Types with zero events are absent; presentation layers backfill.
func (s *Service) PersonalStats(ctx context.Context, userID int64, periodToken string) ([]model.TypeStat, error) {
	p, err := period.Parse(periodToken)
	if err != nil {
		return nil, err
	}
	return s.store.PersonalStats(ctx, userID, cutoff(p, s.now()))
}

// WeeklyPersonalSummary is PersonalStats over a fixed 7-day window.
func (s *Service) WeeklyPersonalSummary(ctx context.Context, userID int64) ([]model.TypeStat, error) {
	since := s.now().Add(-weeklyWindow)
	return s.store.PersonalStats(ctx, userID, &since)
}

// GlobalTop computes the four leaderboards over a symbolic period.
// minRecords below 1 is clamped to 1.
func (s *Service) GlobalTop(ctx context.Context, periodToken string, minRecords int) (model.Leaderboards, error) {
	p, err := period.Parse(periodToken)
	if err != nil {
		return model.Leaderboards{}, err
	}
	if minRecords < 1 {
		minRecords = 1
	}
	return s.store.GlobalTop(ctx, cutoff(p, s.now()), minRecords, s.leaderboardSize)
}

// WeeklyRank returns the user's position per metric over the last 7
// days. The window is deliberately fixed and independent of the period
// parameter GlobalTop honors.
func (s *Service) WeeklyRank(ctx context.Context, userID int64) (model.Ranks, error) {
	return s.store.Ranks(ctx, userID, s.now().Add(-weeklyWindow))
}

// Ping reports store connectivity.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// cutoff converts a parsed period into the store's optional lower bound.
func cutoff(p period.Period, now time.Time) *time.Time {
	since, ok := p.Since(now)
	if !ok {
		return nil
	}
	return &since
}
