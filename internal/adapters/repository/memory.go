package repository

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// memEvent is one append-only log entry.
type memEvent struct {
	userID     int64
	typeCode   string
	minutes    int
	rating     int
	happenedAt time.Time
}

// Memory implements Store entirely in memory. It mirrors the SQL
// store's observable behavior and backs the test suite and local runs
// without a database.
type Memory struct {
	mu      sync.RWMutex
	users   map[int64]model.User
	events  []memEvent
	typeIDs map[string]int64
	now     func() time.Time
}

// Option applies a configuration option to the Memory store.
type Option func(*Memory)

// WithClock overrides the wall clock used for server-assigned
// timestamps, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemory creates an empty in-memory store with the reference types
// pre-seeded, matching the seeded types table.
func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		users: make(map[int64]model.User),
		typeIDs: map[string]int64{
			model.TypeJoke:  1,
			model.TypeStory: 2,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureUser upserts the user, keeping the original join time.
func (m *Memory) EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		u = model.User{ID: id, JoinedAt: m.now()}
	}
	u.Username = username
	u.FirstName = firstName
	m.users[id] = u
	return u, nil
}

// InsertEvent appends one event with a store-assigned timestamp.
func (m *Memory) InsertEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.typeIDs[typeCode]; !ok {
		return ErrUnknownEventType
	}
	m.events = append(m.events, memEvent{
		userID:     userID,
		typeCode:   typeCode,
		minutes:    minutes,
		rating:     rating,
		happenedAt: m.now(),
	})
	return nil
}

// PersonalStats groups the user's in-window events by type code,
// ordered by code ascending.
func (m *Memory) PersonalStats(ctx context.Context, userID int64, since *time.Time) ([]model.TypeStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type agg struct {
		count   int64
		minutes int64
		ratings int64
	}
	byCode := make(map[string]*agg)
	for _, ev := range m.events {
		if ev.userID != userID || !inWindow(ev, since) {
			continue
		}
		a, ok := byCode[ev.typeCode]
		if !ok {
			a = &agg{}
			byCode[ev.typeCode] = a
		}
		a.count++
		a.minutes += int64(ev.minutes)
		a.ratings += int64(ev.rating)
	}

	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var out []model.TypeStat
	for _, code := range codes {
		a := byCode[code]
		out = append(out, model.TypeStat{
			Code:      code,
			Count:     a.count,
			Minutes:   a.minutes,
			AvgRating: round2(float64(a.ratings) / float64(a.count)),
		})
	}
	return out, nil
}

// userAgg accumulates one user's in-window activity.
type userAgg struct {
	userID  int64
	count   int64
	minutes int64
	ratings int64
}

// GlobalTop computes the four leaderboards over the window.
func (m *Memory) GlobalTop(ctx context.Context, since *time.Time, minRecords, limit int) (model.Leaderboards, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var top model.Leaderboards

	for _, a := range m.aggregate(since, model.TypeJoke, limit) {
		top.JokeCount = append(top.JokeCount, model.CountEntry{DisplayName: m.displayName(a.userID), Count: a.count})
	}
	for _, a := range m.aggregate(since, model.TypeStory, limit) {
		top.StoryCount = append(top.StoryCount, model.CountEntry{DisplayName: m.displayName(a.userID), Count: a.count})
	}

	all := m.aggregateAll(since)
	byMinutes := make([]userAgg, len(all))
	copy(byMinutes, all)
	sort.SliceStable(byMinutes, func(i, j int) bool { return byMinutes[i].minutes > byMinutes[j].minutes })
	for _, a := range capAggs(byMinutes, limit) {
		top.Time = append(top.Time, model.TimeEntry{DisplayName: m.displayName(a.userID), Minutes: a.minutes})
	}

	var rated []userAgg
	for _, a := range all {
		if a.count >= int64(minRecords) {
			rated = append(rated, a)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		return avgOf(rated[i]) > avgOf(rated[j])
	})
	for _, a := range capAggs(rated, limit) {
		top.Rating = append(top.Rating, model.RatingEntry{
			DisplayName: m.displayName(a.userID),
			AvgRating:   round2(avgOf(a)),
			Count:       a.count,
		})
	}

	return top, nil
}

// Ranks computes the user's sequential position per weekly metric.
func (m *Memory) Ranks(ctx context.Context, userID int64, since time.Time) (model.Ranks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cutoff := since
	var ranks model.Ranks

	jokes := m.aggregate(&cutoff, model.TypeJoke, 0)
	ranks.Joke = rankOf(jokes, userID, func(a userAgg) int64 { return a.count })

	stories := m.aggregate(&cutoff, model.TypeStory, 0)
	ranks.Story = rankOf(stories, userID, func(a userAgg) int64 { return a.count })

	all := m.aggregateAll(&cutoff)
	sort.SliceStable(all, func(i, j int) bool { return all[i].minutes > all[j].minutes })
	ranks.Time = rankOf(all, userID, func(a userAgg) int64 { return a.minutes })

	return ranks, nil
}

// Ping always succeeds for the in-memory store.
func (m *Memory) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() {}

// aggregate groups in-window events of one type per user, ordered by
// count descending. A limit of 0 means no cap.
func (m *Memory) aggregate(since *time.Time, typeCode string, limit int) []userAgg {
	byUser := make(map[int64]*userAgg)
	var order []int64
	for _, ev := range m.events {
		if ev.typeCode != typeCode || !inWindow(ev, since) {
			continue
		}
		a, ok := byUser[ev.userID]
		if !ok {
			a = &userAgg{userID: ev.userID}
			byUser[ev.userID] = a
			order = append(order, ev.userID)
		}
		a.count++
		a.minutes += int64(ev.minutes)
		a.ratings += int64(ev.rating)
	}

	out := make([]userAgg, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return capAggs(out, limit)
}

// aggregateAll groups in-window events per user across every type, in
// first-activity order; callers sort by the metric they need.
func (m *Memory) aggregateAll(since *time.Time) []userAgg {
	byUser := make(map[int64]*userAgg)
	var order []int64
	for _, ev := range m.events {
		if !inWindow(ev, since) {
			continue
		}
		a, ok := byUser[ev.userID]
		if !ok {
			a = &userAgg{userID: ev.userID}
			byUser[ev.userID] = a
			order = append(order, ev.userID)
		}
		a.count++
		a.minutes += int64(ev.minutes)
		a.ratings += int64(ev.rating)
	}

	out := make([]userAgg, 0, len(order))
	for _, id := range order {
		out = append(out, *byUser[id])
	}
	return out
}

func (m *Memory) displayName(userID int64) string {
	return m.users[userID].DisplayName()
}

func inWindow(ev memEvent, since *time.Time) bool {
	return since == nil || !ev.happenedAt.Before(*since)
}

func rankOf(sorted []userAgg, userID int64, metric func(userAgg) int64) *int {
	for i, a := range sorted {
		if a.userID == userID && metric(a) > 0 {
			rank := i + 1
			return &rank
		}
	}
	return nil
}

func capAggs(aggs []userAgg, limit int) []userAgg {
	if limit > 0 && len(aggs) > limit {
		return aggs[:limit]
	}
	return aggs
}

func avgOf(a userAgg) float64 {
	return float64(a.ratings) / float64(a.count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
