// Package model contains domain models passed between layers.
package model

import "time"

// Event type codes stored in the reference table. The table is seeded
// out-of-band; these constants exist for callers that need the full
// fixed enumeration, e.g. for zero-backfilling stats views.
const (
	TypeJoke  = "joke"
	TypeStory = "story"
)

// KnownTypes returns every reference type code in ascending order.
func KnownTypes() []string {
	return []string{TypeJoke, TypeStory}
}

// IsKnownType reports whether code belongs to the fixed enumeration.
func IsKnownType(code string) bool {
	return code == TypeJoke || code == TypeStory
}

// User is a chat member identity, keyed by the platform-assigned id.
// Username is empty when the platform reports no handle.
type User struct {
	ID        int64
	Username  string
	FirstName string
	JoinedAt  time.Time
}

// DisplayName returns the handle if present, else the first name.
// An empty result means the caller should render its "no name" marker.
func (u User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// TypeStat is one grouped row of a personal summary: the user's event
// count, total minutes and average rating (rounded to 2 decimals) for
// a single type code within a window.
type TypeStat struct {
	Code      string
	Count     int64
	Minutes   int64
	AvgRating float64
}

// CountEntry is a leaderboard row ranked by event count.
type CountEntry struct {
	DisplayName string
	Count       int64
}

// TimeEntry is a leaderboard row ranked by total minutes.
type TimeEntry struct {
	DisplayName string
	Minutes     int64
}

// RatingEntry is a leaderboard row ranked by average rating; Count is
// retained as a display/tiebreak field.
type RatingEntry struct {
	DisplayName string
	AvgRating   float64
	Count       int64
}

// Leaderboards bundles the four top-N boards returned by a global top query.
type Leaderboards struct {
	JokeCount  []CountEntry
	StoryCount []CountEntry
	Time       []TimeEntry
	Rating     []RatingEntry
}

// Ranks holds a single user's position per weekly metric. A nil field
// means the user had no in-window activity for that metric.
type Ranks struct {
	Joke  *int
	Story *int
	Time  *int
}
