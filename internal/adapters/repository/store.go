// Package repository defines the statistics store interface and errors.
package repository

import (
	"context"
	"time"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
)

// Store provides read/write access to users and the append-only event log.
// A nil since means "no lower bound" (the all-time window).
type Store interface {
	// EnsureUser upserts a user identity keyed by the platform id and
	// returns the stored row. Concurrent first contacts for the same id
	// resolve via the store's conflict handling, never to duplicates.
	EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error)

	// InsertEvent appends one immutable event row with a server-assigned
	// timestamp. The type code is resolved against the live reference
	// table; unknown codes fail with ErrUnknownEventType.
	InsertEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error

	// PersonalStats groups one user's events at or after the cutoff by
	// type code, ordered by code ascending. Types with no events are
	// absent from the result.
	PersonalStats(ctx context.Context, userID int64, since *time.Time) ([]model.TypeStat, error)

	// GlobalTop computes the four leaderboards over the window, each
	// capped at limit entries. The rating board only includes users with
	// at least minRecords in-window events.
	GlobalTop(ctx context.Context, since *time.Time, minRecords, limit int) (model.Leaderboards, error)

	// Ranks computes the user's sequential rank (1 = best) per metric
	// over all users with activity at or after the cutoff. Metrics the
	// user has no in-window activity in come back nil.
	Ranks(ctx context.Context, userID int64, since time.Time) (model.Ranks, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the store's resources.
	Close()
}
