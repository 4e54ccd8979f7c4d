package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuiko81/anek-counter/internal/domain/model"
	"github.com/Yuiko81/anek-counter/pkg/metrics"
)

// Postgres implements Store on a bounded pgx connection pool. All
// aggregation happens in SQL; callers get typed rows back. Reference
// type ids are cached read-through: correctness never depends on the
// cache, a miss always falls back to a live lookup.
type Postgres struct {
	pool *pgxpool.Pool

	mu      sync.RWMutex
	typeIDs map[string]int64
}

// Connect parses the DSN, applies the pool ceiling and establishes the
// pool. Acquisition beyond the ceiling blocks callers rather than
// failing fast.
func Connect(ctx context.Context, dsn string, maxConns int32) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return &Postgres{
		pool:    pool,
		typeIDs: make(map[string]int64),
	}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Ping verifies connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	var one int
	if err := p.pool.QueryRow(ctx, "select 1").Scan(&one); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

// RunMigration executes a single SQL file.
func (p *Postgres) RunMigration(ctx context.Context, path string) error {
	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration: %w", err)
	}
	if _, err := p.pool.Exec(ctx, string(sqlBytes)); err != nil {
		return fmt.Errorf("exec migration: %w", err)
	}
	return nil
}

// EnsureUser upserts the user row, refreshing username and first name
// on every contact. The primary-key conflict clause makes concurrent
// first contacts collapse into a single row.
func (p *Postgres) EnsureUser(ctx context.Context, id int64, username, firstName string) (model.User, error) {
	defer p.observe("ensure_user", time.Now())

	var uname *string
	if username != "" {
		uname = &username
	}

	row := p.pool.QueryRow(ctx, `
INSERT INTO users (id, username, first_name)
VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, first_name = EXCLUDED.first_name
RETURNING id, username, first_name, joined_at`,
		id, uname, firstName,
	)

	var u model.User
	var stored *string
	if err := row.Scan(&u.ID, &stored, &u.FirstName, &u.JoinedAt); err != nil {
		metrics.RecordStoreError()
		return model.User{}, fmt.Errorf("upsert user: %w", err)
	}
	if stored != nil {
		u.Username = *stored
	}
	return u, nil
}

// typeID resolves a type code to its reference row id via the cache,
// falling back to a live lookup on miss.
func (p *Postgres) typeID(ctx context.Context, code string) (int64, error) {
	p.mu.RLock()
	id, ok := p.typeIDs[code]
	p.mu.RUnlock()
	if ok {
		return id, nil
	}

	err := p.pool.QueryRow(ctx, "SELECT id FROM types WHERE code = $1", code).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEventType, code)
	}
	if err != nil {
		return 0, fmt.Errorf("lookup type: %w", err)
	}

	p.mu.Lock()
	p.typeIDs[code] = id
	p.mu.Unlock()
	return id, nil
}

// InsertEvent appends one event row. The timestamp is assigned by the
// database; rows are never updated or deleted afterwards.
func (p *Postgres) InsertEvent(ctx context.Context, userID int64, typeCode string, minutes, rating int) error {
	defer p.observe("insert_event", time.Now())

	typeID, err := p.typeID(ctx, typeCode)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `
INSERT INTO events (type_id, user_id, spent_minutes, rating)
VALUES ($1, $2, $3, $4)`,
		typeID, userID, minutes, rating,
	)
	if err != nil {
		metrics.RecordStoreError()
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// PersonalStats groups the user's in-window events by type code.
func (p *Postgres) PersonalStats(ctx context.Context, userID int64, since *time.Time) ([]model.TypeStat, error) {
	defer p.observe("personal_stats", time.Now())

	cond := ""
	args := []any{userID}
	if since != nil {
		cond = " AND e.happened_at >= $2"
		args = append(args, *since)
	}

	sql := fmt.Sprintf(`
SELECT t.code,
       COUNT(*) AS total_events,
       COALESCE(SUM(e.spent_minutes), 0) AS total_minutes,
       ROUND(AVG(e.rating)::numeric, 2)::float8 AS avg_rating
FROM events e
JOIN types t ON t.id = e.type_id
WHERE e.user_id = $1%s
GROUP BY t.code
ORDER BY t.code`, cond)

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query personal stats: %w", err)
	}
	defer rows.Close()

	var out []model.TypeStat
	for rows.Next() {
		var s model.TypeStat
		if err := rows.Scan(&s.Code, &s.Count, &s.Minutes, &s.AvgRating); err != nil {
			return nil, fmt.Errorf("scan personal stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GlobalTop computes the four leaderboards. The four sub-queries run
// without a shared snapshot: each board is independently consistent
// with committed events at its own execution time.
func (p *Postgres) GlobalTop(ctx context.Context, since *time.Time, minRecords, limit int) (model.Leaderboards, error) {
	defer p.observe("global_top", time.Now())

	var top model.Leaderboards
	var err error

	if top.JokeCount, err = p.countBoard(ctx, model.TypeJoke, since, limit); err != nil {
		return model.Leaderboards{}, err
	}
	if top.StoryCount, err = p.countBoard(ctx, model.TypeStory, since, limit); err != nil {
		return model.Leaderboards{}, err
	}
	if top.Time, err = p.timeBoard(ctx, since, limit); err != nil {
		return model.Leaderboards{}, err
	}
	if top.Rating, err = p.ratingBoard(ctx, since, minRecords, limit); err != nil {
		return model.Leaderboards{}, err
	}
	return top, nil
}

func (p *Postgres) countBoard(ctx context.Context, code string, since *time.Time, limit int) ([]model.CountEntry, error) {
	cond := ""
	args := []any{code}
	if since != nil {
		cond = " AND e.happened_at >= $2"
		args = append(args, *since)
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
SELECT COALESCE(u.username, u.first_name) AS display_name,
       COUNT(*) AS total
FROM events e
JOIN users u ON u.id = e.user_id
JOIN types t ON t.id = e.type_id
WHERE t.code = $1%s
GROUP BY u.id
ORDER BY total DESC
LIMIT $%d`, cond, len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query %s count board: %w", code, err)
	}
	defer rows.Close()

	var out []model.CountEntry
	for rows.Next() {
		var e model.CountEntry
		if err := rows.Scan(&e.DisplayName, &e.Count); err != nil {
			return nil, fmt.Errorf("scan count board: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) timeBoard(ctx context.Context, since *time.Time, limit int) ([]model.TimeEntry, error) {
	cond := ""
	var args []any
	if since != nil {
		cond = " AND e.happened_at >= $1"
		args = append(args, *since)
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
SELECT COALESCE(u.username, u.first_name) AS display_name,
       SUM(e.spent_minutes) AS total_minutes
FROM events e
JOIN users u ON u.id = e.user_id
WHERE TRUE%s
GROUP BY u.id
ORDER BY total_minutes DESC
LIMIT $%d`, cond, len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query time board: %w", err)
	}
	defer rows.Close()

	var out []model.TimeEntry
	for rows.Next() {
		var e model.TimeEntry
		if err := rows.Scan(&e.DisplayName, &e.Minutes); err != nil {
			return nil, fmt.Errorf("scan time board: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) ratingBoard(ctx context.Context, since *time.Time, minRecords, limit int) ([]model.RatingEntry, error) {
	cond := ""
	args := []any{minRecords}
	if since != nil {
		cond = " AND e.happened_at >= $2"
		args = append(args, *since)
	}
	args = append(args, limit)

	sql := fmt.Sprintf(`
SELECT COALESCE(u.username, u.first_name) AS display_name,
       ROUND(AVG(e.rating)::numeric, 2)::float8 AS avg_rating,
       COUNT(*) AS cnt
FROM events e
JOIN users u ON u.id = e.user_id
WHERE TRUE%s
GROUP BY u.id
HAVING COUNT(*) >= $1
ORDER BY avg_rating DESC
LIMIT $%d`, cond, len(args))

	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query rating board: %w", err)
	}
	defer rows.Close()

	var out []model.RatingEntry
	for rows.Next() {
		var e model.RatingEntry
		if err := rows.Scan(&e.DisplayName, &e.AvgRating, &e.Count); err != nil {
			return nil, fmt.Errorf("scan rating board: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Ranks computes sequential row-number positions per metric.
func (p *Postgres) Ranks(ctx context.Context, userID int64, since time.Time) (model.Ranks, error) {
	defer p.observe("ranks", time.Now())

	var ranks model.Ranks
	var err error

	if ranks.Joke, err = p.countRank(ctx, model.TypeJoke, userID, since); err != nil {
		return model.Ranks{}, err
	}
	if ranks.Story, err = p.countRank(ctx, model.TypeStory, userID, since); err != nil {
		return model.Ranks{}, err
	}
	if ranks.Time, err = p.timeRank(ctx, userID, since); err != nil {
		return model.Ranks{}, err
	}
	return ranks, nil
}

func (p *Postgres) countRank(ctx context.Context, code string, userID int64, since time.Time) (*int, error) {
	row := p.pool.QueryRow(ctx, `
SELECT rank
FROM (
    SELECT user_id,
           ROW_NUMBER() OVER (ORDER BY COUNT(*) DESC) AS rank
    FROM events e
    JOIN types t ON t.id = e.type_id
    WHERE t.code = $1 AND e.happened_at >= $2
    GROUP BY user_id
) ranked
WHERE user_id = $3`,
		code, since, userID,
	)
	return scanRank(row, code)
}

func (p *Postgres) timeRank(ctx context.Context, userID int64, since time.Time) (*int, error) {
	row := p.pool.QueryRow(ctx, `
SELECT rank
FROM (
    SELECT user_id,
           ROW_NUMBER() OVER (ORDER BY SUM(spent_minutes) DESC) AS rank
    FROM events
    WHERE happened_at >= $1
    GROUP BY user_id
) ranked
WHERE user_id = $2`,
		since, userID,
	)
	return scanRank(row, "time")
}

func scanRank(row pgx.Row, metric string) (*int, error) {
	var rank int
	err := row.Scan(&rank)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		metrics.RecordStoreError()
		return nil, fmt.Errorf("query %s rank: %w", metric, err)
	}
	return &rank, nil
}

func (p *Postgres) observe(query string, start time.Time) {
	metrics.RecordStoreQueryLatency(query, float64(time.Since(start).Milliseconds()))
}
