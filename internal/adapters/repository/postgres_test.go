package repository_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Yuiko81/anek-counter/internal/adapters/repository"
	"github.com/Yuiko81/anek-counter/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// connectTestStore skips unless ANEK_TEST_DATABASE_URL points at a
// disposable database. The schema is applied and wiped per test.
func connectTestStore(t *testing.T) *repository.Postgres {
	t.Helper()

	dsn := os.Getenv("ANEK_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("ANEK_TEST_DATABASE_URL not set; skipping Postgres integration test")
	}

	ctx := context.Background()
	store, err := repository.Connect(ctx, dsn, 2)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(store.Close)

	if err := store.RunMigration(ctx, "../../../migrations/0001_init.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	truncateAll(t, dsn)
	return store
}

func truncateAll(t *testing.T, dsn string) {
	t.Helper()
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("truncate pool: %v", err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, "TRUNCATE events, users RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}

func TestPostgresRoundTrip(t *testing.T) {
	store := connectTestStore(t)
	ctx := context.Background()

	Convey("Given a migrated database", t, func() {
		Convey("When a user logs events and reads everything back", func() {
			u, err := store.EnsureUser(ctx, 100, "alice", "Alice")
			So(err, ShouldBeNil)
			So(u.ID, ShouldEqual, 100)

			again, err := store.EnsureUser(ctx, 100, "alice_2024", "Alice")
			So(err, ShouldBeNil)
			So(again.Username, ShouldEqual, "alice_2024")
			So(again.JoinedAt.Equal(u.JoinedAt), ShouldBeTrue)

			So(store.InsertEvent(ctx, 100, model.TypeJoke, 10, 5), ShouldBeNil)
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 6, 4), ShouldBeNil)
			So(store.InsertEvent(ctx, 100, model.TypeStory, 30, 3), ShouldBeNil)

			stats, err := store.PersonalStats(ctx, 100, nil)
			So(err, ShouldBeNil)
			So(stats, ShouldHaveLength, 2)
			So(stats[0].Code, ShouldEqual, model.TypeJoke)
			So(stats[0].Count, ShouldEqual, 2)
			So(stats[0].Minutes, ShouldEqual, 16)
			So(stats[0].AvgRating, ShouldEqual, 4.5)
			So(stats[1].Code, ShouldEqual, model.TypeStory)

			since := time.Now().UTC().Add(-7 * 24 * time.Hour)
			top, err := store.GlobalTop(ctx, &since, 1, 10)
			So(err, ShouldBeNil)
			So(top.JokeCount, ShouldHaveLength, 1)
			So(top.JokeCount[0].DisplayName, ShouldEqual, "alice_2024")

			ranks, err := store.Ranks(ctx, 100, since)
			So(err, ShouldBeNil)
			So(ranks.Joke, ShouldNotBeNil)
			So(*ranks.Joke, ShouldEqual, 1)
		})

		Convey("When the type code is outside the reference table", func() {
			_, err := store.EnsureUser(ctx, 101, "bob", "Bob")
			So(err, ShouldBeNil)

			err = store.InsertEvent(ctx, 101, "poem", 10, 3)
			So(err, ShouldNotBeNil)
		})

		Convey("When a user without events asks for stats and ranks", func() {
			_, err := store.EnsureUser(ctx, 102, "", "Carol")
			So(err, ShouldBeNil)

			stats, err := store.PersonalStats(ctx, 102, nil)
			So(err, ShouldBeNil)
			So(stats, ShouldBeEmpty)

			ranks, err := store.Ranks(ctx, 102, time.Now().UTC().Add(-7*24*time.Hour))
			So(err, ShouldBeNil)
			So(ranks.Joke, ShouldBeNil)
			So(ranks.Time, ShouldBeNil)
		})
	})
}
