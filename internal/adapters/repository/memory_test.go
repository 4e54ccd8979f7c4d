package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Yuiko81/anek-counter/internal/adapters/repository"
	"github.com/Yuiko81/anek-counter/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryEnsureUser(t *testing.T) {
	Convey("Given an in-memory store with a fixed clock", t, func() {
		ctx := context.Background()
		now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemory(repository.WithClock(func() time.Time { return now }))

		Convey("When the same platform id is ensured twice", func() {
			first, err := store.EnsureUser(ctx, 100, "alice", "Alice")
			So(err, ShouldBeNil)

			now = now.Add(time.Hour)
			second, err := store.EnsureUser(ctx, 100, "alice", "Alice")
			So(err, ShouldBeNil)

			Convey("Then exactly one identity exists, unchanged", func() {
				So(second.ID, ShouldEqual, first.ID)
				So(second.Username, ShouldEqual, "alice")
				So(second.JoinedAt.Equal(first.JoinedAt), ShouldBeTrue)
			})
		})

		Convey("When the handle changes between contacts", func() {
			_, err := store.EnsureUser(ctx, 100, "alice", "Alice")
			So(err, ShouldBeNil)

			u, err := store.EnsureUser(ctx, 100, "alice_2024", "Alice")
			So(err, ShouldBeNil)
			So(u.Username, ShouldEqual, "alice_2024")
		})
	})
}

func TestMemoryInsertEvent(t *testing.T) {
	Convey("Given an in-memory store", t, func() {
		ctx := context.Background()
		store := repository.NewMemory()
		_, _ = store.EnsureUser(ctx, 100, "alice", "Alice")

		Convey("When inserting an event with a known type", func() {
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 10, 5), ShouldBeNil)
		})

		Convey("When inserting an event with an unknown type", func() {
			err := store.InsertEvent(ctx, 100, "poem", 10, 5)
			So(errors.Is(err, repository.ErrUnknownEventType), ShouldBeTrue)
		})
	})
}

func TestMemoryPersonalStats(t *testing.T) {
	Convey("Given a store with a controllable clock", t, func() {
		ctx := context.Background()
		now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemory(repository.WithClock(func() time.Time { return now }))
		_, _ = store.EnsureUser(ctx, 100, "alice", "Alice")

		Convey("When one event is recorded and stats are read back", func() {
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 10, 4), ShouldBeNil)

			stats, err := store.PersonalStats(ctx, 100, nil)
			So(err, ShouldBeNil)
			So(stats, ShouldHaveLength, 1)
			So(stats[0].Code, ShouldEqual, model.TypeJoke)
			So(stats[0].Count, ShouldEqual, 1)
			So(stats[0].Minutes, ShouldEqual, 10)
			So(stats[0].AvgRating, ShouldEqual, 4.0)
		})

		Convey("When both types have events", func() {
			So(store.InsertEvent(ctx, 100, model.TypeStory, 30, 3), ShouldBeNil)
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 5, 4), ShouldBeNil)
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 7, 5), ShouldBeNil)

			stats, err := store.PersonalStats(ctx, 100, nil)
			So(err, ShouldBeNil)

			Convey("Then groups come back ordered by type code", func() {
				So(stats, ShouldHaveLength, 2)
				So(stats[0].Code, ShouldEqual, model.TypeJoke)
				So(stats[1].Code, ShouldEqual, model.TypeStory)
			})

			Convey("And totals and averages are aggregated per type", func() {
				So(stats[0].Count, ShouldEqual, 2)
				So(stats[0].Minutes, ShouldEqual, 12)
				So(stats[0].AvgRating, ShouldEqual, 4.5)
				So(stats[1].Minutes, ShouldEqual, 30)
			})
		})

		Convey("When the average does not divide evenly", func() {
			for _, rating := range []int{4, 5, 5} {
				So(store.InsertEvent(ctx, 100, model.TypeJoke, 1, rating), ShouldBeNil)
			}
			stats, err := store.PersonalStats(ctx, 100, nil)
			So(err, ShouldBeNil)
			So(stats[0].AvgRating, ShouldEqual, 4.67)
		})

		Convey("When events fall outside the window", func() {
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 10, 4), ShouldBeNil)

			now = now.Add(48 * time.Hour)
			So(store.InsertEvent(ctx, 100, model.TypeJoke, 20, 5), ShouldBeNil)

			since := now.Add(-24 * time.Hour)
			stats, err := store.PersonalStats(ctx, 100, &since)
			So(err, ShouldBeNil)
			So(stats, ShouldHaveLength, 1)
			So(stats[0].Count, ShouldEqual, 1)
			So(stats[0].Minutes, ShouldEqual, 20)
		})

		Convey("When the user has no events at all", func() {
			stats, err := store.PersonalStats(ctx, 100, nil)
			So(err, ShouldBeNil)
			So(stats, ShouldBeEmpty)
		})
	})
}

func TestMemoryGlobalTop(t *testing.T) {
	Convey("Given two users with day-window activity", t, func() {
		ctx := context.Background()
		now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemory(repository.WithClock(func() time.Time { return now }))

		_, _ = store.EnsureUser(ctx, 1, "a", "A")
		_, _ = store.EnsureUser(ctx, 2, "b", "B")

		// A: joke, 10 minutes, rating 5. B: joke, 20 minutes, rating 3.
		So(store.InsertEvent(ctx, 1, model.TypeJoke, 10, 5), ShouldBeNil)
		So(store.InsertEvent(ctx, 2, model.TypeJoke, 20, 3), ShouldBeNil)

		since := now.Add(-24 * time.Hour)

		Convey("When computing the boards with min records 1", func() {
			top, err := store.GlobalTop(ctx, &since, 1, 10)
			So(err, ShouldBeNil)

			Convey("Then the rating board puts A above B", func() {
				So(top.Rating, ShouldHaveLength, 2)
				So(top.Rating[0].DisplayName, ShouldEqual, "a")
				So(top.Rating[0].AvgRating, ShouldEqual, 5.0)
				So(top.Rating[1].DisplayName, ShouldEqual, "b")
			})

			Convey("And the time board puts B above A", func() {
				So(top.Time, ShouldHaveLength, 2)
				So(top.Time[0].DisplayName, ShouldEqual, "b")
				So(top.Time[0].Minutes, ShouldEqual, 20)
				So(top.Time[1].DisplayName, ShouldEqual, "a")
			})

			Convey("And the joke board has both while the story board is empty", func() {
				So(top.JokeCount, ShouldHaveLength, 2)
				So(top.StoryCount, ShouldBeEmpty)
			})
		})

		Convey("When the sample-size floor excludes thin users", func() {
			So(store.InsertEvent(ctx, 1, model.TypeJoke, 5, 4), ShouldBeNil)

			top, err := store.GlobalTop(ctx, &since, 2, 10)
			So(err, ShouldBeNil)
			So(top.Rating, ShouldHaveLength, 1)
			So(top.Rating[0].DisplayName, ShouldEqual, "a")
			So(top.Rating[0].Count, ShouldEqual, 2)

			Convey("Then lowering the floor only adds entries", func() {
				wider, err := store.GlobalTop(ctx, &since, 1, 10)
				So(err, ShouldBeNil)
				So(wider.Rating, ShouldHaveLength, 2)

				var names []string
				for _, e := range wider.Rating {
					names = append(names, e.DisplayName)
				}
				So(names, ShouldContain, "a")
				So(names, ShouldContain, "b")
			})
		})

		Convey("When more users than the cap are active", func() {
			_, _ = store.EnsureUser(ctx, 3, "c", "C")
			So(store.InsertEvent(ctx, 3, model.TypeJoke, 30, 4), ShouldBeNil)

			top, err := store.GlobalTop(ctx, &since, 1, 2)
			So(err, ShouldBeNil)
			So(top.JokeCount, ShouldHaveLength, 2)
			So(top.Time, ShouldHaveLength, 2)
		})

		Convey("When a user has no handle", func() {
			_, _ = store.EnsureUser(ctx, 4, "", "Dora")
			So(store.InsertEvent(ctx, 4, model.TypeStory, 8, 2), ShouldBeNil)

			top, err := store.GlobalTop(ctx, &since, 1, 10)
			So(err, ShouldBeNil)
			So(top.StoryCount, ShouldHaveLength, 1)
			So(top.StoryCount[0].DisplayName, ShouldEqual, "Dora")
		})
	})
}

func TestMemoryRanks(t *testing.T) {
	Convey("Given weekly activity from several users", t, func() {
		ctx := context.Background()
		now := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
		store := repository.NewMemory(repository.WithClock(func() time.Time { return now }))
		since := now.Add(-7 * 24 * time.Hour)

		_, _ = store.EnsureUser(ctx, 1, "a", "A")
		_, _ = store.EnsureUser(ctx, 2, "b", "B")

		Convey("When a user is the sole contributor to a metric", func() {
			So(store.InsertEvent(ctx, 1, model.TypeJoke, 10, 5), ShouldBeNil)

			ranks, err := store.Ranks(ctx, 1, since)
			So(err, ShouldBeNil)
			So(ranks.Joke, ShouldNotBeNil)
			So(*ranks.Joke, ShouldEqual, 1)
			So(ranks.Time, ShouldNotBeNil)
			So(*ranks.Time, ShouldEqual, 1)

			Convey("Then metrics without activity stay absent", func() {
				So(ranks.Story, ShouldBeNil)
			})
		})

		Convey("When a user has no in-window activity at all", func() {
			ranks, err := store.Ranks(ctx, 2, since)
			So(err, ShouldBeNil)
			So(ranks.Joke, ShouldBeNil)
			So(ranks.Story, ShouldBeNil)
			So(ranks.Time, ShouldBeNil)
		})

		Convey("When two users compete on the same metrics", func() {
			So(store.InsertEvent(ctx, 1, model.TypeJoke, 10, 5), ShouldBeNil)
			So(store.InsertEvent(ctx, 2, model.TypeJoke, 20, 3), ShouldBeNil)
			So(store.InsertEvent(ctx, 2, model.TypeJoke, 20, 3), ShouldBeNil)

			ranks, err := store.Ranks(ctx, 1, since)
			So(err, ShouldBeNil)
			So(*ranks.Joke, ShouldEqual, 2)
			So(*ranks.Time, ShouldEqual, 2)

			leader, err := store.Ranks(ctx, 2, since)
			So(err, ShouldBeNil)
			So(*leader.Joke, ShouldEqual, 1)
			So(*leader.Time, ShouldEqual, 1)
		})

		Convey("When activity falls outside the fixed window", func() {
			So(store.InsertEvent(ctx, 1, model.TypeJoke, 10, 5), ShouldBeNil)

			later := now.Add(8 * 24 * time.Hour)
			ranks, err := store.Ranks(ctx, 1, later.Add(-7*24*time.Hour))
			So(err, ShouldBeNil)
			So(ranks.Joke, ShouldBeNil)
		})
	})
}
