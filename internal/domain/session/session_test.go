package session_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Yuiko81/anek-counter/internal/domain/session"
	. "github.com/smartystreets/goconvey/convey"
)

func TestConversationFlow(t *testing.T) {
	Convey("Given an empty conversation store", t, func() {
		ctx := context.Background()
		store := session.NewStore()

		Convey("When the full flow runs in order", func() {
			store.Begin(ctx, "chat-1", 42, "joke")

			conv, ok := store.Peek(ctx, "chat-1")
			So(ok, ShouldBeTrue)
			So(conv.State, ShouldEqual, session.StateAwaitingMinutes)
			So(conv.UserID, ShouldEqual, 42)

			So(store.SetMinutes(ctx, "chat-1", 15), ShouldBeNil)

			conv, _ = store.Peek(ctx, "chat-1")
			So(conv.State, ShouldEqual, session.StateAwaitingRating)
			So(conv.Minutes, ShouldEqual, 15)

			done, err := store.Finish(ctx, "chat-1")
			So(err, ShouldBeNil)
			So(done.UserID, ShouldEqual, 42)
			So(done.TypeCode, ShouldEqual, "joke")
			So(done.Minutes, ShouldEqual, 15)

			Convey("Then the conversation is cleared", func() {
				_, ok := store.Peek(ctx, "chat-1")
				So(ok, ShouldBeFalse)
				So(store.Len(), ShouldEqual, 0)
			})
		})

		Convey("When steps arrive out of order", func() {
			So(errors.Is(store.SetMinutes(ctx, "chat-1", 10), session.ErrNoConversation), ShouldBeTrue)

			_, err := store.Finish(ctx, "chat-1")
			So(errors.Is(err, session.ErrNoConversation), ShouldBeTrue)

			store.Begin(ctx, "chat-1", 42, "story")
			_, err = store.Finish(ctx, "chat-1")
			So(errors.Is(err, session.ErrUnexpectedState), ShouldBeTrue)

			Convey("Then the conversation survives the bad step", func() {
				conv, ok := store.Peek(ctx, "chat-1")
				So(ok, ShouldBeTrue)
				So(conv.State, ShouldEqual, session.StateAwaitingMinutes)
			})
		})

		Convey("When the minutes step repeats", func() {
			store.Begin(ctx, "chat-1", 42, "joke")
			So(store.SetMinutes(ctx, "chat-1", 10), ShouldBeNil)
			So(errors.Is(store.SetMinutes(ctx, "chat-1", 20), session.ErrUnexpectedState), ShouldBeTrue)
		})

		Convey("When a conversation restarts mid-flow", func() {
			store.Begin(ctx, "chat-1", 42, "joke")
			So(store.SetMinutes(ctx, "chat-1", 10), ShouldBeNil)
			store.Begin(ctx, "chat-1", 42, "story")

			conv, ok := store.Peek(ctx, "chat-1")
			So(ok, ShouldBeTrue)
			So(conv.TypeCode, ShouldEqual, "story")
			So(conv.State, ShouldEqual, session.StateAwaitingMinutes)
			So(conv.Minutes, ShouldEqual, 0)
		})

		Convey("When a conversation is canceled", func() {
			store.Begin(ctx, "chat-1", 42, "joke")
			store.Cancel(ctx, "chat-1")

			_, ok := store.Peek(ctx, "chat-1")
			So(ok, ShouldBeFalse)

			Convey("And canceling again is a no-op", func() {
				store.Cancel(ctx, "chat-1")
				So(store.Len(), ShouldEqual, 0)
			})
		})

		Convey("When multiple conversations run independently", func() {
			store.Begin(ctx, "chat-1", 1, "joke")
			store.Begin(ctx, "chat-2", 2, "story")
			So(store.Len(), ShouldEqual, 2)

			So(store.SetMinutes(ctx, "chat-2", 5), ShouldBeNil)
			conv, _ := store.Peek(ctx, "chat-1")
			So(conv.State, ShouldEqual, session.StateAwaitingMinutes)
		})
	})
}
