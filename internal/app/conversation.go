package service

import (
	"context"
	"fmt"

	"github.com/Yuiko81/anek-counter/internal/adapters/repository"
	"github.com/Yuiko81/anek-counter/internal/domain/model"
	"github.com/Yuiko81/anek-counter/internal/domain/session"
	"github.com/Yuiko81/anek-counter/pkg/logger"
	"github.com/Yuiko81/anek-counter/pkg/metrics"
)

// BeginConversation starts (or restarts) the multi-step logging flow
// for a conversation id with the chosen type.
func (s *Service) BeginConversation(ctx context.Context, convID string, userID int64, typeCode string) error {
	if !model.IsKnownType(typeCode) {
		return fmt.Errorf("%w: %q", repository.ErrUnknownEventType, typeCode)
	}
	s.sessions.Begin(ctx, convID, userID, typeCode)
	metrics.UpdateActiveConversations(s.sessions.Len())
	return nil
}

// SetConversationMinutes records the minutes step.
func (s *Service) SetConversationMinutes(ctx context.Context, convID string, minutes int) error {
	if minutes <= 0 {
		return model.FieldErrors{{Field: "minutes", Msg: "must be a positive integer"}}
	}
	return s.sessions.SetMinutes(ctx, convID, minutes)
}

// FinishConversation completes the flow with the chosen rating and
// records the event. The session is cleared on completion regardless
// of the insert outcome; a failed insert aborts this turn and the user
// starts over.
func (s *Service) FinishConversation(ctx context.Context, convID string, rating int) (session.Conversation, error) {
	if rating < model.MinRating || rating > model.MaxRating {
		return session.Conversation{}, model.FieldErrors{{
			Field: "rating",
			Msg:   fmt.Sprintf("must be between %d and %d", model.MinRating, model.MaxRating),
		}}
	}

	conv, err := s.sessions.Finish(ctx, convID)
	metrics.UpdateActiveConversations(s.sessions.Len())
	if err != nil {
		return session.Conversation{}, err
	}

	if err := s.RecordEvent(ctx, conv.UserID, conv.TypeCode, conv.Minutes, rating); err != nil {
		return session.Conversation{}, err
	}
	metrics.RecordConversationFinished()
	return conv, nil
}

// CancelConversation clears any in-progress flow for the id.
func (s *Service) CancelConversation(ctx context.Context, convID string) {
	s.sessions.Cancel(ctx, convID)
	metrics.RecordConversationCanceled()
	metrics.UpdateActiveConversations(s.sessions.Len())
	s.logger.Debug(ctx, "conversation canceled", logger.String("conversation_id", convID))
}
