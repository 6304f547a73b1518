package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/siddhant-rajhans/ducknest/internal/apperr"
	"github.com/siddhant-rajhans/ducknest/internal/model"
)

// MaxMessageLength bounds a message body in characters.
const MaxMessageLength = 4000

// MessagingService stores inquiries between seekers and listing owners.
type MessagingService struct {
	threads ThreadStore
	log     *zap.Logger
}

func NewMessagingService(threads ThreadStore, log *zap.Logger) *MessagingService {
	return &MessagingService{threads: threads, log: log}
}

// OpenThread returns seekerID's thread on listingID, creating it on first
// contact. Calling it again returns the same thread.
func (s *MessagingService) OpenThread(ctx context.Context, listingID, seekerID string) (model.Thread, bool, error) {
	if !validID(listingID) {
		return model.Thread{}, false, apperr.New(apperr.NotFound, "listing not found")
	}
	t, created, err := s.threads.Open(ctx, listingID, seekerID, func(l model.Listing) error {
		if l.Status != model.StatusActive {
			return apperr.Newf(apperr.InvalidTransition, "listing is %s and no longer takes inquiries", l.Status)
		}
		if l.OwnerID == seekerID {
			return apperr.New(apperr.Forbidden, "cannot open an inquiry on your own listing")
		}
		return nil
	})
	if err != nil {
		return model.Thread{}, false, apperr.FromStore(err, "MessagingService.OpenThread")
	}
	if created {
		s.log.Info("thread opened", zap.String("thread_id", t.ID), zap.String("listing_id", listingID))
	}
	return t, created, nil
}

// SendMessage appends body to the thread as senderID, who must be a participant.
// The body is only looked at once the sender is known to belong to the thread.
func (s *MessagingService) SendMessage(ctx context.Context, threadID, senderID, body string) (model.Message, error) {
	if !validID(threadID) {
		return model.Message{}, apperr.New(apperr.NotFound, "thread not found")
	}

	m := model.Message{
		ID:       uuid.NewString(),
		ThreadID: threadID,
		SenderID: senderID,
		Body:     strings.TrimSpace(body),
	}
	err := s.threads.Append(ctx, &m, func(t model.Thread) error {
		if !t.HasParticipant(senderID) {
			return apperr.New(apperr.Forbidden, "not a participant of this thread")
		}
		if m.Body == "" {
			return apperr.New(apperr.InvalidInput, "message body is empty")
		}
		if utf8.RuneCountInString(m.Body) > MaxMessageLength {
			return apperr.Newf(apperr.InvalidInput, "message body exceeds %d characters", MaxMessageLength)
		}
		return nil
	})
	if err != nil {
		return model.Message{}, apperr.FromStore(err, "MessagingService.SendMessage")
	}
	return m, nil
}

// Messages returns the thread's messages in send order to one of its participants.
func (s *MessagingService) Messages(ctx context.Context, threadID, readerID string) ([]model.Message, error) {
	if !validID(threadID) {
		return nil, apperr.New(apperr.NotFound, "thread not found")
	}
	t, err := s.threads.Get(ctx, threadID)
	if err != nil {
		return nil, apperr.FromStore(err, "MessagingService.Messages")
	}
	if !t.HasParticipant(readerID) {
		return nil, apperr.New(apperr.Forbidden, "not a participant of this thread")
	}
	msgs, err := s.threads.Messages(ctx, threadID)
	if err != nil {
		return nil, apperr.FromStore(err, "MessagingService.Messages")
	}
	return msgs, nil
}

// Threads lists userID's conversations, most recent activity first.
func (s *MessagingService) Threads(ctx context.Context, userID string) ([]model.Thread, error) {
	ts, err := s.threads.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.FromStore(err, "MessagingService.Threads")
	}
	return ts, nil
}
