package messaging

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

const maxContentLength = 2000

// Service handles direct messages between users.
type Service struct {
	store store.Store
	pub   Publisher
	now   func() time.Time
}

func NewService(st store.Store, pub Publisher) *Service {
	return &Service{store: st, pub: pub, now: time.Now}
}

// Send writes a message from the caller to another user.
func (s *Service) Send(ctx context.Context, sess auth.Session, to, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, models.NewValidationError("message content is required")
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return nil, models.NewValidationError("message too long (max 2000 characters)")
	}
	if to == sess.Username {
		return nil, models.NewValidationError("you cannot message yourself")
	}

	var msg models.Message
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(to); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return models.NewNotFoundError("recipient")
			}
			return err
		}
		var err error
		msg, err = Append(tx, sess.Username, to, content, "", s.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	NotifyNew(ctx, s.pub, msg)
	return &msg, nil
}

// Conversation returns the messages exchanged with peer, oldest first.
func (s *Service) Conversation(ctx context.Context, sess auth.Session, peer string) ([]models.Message, error) {
	var msgs []models.Message
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		msgs, err = tx.ListMessages(store.MessageFilter{User: sess.Username, Peer: peer})
		return err
	})
	return msgs, err
}

// Conversations lists every peer the caller has exchanged messages with,
// most recent conversation first.
func (s *Service) Conversations(ctx context.Context, sess auth.Session) ([]models.ConversationSummary, error) {
	var msgs []models.Message
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		msgs, err = tx.ListMessages(store.MessageFilter{User: sess.Username})
		return err
	})
	if err != nil {
		return nil, err
	}

	byPeer := make(map[string]*models.ConversationSummary)
	var order []string
	for _, m := range msgs {
		peer := m.Receiver
		if peer == sess.Username {
			peer = m.Sender
		}
		cs, ok := byPeer[peer]
		if !ok {
			cs = &models.ConversationSummary{Peer: peer}
			byPeer[peer] = cs
			order = append(order, peer)
		}
		cs.LastMessage = m
		if m.Receiver == sess.Username && !m.IsRead {
			cs.Unread++
		}
	}

	out := make([]models.ConversationSummary, 0, len(order))
	for _, p := range order {
		out = append(out, *byPeer[p])
	}
	// msgs are oldest first, so a stable sort keeps ties in arrival order.
	slices.SortStableFunc(out, func(a, b models.ConversationSummary) int {
		return b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt)
	})
	return out, nil
}

// MarkConversationRead marks every unread message from peer to the caller
// as read and tells peer's connections.
func (s *Service) MarkConversationRead(ctx context.Context, sess auth.Session, peer string) (int, error) {
	var n int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.MarkMessagesRead(sess.Username, peer)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 && s.pub != nil {
		s.pub.Publish(ctx, peer, Event{Type: EventMessageRead, Data: map[string]interface{}{
			"reader": sess.Username,
			"count":  n,
		}})
	}
	return n, nil
}

func (s *Service) UnreadCount(ctx context.Context, sess auth.Session) (int, error) {
	var n int
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		n, err = tx.CountUnread(sess.Username)
		return err
	})
	return n, err
}
