package messaging

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/auth"
	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
	"github.com/sudo-init-do/timerenting/internal/store/memory"
)

type published struct {
	username string
	evt      Event
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(_ context.Context, username string, evt Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{username, evt})
}

func newTestService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	st := memory.New()
	require.NoError(t, st.Update(context.Background(), func(tx store.Tx) error {
		for _, name := range []string{"alice", "bob", "carol"} {
			if err := tx.CreateUser(&models.User{Username: name, CreatedAt: time.Now()}); err != nil {
				return err
			}
		}
		return nil
	}))
	pub := &recordingPublisher{}
	svc := NewService(st, pub)
	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return svc, pub
}

var (
	alice = auth.Session{Username: "alice"}
	bob   = auth.Session{Username: "bob"}
	carol = auth.Session{Username: "carol"}
)

func TestSend_Validation(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice, "bob", "   ")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Send(ctx, alice, "bob", strings.Repeat("x", maxContentLength+1))
	assert.ErrorIs(t, err, models.ErrValidation)
	m, err := svc.Send(ctx, alice, "bob", strings.Repeat("é", maxContentLength))
	require.NoError(t, err)
	assert.Equal(t, maxContentLength, utf8.RuneCountInString(m.Content))
	pub.events = nil

	_, err = svc.Send(ctx, alice, "alice", "hi me")
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.Send(ctx, alice, "ghost", "hello")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestSend_PublishesToBothParticipants(t *testing.T) {
	svc, pub := newTestService(t)

	m, err := svc.Send(context.Background(), alice, "bob", "  hello bob ")
	require.NoError(t, err)
	assert.Equal(t, "hello bob", m.Content)
	assert.False(t, m.IsRead)
	assert.Nil(t, m.BookingID)

	require.Len(t, pub.events, 2)
	assert.Equal(t, "bob", pub.events[0].username)
	assert.Equal(t, "alice", pub.events[1].username)
	assert.Equal(t, EventMessageNew, pub.events[0].evt.Type)
}

func TestConversations(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for _, step := range []struct {
		from auth.Session
		to   string
		text string
	}{
		{alice, "bob", "hi bob"},
		{bob, "alice", "hi alice"},
		{carol, "alice", "hello from carol"},
		{carol, "alice", "are you there?"},
		{alice, "bob", "one more thing"},
	} {
		_, err := svc.Send(ctx, step.from, step.to, step.text)
		require.NoError(t, err)
	}

	convo, err := svc.Conversation(ctx, alice, "bob")
	require.NoError(t, err)
	require.Len(t, convo, 3)
	assert.Equal(t, "hi bob", convo[0].Content)
	assert.Equal(t, "one more thing", convo[2].Content)

	inbox, err := svc.Conversations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "bob", inbox[0].Peer)
	assert.Equal(t, "one more thing", inbox[0].LastMessage.Content)
	assert.Equal(t, 1, inbox[0].Unread)
	assert.Equal(t, "carol", inbox[1].Peer)
	assert.Equal(t, 2, inbox[1].Unread)

	n, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestMarkConversationRead(t *testing.T) {
	svc, pub := newTestService(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := svc.Send(ctx, carol, "alice", "ping")
		require.NoError(t, err)
	}
	_, err := svc.Send(ctx, bob, "alice", "unrelated")
	require.NoError(t, err)
	pub.events = nil

	n, err := svc.MarkConversationRead(ctx, alice, "carol")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "carol", pub.events[0].username)
	assert.Equal(t, EventMessageRead, pub.events[0].evt.Type)

	unread, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	n, err = svc.MarkConversationRead(ctx, alice, "carol")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, pub.events, 1)
}
