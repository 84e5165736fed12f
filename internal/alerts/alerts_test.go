package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/timerenting/internal/models"
)

type fakeClient struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeClient) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type()}, nil
}

type sent struct{ to, subject, body string }

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sent{to, subject, body})
	return nil
}

func TestQueue_Welcome(t *testing.T) {
	client := &fakeClient{}
	q := NewQueue(client, "https://timerenting.example/")

	require.NoError(t, q.Welcome(context.Background(), models.User{Username: "alice", Email: "alice@example.com", TimeCredits: 10}))
	require.Len(t, client.tasks, 1)
	assert.Equal(t, TaskWelcomeEmail, client.tasks[0].Type())

	var p WelcomeEmailPayload
	require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &p))
	assert.Equal(t, "alice@example.com", p.Envelope.To)
	assert.Contains(t, p.Envelope.Body, "10 time credits")
	assert.Contains(t, p.Envelope.Body, "https://timerenting.example")
	assert.NotContains(t, p.Envelope.Body, "example/")

	require.NoError(t, q.Welcome(context.Background(), models.User{Username: "bob"}))
	assert.Len(t, client.tasks, 1)
}

func TestQueue_NotifyBookingEvents(t *testing.T) {
	client := &fakeClient{}
	q := NewQueue(client, "")

	kinds := map[string]string{
		"booking_created":        TaskBookingCreated,
		"cancellation_requested": TaskCancellationRequested,
		"cancellation_approved":  TaskCancellationDecided,
		"cancellation_rejected":  TaskCancellationDecided,
		"service_finished":       TaskServiceFinished,
	}
	for kind, taskType := range kinds {
		client.tasks = nil
		ev := models.BookingEvent{
			Kind: kind, BookingID: "b1", ServiceTitle: "Yoga", Recipient: "bob",
			Email: "bob@example.com", Body: "notice", At: time.Now(),
		}
		require.NoError(t, q.Notify(context.Background(), ev), kind)
		require.Len(t, client.tasks, 1, kind)
		assert.Equal(t, taskType, client.tasks[0].Type(), kind)

		var p BookingEmailPayload
		require.NoError(t, json.Unmarshal(client.tasks[0].Payload(), &p))
		assert.Equal(t, kind, p.Kind)
		assert.Contains(t, p.Envelope.Subject, "Yoga")
		assert.Contains(t, p.Envelope.Body, "notice")
	}

	assert.Error(t, q.Notify(context.Background(), models.BookingEvent{Kind: "unknown", Email: "x@example.com"}))
	assert.NoError(t, q.Notify(context.Background(), models.BookingEvent{Kind: "booking_created"}))
}

func TestQueue_EnqueueError(t *testing.T) {
	q := NewQueue(&fakeClient{err: errors.New("redis down")}, "")
	err := q.Notify(context.Background(), models.BookingEvent{Kind: "booking_created", Email: "bob@example.com"})
	assert.ErrorContains(t, err, "redis down")
}

func TestWorker_HandleBookingEmail(t *testing.T) {
	sender := &fakeSender{}
	w := &Worker{sender: sender, log: NewLogMailer().log}

	payload, err := json.Marshal(BookingEmailPayload{
		Kind:     "booking_created",
		Envelope: EmailEnvelope{To: "bob@example.com", Subject: "New booking", Body: "hello"},
	})
	require.NoError(t, err)
	require.NoError(t, w.handleBookingEmail(context.Background(), asynq.NewTask(TaskBookingCreated, payload)))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, sent{"bob@example.com", "New booking", "hello"}, sender.sent[0])

	err = w.handleBookingEmail(context.Background(), asynq.NewTask(TaskBookingCreated, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	sender.err = errors.New("smtp down")
	err = w.handleBookingEmail(context.Background(), asynq.NewTask(TaskBookingCreated, payload))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestBuildMessage(t *testing.T) {
	msg := string(buildMessage("noreply@example.com", "bob@example.com", "Hi", "body"))
	assert.Contains(t, msg, "From: noreply@example.com\r\n")
	assert.Contains(t, msg, "To: bob@example.com\r\n")
	assert.Contains(t, msg, "Subject: Hi\r\n")
	assert.Contains(t, msg, "\r\n\r\nbody\r\n")
}

func TestNewSender(t *testing.T) {
	assert.IsType(t, &LogMailer{}, NewSender(SMTPConfig{Host: "smtp.example.com"}))
	assert.IsType(t, &SMTPMailer{}, NewSender(SMTPConfig{
		Host: "smtp.example.com", Port: "465", Username: "u", Password: "p", From: "f@example.com",
	}))
}
