package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/observability"
)

// Enqueuer is the part of *asynq.Client the queue needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue turns account and booking events into email tasks.
type Queue struct {
	client Enqueuer
	appURL string
	now    func() time.Time
	log    *slog.Logger
}

func NewQueue(client Enqueuer, appURL string) *Queue {
	if appURL == "" {
		appURL = "http://localhost:3000"
	}
	return &Queue{
		client: client,
		appURL: strings.TrimRight(appURL, "/"),
		now:    time.Now,
		log:    slog.With("component", "alerts"),
	}
}

// Welcome schedules a welcome email for a new account.
func (q *Queue) Welcome(ctx context.Context, u models.User) error {
	if u.Email == "" {
		return nil
	}
	env := EmailEnvelope{
		To:      u.Email,
		Subject: fmt.Sprintf("Welcome to TimeRenting, %s!", u.Username),
		Body: fmt.Sprintf("Hi %s, thanks for joining TimeRenting.\n\nYou start with %d time credits.\n\nOpen TimeRenting: %s",
			u.Username, u.TimeCredits, q.appURL),
	}
	payload := WelcomeEmailPayload{Username: u.Username, Email: u.Email, Envelope: env, SentAt: q.now()}
	return q.enqueue(ctx, TaskWelcomeEmail, payload)
}

// Notify schedules the email for a committed booking transition. Users
// without an email address are skipped.
func (q *Queue) Notify(ctx context.Context, ev models.BookingEvent) error {
	if ev.Email == "" {
		return nil
	}
	taskType, subject, ok := bookingEmail(ev)
	if !ok {
		return fmt.Errorf("alerts: unknown booking event %q", ev.Kind)
	}
	payload := BookingEmailPayload{
		Kind:      ev.Kind,
		BookingID: ev.BookingID,
		Recipient: ev.Recipient,
		Envelope: EmailEnvelope{
			To:      ev.Email,
			Subject: subject,
			Body:    fmt.Sprintf("Hi %s,\n\n%s\n\nSee your bookings: %s/bookings", ev.Recipient, ev.Body, q.appURL),
		},
		SentAt: ev.At,
	}
	return q.enqueue(ctx, taskType, payload)
}

func bookingEmail(ev models.BookingEvent) (taskType, subject string, ok bool) {
	switch ev.Kind {
	case "booking_created":
		return TaskBookingCreated, fmt.Sprintf("New booking for '%s'", ev.ServiceTitle), true
	case "cancellation_requested":
		return TaskCancellationRequested, fmt.Sprintf("Cancellation requested for '%s'", ev.ServiceTitle), true
	case "cancellation_approved":
		return TaskCancellationDecided, fmt.Sprintf("Your cancellation for '%s' was approved", ev.ServiceTitle), true
	case "cancellation_rejected":
		return TaskCancellationDecided, fmt.Sprintf("Your cancellation for '%s' was rejected", ev.ServiceTitle), true
	case "service_finished":
		return TaskServiceFinished, fmt.Sprintf("'%s' is finished", ev.ServiceTitle), true
	}
	return "", "", false
}

func (q *Queue) enqueue(ctx context.Context, taskType string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	task := asynq.NewTask(taskType, b, asynq.MaxRetry(5), asynq.Timeout(time.Minute))
	info, err := q.client.EnqueueContext(ctx, task, asynq.Queue(queueEmails))
	if err != nil {
		observability.NotificationsEnqueued.WithLabelValues(taskType, "error").Inc()
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	observability.NotificationsEnqueued.WithLabelValues(taskType, "ok").Inc()
	q.log.Debug("task enqueued", "type", taskType, "id", info.ID)
	return nil
}
