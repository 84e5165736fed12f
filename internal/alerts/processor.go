package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Sender delivers one email.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Worker runs the asynq server that drains the email queue.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	sender Sender
	log    *slog.Logger
}

func NewWorker(opt asynq.RedisConnOpt, sender Sender) *Worker {
	w := &Worker{
		sender: sender,
		log:    slog.With("component", "alerts.worker"),
	}
	w.mux = asynq.NewServeMux()
	w.mux.HandleFunc(TaskWelcomeEmail, w.handleWelcomeEmail)
	w.mux.HandleFunc(TaskBookingCreated, w.handleBookingEmail)
	w.mux.HandleFunc(TaskCancellationRequested, w.handleBookingEmail)
	w.mux.HandleFunc(TaskCancellationDecided, w.handleBookingEmail)
	w.mux.HandleFunc(TaskServiceFinished, w.handleBookingEmail)

	w.server = asynq.NewServer(opt, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			queueEmails: 10,
		},
		Logger: slogAdapter{w.log},
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, t *asynq.Task, err error) {
			w.log.Error("task failed", "type", t.Type(), "error", err)
		}),
	})
	return w
}

// Start runs the server in the background.
func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	w.log.Info("email worker started")
	return nil
}

// Shutdown waits for in-flight tasks and stops the server.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func (w *Worker) handleWelcomeEmail(ctx context.Context, t *asynq.Task) error {
	var p WelcomeEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if err := w.sender.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		return fmt.Errorf("send welcome email: %w", err)
	}
	w.log.Info("welcome email sent", "username", p.Username)
	return nil
}

func (w *Worker) handleBookingEmail(ctx context.Context, t *asynq.Task) error {
	var p BookingEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("decode %s: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	if p.Envelope.To == "" {
		return fmt.Errorf("%s without recipient address: %w", t.Type(), asynq.SkipRetry)
	}
	if err := w.sender.Send(ctx, p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		return fmt.Errorf("send %s email: %w", p.Kind, err)
	}
	w.log.Info("booking email sent", "kind", p.Kind, "booking_id", p.BookingID, "recipient", p.Recipient)
	return nil
}

// slogAdapter routes asynq's internal logging through slog.
type slogAdapter struct{ l *slog.Logger }

func (a slogAdapter) Debug(args ...interface{}) { a.l.Debug(fmt.Sprint(args...)) }
func (a slogAdapter) Info(args ...interface{})  { a.l.Info(fmt.Sprint(args...)) }
func (a slogAdapter) Warn(args ...interface{})  { a.l.Warn(fmt.Sprint(args...)) }
func (a slogAdapter) Error(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
func (a slogAdapter) Fatal(args ...interface{}) { a.l.Error(fmt.Sprint(args...)) }
