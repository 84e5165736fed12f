package messaging

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/timerenting/internal/models"
	"github.com/sudo-init-do/timerenting/internal/store"
)

// Notice texts sent by booking transitions.

func BookingNotice(provider, title string) string {
	return fmt.Sprintf("Hi %s, I have just booked your service: '%s'.", provider, title)
}

func CancellationRequestNotice(provider, title string) string {
	return fmt.Sprintf("Hi %s, I would like to cancel my booking for your service: '%s'.", provider, title)
}

func CancellationApprovedNotice(title string) string {
	return fmt.Sprintf("Your cancellation request for the service '%s' has been approved.", title)
}

func CancellationRejectedNotice(title string) string {
	return fmt.Sprintf("Your cancellation request for the service '%s' has been rejected.", title)
}

// Append writes a message from one user to another inside tx, so it commits
// or rolls back together with whatever else tx does.
func Append(tx store.Tx, from, to, content, bookingID string, at time.Time) (models.Message, error) {
	m := models.Message{
		ID:        uuid.New().String(),
		Sender:    from,
		Receiver:  to,
		Content:   content,
		CreatedAt: at,
	}
	if bookingID != "" {
		m.BookingID = &bookingID
	}
	if err := tx.CreateMessage(&m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}
