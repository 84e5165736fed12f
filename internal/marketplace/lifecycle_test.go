package marketplace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sudo-init-do/timerenting/internal/models"
)

func TestNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		from    models.BookingState
		event   Event
		to      models.BookingState
		noop    bool
		invalid bool
	}{
		{from: models.BookingActive, event: EventRequestCancellation, to: models.BookingCancellationRequested},
		{from: models.BookingCancellationRequested, event: EventRequestCancellation, to: models.BookingCancellationRequested, noop: true},
		{from: models.BookingCancellationRequested, event: EventApproveCancellation, to: models.BookingCancelled},
		{from: models.BookingCancellationRequested, event: EventRejectCancellation, to: models.BookingActive},
		{from: models.BookingActive, event: EventFinish, to: models.BookingFinished},
		{from: models.BookingFinished, event: EventFinish, to: models.BookingFinished, noop: true},

		{from: models.BookingActive, event: EventApproveCancellation, invalid: true},
		{from: models.BookingActive, event: EventRejectCancellation, invalid: true},
		{from: models.BookingCancellationRequested, event: EventFinish, invalid: true},
		{from: models.BookingCancelled, event: EventRequestCancellation, invalid: true},
		{from: models.BookingCancelled, event: EventApproveCancellation, invalid: true},
		{from: models.BookingCancelled, event: EventFinish, invalid: true},
		{from: models.BookingFinished, event: EventRequestCancellation, invalid: true},
		{from: models.BookingFinished, event: EventRejectCancellation, invalid: true},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.event), func(t *testing.T) {
			to, noop, err := Next(tt.from, tt.event)
			if tt.invalid {
				assert.ErrorIs(t, err, models.ErrInvalidTransition)
				assert.Equal(t, tt.from, to)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.to, to)
			assert.Equal(t, tt.noop, noop)
		})
	}
}

func TestInvalidTransitionMessage(t *testing.T) {
	_, _, err := Next(models.BookingCancelled, EventApproveCancellation)
	assert.EqualError(t, err, "INVALID_TRANSITION: approve cancellation is not allowed for a booking in state cancelled")
}
