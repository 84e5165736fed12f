package marketplace

import "github.com/sudo-init-do/timerenting/internal/models"

// Event is something that happens to a booking.
type Event string

const (
	EventRequestCancellation Event = "request_cancellation"
	EventApproveCancellation Event = "approve_cancellation"
	EventRejectCancellation  Event = "reject_cancellation"
	EventFinish              Event = "finish"
)

type transition struct {
	from  models.BookingState
	event Event
}

// transitions is the complete lifecycle. A target equal to the source is an
// accepted no-op.
var transitions = map[transition]models.BookingState{
	{models.BookingActive, EventRequestCancellation}:                models.BookingCancellationRequested,
	{models.BookingCancellationRequested, EventRequestCancellation}: models.BookingCancellationRequested,
	{models.BookingCancellationRequested, EventApproveCancellation}: models.BookingCancelled,
	{models.BookingCancellationRequested, EventRejectCancellation}:  models.BookingActive,
	{models.BookingActive, EventFinish}:                             models.BookingFinished,
	{models.BookingFinished, EventFinish}:                           models.BookingFinished,
}

// Next returns the state a booking in from moves to on e. noop is true when
// the event is accepted but changes nothing.
func Next(from models.BookingState, e Event) (to models.BookingState, noop bool, err error) {
	to, ok := transitions[transition{from, e}]
	if !ok {
		return from, false, models.NewInvalidTransitionError(from, string(e))
	}
	return to, to == from, nil
}
