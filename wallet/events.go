package wallet

// EventKind discriminates the payment stream's events.
type EventKind int

const (
	// EventSubmitted carries the transaction hash after the network
	// accepted the submission.
	EventSubmitted EventKind = iota

	// EventConfirmed signals the transaction reached canonical chain
	// state. Terminal.
	EventConfirmed

	// EventFailed signals the submission or confirmation failed.
	// Terminal; may arrive with or without a prior EventSubmitted.
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventSubmitted:
		return "submitted"
	case EventConfirmed:
		return "confirmed"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is one entry in a payment's event sequence.
type Event struct {
	Kind   EventKind
	TxHash string
	Err    error
}

// PaymentStream is the ordered event sequence for a single submitted
// payment: at most one Submitted, then exactly one of Confirmed or Failed,
// after which the channel closes. Ordering is guaranteed by construction:
// all three producer methods send on the same unbuffered-consumer channel
// from a single goroutine.
type PaymentStream struct {
	events chan Event
}

// NewPaymentStream creates a stream ready for one payment attempt. The
// small buffer lets a producer emit its terminal event without waiting on
// a consumer that has already seen what it needs.
func NewPaymentStream() *PaymentStream {
	return &PaymentStream{events: make(chan Event, 2)}
}

// Events returns the receive side of the stream. The channel closes after
// the terminal event.
func (s *PaymentStream) Events() <-chan Event {
	return s.events
}

// Submitted emits the hash event. Must be called at most once, before any
// terminal event.
func (s *PaymentStream) Submitted(txHash string) {
	s.events <- Event{Kind: EventSubmitted, TxHash: txHash}
}

// Confirmed emits the confirmation event and closes the stream.
func (s *PaymentStream) Confirmed() {
	s.events <- Event{Kind: EventConfirmed}
	close(s.events)
}

// Fail emits the failure event and closes the stream.
func (s *PaymentStream) Fail(err error) {
	s.events <- Event{Kind: EventFailed, Err: err}
	close(s.events)
}
