package conversation

import "errors"

var (
	// ErrSessionClosed is returned for turns on a closed session, including a
	// turn whose remote reply arrived after the close.
	ErrSessionClosed = errors.New("conversation: session closed")
	// ErrTurnInProgress is returned when a turn starts while another one is
	// waiting on the remote responder.
	ErrTurnInProgress = errors.New("conversation: turn in progress")
	// ErrFormNotOpen is returned when a contact submission arrives without an
	// open contact form.
	ErrFormNotOpen = errors.New("conversation: contact form is not open")
)
