package leads

import "errors"

var (
	// ErrMissingContact is returned when the contact field is blank.
	ErrMissingContact = errors.New("leads: contact is required")

	// ErrLeadNotFound is returned when a lead is not found.
	ErrLeadNotFound = errors.New("leads: lead not found")
)
