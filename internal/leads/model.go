package leads

import (
	"strings"
	"time"
)

// ContactRequest is what the user typed into the contact form. Only Contact
// is required.
type ContactRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Message string `json:"message"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (r ContactRequest) Trimmed() ContactRequest {
	return ContactRequest{
		Name:    strings.TrimSpace(r.Name),
		Contact: strings.TrimSpace(r.Contact),
		Message: strings.TrimSpace(r.Message),
	}
}

// Validate checks the request after trimming whitespace.
func (r ContactRequest) Validate() error {
	if strings.TrimSpace(r.Contact) == "" {
		return ErrMissingContact
	}
	return nil
}

// Lead is a dispatched contact request.
type Lead struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Name      string    `json:"name"`
	Contact   string    `json:"contact"`
	Message   string    `json:"message"`
	Language  string    `json:"language"`
	CreatedAt time.Time `json:"created_at"`
}

// ListFilter pages through stored leads, newest first.
type ListFilter struct {
	Limit  int
	Offset int
}
