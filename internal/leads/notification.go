package leads

import (
	"context"
	"fmt"
	"strings"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
)

type sessionIDKey struct{}

// WithSessionID tags ctx with the chat session a contact request came from.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}

// SessionIDFromContext returns the session tagged by WithSessionID.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}

// Notification is a formatted lead ready for delivery.
type Notification struct {
	Lead    Lead   `json:"lead"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// FormatNotification renders a lead with the localized labels of its
// language. Empty optional fields show the localized placeholder.
func FormatNotification(kb *knowledge.KnowledgeBase, lead Lead) Notification {
	msgs := kb.Messages(knowledge.Language(lead.Language))
	labels := msgs.LeadLabels
	orPlaceholder := func(v string) string {
		if strings.TrimSpace(v) == "" {
			return msgs.Placeholder
		}
		return v
	}

	subject := msgs.LeadSubject
	if subject == "" {
		subject = "{name}"
	}
	subject = strings.ReplaceAll(subject, "{name}", orPlaceholder(lead.Name))

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", labelOr(labels.Name, "Name"), orPlaceholder(lead.Name))
	fmt.Fprintf(&b, "%s: %s\n", labelOr(labels.Contact, "Contact"), lead.Contact)
	fmt.Fprintf(&b, "%s: %s\n", labelOr(labels.Message, "Message"), orPlaceholder(lead.Message))
	fmt.Fprintf(&b, "%s: %s\n", labelOr(labels.Language, "Language"), lead.Language)
	if lead.SessionID != "" {
		fmt.Fprintf(&b, "Session: %s\n", lead.SessionID)
	}

	return Notification{Lead: lead, Subject: subject, Body: b.String()}
}

func labelOr(label, fallback string) string {
	if label == "" {
		return fallback
	}
	return label
}
