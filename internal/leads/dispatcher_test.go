package leads

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/sitegen-supportchat/internal/knowledge"
	"github.com/wolfman30/sitegen-supportchat/internal/observability/metrics"
)

type recordingChannel struct {
	mu   sync.Mutex
	got  []Notification
	err  error
	wait chan struct{}
}

func (c *recordingChannel) Deliver(ctx context.Context, n Notification) error {
	if c.wait != nil {
		select {
		case <-c.wait:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return c.err
}

func (c *recordingChannel) notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.got...)
}

func defaultKB(t *testing.T) *knowledge.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.Default()
	require.NoError(t, err)
	return kb
}

func assertLeadCounter(t *testing.T, reg *prometheus.Registry, status string) {
	t.Helper()
	expected := `
# HELP supportchat_leads_dispatched_total Contact requests handed to lead channels
# TYPE supportchat_leads_dispatched_total counter
supportchat_leads_dispatched_total{status="` + status + `"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "supportchat_leads_dispatched_total"))
}

func TestContactRequestValidate(t *testing.T) {
	assert.ErrorIs(t, ContactRequest{Name: "Anna", Contact: "   "}.Validate(), ErrMissingContact)
	assert.NoError(t, ContactRequest{Contact: "anna@example.com"}.Validate())
}

func TestFormatNotificationUsesPlaceholders(t *testing.T) {
	kb := defaultKB(t)

	n := FormatNotification(kb, Lead{Contact: "+39 333 1234567", Language: "it"})
	assert.Equal(t, "Nuova richiesta di contatto: non indicato", n.Subject)
	assert.Contains(t, n.Body, "Nome: non indicato\n")
	assert.Contains(t, n.Body, "Contatto: +39 333 1234567\n")
	assert.Contains(t, n.Body, "Messaggio: non indicato\n")

	n = FormatNotification(kb, Lead{Name: "Anna", Contact: "anna@example.com", Message: "Call me", Language: "en", SessionID: "s-1"})
	assert.Equal(t, "New contact request: Anna", n.Subject)
	assert.Contains(t, n.Body, "Message: Call me\n")
	assert.Contains(t, n.Body, "Session: s-1\n")
}

func TestDispatchDeliversAsynchronously(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)
	channel := &recordingChannel{wait: make(chan struct{})}
	fixed := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	d := NewDispatcher(defaultKB(t), channel, WithMetrics(m), WithClock(func() time.Time { return fixed }))

	ctx, cancel := context.WithCancel(WithSessionID(context.Background(), "sess-42"))
	start := time.Now()
	d.Dispatch(ctx, ContactRequest{Name: " Anna ", Contact: " anna@example.com "}, knowledge.English)
	assert.Less(t, time.Since(start), 100*time.Millisecond, "dispatch must not block on delivery")

	// The caller's request ends before delivery; delivery still happens.
	cancel()
	close(channel.wait)
	require.NoError(t, d.Wait(context.Background()))

	got := channel.notifications()
	require.Len(t, got, 1)
	lead := got[0].Lead
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "Anna", lead.Name)
	assert.Equal(t, "anna@example.com", lead.Contact)
	assert.Equal(t, "en", lead.Language)
	assert.Equal(t, "sess-42", lead.SessionID)
	assert.Equal(t, fixed, lead.CreatedAt)
	assertLeadCounter(t, reg, "sent")
}

func TestDispatchFailureIsSwallowed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewChatMetrics(reg)
	channel := &recordingChannel{err: errors.New("smtp down")}
	d := NewDispatcher(defaultKB(t), channel, WithMetrics(m))

	d.Dispatch(context.Background(), ContactRequest{Contact: "x@example.com"}, knowledge.Italian)
	require.NoError(t, d.Wait(context.Background()))
	assertLeadCounter(t, reg, "failed")
}

func TestDispatchTimeout(t *testing.T) {
	channel := &recordingChannel{wait: make(chan struct{})}
	defer close(channel.wait)
	d := NewDispatcher(defaultKB(t), channel, WithTimeout(20*time.Millisecond))

	d.Dispatch(context.Background(), ContactRequest{Contact: "x@example.com"}, knowledge.Italian)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Wait(ctx))
	assert.Empty(t, channel.notifications())
}

func TestWaitHonoursContext(t *testing.T) {
	channel := &recordingChannel{wait: make(chan struct{})}
	defer close(channel.wait)
	d := NewDispatcher(defaultKB(t), channel, WithTimeout(time.Minute))
	d.Dispatch(context.Background(), ContactRequest{Contact: "x"}, knowledge.Italian)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, d.Wait(ctx), context.DeadlineExceeded)
}

func TestNotificationBodyIsPlainText(t *testing.T) {
	n := FormatNotification(defaultKB(t), Lead{Name: "<b>x</b>", Contact: "c", Language: "en"})
	assert.True(t, strings.HasPrefix(n.Body, "Name: <b>x</b>\n"))
}
