package transport

import (
	"context"
	"strings"
	"testing"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMessage = "From: sender@example.org\r\n" +
	"To: Alice <Alice@Example.com>, bob@example.com\r\n" +
	"Cc: carol@example.com\r\n" +
	"Subject: hello\r\n" +
	"\r\n" +
	"Hi there :)"

func newTestTransport(t *testing.T) (*mock.Registry, *Transport, *[]Event) {
	t.Helper()
	registry := mock.NewRegistryWithLogger(lib.NewTestLogger(t, "mock"))
	transport := New(registry, WithLogger(lib.NewTestLogger(t, "transport")))
	events := make([]Event, 0)
	transport.AddListener(func(event Event) {
		events = append(events, event)
	})
	return registry, transport, &events
}

func TestSendToRecipients(t *testing.T) {
	registry, transport, events := newTestTransport(t)

	delivered, err := transport.Send(context.Background(), strings.NewReader(sampleMessage), "dave@example.com")
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello", delivered[0].Subject())

	inbox := registry.Mailbox("dave@example.com").Inbox()
	count, err := inbox.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.Len(t, *events, 1)
	assert.Equal(t, Delivered, (*events)[0].Type)
	assert.Equal(t, "dave@example.com", (*events)[0].Recipient)
}

func TestSendToHeaderRecipients(t *testing.T) {
	registry, transport, _ := newTestTransport(t)

	delivered, err := transport.Send(context.Background(), strings.NewReader(sampleMessage))
	require.NoError(t, err)
	assert.Len(t, delivered, 3)
	assert.Equal(t, []string{"alice@example.com", "bob@example.com", "carol@example.com"}, registry.Accounts())
}

func TestSendWithoutRecipient(t *testing.T) {
	_, transport, _ := newTestTransport(t)

	_, err := transport.Send(context.Background(), strings.NewReader("Subject: nobody\r\n\r\nhello"))
	assert.ErrorIs(t, err, lib.ErrNoRecipients)
}

func TestSendSimulatedError(t *testing.T) {
	registry, transport, events := newTestTransport(t)
	registry.Mailbox("bob@example.com").Inbox().SetSimulateError(true)

	delivered, err := transport.Send(context.Background(), strings.NewReader(sampleMessage))
	assert.ErrorIs(t, err, lib.ErrDelivery)
	assert.ErrorIs(t, err, lib.ErrSimulatedFailure)
	assert.Contains(t, err.Error(), "bob@example.com")
	assert.Len(t, delivered, 1)

	require.Len(t, *events, 2)
	assert.Equal(t, Delivered, (*events)[0].Type)
	assert.Equal(t, NotDelivered, (*events)[1].Type)
	assert.Nil(t, (*events)[1].Message)

	count, err := registry.Mailbox("bob@example.com").Inbox().MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSendWithRateLimit(t *testing.T) {
	registry := mock.NewRegistry()
	transport := New(registry, WithRateLimit(1024*1024, 1024))

	body := sampleMessage + strings.Repeat("x", 8*1024)
	delivered, err := transport.Send(context.Background(), strings.NewReader(body), "dave@example.com")
	require.NoError(t, err)
	require.Len(t, delivered, 1)
	assert.Equal(t, "hello", delivered[0].Subject())
}

func TestSendCancelled(t *testing.T) {
	registry := mock.NewRegistry()
	transport := New(registry, WithRateLimit(1024, 1024))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := transport.Send(ctx, strings.NewReader(sampleMessage), "dave@example.com")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, registry.Accounts())
}
