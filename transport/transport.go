// Package transport delivers messages into the inbox of the recipients in the simulated store.
package transport

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/limitio"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-message/textproto"
)

type EventType int

const (
	Delivered EventType = iota
	NotDelivered
)

func (t EventType) String() string {
	if t == Delivered {
		return "delivered"
	}
	return "not delivered"
}

// Event is sent to the listeners for every recipient
type Event struct {
	Type      EventType
	Recipient string
	// Message is nil when the message was not delivered
	Message *mock.Message
}

type Listener func(event Event)

type Option func(*Transport)

// WithLogger sets the logger of the transport
func WithLogger(logger lib.Logger) Option {
	return func(t *Transport) {
		t.log = lib.OrNoLog(logger)
	}
}

// WithRateLimit throttles reading the message body (bytes/sec)
func WithRateLimit(bytesPerSec float64, burst int) Option {
	return func(t *Transport) {
		t.bytesPerSec = bytesPerSec
		t.burst = burst
	}
}

type Transport struct {
	registry    *mock.Registry
	log         lib.Logger
	bytesPerSec float64
	burst       int

	mu        sync.Mutex
	listeners []Listener
}

func New(registry *mock.Registry, opts ...Option) *Transport {
	t := &Transport{
		registry: registry,
		log:      &lib.NoLog{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Transport) AddListener(listener Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.listeners = append(t.listeners, listener)
}

func (t *Transport) notify(event Event) {
	t.mu.Lock()
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Send reads the message once and deposits a copy into the inbox of each recipient.
// Without recipients, the addresses are taken from the To, Cc and Bcc headers.
// It stops at the first recipient whose inbox simulates errors.
func (t *Transport) Send(ctx context.Context, body io.Reader, recipients ...string) ([]*mock.Message, error) {
	raw, err := t.read(ctx, body)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		recipients, err = headerRecipients(raw)
		if err != nil {
			return nil, err
		}
	}
	if len(recipients) == 0 {
		return nil, lib.ErrNoRecipients
	}

	delivered := make([]*mock.Message, 0, len(recipients))
	for _, recipient := range recipients {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		inbox := t.registry.Mailbox(recipient).Inbox()
		msg, err := inbox.Deliver(mailbox.MessageProperties{
			InternalDate: time.Now(),
		}, bytes.NewReader(raw))
		if err != nil {
			t.log.Printf("message not delivered to %q: %v", recipient, err)
			t.notify(Event{Type: NotDelivered, Recipient: recipient})
			return delivered, fmt.Errorf("sending message to %s: %w", recipient, err)
		}
		t.log.Printf("message delivered to %q", recipient)
		t.notify(Event{Type: Delivered, Recipient: recipient, Message: msg})
		delivered = append(delivered, msg)
	}
	return delivered, nil
}

func (t *Transport) read(ctx context.Context, body io.Reader) ([]byte, error) {
	if t.bytesPerSec > 0 {
		reader := limitio.NewReaderWithContext(ctx, body)
		reader.SetRateLimit(t.bytesPerSec, t.burst)
		body = reader
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("cannot read message: %w", err)
	}
	return raw, nil
}

func headerRecipients(raw []byte) ([]string, error) {
	header, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrInvalidHeader, err)
	}
	mailHeader := &mail.Header{Header: message.Header{Header: header}}

	recipients := make([]string, 0)
	for _, key := range []string{"To", "Cc", "Bcc"} {
		addresses, err := mailHeader.AddressList(key)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s", lib.ErrInvalidHeader, key, err)
		}
		for _, address := range addresses {
			recipients = append(recipients, address.Address)
		}
	}
	return recipients, nil
}
