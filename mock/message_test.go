package mock

import (
	"strings"
	"testing"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageIsReadOnly(t *testing.T) {
	msg := appendSample(t, newTestMailbox(t).Inbox(), "read only")

	errs := []error{
		msg.SetHeader("Subject", "changed"),
		msg.AddHeader("X-Test", "value"),
		msg.RemoveHeader("Subject"),
		msg.SetSubject("changed"),
		msg.SetBody(strings.NewReader("changed")),
		msg.SetFrom(&mail.Address{Address: "other@example.com"}),
		msg.SetRecipients("To", &mail.Address{Address: "other@example.com"}),
		msg.SaveChanges(),
	}
	for _, err := range errs {
		assert.ErrorIs(t, err, lib.ErrReadOnly)
		assert.ErrorIs(t, err, lib.ErrInvalidState)
	}
	assert.Equal(t, "read only", msg.Subject())

	// the header copy doesn't change the message
	header := msg.Header()
	header.Set("Subject", "changed")
	assert.Equal(t, "read only", msg.Subject())
}

func TestMessageFlags(t *testing.T) {
	inbox := newTestMailbox(t).Inbox()
	msg := appendSample(t, inbox, "flags", "$Label1")
	sink := &recordSink{}
	inbox.AddSink(sink)

	require.NoError(t, msg.SetFlags([]string{"\\seen", "\\Flagged"}, true))
	assert.True(t, msg.HasFlag(imap.SeenFlag))
	assert.True(t, msg.HasFlag("\\FLAGGED"))
	require.NoError(t, msg.SetFlags([]string{imap.RecentFlag, "$Label1"}, false))
	assert.Equal(t, []string{imap.FlaggedFlag, imap.SeenFlag}, msg.Flags())

	require.Len(t, sink.events, 2)
	for _, event := range sink.events {
		changed, ok := event.(MessageChanged)
		require.True(t, ok)
		assert.True(t, changed.FlagsChanged)
		assert.False(t, changed.HeaderChanged)
		assert.Same(t, msg, changed.Message)
	}
}

func TestMessageAccessors(t *testing.T) {
	inbox := newTestMailbox(t).Inbox()
	msg := appendSample(t, inbox, "accessors")

	date, err := msg.Date()
	require.NoError(t, err)
	assert.Equal(t, 2016, date.Year())
	assert.True(t, sampleDate.Equal(msg.InternalDate()))

	from, err := msg.From()
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, "contact@example.org", from[0].Address)

	assert.Same(t, inbox, msg.Folder())
	assert.Contains(t, string(msg.Raw()), "X-Mock-Folder: INBOX\r\n")
	assert.Contains(t, msg.String(), "message 11")

	env, err := msg.Envelope()
	require.NoError(t, err)
	assert.Equal(t, "Hi there :)", strings.TrimSpace(env.Text))
}

func TestMessageWithoutHeader(t *testing.T) {
	inbox := newTestMailbox(t).Inbox()
	msg, err := inbox.Append(mailbox.MessageProperties{}, strings.NewReader("\r\njust a body"))
	require.NoError(t, err)
	assert.Equal(t, "", msg.Subject())
	assert.Equal(t, "11", msg.GetHeader(HeaderMessageID))
}
