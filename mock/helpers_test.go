package mock

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/stretchr/testify/require"
)

const sampleMessage = "From: contact@example.org\r\n" +
	"To: contact@example.org\r\n" +
	"Subject: %s\r\n" +
	"Date: Wed, 11 May 2016 14:31:59 +0000\r\n" +
	"Message-ID: <0000000@localhost/>\r\n" +
	"Content-Type: text/plain\r\n" +
	"\r\n" +
	"Hi there :)"

var sampleDate = time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC)

func newTestMailbox(t *testing.T) *Mailbox {
	t.Helper()
	return NewRegistryWithLogger(lib.NewTestLogger(t, "mock")).Mailbox("user@example.com")
}

func appendSample(t *testing.T, folder *Folder, subject string, flags ...string) *Message {
	t.Helper()
	msg, err := folder.Append(mailbox.MessageProperties{
		Flags:        flags,
		InternalDate: sampleDate,
	}, strings.NewReader(fmt.Sprintf(sampleMessage, subject)))
	require.NoError(t, err)
	return msg
}

func ids(messages []*Message) []uint64 {
	result := make([]uint64, len(messages))
	for i, msg := range messages {
		result[i] = msg.ID()
	}
	return result
}

func seqNums(messages []*Message) []uint32 {
	result := make([]uint32, len(messages))
	for i, msg := range messages {
		result[i] = msg.SeqNum()
	}
	return result
}

type recordSink struct {
	events []Event
}

func (s *recordSink) HandleEvent(event Event) {
	s.events = append(s.events, event)
}
