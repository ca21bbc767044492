package mock

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const htmlMessage = "From: news@example.com\r\n" +
	"To: contact@example.org\r\n" +
	"Subject: Newsletter\r\n" +
	"Date: Thu, 12 May 2016 10:00:00 +0000\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><p>Big <b>discount</b> today</p></body></html>"

func TestSearch(t *testing.T) {
	inbox := newTestMailbox(t).Inbox()
	first := appendSample(t, inbox, "quarterly report", imap.SeenFlag)
	second := appendSample(t, inbox, "holiday pictures")
	third, err := inbox.Append(mailbox.MessageProperties{}, strings.NewReader(htmlMessage))
	require.NoError(t, err)

	fixtures := []struct {
		name     string
		term     SearchTerm
		subset   []*Message
		expected []*Message
	}{
		{"nil term", nil, nil, []*Message{}},
		{"subject", Criteria(&imap.SearchCriteria{Header: map[string][]string{"Subject": {"report"}}}), nil, []*Message{first}},
		{"from", Criteria(&imap.SearchCriteria{Header: map[string][]string{"From": {"news@"}}}), nil, []*Message{third}},
		{"unseen", Criteria(&imap.SearchCriteria{WithoutFlags: []string{imap.SeenFlag}}), nil, []*Message{second, third}},
		{"body text", Criteria(&imap.SearchCriteria{Body: []string{"there"}}), nil, []*Message{first, second}},
		{"html text", Text("DISCOUNT"), nil, []*Message{third}},
		{"flag set", FlagTerm([]string{"\\seen"}, true), nil, []*Message{first}},
		{"flag not set", FlagTerm([]string{imap.SeenFlag}, false), nil, []*Message{second, third}},
		{"and", And(FlagTerm([]string{imap.RecentFlag}, true), Text("hi there")), nil, []*Message{first, second}},
		{"or", Or(Text("discount"), FlagTerm([]string{imap.SeenFlag}, true)), nil, []*Message{first, third}},
		{"not", Not(Text("discount")), nil, []*Message{first, second}},
		{"subset", FlagTerm([]string{imap.RecentFlag}, true), []*Message{third, first}, []*Message{first, third}},
		{"empty subset", FlagTerm([]string{imap.RecentFlag}, true), []*Message{}, []*Message{}},
	}

	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			found, err := inbox.Search(fixture.term, fixture.subset)
			require.NoError(t, err)
			assert.Equal(t, ids(fixture.expected), ids(found))
		})
	}
}

func TestSearchByUID(t *testing.T) {
	inbox := newTestMailbox(t).Inbox()
	for i := 0; i < 5; i++ {
		appendSample(t, inbox, fmt.Sprintf("message %d", i))
	}
	uids := new(imap.SeqSet)
	uids.AddRange(12, 13)

	found, err := inbox.Search(Criteria(&imap.SearchCriteria{Uid: uids}), nil)
	require.NoError(t, err)
	assert.Equal(t, []uint64{12, 13}, ids(found))
}

func TestCriteriaUIDAbove32Bits(t *testing.T) {
	assert.Equal(t, uint32(12), imapUID(12))
	assert.Equal(t, uint32(math.MaxUint32), imapUID(math.MaxUint32))
	assert.Equal(t, uint32(math.MaxUint32), imapUID(1<<32+5))

	inbox := newTestMailbox(t).Inbox()
	inbox.mu.Lock()
	inbox.lastID = 1<<32 + 4
	inbox.mu.Unlock()
	msg := appendSample(t, inbox, "large uid")
	require.Equal(t, uint64(1<<32+5), msg.ID())

	low, err := imap.ParseSeqSet("1:10")
	require.NoError(t, err)
	found, err := inbox.Search(Criteria(&imap.SearchCriteria{Uid: low}), nil)
	require.NoError(t, err)
	assert.Empty(t, found)

	last, err := imap.ParseSeqSet("4294967295")
	require.NoError(t, err)
	found, err = inbox.Search(Criteria(&imap.SearchCriteria{Uid: last}), nil)
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
