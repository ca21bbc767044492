package cfg

import (
	"strings"
	"testing"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/emersion/go-imap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply(t *testing.T) {
	config, err := Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)

	registry := mock.NewRegistryWithLogger(lib.NewTestLogger(t, "mock"))
	require.NoError(t, Apply(registry, config))

	// only the mock accounts get a mailbox
	assert.Equal(t, []string{"alice@example.com", "bob"}, registry.Accounts())

	alice := registry.Mailbox("alice@example.com")
	messages, err := alice.Inbox().Messages()
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "Lunch?", messages[0].Subject())
	assert.True(t, messages[0].HasFlag(imap.SeenFlag))
	assert.True(t, messages[0].HasFlag(imap.RecentFlag))
	assert.Equal(t, 2020, messages[0].InternalDate().Year())
	assert.Contains(t, string(messages[0].Raw()), "Are you free today?")

	projects, err := alice.Folder("Work/Projects")
	require.NoError(t, err)
	assert.True(t, projects.Exists())
	assert.True(t, projects.IsSubscribed())
	count, err := projects.MessageCount()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	assert.True(t, registry.Mailbox("bob").Inbox().SimulateError())
	assert.ErrorIs(t, registry.Reachable("bob"), lib.ErrSimulatedFailure)
}

func TestApplyInvalidAddress(t *testing.T) {
	config := &Config{
		Accounts: map[string]Account{
			"one": {
				Type: MOCK,
				Folders: []Folder{
					{Path: "INBOX", Messages: []Message{{From: "not an address", Subject: "oops"}}},
				},
			},
		},
	}
	err := Apply(mock.NewRegistry(), config)
	assert.ErrorIs(t, err, lib.ErrInvalidArgument)
}
