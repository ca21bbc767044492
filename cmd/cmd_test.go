package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
accounts:
  alice:
    type: MOCK
    address: alice@example.com
  archive:
    type: MAILDIR
    root: /tmp/archive
`

func loadTestConfig(t *testing.T) {
	t.Helper()
	loaded, err := cfg.Load(strings.NewReader(testConfig))
	require.NoError(t, err)
	previous := config
	config = loaded
	t.Cleanup(func() {
		config = previous
	})
}

func TestDisplayFlags(t *testing.T) {
	assert.Equal(t, "", displayFlags(nil))
	assert.Equal(t, "Seen, Flagged, $Label1", displayFlags([]string{"\\Seen", "\\Flagged", "$Label1"}))
}

func TestTotalSize(t *testing.T) {
	messages := []mailbox.Message{
		{MessageProperties: mailbox.MessageProperties{Size: 100}},
		{MessageProperties: mailbox.MessageProperties{Size: 250}},
	}
	assert.Equal(t, uint64(350), totalSize(messages))
	assert.Equal(t, uint64(0), totalSize(nil))
}

func TestAccountFromConfig(t *testing.T) {
	loadTestConfig(t)

	alice := account("alice")
	assert.Equal(t, cfg.MOCK, alice.Type)

	address, err := mockAddress("alice")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", address)

	_, err = mockAddress("archive")
	assert.Error(t, err)
}

func TestAccountOnTheFly(t *testing.T) {
	loadTestConfig(t)

	unknown := account("carol@example.com")
	assert.Equal(t, cfg.MOCK, unknown.Type)

	address, err := mockAddress("carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", address)
}

func TestFolderTree(t *testing.T) {
	mbox := mock.NewRegistry().Mailbox("tree@example.com")
	projects, err := mbox.Folder("Work/Projects")
	require.NoError(t, err)
	require.NoError(t, projects.Create())
	projects.Subscribe(true)

	_, err = mbox.Inbox().Append(mailbox.MessageProperties{}, strings.NewReader("Subject: test\r\n\r\nbody\r\n"))
	require.NoError(t, err)

	list, err := folderTree(mbox)
	require.NoError(t, err)
	assert.Equal(t, pterm.LeveledList{
		{Level: 0, Text: "INBOX (1)"},
		{Level: 0, Text: "Work (0)"},
		{Level: 1, Text: "Projects (0) *"},
	}, list)
}

func TestJournalTable(t *testing.T) {
	date := time.Date(2022, 10, 1, 12, 30, 0, 0, time.UTC)
	data := journalTable([]mock.JournalEntry{
		{Date: date, Folder: "INBOX", Event: "added", UID: 3},
		{Date: date, Folder: "INBOX", Event: "deleted"},
	})
	require.Len(t, data, 3)
	assert.Equal(t, "3", data[1][3])
	assert.Equal(t, "", data[2][3])
	assert.Equal(t, "INBOX", data[2][1])
}

func TestDisplayVersion(t *testing.T) {
	defer setApp(appVersion, appCommit, appDate, appBuiltBy)

	setApp("", "", "", "")
	assert.Equal(t, "0.0.0-dev", displayVersion())
	setApp("1.2.3", "abc", "today", "test")
	assert.Equal(t, "1.2.3", displayVersion())
}

func TestSelfUpdateRefusesDevelopmentBuild(t *testing.T) {
	defer setApp(appVersion, appCommit, appDate, appBuiltBy)
	setApp("", "", "", "")

	err := runSelfUpdate(selfUpdateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")
}
