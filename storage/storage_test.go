package storage_test

import (
	"bytes"
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/creativeprojects/mailmock/storage"
	"github.com/creativeprojects/mailmock/storage/local"
	"github.com/creativeprojects/mailmock/storage/mdir"
	"github.com/creativeprojects/mailmock/storage/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testProgress struct {
	count uint32
}

func (p *testProgress) Increment() {
	p.count++
}

func newMemBackend(t *testing.T, account string) *mem.Backend {
	t.Helper()
	registry := mock.NewRegistryWithLogger(lib.NewTestLogger(t, "mock"))
	return mem.NewWithLogger(registry.Mailbox(account), lib.NewTestLogger(t, account))
}

func runCopyMailbox(t *testing.T, backend storage.Backend) {
	t.Helper()
	var total uint32 = 23
	info := mailbox.Info{Name: "Mailbox Copy", Delimiter: "."}

	source := newMemBackend(t, "source@example.com")
	require.NoError(t, source.GenerateFakeEmails(info, total, 100, 10000))

	progress := &testProgress{}
	copied, err := storage.CopyMessages(context.Background(), source, backend, info, progress, lib.NewTestLogger(t, "copy"))
	require.NoError(t, err)

	assert.Equal(t, total, progress.count)
	assert.Equal(t, int(total), copied)

	// Verify the mailbox shows the right number of messages
	status, err := backend.SelectMailbox(info)
	require.NoError(t, err)
	assert.Equal(t, info.Name, status.Name)
	assert.Equal(t, total, status.Messages)

	err = backend.UnselectMailbox()
	assert.NoError(t, err)
	err = backend.DeleteMailbox(info)
	assert.NoError(t, err)
}

func TestCopyToMemoryBackend(t *testing.T) {
	runCopyMailbox(t, newMemBackend(t, "destination@example.com"))
}

func TestCopyToMaildirBackend(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("maildir is not supported on Windows")
	}
	backend, err := mdir.NewWithLogger(t.TempDir(), lib.NewTestLogger(t, "maildir"))
	require.NoError(t, err)
	defer backend.Close()

	runCopyMailbox(t, backend)
}

func TestCopyToStoreBackend(t *testing.T) {
	backend, err := local.NewBoltStoreWithLogger(filepath.Join(t.TempDir(), "store.db"), lib.NewTestLogger(t, "bolt"))
	require.NoError(t, err)
	defer backend.Close()

	runCopyMailbox(t, backend)
}

func TestCopyFromMissingMailbox(t *testing.T) {
	source := newMemBackend(t, "source@example.com")
	destination := newMemBackend(t, "destination@example.com")

	_, err := storage.CopyMessages(context.Background(), source, destination, mailbox.NewInfo("/", "Missing"), nil, nil)
	assert.ErrorIs(t, err, lib.ErrMailboxNotFound)
}

func TestLoadMessagePropertiesAndDuplicates(t *testing.T) {
	backend := newMemBackend(t, "user@example.com")
	info := mailbox.NewInfo("/", "Work")
	require.NoError(t, backend.CreateMailbox(info))

	bodies := []string{
		"Subject: one\r\n\r\nfirst",
		"Subject: two\r\n\r\nsecond",
		"Subject: one\r\n\r\nfirst",
	}
	for _, body := range bodies {
		_, err := backend.PutMessage(info, mailbox.MessageProperties{}, bytes.NewBufferString(body))
		require.NoError(t, err)
	}

	progress := &testProgress{}
	messages, err := storage.LoadMessageProperties(context.Background(), backend, info, progress)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, uint32(3), progress.count)
	for _, msg := range messages {
		assert.Nil(t, msg.Body)
		assert.NotEmpty(t, msg.Hash)
	}

	duplicates := storage.Duplicates(messages)
	require.Len(t, duplicates, 1)
	require.Len(t, duplicates[0], 2)
	assert.Equal(t, messages[0].Uid, duplicates[0][0].Uid)
	assert.Equal(t, messages[2].Uid, duplicates[0][1].Uid)
}

func TestNewBackend(t *testing.T) {
	registry := mock.NewRegistryWithLogger(lib.NewTestLogger(t, "mock"))

	backend, err := storage.NewBackend(registry, "alice", cfg.Account{Type: cfg.MOCK, Address: "alice@example.com"}, nil)
	require.NoError(t, err)
	assert.Equal(t, mock.Separator, backend.Delimiter())
	list, err := backend.ListMailbox()
	require.NoError(t, err)
	assert.Equal(t, []mailbox.Info{{Delimiter: "/", Name: "INBOX"}}, list)
	assert.Equal(t, []string{"alice@example.com"}, registry.Accounts())

	backend, err = storage.NewBackend(registry, "backup", cfg.Account{Type: cfg.LOCAL, File: filepath.Join(t.TempDir(), "backup.db")}, nil)
	require.NoError(t, err)
	assert.NoError(t, backend.Close())

	_, err = storage.NewBackend(registry, "other", cfg.Account{Type: "pop3"}, nil)
	assert.ErrorIs(t, err, lib.ErrUnsupported)
}
