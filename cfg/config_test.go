package cfg

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
accounts:
  alice:
    type: mock
    address: Alice <alice@example.com>
    folders:
      - path: INBOX
        messages:
          - from: bob@example.com
            subject: Lunch?
            body: "Are you free today?"
            flags: ["\\Seen"]
            date: 2020-10-20T12:11:00Z
      - path: Work/Projects
        subscribed: true
        generate: 5
  bob:
    type: mock
    simulateError: true
  archive:
    type: maildir
    root: /tmp/archive
  backup:
    type: local
    file: /tmp/backup.db
  server:
    type: imap
    serverURL: localhost:993
    username: alice
    password: secret
`

func TestLoadConfig(t *testing.T) {
	config, err := Load(strings.NewReader(sampleConfig))
	require.NoError(t, err)
	require.Len(t, config.Accounts, 5)

	alice := config.Accounts["alice"]
	assert.Equal(t, MOCK, alice.Type)
	assert.Equal(t, "Alice <alice@example.com>", alice.AccountAddress("alice"))
	require.Len(t, alice.Folders, 2)
	assert.Equal(t, "Lunch?", alice.Folders[0].Messages[0].Subject)
	assert.Equal(t, []string{`\Seen`}, alice.Folders[0].Messages[0].Flags)
	assert.Equal(t, 5, alice.Folders[1].Generate)
	assert.True(t, alice.Folders[1].Subscribed)

	assert.Equal(t, "bob", config.Accounts["bob"].AccountAddress("bob"))
	assert.True(t, config.Accounts["bob"].SimulateError)
	assert.Equal(t, "/tmp/archive", config.Accounts["archive"].Root)
	assert.Equal(t, "localhost:993", config.Accounts["server"].ServerURL)
}

func TestLoadEmptyConfig(t *testing.T) {
	config, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, config.Accounts)
}

func TestLoadFromFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "mailmock.yaml")
	require.NoError(t, os.WriteFile(fileName, []byte(sampleConfig), 0o600))

	config, err := LoadFromFile(fileName)
	require.NoError(t, err)
	assert.Len(t, config.Accounts, 5)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestInvalidConfig(t *testing.T) {
	fixtures := []struct {
		name   string
		config string
	}{
		{"unknown type", "accounts:\n  one:\n    type: pop3\n"},
		{"imap without server", "accounts:\n  one:\n    type: imap\n"},
		{"maildir without root", "accounts:\n  one:\n    type: maildir\n"},
		{"local without file", "accounts:\n  one:\n    type: local\n"},
		{"folder without path", "accounts:\n  one:\n    type: mock\n    folders:\n      - subscribed: true\n"},
		{"negative generate", "accounts:\n  one:\n    type: mock\n    folders:\n      - path: Work\n        generate: -1\n"},
	}

	for _, fixture := range fixtures {
		t.Run(fixture.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(fixture.config))
			assert.ErrorIs(t, err, lib.ErrInvalidArgument)
		})
	}
}

func TestUnknownField(t *testing.T) {
	_, err := Load(strings.NewReader("accounts:\n  one:\n    type: mock\n    colour: blue\n"))
	assert.Error(t, err)
}
