package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/creativeprojects/mailmock/cfg"
	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/creativeprojects/mailmock/storage/local"
	"github.com/creativeprojects/mailmock/storage/mdir"
	"github.com/creativeprojects/mailmock/storage/mem"
	"github.com/creativeprojects/mailmock/storage/remote"
)

type Backend interface {
	// DebugLogger sets a logger to send debug information to
	DebugLogger(logger lib.Logger)
	// Delimiter used to construct a path of mailboxes with its children
	Delimiter() string
	// SupportMessageID indicates if the backend support unique IDs (like the IMAP UIDPLUS extension)
	SupportMessageID() bool
	// Close the backend
	Close() error
	CreateMailbox(info mailbox.Info) error
	ListMailbox() ([]mailbox.Info, error)
	DeleteMailbox(info mailbox.Info) error
	// SelectMailbox opens the current mailbox for fetching messages
	SelectMailbox(info mailbox.Info) (*mailbox.Status, error)
	PutMessage(info mailbox.Info, props mailbox.MessageProperties, body io.Reader) (mailbox.MessageID, error)
	// FetchMessages needs a mailbox to be selected first. It closes the channel when done.
	FetchMessages(ctx context.Context, messages chan *mailbox.Message) error
	// UnselectMailbox after fetching messages
	UnselectMailbox() error
}

// Progresser receives one increment per message transferred
type Progresser interface {
	Increment()
}

// verify interface
var (
	_ Backend = &remote.Imap{}
	_ Backend = &local.BoltStore{}
	_ Backend = &mdir.Maildir{}
	_ Backend = &mem.Backend{}
)

// NewBackend opens the backend of the account. Mock accounts are served from the registry.
func NewBackend(registry *mock.Registry, name string, config cfg.Account, logger lib.Logger) (Backend, error) {
	switch config.Type {
	case cfg.MOCK:
		return mem.NewWithLogger(registry.Mailbox(config.AccountAddress(name)), logger), nil
	case cfg.IMAP:
		return remote.NewImap(remote.Config{
			ServerURL:           config.ServerURL,
			Username:            config.Username,
			Password:            config.Password,
			SkipTLSVerification: config.SkipVerify,
			DebugLogger:         logger,
		})
	case cfg.LOCAL:
		backend, err := local.NewBoltStoreWithLogger(config.File, logger)
		if err != nil {
			return nil, err
		}
		if err := backend.Init(); err != nil {
			_ = backend.Close()
			return nil, err
		}
		return backend, nil
	case cfg.MAILDIR:
		return mdir.NewWithLogger(config.Root, logger)
	default:
		return nil, fmt.Errorf("%w: unsupported account type %q", lib.ErrUnsupported, config.Type)
	}
}
