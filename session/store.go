// Package session gives a client view of the simulated store: a connection to one account
// and folder handles that must be opened before reading messages.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mock"
)

type Capability string

const (
	CapIdle      Capability = "IDLE"
	CapHierarchy Capability = "CHILDREN"
	CapQuota     Capability = "QUOTA"
	CapSort      Capability = "SORT"
	CapCondStore Capability = "CONDSTORE"
)

// connection to the mailbox of one account, shared by the IMAP and POP3 views
type connection struct {
	registry *mock.Registry
	log      lib.Logger

	mu        sync.Mutex
	connected bool
	mbox      *mock.Mailbox
}

// Connect opens the mailbox of the account. It fails when the inbox simulates errors.
func (c *connection) Connect(account string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return lib.ErrAlreadyConnected
	}
	if err := c.registry.Reachable(account); err != nil {
		return err
	}
	c.mbox = c.registry.Mailbox(account)
	c.connected = true
	c.log.Printf("connected to %q", c.mbox.Account())
	return nil
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	c.log.Printf("disconnected from %q", c.mbox.Account())
	c.connected = false
	return nil
}

func (c *connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.connected
}

func (c *connection) mailbox() (*mock.Mailbox, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, lib.ErrNotConnected
	}
	return c.mbox, nil
}

// Store is the IMAP view of the mailbox of one account: a tree of folders
type Store struct {
	connection
}

func NewStore(registry *mock.Registry) *Store {
	return NewStoreWithLogger(registry, nil)
}

func NewStoreWithLogger(registry *mock.Registry, logger lib.Logger) *Store {
	return &Store{
		connection: connection{
			registry: registry,
			log:      lib.OrNoLog(logger),
		},
	}
}

// DefaultFolder returns a handle on the root folder
func (s *Store) DefaultFolder() (*Folder, error) {
	mbox, err := s.mailbox()
	if err != nil {
		return nil, err
	}
	return newFolder(s, mbox.Root()), nil
}

// Folder returns a handle on the folder at path, which doesn't need to exist
func (s *Store) Folder(path string) (*Folder, error) {
	mbox, err := s.mailbox()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return newFolder(s, mbox.Root()), nil
	}
	folder, err := mbox.Folder(path)
	if err != nil {
		return nil, err
	}
	return newFolder(s, folder), nil
}

// PersonalNamespaces has only one namespace: the root folder
func (s *Store) PersonalNamespaces() ([]*Folder, error) {
	root, err := s.DefaultFolder()
	if err != nil {
		return nil, err
	}
	return []*Folder{root}, nil
}

// HasCapability answers for the IMAP CAPABILITY names
func (s *Store) HasCapability(name string) bool {
	name = strings.ToUpper(name)
	return strings.HasPrefix(name, "IMAP4") || name == string(CapIdle) || name == "ID"
}

// Supports returns lib.ErrUnsupported for the features of a real server the store doesn't simulate
func (s *Store) Supports(capability Capability) error {
	switch capability {
	case CapIdle, CapHierarchy:
		return nil
	}
	return fmt.Errorf("%w: %s", lib.ErrUnsupported, capability)
}

// ID returns the server identification
func (s *Store) ID(client map[string]string) map[string]string {
	s.log.Printf("client ID: %v", client)
	return map[string]string{
		"name":   "mailmock",
		"vendor": "creativeprojects",
	}
}

func (s *Store) Quota(root string) ([]string, error) {
	return nil, s.Supports(CapQuota)
}

func (s *Store) SetQuota(root string, limits map[string]uint32) error {
	return s.Supports(CapQuota)
}
