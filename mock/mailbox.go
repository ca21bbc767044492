package mock

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/emersion/go-message/mail"
)

// Mailbox is the folder tree of one account
type Mailbox struct {
	account string
	log     lib.Logger
	tree    sync.RWMutex
	root    *Folder
	inbox   *Folder
}

func newMailbox(account string, logger lib.Logger) *Mailbox {
	mbox := &Mailbox{
		account: account,
		log:     logger,
	}
	mbox.root = newFolder(mbox, nil, "", true)
	mbox.inbox = newFolder(mbox, mbox.root, InboxName, true)
	mbox.root.children = []*Folder{mbox.inbox}
	return mbox
}

func (m *Mailbox) Account() string {
	return m.account
}

func (m *Mailbox) Root() *Folder {
	return m.root
}

func (m *Mailbox) Inbox() *Folder {
	return m.inbox
}

// Folder resolves a path from the root, see Folder.GetOrCreateChild
func (m *Mailbox) Folder(path string) (*Folder, error) {
	if isInboxName(path) {
		return m.inbox, nil
	}
	return m.root.GetOrCreateChild(path)
}

// Walk calls fn for every existing folder under the root, parents before children
func (m *Mailbox) Walk(fn func(folder *Folder, depth int) error) error {
	return walk(m.root, 0, fn)
}

func walk(folder *Folder, depth int, fn func(folder *Folder, depth int) error) error {
	for _, child := range folder.Children() {
		if err := fn(child, depth); err != nil {
			return err
		}
		if err := walk(child, depth+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// Registry maps account identities to their mailbox
type Registry struct {
	mu        sync.Mutex
	mailboxes map[string]*Mailbox
	log       lib.Logger
}

func NewRegistry() *Registry {
	return NewRegistryWithLogger(nil)
}

func NewRegistryWithLogger(logger lib.Logger) *Registry {
	return &Registry{
		mailboxes: make(map[string]*Mailbox),
		log:       lib.OrNoLog(logger),
	}
}

// Mailbox returns the mailbox of the account, creating it on first access
func (r *Registry) Mailbox(account string) *Mailbox {
	account = NormalizeAccount(account)

	r.mu.Lock()
	defer r.mu.Unlock()

	mbox, ok := r.mailboxes[account]
	if !ok {
		mbox = newMailbox(account, r.log)
		r.mailboxes[account] = mbox
		r.log.Printf("mailbox created for %q", account)
	}
	return mbox
}

// Lookup returns the mailbox of the account without creating it
func (r *Registry) Lookup(account string) (*Mailbox, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	mbox, ok := r.mailboxes[NormalizeAccount(account)]
	return mbox, ok
}

// Reachable returns an error when the inbox of the account simulates errors
func (r *Registry) Reachable(account string) error {
	mbox := r.Mailbox(account)
	if mbox.Inbox().SimulateError() {
		return fmt.Errorf("%w of %s", lib.ErrConnect, mbox.account)
	}
	return nil
}

// Reset drops all the mailboxes
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mailboxes = make(map[string]*Mailbox)
	r.log.Print("all mailboxes dropped")
}

// Accounts returns the known accounts, sorted
func (r *Registry) Accounts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	accounts := make([]string, 0, len(r.mailboxes))
	for account := range r.mailboxes {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}

// NormalizeAccount reduces "Name <user@example.com>" to "user@example.com", lower case
func NormalizeAccount(account string) string {
	if address, err := mail.ParseAddress(account); err == nil {
		return strings.ToLower(address.Address)
	}
	return strings.ToLower(strings.TrimSpace(account))
}
