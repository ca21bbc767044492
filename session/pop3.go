package session

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/rs/xid"
)

// POP3Store is the POP3 view of the mailbox of one account: the inbox is the only folder
type POP3Store struct {
	connection
}

func NewPOP3Store(registry *mock.Registry) *POP3Store {
	return NewPOP3StoreWithLogger(registry, nil)
}

func NewPOP3StoreWithLogger(registry *mock.Registry, logger lib.Logger) *POP3Store {
	return &POP3Store{
		connection: connection{
			registry: registry,
			log:      lib.OrNoLog(logger),
		},
	}
}

// Capabilities is empty: the CAPA command is not simulated
func (s *POP3Store) Capabilities() map[string]string {
	return map[string]string{}
}

// List returns the names of the folders, which is only INBOX
func (s *POP3Store) List() ([]string, error) {
	if _, err := s.mailbox(); err != nil {
		return nil, err
	}
	return []string{mock.InboxName}, nil
}

// Folder returns a handle on the inbox. Any other name is unsupported.
func (s *POP3Store) Folder(name string) (*POP3Folder, error) {
	mbox, err := s.mailbox()
	if err != nil {
		return nil, err
	}
	if !isInbox(name) {
		return nil, fmt.Errorf("%w: POP3 has no folder %q, only %s", lib.ErrUnsupported, name, mock.InboxName)
	}
	return newPOP3Folder(s, mbox.Inbox()), nil
}

func isInbox(name string) bool {
	return strings.EqualFold(name, mock.InboxName)
}

// POP3Folder is a client handle on the inbox. Deleted messages are expunged on Close,
// whatever the mode.
type POP3Folder struct {
	store  *POP3Store
	folder *mock.Folder
	id     xid.ID
	log    lib.Logger

	mu          sync.Mutex
	opened      atomic.Bool
	unsubscribe func()

	listenersMu sync.Mutex
	listeners   []mock.EventSink
}

func newPOP3Folder(store *POP3Store, folder *mock.Folder) *POP3Folder {
	id := xid.New()
	return &POP3Folder{
		store:  store,
		folder: folder,
		id:     id,
		log:    lib.WithPrefix(store.log, "pop3 "+id.String()),
	}
}

func (h *POP3Folder) ID() string {
	return h.id.String()
}

func (h *POP3Folder) Name() string {
	return h.folder.Name()
}

func (h *POP3Folder) String() string {
	return h.folder.String()
}

func (h *POP3Folder) IsOpen() bool {
	return h.opened.Load()
}

func (h *POP3Folder) checkOpened() error {
	if !h.opened.Load() {
		return fmt.Errorf("%w: %s", lib.ErrFolderClosed, h)
	}
	return nil
}

// Open starts receiving the flag changes. The mode makes no difference.
func (h *POP3Folder) Open(mode Mode) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.opened.Load() {
		return fmt.Errorf("%w: %s", lib.ErrFolderOpen, h)
	}
	h.unsubscribe = h.folder.AddSink(h)
	h.opened.Store(true)
	h.log.Printf("opened %s", h)
	return nil
}

// Close ends the session, removing the messages flagged \Deleted when expunge is set
func (h *POP3Folder) Close(expunge bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkOpened(); err != nil {
		return err
	}
	if expunge {
		if _, err := h.folder.Expunge(); err != nil {
			return err
		}
	}
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
	h.opened.Store(false)
	h.log.Printf("closed %s", h)
	return nil
}

// AddListener registers a sink receiving the flag changes while the handle is open
func (h *POP3Folder) AddListener(sink mock.EventSink) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	h.listeners = append(h.listeners, sink)
}

// HandleEvent only forwards the flag changes: POP3 has no other notification
func (h *POP3Folder) HandleEvent(event mock.Event) {
	if _, ok := event.(mock.MessageChanged); !ok {
		return
	}
	h.listenersMu.Lock()
	listeners := append([]mock.EventSink(nil), h.listeners...)
	h.listenersMu.Unlock()

	for _, listener := range listeners {
		listener.HandleEvent(event)
	}
}

// MessageCount also works on a closed handle
func (h *POP3Folder) MessageCount() (int, error) {
	return h.folder.MessageCount()
}

// Message returns the message number n, starting at 1
func (h *POP3Folder) Message(n int) (*mock.Message, error) {
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.GetByMessageNumber(n)
}

func (h *POP3Folder) Messages() ([]*mock.Message, error) {
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.Messages()
}

// MessagesRange returns the messages numbered from lo to hi included.
// It fails when a number is out of range.
func (h *POP3Folder) MessagesRange(lo, hi int) ([]*mock.Message, error) {
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	messages := make([]*mock.Message, 0)
	for n := lo; n <= hi; n++ {
		msg, err := h.folder.GetByMessageNumber(n)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// MessagesByNumbers returns the messages whose number is in the list, in folder order.
// Unknown numbers are ignored.
func (h *POP3Folder) MessagesByNumbers(numbers []int) ([]*mock.Message, error) {
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	wanted := make(map[uint32]bool, len(numbers))
	for _, n := range numbers {
		if n > 0 {
			wanted[uint32(n)] = true
		}
	}
	all, err := h.folder.Messages()
	if err != nil {
		return nil, err
	}
	messages := make([]*mock.Message, 0, len(numbers))
	for _, msg := range all {
		if wanted[msg.SeqNum()] {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// Size is the total size of the messages in bytes
func (h *POP3Folder) Size() (uint64, error) {
	sizes, err := h.Sizes()
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, size := range sizes {
		total += uint64(size)
	}
	return total, nil
}

// Sizes returns the size of each message, by message number
func (h *POP3Folder) Sizes() ([]uint32, error) {
	messages, err := h.Messages()
	if err != nil {
		return nil, err
	}
	sizes := make([]uint32, len(messages))
	for i, msg := range messages {
		sizes[i] = msg.Size()
	}
	return sizes, nil
}

// UIDString is the UIDL of the message: its id as a decimal string
func (h *POP3Folder) UIDString(msg *mock.Message) (string, error) {
	if err := h.checkOpened(); err != nil {
		return "", err
	}
	if msg == nil || msg.Folder() != h.folder {
		return "", fmt.Errorf("%w: not in %s", lib.ErrMessageNotFound, h)
	}
	return strconv.FormatUint(msg.ID(), 10), nil
}

// SetFlags is how a POP3 client marks the messages to delete on Close
func (h *POP3Folder) SetFlags(messages []*mock.Message, flags []string, on bool) error {
	if err := h.checkOpened(); err != nil {
		return err
	}
	for _, msg := range messages {
		if err := msg.SetFlags(flags, on); err != nil {
			return err
		}
	}
	return nil
}

// ListCommand sends a raw LIST command, which is not simulated
func (h *POP3Folder) ListCommand() ([]byte, error) {
	return nil, fmt.Errorf("%w: POP3 LIST command", lib.ErrUnsupported)
}

func (h *POP3Folder) Create() error {
	return fmt.Errorf("%w: POP3 cannot create folders", lib.ErrUnsupported)
}

func (h *POP3Folder) Delete(recurse bool) error {
	return fmt.Errorf("%w: POP3 cannot delete folders", lib.ErrUnsupported)
}

func (h *POP3Folder) RenameTo(name string) error {
	return fmt.Errorf("%w: POP3 cannot rename folders", lib.ErrUnsupported)
}
