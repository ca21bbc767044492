package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sync"
	"sync/atomic"

	"github.com/creativeprojects/mailmock/idle"
	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/creativeprojects/mailmock/mock"
	"github.com/emersion/go-imap"
	"github.com/rs/xid"
)

type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

// Folder is a client handle on a folder. Every call first aborts a running Idle.
type Folder struct {
	store  *Store
	folder *mock.Folder
	id     xid.ID
	ctrl   *idle.Controller
	log    lib.Logger

	mu          sync.Mutex
	opened      atomic.Bool
	mode        Mode
	unsubscribe func()

	listenersMu sync.Mutex
	listeners   []mock.EventSink
}

func newFolder(store *Store, folder *mock.Folder) *Folder {
	id := xid.New()
	log := lib.WithPrefix(store.log, "folder "+id.String())
	return &Folder{
		store:  store,
		folder: folder,
		id:     id,
		ctrl:   idle.NewWithLogger(log),
		log:    log,
	}
}

// ID identifies the handle in logs
func (h *Folder) ID() string {
	return h.id.String()
}

func (h *Folder) Name() string {
	return h.folder.Name()
}

func (h *Folder) FullName() string {
	return h.folder.FullPath()
}

func (h *Folder) Separator() string {
	return mock.Separator
}

func (h *Folder) String() string {
	return h.folder.String()
}

func (h *Folder) Exists() bool {
	h.ctrl.AbortIfWaiting()
	return h.folder.Exists()
}

func (h *Folder) IsOpen() bool {
	return h.opened.Load()
}

func (h *Folder) Mode() Mode {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.mode
}

func (h *Folder) checkOpened() error {
	if !h.opened.Load() {
		return fmt.Errorf("%w: %s", lib.ErrFolderClosed, h)
	}
	return nil
}

func (h *Folder) checkClosed() error {
	if h.opened.Load() {
		return fmt.Errorf("%w: %s", lib.ErrFolderOpen, h)
	}
	return nil
}

func (h *Folder) checkExists() error {
	if !h.folder.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrFolderNotFound, h)
	}
	return nil
}

func (h *Folder) checkWriteMode() error {
	if h.Mode() != ReadWrite {
		return fmt.Errorf("%w: %s", lib.ErrReadOnlyFolder, h)
	}
	return nil
}

// checkTarget verifies the target folder is in the same mailbox and exists
func (h *Folder) checkTarget(target *Folder) error {
	if target == nil || target.folder.Mailbox() != h.folder.Mailbox() {
		return lib.ErrCrossMailbox
	}
	if !target.folder.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrFolderNotFound, target)
	}
	return nil
}

// Parent returns a handle on the parent folder
func (h *Folder) Parent() (*Folder, error) {
	h.ctrl.AbortIfWaiting()
	parent := h.folder.Parent()
	if parent == nil {
		return nil, fmt.Errorf("%w: no parent, %s is the root folder", lib.ErrFolderNotFound, h)
	}
	return newFolder(h.store, parent), nil
}

// List returns the existing children matching the pattern ("*" and "%" match anything)
func (h *Folder) List(pattern string) ([]*Folder, error) {
	return h.list(pattern, false)
}

func (h *Folder) ListSubscribed(pattern string) ([]*Folder, error) {
	return h.list(pattern, true)
}

func (h *Folder) list(pattern string, subscribed bool) ([]*Folder, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkExists(); err != nil {
		return nil, err
	}
	list := make([]*Folder, 0)
	for _, child := range h.folder.Children() {
		if subscribed && !child.IsSubscribed() {
			continue
		}
		if !matchName(pattern, child.Name()) {
			continue
		}
		list = append(list, newFolder(h.store, child))
	}
	return list, nil
}

func matchName(pattern, name string) bool {
	if pattern == "" || pattern == "*" || pattern == "%" {
		return true
	}
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}

func (h *Folder) Create() error {
	h.ctrl.AbortIfWaiting()
	return h.folder.Create()
}

func (h *Folder) Delete(recurse bool) error {
	h.ctrl.AbortIfWaiting()
	if err := h.checkClosed(); err != nil {
		return err
	}
	return h.folder.DeleteFolder(recurse)
}

// RenameTo gives the folder the name of the target. The folder must be closed.
func (h *Folder) RenameTo(target *Folder) error {
	h.ctrl.AbortIfWaiting()
	if err := h.checkClosed(); err != nil {
		return err
	}
	if err := h.checkExists(); err != nil {
		return err
	}
	if target == nil || target.folder.Mailbox() != h.folder.Mailbox() {
		return lib.ErrCrossMailbox
	}
	return h.folder.Rename(target.Name())
}

func (h *Folder) Subscribe(subscribe bool) {
	h.ctrl.AbortIfWaiting()
	h.folder.Subscribe(subscribe)
}

func (h *Folder) IsSubscribed() bool {
	h.ctrl.AbortIfWaiting()
	return h.folder.IsSubscribed()
}

// Open starts receiving the folder events
func (h *Folder) Open(mode Mode) error {
	h.ctrl.AbortIfWaiting()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkClosed(); err != nil {
		return err
	}
	if err := h.checkExists(); err != nil {
		return err
	}
	h.mode = mode
	h.unsubscribe = h.folder.AddSink(h)
	h.opened.Store(true)
	h.log.Printf("opened %s", h)
	return nil
}

// Close stops receiving the folder events, expunging the deleted messages first when asked
func (h *Folder) Close(expunge bool) error {
	h.ctrl.AbortIfWaiting()

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.checkOpened(); err != nil {
		return err
	}
	if expunge && h.mode == ReadWrite && h.folder.Exists() {
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

// AddListener registers a sink receiving the folder events while the handle is open.
// The sink is called once the folder is unlocked: it can use the handle.
func (h *Folder) AddListener(sink mock.EventSink) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()

	h.listeners = append(h.listeners, sink)
}

// HandleEvent receives the events of the underlying folder
func (h *Folder) HandleEvent(event mock.Event) {
	switch event.(type) {
	case mock.MessageAdded, mock.MessageChanged, mock.MessageExpunged, mock.FolderDeleted:
		h.ctrl.Release(func() { h.notify(event) })
	default:
		h.notify(event)
	}
}

func (h *Folder) notify(event mock.Event) {
	h.listenersMu.Lock()
	listeners := append([]mock.EventSink(nil), h.listeners...)
	h.listenersMu.Unlock()

	for _, listener := range listeners {
		listener.HandleEvent(event)
	}
}

// Idle blocks until the folder changes (once) or until another call on the handle,
// the folder is closed or deleted, or ctx is done.
func (h *Folder) Idle(ctx context.Context, once bool) error {
	if err := h.checkOpened(); err != nil {
		return err
	}
	return h.ctrl.Wait(ctx, once, func() bool {
		return h.opened.Load() && h.folder.Exists()
	})
}

// IdleState is the state of the idle controller of this handle
func (h *Folder) IdleState() idle.State {
	return h.ctrl.State()
}

func (h *Folder) MessageCount() (int, error) {
	h.ctrl.AbortIfWaiting()
	return h.folder.MessageCount()
}

// NewMessageCount counts the messages with the \Recent flag
func (h *Folder) NewMessageCount() (int, error) {
	return h.countFlags(imap.RecentFlag, true)
}

// UnreadMessageCount counts the messages without the \Seen flag
func (h *Folder) UnreadMessageCount() (int, error) {
	return h.countFlags(imap.SeenFlag, false)
}

// DeletedMessageCount counts the messages with the \Deleted flag
func (h *Folder) DeletedMessageCount() (int, error) {
	return h.countFlags(imap.DeletedFlag, true)
}

func (h *Folder) countFlags(flag string, set bool) (int, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return 0, err
	}
	messages, err := h.folder.GetByFlags([]string{flag}, set)
	if err != nil {
		return 0, err
	}
	return len(messages), nil
}

// Message returns the message by its sequence number
func (h *Folder) Message(seqNum int) (*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.GetByMessageNumber(seqNum)
}

func (h *Folder) Messages() ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.Messages()
}

func (h *Folder) MessageByUID(uid uint64) (*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.GetByID(uid)
}

// MessagesByUIDRange accepts mock.LastUID as the upper bound
func (h *Folder) MessagesByUIDRange(lo, hi uint64) ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.GetByIDRange(lo, hi)
}

func (h *Folder) MessagesByUIDs(uids []uint64) ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.GetByIDs(uids)
}

// UID returns the UID of a message of this folder
func (h *Folder) UID(msg *mock.Message) (uint64, error) {
	h.ctrl.AbortIfWaiting()
	if msg == nil || msg.Folder() != h.folder || msg.Expunged() {
		return 0, fmt.Errorf("%w in %s", lib.ErrMessageNotFound, h)
	}
	return msg.ID(), nil
}

func (h *Folder) UIDValidity() (uint32, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkExists(); err != nil {
		return 0, err
	}
	return h.folder.UIDValidity(), nil
}

func (h *Folder) UIDNext() (uint64, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkExists(); err != nil {
		return 0, err
	}
	return h.folder.UIDNext(), nil
}

// Status returns the folder counters without opening it
func (h *Folder) Status() (*mailbox.Status, error) {
	h.ctrl.AbortIfWaiting()
	return h.folder.Status()
}

// Append adds a message and returns its UID
func (h *Folder) Append(props mailbox.MessageProperties, body io.Reader) (uint64, error) {
	h.ctrl.AbortIfWaiting()
	msg, err := h.folder.Append(props, body)
	if err != nil {
		return 0, err
	}
	return msg.ID(), nil
}

// AppendMessages copies the messages (content, flags and internal date) and returns the new UIDs
func (h *Folder) AppendMessages(messages []*mock.Message) ([]uint64, error) {
	h.ctrl.AbortIfWaiting()
	return h.appendMessages(messages)
}

func (h *Folder) appendMessages(messages []*mock.Message) ([]uint64, error) {
	uids := make([]uint64, 0, len(messages))
	for _, msg := range messages {
		copied, err := h.folder.Append(mailbox.MessageProperties{
			Flags:        msg.Flags(),
			InternalDate: msg.InternalDate(),
		}, bytes.NewReader(msg.Raw()))
		if err != nil {
			return uids, err
		}
		uids = append(uids, copied.ID())
	}
	return uids, nil
}

func (h *Folder) SetFlags(messages []*mock.Message, flags []string, on bool) error {
	h.ctrl.AbortIfWaiting()
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

// Expunge removes the messages flagged \Deleted. The folder must be open read-write.
func (h *Folder) Expunge() ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	if err := h.checkWriteMode(); err != nil {
		return nil, err
	}
	return h.folder.Expunge()
}

// ExpungeMessages removes the messages of the list flagged \Deleted
func (h *Folder) ExpungeMessages(messages []*mock.Message) ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	if err := h.checkWriteMode(); err != nil {
		return nil, err
	}
	return h.folder.ExpungeSubset(messages)
}

func (h *Folder) Search(term mock.SearchTerm, subset []*mock.Message) ([]*mock.Message, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	return h.folder.Search(term, subset)
}

// CopyTo appends the messages to the target folder and returns the new UIDs
func (h *Folder) CopyTo(messages []*mock.Message, target *Folder) ([]uint64, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	if err := h.checkTarget(target); err != nil {
		return nil, err
	}
	target.ctrl.AbortIfWaiting()
	return target.appendMessages(messages)
}

// MoveTo appends the messages to the target folder then deletes them from this one
func (h *Folder) MoveTo(messages []*mock.Message, target *Folder) ([]uint64, error) {
	h.ctrl.AbortIfWaiting()
	if err := h.checkOpened(); err != nil {
		return nil, err
	}
	if err := h.checkWriteMode(); err != nil {
		return nil, err
	}
	if err := h.checkTarget(target); err != nil {
		return nil, err
	}
	target.ctrl.AbortIfWaiting()
	uids, err := target.appendMessages(messages)
	if err != nil {
		return uids, err
	}
	return uids, h.folder.Delete(messages)
}

// InvalidateUID increases the UID validity of the folder
func (h *Folder) InvalidateUID() error {
	h.ctrl.AbortIfWaiting()
	return h.folder.InvalidateUID()
}

// Features of a real server not simulated

func (h *Folder) HighestModSeq() (uint64, error) {
	return 0, h.store.Supports(CapCondStore)
}

func (h *Folder) MessagesChangedSince(modSeq uint64) ([]*mock.Message, error) {
	return nil, h.store.Supports(CapCondStore)
}

func (h *Folder) OpenResync(mode Mode, uidValidity uint32, modSeq uint64) error {
	return h.store.Supports(CapCondStore)
}

func (h *Folder) Sort(criteria []string, term mock.SearchTerm) ([]*mock.Message, error) {
	return nil, h.store.Supports(CapSort)
}

func (h *Folder) Quota() ([]string, error) {
	return h.store.Quota(h.FullName())
}
