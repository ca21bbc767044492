package mock

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-message/textproto"
)

const (
	// Separator between the segments of a folder path
	Separator = "/"
	// InboxName is the name of the special folder every mailbox has
	InboxName = "INBOX"
	// LastUID used as the upper bound of a range means "up to the last message"
	LastUID = ^uint64(0)

	HeaderMessageID = "Message-Id"
	HeaderFolder    = "X-Mock-Folder"

	initialUIDValidity  = 50
	uidValidityIncrease = 10
	initialMessageID    = 10
)

// Folder is a node of the folder tree of a mailbox. The tree fields (name, parent,
// existence) are readable without locking, the messages are protected by the folder lock.
type Folder struct {
	mbox          *Mailbox
	name          atomic.Pointer[string]
	parent        atomic.Pointer[Folder]
	exists        atomic.Bool
	simulateError atomic.Bool
	children      []*Folder // protected by the mailbox tree lock
	log           lib.Logger

	mu          sync.Mutex
	subscribed  bool
	uidValidity uint32
	lastID      uint64
	messages    []*Message
	byID        map[uint64]*Message
	sinks       []sinkEntry
	lastSink    uint64
	pending     []Event
	dispatching bool
}

func newFolder(mbox *Mailbox, parent *Folder, name string, exists bool) *Folder {
	folder := &Folder{
		mbox:        mbox,
		log:         mbox.log,
		uidValidity: initialUIDValidity,
		lastID:      initialMessageID,
		messages:    make([]*Message, 0),
		byID:        make(map[uint64]*Message),
	}
	folder.name.Store(&name)
	if parent != nil {
		folder.parent.Store(parent)
	}
	folder.exists.Store(exists)
	return folder
}

func (f *Folder) Name() string {
	return *f.name.Load()
}

// FullPath is the path from the root, "" for the root and "INBOX" for the inbox
func (f *Folder) FullPath() string {
	parent := f.Parent()
	if parent == nil {
		return ""
	}
	if parent.IsRoot() {
		return f.Name()
	}
	return parent.FullPath() + Separator + f.Name()
}

func (f *Folder) Parent() *Folder {
	return f.parent.Load()
}

func (f *Folder) Mailbox() *Mailbox {
	return f.mbox
}

func (f *Folder) IsRoot() bool {
	return f.Parent() == nil || f.Name() == ""
}

func (f *Folder) IsInbox() bool {
	return isInboxName(f.Name())
}

func (f *Folder) Exists() bool {
	return f.exists.Load()
}

// Equal compares the folders by name and parent: a renamed folder is no longer equal to its former self
func (f *Folder) Equal(other *Folder) bool {
	if f == nil || other == nil {
		return f == other
	}
	if f.Name() != other.Name() {
		return false
	}
	return f.Parent().Equal(other.Parent())
}

func (f *Folder) String() string {
	return fmt.Sprintf("%s:%q", f.mbox.account, f.FullPath())
}

// SimulateError makes deliveries to this folder fail. On the inbox it also makes connections fail.
func (f *Folder) SetSimulateError(simulate bool) {
	f.simulateError.Store(simulate)
}

func (f *Folder) SimulateError() bool {
	return f.simulateError.Load()
}

func (f *Folder) Subscribe(subscribe bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.subscribed = subscribe
}

func (f *Folder) IsSubscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.subscribed
}

func (f *Folder) UIDValidity() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.uidValidity
}

// UIDNext is the UID the next appended message will get
func (f *Folder) UIDNext() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lastID + 1
}

// InvalidateUID increases the UID validity and tells the listeners
func (f *Folder) InvalidateUID() error {
	defer f.dispatch()
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return err
	}
	f.uidValidity += uidValidityIncrease
	f.log.Printf("%s: uid validity is now %d", f, f.uidValidity)
	f.fire(UIDInvalidated{Folder: f, UIDValidity: f.uidValidity})
	return nil
}

// AddSink registers a listener and returns the function removing it
func (f *Folder) AddSink(sink EventSink) (remove func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lastSink++
	id := f.lastSink
	f.sinks = append(f.sinks, sinkEntry{id: id, sink: sink})

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		for i, entry := range f.sinks {
			if entry.id == id {
				f.sinks = append(f.sinks[:i:i], f.sinks[i+1:]...)
				return
			}
		}
	}
}

// fire queues the event for dispatch. It must be called with the folder lock held.
func (f *Folder) fire(event Event) {
	if len(f.sinks) == 0 {
		return
	}
	f.pending = append(f.pending, event)
}

// dispatch hands the queued events to the sinks, in order, without holding the folder lock.
// It must be called once the locks are released. A single goroutine delivers at a time:
// the events fired from a sink are delivered by the same loop, after the current one.
func (f *Folder) dispatch() {
	f.mu.Lock()
	if f.dispatching {
		f.mu.Unlock()
		return
	}
	f.dispatching = true
	for len(f.pending) > 0 {
		events := f.pending
		f.pending = nil
		sinks := append([]sinkEntry(nil), f.sinks...)
		f.mu.Unlock()

		for _, event := range events {
			for _, entry := range sinks {
				entry.sink.HandleEvent(event)
			}
		}
		f.mu.Lock()
	}
	f.dispatching = false
	f.mu.Unlock()
}

func dispatchAll(folders []*Folder) {
	for _, folder := range folders {
		folder.dispatch()
	}
}

func (f *Folder) checkExists() error {
	if !f.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrFolderNotFound, f)
	}
	return nil
}

// Append stores a copy of the message in the folder. The message gets the next UID,
// the \Recent flag, and the Message-Id and X-Mock-Folder headers.
func (f *Folder) Append(props mailbox.MessageProperties, body io.Reader) (*Message, error) {
	return f.appendMessage(props, body)
}

// Deliver appends a message coming from a transport: it fails when the folder simulates errors
func (f *Folder) Deliver(props mailbox.MessageProperties, body io.Reader) (*Message, error) {
	if f.SimulateError() {
		return nil, fmt.Errorf("%w to %s", lib.ErrDelivery, f)
	}
	return f.appendMessage(props, body)
}

func (f *Folder) appendMessage(props mailbox.MessageProperties, body io.Reader) (*Message, error) {
	hasher := sha256.New()
	buffer := &bytes.Buffer{}
	read, err := buffer.ReadFrom(io.TeeReader(body, hasher))
	if err != nil {
		return nil, fmt.Errorf("cannot read message source: %w", err)
	}
	if props.Size > 0 && read != int64(props.Size) {
		return nil, fmt.Errorf("%w: advertised as %d bytes but read %d bytes from buffer", lib.ErrSizeMismatch, props.Size, read)
	}
	reader := bufio.NewReader(buffer)
	header, err := textproto.ReadHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lib.ErrInvalidHeader, err)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("cannot read message body: %w", err)
	}
	date := props.InternalDate
	if date.IsZero() {
		date = time.Now()
	}
	flags := append(lib.StripRecentFlag(props.Flags), imap.RecentFlag)
	path := f.FullPath()

	defer f.dispatch()
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.lastID++
	id := f.lastID
	header.Set(HeaderMessageID, strconv.FormatUint(id, 10))
	header.Set(HeaderFolder, path)

	msg := newMessage(f, id, header, content, date, hasher.Sum(nil), flags)
	f.messages = append(f.messages, msg)
	f.byID[id] = msg
	f.renumber()
	f.log.Printf("%s: message %d appended, size=%d flags=%v", f, id, msg.size, msg.Flags())

	f.fire(MessageAdded{Folder: f, Message: msg})
	return msg, nil
}

// renumber sets the sequence numbers of the live messages. Must be called with the folder lock held.
func (f *Folder) renumber() {
	for i, msg := range f.messages {
		msg.seqNum.Store(uint32(i + 1))
	}
}

func (f *Folder) setFlags(msg *Message, flags []string, on bool) error {
	defer f.dispatch()
	f.mu.Lock()
	defer f.mu.Unlock()

	if msg.Expunged() {
		return fmt.Errorf("%w: %s was expunged", lib.ErrMessageNotFound, msg)
	}
	msg.changeFlags(flags, on)
	f.log.Printf("%s: message %d flags %v set to %v", f, msg.id, flags, on)
	f.fire(MessageChanged{Folder: f, Message: msg, FlagsChanged: true})
	return nil
}

func (f *Folder) MessageCount() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return 0, err
	}
	return len(f.messages), nil
}

// Messages returns the live messages in UID order
func (f *Folder) Messages() ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	return append([]*Message(nil), f.messages...), nil
}

// GetByMessageNumber returns the message with sequence number n, starting at 1
func (f *Folder) GetByMessageNumber(n int) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	if n < 1 || n > len(f.messages) {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", lib.ErrOutOfRange, n, len(f.messages))
	}
	return f.messages[n-1], nil
}

func (f *Folder) GetByID(id uint64) (*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	msg, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: uid %d in %s", lib.ErrMessageNotFound, id, f)
	}
	return msg, nil
}

// GetByIDRange returns the messages with lo <= UID <= hi. With hi = LastUID, a non empty
// folder always returns at least its last message.
func (f *Folder) GetByIDRange(lo, hi uint64) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	result := make([]*Message, 0)
	var last *Message
	for _, msg := range f.messages {
		last = msg
		if hi == LastUID {
			if len(f.messages) != 1 && msg.id < lo {
				continue
			}
		} else if msg.id < lo || msg.id > hi {
			continue
		}
		result = append(result, msg)
	}
	if hi == LastUID && len(result) == 0 && last != nil {
		result = append(result, last)
	}
	return result, nil
}

// GetByIDs returns the messages found, in the order of the ids
func (f *Folder) GetByIDs(ids []uint64) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	result := make([]*Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := f.byID[id]; ok {
			result = append(result, msg)
		}
	}
	return result, nil
}

// GetByFlags returns the messages having all the flags (mustHaveAll) or none of them
func (f *Folder) GetByFlags(flags []string, mustHaveAll bool) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	return f.byFlags(lib.CanonicalFlags(flags), mustHaveAll), nil
}

func (f *Folder) byFlags(flags []string, mustHaveAll bool) []*Message {
	f.renumber()
	result := make([]*Message, 0)
	for _, msg := range f.messages {
		if mustHaveAll && msg.hasAll(flags) || !mustHaveAll && !msg.hasAny(flags) {
			result = append(result, msg)
		}
	}
	return result
}

// Expunge removes all the messages flagged \Deleted
func (f *Folder) Expunge() ([]*Message, error) {
	return f.expunge(nil)
}

// ExpungeSubset removes the messages of the subset flagged \Deleted
func (f *Folder) ExpungeSubset(subset []*Message) ([]*Message, error) {
	if subset == nil {
		subset = []*Message{}
	}
	return f.expunge(subset)
}

func (f *Folder) expunge(subset []*Message) ([]*Message, error) {
	defer f.dispatch()
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	deleted := f.byFlags([]string{imap.DeletedFlag}, true)
	if subset != nil {
		deleted = intersect(deleted, subset)
	}
	f.remove(deleted, true)
	return deleted, nil
}

// Delete removes the messages whatever their flags
func (f *Folder) Delete(messages []*Message) error {
	defer f.dispatch()
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return err
	}
	found := make([]*Message, 0, len(messages))
	seen := make(map[uint64]bool, len(messages))
	for _, msg := range messages {
		if seen[msg.id] {
			continue
		}
		if stored, ok := f.byID[msg.id]; ok && stored == msg {
			seen[msg.id] = true
			found = append(found, msg)
		}
	}
	f.remove(found, false)
	return nil
}

// remove must be called with the folder lock held
func (f *Folder) remove(messages []*Message, expunged bool) {
	if len(messages) == 0 {
		return
	}
	for _, msg := range messages {
		delete(f.byID, msg.id)
	}
	live := make([]*Message, 0, len(f.byID))
	for _, msg := range f.messages {
		if _, ok := f.byID[msg.id]; ok {
			live = append(live, msg)
		}
	}
	f.messages = live
	for _, msg := range messages {
		msg.expunged.Store(true)
		f.log.Printf("%s: message %d removed", f, msg.id)
		f.fire(MessageExpunged{Folder: f, Message: msg, Expunged: expunged})
	}
	f.renumber()
}

// Search returns the live messages matching the term, and present in the subset when not nil
func (f *Folder) Search(term SearchTerm, subset []*Message) ([]*Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	f.renumber()
	candidates := f.messages
	if subset != nil {
		candidates = intersect(f.messages, subset)
	}
	result := make([]*Message, 0)
	if term == nil {
		return result, nil
	}
	for _, msg := range candidates {
		if term.Match(msg) {
			result = append(result, msg)
		}
	}
	return result, nil
}

// Status returns the counters of the folder
func (f *Folder) Status() (*mailbox.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkExists(); err != nil {
		return nil, err
	}
	return &mailbox.Status{
		Name:           f.FullPath(),
		Flags:          []string{},
		PermanentFlags: []string{imap.SeenFlag, imap.AnsweredFlag, imap.FlaggedFlag, imap.DeletedFlag, imap.DraftFlag, `\*`},
		Messages:       uint32(len(f.messages)),
		Recent:         uint32(len(f.byFlags([]string{imap.RecentFlag}, true))),
		Unseen:         uint32(len(f.byFlags([]string{imap.SeenFlag}, false))),
		Deleted:        uint32(len(f.byFlags([]string{imap.DeletedFlag}, true))),
		UidValidity:    f.uidValidity,
		UidNext:        f.lastID + 1,
	}, nil
}

// intersect keeps the messages of source present in subset, in the source order
func intersect(source, subset []*Message) []*Message {
	wanted := make(map[*Message]bool, len(subset))
	for _, msg := range subset {
		wanted[msg] = true
	}
	result := make([]*Message, 0, len(subset))
	for _, msg := range source {
		if wanted[msg] {
			result = append(result, msg)
		}
	}
	return result
}

func isInboxName(name string) bool {
	return strings.EqualFold(name, InboxName)
}

func checkFolderName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: empty name", lib.ErrInvalidName)
	}
	if isInboxName(name) {
		return fmt.Errorf("%w: %q is reserved", lib.ErrInvalidName, name)
	}
	if strings.Contains(name, Separator) {
		return fmt.Errorf("%w: %q contains %q", lib.ErrInvalidName, name, Separator)
	}
	return nil
}
