package mock

// Event is one of FolderCreated, FolderDeleted, FolderRenamed, MessageAdded,
// MessageChanged, MessageExpunged or UIDInvalidated.
type Event interface {
	// Source is the folder that fired the event
	Source() *Folder
	event()
}

type FolderCreated struct {
	Folder *Folder
}

type FolderDeleted struct {
	Folder *Folder
}

type FolderRenamed struct {
	Folder *Folder
	// From is the name before the rename
	From string
}

type MessageAdded struct {
	Folder  *Folder
	Message *Message
}

type MessageChanged struct {
	Folder        *Folder
	Message       *Message
	FlagsChanged  bool
	HeaderChanged bool
}

type MessageExpunged struct {
	Folder  *Folder
	Message *Message
	// Expunged is false when the message was removed without the \Deleted flag (move)
	Expunged bool
}

type UIDInvalidated struct {
	Folder      *Folder
	UIDValidity uint32
}

func (e FolderCreated) Source() *Folder   { return e.Folder }
func (e FolderDeleted) Source() *Folder   { return e.Folder }
func (e FolderRenamed) Source() *Folder   { return e.Folder }
func (e MessageAdded) Source() *Folder    { return e.Folder }
func (e MessageChanged) Source() *Folder  { return e.Folder }
func (e MessageExpunged) Source() *Folder { return e.Folder }
func (e UIDInvalidated) Source() *Folder  { return e.Folder }

func (FolderCreated) event()   {}
func (FolderDeleted) event()   {}
func (FolderRenamed) event()   {}
func (MessageAdded) event()    {}
func (MessageChanged) event()  {}
func (MessageExpunged) event() {}
func (UIDInvalidated) event()  {}

// EventSink receives the events of a folder, in the order the mutations happened.
// HandleEvent is called after the mutation released the folder: it can read or change the folder.
type EventSink interface {
	HandleEvent(event Event)
}

// SinkFunc adapts a function to an EventSink
type SinkFunc func(event Event)

func (f SinkFunc) HandleEvent(event Event) {
	f(event)
}

type sinkEntry struct {
	id   uint64
	sink EventSink
}
