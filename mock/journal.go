package mock

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/xid"
)

// JournalEntry is the record of one folder event
type JournalEntry struct {
	ID      string    `json:"id"`
	Date    time.Time `json:"date"`
	Account string    `json:"account"`
	Folder  string    `json:"folder"`
	Event   string    `json:"event"`
	UID     uint64    `json:"uid,omitempty"`
	Detail  string    `json:"detail,omitempty"`
}

// Journal is an EventSink keeping every event it receives
type Journal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func NewJournal() *Journal {
	return &Journal{
		entries: make([]JournalEntry, 0),
	}
}

func (j *Journal) HandleEvent(event Event) {
	folder := event.Source()
	entry := JournalEntry{
		ID:      xid.New().String(),
		Date:    time.Now(),
		Account: folder.Mailbox().Account(),
		Folder:  folder.FullPath(),
	}
	switch e := event.(type) {
	case FolderCreated:
		entry.Event = "created"
	case FolderDeleted:
		entry.Event = "deleted"
	case FolderRenamed:
		entry.Event = "renamed"
		entry.Detail = "from " + e.From
	case MessageAdded:
		entry.Event = "added"
		entry.UID = e.Message.ID()
		entry.Detail = e.Message.Subject()
	case MessageChanged:
		entry.Event = "changed"
		entry.UID = e.Message.ID()
		entry.Detail = fmt.Sprintf("flags %v", e.Message.Flags())
	case MessageExpunged:
		entry.Event = "expunged"
		entry.UID = e.Message.ID()
		if !e.Expunged {
			entry.Detail = "removed"
		}
	case UIDInvalidated:
		entry.Event = "uidvalidity"
		entry.Detail = fmt.Sprintf("%d", e.UIDValidity)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, entry)
}

func (j *Journal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]JournalEntry(nil), j.entries...)
}

func (j *Journal) Len() int {
	j.mu.Lock()
	defer j.mu.Unlock()

	return len(j.entries)
}

func (j *Journal) Save(writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	err := encoder.Encode(j.Entries())
	if err != nil {
		return fmt.Errorf("cannot encode journal: %w", err)
	}
	return nil
}

func (j *Journal) SaveToFile(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot save journal: %w", err)
	}
	defer file.Close()

	return j.Save(file)
}

// LoadJournalFromFile reads entries saved by SaveToFile
func LoadJournalFromFile(filename string) ([]JournalEntry, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("cannot open journal: %w", err)
	}
	defer file.Close()

	entries := make([]JournalEntry, 0)
	err = json.NewDecoder(file).Decode(&entries)
	if err != nil {
		return nil, fmt.Errorf("error reading journal file: %w", err)
	}
	return entries, nil
}
