package mock

import (
	"fmt"
	"strings"

	"github.com/creativeprojects/mailmock/lib"
)

// Create materializes the folder, and its parents when they don't exist yet
func (f *Folder) Create() error {
	defer dispatchAll(f.ancestors())
	f.mbox.tree.Lock()
	defer f.mbox.tree.Unlock()

	return f.create()
}

func (f *Folder) create() error {
	if f.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrAlreadyExists, f)
	}
	if err := checkFolderName(f.Name()); err != nil {
		return err
	}
	parent := f.Parent()
	if !parent.Exists() {
		if err := parent.create(); err != nil {
			return err
		}
	}
	if !parent.hasChild(f) {
		parent.children = append(parent.children, f)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.exists.Store(true)
	f.log.Printf("%s: folder created", f)
	f.fire(FolderCreated{Folder: f})
	return nil
}

// DeleteFolder removes the messages and detaches the folder from its parent.
// Without recurse, the children are left untouched.
func (f *Folder) DeleteFolder(recurse bool) error {
	var affected []*Folder
	defer func() { dispatchAll(affected) }()
	f.mbox.tree.Lock()
	defer f.mbox.tree.Unlock()

	affected = f.subtree()
	return f.deleteFolder(recurse)
}

func (f *Folder) deleteFolder(recurse bool) error {
	if err := f.checkExists(); err != nil {
		return err
	}
	if f.IsRoot() {
		return fmt.Errorf("%w: %s", lib.ErrRootFolder, f)
	}
	if err := checkFolderName(f.Name()); err != nil {
		return err
	}
	if recurse {
		for _, child := range append([]*Folder(nil), f.children...) {
			if !child.Exists() {
				continue
			}
			if err := child.deleteFolder(true); err != nil {
				return err
			}
		}
	}
	parent := f.Parent()
	parent.removeChild(f)

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, msg := range f.messages {
		msg.expunged.Store(true)
	}
	f.messages = make([]*Message, 0)
	f.byID = make(map[uint64]*Message)
	f.exists.Store(false)
	f.log.Printf("%s: folder deleted", f)
	f.fire(FolderDeleted{Folder: f})
	return nil
}

// Rename changes the name in place: the full path of the children follows
func (f *Folder) Rename(newName string) error {
	defer f.dispatch()
	f.mbox.tree.Lock()
	defer f.mbox.tree.Unlock()

	if err := f.checkExists(); err != nil {
		return err
	}
	oldName := f.Name()
	if err := checkFolderName(oldName); err != nil {
		return err
	}
	if err := checkFolderName(newName); err != nil {
		return err
	}
	if sibling := f.Parent().findChild(newName); sibling != nil && sibling != f && sibling.Exists() {
		return fmt.Errorf("%w: %s", lib.ErrAlreadyExists, sibling)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.name.Store(&newName)
	f.log.Printf("%s: folder renamed from %q", f, oldName)
	f.fire(FolderRenamed{Folder: f, From: oldName})
	return nil
}

// GetOrCreateChild resolves a path relative to this folder. The missing segments are added
// as placeholders which don't exist until created. An INBOX segment always resolves to the inbox.
func (f *Folder) GetOrCreateChild(path string) (*Folder, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: cannot get or create the root folder", lib.ErrInvalidName)
	}
	f.mbox.tree.Lock()
	defer f.mbox.tree.Unlock()

	current := f
	for _, segment := range strings.Split(path, Separator) {
		if isInboxName(segment) {
			current = f.mbox.inbox
			continue
		}
		if err := checkFolderName(segment); err != nil {
			return nil, err
		}
		child := current.findChild(segment)
		if child == nil {
			child = newFolder(f.mbox, current, segment, false)
			current.children = append(current.children, child)
		}
		current = child
	}
	return current, nil
}

// Children returns the existing children in creation order
func (f *Folder) Children() []*Folder {
	f.mbox.tree.RLock()
	defer f.mbox.tree.RUnlock()

	children := make([]*Folder, 0, len(f.children))
	for _, child := range f.children {
		if child.Exists() {
			children = append(children, child)
		}
	}
	return children
}

// AllChildren also returns the placeholders
func (f *Folder) AllChildren() []*Folder {
	f.mbox.tree.RLock()
	defer f.mbox.tree.RUnlock()

	return append([]*Folder(nil), f.children...)
}

// ancestors returns the folder followed by its parents up to the root
func (f *Folder) ancestors() []*Folder {
	folders := make([]*Folder, 0)
	for current := f; current != nil; current = current.Parent() {
		folders = append(folders, current)
	}
	return folders
}

// the following methods must be called with the tree lock held

// subtree returns the folder and every descendant
func (f *Folder) subtree() []*Folder {
	folders := []*Folder{f}
	for _, child := range f.children {
		folders = append(folders, child.subtree()...)
	}
	return folders
}

func (f *Folder) findChild(name string) *Folder {
	for _, child := range f.children {
		if child.Name() == name {
			return child
		}
	}
	return nil
}

func (f *Folder) hasChild(folder *Folder) bool {
	for _, child := range f.children {
		if child == folder {
			return true
		}
	}
	return false
}

func (f *Folder) removeChild(folder *Folder) {
	for i, child := range f.children {
		if child == folder {
			f.children = append(f.children[:i:i], f.children[i+1:]...)
			return
		}
	}
}
