package mock

import (
	"math"
	"strings"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/backend/backendutil"
)

// SearchTerm selects messages in Folder.Search
type SearchTerm interface {
	Match(msg *Message) bool
}

// TermFunc adapts a function to a SearchTerm
type TermFunc func(msg *Message) bool

func (f TermFunc) Match(msg *Message) bool {
	return f(msg)
}

// Criteria matches the IMAP search criteria (headers, body, dates, flags, sizes, sequence and UID sets)
func Criteria(criteria *imap.SearchCriteria) SearchTerm {
	return TermFunc(func(msg *Message) bool {
		if criteria == nil {
			return true
		}
		entity, err := msg.Entity()
		if err != nil {
			return false
		}
		matched, err := backendutil.Match(entity, msg.SeqNum(), imapUID(msg.ID()), msg.InternalDate(), msg.Flags(), criteria)
		return err == nil && matched
	})
}

// imapUID clamps the id to the 32 bits of an IMAP UID: an id above the range is seen as the highest UID
func imapUID(id uint64) uint32 {
	if id > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(id)
}

// Text matches the decoded text or HTML parts, case-insensitive
func Text(text string) SearchTerm {
	text = strings.ToLower(text)
	return TermFunc(func(msg *Message) bool {
		env, err := msg.Envelope()
		if err != nil {
			return false
		}
		return strings.Contains(strings.ToLower(env.Text), text) ||
			strings.Contains(strings.ToLower(env.HTML), text)
	})
}

// FlagTerm matches the messages having all the flags (set) or none of them
func FlagTerm(flags []string, set bool) SearchTerm {
	flags = lib.CanonicalFlags(flags)
	return TermFunc(func(msg *Message) bool {
		if set {
			return msg.hasAll(flags)
		}
		return !msg.hasAny(flags)
	})
}

func And(terms ...SearchTerm) SearchTerm {
	return TermFunc(func(msg *Message) bool {
		for _, term := range terms {
			if term == nil || !term.Match(msg) {
				return false
			}
		}
		return true
	})
}

func Or(terms ...SearchTerm) SearchTerm {
	return TermFunc(func(msg *Message) bool {
		for _, term := range terms {
			if term != nil && term.Match(msg) {
				return true
			}
		}
		return false
	})
}

func Not(term SearchTerm) SearchTerm {
	return TermFunc(func(msg *Message) bool {
		return term == nil || !term.Match(msg)
	})
}
