package lib

import (
	"sort"

	"github.com/emersion/go-imap"
)

// CanonicalFlags returns the flags in canonical case, without duplicates and sorted
func CanonicalFlags(source []string) []string {
	seen := make(map[string]bool, len(source))
	output := make([]string, 0, len(source))
	for _, flag := range source {
		flag = imap.CanonicalFlag(flag)
		if flag == "" || seen[flag] {
			continue
		}
		seen[flag] = true
		output = append(output, flag)
	}
	sort.Strings(output)
	return output
}

// StripRecentFlag removes the \Recent flag: it can only be set by the server
func StripRecentFlag(source []string) []string {
	output := make([]string, 0, len(source))
	for _, flag := range source {
		if imap.CanonicalFlag(flag) == imap.RecentFlag {
			continue
		}
		output = append(output, flag)
	}
	return output
}

func HasFlag(flags []string, flag string) bool {
	flag = imap.CanonicalFlag(flag)
	for _, current := range flags {
		if imap.CanonicalFlag(current) == flag {
			return true
		}
	}
	return false
}
