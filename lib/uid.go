package lib

import "math/rand"

// NewUID returns a random UID validity, never zero
func NewUID() uint32 {
	return rand.Uint32()>>1 + 1
}
