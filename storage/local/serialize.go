package local

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
)

const uidSize = 8

// encode stores a value as gob in a bucket
func encode[T any](value *T) ([]byte, error) {
	if value == nil {
		return nil, errors.New("cannot encode a nil value")
	}
	buffer := &bytes.Buffer{}
	if err := gob.NewEncoder(buffer).Encode(value); err != nil {
		return nil, fmt.Errorf("cannot encode %T: %w", value, err)
	}
	return buffer.Bytes(), nil
}

func decode[T any](input []byte) (*T, error) {
	output := new(T)
	if err := gob.NewDecoder(bytes.NewReader(input)).Decode(output); err != nil {
		return nil, fmt.Errorf("cannot decode %T: %w", output, err)
	}
	return output, nil
}

// uidKey appends the UID in big endian to the prefix, so a cursor walks the keys in UID order
func uidKey(prefix string, uid uint64) []byte {
	key := make([]byte, len(prefix)+uidSize)
	copy(key, prefix)
	binary.BigEndian.PutUint64(key[len(prefix):], uid)
	return key
}

// keyUID returns false when the key was not made by uidKey with this prefix
func keyUID(prefix string, key []byte) (uint64, bool) {
	if len(key) != len(prefix)+uidSize || !bytes.HasPrefix(key, []byte(prefix)) {
		return 0, false
	}
	return binary.BigEndian.Uint64(key[len(prefix):]), true
}
