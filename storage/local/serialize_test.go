package local

import (
	"bytes"
	"sort"
	"testing"
	"time"

	"github.com/creativeprojects/mailmock/mailbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessageProperties(t *testing.T) {
	props := &msgProps{
		Flags: []string{`\Seen`},
		Date:  time.Date(2020, 10, 20, 12, 11, 0, 0, time.UTC),
		Size:  123,
		Hash:  []byte{1, 2, 3},
	}
	data, err := encode(props)
	require.NoError(t, err)

	back, err := decode[msgProps](data)
	require.NoError(t, err)
	assert.Equal(t, props.Flags, back.Flags)
	assert.True(t, props.Date.Equal(back.Date))
	assert.Equal(t, props.Size, back.Size)
	assert.Equal(t, props.Hash, back.Hash)
}

func TestEncodeStatus(t *testing.T) {
	status := &mailbox.Status{Name: "INBOX", Messages: 3, UidValidity: 50, UidNext: 14}
	data, err := encode(status)
	require.NoError(t, err)

	back, err := decode[mailbox.Status](data)
	require.NoError(t, err)
	assert.Equal(t, status, back)
}

func TestEncodeErrors(t *testing.T) {
	_, err := encode[msgProps](nil)
	assert.Error(t, err)

	_, err = decode[msgProps]([]byte("not gob"))
	assert.Error(t, err)
}

func TestUIDKey(t *testing.T) {
	uids := []uint64{1 << 40, 10, 1, 123456, 9, 255, 256}
	keys := make([][]byte, len(uids))
	for i, uid := range uids {
		keys[i] = uidKey(bodyPrefix, uid)
		back, ok := keyUID(bodyPrefix, keys[i])
		require.True(t, ok)
		assert.Equal(t, uid, back)
	}

	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i], keys[j]) < 0 })
	sorted := make([]uint64, len(keys))
	for i, key := range keys {
		sorted[i], _ = keyUID(bodyPrefix, key)
	}
	assert.Equal(t, []uint64{1, 9, 10, 255, 256, 123456, 1 << 40}, sorted)
}

func TestKeyUIDWrongPrefix(t *testing.T) {
	_, ok := keyUID(bodyPrefix, uidKey(msgPrefix, 12))
	assert.False(t, ok)
	_, ok = keyUID(bodyPrefix, []byte(bodyPrefix+"12"))
	assert.False(t, ok)
}
