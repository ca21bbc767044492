package mock

import (
	"sync"
	"testing"

	"github.com/creativeprojects/mailmock/lib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryGetOrCreate(t *testing.T) {
	registry := NewRegistry()

	alice := registry.Mailbox("Alice <Alice@Example.com>")
	assert.Equal(t, "alice@example.com", alice.Account())
	assert.Same(t, alice, registry.Mailbox("alice@example.com"))
	assert.Same(t, alice, registry.Mailbox("  ALICE@example.com "))

	bob := registry.Mailbox("bob")
	assert.NotSame(t, alice, bob)
	assert.Equal(t, []string{"alice@example.com", "bob"}, registry.Accounts())

	found, ok := registry.Lookup("alice@example.com")
	assert.True(t, ok)
	assert.Same(t, alice, found)
	_, ok = registry.Lookup("nobody")
	assert.False(t, ok)
}

func TestRegistryConcurrentFirstAccess(t *testing.T) {
	registry := NewRegistry()
	const workers = 16
	results := make([]*Mailbox, workers)

	wg := sync.WaitGroup{}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = registry.Mailbox("shared@example.com")
		}(i)
	}
	wg.Wait()

	for _, mbox := range results {
		assert.Same(t, results[0], mbox)
	}
}

func TestRegistryReset(t *testing.T) {
	registry := NewRegistry()
	before := registry.Mailbox("user@example.com")
	appendSample(t, before.Inbox(), "before reset")

	registry.Reset()
	assert.Empty(t, registry.Accounts())

	after := registry.Mailbox("user@example.com")
	assert.NotSame(t, before, after)
	count, err := after.Inbox().MessageCount()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReachable(t *testing.T) {
	registry := NewRegistry()
	assert.NoError(t, registry.Reachable("user@example.com"))

	registry.Mailbox("user@example.com").Inbox().SetSimulateError(true)
	err := registry.Reachable("user@example.com")
	assert.ErrorIs(t, err, lib.ErrSimulatedFailure)
	assert.Contains(t, err.Error(), "user@example.com")
}
