package database

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Register(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	joined := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	registry.now = func() time.Time { return joined }
	connID := uuid.NewString()

	// Given no user is registered
	req.Zero(registry.Count())

	// When a connection registers
	record, err := registry.Register(connID, "alice")

	// Then the record is stored and returned
	req.NoError(err)
	req.Equal(connID, record.ID)
	req.Equal("alice", record.Username)
	req.Equal(joined, record.JoinedAt)

	got, ok := registry.Get(connID)
	req.True(ok)
	req.Equal(record, got)
}

func TestRegistry_Register_RejectsBlankUsername(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := registry.Register("c1", name)
		req.ErrorIs(err, ErrInvalidUsername)
	}
	req.Zero(registry.Count())
}

func TestRegistry_Reregister_KeepsMostRecentName(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When the same connection registers several times
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := registry.Register("c1", name)
		req.NoError(err)
	}

	// Then only the latest name is held, once
	req.Equal(1, registry.Count())
	got, ok := registry.Get("c1")
	req.True(ok)
	req.Equal("carol", got.Username)
	req.Len(registry.ListAll(), 1)
}

func TestRegistry_ListAll_InsertionOrder(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	for _, id := range []string{"c3", "c1", "c2"} {
		_, err := registry.Register(id, "user-"+id)
		req.NoError(err)
	}
	// Re-registration keeps the original slot
	_, err := registry.Register("c3", "renamed")
	req.NoError(err)

	ids := []string{}
	for _, rec := range registry.ListAll() {
		ids = append(ids, rec.ID)
	}
	req.Equal([]string{"c3", "c1", "c2"}, ids)
	req.Equal("renamed", registry.ListAll()[0].Username)
}

func TestRegistry_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	_, err := registry.Register("c1", "alice")
	req.NoError(err)
	_, err = registry.Register("c2", "bob")
	req.NoError(err)

	// When alice leaves
	record, ok := registry.Unregister("c1")

	// Then her record is returned and gone
	req.True(ok)
	req.Equal("alice", record.Username)
	_, ok = registry.Get("c1")
	req.False(ok)
	req.Len(registry.ListAll(), 1)
	req.Equal("bob", registry.ListAll()[0].Username)

	// And unregistering again reports absence
	_, ok = registry.Unregister("c1")
	req.False(ok)

	// And unknown connections are absent too
	_, ok = registry.Unregister("never-registered")
	req.False(ok)
}

func TestRegistry_ConcurrentRegistration(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := uuid.NewString()
			_, _ = registry.Register(id, "user")
			_ = registry.ListAll()
			if i%2 == 0 {
				registry.Unregister(id)
			}
		}()
	}
	wg.Wait()

	req.Equal(25, registry.Count())
	req.Len(registry.ListAll(), 25)
}
