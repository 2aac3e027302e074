package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"presence-relay/internal/models"
)

func TestRegistryAddAndRemoveUser(t *testing.T) {
	reg := NewRegistry()

	reg.AddUser("u1", models.Profile{ID: "u1", DisplayName: "Alice"})
	user, ok := reg.GetUser("u1")
	require.True(t, ok)
	assert.Equal(t, models.UserRecord{ID: "u1", DisplayName: "Alice", IsOnline: true}, user)

	reg.RemoveUser("u1")
	_, ok = reg.GetUser("u1")
	assert.False(t, ok)
}

func TestRegistryRemoveAbsentIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.RemoveUser("ghost")
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryAddOverwritesExistingRecord(t *testing.T) {
	reg := NewRegistry()
	reg.AddUser("u1", models.Profile{DisplayName: "Alice"})
	reg.SetOnline("u1", false)
	reg.SetUnread("u1", true)

	reg.AddUser("u1", models.Profile{DisplayName: "Alice 2"})

	require.Equal(t, 1, reg.Len())
	user, _ := reg.GetUser("u1")
	assert.Equal(t, "Alice 2", user.DisplayName)
	assert.True(t, user.IsOnline)
	assert.False(t, user.HasUnread)
}

func TestRegistrySettersIgnoreAbsentIdentity(t *testing.T) {
	reg := NewRegistry()

	reg.SetOnline("nobody", true)
	reg.SetUnread("nobody", true)

	_, ok := reg.GetUser("nobody")
	assert.False(t, ok)
}

func TestRegistryFlags(t *testing.T) {
	reg := NewRegistry()
	reg.AddUser("u2", models.Profile{DisplayName: "Bob"})

	reg.SetUnread("u2", true)
	reg.SetOnline("u2", false)

	user, _ := reg.GetUser("u2")
	assert.True(t, user.HasUnread)
	assert.False(t, user.IsOnline)
}

func TestRegistryGetUsersReturnsSnapshot(t *testing.T) {
	reg := NewRegistry()
	reg.AddUser("b", models.Profile{DisplayName: "Bob"})
	reg.AddUser("a", models.Profile{DisplayName: "Alice"})

	users := reg.GetUsers()
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].ID)
	assert.Equal(t, "b", users[1].ID)

	users[0].DisplayName = "mutated"
	user, _ := reg.GetUser("a")
	assert.Equal(t, "Alice", user.DisplayName)

	assert.Equal(t, users[1:], reg.GetUsers()[1:])
}

func TestRegistryGetUsersEmpty(t *testing.T) {
	assert.Empty(t, NewRegistry().GetUsers())
}

func TestRegistryConcurrentAccess(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg.AddUser("same", models.Profile{DisplayName: "x"})
			reg.SetUnread("same", true)
			_ = reg.GetUsers()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
}
