package presence

import (
	"sort"
	"sync"

	"github.com/samber/lo"

	"presence-relay/internal/models"
)

// Registry keeps one presence record per identity.
type Registry struct {
	users map[string]*models.UserRecord
	mu    sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{users: make(map[string]*models.UserRecord)}
}

// AddUser inserts or replaces the record for id. A reconnect under the same
// identity resets it to online with no unread messages.
func (r *Registry) AddUser(id string, profile models.Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[id] = &models.UserRecord{
		ID:          id,
		DisplayName: profile.DisplayName,
		IsOnline:    true,
		HasUnread:   false,
	}
}

// RemoveUser deletes the record for id if present.
func (r *Registry) RemoveUser(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
}

// GetUser returns a copy of the record for id.
func (r *Registry) GetUser(id string) (models.UserRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return models.UserRecord{}, false
	}
	return *user, true
}

// GetUsers returns a snapshot of every record, ordered by id.
func (r *Registry) GetUsers() []models.UserRecord {
	r.mu.RLock()
	users := lo.MapToSlice(r.users, func(_ string, u *models.UserRecord) models.UserRecord {
		return *u
	})
	r.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// SetOnline updates the online flag; absent identities are ignored.
func (r *Registry) SetOnline(id string, online bool) {
	r.update(id, func(u *models.UserRecord) { u.IsOnline = online })
}

// SetUnread updates the unread flag; absent identities are ignored.
func (r *Registry) SetUnread(id string, unread bool) {
	r.update(id, func(u *models.UserRecord) { u.HasUnread = unread })
}

// Len returns the number of records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

func (r *Registry) update(id string, fn func(*models.UserRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		fn(user)
	}
}
