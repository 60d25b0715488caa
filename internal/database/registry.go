package database

import (
	"strings"
	"sync"
	"time"

	"livechat/internal/models"

	"github.com/samber/lo"
)

// Registry is the in-memory ConnectionRegistry. Writes are serialized, reads may run concurrently.
type Registry struct {
	mu    sync.RWMutex
	users map[string]models.UserRecord
	order []string
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]models.UserRecord),
		now:   time.Now,
	}
}

// Register stores username for the connection. Registering an already registered
// connection overwrites its record in place with a fresh join time.
func (r *Registry) Register(connectionID, username string) (models.UserRecord, error) {
	if strings.TrimSpace(username) == "" {
		return models.UserRecord{}, ErrInvalidUsername
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	record := models.UserRecord{
		ID:       connectionID,
		Username: username,
		JoinedAt: r.now(),
	}
	if _, exists := r.users[connectionID]; !exists {
		r.order = append(r.order, connectionID)
	}
	r.users[connectionID] = record
	return record, nil
}

func (r *Registry) Unregister(connectionID string) (models.UserRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	record, ok := r.users[connectionID]
	if !ok {
		return models.UserRecord{}, false
	}
	delete(r.users, connectionID)
	r.order = lo.Without(r.order, connectionID)
	return record, true
}

func (r *Registry) Get(connectionID string) (models.UserRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.users[connectionID]
	return record, ok
}

// ListAll returns every registered user in registration order.
func (r *Registry) ListAll() []models.UserRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.order, func(id string, _ int) models.UserRecord {
		return r.users[id]
	})
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}
