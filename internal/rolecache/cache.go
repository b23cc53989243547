package rolecache

import (
	"context"
	"sync"

	"github.com/hivecrm/contactbook/internal/domain"
	"github.com/hivecrm/contactbook/internal/repository"
)

// Cache is a read-through cache over the role table keyed by role name.
// Role mutations must call Invalidate so a renamed role is never served stale.
type Cache struct {
	roles repository.RoleRepository

	mu     sync.RWMutex
	byName map[string]domain.Role
}

// New constructs an empty cache backed by the given repository.
func New(roles repository.RoleRepository) *Cache {
	return &Cache{roles: roles, byName: make(map[string]domain.Role)}
}

// Get returns the role with the given name, hitting the database only on a
// cache miss.
func (c *Cache) Get(ctx context.Context, name string) (domain.Role, error) {
	c.mu.RLock()
	role, ok := c.byName[name]
	c.mu.RUnlock()
	if ok {
		return role, nil
	}

	role, err := c.roles.GetByName(ctx, name)
	if err != nil {
		return domain.Role{}, err
	}

	c.mu.Lock()
	c.byName[name] = role
	c.mu.Unlock()
	return role, nil
}

// Invalidate drops the cached entry for a role name.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	delete(c.byName, name)
	c.mu.Unlock()
}
