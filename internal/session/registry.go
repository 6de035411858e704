package session

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/wichananm65/gift-finder/internal/browse"
	"github.com/wichananm65/gift-finder/internal/logging"
)

var ErrNotFound = errors.New("session not found")

// Registry keeps the most recently used sessions. A session pushed out of the
// cache, or removed, is closed.
type Registry struct {
	cache  *lru.Cache[string, *browse.Controller]
	logger *zap.Logger
}

func NewRegistry(size int, logger *zap.Logger) (*Registry, error) {
	r := &Registry{logger: logging.OrNop(logger)}
	cache, err := lru.NewWithEvict(size, r.evicted)
	if err != nil {
		return nil, err
	}
	r.cache = cache
	return r, nil
}

func (r *Registry) Add(id string, c *browse.Controller) {
	r.cache.Add(id, c)
}

func (r *Registry) Get(id string) (*browse.Controller, error) {
	c, ok := r.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// Remove closes and forgets the session.
func (r *Registry) Remove(id string) error {
	if !r.cache.Remove(id) {
		return ErrNotFound
	}
	return nil
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// Purge closes every session.
func (r *Registry) Purge() {
	r.cache.Purge()
}

func (r *Registry) evicted(id string, c *browse.Controller) {
	c.Close()
	r.logger.Debug("session closed", zap.String("session_id", id))
}
