package store

import "github.com/pkg/errors"

// Collection is an ordered list of entities sharing the lock of its Store.
type Collection[T Entity] struct {
	s     *Store
	items []T
}

func newCollection[T Entity](s *Store) *Collection[T] {
	return &Collection[T]{s: s}
}

// Replace is a bulk load: the whole collection becomes items.
func (c *Collection[T]) Replace(items []T) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.items = clone(items)
	c.s.version++
}

func (c *Collection[T]) List() []T {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return clone(c.items)
}

func (c *Collection[T]) Len() int {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

func (c *Collection[T]) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].Key() == id {
			return i
		}
	}
	return -1
}

// insert puts v at position i, clamped to the current bounds.
func (c *Collection[T]) insert(i int, v T) {
	if i < 0 {
		i = 0
	}
	if i > len(c.items) {
		i = len(c.items)
	}
	var zero T
	c.items = append(c.items, zero)
	copy(c.items[i+1:], c.items[i:])
	c.items[i] = v
}

func (c *Collection[T]) remove(i int) {
	c.items = append(c.items[:i], c.items[i+1:]...)
}

// applyCreate inserts a provisional entity at the head.
func (c *Collection[T]) applyCreate(provisional T) Rollback[T] {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.insert(0, provisional)
	c.s.version++
	return Rollback[T]{Kind: KindCreate, ID: provisional.Key(), Index: 0}
}

func (c *Collection[T]) applyUpdate(id string, merge func(T) T) (Rollback[T], T, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	var zero T
	i := c.indexOf(id)
	if i < 0 {
		return Rollback[T]{}, zero, errors.Wrapf(errNotInStore, "update %s", id)
	}
	prior := c.items[i]
	next := merge(prior)
	c.items[i] = next
	c.s.version++
	return Rollback[T]{Kind: KindUpdate, ID: id, Prior: prior, Index: i}, next, nil
}

func (c *Collection[T]) applyDelete(id string) (Rollback[T], error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return Rollback[T]{}, errors.Wrapf(errNotInStore, "delete %s", id)
	}
	prior := c.items[i]
	c.remove(i)
	c.s.version++
	return Rollback[T]{Kind: KindDelete, ID: id, Prior: prior, Index: i}, nil
}

// reconcile swaps the provisional entity for the one the API created.
func (c *Collection[T]) reconcile(provisionalID string, v T) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if i := c.indexOf(provisionalID); i >= 0 {
		c.items[i] = v
		c.s.version++
	}
}

// Undo executes a rollback instruction.
// Entities touched by the user in the meantime are matched by id, so an undo never
// duplicates an entity or resurrects one that is gone.
func (c *Collection[T]) Undo(rb Rollback[T]) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	i := c.indexOf(rb.ID)
	switch rb.Kind {
	case KindCreate:
		if i < 0 {
			return
		}
		c.remove(i)
	case KindUpdate:
		if i < 0 {
			return
		}
		c.items[i] = rb.Prior
	case KindDelete:
		if i >= 0 {
			return
		}
		c.insert(rb.Index, rb.Prior)
	default:
		return
	}
	c.s.version++
}
