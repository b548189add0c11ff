package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/Astemirdum/library-portal/portal/internal/errs"
	"github.com/Astemirdum/library-portal/portal/internal/model"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Session is what survives between requests of one signed-in browser.
type Session struct {
	ID        string     `json:"id"`
	Token     string     `json:"token"`
	Role      model.Role `json:"userRole"`
	Name      string     `json:"userName"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Repository interface {
	Get(ctx context.Context, id string) (Session, error)
	Save(ctx context.Context, s Session, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type memoryRepository struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

func NewMemoryRepository() Repository {
	return &memoryRepository{items: make(map[string]memoryEntry), now: time.Now}
}

func (r *memoryRepository) Get(_ context.Context, id string) (Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return Session{}, errs.ErrNoSession
	}
	if !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt) {
		delete(r.items, id)
		return Session{}, errs.ErrNoSession
	}
	return e.session, nil
}

func (r *memoryRepository) Save(_ context.Context, s Session, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := memoryEntry{session: s}
	if ttl > 0 {
		e.expiresAt = r.now().Add(ttl)
	}
	r.items[s.ID] = e
	return nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

const redisPrefix = "portal:session:"

type redisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) Repository {
	return &redisRepository{client: client}
}

func (r *redisRepository) Get(ctx context.Context, id string) (Session, error) {
	const op = "session.redis.Get"
	data, err := r.client.Get(ctx, redisPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, errs.ErrNoSession
	}
	if err != nil {
		return Session{}, errors.Wrap(err, op)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, errors.Wrap(err, op)
	}
	return s, nil
}

func (r *redisRepository) Save(ctx context.Context, s Session, ttl time.Duration) error {
	const op = "session.redis.Save"
	data, err := json.Marshal(s)
	if err != nil {
		return errors.Wrap(err, op)
	}
	if err := r.client.Set(ctx, redisPrefix+s.ID, data, ttl).Err(); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}

func (r *redisRepository) Delete(ctx context.Context, id string) error {
	const op = "session.redis.Delete"
	if err := r.client.Del(ctx, redisPrefix+id).Err(); err != nil {
		return errors.Wrap(err, op)
	}
	return nil
}
