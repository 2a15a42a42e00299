package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

var errSessionNotFound = domain.NotFoundError{Resource: "session"}

// RedisSessionRepository keeps backend access tokens in redis under the
// session id, expiring with the session.
type RedisSessionRepository struct {
	redis  *redis.Client
	prefix string
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{redis: client, prefix: "crms:sessions"}
}

// NewRedisSessionRepositoryFromURL dials nothing; the first command connects.
func NewRedisSessionRepositoryFromURL(url string) (*RedisSessionRepository, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse session redis url")
	}
	return NewRedisSessionRepository(redis.NewClient(opts)), nil
}

func (r *RedisSessionRepository) key(id string) string {
	return r.prefix + ":" + id
}

func (r *RedisSessionRepository) Save(ctx context.Context, id, accessToken string, ttl time.Duration) error {
	if err := r.redis.Set(ctx, r.key(id), accessToken, ttl).Err(); err != nil {
		return errors.Wrap(err, "save session")
	}
	return nil
}

func (r *RedisSessionRepository) Load(ctx context.Context, id string) (string, error) {
	token, err := r.redis.Get(ctx, r.key(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", errSessionNotFound
		}
		return "", errors.Wrap(err, "load session")
	}
	return token, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, id string) error {
	return r.redis.Del(ctx, r.key(id)).Err()
}

func (r *RedisSessionRepository) Close() error {
	return r.redis.Close()
}

type sessionEntry struct {
	token   string
	expires time.Time
}

// MemorySessionRepository is the single-process session store.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	Now      func() time.Time
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]sessionEntry{}}
}

func (r *MemorySessionRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

func (r *MemorySessionRepository) Save(_ context.Context, id, accessToken string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	for k, e := range r.sessions {
		if !now.Before(e.expires) {
			delete(r.sessions, k)
		}
	}
	r.sessions[id] = sessionEntry{token: accessToken, expires: now.Add(ttl)}
	return nil
}

func (r *MemorySessionRepository) Load(_ context.Context, id string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return "", errSessionNotFound
	}
	if !r.now().Before(e.expires) {
		delete(r.sessions, id)
		return "", errSessionNotFound
	}
	return e.token, nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}
