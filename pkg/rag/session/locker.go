package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"multimodal-rag-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serializes work on one key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// KeyedMutex is an in-process Locker. Entries are dropped once nobody holds or waits.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*keyedEntry
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*keyedEntry)}
}

func (k *KeyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker spans instances. The TTL bounds how long a crashed holder blocks others.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	poll   time.Duration
	logger logger.ILogger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log logger.ILogger) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: client,
		prefix: "rag:session:lock:",
		ttl:    ttl,
		poll:   20 * time.Millisecond,
		logger: log,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	redisKey := l.prefix + key

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to acquire session lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(redisKey, token) })
	}, nil
}

// release deletes the key only while it still holds token. A failed release leaves
// the lock to expire after the TTL.
func (l *RedisLocker) release(redisKey, token string) {
	// the caller's ctx may already be cancelled; release regardless
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	deleted, err := unlockScript.Run(ctx, l.client, []string{redisKey}, token).Int64()
	if err != nil {
		l.logger.Warn("SessionLocker", "Failed to release session lock", map[string]interface{}{
			"key":   redisKey,
			"ttl":   l.ttl.String(),
			"error": err.Error(),
		})
		return
	}
	if deleted == 0 {
		l.logger.Warn("SessionLocker", "Session lock expired before release", map[string]interface{}{
			"key": redisKey,
			"ttl": l.ttl.String(),
		})
	}
}
