package moderation

import (
	"context"
	"strconv"
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/redis/go-redis/v9"

	"github.com/Rhejna/missing-person-app/apperr"
)

// Ledger remembers which reporter sessions already reported a subject
type Ledger interface {
	// Add records session against subject and reports whether it was new
	Add(ctx context.Context, subject, session string) (bool, error)
	// Remove forgets session, used when the report could not be persisted
	Remove(ctx context.Context, subject, session string) error
}

// SessionKey fingerprints a raw reporter session (header value or client ip)
// so the ledger never stores the raw identifier.
func SessionKey(raw string) string {
	h := xxhash.NewS64(0)
	h.Write([]byte(raw))
	return strconv.FormatUint(h.Sum64(), 16)
}

// MemoryLedger is an in-process Ledger
type MemoryLedger struct {
	mu   sync.Mutex
	seen map[string]map[string]struct{}
}

// NewMemoryLedger returns an empty MemoryLedger
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{seen: make(map[string]map[string]struct{})}
}

// Add implements Ledger
func (l *MemoryLedger) Add(_ context.Context, subject, session string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	set, ok := l.seen[subject]
	if !ok {
		set = make(map[string]struct{})
		l.seen[subject] = set
	}
	if _, dup := set[session]; dup {
		return false, nil
	}
	set[session] = struct{}{}
	return true, nil
}

// Remove implements Ledger
func (l *MemoryLedger) Remove(_ context.Context, subject, session string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen[subject], session)
	return nil
}

// setCmds is the part of redis.Cmdable the ledger needs
type setCmds interface {
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
}

// RedisLedger keeps one redis set of session keys per subject so report
// dedup survives restarts and is shared between instances.
type RedisLedger struct {
	rdb    setCmds
	prefix string
}

// NewRedisLedger wraps a go-redis client
func NewRedisLedger(rdb setCmds) *RedisLedger {
	return &RedisLedger{rdb: rdb, prefix: "reports:"}
}

// Add implements Ledger
func (l *RedisLedger) Add(ctx context.Context, subject, session string) (bool, error) {
	n, err := l.rdb.SAdd(ctx, l.prefix+subject, session).Result()
	if err != nil {
		return false, apperr.Storage("report ledger add", err)
	}
	return n == 1, nil
}

// Remove implements Ledger
func (l *RedisLedger) Remove(ctx context.Context, subject, session string) error {
	if err := l.rdb.SRem(ctx, l.prefix+subject, session).Err(); err != nil {
		return apperr.Storage("report ledger remove", err)
	}
	return nil
}

// NewRedisClient parses a redis:// url
func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}
