package api

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	errLoginRateLimited = errors.New("rate limit exceeded")
	errLoginLocked      = errors.New("account temporarily locked")
)

// loginThrottle bounds password attempts per client and locks an email after
// repeated failures. A nil client disables throttling.
type loginThrottle struct {
	client     redis.UniversalClient
	perHour    int
	threshold  int
	lockWindow time.Duration
	now        func() time.Time
}

func newLoginThrottle(client redis.UniversalClient, opts AuthHandlerOptions) *loginThrottle {
	return &loginThrottle{
		client:     client,
		perHour:    opts.LoginRateLimitPerHour,
		threshold:  opts.LoginLockThreshold,
		lockWindow: opts.LoginLockTTL,
		now:        time.Now,
	}
}

func attemptKey(ip, email string, at time.Time) string {
	return "rate:login:" + ip + ":" + email + ":" + at.UTC().Format("2006010215")
}

func failureKey(email string) string { return "lock:login:fail:" + email }

func lockKey(email string) string { return "lock:login:" + email }

// admit counts one attempt and reports whether it may proceed. Redis errors
// fail open.
func (t *loginThrottle) admit(ctx context.Context, ip, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	attempts, err := t.bump(ctx, attemptKey(ip, email, t.now()), time.Hour)
	if err == nil && t.perHour > 0 && attempts > int64(t.perHour) {
		return errLoginRateLimited
	}
	if ttl, err := t.client.TTL(ctx, lockKey(email)).Result(); err == nil && ttl > 0 {
		return errLoginLocked
	}
	return nil
}

// fail records a failed attempt and sets the lock once the threshold is reached.
func (t *loginThrottle) fail(ctx context.Context, email string) error {
	if t == nil || t.client == nil {
		return nil
	}
	failures, err := t.bump(ctx, failureKey(email), t.lockWindow)
	if err != nil {
		return err
	}
	if t.threshold > 0 && failures >= int64(t.threshold) {
		return t.client.Set(ctx, lockKey(email), "1", t.lockWindow).Err()
	}
	return nil
}

func (t *loginThrottle) reset(ctx context.Context, email string) {
	if t == nil || t.client == nil {
		return
	}
	_ = t.client.Del(ctx, failureKey(email)).Err()
}

// bump increments key and arms its expiry in one round trip. ExpireNX keeps
// the window anchored at the first hit.
func (t *loginThrottle) bump(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := t.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
