package rate

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the per-IP budget parameters.
type Config struct {
	Enabled bool
	// Points is the number of attempts an IP may spend per window.
	Points int
	// Window is the lifetime of a budget, starting at its first consumption.
	Window time.Duration
	// BlockDuration, when positive, replaces the remaining window once the budget is exhausted.
	BlockDuration time.Duration
	// Whitelist holds exact addresses or CIDR prefixes that bypass the budget entirely.
	Whitelist []string
	Prefix    string
}

// IPLimiter enforces a fixed-window attempt budget per client IP using Redis counters.
//
// INCR serialises consumptions for one IP, so a budget decreases monotonically no matter how
// many requests race on it. Distinct IPs never contend.
type IPLimiter struct {
	redis    redis.UniversalClient
	config   Config
	exact    map[netip.Addr]struct{}
	prefixes []netip.Prefix
}

// New creates an [IPLimiter] backed by the given Redis client.
func New(redisClient redis.UniversalClient, cfg Config) (*IPLimiter, error) {
	l := &IPLimiter{
		redis:  redisClient,
		config: cfg,
		exact:  make(map[netip.Addr]struct{}, len(cfg.Whitelist)),
	}
	if l.config.Prefix == "" {
		l.config.Prefix = "lip"
	}

	for _, entry := range cfg.Whitelist {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid whitelist prefix %q: %w", entry, err)
			}
			l.prefixes = append(l.prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid whitelist address %q: %w", entry, err)
		}
		l.exact[addr.Unmap()] = struct{}{}
	}

	return l, nil
}

// Whitelisted reports whether ip bypasses throttling. Unparseable input is never whitelisted.
func (l *IPLimiter) Whitelisted(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if _, ok := l.exact[addr]; ok {
		return true
	}
	for _, p := range l.prefixes {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// Consume spends one point of ip's budget. It returns [ErrRateLimited] once the budget is
// exhausted; every further call keeps returning it until the key expires.
func (l *IPLimiter) Consume(ctx context.Context, ip string) error {
	if !l.config.Enabled {
		return nil
	}

	key := l.key(ip)
	count, err := l.incrementWithTTL(ctx, key, l.config.Window)
	if err != nil {
		return err
	}
	if count <= int64(l.config.Points) {
		return nil
	}

	// First overflow starts the block period.
	if count == int64(l.config.Points)+1 && l.config.BlockDuration > 0 {
		if err := l.redis.Expire(ctx, key, l.config.BlockDuration).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return ErrRateLimited
}

// Reset clears ip's budget. Called after a successful login.
func (l *IPLimiter) Reset(ctx context.Context, ip string) error {
	if !l.config.Enabled {
		return nil
	}
	if err := l.redis.Del(ctx, l.key(ip)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Remaining returns the points ip may still spend in the current window. A disabled limiter
// reports the configured budget without touching Redis.
func (l *IPLimiter) Remaining(ctx context.Context, ip string) (int, error) {
	if !l.config.Enabled {
		return l.config.Points, nil
	}
	count, err := l.redis.Get(ctx, l.key(ip)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return l.config.Points, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	remaining := int64(l.config.Points) - count
	if remaining < 0 {
		return 0, nil
	}
	return int(remaining), nil
}

func (l *IPLimiter) key(ip string) string {
	return l.config.Prefix + ":" + ip
}

func (l *IPLimiter) incrementWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed-window semantics: set TTL only for the first hit in the window.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, ttl).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	return count, nil
}
