package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/userstore/memory"
)

const loadSecret = "credauth-loadtest-secret-0123456789abcdef"

type account struct {
	email    string
	password string
}

func main() {
	var (
		accounts    = flag.Int("accounts", 200, "number of accounts to seed")
		concurrency = flag.Int("concurrency", 32, "number of concurrent workers")
		ops         = flag.Int("ops", 2000, "operations per phase (login + failed login)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		memoryKiB   = flag.Uint("memory", 19456, "argon2id memory in KiB for both profiles")
		iterations  = flag.Uint("time", 2, "argon2id iterations for both profiles")
		hashes      = flag.Int("max-hashes", 4, "max concurrent argon2id computations")
		shadow      = flag.Bool("shadow", false, "keep the shadow delays on failures")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 || *ops <= 0 || *hashes <= 0 {
		fmt.Fprintln(os.Stderr, "accounts, concurrency, ops, and max-hashes must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := credAuth.DefaultConfig()
	cfg.JWT.Secret = loadSecret
	cfg.Password.Base.Memory = uint32(*memoryKiB)
	cfg.Password.Base.Time = uint32(*iterations)
	cfg.Password.Strong.Memory = uint32(*memoryKiB)
	cfg.Password.Strong.Time = uint32(*iterations)
	cfg.Password.MaxConcurrentHashes = *hashes
	cfg.Throttle.Points = 1 << 30
	cfg.Throttle.RedisPrefix = fmt.Sprintf("loadtest:%d", time.Now().UnixNano())
	if !*shadow {
		cfg.Throttle.BlockedDelay = 0
		cfg.Throttle.FailedDelay = 0
	}
	// Failed logins in the second phase would otherwise trip alerts on every account.
	cfg.Alert.FailedLoginThreshold = 0

	engine, err := credAuth.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserStore(memory.New()).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close(ctx)

	seeded := make([]account, *accounts)
	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := range seeded {
		seeded[i] = account{
			email:    fmt.Sprintf("user-%d@loadtest.example", i),
			password: fmt.Sprintf("loadtest-password-%d", i),
		}
		_, err := engine.Register(withIP(ctx, i), credAuth.RegisterRequest{
			Name:            fmt.Sprintf("User %d", i),
			Email:           seeded[i].email,
			Password:        seeded[i].password,
			ConfirmPassword: seeded[i].password,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "register failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	loginStats := runPhase(ctx, seeded, *ops, *concurrency, 7919, func(ctx context.Context, a account) bool {
		_, err := engine.Authenticate(ctx, a.email, a.password)
		return err == nil
	})
	failedStats := runPhase(ctx, seeded, *ops, *concurrency, 6151, func(ctx context.Context, a account) bool {
		_, err := engine.Authenticate(ctx, a.email, "not-"+a.password)
		return err != nil
	})

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("failed", failedStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("rehashes=%d pepper_fallbacks=%d\n",
		snap.Counters[credAuth.MetricRehashPerformed],
		snap.Counters[credAuth.MetricPepperFallback],
	)
}

// withIP spreads callers over 198.18.0.0/15 so no single throttle key gets hot.
func withIP(ctx context.Context, n int) context.Context {
	return credAuth.WithClientIP(ctx, fmt.Sprintf("198.%d.%d.%d", 18+(n>>16)&1, (n>>8)&0xFF, n&0xFF))
}

// runPhase calls op ops times over random accounts. op reports whether the outcome was the
// expected one.
func runPhase(ctx context.Context, accounts []account, ops, concurrency int, seed int64, op func(context.Context, account) bool) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				idx := r.Intn(len(accounts))
				t0 := time.Now()
				ok := op(withIP(ctx, i), accounts[idx])
				d := time.Since(t0)
				if !ok {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d unexpected=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
