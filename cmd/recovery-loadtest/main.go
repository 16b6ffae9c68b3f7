// Command recovery-loadtest runs many concurrent recovery flows against an
// in-process stub backend and reports per-step latency percentiles.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goRecovery "github.com/MrEthical07/goRecovery"
	"github.com/MrEthical07/goRecovery/internal/stubapi"
	"github.com/MrEthical07/goRecovery/jwt"
	"github.com/MrEthical07/goRecovery/password"
)

func main() {
	var (
		accounts    = flag.Int("accounts", 2000, "number of accounts to seed; each is recovered once")
		concurrency = flag.Int("concurrency", 64, "number of concurrent flows")
		redisAddr   = flag.String("redis-addr", "", "redis address for the failure ledger; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "loadtest", "ledger key prefix")
	)
	flag.Parse()

	if *accounts <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "accounts and concurrency must be > 0")
		os.Exit(2)
	}

	client, cleanup, err := redisClient(*redisAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	srv, err := newStub(client, *prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "stub: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("seeding %d accounts...\n", *accounts)
	startSeed := time.Now()
	for i := 0; i < *accounts; i++ {
		if _, err := srv.AddAccount(fmt.Sprintf("User %d", i), emailFor(i), "Default123"); err != nil {
			fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen: %v\n", err)
		os.Exit(1)
	}
	hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = hs.Serve(ln) }()
	defer hs.Close()

	verify, reset := runFlows(context.Background(), "http://"+ln.Addr().String(), *accounts, *concurrency)

	fmt.Println("---- results ----")
	printStats("verify", verify)
	printStats("reset", reset)
}

func redisClient(addr string) (redis.UniversalClient, func(), error) {
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

func newStub(client redis.UniversalClient, prefix string) (*stubapi.Server, error) {
	tokens, err := jwt.NewManager(jwt.Config{
		TTL:           5 * time.Minute,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    []byte("loadtest-signing-secret-0123456789abcdef"),
		Issuer:        "recovery-loadtest",
	})
	if err != nil {
		return nil, err
	}
	hasher, err := password.NewArgon2(stubapi.FastHashCost())
	if err != nil {
		return nil, err
	}
	return stubapi.NewServer(stubapi.Config{
		Tokens: tokens,
		Hasher: hasher,
		Ledger: stubapi.NewRedisLedger(client, prefix, 10*time.Minute),
	})
}

// runFlows recovers every account exactly once, spread over concurrency
// workers, and returns the verify and reset latencies.
func runFlows(ctx context.Context, baseURL string, accounts, concurrency int) (phaseStats, phaseStats) {
	hc := &http.Client{Transport: &http.Transport{MaxIdleConnsPerHost: concurrency}}
	cfg := goRecovery.DefaultConfig()
	cfg.API.BaseURL = baseURL

	var (
		wg             sync.WaitGroup
		cursor         int64
		verifyFailures int64
		resetFailures  int64
		mu             sync.Mutex
		verifyLat      = make([]time.Duration, 0, accounts)
		resetLat       = make([]time.Duration, 0, accounts)
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= accounts {
					return
				}

				flow, err := goRecovery.New().WithConfig(cfg).WithHTTPClient(hc).Build()
				if err != nil {
					atomic.AddInt64(&verifyFailures, 1)
					continue
				}

				t0 := time.Now()
				err = flow.SubmitVerification(ctx, goRecovery.VerificationRequest{
					Name:            fmt.Sprintf("User %d", i),
					Email:           emailFor(i),
					DefaultPassword: "Default123",
				})
				dv := time.Since(t0)
				mu.Lock()
				verifyLat = append(verifyLat, dv)
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&verifyFailures, 1)
					flow.Close()
					continue
				}

				t0 = time.Now()
				err = flow.SubmitReset(ctx, "N3wPassword!", "N3wPassword!")
				dr := time.Since(t0)
				mu.Lock()
				resetLat = append(resetLat, dr)
				mu.Unlock()
				if err != nil {
					atomic.AddInt64(&resetFailures, 1)
				}
				flow.Close()
			}
		}()
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, verifyLat, verifyFailures), computeStats(total, resetLat, resetFailures)
}

func emailFor(i int) string {
	return fmt.Sprintf("user%d@example.com", i)
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
		return phaseStats{total: total, failures: failures}
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
	return samples[(len(samples)-1)*p/100]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
