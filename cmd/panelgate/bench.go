package main

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	panelGate "github.com/MrEthical07/panelGate"
	"github.com/MrEthical07/panelGate/gate"
	"github.com/MrEthical07/panelGate/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

type benchOptions struct {
	browsers    int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
}

var benchPaths = []string{
	"/", "/login", "/dashboard", "/requests/42", "/prospects", "/calendar",
	"/map", "/profile", "/public/help", "/api/users", "/_next/static/app.js", "/logo.png",
}

var benchRoles = func() []string {
	out := []string{""}
	for _, r := range gate.AllRoles() {
		out = append(out, r.Code())
	}
	return out
}()

func newBenchCmd() *cobra.Command {
	opts := benchOptions{}
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure gate decision and session store latency",
		Long: `Run two load phases: concurrent gate decisions over a mix of paths and
roles, then session SetAuth/Hydrate round trips through Redis. Without
--redis-addr or REDIS_ADDR an in-process miniredis is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBench(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().IntVar(&opts.browsers, "browsers", 10000, "number of browser sessions to seed")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 256, "number of concurrent workers")
	cmd.Flags().IntVar(&opts.ops, "ops", 200000, "operations per phase")
	cmd.Flags().StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&opts.prefix, "prefix", "pgbench", "session key prefix")
	return cmd
}

func runBench(ctx context.Context, out io.Writer, opts benchOptions) error {
	if opts.browsers <= 0 || opts.concurrency <= 0 || opts.ops <= 0 {
		return errors.New("browsers, concurrency, and ops must be > 0")
	}

	addr := opts.redisAddr
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
			return errors.Wrap(err, "failed to start miniredis")
		}
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Fprintf(out, "using miniredis at %s\n", mr.Addr())
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		cleanup = func() { _ = client.Close() }
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := panelGate.DefaultConfig()
	cfg.Session.RedisPrefix = opts.prefix
	engine, err := panelGate.New().WithConfig(cfg).WithRedis(client).Build()
	if err != nil {
		return errors.Wrap(err, "error building gate engine")
	}
	defer engine.Close()

	decideStats := runDecidePhase(ctx, engine, opts.ops, opts.concurrency)

	browserIDs := make([]string, opts.browsers)
	for i := range browserIDs {
		browserIDs[i] = fmt.Sprintf("bench-%d", i)
	}
	sessionStats := runSessionPhase(ctx, engine, browserIDs, opts.ops, opts.concurrency)

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "decide", decideStats)
	printStats(out, "session", sessionStats)
	return nil
}

func runDecidePhase(ctx context.Context, engine *panelGate.Engine, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(r *rand.Rand) error {
		role := benchRoles[r.Intn(len(benchRoles))]
		token := ""
		if role != "" {
			token = "t"
		}
		engine.Decide(ctx, benchPaths[r.Intn(len(benchPaths))], token, role)
		return nil
	})
}

func runSessionPhase(ctx context.Context, engine *panelGate.Engine, browserIDs []string, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(r *rand.Rand) error {
		id := browserIDs[r.Intn(len(browserIDs))]
		store, err := engine.NewSessionStore(id, nil)
		if err != nil {
			return err
		}
		if err := store.Hydrate(ctx); err != nil {
			return err
		}
		role := gate.AllRoles()[r.Intn(len(gate.AllRoles()))].Code()
		return store.SetAuth(ctx, "tok-"+id, &session.User{
			ID:   id,
			Role: session.UserRole{Code: role, Name: role},
		})
	})
}

// runPhase spreads ops calls of op over concurrency workers and records each
// call's latency.
func runPhase(ops, concurrency int, seedStride int64, op func(r *rand.Rand) error) phaseStats {
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
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seedStride))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r)
				d := time.Since(t0)
				if err != nil {
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

func printStats(out io.Writer, name string, s phaseStats) {
	fmt.Fprintf(out, "%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
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
