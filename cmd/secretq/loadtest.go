package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	goSecretQ "github.com/MrEthical07/goSecretQ"
	"github.com/MrEthical07/goSecretQ/redisstore"
)

type loadtestOptions struct {
	users       int
	concurrency int
	ops         int
	redisAddr   string
	prefix      string
	strategy    string
	// rps paces each phase; zero runs unthrottled.
	rps int
}

func newLoadtestCmd() *cobra.Command {
	var o loadtestOptions
	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Measure answer validation and step throughput against Redis",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if o.users <= 0 || o.concurrency <= 0 || o.ops <= 0 {
				return errors.New("users, concurrency, and ops must be > 0")
			}
			return runLoadtest(cmd.Context(), cmd.OutOrStdout(), o)
		},
	}
	cmd.Flags().IntVar(&o.users, "users", 10000, "number of users to enroll")
	cmd.Flags().IntVar(&o.concurrency, "concurrency", 256, "number of concurrent workers")
	cmd.Flags().IntVar(&o.ops, "ops", 100000, "operations per phase (validate + action)")
	cmd.Flags().StringVar(&o.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	cmd.Flags().StringVar(&o.prefix, "prefix", "lt:cred", "credential key prefix")
	cmd.Flags().StringVar(&o.strategy, "strategy", "plain", "answer strategy: plain or argon2")
	cmd.Flags().IntVar(&o.rps, "rate", 0, "target operations per second per phase (0 = unlimited)")
	return cmd
}

func runLoadtest(ctx context.Context, out io.Writer, o loadtestOptions) error {
	addr := o.redisAddr
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
			return fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Fprintf(out, "using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Fprintf(out, "using redis at %s\n", addr)
	}
	defer cleanup()

	cfg := goSecretQ.DefaultConfig()
	cfg.Answer.Strategy = o.strategy
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	engine, err := goSecretQ.New().
		WithConfig(cfg).
		WithStore(redisstore.NewStore(client, o.prefix)).
		WithRenderer(goSecretQ.RendererFunc(func(_ context.Context, f goSecretQ.Form) (any, error) {
			return f.TemplateID, nil
		})).
		WithLogger(stdLogger(log.New(io.Discard))).
		Build()
	if err != nil {
		return err
	}
	defer engine.Close()

	fmt.Fprintf(out, "enrolling %d users...\n", o.users)
	startSeed := time.Now()
	for i := 0; i < o.users; i++ {
		if _, err := engine.CreateCredential(ctx, userFor(i), "What is your surname?", answerFor(i)); err != nil {
			return fmt.Errorf("enroll failed: %w", err)
		}
	}
	fmt.Fprintf(out, "enrolled in %s\n", time.Since(startSeed).Round(time.Millisecond))

	validateStats := runPhase(ctx, o.ops, o.concurrency, o.rps, 7919, func(r *rand.Rand) error {
		idx := r.Intn(o.users)
		submitted := answerFor(idx)
		wrong := r.Intn(10) == 0
		if wrong {
			submitted += "x"
		}
		ok, err := engine.Validate(ctx, userFor(idx), "", submitted)
		if err != nil {
			return err
		}
		if ok == wrong {
			return errors.New("unexpected validation result")
		}
		return nil
	})

	actionStats := runPhase(ctx, o.ops, o.concurrency, o.rps, 6151, func(r *rand.Rand) error {
		idx := r.Intn(o.users)
		res, err := engine.Action(ctx, goSecretQ.StepRequest{
			UserID:  userFor(idx),
			Realm:   "loadtest",
			BaseURI: "https://id.example.com/",
			Form:    url.Values{goSecretQ.FieldAnswer: {answerFor(idx)}},
		})
		if err != nil {
			return err
		}
		if res.Status != goSecretQ.StepSuccess || res.Marker == nil {
			return errors.New("action did not succeed")
		}
		return nil
	})

	fmt.Fprintln(out, "---- results ----")
	printStats(out, "validate", validateStats)
	printStats(out, "action", actionStats)
	return nil
}

func runPhase(ctx context.Context, ops, concurrency, rps int, seed int64, op func(*rand.Rand) error) phaseStats {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}

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
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						atomic.AddInt64(&failures, 1)
						continue
					}
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

func userFor(i int) string {
	return fmt.Sprintf("user-%d", i)
}

func answerFor(i int) string {
	return fmt.Sprintf("answer-%d", i*7+3)
}
