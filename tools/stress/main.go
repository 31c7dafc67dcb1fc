// Command stress drives a listview-server with concurrent compare and
// validate requests built from random list-view arrays.
package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/VanDung-dev/HieraChain-ListView/api"
	"github.com/VanDung-dev/HieraChain-ListView/bitmap"
	"github.com/VanDung-dev/HieraChain-ListView/ipc"
	"github.com/VanDung-dev/HieraChain-ListView/listview"
	"github.com/VanDung-dev/HieraChain-ListView/network"
	"github.com/VanDung-dev/HieraChain-ListView/offset"
)

// Config holds configuration for the stress test.
type Config struct {
	Address      string        `yaml:"address"`
	Concurrency  int           `yaml:"concurrency"`
	Duration     time.Duration `yaml:"duration"`
	Rows         int           `yaml:"rows"`
	ShipEndpoint string        `yaml:"ship_endpoint,omitempty"`
}

// Result holds the results of a stress test.
type Result struct {
	TotalRequests  int64         `yaml:"total_requests"`
	SuccessfulReqs int64         `yaml:"successful"`
	FailedReqs     int64         `yaml:"failed"`
	Mismatches     int64         `yaml:"mismatches"`
	ShippedBatches int64         `yaml:"shipped_batches"`
	TotalDuration  time.Duration `yaml:"duration"`
	AvgLatency     time.Duration `yaml:"avg_latency"`
	MinLatency     time.Duration `yaml:"min_latency"`
	MaxLatency     time.Duration `yaml:"max_latency"`
	RequestsPerSec float64       `yaml:"requests_per_sec"`
}

type stats struct {
	total, success, failed, mismatches, shipped atomic.Int64
	latency, minLatency, maxLatency             atomic.Int64
}

func (s *stats) observe(d time.Duration) {
	lat := int64(d)
	s.latency.Add(lat)
	for {
		old := s.minLatency.Load()
		if lat >= old || s.minLatency.CompareAndSwap(old, lat) {
			break
		}
	}
	for {
		old := s.maxLatency.Load()
		if lat <= old || s.maxLatency.CompareAndSwap(old, lat) {
			break
		}
	}
}

func main() {
	var config Config
	app := kingpin.New("stress", "Stress test a listview-server.")
	app.Flag("addr", "Server address").Default("127.0.0.1:50051").StringVar(&config.Address)
	app.Flag("concurrency", "Number of concurrent workers").Short('c').Default("10").IntVar(&config.Concurrency)
	app.Flag("duration", "Duration of test").Short('d').Default("30s").DurationVar(&config.Duration)
	app.Flag("rows", "Rows per generated array").Default("1024").IntVar(&config.Rows)
	app.Flag("ship", "Also ship every generated array to this ZeroMQ endpoint").StringVar(&config.ShipEndpoint)
	report := app.Flag("report", "Write a YAML report to this file").Short('o').String()
	kingpin.MustParse(app.Parse(os.Args[1:]))

	logger := level.NewFilter(log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr)), level.AllowInfo())

	level.Info(logger).Log("msg", "starting", "addr", config.Address, "concurrency", config.Concurrency, "duration", config.Duration)
	result, err := run(config, logger)
	if err != nil {
		level.Error(logger).Log("msg", "stress test failed", "err", err)
		os.Exit(1)
	}
	printResult(result)

	if *report != "" {
		out, err := yaml.Marshal(map[string]any{"config": config, "result": result, "timestamp": time.Now().Format(time.RFC3339)})
		if err == nil {
			err = os.WriteFile(*report, out, 0o600)
		}
		if err != nil {
			level.Error(logger).Log("msg", "failed to write report", "err", err)
			os.Exit(1)
		}
	}
}

func run(config Config, logger log.Logger) (Result, error) {
	var shipper *network.Shipper
	if config.ShipEndpoint != "" {
		shipper = network.NewShipper(fmt.Sprintf("stress-%d", os.Getpid()), config.ShipEndpoint, logger)
		if err := shipper.Start(); err != nil {
			return Result{}, err
		}
		defer shipper.Stop()
	}

	var s stats
	s.minLatency.Store(1<<63 - 1)

	ctx, cancel := context.WithTimeout(context.Background(), config.Duration)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	start := time.Now()
	for i := range config.Concurrency {
		g.Go(func() error {
			return worker(ctx, uint64(i), config, shipper, &s) // #nosec G115
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	duration := time.Since(start)

	result := Result{
		TotalRequests:  s.total.Load(),
		SuccessfulReqs: s.success.Load(),
		FailedReqs:     s.failed.Load(),
		Mismatches:     s.mismatches.Load(),
		ShippedBatches: s.shipped.Load(),
		TotalDuration:  duration,
		MinLatency:     time.Duration(s.minLatency.Load()),
		MaxLatency:     time.Duration(s.maxLatency.Load()),
		RequestsPerSec: float64(s.total.Load()) / duration.Seconds(),
	}
	if result.SuccessfulReqs > 0 {
		result.AvgLatency = time.Duration(s.latency.Load() / result.SuccessfulReqs)
	} else {
		result.MinLatency = 0
	}
	return result, nil
}

func worker(ctx context.Context, id uint64, config Config, shipper *network.Shipper, s *stats) error {
	client, err := api.Dial(ctx, config.Address)
	if err != nil {
		return err
	}
	defer client.Close()

	rng := rand.New(rand.NewPCG(id, uint64(time.Now().UnixNano()))) // #nosec G404 G115
	w := ipc.NewIPCWriter()

	for ctx.Err() == nil {
		left, right := randomPair(rng, config.Rows)
		stream, err := w.SerializeColumnsToIPC([]string{"left", "right"}, []ipc.Column{left, right})
		if err != nil {
			return errors.Wrap(err, "failed to serialize")
		}

		t0 := time.Now()
		eq, err := client.Compare(stream)
		s.total.Add(1)
		if err != nil {
			s.failed.Add(1)
			if !errors.Is(err, api.ErrRemote) {
				return err
			}
			continue
		}
		s.success.Add(1)
		s.observe(time.Since(t0))

		if !sameBools(eq, expected(left, right)) {
			s.mismatches.Add(1)
		}

		if shipper != nil {
			if _, err := shipper.Ship(left); err != nil {
				return err
			}
			s.shipped.Add(1)
		}
	}
	return nil
}

// randomPair builds two arrays over one shared child. Every other right
// element reuses the left element's range so that roughly half the rows
// compare equal.
func randomPair(rng *rand.Rand, rows int) (*listview.LargeListView, *listview.LargeListView) {
	childLen := rows * 2
	b := array.NewInt64Builder(memory.DefaultAllocator)
	defer b.Release()
	for range childLen {
		b.Append(rng.Int64N(8))
	}
	child := b.NewArray()

	lo, ll := make([]int64, rows), make([]int64, rows)
	ro, rl := make([]int64, rows), make([]int64, rows)
	valid := make([]bool, rows)
	for i := range rows {
		ll[i] = rng.Int64N(5)
		lo[i] = rng.Int64N(int64(childLen) - ll[i] + 1)
		if i%2 == 0 {
			ro[i], rl[i] = lo[i], ll[i]
		} else {
			rl[i] = rng.Int64N(5)
			ro[i] = rng.Int64N(int64(childLen) - rl[i] + 1)
		}
		valid[i] = rng.IntN(10) != 0
	}

	dt := arrow.LargeListOf(arrow.PrimitiveTypes.Int64)
	mask := bitmap.FromBools(valid...)
	left := listview.MustNew(dt, offset.New(lo), offset.New(ll), child, &mask)
	right := listview.MustNew(dt, offset.New(ro), offset.New(rl), child, nil)
	return left, right
}

func expected(left, right *listview.LargeListView) []bool {
	out := make([]bool, left.Len())
	for i := range out {
		if left.IsNull(i) || right.IsNull(i) {
			out[i] = true
			continue
		}
		l, r := left.Value(i), right.Value(i)
		out[i] = array.Equal(l, r)
		l.Release()
		r.Release()
	}
	return out
}

func sameBools(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func printResult(r Result) {
	pct := func(n int64) float64 {
		if r.TotalRequests == 0 {
			return 0
		}
		return float64(n) / float64(r.TotalRequests) * 100
	}
	fmt.Println("=== Results ===")
	fmt.Printf("Duration:        %v\n", r.TotalDuration.Round(time.Millisecond))
	fmt.Printf("Total Requests:  %d\n", r.TotalRequests)
	fmt.Printf("Successful:      %d (%.2f%%)\n", r.SuccessfulReqs, pct(r.SuccessfulReqs))
	fmt.Printf("Failed:          %d (%.2f%%)\n", r.FailedReqs, pct(r.FailedReqs))
	fmt.Printf("Mismatches:      %d\n", r.Mismatches)
	fmt.Printf("Shipped:         %d\n", r.ShippedBatches)
	fmt.Printf("Requests/sec:    %.2f\n", r.RequestsPerSec)
	fmt.Printf("Avg Latency:     %v\n", r.AvgLatency.Round(time.Microsecond))
	fmt.Printf("Min Latency:     %v\n", r.MinLatency.Round(time.Microsecond))
	fmt.Printf("Max Latency:     %v\n", r.MaxLatency.Round(time.Microsecond))
}
