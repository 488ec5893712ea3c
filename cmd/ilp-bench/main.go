// ilp-bench generates synthetic rows and streams them at an ingestion
// endpoint, reporting throughput. Useful for sizing auto-flush thresholds
// and validating connectivity and auth before wiring a real producer.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pior/ilp"
)

// fileConfig mirrors the flags for TOML config files.
type fileConfig struct {
	Conf    string `toml:"conf"`
	Table   string `toml:"table"`
	Rows    int    `toml:"rows"`
	Workers int    `toml:"workers"`
	Batch   int    `toml:"batch"`
}

type options struct {
	conf    string
	cfgPath string
	table   string
	rows    int
	workers int
	batch   int
	verbose bool
}

func main() {
	var opts options

	root := &cobra.Command{
		Use:   "ilp-bench",
		Short: "Generate synthetic rows and stream them at an ingestion endpoint",
		Example: `  ilp-bench --conf "tcp::addr=localhost:9009;" --rows 1000000
  ilp-bench --config bench.toml --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfgPath != "" {
				if err := applyFile(&opts, cmd.Flags()); err != nil {
					return err
				}
			}
			return run(cmd.Context(), opts)
		},
		SilenceUsage: true,
	}

	flags := root.Flags()
	flags.StringVar(&opts.conf, "conf", "tcp::addr=localhost:9009;", "sender conf string")
	flags.StringVar(&opts.cfgPath, "config", "", "TOML config file (flags override)")
	flags.StringVar(&opts.table, "table", "bench", "target table")
	flags.IntVar(&opts.rows, "rows", 100_000, "rows to send per worker")
	flags.IntVar(&opts.workers, "workers", 1, "concurrent senders")
	flags.IntVar(&opts.batch, "batch", 1000, "rows between explicit flushes")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "log retries and flushes")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ilp-bench:", err)
		os.Exit(1)
	}
}

// applyFile loads the TOML config and fills in flags the user did not set
// explicitly.
func applyFile(opts *options, flags *pflag.FlagSet) error {
	b, err := os.ReadFile(opts.cfgPath)
	if err != nil {
		return err
	}
	var fc fileConfig
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", opts.cfgPath, err)
	}

	if !flags.Changed("conf") && fc.Conf != "" {
		opts.conf = fc.Conf
	}
	if !flags.Changed("table") && fc.Table != "" {
		opts.table = fc.Table
	}
	if !flags.Changed("rows") && fc.Rows > 0 {
		opts.rows = fc.Rows
	}
	if !flags.Changed("workers") && fc.Workers > 0 {
		opts.workers = fc.Workers
	}
	if !flags.Changed("batch") && fc.Batch > 0 {
		opts.batch = fc.Batch
	}
	return nil
}

func run(ctx context.Context, opts options) error {
	conf, err := ilp.ParseConf(opts.conf)
	if err != nil {
		return err
	}
	if opts.verbose {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
		conf.Logger = &logger
	}

	pool, err := ilp.NewSenderPool(conf, int32(opts.workers))
	if err != nil {
		return err
	}
	defer pool.Close()

	var sent atomic.Int64
	var wg sync.WaitGroup
	start := time.Now()
	errs := make(chan error, opts.workers)

	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			if err := runWorker(ctx, pool, opts, worker, &sent); err != nil {
				errs <- err
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	if err := <-errs; err != nil {
		return err
	}

	elapsed := time.Since(start)
	total := sent.Load()
	fmt.Printf("sent %d rows in %s (%.0f rows/s)\n",
		total, elapsed.Round(time.Millisecond), float64(total)/elapsed.Seconds())
	return nil
}

func runWorker(ctx context.Context, pool *ilp.SenderPool, opts options, worker int, sent *atomic.Int64) error {
	ps, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer ps.Release()
	sender := ps.Sender()

	host := fmt.Sprintf("worker-%d", worker)
	for i := 0; i < opts.rows; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sender.Table(opts.table); err != nil {
			return err
		}
		if err := sender.Symbol("host", host); err != nil {
			return err
		}
		if err := sender.Int64Field("seq", int64(i)); err != nil {
			return err
		}
		if err := sender.Float64Field("value", float64(i%1000)/10); err != nil {
			return err
		}
		if err := sender.At(ctx, time.Now()); err != nil {
			return err
		}
		sent.Add(1)

		if opts.batch > 0 && (i+1)%opts.batch == 0 {
			if err := sender.Flush(ctx); err != nil {
				return err
			}
		}
	}
	return sender.Flush(ctx)
}
