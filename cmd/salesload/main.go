// salesload ingests per-channel order CSV files from an object store into a
// warehouse table. It has two modes: ingest a single object (the
// notification-triggered path) and backfill a whole container listing.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/youssefmaimouni/GoogleCloudProject/internal/config"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/metrics"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/metrics/prompush"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore/fsstore"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/objstore/s3store"
	csvparser "github.com/youssefmaimouni/GoogleCloudProject/internal/parser/csv"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/pipeline"
	"github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse"
	_ "github.com/youssefmaimouni/GoogleCloudProject/internal/warehouse/all"
)

var (
	flagConfig         string
	flagMetricsBackend string
	flagPushgatewayURL string
	flagVerbose        bool
)

func main() {
	// Local development convenience; absence of a .env file is not an error.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "salesload",
		Short:         "Load per-channel sales order files into the warehouse",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}
	root.PersistentFlags().StringVarP(&flagConfig, "config", "c", "config.json", "path to config file")
	root.PersistentFlags().StringVar(&flagMetricsBackend, "metrics-backend", "", "metrics backend (pushgateway)")
	root.PersistentFlags().StringVar(&flagPushgatewayURL, "pushgateway-url", "http://localhost:9091", "pushgateway address")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newIngestCmd())
	root.AddCommand(newBackfillCmd())

	if err := root.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func newIngestCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Process a single object key",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := coord.ProcessObject(cmd.Context(), key)
			if err != nil {
				return err
			}
			if rep.Outcome == pipeline.OutcomeSkipped {
				log.Printf("%s: not a data file, skipped", key)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&key, "key", "k", "", "object key to ingest")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func newBackfillCmd() *cobra.Command {
	var (
		prefix  string
		workers int
		maxRows int
	)
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Reprocess all eligible order files in the container",
		RunE: func(cmd *cobra.Command, args []string) error {
			coord, cleanup, err := setup()
			if err != nil {
				return err
			}
			defer cleanup()

			if workers > 0 {
				coord.Workers = workers
			}
			if cmd.Flags().Changed("max-rows") {
				coord.MaxRows = maxRows
			}

			summary, err := coord.Backfill(cmd.Context(), prefix)
			if err != nil {
				return err
			}
			if n := summary.Failed(); n > 0 {
				return fmt.Errorf("backfill %s: %d of %d files failed", summary.RunID, n, len(summary.Files))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&prefix, "prefix", "p", "", "only keys under this prefix, e.g. a date folder")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent files (overrides config)")
	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "cap validated rows per file, 0 = unlimited")
	return cmd
}

// setup loads and validates configuration and wires the store, the loader
// and the metrics backend into a ready coordinator. The returned cleanup
// closes the loader and flushes metrics.
func setup() (*pipeline.Coordinator, func(), error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, nil, err
	}

	fatal := false
	for _, issue := range config.Validate(cfg) {
		if issue.Severity == config.SeverityError {
			log.Error(issue.Error())
			fatal = true
		} else {
			log.Warn(issue.Error())
		}
	}
	if fatal {
		return nil, nil, fmt.Errorf("config %s: validation failed", flagConfig)
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	loader, err := warehouse.New(context.Background(), warehouse.Config{
		Kind:            cfg.Warehouse.Kind,
		DSN:             cfg.Warehouse.DSN,
		Table:           cfg.Warehouse.Table,
		AutoCreateTable: cfg.Warehouse.AutoCreateTable,
	})
	if err != nil {
		return nil, nil, err
	}

	if flagMetricsBackend == "pushgateway" {
		backend, err := prompush.NewBackend(cfg.Job, flagPushgatewayURL)
		if err != nil {
			return nil, nil, err
		}
		metrics.SetBackend(backend)
	}

	coord := &pipeline.Coordinator{
		Store:     store,
		Loader:    loader,
		Job:       cfg.Job,
		Container: cfg.Store.Container,
		Table:     cfg.Warehouse.Table,
		ParserOptions: csvparser.Options{
			Comma:       cfg.Parser.CommaRune(),
			NoTrimSpace: cfg.Parser.NoTrimSpace,
			Encoding:    cfg.Parser.Encoding,
		},
		MaxRows:     cfg.Runtime.MaxRows,
		Workers:     cfg.Runtime.Workers,
		ReadTimeout: time.Duration(cfg.Runtime.ReadTimeoutSeconds) * time.Second,
		LoadTimeout: time.Duration(cfg.Runtime.LoadTimeoutSeconds) * time.Second,
	}

	cleanup := func() {
		if err := loader.Close(); err != nil {
			log.Warnf("closing loader: %v", err)
		}
		if err := metrics.Flush(); err != nil {
			log.Warnf("flushing metrics: %v", err)
		}
	}
	return coord, cleanup, nil
}

func newStore(cfg config.Config) (objstore.Store, error) {
	switch cfg.Store.Kind {
	case "fs":
		return fsstore.New(cfg.Store.Root), nil
	case "s3":
		return s3store.New(context.Background(), s3store.Config{
			Region:   cfg.Store.Region,
			Endpoint: cfg.Store.Endpoint,
		})
	default:
		return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
	}
}
