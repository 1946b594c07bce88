package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/macrolabs/risklake/pkg/countries"
	"github.com/macrolabs/risklake/pkg/extract"
	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/indexer/metrics"
	"github.com/macrolabs/risklake/pkg/indexer/runner"
	"github.com/macrolabs/risklake/pkg/indexer/worldbank"
	"github.com/macrolabs/risklake/pkg/logger"
	"github.com/macrolabs/risklake/pkg/scores"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	defaultDBURI       = "file://.tmp/risklake/risklake.duckdb"
	defaultMetricsAddr = ""

	dbURIEnvVar          = "RISKLAKE_DB_URI"
	countryAliasesEnvVar = "RISKLAKE_COUNTRY_ALIASES"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	metricsAddrFlag := flag.String("metrics-addr", defaultMetricsAddr, "Address to listen on for prometheus metrics (empty to disable)")
	listDatasetsFlag := flag.Bool("list-datasets", false, "list the maintained datasets and exit")
	versionFlag := flag.Bool("version", false, "print version and exit")

	// Warehouse configuration
	dbURIFlag := flag.String("db-uri", defaultDBURI, "warehouse URI: file://path for DuckDB or postgres://... (or set RISKLAKE_DB_URI env var)")

	// Country normalization
	countryAliasesFlag := flag.String("country-aliases", "", "path to a YAML file of extra country name aliases (or set RISKLAKE_COUNTRY_ALIASES env var)")

	// Source inputs; a source with no input file is skipped
	allianzCSVFlag := flag.String("allianz-csv", "", "path to the Allianz ratings CSV")
	countryEconomyCSVFlag := flag.String("countryeconomy-csv", "", "path to the CountryEconomy ratings CSV")
	worldBankCSVFlag := flag.String("worldbank-csv", "", "path to the World Bank governance indicators CSV")
	duplicatePolicyFlag := flag.String("worldbank-duplicate-policy", string(worldbank.DuplicateReject), "how to handle conflicting duplicate worldbank keys in a batch (reject, last-wins)")
	maxConcurrencyFlag := flag.Int("max-concurrency", 3, "maximum number of source batches running at once")

	computeScoresFlag := flag.Bool("compute-scores", false, "compute blended country scores after indexing")

	flag.Parse()

	// Optional .env file; flags and real env still win
	_ = godotenv.Load()

	if *versionFlag {
		fmt.Printf("risklake-indexer %s (commit %s, built %s)\n", version, commit, date)
		return nil
	}

	if *listDatasetsFlag {
		for _, ds := range runner.Datasets() {
			fmt.Printf("%s\ttable=%s\tkey=%v\n", ds.Name, ds.Table, ds.NaturalKey)
		}
		return nil
	}

	// Override flags with environment variables if set
	if envURI := os.Getenv(dbURIEnvVar); envURI != "" && *dbURIFlag == defaultDBURI {
		*dbURIFlag = envURI
	}
	if envAliases := os.Getenv(countryAliasesEnvVar); envAliases != "" && *countryAliasesFlag == "" {
		*countryAliasesFlag = envAliases
	}

	log := logger.New(*verboseFlag)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("indexer: received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	duplicatePolicy, err := worldbank.ParseDuplicatePolicy(*duplicatePolicyFlag)
	if err != nil {
		return err
	}

	resolver, err := countries.NewResolver(*countryAliasesFlag)
	if err != nil {
		return fmt.Errorf("failed to build country resolver: %w", err)
	}

	log.Info("opening warehouse", "uri", warehouse.RedactedURI(*dbURIFlag))
	db, err := warehouse.Open(ctx, log, *dbURIFlag)
	if err != nil {
		return fmt.Errorf("failed to open warehouse: %w", err)
	}
	defer db.Close()

	cfg := runner.Config{
		Logger:   log,
		Clock:    clockwork.NewRealClock(),
		DB:       db,
		Resolver: resolver,

		WorldBankDuplicatePolicy: duplicatePolicy,
		MaxConcurrency:           *maxConcurrencyFlag,
	}
	if *allianzCSVFlag != "" {
		cfg.AllianzExtractor = extract.NewCSVExtractor(*allianzCSVFlag)
	}
	if *countryEconomyCSVFlag != "" {
		cfg.CountryEconomyExtractor = extract.NewCSVExtractor(*countryEconomyCSVFlag)
	}
	if *worldBankCSVFlag != "" {
		cfg.WorldBankExtractor = extract.NewCSVExtractor(*worldBankCSVFlag)
	}

	r, err := runner.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize runner: %w", err)
	}

	reports, runErr := r.Run(ctx)
	if len(reports) > 0 {
		indexer.RenderReports(os.Stdout, reports)
	}
	if runErr != nil {
		return runErr
	}

	if *computeScoresFlag {
		calculator, err := scores.NewCalculator(scores.Config{
			Logger: log,
			Clock:  clockwork.NewRealClock(),
			DB:     db,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize score calculator: %w", err)
		}
		computed, err := calculator.Compute(ctx)
		if err != nil {
			return fmt.Errorf("failed to compute country scores: %w", err)
		}
		log.Info("scores written", "countries", len(computed))
	}

	return nil
}
