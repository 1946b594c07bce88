// Package runner wires the per-source pipelines together: it runs migrations,
// builds a source for each configured extractor, and fans the batches out over
// a bounded worker pool.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alitto/pond/v2"
	"github.com/jonboulle/clockwork"

	"github.com/macrolabs/risklake/pkg/countries"
	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/indexer/allianz"
	"github.com/macrolabs/risklake/pkg/indexer/countryeconomy"
	schematypes "github.com/macrolabs/risklake/pkg/indexer/schema"
	"github.com/macrolabs/risklake/pkg/indexer/worldbank"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

const defaultMaxConcurrency = 3

type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	DB       warehouse.DB
	Resolver *countries.Resolver

	// A nil extractor disables its source for this run.
	AllianzExtractor        indexer.Extractor
	CountryEconomyExtractor indexer.Extractor
	WorldBankExtractor      indexer.Extractor

	WorldBankDuplicatePolicy worldbank.DuplicatePolicy

	// MaxConcurrency bounds how many source batches run at once.
	MaxConcurrency int
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = defaultMaxConcurrency
	}
	return nil
}

// Runner owns one fully wired pipeline set over one warehouse.
type Runner struct {
	log   *slog.Logger
	clock clockwork.Clock
	cfg   Config

	allianz        *allianz.Source
	countryeconomy *countryeconomy.Source
	worldbank      *worldbank.Source

	pool pond.ResultPool[*indexer.Report]
}

// New validates the config, applies migrations, and builds the sources. The
// warehouse is ready for batches when New returns.
func New(ctx context.Context, cfg Config) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	conn, err := cfg.DB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to warehouse: %w", err)
	}
	defer conn.Close()
	if err := warehouse.RunMigrations(ctx, cfg.Logger, conn); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	allianzSource, err := allianz.NewSource(allianz.SourceConfig{
		Logger: cfg.Logger,
		Clock:  cfg.Clock,
		DB:     cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build allianz source: %w", err)
	}
	countryeconomySource, err := countryeconomy.NewSource(countryeconomy.SourceConfig{
		Logger: cfg.Logger,
		DB:     cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build countryeconomy source: %w", err)
	}
	worldbankSource, err := worldbank.NewSource(worldbank.SourceConfig{
		Logger:          cfg.Logger,
		DB:              cfg.DB,
		DuplicatePolicy: cfg.WorldBankDuplicatePolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build worldbank source: %w", err)
	}

	return &Runner{
		log:   cfg.Logger,
		clock: cfg.Clock,
		cfg:   cfg,

		allianz:        allianzSource,
		countryeconomy: countryeconomySource,
		worldbank:      worldbankSource,

		pool: pond.NewResultPool[*indexer.Report](cfg.MaxConcurrency),
	}, nil
}

// Run executes one batch per enabled source concurrently and returns the
// per-source reports. Sources fail independently: a failed source's error is
// joined into the returned error while the other reports are still returned.
func (r *Runner) Run(ctx context.Context) ([]*indexer.Report, error) {
	runCfg := indexer.RunConfig{
		Logger:   r.log,
		Clock:    r.clock,
		Resolver: r.cfg.Resolver,
	}

	group := r.pool.NewGroupContext(ctx)

	if r.cfg.AllianzExtractor != nil {
		group.SubmitErr(func() (*indexer.Report, error) {
			return indexer.Run(ctx, runCfg, r.cfg.AllianzExtractor, r.allianz)
		})
	}
	if r.cfg.CountryEconomyExtractor != nil {
		group.SubmitErr(func() (*indexer.Report, error) {
			return indexer.Run(ctx, runCfg, r.cfg.CountryEconomyExtractor, r.countryeconomy)
		})
	}
	if r.cfg.WorldBankExtractor != nil {
		group.SubmitErr(func() (*indexer.Report, error) {
			return indexer.Run(ctx, runCfg, r.cfg.WorldBankExtractor, r.worldbank)
		})
	}

	results, err := group.Wait()
	var reports []*indexer.Report
	for _, report := range results {
		if report != nil {
			reports = append(reports, report)
		}
	}
	if err != nil {
		return reports, fmt.Errorf("one or more sources failed: %w", err)
	}
	return reports, nil
}

// Allianz exposes the Allianz store for read queries.
func (r *Runner) Allianz() *allianz.Source { return r.allianz }

// CountryEconomy exposes the CountryEconomy store for read queries.
func (r *Runner) CountryEconomy() *countryeconomy.Source { return r.countryeconomy }

// WorldBank exposes the World Bank store for read queries.
func (r *Runner) WorldBank() *worldbank.Source { return r.worldbank }

// Datasets lists every dataset the runner can maintain, for discovery output.
func Datasets() []schematypes.Dataset {
	var all []schematypes.Dataset
	all = append(all, allianz.Datasets...)
	all = append(all, countryeconomy.Datasets...)
	all = append(all, worldbank.Datasets...)
	return all
}
