// Package indexer runs the extraction → normalization → transformation → load
// pipeline for each upstream source. The pipeline is generic: each source
// contributes an extractor, a transform into its table's row type, and an
// upsert loader, and the run loop, error accounting, and reporting are shared.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/macrolabs/risklake/pkg/countries"
	"github.com/macrolabs/risklake/pkg/indexer/metrics"
)

// RawRecord is one record as produced by an upstream extractor: source-specific
// fields keyed by name, no ordering guarantees.
type RawRecord map[string]string

// Extractor yields the raw records of one source. The sequence is finite and
// restartable; a yielded error aborts the source's run (extraction failures
// are fatal per source, unlike per-record validation failures).
type Extractor interface {
	Extract(ctx context.Context) iter.Seq2[RawRecord, error]
}

// LoadResult is what a source's loader reports back for one committed batch.
type LoadResult struct {
	Inserted   int
	Superseded int
	// Conflicts holds natural keys rejected by the loader because the
	// supersede policy could not resolve them.
	Conflicts []string
}

// Source is the per-provider triple the generic pipeline is parameterized by.
type Source[Row any] interface {
	Name() string
	// CountryField names the raw field holding the free-text country name.
	CountryField() string
	// Transform maps a raw record plus its canonical country key into a row
	// for the source's table.
	Transform(raw RawRecord, country string) (Row, error)
	// Load upserts the batch into the source's table under a single
	// transaction, enforcing the table's uniqueness invariant.
	Load(ctx context.Context, rows []Row) (LoadResult, error)
}

// RunConfig carries the collaborators shared by all source pipelines.
type RunConfig struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Resolver *countries.Resolver
}

func (cfg *RunConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.Resolver == nil {
		return errors.New("resolver is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Run executes one batch for one source. Records with unrecognized countries
// or schema validation failures are excluded, counted, and kept in the report
// for manual review; any other failure aborts the run and leaves the table in
// its pre-run state.
func Run[Row any](ctx context.Context, cfg RunConfig, ext Extractor, src Source[Row]) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := cfg.Logger.With("source", src.Name())
	report := &Report{Source: src.Name(), StartedAt: cfg.Clock.Now()}
	defer func() {
		report.Duration = cfg.Clock.Since(report.StartedAt)
	}()

	var rows []Row
	for raw, err := range ext.Extract(ctx) {
		if err != nil {
			return report, fmt.Errorf("extraction failed: %w", err)
		}
		report.Extracted++

		country, err := cfg.Resolver.Resolve(raw[src.CountryField()])
		if err != nil {
			var unrecognized *countries.UnrecognizedCountryError
			if errors.As(err, &unrecognized) {
				report.Unrecognized++
				report.reject(raw, err.Error())
				metrics.RecordsRejected.WithLabelValues(src.Name(), "unrecognized_country").Inc()
				log.Warn("skipping record with unrecognized country", "country", unrecognized.Name)
				continue
			}
			return report, err
		}

		row, err := src.Transform(raw, country)
		if err != nil {
			var invalid *SchemaValidationError
			if errors.As(err, &invalid) {
				report.Rejected++
				report.reject(raw, err.Error())
				metrics.RecordsRejected.WithLabelValues(src.Name(), "schema_validation").Inc()
				log.Warn("skipping invalid record", "country", country, "error", err)
				continue
			}
			return report, err
		}
		rows = append(rows, row)
	}

	result, err := src.Load(ctx, rows)
	if err != nil {
		return report, fmt.Errorf("load failed: %w", err)
	}

	report.Loaded = result.Inserted + result.Superseded
	report.Inserted = result.Inserted
	report.Superseded = result.Superseded
	report.Conflicts = len(result.Conflicts)
	for _, key := range result.Conflicts {
		report.reject(RawRecord{"key": key}, (&LoadConflictError{Table: src.Name(), Key: key}).Error())
		metrics.RecordsRejected.WithLabelValues(src.Name(), "load_conflict").Inc()
	}

	metrics.RowsInserted.WithLabelValues(src.Name()).Add(float64(result.Inserted))
	metrics.RowsSuperseded.WithLabelValues(src.Name()).Add(float64(result.Superseded))
	metrics.RunsTotal.WithLabelValues(src.Name()).Inc()

	log.Info("batch complete",
		"extracted", report.Extracted,
		"inserted", report.Inserted,
		"superseded", report.Superseded,
		"rejected", report.Rejected,
		"unrecognized", report.Unrecognized,
		"conflicts", report.Conflicts,
	)
	return report, nil
}
