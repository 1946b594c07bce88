package runner_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/macrolabs/risklake/pkg/countries"
	"github.com/macrolabs/risklake/pkg/extract"
	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/indexer/runner"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

func newTestDB(t *testing.T) warehouse.DB {
	t.Helper()

	db, err := warehouse.Open(context.Background(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		"file://"+filepath.Join(t.TempDir(), "test.duckdb"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestIndexer_Runner(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))

	resolver, err := countries.NewResolver("")
	require.NoError(t, err)

	t.Run("runs enabled sources and reports per source", func(t *testing.T) {
		t.Parallel()

		allianzCSV := writeCSV(t, "allianz.csv",
			"country,medium_term_rating,short_term_rating,risk_level,period\n"+
				"France,AA,A1,Low,2025Q1\n"+
				"Atlantis,AA,A1,Low,2025Q1\n",
		)
		worldbankCSV := writeCSV(t, "worldbank.csv",
			"countryname,code,year,indicator,estimate\n"+
				"Turkiye,TUR,2023,cc,-0.35\n",
		)

		r, err := runner.New(ctx, runner.Config{
			Logger:   log,
			Clock:    clock,
			DB:       newTestDB(t),
			Resolver: resolver,

			AllianzExtractor:   extract.NewCSVExtractor(allianzCSV),
			WorldBankExtractor: extract.NewCSVExtractor(worldbankCSV),
		})
		require.NoError(t, err)

		reports, err := r.Run(ctx)
		require.NoError(t, err)
		require.Len(t, reports, 2)

		bySource := map[string]*indexer.Report{}
		for _, report := range reports {
			bySource[report.Source] = report
		}

		require.Equal(t, 2, bySource["allianz"].Extracted)
		require.Equal(t, 1, bySource["allianz"].Inserted)
		require.Equal(t, 1, bySource["allianz"].Unrecognized)
		require.Equal(t, 1, bySource["worldbank"].Inserted)

		records, err := r.Allianz().MostRecentRatings(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "FRA", records[0].Country)
	})

	t.Run("no extractors means no reports", func(t *testing.T) {
		t.Parallel()

		r, err := runner.New(ctx, runner.Config{
			Logger:   log,
			Clock:    clock,
			DB:       newTestDB(t),
			Resolver: resolver,
		})
		require.NoError(t, err)

		reports, err := r.Run(ctx)
		require.NoError(t, err)
		require.Empty(t, reports)
	})

	t.Run("one failing source does not abort the others", func(t *testing.T) {
		t.Parallel()

		allianzCSV := writeCSV(t, "allianz.csv",
			"country,medium_term_rating,short_term_rating,risk_level,period\nFrance,AA,A1,Low,2025Q1\n")

		r, err := runner.New(ctx, runner.Config{
			Logger:   log,
			Clock:    clock,
			DB:       newTestDB(t),
			Resolver: resolver,

			AllianzExtractor:   extract.NewCSVExtractor(allianzCSV),
			WorldBankExtractor: extract.NewCSVExtractor(filepath.Join(t.TempDir(), "missing.csv")),
		})
		require.NoError(t, err)

		_, err = r.Run(ctx)
		require.Error(t, err)

		// The healthy source's batch still committed.
		records, recordsErr := r.Allianz().MostRecentRatings(ctx)
		require.NoError(t, recordsErr)
		require.Len(t, records, 1)
	})
}

func TestIndexer_Runner_Datasets(t *testing.T) {
	t.Parallel()

	datasets := runner.Datasets()
	require.Len(t, datasets, 3)

	tables := map[string]bool{}
	for _, ds := range datasets {
		tables[ds.Table] = true
	}
	require.True(t, tables["allianz_data"])
	require.True(t, tables["countryeconomy_data"])
	require.True(t, tables["worldbank_data"])
}
