package scores_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/macrolabs/risklake/pkg/indexer/allianz"
	"github.com/macrolabs/risklake/pkg/indexer/countryeconomy"
	"github.com/macrolabs/risklake/pkg/indexer/worldbank"
	"github.com/macrolabs/risklake/pkg/scores"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

func newTestDB(t *testing.T) warehouse.DB {
	t.Helper()

	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := warehouse.Open(ctx, log, "file://"+filepath.Join(t.TempDir(), "test.duckdb"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(ctx)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, warehouse.RunMigrations(ctx, log, conn))

	return db
}

func TestScores_Blend(t *testing.T) {
	t.Parallel()

	computedAt := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	t.Run("all sources present", func(t *testing.T) {
		t.Parallel()

		got := scores.Blend(
			map[string]float64{"FRA": 0.9},
			map[string]float64{"FRA": 0.8},
			map[string]float64{"FRA": 0.7},
			computedAt,
		)
		require.Len(t, got, 1)
		require.Equal(t, "FRA", got[0].Country)
		require.NotNil(t, got[0].FinalScore)
		// 0.9*0.35 + 0.8*0.35 + 0.7*0.20 over total weight 0.90.
		require.InDelta(t, 0.8222, *got[0].FinalScore, 0.001)
	})

	t.Run("missing source renormalizes over the rest", func(t *testing.T) {
		t.Parallel()

		got := scores.Blend(
			map[string]float64{"ARG": 0.4},
			nil,
			map[string]float64{"ARG": 0.6},
			computedAt,
		)
		require.Len(t, got, 1)
		require.Nil(t, got[0].CountryEconomyScore)
		require.NotNil(t, got[0].FinalScore)
		// (0.4*0.35 + 0.6*0.20) / 0.55.
		require.InDelta(t, 0.4727, *got[0].FinalScore, 0.001)
	})

	t.Run("union of countries, sorted", func(t *testing.T) {
		t.Parallel()

		got := scores.Blend(
			map[string]float64{"FRA": 0.9},
			map[string]float64{"ARG": 0.2},
			nil,
			computedAt,
		)
		require.Len(t, got, 2)
		require.Equal(t, "ARG", got[0].Country)
		require.Equal(t, "FRA", got[1].Country)

		require.NotNil(t, got[0].FinalScore)
		require.InDelta(t, 0.2, *got[0].FinalScore, 1e-9)
		require.Nil(t, got[0].AllianzScore)
	})

	t.Run("no sources yields empty", func(t *testing.T) {
		t.Parallel()

		require.Empty(t, scores.Blend(nil, nil, nil, computedAt))
	})
}

func TestScores_Compute(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC))
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := newTestDB(t)

	// Seed the three source tables through their stores.
	allianzSrc, err := allianz.NewSource(allianz.SourceConfig{Logger: log, Clock: clock, DB: db})
	require.NoError(t, err)
	_, err = allianzSrc.Load(ctx, []allianz.Record{
		{Country: "FRA", MediumTermRating: "AA", ShortTermRating: "A1", RiskLevel: "Low", YearQuarter: "2025Q1", CreatedAt: clock.Now().UTC()},
		{Country: "FRA", MediumTermRating: "AA", ShortTermRating: "A1", RiskLevel: "Low", YearQuarter: "2024Q4", CreatedAt: clock.Now().UTC()},
		{Country: "ARG", MediumTermRating: "D", ShortTermRating: "C3", RiskLevel: "High", YearQuarter: "2025Q1", CreatedAt: clock.Now().UTC()},
	})
	require.NoError(t, err)

	ceSrc, err := countryeconomy.NewSource(countryeconomy.SourceConfig{Logger: log, DB: db})
	require.NoError(t, err)
	_, err = ceSrc.Load(ctx, []countryeconomy.Record{
		{Country: "FRA", RatingAgency: "Moody's", Rating: "Aa2", RatingDate: time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
		{Country: "ARG", RatingAgency: "S&P", Rating: "CCC", RatingDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
		// Short-term entries stay out of the score.
		{Country: "ARG", RatingAgency: "S&P", Rating: "C", RatingDate: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), TermType: "short-term"},
	})
	require.NoError(t, err)

	wbSrc, err := worldbank.NewSource(worldbank.SourceConfig{Logger: log, DB: db})
	require.NoError(t, err)
	_, err = wbSrc.Load(ctx, []worldbank.Record{
		{CodeIndYr: "fracc2023", Code: "FRA", CountryName: "France", Year: 2023, Indicator: "cc", Estimate: 1.2},
		{CodeIndYr: "argcc2023", Code: "ARG", CountryName: "Argentina", Year: 2023, Indicator: "cc", Estimate: -0.4},
	})
	require.NoError(t, err)

	calculator, err := scores.NewCalculator(scores.Config{Logger: log, Clock: clock, DB: db})
	require.NoError(t, err)

	computed, err := calculator.Compute(ctx)
	require.NoError(t, err)
	require.Len(t, computed, 2)

	byCountry := map[string]scores.CountryScore{}
	for _, s := range computed {
		byCountry[s.Country] = s
	}

	fra := byCountry["FRA"]
	require.NotNil(t, fra.AllianzScore)
	require.InDelta(t, 1.0, *fra.AllianzScore, 1e-9)
	require.NotNil(t, fra.CountryEconomyScore)
	require.NotNil(t, fra.WorldBankScore)
	require.InDelta(t, 1.0, *fra.WorldBankScore, 1e-9)
	require.NotNil(t, fra.FinalScore)

	arg := byCountry["ARG"]
	require.NotNil(t, arg.AllianzScore)
	require.InDelta(t, 0.1, *arg.AllianzScore, 1e-9)
	require.NotNil(t, arg.WorldBankScore)
	require.InDelta(t, 0.0, *arg.WorldBankScore, 1e-9)

	require.Greater(t, *fra.FinalScore, *arg.FinalScore)

	// Recomputing upserts in place rather than duplicating rows.
	again, err := calculator.Compute(ctx)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(computed, again))
}
