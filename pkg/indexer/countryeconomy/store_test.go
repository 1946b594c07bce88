package countryeconomy_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/indexer/countryeconomy"
)

func TestIndexer_CountryEconomy_Store_Load(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	record := func(country, agency, rating string, date time.Time) countryeconomy.Record {
		return countryeconomy.Record{
			Country:      country,
			RatingAgency: agency,
			Rating:       rating,
			RatingDate:   date,
			TermType:     "long-term",
		}
	}

	t.Run("upserts keyed on country and rating date", func(t *testing.T) {
		t.Parallel()
		src := newTestSource(t)

		date := time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC)
		result, err := src.Load(ctx, []countryeconomy.Record{
			record("FRA", "Moody's", "Aa2", date),
			record("FRA", "Moody's", "Aa3", date),
		})
		require.NoError(t, err)
		require.Equal(t, indexer.LoadResult{Inserted: 1, Superseded: 1}, result)

		records, err := src.LatestRatings(ctx, "FRA", 10)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "Aa3", records[0].Rating)
	})

	t.Run("same country different dates accumulate", func(t *testing.T) {
		t.Parallel()
		src := newTestSource(t)

		result, err := src.Load(ctx, []countryeconomy.Record{
			record("FRA", "Moody's", "Aa2", time.Date(2023, 4, 21, 0, 0, 0, 0, time.UTC)),
			record("FRA", "S&P", "AA-", time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)
		require.Equal(t, indexer.LoadResult{Inserted: 2}, result)
	})
}

func TestIndexer_CountryEconomy_Store_LatestRatings(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	src := newTestSource(t)

	batch := []countryeconomy.Record{
		{Country: "FRA", RatingAgency: "Moody's", Rating: "Aa2", RatingDate: time.Date(2022, 3, 1, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
		{Country: "FRA", RatingAgency: "S&P", Rating: "AA", RatingDate: time.Date(2024, 10, 25, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
		{Country: "FRA", RatingAgency: "Fitch", Rating: "AA-", RatingDate: time.Date(2023, 5, 12, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
		{Country: "DEU", RatingAgency: "Moody's", Rating: "Aaa", RatingDate: time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), TermType: "long-term"},
	}
	_, err := src.Load(ctx, batch)
	require.NoError(t, err)

	t.Run("newest first", func(t *testing.T) {
		t.Parallel()

		records, err := src.LatestRatings(ctx, "FRA", 10)
		require.NoError(t, err)
		require.Len(t, records, 3)
		require.Equal(t, "AA", records[0].Rating)
		require.Equal(t, "AA-", records[1].Rating)
		require.Equal(t, "Aa2", records[2].Rating)
	})

	t.Run("limit applies after ordering", func(t *testing.T) {
		t.Parallel()

		records, err := src.LatestRatings(ctx, "FRA", 1)
		require.NoError(t, err)
		require.Len(t, records, 1)
		require.Equal(t, "AA", records[0].Rating)
	})

	t.Run("unknown country yields nothing", func(t *testing.T) {
		t.Parallel()

		records, err := src.LatestRatings(ctx, "XXX", 10)
		require.NoError(t, err)
		require.Empty(t, records)
	})
}
