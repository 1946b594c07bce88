package countryeconomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

const tableName = "countryeconomy_data"

type SourceConfig struct {
	Logger *slog.Logger
	DB     warehouse.DB
}

func (cfg *SourceConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	return nil
}

// Source implements the pipeline triple for the CountryEconomy provider.
type Source struct {
	log *slog.Logger
	db  warehouse.DB
}

func NewSource(cfg SourceConfig) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		log: cfg.Logger,
		db:  cfg.DB,
	}, nil
}

func (s *Source) Name() string { return "countryeconomy" }

func (s *Source) CountryField() string { return "country" }

// Load upserts the batch keyed on (country, rating_date); the most recently
// processed record for a key wins within a batch.
func (s *Source) Load(ctx context.Context, rows []Record) (indexer.LoadResult, error) {
	s.log.Debug("countryeconomy/store: upserting records", "count", len(rows))

	var result indexer.LoadResult
	err := warehouse.WithTableTx(ctx, s.db, tableName, func(tx *sql.Tx) error {
		for _, r := range rows {
			res, err := tx.ExecContext(ctx,
				`UPDATE countryeconomy_data
				 SET rating_agency = $1, rating = $2, term_type = $3
				 WHERE country = $4 AND rating_date = $5`,
				r.RatingAgency, r.Rating, r.TermType, r.Country, r.RatingDate,
			)
			if err != nil {
				return fmt.Errorf("failed to update row for %s %s: %w", r.Country, r.RatingDate.Format("2006-01-02"), err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if affected > 0 {
				result.Superseded++
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO countryeconomy_data (country, rating_agency, rating, rating_date, term_type)
				 VALUES ($1, $2, $3, $4, $5)`,
				r.Country, r.RatingAgency, r.Rating, r.RatingDate, r.TermType,
			); err != nil {
				return fmt.Errorf("failed to insert row for %s %s: %w", r.Country, r.RatingDate.Format("2006-01-02"), err)
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return indexer.LoadResult{}, err
	}
	return result, nil
}

// LatestRatings returns up to limit rating entries for a country, newest
// first. "Latest rating" queries order by rating_date descending.
func (s *Source) LatestRatings(ctx context.Context, country string, limit int) ([]Record, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT country, rating_agency, rating, rating_date, term_type
		 FROM countryeconomy_data
		 WHERE country = $1
		 ORDER BY rating_date DESC
		 LIMIT $2`,
		country, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest ratings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Country, &r.RatingAgency, &r.Rating, &r.RatingDate, &r.TermType); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
