package allianz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

const tableName = "allianz_data"

type SourceConfig struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	DB     warehouse.DB
}

func (cfg *SourceConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Source implements the pipeline triple for the Allianz provider.
type Source struct {
	log   *slog.Logger
	clock clockwork.Clock
	db    warehouse.DB
}

func NewSource(cfg SourceConfig) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		log:   cfg.Logger,
		clock: cfg.Clock,
		db:    cfg.DB,
	}, nil
}

func (s *Source) Name() string { return "allianz" }

func (s *Source) CountryField() string { return "country" }

// Load upserts the batch keyed on (country, year_quarter). Within a batch the
// most recently processed record for a key wins. The whole batch commits or
// rolls back as one transaction on the table.
func (s *Source) Load(ctx context.Context, rows []Record) (indexer.LoadResult, error) {
	s.log.Debug("allianz/store: upserting records", "count", len(rows))

	var result indexer.LoadResult
	err := warehouse.WithTableTx(ctx, s.db, tableName, func(tx *sql.Tx) error {
		for _, r := range rows {
			res, err := tx.ExecContext(ctx,
				`UPDATE allianz_data
				 SET medium_term_rating = $1, short_term_rating = $2, risk_level = $3, created_at = $4
				 WHERE country = $5 AND year_quarter = $6`,
				r.MediumTermRating, r.ShortTermRating, r.RiskLevel, r.CreatedAt, r.Country, r.YearQuarter,
			)
			if err != nil {
				return fmt.Errorf("failed to update row for %s %s: %w", r.Country, r.YearQuarter, err)
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
				`INSERT INTO allianz_data (country, medium_term_rating, short_term_rating, risk_level, year_quarter, created_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				r.Country, r.MediumTermRating, r.ShortTermRating, r.RiskLevel, r.YearQuarter, r.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert row for %s %s: %w", r.Country, r.YearQuarter, err)
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

// MostRecentRatings returns the latest rating row per country, ordered by
// country. The quarter sort key is year*10+quarter derived from the "YYYYQn"
// format.
func (s *Source) MostRecentRatings(ctx context.Context) ([]Record, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT country, medium_term_rating, short_term_rating, risk_level, year_quarter, created_at
		 FROM allianz_data a
		 WHERE CAST(substr(year_quarter, 1, 4) AS INTEGER) * 10 + CAST(substr(year_quarter, 6, 1) AS INTEGER) = (
		     SELECT MAX(CAST(substr(year_quarter, 1, 4) AS INTEGER) * 10 + CAST(substr(year_quarter, 6, 1) AS INTEGER))
		     FROM allianz_data b
		     WHERE b.country = a.country
		 )
		 ORDER BY country`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query most recent ratings: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Country, &r.MediumTermRating, &r.ShortTermRating, &r.RiskLevel, &r.YearQuarter, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
