package worldbank

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/macrolabs/risklake/pkg/indexer"
	"github.com/macrolabs/risklake/pkg/warehouse"
)

const tableName = "worldbank_data"

// DuplicatePolicy selects how in-batch duplicates of the same codeindyr with
// differing payloads are handled.
type DuplicatePolicy string

const (
	// DuplicateReject drops every record of a conflicting key group and
	// reports the group as a conflict.
	DuplicateReject DuplicatePolicy = "reject"
	// DuplicateLastWins keeps the last record seen for each key.
	DuplicateLastWins DuplicatePolicy = "last-wins"
)

func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch DuplicatePolicy(s) {
	case DuplicateReject, DuplicateLastWins:
		return DuplicatePolicy(s), nil
	case "":
		return DuplicateReject, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

type SourceConfig struct {
	Logger          *slog.Logger
	DB              warehouse.DB
	DuplicatePolicy DuplicatePolicy
}

func (cfg *SourceConfig) Validate() error {
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	if cfg.DB == nil {
		return errors.New("db is required")
	}
	if cfg.DuplicatePolicy == "" {
		cfg.DuplicatePolicy = DuplicateReject
	}
	if cfg.DuplicatePolicy != DuplicateReject && cfg.DuplicatePolicy != DuplicateLastWins {
		return fmt.Errorf("unknown duplicate policy %q", cfg.DuplicatePolicy)
	}
	return nil
}

// Source implements the pipeline triple for the governance indicator provider.
type Source struct {
	log       *slog.Logger
	db        warehouse.DB
	duplicate DuplicatePolicy
}

func NewSource(cfg SourceConfig) (*Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Source{
		log:       cfg.Logger,
		db:        cfg.DB,
		duplicate: cfg.DuplicatePolicy,
	}, nil
}

func (s *Source) Name() string { return "worldbank" }

func (s *Source) CountryField() string { return "countryname" }

// Load upserts the batch keyed on codeindyr. In-batch duplicates are resolved
// before touching the table: identical payloads collapse to one, differing
// payloads follow the configured duplicate policy.
func (s *Source) Load(ctx context.Context, rows []Record) (indexer.LoadResult, error) {
	s.log.Debug("worldbank/store: upserting records", "count", len(rows))

	rows, conflicts := s.resolveDuplicates(rows)

	var result indexer.LoadResult
	result.Conflicts = conflicts
	err := warehouse.WithTableTx(ctx, s.db, tableName, func(tx *sql.Tx) error {
		for _, r := range rows {
			res, err := tx.ExecContext(ctx,
				`UPDATE worldbank_data
				 SET code = $1, countryname = $2, year = $3, indicator = $4,
				     estimate = $5, stddev = $6, nsource = $7,
				     pctrank = $8, pctranklower = $9, pctrankupper = $10
				 WHERE codeindyr = $11`,
				r.Code, r.CountryName, r.Year, r.Indicator,
				r.Estimate, r.StdDev, r.NSource,
				r.PctRank, r.PctRankLower, r.PctRankUpper,
				r.CodeIndYr,
			)
			if err != nil {
				return fmt.Errorf("failed to update row for %s: %w", r.CodeIndYr, err)
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
				`INSERT INTO worldbank_data (codeindyr, code, countryname, year, indicator,
				     estimate, stddev, nsource, pctrank, pctranklower, pctrankupper)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
				r.CodeIndYr, r.Code, r.CountryName, r.Year, r.Indicator,
				r.Estimate, r.StdDev, r.NSource, r.PctRank, r.PctRankLower, r.PctRankUpper,
			); err != nil {
				return fmt.Errorf("failed to insert row for %s: %w", r.CodeIndYr, err)
			}
			result.Inserted++
		}
		return nil
	})
	if err != nil {
		return indexer.LoadResult{}, err
	}
	if len(conflicts) > 0 {
		s.log.Warn("worldbank/store: conflicting duplicate keys rejected", "keys", len(conflicts))
	}
	return result, nil
}

// resolveDuplicates collapses in-batch duplicates by codeindyr. Identical
// payloads keep one copy. Differing payloads either keep the last record seen
// or drop the whole key group, per the policy; dropped keys come back as
// conflict keys, one per dropped record.
func (s *Source) resolveDuplicates(rows []Record) ([]Record, []string) {
	byKey := make(map[string]Record, len(rows))
	count := make(map[string]int, len(rows))
	conflicting := make(map[string]bool)
	order := make([]string, 0, len(rows))

	for _, r := range rows {
		prev, seen := byKey[r.CodeIndYr]
		if !seen {
			order = append(order, r.CodeIndYr)
		} else if !samePayload(prev, r) {
			conflicting[r.CodeIndYr] = true
		}
		byKey[r.CodeIndYr] = r
		count[r.CodeIndYr]++
	}

	var kept []Record
	var conflicts []string
	for _, key := range order {
		if conflicting[key] && s.duplicate == DuplicateReject {
			for i := 0; i < count[key]; i++ {
				conflicts = append(conflicts, key)
			}
			continue
		}
		kept = append(kept, byKey[key])
	}
	return kept, conflicts
}

func samePayload(a, b Record) bool {
	return a.Code == b.Code &&
		a.CountryName == b.CountryName &&
		a.Year == b.Year &&
		a.Indicator == b.Indicator &&
		a.Estimate == b.Estimate &&
		sameFloat(a.StdDev, b.StdDev) &&
		sameInt(a.NSource, b.NSource) &&
		sameFloat(a.PctRank, b.PctRank) &&
		sameFloat(a.PctRankLower, b.PctRankLower) &&
		sameFloat(a.PctRankUpper, b.PctRankUpper)
}

func sameFloat(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Indicators returns the rows for one indicator code ordered by country and
// year, for score computation and spot checks.
func (s *Source) Indicators(ctx context.Context, indicator string) ([]Record, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT codeindyr, code, countryname, year, indicator,
		     estimate, stddev, nsource, pctrank, pctranklower, pctrankupper
		 FROM worldbank_data
		 WHERE indicator = $1
		 ORDER BY code, year`,
		indicator,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query indicator rows: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.CodeIndYr, &r.Code, &r.CountryName, &r.Year, &r.Indicator,
			&r.Estimate, &r.StdDev, &r.NSource, &r.PctRank, &r.PctRankLower, &r.PctRankUpper); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}
	return records, nil
}
