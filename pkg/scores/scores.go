// Package scores derives time-weighted country risk scores from the three
// source tables and blends them into one final score per country in
// country_scores.
package scores

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/macrolabs/risklake/pkg/warehouse"
)

const tableName = "country_scores"

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	DB     warehouse.DB
}

func (cfg *Config) Validate() error {
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

// CountryScore is one row of country_scores. Component scores are normalized
// to [0, 1] and nil when the source has no data for the country.
type CountryScore struct {
	Country             string
	AllianzScore        *float64
	CountryEconomyScore *float64
	WorldBankScore      *float64
	FinalScore          *float64
	ComputedAt          time.Time
}

type Calculator struct {
	log   *slog.Logger
	clock clockwork.Clock
	db    warehouse.DB
}

func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{
		log:   cfg.Logger,
		clock: cfg.Clock,
		db:    cfg.DB,
	}, nil
}

// Compute reads the three source tables, derives the per-source scores,
// blends them, and upserts one row per country. It returns the computed rows.
func (c *Calculator) Compute(ctx context.Context) ([]CountryScore, error) {
	allianz, err := c.allianzScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute allianz scores: %w", err)
	}
	countryEconomy, err := c.countryEconomyScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute countryeconomy scores: %w", err)
	}
	worldBank, err := c.worldBankScores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compute worldbank scores: %w", err)
	}

	scores := Blend(allianz, countryEconomy, worldBank, c.clock.Now().UTC())

	if err := c.upsert(ctx, scores); err != nil {
		return nil, err
	}
	c.log.Info("country scores computed",
		"countries", len(scores),
		"allianz", len(allianz),
		"countryeconomy", len(countryEconomy),
		"worldbank", len(worldBank),
	)
	return scores, nil
}

// Blend combines the per-source scores into final scores. The blend weights
// are renormalized over whichever sources have a score for the country, so a
// country missing one source is still scored from the rest.
func Blend(allianz, countryEconomy, worldBank map[string]float64, computedAt time.Time) []CountryScore {
	countrySet := make(map[string]bool)
	for country := range allianz {
		countrySet[country] = true
	}
	for country := range countryEconomy {
		countrySet[country] = true
	}
	for country := range worldBank {
		countrySet[country] = true
	}

	countries := make([]string, 0, len(countrySet))
	for country := range countrySet {
		countries = append(countries, country)
	}
	sort.Strings(countries)

	scores := make([]CountryScore, 0, len(countries))
	for _, country := range countries {
		row := CountryScore{Country: country, ComputedAt: computedAt}

		var weightedSum, totalWeight float64
		if v, ok := allianz[country]; ok {
			row.AllianzScore = &v
			weightedSum += v * allianzWeight
			totalWeight += allianzWeight
		}
		if v, ok := countryEconomy[country]; ok {
			row.CountryEconomyScore = &v
			weightedSum += v * countryEconomyWeight
			totalWeight += countryEconomyWeight
		}
		if v, ok := worldBank[country]; ok {
			row.WorldBankScore = &v
			weightedSum += v * worldBankWeight
			totalWeight += worldBankWeight
		}
		if totalWeight > 0 {
			final := weightedSum / totalWeight
			row.FinalScore = &final
		}
		scores = append(scores, row)
	}
	return scores
}

// allianzScores computes the quarter-weighted Allianz score per country,
// normalized to [0, 1]. The latest quarter in the table weighs 10, quarters
// one year back 8, two years back 6, three years back 4, older ones nothing.
func (c *Calculator) allianzScores(ctx context.Context) (map[string]float64, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT country, medium_term_rating, year_quarter FROM allianz_data`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query allianz_data: %w", err)
	}
	defer rows.Close()

	type entry struct {
		rating  string
		year    int
		quarter int
	}
	byCountry := make(map[string][]entry)
	latestYear := 0
	for rows.Next() {
		var country, rating, yearQuarter string
		if err := rows.Scan(&country, &rating, &yearQuarter); err != nil {
			return nil, fmt.Errorf("failed to scan allianz row: %w", err)
		}
		year, quarter, err := splitYearQuarter(yearQuarter)
		if err != nil {
			return nil, err
		}
		byCountry[country] = append(byCountry[country], entry{rating, year, quarter})
		if year > latestYear {
			latestYear = year
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating allianz rows: %w", err)
	}

	quarterWeights := map[int]float64{0: 10, 1: 8, 2: 6, 3: 4}

	scores := make(map[string]float64, len(byCountry))
	for country, entries := range byCountry {
		var weightedSum, totalWeight float64
		for _, e := range entries {
			weight := quarterWeights[latestYear-e.year]
			if weight == 0 {
				continue
			}
			weightedSum += allianzRatingScores[e.rating] * weight
			totalWeight += weight
		}
		if totalWeight > 0 {
			scores[country] = weightedSum / totalWeight / 100
		}
	}
	return scores, nil
}

// countryEconomyScores computes the 10-year agency-rating score per country:
// for each year in the window, the latest long-term rating per agency as of
// that year, agencies averaged, years weighted 10..1, and the resulting raw
// scores min-max normalized to [0, 1] across countries.
func (c *Calculator) countryEconomyScores(ctx context.Context) (map[string]float64, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT country, rating_agency, rating, rating_date
		 FROM countryeconomy_data
		 WHERE term_type = 'long-term'
		 ORDER BY country, rating_agency, rating_date`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query countryeconomy_data: %w", err)
	}
	defer rows.Close()

	type entry struct {
		agency string
		rating string
		date   time.Time
	}
	byCountry := make(map[string][]entry)
	for rows.Next() {
		var e entry
		var country string
		if err := rows.Scan(&country, &e.agency, &e.rating, &e.date); err != nil {
			return nil, fmt.Errorf("failed to scan countryeconomy row: %w", err)
		}
		byCountry[country] = append(byCountry[country], e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating countryeconomy rows: %w", err)
	}

	currentYear := c.clock.Now().UTC().Year()

	raw := make(map[string]float64, len(byCountry))
	for country, entries := range byCountry {
		var weightedSum, totalWeight float64
		for year := currentYear - analysisYears + 1; year <= currentYear; year++ {
			// Latest rating per agency as of this year. Entries arrive
			// date-ascending, so the last match wins.
			latest := make(map[string]string)
			for _, e := range entries {
				if e.date.Year() <= year {
					latest[e.agency] = e.rating
				}
			}
			var sum float64
			var n int
			for _, rating := range latest {
				score, ok := agencyRatingScores[rating]
				if !ok {
					continue
				}
				sum += score
				n++
			}
			if n == 0 {
				continue
			}
			weight := yearWeight(currentYear, year)
			weightedSum += (sum / float64(n)) * weight
			totalWeight += weight
		}
		if totalWeight > 0 {
			raw[country] = weightedSum / totalWeight
		}
	}
	return minMaxNormalize(raw), nil
}

// worldBankScores computes the time-weighted governance score per country:
// per indicator, estimates weighted by recency over the 10-year window ending
// at the latest year present; indicators averaged; min-max normalized across
// countries.
func (c *Calculator) worldBankScores(ctx context.Context) (map[string]float64, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx,
		`SELECT code, indicator, year, estimate FROM worldbank_data`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query worldbank_data: %w", err)
	}
	defer rows.Close()

	type entry struct {
		year     int
		estimate float64
	}
	byCountryIndicator := make(map[string]map[string][]entry)
	latestYear := 0
	for rows.Next() {
		var code, indicator string
		var e entry
		if err := rows.Scan(&code, &indicator, &e.year, &e.estimate); err != nil {
			return nil, fmt.Errorf("failed to scan worldbank row: %w", err)
		}
		if !worldBankIndicators[indicator] {
			continue
		}
		if byCountryIndicator[code] == nil {
			byCountryIndicator[code] = make(map[string][]entry)
		}
		byCountryIndicator[code][indicator] = append(byCountryIndicator[code][indicator], e)
		if e.year > latestYear {
			latestYear = e.year
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worldbank rows: %w", err)
	}

	raw := make(map[string]float64, len(byCountryIndicator))
	for code, indicators := range byCountryIndicator {
		var sum float64
		var n int
		for _, entries := range indicators {
			var weightedSum, totalWeight float64
			for _, e := range entries {
				weight := yearWeight(latestYear, e.year)
				if weight == 0 {
					continue
				}
				weightedSum += e.estimate * weight
				totalWeight += weight
			}
			if totalWeight > 0 {
				sum += weightedSum / totalWeight
				n++
			}
		}
		if n > 0 {
			raw[code] = sum / float64(n)
		}
	}
	return minMaxNormalize(raw), nil
}

func (c *Calculator) upsert(ctx context.Context, scores []CountryScore) error {
	return warehouse.WithTableTx(ctx, c.db, tableName, func(tx *sql.Tx) error {
		for _, s := range scores {
			res, err := tx.ExecContext(ctx,
				`UPDATE country_scores
				 SET allianz_score = $1, countryeconomy_score = $2, worldbank_score = $3,
				     final_score = $4, computed_at = $5
				 WHERE country = $6`,
				s.AllianzScore, s.CountryEconomyScore, s.WorldBankScore,
				s.FinalScore, s.ComputedAt, s.Country,
			)
			if err != nil {
				return fmt.Errorf("failed to update score for %s: %w", s.Country, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read rows affected: %w", err)
			}
			if affected > 0 {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO country_scores (country, allianz_score, countryeconomy_score, worldbank_score, final_score, computed_at)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				s.Country, s.AllianzScore, s.CountryEconomyScore, s.WorldBankScore,
				s.FinalScore, s.ComputedAt,
			); err != nil {
				return fmt.Errorf("failed to insert score for %s: %w", s.Country, err)
			}
		}
		return nil
	})
}

func minMaxNormalize(raw map[string]float64) map[string]float64 {
	if len(raw) == 0 {
		return raw
	}
	var min, max float64
	first := true
	for _, v := range raw {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	normalized := make(map[string]float64, len(raw))
	for k, v := range raw {
		if max == min {
			normalized[k] = 0.5
			continue
		}
		normalized[k] = (v - min) / (max - min)
	}
	return normalized
}

func splitYearQuarter(yearQuarter string) (year, quarter int, err error) {
	if len(yearQuarter) != 6 || yearQuarter[4] != 'Q' {
		return 0, 0, fmt.Errorf("malformed year_quarter %q", yearQuarter)
	}
	year, err = strconv.Atoi(yearQuarter[:4])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed year_quarter %q", yearQuarter)
	}
	quarter, err = strconv.Atoi(yearQuarter[5:])
	if err != nil {
		return 0, 0, fmt.Errorf("malformed year_quarter %q", yearQuarter)
	}
	return year, quarter, nil
}
