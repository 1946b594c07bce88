// Package allianz ingests the quarterly Allianz country risk ratings into the
// allianz_data table, one row per country per quarter.
package allianz

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/macrolabs/risklake/pkg/indexer"
)

// Record is one row of allianz_data.
type Record struct {
	Country          string
	MediumTermRating string
	ShortTermRating  string
	RiskLevel        string
	YearQuarter      string
	CreatedAt        time.Time
}

// riskLevels is the bounded enum of Allianz risk categories. Source records
// carry these with inconsistent casing and sometimes wrapped in parentheses.
var riskLevels = map[string]string{
	"low":       "Low",
	"medium":    "Medium",
	"sensitive": "Sensitive",
	"high":      "High",
}

func (s *Source) Transform(raw indexer.RawRecord, country string) (Record, error) {
	medium := strings.TrimSpace(raw["medium_term_rating"])
	if medium == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "medium_term_rating", Reason: "missing"}
	}
	short := strings.TrimSpace(raw["short_term_rating"])
	if short == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "short_term_rating", Reason: "missing"}
	}

	level, err := parseRiskLevel(raw["risk_level"])
	if err != nil {
		return Record{}, err
	}

	period := raw["period"]
	if period == "" {
		period = raw["year_quarter"]
	}
	yearQuarter, err := ParseYearQuarter(period)
	if err != nil {
		return Record{}, err
	}

	return Record{
		Country:          country,
		MediumTermRating: medium,
		ShortTermRating:  short,
		RiskLevel:        level,
		YearQuarter:      yearQuarter,
		CreatedAt:        s.clock.Now().UTC(),
	}, nil
}

func parseRiskLevel(raw string) (string, error) {
	trimmed := strings.Trim(strings.TrimSpace(raw), "()")
	if trimmed == "" {
		return "", &indexer.SchemaValidationError{Field: "risk_level", Reason: "missing"}
	}
	level, ok := riskLevels[strings.ToLower(trimmed)]
	if !ok {
		return "", &indexer.SchemaValidationError{
			Field:  "risk_level",
			Reason: fmt.Sprintf("unknown risk level %q", trimmed),
		}
	}
	return level, nil
}

// ParseYearQuarter derives the "YYYYQn" bucket from a reporting period. It
// accepts "2025Q2", "2025-Q2", "2025 Q2", or a full "2006-01-02" date (bucketed
// to its calendar quarter).
func ParseYearQuarter(period string) (string, error) {
	trimmed := strings.TrimSpace(period)
	if trimmed == "" {
		return "", &indexer.SchemaValidationError{Field: "period", Reason: "missing"}
	}

	if date, err := time.Parse("2006-01-02", trimmed); err == nil {
		quarter := (int(date.Month())-1)/3 + 1
		return fmt.Sprintf("%dQ%d", date.Year(), quarter), nil
	}

	normalized := strings.ToUpper(trimmed)
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	parts := strings.SplitN(normalized, "Q", 2)
	if len(parts) != 2 {
		return "", &indexer.SchemaValidationError{
			Field:  "period",
			Reason: fmt.Sprintf("cannot derive quarter from %q", period),
		}
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil || year < 1990 || year > 2100 {
		return "", &indexer.SchemaValidationError{
			Field:  "period",
			Reason: fmt.Sprintf("invalid year in %q", period),
		}
	}
	quarter, err := strconv.Atoi(parts[1])
	if err != nil || quarter < 1 || quarter > 4 {
		return "", &indexer.SchemaValidationError{
			Field:  "period",
			Reason: fmt.Sprintf("invalid quarter in %q", period),
		}
	}

	return fmt.Sprintf("%dQ%d", year, quarter), nil
}
