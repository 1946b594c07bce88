// Package worldbank ingests Worldwide Governance Indicators into the
// worldbank_data table, one row per country-indicator-year keyed by codeindyr.
package worldbank

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/macrolabs/risklake/pkg/indexer"
)

// Record is one row of worldbank_data. CodeIndYr is the synthetic natural key
// lower(code) + lower(indicator) + year.
type Record struct {
	CodeIndYr    string
	Code         string
	CountryName  string
	Year         int
	Indicator    string
	Estimate     float64
	StdDev       *float64
	NSource      *int
	PctRank      *float64
	PctRankLower *float64
	PctRankUpper *float64
}

func (s *Source) Transform(raw indexer.RawRecord, country string) (Record, error) {
	countryName := strings.TrimSpace(raw["countryname"])
	if countryName == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "countryname", Reason: "missing"}
	}

	indicator := strings.TrimSpace(raw["indicator"])
	if indicator == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "indicator", Reason: "missing"}
	}

	year, err := parseYear(raw["year"])
	if err != nil {
		return Record{}, err
	}

	estimate, err := requiredFloat(raw, "estimate")
	if err != nil {
		return Record{}, err
	}

	stddev, err := optionalFloat(raw, "stddev")
	if err != nil {
		return Record{}, err
	}
	if stddev != nil && *stddev < 0 {
		return Record{}, &indexer.SchemaValidationError{Field: "stddev", Reason: "must not be negative"}
	}

	nsource, err := optionalInt(raw, "nsource")
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		CodeIndYr:   CodeIndYr(country, indicator, year),
		Code:        country,
		CountryName: countryName,
		Year:        year,
		Indicator:   indicator,
		Estimate:    estimate,
		StdDev:      stddev,
		NSource:     nsource,
	}

	for _, f := range []struct {
		field string
		dst   **float64
	}{
		{"pctrank", &rec.PctRank},
		{"pctranklower", &rec.PctRankLower},
		{"pctrankupper", &rec.PctRankUpper},
	} {
		v, err := optionalFloat(raw, f.field)
		if err != nil {
			return Record{}, err
		}
		if v != nil && (*v < 0 || *v > 100) {
			return Record{}, &indexer.SchemaValidationError{
				Field:  f.field,
				Reason: fmt.Sprintf("%g is outside [0, 100]", *v),
			}
		}
		*f.dst = v
	}

	return rec, nil
}

// CodeIndYr builds the synthetic key for one country-indicator-year row.
func CodeIndYr(code, indicator string, year int) string {
	return strings.ToLower(code) + strings.ToLower(indicator) + strconv.Itoa(year)
}

func parseYear(raw string) (int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, &indexer.SchemaValidationError{Field: "year", Reason: "missing"}
	}
	year, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0, &indexer.SchemaValidationError{
			Field:  "year",
			Reason: fmt.Sprintf("%q is not an integer", trimmed),
		}
	}
	if year < 1990 || year > 2100 {
		return 0, &indexer.SchemaValidationError{
			Field:  "year",
			Reason: fmt.Sprintf("%d is outside the plausible range", year),
		}
	}
	return year, nil
}

func requiredFloat(raw indexer.RawRecord, field string) (float64, error) {
	trimmed := strings.TrimSpace(raw[field])
	if trimmed == "" {
		return 0, &indexer.SchemaValidationError{Field: field, Reason: "missing"}
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, &indexer.SchemaValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is not numeric", trimmed),
		}
	}
	return v, nil
}

func optionalFloat(raw indexer.RawRecord, field string) (*float64, error) {
	trimmed := strings.TrimSpace(raw[field])
	if trimmed == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return nil, &indexer.SchemaValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is not numeric", trimmed),
		}
	}
	return &v, nil
}

func optionalInt(raw indexer.RawRecord, field string) (*int, error) {
	trimmed := strings.TrimSpace(raw[field])
	if trimmed == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil, &indexer.SchemaValidationError{
			Field:  field,
			Reason: fmt.Sprintf("%q is not an integer", trimmed),
		}
	}
	return &v, nil
}
