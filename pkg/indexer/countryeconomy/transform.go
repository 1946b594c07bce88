// Package countryeconomy ingests sovereign credit ratings scraped from
// countryeconomy.com into the countryeconomy_data table, at most one rating
// entry per country per rating date.
package countryeconomy

import (
	"fmt"
	"strings"
	"time"

	"github.com/macrolabs/risklake/pkg/indexer"
)

// Record is one row of countryeconomy_data.
type Record struct {
	Country      string
	RatingAgency string
	Rating       string
	RatingDate   time.Time
	TermType     string
}

// Canonical agency spellings; the scraper output drifts on casing.
var agencies = map[string]string{
	"moody's": "Moody's",
	"moodys":  "Moody's",
	"s&p":     "S&P",
	"sp":      "S&P",
	"fitch":   "Fitch",
}

func (s *Source) Transform(raw indexer.RawRecord, country string) (Record, error) {
	rating := strings.TrimSpace(raw["rating"])
	if rating == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "rating", Reason: "missing"}
	}

	agency := strings.TrimSpace(raw["rating_agency"])
	if agency == "" {
		return Record{}, &indexer.SchemaValidationError{Field: "rating_agency", Reason: "missing"}
	}
	if canonical, ok := agencies[strings.ToLower(agency)]; ok {
		agency = canonical
	}

	date, err := parseRatingDate(raw["rating_date"])
	if err != nil {
		return Record{}, err
	}

	termType, err := parseTermType(raw["term_type"])
	if err != nil {
		return Record{}, err
	}

	return Record{
		Country:      country,
		RatingAgency: agency,
		Rating:       rating,
		RatingDate:   date,
		TermType:     termType,
	}, nil
}

func parseRatingDate(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, &indexer.SchemaValidationError{Field: "rating_date", Reason: "missing"}
	}
	date, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return time.Time{}, &indexer.SchemaValidationError{
			Field:  "rating_date",
			Reason: fmt.Sprintf("%q is not a calendar date", trimmed),
		}
	}
	return date, nil
}

func parseTermType(raw string) (string, error) {
	folded := strings.ToLower(strings.TrimSpace(raw))
	folded = strings.ReplaceAll(folded, "_", " ")
	folded = strings.ReplaceAll(folded, "-", " ")
	switch strings.Join(strings.Fields(folded), " ") {
	case "long term":
		return "long-term", nil
	case "short term":
		return "short-term", nil
	case "":
		return "", &indexer.SchemaValidationError{Field: "term_type", Reason: "missing"}
	default:
		return "", &indexer.SchemaValidationError{
			Field:  "term_type",
			Reason: fmt.Sprintf("unknown term type %q", raw),
		}
	}
}
