package countryeconomy

import schematypes "github.com/macrolabs/risklake/pkg/indexer/schema"

var Datasets = []schematypes.Dataset{
	{
		Name:       "countryeconomy_ratings",
		Table:      "countryeconomy_data",
		NaturalKey: []string{"country", "rating_date"},
		Purpose: `
			Sovereign credit rating history from countryeconomy.com: agency, rating
			code, and term type per country per rating date. country is the
			canonical alpha-3 key; order by rating_date DESC for latest ratings.
		`,
	},
}
