package allianz

import schematypes "github.com/macrolabs/risklake/pkg/indexer/schema"

var Datasets = []schematypes.Dataset{
	{
		Name:       "allianz_ratings",
		Table:      "allianz_data",
		NaturalKey: []string{"country", "year_quarter"},
		Purpose: `
			Quarterly Allianz country risk ratings: medium-term rating, short-term
			rating, and risk level per country per quarter. country is the canonical
			alpha-3 key; year_quarter is "YYYYQn".
		`,
	},
}
