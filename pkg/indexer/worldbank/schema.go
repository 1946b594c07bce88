package worldbank

import schematypes "github.com/macrolabs/risklake/pkg/indexer/schema"

var Datasets = []schematypes.Dataset{
	{
		Name:       "worldbank_wgi",
		Table:      "worldbank_data",
		NaturalKey: []string{"codeindyr"},
		Purpose: `
			Worldwide Governance Indicators: estimate, standard error, source count
			and percentile ranks per country-indicator-year. codeindyr is the
			synthetic key lower(code) + lower(indicator) + year; code is the
			canonical alpha-3 key.
		`,
	},
}
