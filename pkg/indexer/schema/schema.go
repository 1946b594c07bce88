// Package schema describes the datasets the indexer maintains. The dashboard
// team uses this catalog to know what to join on; country keys are canonical
// alpha-3 across all tables.
package schema

// Dataset describes one maintained table.
type Dataset struct {
	Name       string
	Table      string
	NaturalKey []string
	Purpose    string
}
