// Package countries maps free-text country names and ISO-like codes from the
// upstream sources to canonical ISO 3166-1 alpha-3 keys. The alias table is
// data, not code: a default table is embedded, and deployments can extend it
// with a YAML file without rebuilding.
package countries

import (
	"errors"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var defaultAliases []byte

// UnrecognizedCountryError reports an input with no mapping in the alias
// table. Callers exclude the record and count it; gaps in the table surface in
// the run report instead of corrupting downstream rows.
type UnrecognizedCountryError struct {
	Name string
}

func (e *UnrecognizedCountryError) Error() string {
	return fmt.Sprintf("unrecognized country: %q", e.Name)
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// Resolver resolves country names to canonical alpha-3 keys. It is immutable
// after construction and safe for concurrent use.
type Resolver struct {
	byAlias map[string]string
	codes   map[string]struct{}
}

// NewResolver builds a resolver from the embedded alias table. When extraPath
// is non-empty, aliases from that YAML file are merged on top of the embedded
// ones (the file wins on conflicts).
func NewResolver(extraPath string) (*Resolver, error) {
	byAlias, err := parseAliases(defaultAliases)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded alias table: %w", err)
	}

	if extraPath != "" {
		raw, err := os.ReadFile(extraPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read alias file: %w", err)
		}
		extra, err := parseAliases(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse alias file %s: %w", extraPath, err)
		}
		for alias, code := range extra {
			byAlias[alias] = code
		}
	}

	codes := make(map[string]struct{})
	for _, code := range byAlias {
		codes[code] = struct{}{}
	}

	return &Resolver{byAlias: byAlias, codes: codes}, nil
}

func parseAliases(raw []byte) (map[string]string, error) {
	var f aliasFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	if len(f.Aliases) == 0 {
		return nil, errors.New("alias table is empty")
	}

	byAlias := make(map[string]string, len(f.Aliases))
	for name, code := range f.Aliases {
		code = strings.ToUpper(strings.TrimSpace(code))
		if len(code) != 3 {
			return nil, fmt.Errorf("alias %q maps to invalid alpha-3 code %q", name, code)
		}
		byAlias[normalize(name)] = code
	}
	return byAlias, nil
}

// Resolve returns the canonical alpha-3 key for a free-text country name or
// ISO-like code. Case, surrounding whitespace, periods, and "&" vs "and" do
// not affect the result. Already-canonical alpha-3 codes resolve to
// themselves.
func (r *Resolver) Resolve(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", &UnrecognizedCountryError{Name: name}
	}

	folded := normalize(trimmed)
	if code, ok := r.byAlias[folded]; ok {
		return code, nil
	}

	if upper := strings.ToUpper(folded); len(upper) == 3 {
		if _, ok := r.codes[upper]; ok {
			return upper, nil
		}
	}

	return "", &UnrecognizedCountryError{Name: trimmed}
}

// Len reports the number of distinct aliases in the table.
func (r *Resolver) Len() int { return len(r.byAlias) }

// normalize folds an alias to its lookup form: lower case, periods stripped,
// "&" treated as "and", whitespace collapsed.
func normalize(name string) string {
	s := strings.ToLower(name)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, "&", " and ")
	return strings.Join(strings.Fields(s), " ")
}
