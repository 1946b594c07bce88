package countries_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/macrolabs/risklake/pkg/countries"
)

func TestCountries_Resolver(t *testing.T) {
	t.Parallel()

	resolver, err := countries.NewResolver("")
	require.NoError(t, err)
	require.Greater(t, resolver.Len(), 200)

	t.Run("resolves known names", func(t *testing.T) {
		t.Parallel()

		for name, want := range map[string]string{
			"Brazil":             "BRA",
			"South Korea":        "KOR",
			"Korea, Rep.":        "KOR",
			"Russian Federation": "RUS",
			"Viet Nam":           "VNM",
			"Turkiye":            "TUR",
			"United States":      "USA",
			"Czechia":            "CZE",
		} {
			got, err := resolver.Resolve(name)
			require.NoError(t, err, "resolving %q", name)
			require.Equal(t, want, got)
		}
	})

	t.Run("case and whitespace insensitive", func(t *testing.T) {
		t.Parallel()

		for _, name := range []string{"brazil", "BRAZIL", "  Brazil  ", "bRaZiL"} {
			got, err := resolver.Resolve(name)
			require.NoError(t, err, "resolving %q", name)
			require.Equal(t, "BRA", got)
		}
	})

	t.Run("punctuation variants", func(t *testing.T) {
		t.Parallel()

		got, err := resolver.Resolve("U.S.A.")
		require.NoError(t, err)
		require.Equal(t, "USA", got)

		got, err = resolver.Resolve("Bosnia & Herzegovina")
		require.NoError(t, err)
		require.Equal(t, "BIH", got)
	})

	t.Run("alpha-3 passthrough", func(t *testing.T) {
		t.Parallel()

		for _, code := range []string{"BRA", "bra", " kor "} {
			got, err := resolver.Resolve(code)
			require.NoError(t, err)
			require.Len(t, got, 3)
		}
	})

	t.Run("unrecognized name", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve("Atlantis")
		require.Error(t, err)

		var unrecognized *countries.UnrecognizedCountryError
		require.True(t, errors.As(err, &unrecognized))
		require.Equal(t, "Atlantis", unrecognized.Name)
	})

	t.Run("empty name is unrecognized", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve("   ")
		var unrecognized *countries.UnrecognizedCountryError
		require.True(t, errors.As(err, &unrecognized))
	})
}

func TestCountries_Resolver_ExtraAliases(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  \"Kingdom of Atlantis\": ATL\n  \"Brazil\": ARG\n"), 0644))

	resolver, err := countries.NewResolver(path)
	require.NoError(t, err)

	t.Run("file adds new aliases", func(t *testing.T) {
		t.Parallel()

		got, err := resolver.Resolve("Kingdom of Atlantis")
		require.NoError(t, err)
		require.Equal(t, "ATL", got)
	})

	t.Run("file overrides embedded aliases", func(t *testing.T) {
		t.Parallel()

		got, err := resolver.Resolve("Brazil")
		require.NoError(t, err)
		require.Equal(t, "ARG", got)
	})
}

func TestCountries_Resolver_InvalidAliasFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "aliases.yaml")
	require.NoError(t, os.WriteFile(path, []byte("aliases:\n  \"Somewhere\": TOOLONG\n"), 0644))

	_, err := countries.NewResolver(path)
	require.Error(t, err)
}
