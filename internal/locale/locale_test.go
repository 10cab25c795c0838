package locale

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var supported = []language.Tag{language.English, language.Spanish}

func TestResolveFirstSupportedWins(t *testing.T) {
	tag := Resolve([]string{"fr", "es", "en"}, supported, language.English)
	require.Equal(t, language.Spanish, tag)
}

func TestResolveFreeTextNames(t *testing.T) {
	tag := Resolve([]string{"Spanish"}, supported, language.English)
	require.Equal(t, language.Spanish, tag)

	tag = Resolve([]string{"Español", "English"}, supported, language.English)
	require.Equal(t, language.Spanish, tag)
}

func TestResolveFallback(t *testing.T) {
	require.Equal(t, language.English, Resolve(nil, supported, language.English))
	require.Equal(t, language.English, Resolve([]string{"", "zz-not-a-language", "fr"}, supported, language.English))
}

func TestResolveRegionalVariant(t *testing.T) {
	// es-MX should still land on the supported "es" catalog.
	tag := Resolve([]string{"es-MX"}, supported, language.English)
	require.Equal(t, language.Spanish, tag)
}

func TestParseSupported(t *testing.T) {
	tags := ParseSupported([]string{"en", "bogus!!", "es"})
	require.Equal(t, []language.Tag{language.English, language.Spanish}, tags)
}
