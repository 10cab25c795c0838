// Package locale selects the notification language for a worker from their
// declared preferences. Resolution is a pure function of the preference list
// and the center configuration so it can be tested without any storage.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Aliases maps common free-text language names to BCP 47 tags. Preference
// lists come from kiosk sign-up forms, so entries like "Spanish" are frequent.
var aliases = map[string]string{
	"english":    "en",
	"spanish":    "es",
	"español":    "es",
	"espanol":    "es",
	"french":     "fr",
	"français":   "fr",
	"francais":   "fr",
	"portuguese": "pt",
	"português":  "pt",
	"portugues":  "pt",
}

// Resolve scans the worker's preferred languages in order and returns the
// first one the center supports, falling back to the center default.
func Resolve(preferred []string, supported []language.Tag, fallback language.Tag) language.Tag {
	if len(supported) == 0 {
		return fallback
	}

	matcher := language.NewMatcher(supported)
	for _, raw := range preferred {
		tag, ok := parse(raw)
		if !ok {
			continue
		}
		if _, index, conf := matcher.Match(tag); conf >= language.High {
			return supported[index]
		}
	}

	return fallback
}

func parse(raw string) (language.Tag, bool) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return language.Und, false
	}
	if alias, ok := aliases[raw]; ok {
		raw = alias
	}
	tag, err := language.Parse(raw)
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}

// ParseSupported converts configured locale codes into tags, dropping
// anything unparseable. The first entry is treated as the center default.
func ParseSupported(codes []string) []language.Tag {
	tags := make([]language.Tag, 0, len(codes))
	for _, code := range codes {
		if tag, ok := parse(code); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}
