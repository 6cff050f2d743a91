package language

import "strings"

// DefaultLocale is used for languages without a dedicated speech locale.
const DefaultLocale = "en-IN"

// Language describes one selectable conversation language.
type Language struct {
	ID     string `json:"code"`
	Name   string `json:"name"`
	Native string `json:"native"`
	Locale string `json:"locale"`
}

// Seed returns the built-in catalog. The first entry is the default.
func Seed() []Language {
	return []Language{
		{ID: "english", Name: "English", Native: "English", Locale: "en-IN"},
		{ID: "hindi", Name: "Hindi", Native: "हिंदी", Locale: "hi-IN"},
		{ID: "tamil", Name: "Tamil", Native: "தமிழ்", Locale: "ta-IN"},
		{ID: "telugu", Name: "Telugu", Native: "తెలుగు", Locale: "te-IN"},
		{ID: "bengali", Name: "Bengali", Native: "বাংলা", Locale: "bn-IN"},
		{ID: "marathi", Name: "Marathi", Native: "मराठी", Locale: "mr-IN"},
		{ID: "gujarati", Name: "Gujarati", Native: "ગુજરાતી", Locale: "gu-IN"},
		{ID: "kannada", Name: "Kannada", Native: "ಕನ್ನಡ", Locale: "kn-IN"},
		{ID: "malayalam", Name: "Malayalam", Native: "മലയാളം", Locale: "ml-IN"},
		{ID: "punjabi", Name: "Punjabi", Native: "ਪੰਜਾਬੀ", Locale: "pa-IN"},
		{ID: "odia", Name: "Odia", Native: "ଓଡ଼ିଆ"},
		{ID: "assamese", Name: "Assamese", Native: "অসমীয়া"},
	}
}

var catalog = Seed()

// Default is the fallback catalog entry.
func Default() Language {
	return withLocale(catalog[0])
}

// List returns a copy of the catalog.
func List() []Language {
	out := make([]Language, 0, len(catalog))
	for _, lang := range catalog {
		out = append(out, withLocale(lang))
	}
	return out
}

// Lookup resolves an identifier; unknown identifiers yield Default.
func Lookup(id string) Language {
	if lang, ok := find(id); ok {
		return withLocale(lang)
	}
	return Default()
}

// Known reports whether id names a catalog entry.
func Known(id string) bool {
	_, ok := find(id)
	return ok
}

// Locale returns the speech locale code for id.
func Locale(id string) string {
	return Lookup(id).Locale
}

// ISOCode returns the two-letter language part of the locale ("hi" for hi-IN).
func ISOCode(id string) string {
	locale := Locale(id)
	if idx := strings.Index(locale, "-"); idx > 0 {
		return locale[:idx]
	}
	return locale
}

func find(id string) (Language, bool) {
	normalized := strings.ToLower(strings.TrimSpace(id))
	for _, lang := range catalog {
		if lang.ID == normalized {
			return lang, true
		}
	}
	return Language{}, false
}

func withLocale(lang Language) Language {
	if lang.Locale == "" {
		lang.Locale = DefaultLocale
	}
	return lang
}

// SpeechLocale returns the dedicated speech locale of id. Languages without
// one report false so callers can let the recogniser detect the language.
func SpeechLocale(id string) (string, bool) {
	lang, ok := find(id)
	if !ok || lang.Locale == "" {
		return "", false
	}
	return lang.Locale, true
}
