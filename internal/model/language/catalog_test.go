package language

import "testing"

func TestLookupFallsBackToEnglish(t *testing.T) {
	got := Lookup("klingon")
	if got.ID != "english" {
		t.Fatalf("expected english fallback, got %s", got.ID)
	}
	if got.Locale != "en-IN" {
		t.Fatalf("expected en-IN, got %s", got.Locale)
	}
}

func TestLookupKnownLanguage(t *testing.T) {
	got := Lookup(" Hindi ")
	if got.ID != "hindi" || got.Native != "हिंदी" || got.Locale != "hi-IN" {
		t.Fatalf("unexpected hindi entry: %+v", got)
	}
	if ISOCode("hindi") != "hi" {
		t.Fatalf("unexpected iso code %s", ISOCode("hindi"))
	}
}

func TestLanguagesWithoutLocaleUseDefault(t *testing.T) {
	for _, id := range []string{"odia", "assamese"} {
		if !Known(id) {
			t.Fatalf("%s should be in the catalog", id)
		}
		if Locale(id) != DefaultLocale {
			t.Fatalf("%s: expected default locale, got %s", id, Locale(id))
		}
	}
}

func TestListHasTwelveEntries(t *testing.T) {
	if n := len(List()); n != 12 {
		t.Fatalf("expected 12 languages, got %d", n)
	}
}
