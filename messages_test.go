package goRecovery

import (
	"strings"
	"testing"
)

func TestParseLocale(t *testing.T) {
	tests := map[string]Locale{
		"fr":     LocaleFrench,
		"fr-FR":  LocaleFrench,
		" FR_ca": LocaleFrench,
		"en-GB":  LocaleEnglish,
		"de":     LocaleEnglish,
		"":       LocaleEnglish,
	}
	for in, want := range tests {
		if got := ParseLocale(in); got != want {
			t.Fatalf("ParseLocale(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCatalogsCoverEveryKind(t *testing.T) {
	for locale, catalog := range messageCatalog {
		for k := KindUnknown; k <= KindRateLimited; k++ {
			if strings.TrimSpace(catalog[k]) == "" {
				t.Fatalf("locale %q has no message for %s", locale, k)
			}
		}
	}
}

func TestTooShortMessageCarriesMinimum(t *testing.T) {
	if got := DefaultMessage(LocaleEnglish, KindPasswordTooShort); !strings.Contains(got, "6") {
		t.Fatalf("expected default minimum in message, got %q", got)
	}
	if got := defaultMessage(LocaleFrench, KindPasswordTooShort, 10); !strings.Contains(got, "10") {
		t.Fatalf("expected configured minimum in message, got %q", got)
	}
	if strings.Contains(DefaultMessage(LocaleEnglish, KindNotFound), "%") {
		t.Fatal("unexpected format verb in plain message")
	}
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	if got, want := defaultMessage("xx", KindNotFound, 6), DefaultMessage(LocaleEnglish, KindNotFound); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if got := DefaultMessage(LocaleEnglish, Kind(200)); got != DefaultMessage(LocaleEnglish, KindUnknown) {
		t.Fatalf("expected unknown kind to use the generic message, got %q", got)
	}
}
