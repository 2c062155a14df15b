//go:build !integration

package i18n

import (
	"strings"
	"testing"
)

func TestTranslator(t *testing.T) {
	// 1. Arrange
	contentBytes := []byte("greeting: Akwaaba\nwelcome_user: Akwaaba %s")
	translator, err := newTranslatorFromBytes(contentBytes)
	if err != nil {
		t.Fatalf("newTranslatorFromBytes failed: %v", err)
	}

	// 2. Act / 3. Assert
	t.Run("should translate a simple key", func(t *testing.T) {
		got := translator.T("greeting")
		want := "Akwaaba"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should return key if not found", func(t *testing.T) {
		got := translator.T("nonexistent_key")
		want := "nonexistent_key"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})

	t.Run("should format arguments correctly", func(t *testing.T) {
		got := translator.T("welcome_user", "Ama")
		want := "Akwaaba Ama"
		if got != want {
			t.Errorf("wanted '%s', got '%s'", want, got)
		}
	})
}

func TestEmbeddedLocale(t *testing.T) {
	tr, err := NewTranslator(LocalesFS, "en")
	if err != nil {
		t.Fatalf("NewTranslator(en) failed: %v", err)
	}
	if got := tr.T("ussd.session_expired"); !strings.Contains(got, "Session expired") {
		t.Errorf("unexpected text %q", got)
	}
	if got := tr.T("ussd.welcome", "1. Awards"); !strings.HasSuffix(got, "1. Awards") {
		t.Errorf("welcome not formatted: %q", got)
	}
	if _, err := NewTranslator(LocalesFS, "xx"); err == nil {
		t.Error("expected an error for a missing locale")
	}
}
