package middleware

import (
	"strings"
	"testing"
)

func TestValidatePhoneNumber(t *testing.T) {
	valid := []string{"+15550001111", "+442071838750", "+5215512345678"}
	for _, num := range valid {
		if err := ValidatePhoneNumber(num); err != nil {
			t.Errorf("ValidatePhoneNumber(%q) = %v", num, err)
		}
	}

	invalid := []string{"", "15550001111", "+0123456", "+1 555 000 1111", "agent", "+1555000111122334455"}
	for _, num := range invalid {
		if err := ValidatePhoneNumber(num); err == nil {
			t.Errorf("ValidatePhoneNumber(%q) accepted", num)
		}
	}
}

func TestValidateLanguageCode(t *testing.T) {
	valid := []string{"en", "en-US", "es-MX", "pt-BR", "zh-Hans-CN"}
	for _, code := range valid {
		if err := ValidateLanguageCode(code); err != nil {
			t.Errorf("ValidateLanguageCode(%q) = %v", code, err)
		}
	}

	invalid := []string{"", "e", "en_US", "english language", "en-"}
	for _, code := range invalid {
		if err := ValidateLanguageCode(code); err == nil {
			t.Errorf("ValidateLanguageCode(%q) accepted", code)
		}
	}
}

func TestValidateConnectionID(t *testing.T) {
	if err := ValidateConnectionID("0b45e08e-3e1c-4b5a-9d3e-0f6a2c1d9b7e"); err != nil {
		t.Errorf("valid UUID rejected: %v", err)
	}
	for _, id := range []string{"", "not-a-uuid", "12345"} {
		if err := ValidateConnectionID(id); err == nil {
			t.Errorf("ValidateConnectionID(%q) accepted", id)
		}
	}
}

func TestValidateDisplayName(t *testing.T) {
	if err := ValidateDisplayName("Ana María"); err != nil {
		t.Errorf("valid name rejected: %v", err)
	}
	if err := ValidateDisplayName(""); err != nil {
		t.Errorf("empty name rejected: %v", err)
	}
	if err := ValidateDisplayName(strings.Repeat("x", 257)); err == nil {
		t.Error("oversized name accepted")
	}
	if err := ValidateDisplayName(string([]byte{0xff, 0xfe})); err == nil {
		t.Error("invalid UTF-8 accepted")
	}
}
