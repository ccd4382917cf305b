package middleware

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/google/uuid"
)

// E.164: plus sign, then 2-15 digits with a non-zero lead.
var phonePattern = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)

// BCP-47-ish language tags the providers accept: "en", "es-MX".
var languageCodePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)

// ValidatePhoneNumber validates an E.164 phone number.
func ValidatePhoneNumber(number string) error {
	if number == "" {
		return errors.New("phone number cannot be empty")
	}
	if !phonePattern.MatchString(number) {
		return errors.New("phone number must be in E.164 format")
	}
	return nil
}

// ValidateLanguageCode validates a language tag.
func ValidateLanguageCode(code string) error {
	if code == "" {
		return errors.New("language code cannot be empty")
	}
	if !languageCodePattern.MatchString(code) {
		return errors.New("invalid language code format")
	}
	return nil
}

// ValidateConnectionID validates a connection ID.
func ValidateConnectionID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errors.New("invalid connection ID format")
	}
	return nil
}

// ValidateDisplayName validates a profile display name.
func ValidateDisplayName(name string) error {
	if len(name) > 256 {
		return errors.New("display name exceeds maximum length")
	}
	if !utf8.ValidString(name) {
		return errors.New("display name must be valid UTF-8")
	}
	return nil
}
