// Package translate provides the text translation gateway.
package translate

import (
	"context"
	"strings"
)

// Result is the outcome of one translation call. The resolved codes echo
// what the provider actually translated between.
type Result struct {
	TranslatedText     string
	SourceLanguageCode string
	TargetLanguageCode string
}

// Client is the interface for translation providers.
type Client interface {
	// Translate translates text between two language codes.
	Translate(ctx context.Context, text, sourceCode, targetCode string) (*Result, error)

	// Name returns the provider name.
	Name() string
}

// SameLanguage reports whether two language codes name the same spoken
// language for relay purposes. Identical codes match, as do any two
// English variants (en, en-US, en-GB, ...), since the notice strings are
// authored in English.
func SameLanguage(a, b string) bool {
	if strings.EqualFold(a, b) {
		return true
	}
	return isEnglish(a) && isEnglish(b)
}

func isEnglish(code string) bool {
	code = strings.ToLower(code)
	return code == "en" || strings.HasPrefix(code, "en-")
}
