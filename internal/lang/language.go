// Package lang validates the transcription language hint.
package lang

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalid indicates an invalid language code was specified.
var ErrInvalid = errors.New("invalid language code")

// codes are the ISO 639-1 base codes accepted by Whisper-family engines,
// sorted for binary search.
var codes = []string{
	"af", "ar", "bg", "bn", "ca", "cs", "cy", "da", "de", "el",
	"en", "es", "et", "fa", "fi", "fr", "gl", "gu", "he", "hi",
	"hr", "hu", "hy", "id", "is", "it", "ja", "kk", "kn", "ko",
	"lt", "lv", "mk", "ml", "mr", "ms", "ne", "nl", "no", "pa",
	"pl", "pt", "ro", "ru", "sk", "sl", "sr", "sv", "sw", "ta",
	"te", "th", "tl", "tr", "uk", "ur", "vi", "zh",
}

// Normalize lowercases a code and uses '-' as the region separator.
// "pt_BR", "PT-BR" and "pt-br" all become "pt-br".
func Normalize(code string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(code), "_", "-"))
}

// BaseCode strips the region from a locale: "pt-BR" becomes "pt".
// Engines only accept base codes.
func BaseCode(code string) string {
	base, _, _ := strings.Cut(Normalize(code), "-")
	return base
}

// Validate checks code. Empty means auto-detect and is valid.
func Validate(code string) error {
	if code == "" {
		return nil
	}
	if _, ok := slices.BinarySearch(codes, BaseCode(code)); !ok {
		return fmt.Errorf("%w %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR')", ErrInvalid, code)
	}
	return nil
}
