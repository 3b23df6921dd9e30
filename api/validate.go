package api

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrInvalidInput is returned for caller input that cannot be forwarded.
var ErrInvalidInput = errors.New("invalid input")

// ValidateInput checks a caller supplied instruction: valid UTF-8, not blank,
// at most maxLen runes (0 disables the limit) and free of control characters
// other than newline, carriage return and tab.
func ValidateInput(s string, maxLen int) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("%w: input is not valid UTF-8", ErrInvalidInput)
	}
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: input must not be blank", ErrInvalidInput)
	}
	if n := utf8.RuneCountInString(s); maxLen > 0 && n > maxLen {
		return fmt.Errorf("%w: input has %d characters, limit is %d", ErrInvalidInput, n, maxLen)
	}
	for i, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character %U at byte %d", ErrInvalidInput, r, i)
		}
	}
	return nil
}
