package selector

import (
	"errors"
	"fmt"
	"strings"
)

// MaxLength is the longest selector accepted for persistence.
const MaxLength = 1000

var (
	ErrEmpty     = errors.New("selector is empty")
	ErrTooLong   = fmt.Errorf("selector exceeds %d characters", MaxLength)
	ErrBadStart  = errors.New("selector must start with a valid CSS selector character")
	ErrInjection = errors.New("selector contains a dangerous pattern")
)

var dangerousPatterns = []string{"javascript:", "<script", "onerror=", "onload="}

const validStartChars = "#.[*"

// Validate rejects selectors that are unusable or unsafe to store and replay.
func Validate(sel string) error {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return ErrEmpty
	}
	if len(sel) > MaxLength {
		return ErrTooLong
	}
	lower := strings.ToLower(sel)
	for _, p := range dangerousPatterns {
		if strings.Contains(lower, p) {
			return fmt.Errorf("%w: %s", ErrInjection, p)
		}
	}
	if !validStart(sel[0]) {
		return ErrBadStart
	}
	return nil
}

func validStart(ch byte) bool {
	if ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' {
		return true
	}
	return strings.IndexByte(validStartChars, ch) >= 0
}
