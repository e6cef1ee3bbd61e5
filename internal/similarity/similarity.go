// Package similarity scores closeness of strings, payloads and page contexts on a 0..1 scale.
package similarity

import (
	"reflect"
	"strings"
)

// ElementKey is the payload key naming the target element.
const ElementKey = "element"

// Element-name mismatches are penalised but not zeroed so a near miss can still match.
const (
	elementMismatchFloor = 0.2
	elementMismatchSpan  = 0.1
)

// Levenshtein returns the edit distance between a and b, counted in runes.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

// String is 1 - levenshtein/maxLen, case-insensitive.
// Identical strings score 1 and a single empty side scores 0.
func String(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	if la == 0 || lb == 0 {
		return 0
	}
	return 1 - float64(Levenshtein(a, b))/float64(max(la, lb))
}

// Payload compares two payload maps key by key over the union of their keys.
// Keys present on one side only contribute 0. Two empty payloads match perfectly.
func Payload(a, b map[string]any) float64 {
	keys := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		keys[k] = struct{}{}
	}
	for k := range b {
		keys[k] = struct{}{}
	}
	if len(keys) == 0 {
		return 1
	}

	var sum float64
	for k := range keys {
		va, okA := a[k]
		vb, okB := b[k]
		if !okA || !okB {
			continue
		}
		sum += value(k, va, vb)
	}
	return sum / float64(len(keys))
}

func value(key string, a, b any) float64 {
	sa, aIsStr := a.(string)
	sb, bIsStr := b.(string)

	if key == ElementKey && aIsStr && bIsStr {
		if strings.EqualFold(strings.TrimSpace(sa), strings.TrimSpace(sb)) {
			return 1
		}
		return elementMismatchFloor + elementMismatchSpan*String(sa, sb)
	}
	if aIsStr && bIsStr {
		return String(sa, sb)
	}
	if equalPrimitive(a, b) {
		return 1
	}
	return 0
}

// equalPrimitive treats numbers of different Go types as equal when their values are.
// JSON-decoded payloads carry float64 while in-process ones often carry int.
func equalPrimitive(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
