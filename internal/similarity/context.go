package similarity

import (
	"strings"

	"github.com/aiox-platform/autopilot/internal/page"
)

// Signal weights for Context.
const (
	hostnameWeight  = 3.0
	pathWeight      = 2.0
	structureWeight = 1.0
)

// PathSegments splits a URL path into its non-empty segments.
func PathSegments(path string) []string {
	parts := strings.Split(path, "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// PathOverlap is the Jaccard overlap of the two paths' segment sets.
// Two paths with no segments (both root) are identical.
func PathOverlap(a, b string) float64 {
	sa, sb := segmentSet(a), segmentSet(b)
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}

	shared := 0
	for s := range sa {
		if _, ok := sb[s]; ok {
			shared++
		}
	}
	union := len(sa) + len(sb) - shared
	return float64(shared) / float64(union)
}

func segmentSet(path string) map[string]struct{} {
	segs := PathSegments(path)
	set := make(map[string]struct{}, len(segs))
	for _, s := range segs {
		set[s] = struct{}{}
	}
	return set
}

// Context scores how compatible a captured pattern context is with the current one.
// Hostname equality (weight 3), path overlap (weight 2) and structure hash equality
// (weight 1) are combined; a signal missing on either side is left out of both the
// numerator and the denominator. With no applicable signal the score is 0.
func Context(pattern, current page.Context) float64 {
	var score, weights float64

	if pattern.Hostname != "" && current.Hostname != "" {
		weights += hostnameWeight
		if strings.EqualFold(pattern.Hostname, current.Hostname) {
			score += hostnameWeight
		}
	}
	if pattern.Pathname != "" && current.Pathname != "" {
		weights += pathWeight
		score += pathWeight * PathOverlap(pattern.Pathname, current.Pathname)
	}
	if pattern.PageStructureHash != "" && current.PageStructureHash != "" {
		weights += structureWeight
		if pattern.PageStructureHash == current.PageStructureHash {
			score += structureWeight
		}
	}

	if weights == 0 {
		return 0
	}
	return score / weights
}
