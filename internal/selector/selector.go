package selector

import (
	"fmt"
	"sort"
	"strings"
)

// Element describes a concrete page element as captured from the DOM.
type Element struct {
	ID      string   `json:"id,omitempty"`
	Name    string   `json:"name,omitempty"`
	TestID  string   `json:"test_id,omitempty"`
	Classes []string `json:"classes,omitempty"`
	Type    string   `json:"type,omitempty"`
	Tag     string   `json:"tag"`
}

// Strategy names the attribute a candidate selector was built from.
type Strategy string

const (
	StrategyID      Strategy = "id"
	StrategyName    Strategy = "name"
	StrategyTestID  Strategy = "test_id"
	StrategyClasses Strategy = "classes"
	StrategyType    Strategy = "type"
	StrategyTag     Strategy = "tag"
)

// Candidate is one generated selector. Lower priority wins.
type Candidate struct {
	Selector string   `json:"selector"`
	Strategy Strategy `json:"strategy"`
	Priority int      `json:"priority"`
}

// TestIDAttribute is the attribute used for test/data identifier selectors.
const TestIDAttribute = "data-testid"

// Candidates returns every selector that can be built for el, most specific first.
// The bare tag selector is always present.
func Candidates(el Element) []Candidate {
	tag := normalizeTag(el.Tag)

	var out []Candidate
	if id := strings.TrimSpace(el.ID); id != "" {
		out = append(out, Candidate{Selector: idSelector(id), Strategy: StrategyID, Priority: 1})
	}
	if name := strings.TrimSpace(el.Name); name != "" {
		out = append(out, Candidate{Selector: tag + attr("name", name), Strategy: StrategyName, Priority: 2})
	}
	if testID := strings.TrimSpace(el.TestID); testID != "" {
		out = append(out, Candidate{Selector: attr(TestIDAttribute, testID), Strategy: StrategyTestID, Priority: 2})
	}
	if classes := classList(el.Classes); len(classes) > 0 {
		out = append(out, Candidate{Selector: "." + strings.Join(classes, "."), Strategy: StrategyClasses, Priority: 3})
	}
	if typ := strings.TrimSpace(el.Type); typ != "" {
		out = append(out, Candidate{Selector: tag + attr("type", typ), Strategy: StrategyType, Priority: 4})
	}
	out = append(out, Candidate{Selector: tag, Strategy: StrategyTag, Priority: 5})

	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// Generate returns the best selector for el. It never returns an empty string.
// Uniqueness against the live page is not checked here.
func Generate(el Element) string {
	return Candidates(el)[0].Selector
}

func normalizeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return "*"
	}
	return tag
}

func idSelector(id string) string {
	if isPlainIdent(id) {
		return "#" + id
	}
	return attr("id", id)
}

func attr(name, value string) string {
	return "[" + name + `="` + quote(value) + `"]`
}

func quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\a `)
	return r.Replace(v)
}

func classList(classes []string) []string {
	out := make([]string, 0, len(classes))
	for _, c := range classes {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		out = append(out, cssIdent(c))
	}
	return out
}

// cssIdent escapes s for use as a CSS identifier, following CSS.escape.
func cssIdent(s string) string {
	if s == "-" {
		return `\-`
	}
	var b strings.Builder
	leadingDash := strings.HasPrefix(s, "-")
	for i, r := range s {
		switch {
		case r == 0:
			b.WriteRune('\uFFFD')
		case r < 0x20 || r == 0x7f,
			r >= '0' && r <= '9' && (i == 0 || i == 1 && leadingDash):
			fmt.Fprintf(&b, `\%x `, r)
		case r >= 0x80, r == '-', r == '_',
			r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isPlainIdent reports whether s can be used as a CSS identifier without escaping.
func isPlainIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r >= 0x80:
		case r == '-':
			if i == 0 && len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
				return false
			}
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
