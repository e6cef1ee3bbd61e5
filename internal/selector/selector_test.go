package selector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	tests := []struct {
		name string
		el   Element
		want string
	}{
		{"id wins over classes", Element{ID: "email", Classes: []string{"form-control", "input"}, Tag: "INPUT"}, "#email"},
		{"name scoped by tag", Element{Name: "username", Classes: []string{"a"}, Tag: "input"}, `input[name="username"]`},
		{"name before test id on tie", Element{Name: "q", TestID: "search", Tag: "input"}, `input[name="q"]`},
		{"test id", Element{TestID: "submit-btn", Classes: []string{"btn"}, Tag: "button"}, `[data-testid="submit-btn"]`},
		{"classes dot joined", Element{Classes: []string{"btn", "btn-primary"}, Type: "submit", Tag: "button"}, ".btn.btn-primary"},
		{"tag and type", Element{Type: "password", Tag: "input"}, `input[type="password"]`},
		{"bare tag", Element{Tag: "textarea"}, "textarea"},
		{"missing tag falls back to universal", Element{}, "*"},
		{"id needing escape uses attribute form", Element{ID: "1st:field", Tag: "input"}, `[id="1st:field"]`},
		{"blank classes are skipped", Element{Classes: []string{" ", ""}, Tag: "div"}, "div"},
		{"utility classes are escaped", Element{Classes: []string{"md:flex", "w-1/2"}, Tag: "div"}, `.md\:flex.w-1\/2`},
		{"leading digit class is escaped", Element{Classes: []string{"2xl", "-3d"}, Tag: "div"}, `.\32 xl.-\33 d`},
		{"lone dash class is escaped", Element{Classes: []string{"-"}, Tag: "div"}, `.\-`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Generate(tt.el))
		})
	}
}

func TestCandidates_OrderedByPriority(t *testing.T) {
	el := Element{
		ID:      "email",
		Name:    "email",
		TestID:  "email-input",
		Classes: []string{"field"},
		Type:    "email",
		Tag:     "input",
	}

	got := Candidates(el)
	require.Len(t, got, 6)

	strategies := make([]Strategy, 0, len(got))
	for i, c := range got {
		strategies = append(strategies, c.Strategy)
		if i > 0 {
			assert.LessOrEqual(t, got[i-1].Priority, c.Priority)
		}
	}
	assert.Equal(t, []Strategy{StrategyID, StrategyName, StrategyTestID, StrategyClasses, StrategyType, StrategyTag}, strategies)
}

func TestCandidates_NeverEmpty(t *testing.T) {
	got := Candidates(Element{Tag: "span"})
	require.Len(t, got, 1)
	assert.Equal(t, "span", got[0].Selector)
	assert.Equal(t, StrategyTag, got[0].Strategy)
}

func TestGenerate_QuotesAttributeValues(t *testing.T) {
	got := Generate(Element{Name: `say "hi"`, Tag: "input"})
	assert.Equal(t, `input[name="say \"hi\""]`, got)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sel     string
		wantErr error
	}{
		{"id selector", "#email", nil},
		{"attribute selector", `[data-testid="x"]`, nil},
		{"tag selector", "input", nil},
		{"universal", "*", nil},
		{"empty", "  ", ErrEmpty},
		{"too long", "#" + strings.Repeat("a", MaxLength), ErrTooLong},
		{"script injection", "div<script>", ErrInjection},
		{"javascript url", `a[href="javascript:alert(1)"]`, ErrInjection},
		{"bad start", ">div", ErrBadStart},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.sel)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGenerate_OutputAlwaysValid(t *testing.T) {
	elements := []Element{
		{ID: "a"},
		{Name: "n", Tag: "select"},
		{TestID: "t"},
		{Classes: []string{"c1", "c2"}},
		{Type: "checkbox", Tag: "input"},
		{Tag: "div"},
		{},
	}
	for _, el := range elements {
		assert.NoError(t, Validate(Generate(el)), "element %+v", el)
	}
}
