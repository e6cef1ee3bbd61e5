package pattern

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/autopilot/internal/page"
)

const day = 24 * time.Hour

func loginContext(at time.Time) page.Context {
	return page.Context{
		URL:       "https://example.com/login",
		Hostname:  "example.com",
		Pathname:  "/login",
		Timestamp: at,
	}
}

func newEmailPattern(t *testing.T, age time.Duration) *Pattern {
	t.Helper()
	p, err := New(ActionFillText,
		map[string]any{"element": "email", "value": "test@x.com"},
		"#email",
		loginContext(time.Now().Add(-age)))
	require.NoError(t, err)
	return p
}

func TestNew(t *testing.T) {
	t.Run("initial statistics", func(t *testing.T) {
		p := newEmailPattern(t, 0)
		assert.NotEqual(t, [16]byte{}, [16]byte(p.ID))
		assert.Equal(t, InitialConfidence, p.Confidence)
		assert.Zero(t, p.UsageCount)
		assert.Zero(t, p.SuccessfulExecutions)
		assert.Empty(t, p.ExecutionHistory)
	})

	t.Run("rejects unknown action type", func(t *testing.T) {
		_, err := New("hover", nil, "#x", loginContext(time.Now()))
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("rejects empty selector", func(t *testing.T) {
		_, err := New(ActionClickElement, nil, "  ", loginContext(time.Now()))
		assert.ErrorIs(t, err, ErrInvalidPattern)
	})

	t.Run("stamps missing capture time", func(t *testing.T) {
		p, err := New(ActionClickElement, nil, "#go", page.Context{Hostname: "example.com", Pathname: "/"})
		require.NoError(t, err)
		assert.False(t, p.Context.Timestamp.IsZero())
		assert.NotNil(t, p.Payload)
	})
}

func TestSuccessRate(t *testing.T) {
	p := &Pattern{}
	assert.Zero(t, p.SuccessRate())

	p.UsageCount, p.SuccessfulExecutions = 10, 2
	assert.InDelta(t, 0.2, p.SuccessRate(), 1e-9)
}

func TestEvaluateMatch(t *testing.T) {
	p := newEmailPattern(t, 0)

	t.Run("same page different value", func(t *testing.T) {
		c := p.EvaluateMatch(Request{
			ActionType: ActionFillText,
			Payload:    map[string]any{"element": "email", "value": "other@y.com"},
			Context:    loginContext(time.Now()),
		})
		assert.True(t, c.ActionTypeMatch)
		assert.Greater(t, c.PayloadSimilarity, 0.5)
		assert.Equal(t, 1.0, c.ContextCompatibility)
		assert.InDelta(t, 0.4*c.PayloadSimilarity+0.3+0.3, c.OverallScore, 1e-9)
		assert.True(t, IsGoodMatch(c))
	})

	t.Run("action type mismatch zeroes the score", func(t *testing.T) {
		c := p.EvaluateMatch(Request{
			ActionType: ActionClickElement,
			Payload:    p.Payload,
			Context:    loginContext(time.Now()),
		})
		assert.False(t, c.ActionTypeMatch)
		assert.Zero(t, c.OverallScore)
		assert.False(t, IsGoodMatch(c))
	})

	t.Run("different host is not a good match", func(t *testing.T) {
		ctx := loginContext(time.Now())
		ctx.Hostname = "example.org"
		c := p.EvaluateMatch(Request{ActionType: ActionFillText, Payload: p.Payload, Context: ctx})
		assert.Less(t, c.ContextCompatibility, GoodMatchContext)
		assert.False(t, IsGoodMatch(c))
	})

	t.Run("does not mutate the pattern", func(t *testing.T) {
		before := *p
		p.EvaluateMatch(Request{ActionType: ActionFillText, Payload: map[string]any{}, Context: loginContext(time.Now())})
		assert.Equal(t, before.UsageCount, p.UsageCount)
		assert.Equal(t, before.Confidence, p.Confidence)
	})
}

func TestIsGoodMatch(t *testing.T) {
	tests := []struct {
		name string
		c    MatchCriteria
		want bool
	}{
		{"all thresholds met", MatchCriteria{ActionTypeMatch: true, OverallScore: 0.7, ContextCompatibility: 0.6}, true},
		{"score too low", MatchCriteria{ActionTypeMatch: true, OverallScore: 0.69, ContextCompatibility: 0.9}, false},
		{"context too low", MatchCriteria{ActionTypeMatch: true, OverallScore: 0.9, ContextCompatibility: 0.59}, false},
		{"type mismatch", MatchCriteria{OverallScore: 0.9, ContextCompatibility: 0.9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGoodMatch(tt.c))
		})
	}
}

func TestIsValidForContext(t *testing.T) {
	now := time.Now()

	t.Run("same page", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		assert.True(t, p.IsValidForContext(loginContext(now)))
	})

	t.Run("different host", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		ctx := loginContext(now)
		ctx.Hostname = "example.org"
		assert.False(t, p.IsValidForContext(ctx))
	})

	t.Run("path overlap below half", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		ctx := loginContext(now)
		ctx.Pathname = "/signup"
		assert.False(t, p.IsValidForContext(ctx))
	})

	t.Run("older than thirty days even on the same page", func(t *testing.T) {
		p := newEmailPattern(t, 31*day)
		assert.False(t, p.IsValidForContext(loginContext(now)))
	})

	t.Run("structure change needs a proven pattern", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		p.Context.PageStructureHash = "aaa"
		ctx := loginContext(now)
		ctx.PageStructureHash = "bbb"

		assert.False(t, p.IsValidForContext(ctx), "unused pattern has no track record")

		p.UsageCount, p.SuccessfulExecutions = 10, 8
		assert.False(t, p.IsValidForContext(ctx), "exactly 0.8 is not enough")

		p.SuccessfulExecutions = 9
		assert.True(t, p.IsValidForContext(ctx))
	})

	t.Run("missing structure hash is ignored", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		p.Context.PageStructureHash = "aaa"
		assert.True(t, p.IsValidForContext(loginContext(now)))
	})
}

func TestReliabilityScore(t *testing.T) {
	tests := []struct {
		name      string
		age       time.Duration
		conf      float64
		usage     int
		successes int
		want      float64
		level     ReliabilityLevel
	}{
		{"new pattern", time.Hour, 1.0, 0, 0, 0.5, ReliabilityLow},
		{"perfect record", time.Hour, 1.0, 4, 4, 1.0, ReliabilityHigh},
		{"frequent use bonus", time.Hour, 0.8, 5, 5, 0.88, ReliabilityHigh},
		{"week old", 8 * day, 1.0, 4, 4, 0.7, ReliabilityMedium},
		{"month old", 31 * day, 1.0, 4, 4, 0.3, ReliabilityUnreliable},
		{"clamped", time.Hour, 2.0, 10, 10, 1.0, ReliabilityHigh},
		{"poor record", time.Hour, 0.5, 4, 0, 0.25, ReliabilityUnreliable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newEmailPattern(t, tt.age)
			p.Confidence = tt.conf
			p.UsageCount = tt.usage
			p.SuccessfulExecutions = tt.successes

			assert.InDelta(t, tt.want, p.ReliabilityScore(), 1e-9)
			assert.Equal(t, tt.level, p.ReliabilityLevel())
		})
	}
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, ReliabilityHigh, levelFor(0.8))
	assert.Equal(t, ReliabilityMedium, levelFor(0.79))
	assert.Equal(t, ReliabilityMedium, levelFor(0.6))
	assert.Equal(t, ReliabilityLow, levelFor(0.4))
	assert.Equal(t, ReliabilityUnreliable, levelFor(0.39))
}

func TestShouldBeRetrained(t *testing.T) {
	t.Run("low success rate", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		p.UsageCount, p.SuccessfulExecutions = 10, 2
		assert.True(t, p.ShouldBeRetrained())
	})

	t.Run("low success rate needs enough uses", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		p.UsageCount, p.SuccessfulExecutions = 2, 0
		assert.False(t, p.ShouldBeRetrained())
	})

	t.Run("old and idle", func(t *testing.T) {
		p := newEmailPattern(t, 15*day)
		p.UsageCount, p.SuccessfulExecutions = 1, 1
		p.ExecutionHistory = []ExecutionRecord{{Timestamp: time.Now().Add(-8 * day), Success: true}}
		assert.True(t, p.ShouldBeRetrained())
	})

	t.Run("old but recently used", func(t *testing.T) {
		p := newEmailPattern(t, 15*day)
		p.UsageCount, p.SuccessfulExecutions = 1, 1
		p.ExecutionHistory = []ExecutionRecord{{Timestamp: time.Now().Add(-time.Hour), Success: true}}
		assert.False(t, p.ShouldBeRetrained())
	})

	t.Run("recent failures", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		outcomes := []bool{true, true, true, true, true, false, true, false, true, false}
		for _, ok := range outcomes {
			p.recordOutcome(ExecutionRecord{Timestamp: time.Now(), Success: ok}, SuccessStep, FailureStep)
		}
		assert.True(t, p.ShouldBeRetrained())
	})

	t.Run("healthy", func(t *testing.T) {
		p := newEmailPattern(t, time.Hour)
		assert.False(t, p.ShouldBeRetrained())
	})
}

func TestRecordOutcomeInvariants(t *testing.T) {
	p := newEmailPattern(t, time.Hour)

	for i := range 50 {
		p.recordOutcome(ExecutionRecord{Timestamp: time.Now(), Success: true, CorrelationID: fmt.Sprint(i)}, SuccessStep, FailureStep)
		assert.LessOrEqual(t, p.Confidence, MaxConfidence)
	}
	assert.Equal(t, MaxConfidence, p.Confidence)

	for i := range 50 {
		p.recordOutcome(ExecutionRecord{Timestamp: time.Now(), CorrelationID: fmt.Sprint(50 + i)}, SuccessStep, FailureStep)
		assert.GreaterOrEqual(t, p.Confidence, MinConfidence)
		assert.GreaterOrEqual(t, p.UsageCount, p.SuccessfulExecutions)
		assert.LessOrEqual(t, len(p.ExecutionHistory), HistorySize)
	}
	assert.Equal(t, MinConfidence, p.Confidence)
	assert.Equal(t, 100, p.UsageCount)
	assert.Equal(t, 50, p.SuccessfulExecutions)

	require.Len(t, p.ExecutionHistory, HistorySize)
	assert.Equal(t, "90", p.ExecutionHistory[0].CorrelationID, "oldest dropped first")
	assert.Equal(t, "99", p.ExecutionHistory[HistorySize-1].CorrelationID)
}

func TestRecordExternalSuccess(t *testing.T) {
	p := newEmailPattern(t, time.Hour)
	p.RecordExternalSuccess("corr-1")

	assert.Equal(t, 1, p.UsageCount)
	assert.Equal(t, 1, p.SuccessfulExecutions)
	assert.InDelta(t, 1.1, p.Confidence, 1e-9)
	require.Len(t, p.ExecutionHistory, 1)
	assert.Equal(t, "corr-1", p.ExecutionHistory[0].CorrelationID)

	p.Confidence = 1.95
	p.RecordExternalSuccess("corr-2")
	assert.Equal(t, MaxConfidence, p.Confidence)
}

func TestStatsUpdate(t *testing.T) {
	p := newEmailPattern(t, time.Hour)
	p.RecordExternalSuccess("c")
	u := StatsUpdate(p)

	require.NotNil(t, u.Confidence)
	assert.Equal(t, p.Confidence, *u.Confidence)
	assert.Equal(t, 1, *u.UsageCount)
	assert.Equal(t, 1, *u.SuccessfulExecutions)
	assert.Len(t, *u.ExecutionHistory, 1)
	assert.Nil(t, u.Selector)

	p.RecordExternalSuccess("d")
	assert.Len(t, *u.ExecutionHistory, 1, "update is a snapshot")
}
