package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchtower/internal/alert"
	"watchtower/internal/alert/ratecounter"
	"watchtower/internal/audit"
)

func newEvaluator() (*Evaluator, *ratecounter.Memory) {
	counter := ratecounter.NewMemory()
	return NewEvaluator(Catalog(), counter), counter
}

func failedLogin(userID string) audit.Event {
	return audit.Event{
		ActorType: audit.ActorUser,
		ActorID:   userID,
		Action:    audit.ActionAuthLoginFailed,
		Severity:  audit.SeverityWarning,
		UserID:    userID,
	}
}

func TestEvaluate_FailedLoginSpikeMatchesAtThreshold(t *testing.T) {
	eval, _ := newEvaluator()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		conditions, err := eval.Evaluate(ctx, failedLogin("user-1"))
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.False(t, conditions[0].Matched, "event %d must stay below threshold", i+1)
	}

	conditions, err := eval.Evaluate(ctx, failedLogin("user-1"))
	require.NoError(t, err)
	require.Len(t, conditions, 1)

	cond := conditions[0]
	assert.True(t, cond.Matched)
	assert.Equal(t, RuleFailedLoginSpike, cond.RuleID)
	assert.Equal(t, int64(5), cond.CurrentCount)
	assert.Equal(t, int64(5), cond.Threshold)
	assert.Equal(t, "user-1", cond.EntityKey)
}

func TestEvaluate_RateCountsArePerEntity(t *testing.T) {
	eval, _ := newEvaluator()
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := eval.Evaluate(ctx, failedLogin("user-1"))
		require.NoError(t, err)
	}

	conditions, err := eval.Evaluate(ctx, failedLogin("user-2"))
	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.False(t, conditions[0].Matched)
	assert.Equal(t, int64(1), conditions[0].CurrentCount)
}

func TestEvaluate_ImmediateRuleAlwaysMatches(t *testing.T) {
	eval, _ := newEvaluator()
	ctx := context.Background()

	event := audit.Event{
		ActorType: audit.ActorAgent,
		ActorID:   "agent-7",
		Action:    audit.ActionCrossTenantAccess,
		Severity:  audit.SeverityCritical,
		TenantID:  "tenant-a",
	}

	for i := 0; i < 3; i++ {
		conditions, err := eval.Evaluate(ctx, event)
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		assert.True(t, conditions[0].Matched)
		assert.Equal(t, RuleCrossTenantAccess, conditions[0].RuleID)
		assert.Equal(t, "agent-7", conditions[0].EntityKey)
	}
}

func TestEvaluate_NoTriggeredRules(t *testing.T) {
	eval, _ := newEvaluator()

	conditions, err := eval.Evaluate(context.Background(), audit.Event{
		Action: audit.ActionTenantCreated,
	})

	require.NoError(t, err)
	assert.Empty(t, conditions)
}

func TestEvaluate_EntityKeyFallsBackToActor(t *testing.T) {
	eval, _ := newEvaluator()

	// Failed login with no user id counts against the acting identity.
	event := failedLogin("")
	event.ActorID = "svc-probe"
	conditions, err := eval.Evaluate(context.Background(), event)

	require.NoError(t, err)
	require.Len(t, conditions, 1)
	assert.Equal(t, "svc-probe", conditions[0].EntityKey)
}

func TestEvaluate_AgentErrorSpikeCountsPerAgent(t *testing.T) {
	eval, _ := newEvaluator()
	ctx := context.Background()

	event := audit.Event{
		ActorType: audit.ActorAgent,
		ActorID:   "agent-1",
		Action:    audit.ActionAgentError,
		Severity:  audit.SeverityError,
		AgentID:   "agent-1",
	}

	var last alert.Condition
	for i := 0; i < 10; i++ {
		conditions, err := eval.Evaluate(ctx, event)
		require.NoError(t, err)
		require.Len(t, conditions, 1)
		last = conditions[0]
	}

	assert.True(t, last.Matched)
	assert.Equal(t, RuleAgentErrorSpike, last.RuleID)
	assert.Equal(t, int64(10), last.CurrentCount)
}

func TestCatalog_RuleLookup(t *testing.T) {
	eval, _ := newEvaluator()

	rule, ok := eval.Rule(RuleCrossTenantAccess)
	require.True(t, ok)
	assert.Equal(t, audit.SeverityCritical, rule.Severity)
	assert.Equal(t, alert.ModeImmediate, rule.Mode)

	_, ok = eval.Rule("unknown")
	assert.False(t, ok)
}
