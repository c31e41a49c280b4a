// Package rules holds the static alert rule catalog and the evaluator that
// applies it to incoming audit events.
package rules

import (
	"context"
	"fmt"
	"time"

	"watchtower/internal/alert"
	"watchtower/internal/alert/ratecounter"
	"watchtower/internal/audit"
)

// Built-in rule ids.
const (
	RuleFailedLoginSpike       = "failed-login-spike"
	RuleCrossTenantAccess      = "cross-tenant-access"
	RuleToolPolicyViolation    = "tool-policy-violation"
	RuleAgentErrorSpike        = "agent-error-spike"
	RuleNetworkPolicyViolation = "network-policy-violation"
)

// Catalog returns the built-in rules. Callers may append their own before
// constructing the Evaluator; the slice is freshly allocated on each call.
func Catalog() []alert.Rule {
	return []alert.Rule{
		{
			ID:             RuleFailedLoginSpike,
			Name:           "Failed login spike",
			TriggerActions: []string{audit.ActionAuthLoginFailed},
			Severity:       audit.SeverityWarning,
			Mode:           alert.ModeRateThreshold,
			Threshold:      5,
			Window:         5 * time.Minute,
		},
		{
			ID:             RuleCrossTenantAccess,
			Name:           "Cross-tenant access",
			TriggerActions: []string{audit.ActionCrossTenantAccess},
			Severity:       audit.SeverityCritical,
			Mode:           alert.ModeImmediate,
		},
		{
			ID:             RuleToolPolicyViolation,
			Name:           "Tool policy violation",
			TriggerActions: []string{audit.ActionToolPolicyViolated},
			Severity:       audit.SeverityWarning,
			Mode:           alert.ModeImmediate,
		},
		{
			ID:             RuleAgentErrorSpike,
			Name:           "Agent error spike",
			TriggerActions: []string{audit.ActionAgentError},
			Severity:       audit.SeverityWarning,
			Mode:           alert.ModeRateThreshold,
			Threshold:      10,
			Window:         60 * time.Minute,
		},
		{
			ID:             RuleNetworkPolicyViolation,
			Name:           "Network policy violation",
			TriggerActions: []string{audit.ActionNetworkPolicyViolation},
			Severity:       audit.SeverityWarning,
			Mode:           alert.ModeImmediate,
		},
	}
}

// Evaluator is the stateless rule engine. All rate state lives in the
// counter so any worker can evaluate any event.
type Evaluator struct {
	rules   []alert.Rule
	byID    map[string]alert.Rule
	counter ratecounter.Counter
}

// NewEvaluator builds an evaluator over the given rules.
func NewEvaluator(rules []alert.Rule, counter ratecounter.Counter) *Evaluator {
	byID := make(map[string]alert.Rule, len(rules))
	for _, r := range rules {
		byID[r.ID] = r
	}
	return &Evaluator{rules: rules, byID: byID, counter: counter}
}

// Rule looks up a rule by id.
func (e *Evaluator) Rule(id string) (alert.Rule, bool) {
	r, ok := e.byID[id]
	return r, ok
}

// Evaluate applies every triggered rule to the event. Immediate rules always
// match; rate rules increment their window counter and match once the count
// reaches the threshold. The counter keeps incrementing past the threshold;
// suppression, not the counter, prevents alert spam.
func (e *Evaluator) Evaluate(ctx context.Context, event audit.Event) ([]alert.Condition, error) {
	var conditions []alert.Condition
	for _, rule := range e.rules {
		if !rule.Triggers(event.Action) {
			continue
		}

		switch rule.Mode {
		case alert.ModeImmediate:
			conditions = append(conditions, alert.Condition{
				RuleID:    rule.ID,
				Matched:   true,
				EntityKey: event.ActorID,
			})
		case alert.ModeRateThreshold:
			key := entityKey(rule, event)
			count, err := e.counter.Increment(ctx, rule.ID, key, rule.Window)
			if err != nil {
				return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
			}
			conditions = append(conditions, alert.Condition{
				RuleID:       rule.ID,
				Matched:      count >= rule.Threshold,
				EntityKey:    key,
				CurrentCount: count,
				Threshold:    rule.Threshold,
			})
		}
	}
	return conditions, nil
}

// entityKey picks the entity a rate rule counts against: failed logins count
// per affected user, agent errors per affected agent, everything else per
// acting identity.
func entityKey(rule alert.Rule, event audit.Event) string {
	switch rule.ID {
	case RuleFailedLoginSpike:
		if event.UserID != "" {
			return event.UserID
		}
	case RuleAgentErrorSpike:
		if event.AgentID != "" {
			return event.AgentID
		}
	}
	return event.ActorID
}
