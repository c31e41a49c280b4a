// Package alert holds the security alert model, rule types, and the
// suppression-gated alert service.
package alert

import (
	"time"

	"github.com/google/uuid"

	"watchtower/internal/audit"
)

// Mode selects how a rule decides to fire.
type Mode string

const (
	// ModeImmediate fires on every matching event, no rate state involved.
	ModeImmediate Mode = "immediate"
	// ModeRateThreshold fires once a windowed counter reaches the threshold.
	ModeRateThreshold Mode = "rate_threshold"
)

// Rule is a static alert rule. Rules are configuration, not data: the
// catalog lives in the rules package and is never persisted.
type Rule struct {
	ID             string
	Name           string
	TriggerActions []string
	Severity       audit.Severity
	Mode           Mode
	Threshold      int64         // rate_threshold only
	Window         time.Duration // rate_threshold only
}

// Triggers reports whether the rule reacts to the given action.
func (r Rule) Triggers(action string) bool {
	for _, a := range r.TriggerActions {
		if a == action {
			return true
		}
	}
	return false
}

// Condition is the outcome of evaluating one rule against one event.
type Condition struct {
	RuleID       string
	Matched      bool
	EntityKey    string
	CurrentCount int64 // rate_threshold only
	Threshold    int64 // rate_threshold only
}

// Alert is a persisted security alert. Alerts are mutable only for
// resolution; a second resolve overwrites the resolution metadata.
type Alert struct {
	ID         uuid.UUID      `json:"id"`
	Severity   audit.Severity `json:"severity"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	TenantID   string         `json:"tenantId,omitempty"`
	Resolved   bool           `json:"resolved"`
	ResolvedAt *time.Time     `json:"resolvedAt,omitempty"`
	ResolvedBy string         `json:"resolvedBy,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
}
