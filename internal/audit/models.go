// Package audit defines the audit event model and the read-side service for
// the append-only audit log.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// ActorType identifies who performed an action.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAgent  ActorType = "agent"
	ActorSystem ActorType = "system"
)

// Severity grades an event for querying and alert routing.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TargetType enumerates the entities actions can touch.
type TargetType string

const (
	TargetTenant  TargetType = "tenant"
	TargetUser    TargetType = "user"
	TargetAgent   TargetType = "agent"
	TargetSkill   TargetType = "skill"
	TargetSession TargetType = "session"
	TargetTool    TargetType = "tool"
	TargetNetwork TargetType = "network"
	TargetSystem  TargetType = "system"
)

// Actions emitted by collaborators. The security-relevant subset drives the
// alert rule catalog; the rest exist so query filters have stable values.
const (
	ActionAuthLoginFailed        = "auth_login_failed"
	ActionAuthLoginSucceeded     = "auth_login_succeeded"
	ActionCrossTenantAccess      = "cross_tenant_access"
	ActionToolPolicyViolated     = "tool_policy_violated"
	ActionNetworkPolicyViolation = "network_policy_violation"
	ActionAgentError             = "agent_error"
	ActionTenantCreated          = "tenant_created"
	ActionTenantUpdated          = "tenant_updated"
	ActionAgentCreated           = "agent_created"
	ActionAgentUpdated           = "agent_updated"
	ActionAgentDeleted           = "agent_deleted"
	ActionSkillInstalled         = "skill_installed"
	ActionSkillRemoved           = "skill_removed"
)

// Event is emitted from domain logic to capture a state-changing action.
// It is transient: the persister turns it into a Record exactly once.
type Event struct {
	ActorType  ActorType      `json:"actorType"`
	ActorID    string         `json:"actorId"`
	ActorName  string         `json:"actorName"`
	Action     string         `json:"action"`
	TargetType TargetType     `json:"targetType"`
	TargetID   string         `json:"targetId"`
	Details    map[string]any `json:"details,omitempty"`
	Severity   Severity       `json:"severity"`
	IPAddress  string         `json:"ipAddress,omitempty"`
	UserAgent  string         `json:"userAgent,omitempty"`
	TenantID   string         `json:"tenantId,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	AgentID    string         `json:"agentId,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Record is the persisted form of an Event. Records are append-only: no
// update or delete outside the retention purge path.
type Record struct {
	ID uuid.UUID `json:"id"`
	Event
}

// Filters narrow audit log queries and exports. Zero values mean "no filter".
type Filters struct {
	TenantID   string
	AgentID    string
	UserID     string
	Action     string
	TargetType TargetType
	Severity   Severity
	DateFrom   time.Time
	DateTo     time.Time
}

// Page is one page of query results with cursor metadata.
type Page struct {
	Data        []Record
	Count       int
	HasNextPage bool
	NextCursor  string
}
