package domain

import "time"

// PolicyDecision is the outcome of evaluating one context against the active
// rule set. RequiredApprovers preserves insertion order and holds no
// duplicates. AppliedRules lists every rule that matched, including rules
// whose effect a later rule overwrote: the audit trail reports matches, not
// surviving effects.
type PolicyDecision struct {
	RequiredApprovers []string      `json:"required_approvers"`
	AppliedRules      []*PolicyRule `json:"applied_rules"`
	Priority          string        `json:"priority,omitempty"`
	Notifications     []string      `json:"notifications,omitempty"`
	Blocked           bool          `json:"blocked"`
}

// SnapshotVersion identifies the persisted-state contract family. Imports
// accept any snapshot from the same family.
const SnapshotVersion = "policy-rules/1"

// Snapshot is the persisted form of the full rule set. The field shape is a
// compatibility contract: snapshots exported by one deployment must replay on
// another with the same version family.
type Snapshot struct {
	Rules      []*PolicyRule `json:"rules"`
	ExportedAt time.Time     `json:"exportedAt"`
	Version    string        `json:"version"`
}
