package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MutationOp string

const (
	MutationCreate MutationOp = "create"
	MutationUpdate MutationOp = "update"
	MutationDelete MutationOp = "delete"
	MutationToggle MutationOp = "toggle"
	MutationImport MutationOp = "import"
)

// DecisionRecord is the audit-facing summary of one evaluation.
type DecisionRecord struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	Currency          string          `json:"currency"`
	TransactionType   string          `json:"transaction_type,omitempty"`
	Initiator         string          `json:"initiator,omitempty"`
	RequiredApprovers []string        `json:"required_approvers"`
	AppliedRuleIDs    []string        `json:"applied_rule_ids"`
	Priority          string          `json:"priority,omitempty"`
	Blocked           bool            `json:"blocked"`
	EvaluatedAt       time.Time       `json:"evaluated_at"`
}

// MutationRecord captures one rule mutation with before/after values for the
// external change-history collaborator.
type MutationRecord struct {
	ID     string      `json:"id"`
	Op     MutationOp  `json:"op"`
	RuleID string      `json:"rule_id"`
	Actor  string      `json:"actor"`
	Before *PolicyRule `json:"before,omitempty"`
	After  *PolicyRule `json:"after,omitempty"`
	At     time.Time   `json:"at"`
}
