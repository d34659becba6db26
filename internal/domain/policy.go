package domain

import "github.com/shopspring/decimal"

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// ApprovalPolicy is one row of a threshold table: amounts in [MinAmount,
// MaxAmount) of Currency require RequiredApprovers. Unbounded marks the top
// tier; MaxAmount is ignored when it is set. Within one currency the rows
// must tile [0, ∞) with no gaps or overlaps.
type ApprovalPolicy struct {
	PolicyID          string          `json:"policy_id"`
	Name              string          `json:"name"`
	Currency          string          `json:"currency"`
	MinAmount         decimal.Decimal `json:"min_amount"`
	MaxAmount         decimal.Decimal `json:"max_amount"`
	Unbounded         bool            `json:"unbounded"`
	RequiredApprovers []string        `json:"required_approvers"`
	RiskLevel         RiskLevel       `json:"risk_level"`
	Description       string          `json:"description,omitempty"`
}

// Contains reports whether amount falls in [MinAmount, MaxAmount).
func (p *ApprovalPolicy) Contains(amount decimal.Decimal) bool {
	if amount.LessThan(p.MinAmount) {
		return false
	}
	if p.Unbounded {
		return true
	}
	return amount.LessThan(p.MaxAmount)
}

// TransactionTypePolicy appends approvers on top of whatever the amount
// tier already requires.
type TransactionTypePolicy struct {
	Type                string   `json:"type"`
	AdditionalApprovers []string `json:"additional_approvers"`
	Description         string   `json:"description,omitempty"`
}
