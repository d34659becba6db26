package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
	"approval_engine/pkg/validator"
)

// Threshold rules occupy the 100 band and transaction-type rules the 200
// band, leaving room below and above for custom rules to slot around the
// compiled defaults.
const (
	thresholdPriorityBase = 100
	typePriorityBase      = 200
)

// compileThresholdRules turns each currency's tier table into ordinary
// policy rules: currency equals + amount in [min, max). Tiers tile the
// amount axis, so any non-negative amount matches exactly one threshold rule
// per currency.
func compileThresholdRules(thresholds map[string][]domain.ApprovalPolicy) []*domain.PolicyRule {
	currencies := make([]string, 0, len(thresholds))
	for currency := range thresholds {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)

	compiledAt := time.Now()
	var rules []*domain.PolicyRule

	for _, currency := range currencies {
		for i, row := range thresholds[currency] {
			conditions := []domain.Condition{
				{Type: domain.ConditionCurrency, Operator: domain.OperatorEquals, Value: currency},
			}
			if row.MinAmount.IsPositive() {
				minValue, _ := row.MinAmount.Float64()
				conditions = append(conditions, domain.Condition{
					Type:     domain.ConditionAmount,
					Operator: domain.OperatorGreaterThanOrEqual,
					Value:    minValue,
				})
			}
			if !row.Unbounded {
				maxValue, _ := row.MaxAmount.Float64()
				conditions = append(conditions, domain.Condition{
					Type:     domain.ConditionAmount,
					Operator: domain.OperatorLessThan,
					Value:    maxValue,
				})
			}

			rules = append(rules, &domain.PolicyRule{
				ID:          fmt.Sprintf("default-%s-%d", currency, i),
				Name:        row.Name,
				Description: row.Description,
				Enabled:     true,
				Priority:    thresholdPriorityBase + i,
				Conditions:  conditions,
				Actions: domain.ActionList{
					domain.RequireApprovers{Approvers: append([]string(nil), row.RequiredApprovers...)},
					domain.SetPriority{Priority: string(row.RiskLevel)},
				},
				CreatedAt:    compiledAt,
				LastModified: compiledAt,
				CreatedBy:    "system",
				ModifiedBy:   "system",
			})
		}
	}

	return rules
}

// compiledThresholdCurrency extracts the currency from a compiled threshold
// rule id (default-<currency>-<n>).
func compiledThresholdCurrency(id string) (string, bool) {
	rest, ok := strings.CutPrefix(id, "default-")
	if !ok {
		return "", false
	}
	idx := strings.LastIndexByte(rest, '-')
	if idx <= 0 {
		return "", false
	}
	return rest[:idx], true
}

// thresholdRowFromRule inverts the compilation above: it reconstructs the
// [min, max) row a compiled threshold rule encodes so an edited default
// family can be re-checked for range coverage.
func thresholdRowFromRule(rule *domain.PolicyRule, currency string) (domain.ApprovalPolicy, bool) {
	row := domain.ApprovalPolicy{
		PolicyID:  rule.ID,
		Name:      rule.Name,
		Currency:  currency,
		MinAmount: decimal.Zero,
		Unbounded: true,
	}

	for _, condition := range rule.Conditions {
		switch {
		case condition.Type == domain.ConditionCurrency && condition.Operator == domain.OperatorEquals:
			if value, ok := condition.Value.(string); !ok || value != currency {
				return domain.ApprovalPolicy{}, false
			}
		case condition.Type == domain.ConditionAmount && condition.Operator == domain.OperatorGreaterThanOrEqual:
			min, ok := toDecimal(condition.Value)
			if !ok {
				return domain.ApprovalPolicy{}, false
			}
			row.MinAmount = min
		case condition.Type == domain.ConditionAmount && condition.Operator == domain.OperatorLessThan:
			max, ok := toDecimal(condition.Value)
			if !ok {
				return domain.ApprovalPolicy{}, false
			}
			row.MaxAmount = max
			row.Unbounded = false
		default:
			return domain.ApprovalPolicy{}, false
		}
	}

	for _, action := range rule.Actions {
		switch a := action.(type) {
		case domain.RequireApprovers:
			row.RequiredApprovers = append([]string(nil), a.Approvers...)
		case domain.SetPriority:
			row.RiskLevel = domain.RiskLevel(a.Priority)
		}
	}

	return row, true
}

// validateThresholdFamily re-checks one currency's compiled default family
// after an edit: the surviving rules must still tile [0, ∞) with no gaps or
// overlaps. An edit that turns a default rule into something that no longer
// encodes an amount range fails the same check.
func validateThresholdFamily(v *validator.RuleValidator, rules []*domain.PolicyRule, currency string) error {
	prefix := fmt.Sprintf("default-%s-", currency)
	var rows []domain.ApprovalPolicy
	for _, rule := range rules {
		if !strings.HasPrefix(rule.ID, prefix) {
			continue
		}
		row, ok := thresholdRowFromRule(rule, currency)
		if !ok {
			return fmt.Errorf("%w: %s: rule %s no longer encodes an amount range",
				validator.ErrInvalidThreshold, currency, rule.ID)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].MinAmount.LessThan(rows[j].MinAmount)
	})
	return v.ValidateThresholdTable(currency, rows)
}

func compileTypeRules(policies []domain.TransactionTypePolicy) []*domain.PolicyRule {
	compiledAt := time.Now()
	rules := make([]*domain.PolicyRule, 0, len(policies))

	for _, policy := range policies {
		rules = append(rules, &domain.PolicyRule{
			ID:          fmt.Sprintf("transaction-type-%s", policy.Type),
			Name:        fmt.Sprintf("Additional approval for %s transactions", policy.Type),
			Description: policy.Description,
			Enabled:     true,
			Priority:    typePriorityBase,
			Conditions: []domain.Condition{
				{Type: domain.ConditionTransactionType, Operator: domain.OperatorEquals, Value: policy.Type},
			},
			Actions: domain.ActionList{
				domain.AddApprovers{Approvers: append([]string(nil), policy.AdditionalApprovers...)},
			},
			CreatedAt:    compiledAt,
			LastModified: compiledAt,
			CreatedBy:    "system",
			ModifiedBy:   "system",
		})
	}

	return rules
}
