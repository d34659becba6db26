package validator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
)

func validRule() *domain.PolicyRule {
	return &domain.PolicyRule{
		ID:       "r-1",
		Name:     "large withdrawals",
		Enabled:  true,
		Priority: 10,
		Conditions: []domain.Condition{
			{Type: domain.ConditionAmount, Operator: domain.OperatorGreaterThan, Value: 10000},
		},
		Actions: domain.ActionList{
			domain.RequireApprovers{Approvers: []string{"박CFO"}},
		},
	}
}

func TestRuleValidator_ValidateRule_Valid(t *testing.T) {
	v := NewRuleValidator()

	if err := v.ValidateRule(validRule()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRuleValidator_ValidateRule_Invalid(t *testing.T) {
	v := NewRuleValidator()

	cases := []struct {
		name   string
		mutate func(*domain.PolicyRule)
	}{
		{"blank id", func(r *domain.PolicyRule) { r.ID = "  " }},
		{"blank name", func(r *domain.PolicyRule) { r.Name = "" }},
		{"no actions", func(r *domain.PolicyRule) { r.Actions = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rule := validRule()
			tc.mutate(rule)
			if err := v.ValidateRule(rule); !errors.Is(err, ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestRuleValidator_ValidateCondition_OperatorMatrix(t *testing.T) {
	v := NewRuleValidator()

	cases := []struct {
		name      string
		condition domain.Condition
		wantErr   bool
	}{
		{"amount greater_than", domain.Condition{
			Type: domain.ConditionAmount, Operator: domain.OperatorGreaterThan, Value: 100}, false},
		{"amount greater_than_or_equal", domain.Condition{
			Type: domain.ConditionAmount, Operator: domain.OperatorGreaterThanOrEqual, Value: 100}, false},
		{"amount contains rejected", domain.Condition{
			Type: domain.ConditionAmount, Operator: domain.OperatorContains, Value: 100}, true},
		{"amount non-numeric value", domain.Condition{
			Type: domain.ConditionAmount, Operator: domain.OperatorGreaterThan, Value: "much"}, true},
		{"currency in list", domain.Condition{
			Type: domain.ConditionCurrency, Operator: domain.OperatorIn, Value: []interface{}{"USD", "BTC"}}, false},
		{"currency greater_than rejected", domain.Condition{
			Type: domain.ConditionCurrency, Operator: domain.OperatorGreaterThan, Value: "USD"}, true},
		{"time hour in range", domain.Condition{
			Type: domain.ConditionTime, Operator: domain.OperatorLessThan, Value: 6}, false},
		{"time hour out of range", domain.Condition{
			Type: domain.ConditionTime, Operator: domain.OperatorLessThan, Value: 24}, true},
		{"custom without field", domain.Condition{
			Type: domain.ConditionCustom, Operator: domain.OperatorEquals, Value: "x"}, true},
		{"custom with field", domain.Condition{
			Type: domain.ConditionCustom, Operator: domain.OperatorEquals, Field: "vip", Value: true}, false},
		{"unknown type", domain.Condition{
			Type: "weather", Operator: domain.OperatorEquals, Value: "sunny"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := v.ValidateCondition(tc.condition)
			if tc.wantErr && !errors.Is(err, ErrInvalidCondition) {
				t.Errorf("expected ErrInvalidCondition, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestRuleValidator_ValidateRule_EmptyApproverAction(t *testing.T) {
	v := NewRuleValidator()

	rule := validRule()
	rule.Actions = domain.ActionList{domain.RequireApprovers{}}

	if err := v.ValidateRule(rule); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for empty approver list, got %v", err)
	}
}

func validTable() []domain.ApprovalPolicy {
	return []domain.ApprovalPolicy{
		{PolicyID: "t-low", Name: "low", Currency: "USD", MinAmount: decimal.Zero,
			MaxAmount: decimal.NewFromInt(10000),
			RequiredApprovers: []string{"박CFO"}, RiskLevel: domain.RiskLow},
		{PolicyID: "t-high", Name: "high", Currency: "USD", MinAmount: decimal.NewFromInt(10000),
			Unbounded:         true,
			RequiredApprovers: []string{"박CFO", "최대표"}, RiskLevel: domain.RiskHigh},
	}
}

func TestRuleValidator_ValidateThresholdTable_Valid(t *testing.T) {
	v := NewRuleValidator()

	if err := v.ValidateThresholdTable("USD", validTable()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRuleValidator_ValidateThresholdTable_Invalid(t *testing.T) {
	v := NewRuleValidator()

	cases := []struct {
		name   string
		mutate func([]domain.ApprovalPolicy) []domain.ApprovalPolicy
	}{
		{"empty table", func([]domain.ApprovalPolicy) []domain.ApprovalPolicy {
			return nil
		}},
		{"does not start at zero", func(rows []domain.ApprovalPolicy) []domain.ApprovalPolicy {
			rows[0].MinAmount = decimal.NewFromInt(1)
			return rows
		}},
		{"gap between rows", func(rows []domain.ApprovalPolicy) []domain.ApprovalPolicy {
			rows[1].MinAmount = decimal.NewFromInt(20000)
			return rows
		}},
		{"last row bounded", func(rows []domain.ApprovalPolicy) []domain.ApprovalPolicy {
			rows[1].Unbounded = false
			rows[1].MaxAmount = decimal.NewFromInt(50000)
			return rows
		}},
		{"min not below max", func(rows []domain.ApprovalPolicy) []domain.ApprovalPolicy {
			rows[0].MaxAmount = decimal.Zero
			return rows
		}},
		{"unknown risk level", func(rows []domain.ApprovalPolicy) []domain.ApprovalPolicy {
			rows[0].RiskLevel = "extreme"
			return rows
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rows := tc.mutate(validTable())
			if err := v.ValidateThresholdTable("USD", rows); !errors.Is(err, ErrInvalidThreshold) {
				t.Errorf("expected ErrInvalidThreshold, got %v", err)
			}
		})
	}
}

func TestRuleValidator_ValidateSnapshot(t *testing.T) {
	v := NewRuleValidator()

	snapshot := &domain.Snapshot{
		Version: domain.SnapshotVersion,
		Rules:   []*domain.PolicyRule{validRule()},
	}
	if err := v.ValidateSnapshot(snapshot); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	wrongVersion := &domain.Snapshot{Version: "other-format/1", Rules: []*domain.PolicyRule{validRule()}}
	if err := v.ValidateSnapshot(wrongVersion); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot for foreign version, got %v", err)
	}

	dup := validRule()
	duplicated := &domain.Snapshot{
		Version: domain.SnapshotVersion,
		Rules:   []*domain.PolicyRule{validRule(), dup},
	}
	if err := v.ValidateSnapshot(duplicated); !errors.Is(err, ErrInvalidSnapshot) {
		t.Errorf("expected ErrInvalidSnapshot for duplicate ids, got %v", err)
	}
}
