package validator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
)

var (
	ErrInvalidRule      = errors.New("invalid rule")
	ErrInvalidCondition = errors.New("invalid condition")
	ErrInvalidThreshold = errors.New("invalid threshold table")
	ErrInvalidSnapshot  = errors.New("invalid snapshot")
)

// RuleValidator rejects malformed policy at authoring time. Misconfiguration
// is a security-relevant defect, so everything that can be caught here fails
// at addRule/updateRule/import instead of evaluation.
type RuleValidator struct{}

func NewRuleValidator() *RuleValidator {
	return &RuleValidator{}
}

func (v *RuleValidator) ValidateRule(rule *domain.PolicyRule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule is nil", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("%w: id must not be blank", ErrInvalidRule)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: rule %s: name must not be blank", ErrInvalidRule, rule.ID)
	}
	if len(rule.Actions) == 0 {
		return fmt.Errorf("%w: rule %s: at least one action is required", ErrInvalidRule, rule.ID)
	}
	for i, condition := range rule.Conditions {
		if err := v.ValidateCondition(condition); err != nil {
			return fmt.Errorf("%w: rule %s: condition %d: %v", ErrInvalidRule, rule.ID, i, err)
		}
	}
	for i, action := range rule.Actions {
		if err := v.validateAction(action); err != nil {
			return fmt.Errorf("%w: rule %s: action %d: %v", ErrInvalidRule, rule.ID, i, err)
		}
	}
	return nil
}

// ValidateCondition enforces the operator/type matrix: greater_than and
// less_than only apply to the numeric context values (amount, time), contains
// only to string-valued ones. Anything that slips past this check still fails
// closed at evaluation, but it must never get that far.
func (v *RuleValidator) ValidateCondition(condition domain.Condition) error {
	allowed, known := operatorMatrix[condition.Type]
	if !known {
		return fmt.Errorf("%w: unknown condition type %q", ErrInvalidCondition, condition.Type)
	}
	if _, ok := allowed[condition.Operator]; !ok {
		return fmt.Errorf("%w: operator %q is not valid for %s conditions",
			ErrInvalidCondition, condition.Operator, condition.Type)
	}

	if condition.Type == domain.ConditionCustom && strings.TrimSpace(condition.Field) == "" {
		return fmt.Errorf("%w: custom conditions require a metadata field", ErrInvalidCondition)
	}

	switch condition.Operator {
	case domain.OperatorIn, domain.OperatorNotIn:
		if !isList(condition.Value) {
			return fmt.Errorf("%w: operator %q requires a list value", ErrInvalidCondition, condition.Operator)
		}
	case domain.OperatorGreaterThan, domain.OperatorGreaterThanOrEqual, domain.OperatorLessThan:
		if !isNumeric(condition.Value) {
			return fmt.Errorf("%w: operator %q requires a numeric value", ErrInvalidCondition, condition.Operator)
		}
	case domain.OperatorContains:
		if _, ok := condition.Value.(string); !ok {
			return fmt.Errorf("%w: operator %q requires a string value", ErrInvalidCondition, condition.Operator)
		}
	}

	if condition.Type == domain.ConditionTime {
		if err := validateHourValue(condition.Value); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCondition, err)
		}
	}
	return nil
}

func (v *RuleValidator) validateAction(action domain.Action) error {
	switch a := action.(type) {
	case domain.RequireApprovers:
		if len(a.Approvers) == 0 {
			return errors.New("require_approvers needs a non-empty approver list")
		}
	case domain.AddApprovers:
		if len(a.Approvers) == 0 {
			return errors.New("add_approvers needs a non-empty approver list")
		}
	case domain.SetPriority:
		if strings.TrimSpace(a.Priority) == "" {
			return errors.New("set_priority needs a non-blank priority")
		}
	case domain.SendNotification:
		if strings.TrimSpace(a.Message) == "" {
			return errors.New("send_notification needs a non-blank message")
		}
	case domain.BlockTransaction:
	default:
		return fmt.Errorf("unknown action kind %q", action.Kind())
	}
	return nil
}

// ValidateThresholdTable checks one currency's rows: ascending, contiguous,
// non-overlapping, starting at 0 and ending unbounded, so every non-negative
// amount maps to exactly one tier.
func (v *RuleValidator) ValidateThresholdTable(currency string, rows []domain.ApprovalPolicy) error {
	if len(rows) == 0 {
		return fmt.Errorf("%w: %s: no rows", ErrInvalidThreshold, currency)
	}

	expectedMin := decimal.Zero
	for i, row := range rows {
		if err := v.validateThresholdRow(row); err != nil {
			return fmt.Errorf("%w: %s row %d: %v", ErrInvalidThreshold, currency, i, err)
		}
		if row.Currency != currency {
			return fmt.Errorf("%w: %s row %d: currency mismatch %q", ErrInvalidThreshold, currency, i, row.Currency)
		}
		if !row.MinAmount.Equal(expectedMin) {
			return fmt.Errorf("%w: %s row %d: range must start at %s, got %s",
				ErrInvalidThreshold, currency, i, expectedMin, row.MinAmount)
		}
		if row.Unbounded {
			if i != len(rows)-1 {
				return fmt.Errorf("%w: %s row %d: unbounded row must be last", ErrInvalidThreshold, currency, i)
			}
			return nil
		}
		expectedMin = row.MaxAmount
	}
	return fmt.Errorf("%w: %s: last row must be unbounded to cover [0, ∞)", ErrInvalidThreshold, currency)
}

func (v *RuleValidator) validateThresholdRow(row domain.ApprovalPolicy) error {
	if strings.TrimSpace(row.PolicyID) == "" {
		return errors.New("policy id must not be blank")
	}
	if strings.TrimSpace(row.Name) == "" {
		return errors.New("name must not be blank")
	}
	if row.MinAmount.IsNegative() {
		return errors.New("min amount must not be negative")
	}
	if !row.Unbounded && !row.MinAmount.LessThan(row.MaxAmount) {
		return fmt.Errorf("min amount %s must be less than max amount %s", row.MinAmount, row.MaxAmount)
	}
	if len(row.RequiredApprovers) == 0 {
		return errors.New("required approvers must not be empty")
	}
	if !row.RiskLevel.Valid() {
		return fmt.Errorf("risk level %q must be one of low, medium, high, critical", row.RiskLevel)
	}
	return nil
}

// ValidateSnapshot validates an import wholesale: one bad rule rejects the
// entire snapshot so a partial rule set can never go live.
func (v *RuleValidator) ValidateSnapshot(snapshot *domain.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidSnapshot)
	}
	if !strings.HasPrefix(snapshot.Version, "policy-rules/") {
		return fmt.Errorf("%w: unknown version %q", ErrInvalidSnapshot, snapshot.Version)
	}
	seen := make(map[string]struct{}, len(snapshot.Rules))
	for _, rule := range snapshot.Rules {
		if err := v.ValidateRule(rule); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
		}
		if _, dup := seen[rule.ID]; dup {
			return fmt.Errorf("%w: duplicate rule id %s", ErrInvalidSnapshot, rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

var operatorMatrix = map[domain.ConditionType]map[domain.Operator]struct{}{
	domain.ConditionAmount: {
		domain.OperatorEquals:             {},
		domain.OperatorGreaterThan:        {},
		domain.OperatorGreaterThanOrEqual: {},
		domain.OperatorLessThan:           {},
		domain.OperatorIn:                 {},
		domain.OperatorNotIn:              {},
	},
	domain.ConditionCurrency: {
		domain.OperatorEquals:   {},
		domain.OperatorIn:       {},
		domain.OperatorNotIn:    {},
		domain.OperatorContains: {},
	},
	domain.ConditionTransactionType: {
		domain.OperatorEquals:   {},
		domain.OperatorIn:       {},
		domain.OperatorNotIn:    {},
		domain.OperatorContains: {},
	},
	domain.ConditionTime: {
		domain.OperatorEquals:             {},
		domain.OperatorGreaterThan:        {},
		domain.OperatorGreaterThanOrEqual: {},
		domain.OperatorLessThan:           {},
		domain.OperatorIn:                 {},
		domain.OperatorNotIn:              {},
	},
	domain.ConditionUserRole: {
		domain.OperatorEquals:   {},
		domain.OperatorIn:       {},
		domain.OperatorNotIn:    {},
		domain.OperatorContains: {},
	},
	domain.ConditionCustom: {
		domain.OperatorEquals:   {},
		domain.OperatorIn:       {},
		domain.OperatorNotIn:    {},
		domain.OperatorContains: {},
	},
}

func isNumeric(value interface{}) bool {
	switch value.(type) {
	case int, int32, int64, float32, float64, decimal.Decimal:
		return true
	}
	return false
}

func isList(value interface{}) bool {
	switch value.(type) {
	case []interface{}, []string, []float64, []int:
		return true
	}
	return false
}

func validateHourValue(value interface{}) error {
	check := func(v interface{}) error {
		hour, ok := toFloat(v)
		if !ok {
			return fmt.Errorf("time conditions compare hour of day, got %T", v)
		}
		if hour < 0 || hour > 23 {
			return fmt.Errorf("hour %v out of range [0, 23]", v)
		}
		return nil
	}

	switch v := value.(type) {
	case []interface{}:
		for _, item := range v {
			if err := check(item); err != nil {
				return err
			}
		}
		return nil
	case []float64:
		for _, item := range v {
			if err := check(item); err != nil {
				return err
			}
		}
		return nil
	case []int:
		for _, item := range v {
			if err := check(item); err != nil {
				return err
			}
		}
		return nil
	default:
		return check(value)
	}
}

func toFloat(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case decimal.Decimal:
		f, _ := v.Float64()
		return f, true
	}
	return 0, false
}
