package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
	"approval_engine/internal/repository"
	"approval_engine/pkg/validator"
)

var (
	ErrNotFound      = errors.New("rule not found")
	ErrDuplicateRule = errors.New("duplicate rule id")
	ErrCorruptedSet  = errors.New("rule set unavailable")
)

// RuleEngine evaluates evaluation contexts against a single sorted rule set.
// Readers load an immutable snapshot and never block; mutations are
// serialized behind mu, build a new sorted list, and swap it in atomically.
type RuleEngine struct {
	mu        sync.Mutex
	set       atomic.Pointer[ruleSet]
	directory repository.ApproverDirectory
	audit     repository.AuditLog
	validator *validator.RuleValidator
	logger    *slog.Logger
}

type ruleSet struct {
	rules []*domain.PolicyRule
}

func NewRuleEngine(
	thresholds map[string][]domain.ApprovalPolicy,
	typePolicies []domain.TransactionTypePolicy,
	directory repository.ApproverDirectory,
	audit repository.AuditLog,
	logger *slog.Logger,
) (*RuleEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	e := &RuleEngine{
		directory: directory,
		audit:     audit,
		validator: validator.NewRuleValidator(),
		logger:    logger,
	}

	for currency, rows := range thresholds {
		if err := e.validator.ValidateThresholdTable(currency, rows); err != nil {
			return nil, err
		}
	}

	rules := compileThresholdRules(thresholds)
	rules = append(rules, compileTypeRules(typePolicies)...)
	sortRules(rules)
	e.set.Store(&ruleSet{rules: rules})

	e.logger.Info("Rule engine initialized",
		slog.Int("compiled_rules", len(rules)),
		slog.Int("currencies", len(thresholds)))

	return e, nil
}

// Evaluate runs every enabled rule against the context in ascending priority
// order. require_approvers replaces the approver set (most specific wins),
// add_approvers unions, block_transaction is sticky. AppliedRules lists every
// match, including rules whose effect a later rule overwrote.
func (e *RuleEngine) Evaluate(ctx context.Context, ec *domain.EvaluationContext) (*domain.PolicyDecision, error) {
	set := e.set.Load()
	if set == nil {
		return nil, ErrCorruptedSet
	}

	decision := &domain.PolicyDecision{
		RequiredApprovers: []string{},
	}
	acc := &approverAccumulator{}

	for _, rule := range set.rules {
		if !rule.Enabled {
			continue
		}
		if !e.ruleMatches(ctx, rule, ec) {
			continue
		}

		decision.AppliedRules = append(decision.AppliedRules, rule.Clone())
		for _, action := range rule.Actions {
			applyAction(decision, acc, action)
		}

		e.logger.DebugContext(ctx, "Rule matched",
			slog.String("rule_id", rule.ID),
			slog.String("rule_name", rule.Name),
			slog.Int("priority", rule.Priority))
	}

	decision.RequiredApprovers = acc.merged()
	return decision, nil
}

// approverAccumulator keeps the replaceable base set apart from accumulated
// additions: a later require_approvers overwrites the base, while every
// add_approvers contribution survives into the final union.
type approverAccumulator struct {
	base   []string
	extras []string
}

func (acc *approverAccumulator) merged() []string {
	merged := dedupe(acc.base)
	for _, approver := range acc.extras {
		if !slices.Contains(merged, approver) {
			merged = append(merged, approver)
		}
	}
	return merged
}

func applyAction(decision *domain.PolicyDecision, acc *approverAccumulator, action domain.Action) {
	switch a := action.(type) {
	case domain.RequireApprovers:
		acc.base = dedupe(a.Approvers)
	case domain.AddApprovers:
		for _, approver := range a.Approvers {
			if !slices.Contains(acc.extras, approver) {
				acc.extras = append(acc.extras, approver)
			}
		}
	case domain.SetPriority:
		decision.Priority = a.Priority
	case domain.SendNotification:
		decision.Notifications = append(decision.Notifications, a.Message)
	case domain.BlockTransaction:
		decision.Blocked = true
	}
}

func (e *RuleEngine) ruleMatches(ctx context.Context, rule *domain.PolicyRule, ec *domain.EvaluationContext) bool {
	for _, condition := range rule.Conditions {
		if !e.evaluateCondition(ctx, condition, ec) {
			return false
		}
	}
	return true
}

// evaluateCondition is fail-closed: an operator/type mismatch or a missing
// context value makes the condition false instead of aborting the whole
// evaluation, so one malformed rule cannot take down the rest.
func (e *RuleEngine) evaluateCondition(ctx context.Context, condition domain.Condition, ec *domain.EvaluationContext) bool {
	switch condition.Type {
	case domain.ConditionAmount:
		return evaluateAmount(condition, ec.Amount)
	case domain.ConditionCurrency:
		return evaluateString(condition, ec.Currency)
	case domain.ConditionTransactionType:
		if ec.TransactionType == "" {
			return false
		}
		return evaluateString(condition, ec.TransactionType)
	case domain.ConditionTime:
		return evaluateHour(condition, evaluationTime(ec))
	case domain.ConditionUserRole:
		role, ok := e.resolveRole(ctx, ec.Initiator)
		if !ok {
			return false
		}
		return evaluateString(condition, role)
	case domain.ConditionCustom:
		value, exists := ec.Metadata[condition.Field]
		if !exists {
			return false
		}
		return evaluateMetadata(condition, value)
	default:
		e.logger.WarnContext(ctx, "Unknown condition type",
			slog.String("type", string(condition.Type)))
		return false
	}
}

func (e *RuleEngine) resolveRole(ctx context.Context, initiator string) (string, bool) {
	if e.directory == nil || initiator == "" {
		return "", false
	}
	approver, err := e.directory.GetByID(ctx, initiator)
	if err != nil || approver.Status != domain.ApproverActive {
		return "", false
	}
	return approver.Role, true
}

func evaluateAmount(condition domain.Condition, amount decimal.Decimal) bool {
	switch condition.Operator {
	case domain.OperatorEquals:
		target, ok := toDecimal(condition.Value)
		return ok && amount.Equal(target)
	case domain.OperatorGreaterThan:
		target, ok := toDecimal(condition.Value)
		return ok && amount.GreaterThan(target)
	case domain.OperatorGreaterThanOrEqual:
		target, ok := toDecimal(condition.Value)
		return ok && amount.GreaterThanOrEqual(target)
	case domain.OperatorLessThan:
		target, ok := toDecimal(condition.Value)
		return ok && amount.LessThan(target)
	case domain.OperatorIn:
		return decimalListContains(condition.Value, amount)
	case domain.OperatorNotIn:
		targets, ok := toDecimalList(condition.Value)
		return ok && !slices.ContainsFunc(targets, amount.Equal)
	default:
		return false
	}
}

func evaluateString(condition domain.Condition, value string) bool {
	switch condition.Operator {
	case domain.OperatorEquals:
		target, ok := condition.Value.(string)
		return ok && value == target
	case domain.OperatorIn:
		targets, ok := toStringList(condition.Value)
		return ok && slices.Contains(targets, value)
	case domain.OperatorNotIn:
		targets, ok := toStringList(condition.Value)
		return ok && !slices.Contains(targets, value)
	case domain.OperatorContains:
		target, ok := condition.Value.(string)
		return ok && strings.Contains(value, target)
	default:
		return false
	}
}

func evaluateHour(condition domain.Condition, ts time.Time) bool {
	hour := decimal.NewFromInt(int64(ts.Hour()))
	switch condition.Operator {
	case domain.OperatorEquals:
		target, ok := toDecimal(condition.Value)
		return ok && hour.Equal(target)
	case domain.OperatorGreaterThan:
		target, ok := toDecimal(condition.Value)
		return ok && hour.GreaterThan(target)
	case domain.OperatorGreaterThanOrEqual:
		target, ok := toDecimal(condition.Value)
		return ok && hour.GreaterThanOrEqual(target)
	case domain.OperatorLessThan:
		target, ok := toDecimal(condition.Value)
		return ok && hour.LessThan(target)
	case domain.OperatorIn:
		return decimalListContains(condition.Value, hour)
	case domain.OperatorNotIn:
		targets, ok := toDecimalList(condition.Value)
		return ok && !slices.ContainsFunc(targets, hour.Equal)
	default:
		return false
	}
}

func evaluateMetadata(condition domain.Condition, value interface{}) bool {
	if s, ok := value.(string); ok {
		return evaluateString(condition, s)
	}
	if n, ok := toDecimal(value); ok {
		switch condition.Operator {
		case domain.OperatorEquals:
			target, ok := toDecimal(condition.Value)
			return ok && n.Equal(target)
		case domain.OperatorIn:
			return decimalListContains(condition.Value, n)
		case domain.OperatorNotIn:
			targets, ok := toDecimalList(condition.Value)
			return ok && !slices.ContainsFunc(targets, n.Equal)
		}
		return false
	}
	if b, ok := value.(bool); ok && condition.Operator == domain.OperatorEquals {
		target, ok := condition.Value.(bool)
		return ok && b == target
	}
	return false
}

func evaluationTime(ec *domain.EvaluationContext) time.Time {
	if ec.Timestamp.IsZero() {
		return time.Now()
	}
	return ec.Timestamp
}

func dedupe(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(result, v) {
			result = append(result, v)
		}
	}
	return result
}

func toDecimal(value interface{}) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case float64:
		return decimal.NewFromFloat(v), true
	case float32:
		return decimal.NewFromFloat32(v), true
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	}
	return decimal.Zero, false
}

func toDecimalList(value interface{}) ([]decimal.Decimal, bool) {
	switch v := value.(type) {
	case []interface{}:
		result := make([]decimal.Decimal, 0, len(v))
		for _, item := range v {
			d, ok := toDecimal(item)
			if !ok {
				return nil, false
			}
			result = append(result, d)
		}
		return result, true
	case []float64:
		result := make([]decimal.Decimal, 0, len(v))
		for _, item := range v {
			result = append(result, decimal.NewFromFloat(item))
		}
		return result, true
	case []int:
		result := make([]decimal.Decimal, 0, len(v))
		for _, item := range v {
			result = append(result, decimal.NewFromInt(int64(item)))
		}
		return result, true
	}
	return nil, false
}

func decimalListContains(value interface{}, target decimal.Decimal) bool {
	targets, ok := toDecimalList(value)
	return ok && slices.ContainsFunc(targets, target.Equal)
}

func toStringList(value interface{}) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []interface{}:
		result := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			result = append(result, s)
		}
		return result, true
	}
	return nil, false
}

func sortRules(rules []*domain.PolicyRule) {
	slices.SortStableFunc(rules, func(a, b *domain.PolicyRule) int {
		if a.Priority != b.Priority {
			return a.Priority - b.Priority
		}
		return strings.Compare(a.ID, b.ID)
	})
}

func ruleIndex(rules []*domain.PolicyRule, id string) int {
	return slices.IndexFunc(rules, func(r *domain.PolicyRule) bool {
		return r.ID == id
	})
}

// snapshotClone copies the rule list so writers never touch a set readers
// may still hold.
func snapshotClone(set *ruleSet) []*domain.PolicyRule {
	rules := make([]*domain.PolicyRule, len(set.rules))
	for i, rule := range set.rules {
		rules[i] = rule.Clone()
	}
	return rules
}
