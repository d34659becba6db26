package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"approval_engine/internal/domain"
)

// AddRule validates the rule, rejects duplicate ids, and swaps in a new
// sorted snapshot. Concurrent evaluators keep seeing the previous set until
// the swap.
func (e *RuleEngine) AddRule(ctx context.Context, rule *domain.PolicyRule, actor string) error {
	if err := e.validator.ValidateRule(rule); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.set.Load()
	if ruleIndex(set.rules, rule.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.ID)
	}

	now := time.Now()
	added := rule.Clone()
	if added.CreatedAt.IsZero() {
		added.CreatedAt = now
	}
	added.LastModified = now
	if added.CreatedBy == "" {
		added.CreatedBy = actor
	}
	added.ModifiedBy = actor

	rules := append(snapshotClone(set), added)
	sortRules(rules)
	e.set.Store(&ruleSet{rules: rules})

	e.recordMutation(ctx, domain.MutationCreate, added.ID, actor, nil, added)
	e.logger.InfoContext(ctx, "Rule added",
		slog.String("rule_id", added.ID),
		slog.String("actor", actor),
		slog.Int("priority", added.Priority))

	return nil
}

func (e *RuleEngine) UpdateRule(ctx context.Context, rule *domain.PolicyRule, actor string) error {
	if err := e.validator.ValidateRule(rule); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.set.Load()
	idx := ruleIndex(set.rules, rule.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, rule.ID)
	}

	before := set.rules[idx].Clone()
	updated := rule.Clone()
	updated.CreatedAt = before.CreatedAt
	updated.CreatedBy = before.CreatedBy
	updated.LastModified = time.Now()
	updated.ModifiedBy = actor

	rules := snapshotClone(set)
	rules[idx] = updated
	sortRules(rules)

	// Edits to the compiled default family must not open a gap in the
	// currency's amount coverage.
	if currency, compiled := compiledThresholdCurrency(updated.ID); compiled {
		if err := validateThresholdFamily(e.validator, rules, currency); err != nil {
			return err
		}
	}

	e.set.Store(&ruleSet{rules: rules})

	e.recordMutation(ctx, domain.MutationUpdate, updated.ID, actor, before, updated)
	e.logger.InfoContext(ctx, "Rule updated",
		slog.String("rule_id", updated.ID),
		slog.String("actor", actor))

	return nil
}

func (e *RuleEngine) RemoveRule(ctx context.Context, id, actor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.set.Load()
	idx := ruleIndex(set.rules, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	before := set.rules[idx].Clone()
	rules := snapshotClone(set)
	rules = append(rules[:idx], rules[idx+1:]...)
	sortRules(rules)
	e.set.Store(&ruleSet{rules: rules})

	e.recordMutation(ctx, domain.MutationDelete, id, actor, before, nil)
	e.logger.InfoContext(ctx, "Rule removed",
		slog.String("rule_id", id),
		slog.String("actor", actor))

	return nil
}

func (e *RuleEngine) ToggleRule(ctx context.Context, id string, enabled bool, actor string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	set := e.set.Load()
	idx := ruleIndex(set.rules, id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	before := set.rules[idx].Clone()
	rules := snapshotClone(set)
	rules[idx].Enabled = enabled
	rules[idx].LastModified = time.Now()
	rules[idx].ModifiedBy = actor
	sortRules(rules)
	e.set.Store(&ruleSet{rules: rules})

	e.recordMutation(ctx, domain.MutationToggle, id, actor, before, rules[idx].Clone())
	e.logger.InfoContext(ctx, "Rule toggled",
		slog.String("rule_id", id),
		slog.Bool("enabled", enabled),
		slog.String("actor", actor))

	return nil
}

// GetRules returns a defensive copy of the active set in priority order.
func (e *RuleEngine) GetRules() []*domain.PolicyRule {
	set := e.set.Load()
	rules := make([]*domain.PolicyRule, len(set.rules))
	for i, rule := range set.rules {
		rules[i] = rule.Clone()
	}
	return rules
}

func (e *RuleEngine) GetRule(id string) (*domain.PolicyRule, error) {
	set := e.set.Load()
	idx := ruleIndex(set.rules, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return set.rules[idx].Clone(), nil
}

// Export serializes the full rule set with a version tag. The returned
// snapshot is detached from the live set.
func (e *RuleEngine) Export() *domain.Snapshot {
	return &domain.Snapshot{
		Rules:      e.GetRules(),
		ExportedAt: time.Now(),
		Version:    domain.SnapshotVersion,
	}
}

// Import replaces the active rule set wholesale. The snapshot is validated
// first and one invalid rule rejects the whole import; either the entire set
// is replaced or nothing is.
func (e *RuleEngine) Import(ctx context.Context, snapshot *domain.Snapshot, actor string) error {
	if err := e.validator.ValidateSnapshot(snapshot); err != nil {
		return err
	}

	rules := make([]*domain.PolicyRule, len(snapshot.Rules))
	for i, rule := range snapshot.Rules {
		rules[i] = rule.Clone()
	}
	sortRules(rules)

	e.mu.Lock()
	e.set.Store(&ruleSet{rules: rules})
	e.mu.Unlock()

	e.recordMutation(ctx, domain.MutationImport, "", actor, nil, nil)
	e.logger.InfoContext(ctx, "Rule set imported",
		slog.Int("rules", len(rules)),
		slog.String("version", snapshot.Version),
		slog.String("actor", actor))

	return nil
}

// SimulatePolicy evaluates without side effects and narrates the outcome so
// admin tooling can preview a draft rule set before activation.
func (e *RuleEngine) SimulatePolicy(ctx context.Context, ec *domain.EvaluationContext) (*domain.PolicyDecision, []string, error) {
	decision, err := e.Evaluate(ctx, ec)
	if err != nil {
		return nil, nil, err
	}

	lines := []string{
		fmt.Sprintf("Evaluating %s %s (type=%s)", ec.Amount, ec.Currency, orNone(ec.TransactionType)),
	}
	if len(decision.AppliedRules) == 0 {
		lines = append(lines, "No rules matched")
	}
	for _, rule := range decision.AppliedRules {
		lines = append(lines, fmt.Sprintf("Matched rule %s (%s, priority %d)", rule.ID, rule.Name, rule.Priority))
	}
	if decision.Blocked {
		lines = append(lines, "Transaction is blocked")
	}
	if decision.Priority != "" {
		lines = append(lines, fmt.Sprintf("Priority: %s", decision.Priority))
	}
	lines = append(lines, fmt.Sprintf("Required approvers: %s", orNone(strings.Join(decision.RequiredApprovers, ", "))))

	return decision, lines, nil
}

func (e *RuleEngine) recordMutation(ctx context.Context, op domain.MutationOp, ruleID, actor string, before, after *domain.PolicyRule) {
	if e.audit == nil {
		return
	}
	record := &domain.MutationRecord{
		Op:     op,
		RuleID: ruleID,
		Actor:  actor,
		Before: before,
		After:  after,
		At:     time.Now(),
	}
	if err := e.audit.RecordMutation(ctx, record); err != nil {
		e.logger.ErrorContext(ctx, "Failed to record rule mutation",
			slog.String("op", string(op)),
			slog.String("rule_id", ruleID),
			slog.String("error", err.Error()))
	}
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
