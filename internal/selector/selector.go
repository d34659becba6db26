package selector

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"approval_engine/internal/domain"
	"approval_engine/internal/repository"
	"approval_engine/pkg/currency"
)

// Evaluator is the slice of the rule engine the selector needs.
type Evaluator interface {
	Evaluate(ctx context.Context, ec *domain.EvaluationContext) (*domain.PolicyDecision, error)
}

// Selection is the rich result request-creation flows consume. A gap in the
// policy configuration surfaces as a warning with an empty approver list;
// the selector never fabricates a default roster, so callers are forced to
// handle the gap explicitly.
type Selection struct {
	Policy              *domain.ApprovalPolicy `json:"policy,omitempty"`
	RiskLevel           domain.RiskLevel       `json:"risk_level,omitempty"`
	SelectedApprovers   []string               `json:"selected_approvers"`
	MissingRequirements []string               `json:"missing_requirements,omitempty"`
	Warnings            []string               `json:"warnings,omitempty"`
}

// Selector classifies a request amount into a risk tier and resolves the
// approvers the active rule set requires for it. Tiers are expressed in the
// reference currency and scanned in ascending order of MinAmount; the risk
// level is carried through for display only and never changes the selection.
type Selector struct {
	normalizer *currency.Normalizer
	tiers      []domain.ApprovalPolicy
	engine     Evaluator
	directory  repository.ApproverDirectory
	logger     *slog.Logger
}

func NewSelector(
	normalizer *currency.Normalizer,
	tiers []domain.ApprovalPolicy,
	engine Evaluator,
	directory repository.ApproverDirectory,
	logger *slog.Logger,
) *Selector {
	if logger == nil {
		logger = slog.Default()
	}

	sorted := make([]domain.ApprovalPolicy, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MinAmount.LessThan(sorted[j].MinAmount)
	})

	return &Selector{
		normalizer: normalizer,
		tiers:      sorted,
		engine:     engine,
		directory:  directory,
		logger:     logger,
	}
}

func (s *Selector) SelectApprovers(ctx context.Context, amount decimal.Decimal, cur string) *Selection {
	selection := &Selection{
		SelectedApprovers: []string{},
	}

	if amount.IsNegative() {
		selection.Warnings = append(selection.Warnings,
			fmt.Sprintf("amount %s is negative; no approval policy applies", amount))
		return selection
	}

	normalized, err := s.normalizer.ToReference(amount, cur)
	if err != nil {
		selection.Warnings = append(selection.Warnings,
			fmt.Sprintf("currency %s is not supported; refusing to classify the amount", cur))
		return selection
	}

	tier := s.matchTier(normalized)
	if tier != nil {
		selection.Policy = tier
		selection.RiskLevel = tier.RiskLevel
	} else {
		selection.Warnings = append(selection.Warnings,
			fmt.Sprintf("no approval policy matches %s %s (%s %s normalized)",
				amount, cur, normalized, s.normalizer.Reference()))
	}

	decision, err := s.engine.Evaluate(ctx, domain.NewEvaluationContext(amount, cur))
	if err != nil {
		selection.Warnings = append(selection.Warnings,
			fmt.Sprintf("rule evaluation failed: %v", err))
		return selection
	}

	selection.SelectedApprovers = decision.RequiredApprovers
	if len(decision.RequiredApprovers) == 0 && tier != nil {
		// A tier exists but no enabled rule supplies approvers for it, e.g.
		// the compiled default was disabled. This must not pass silently.
		selection.Warnings = append(selection.Warnings,
			fmt.Sprintf("no active rule requires approvers for %s %s; check disabled rules", amount, cur))
	}

	selection.MissingRequirements = s.missingApprovers(ctx, selection.SelectedApprovers)

	s.logger.InfoContext(ctx, "Approvers selected",
		slog.String("amount", amount.String()),
		slog.String("currency", cur),
		slog.String("risk_level", string(selection.RiskLevel)),
		slog.Int("approvers", len(selection.SelectedApprovers)),
		slog.Int("warnings", len(selection.Warnings)))

	return selection
}

func (s *Selector) matchTier(normalized decimal.Decimal) *domain.ApprovalPolicy {
	for i := range s.tiers {
		if s.tiers[i].Contains(normalized) {
			tier := s.tiers[i]
			return &tier
		}
	}
	return nil
}

// missingApprovers reports configured approvers the active user directory
// cannot supply. This is distinct from "no policy matched": the policy is
// fine, the people are not available.
func (s *Selector) missingApprovers(ctx context.Context, approvers []string) []string {
	if s.directory == nil {
		return nil
	}

	var missing []string
	for _, id := range approvers {
		approver, err := s.directory.GetByID(ctx, id)
		if err != nil || approver.Status != domain.ApproverActive {
			missing = append(missing, id)
		}
	}
	return missing
}
