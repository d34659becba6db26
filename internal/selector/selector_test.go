package selector

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"approval_engine/internal/config"
	"approval_engine/internal/domain"
	"approval_engine/internal/engine"
	"approval_engine/internal/repository/memory"
	"approval_engine/pkg/currency"
)

type selectorEnv struct {
	selector  *Selector
	engine    *engine.RuleEngine
	directory *memory.ApproverDirectory
}

func newSelectorEnv(t *testing.T) *selectorEnv {
	t.Helper()
	cfg := config.Default()

	rates, err := cfg.RateTable()
	if err != nil {
		t.Fatalf("default rate table: %v", err)
	}
	normalizer := currency.NewNormalizer(cfg.ReferenceCurrency, rates)

	thresholds, err := cfg.ThresholdTables()
	if err != nil {
		t.Fatalf("default threshold tables: %v", err)
	}
	directory := memory.NewApproverDirectory()
	for _, approver := range cfg.Roster() {
		if err := directory.Save(context.Background(), approver); err != nil {
			t.Fatalf("seed directory: %v", err)
		}
	}

	e, err := engine.NewRuleEngine(thresholds, cfg.TypePolicies(), directory, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tiers, err := cfg.Tiers()
	if err != nil {
		t.Fatalf("default tiers: %v", err)
	}

	return &selectorEnv{
		selector:  NewSelector(normalizer, tiers, e, directory, nil),
		engine:    e,
		directory: directory,
	}
}

func TestSelector_SelectApprovers_LowTier(t *testing.T) {
	env := newSelectorEnv(t)

	selection := env.selector.SelectApprovers(context.Background(), decimal.NewFromInt(5000), "USD")

	want := []string{"박CFO", "이CISO"}
	if !slices.Equal(selection.SelectedApprovers, want) {
		t.Errorf("expected %v, got %v", want, selection.SelectedApprovers)
	}
	if selection.RiskLevel != domain.RiskLow {
		t.Errorf("expected risk level low, got %q", selection.RiskLevel)
	}
	if selection.Policy == nil {
		t.Error("expected a matched tier policy")
	}
	if len(selection.Warnings) != 0 {
		t.Errorf("expected no warnings, got %v", selection.Warnings)
	}
	if len(selection.MissingRequirements) != 0 {
		t.Errorf("expected roster to cover all approvers, got missing %v", selection.MissingRequirements)
	}
}

func TestSelector_SelectApprovers_NegativeAmount(t *testing.T) {
	env := newSelectorEnv(t)

	selection := env.selector.SelectApprovers(context.Background(), decimal.NewFromInt(-100), "USD")

	if len(selection.SelectedApprovers) != 0 {
		t.Errorf("expected no approvers for a negative amount, got %v", selection.SelectedApprovers)
	}
	if len(selection.Warnings) != 1 {
		t.Fatalf("expected exactly one warning, got %v", selection.Warnings)
	}
	if !strings.Contains(selection.Warnings[0], "negative") {
		t.Errorf("warning must name the cause, got %q", selection.Warnings[0])
	}
}

func TestSelector_SelectApprovers_UnsupportedCurrency(t *testing.T) {
	env := newSelectorEnv(t)

	selection := env.selector.SelectApprovers(context.Background(), decimal.NewFromInt(100), "DOGE")

	if len(selection.SelectedApprovers) != 0 {
		t.Errorf("expected no approvers for an unsupported currency, got %v", selection.SelectedApprovers)
	}
	if len(selection.Warnings) != 1 || !strings.Contains(selection.Warnings[0], "DOGE") {
		t.Errorf("expected a warning naming the currency, got %v", selection.Warnings)
	}
}

func TestSelector_SelectApprovers_DisabledRuleWarns(t *testing.T) {
	env := newSelectorEnv(t)
	ctx := context.Background()

	if err := env.engine.ToggleRule(ctx, "default-USD-0", false, "tester"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	selection := env.selector.SelectApprovers(ctx, decimal.NewFromInt(5000), "USD")

	if len(selection.SelectedApprovers) != 0 {
		t.Errorf("expected no approvers with the tier rule disabled, got %v", selection.SelectedApprovers)
	}
	if selection.Policy == nil {
		t.Error("the tier classification must survive the rule being disabled")
	}
	found := false
	for _, w := range selection.Warnings {
		if strings.Contains(w, "no active rule") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a disabled-rule warning, got %v", selection.Warnings)
	}
}

func TestSelector_SelectApprovers_MissingApproverReported(t *testing.T) {
	env := newSelectorEnv(t)
	ctx := context.Background()

	if err := env.directory.Deactivate(ctx, "이CISO"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	selection := env.selector.SelectApprovers(ctx, decimal.NewFromInt(5000), "USD")

	// The policy still names the approver; the gap is a directory problem.
	if !slices.Contains(selection.SelectedApprovers, "이CISO") {
		t.Errorf("deactivation must not shrink the required set, got %v", selection.SelectedApprovers)
	}
	if !slices.Equal(selection.MissingRequirements, []string{"이CISO"}) {
		t.Errorf("expected 이CISO reported missing, got %v", selection.MissingRequirements)
	}
}

func TestSelector_SelectApprovers_TierBoundariesInReferenceCurrency(t *testing.T) {
	env := newSelectorEnv(t)
	ctx := context.Background()

	cases := []struct {
		amount   int64
		currency string
		want     domain.RiskLevel
	}{
		{5000, "USD", domain.RiskLow},
		{10000, "USD", domain.RiskMedium},
		{250000, "USD", domain.RiskHigh},
		{1500000, "USD", domain.RiskCritical},
		{13_499_999, "KRW", domain.RiskLow},
		{13_500_000, "KRW", domain.RiskMedium},
	}
	for _, tc := range cases {
		selection := env.selector.SelectApprovers(ctx, decimal.NewFromInt(tc.amount), tc.currency)
		if selection.RiskLevel != tc.want {
			t.Errorf("%d %s: expected risk %q, got %q", tc.amount, tc.currency, tc.want, selection.RiskLevel)
		}
	}
}
