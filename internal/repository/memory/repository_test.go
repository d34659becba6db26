package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"approval_engine/internal/domain"
	"approval_engine/internal/repository"
)

func TestApproverDirectory_Save_And_GetByID(t *testing.T) {
	d := NewApproverDirectory()
	ctx := context.Background()

	approver := &domain.Approver{ID: "박CFO", Name: "박CFO", Role: "finance", Status: domain.ApproverActive}
	if err := d.Save(ctx, approver); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := d.GetByID(ctx, "박CFO")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Role != "finance" {
		t.Errorf("expected role finance, got %q", got.Role)
	}
	if got.AddedAt.IsZero() {
		t.Error("expected AddedAt to be stamped on save")
	}
}

func TestApproverDirectory_Save_Duplicate(t *testing.T) {
	d := NewApproverDirectory()
	ctx := context.Background()

	approver := &domain.Approver{ID: "박CFO", Role: "finance", Status: domain.ApproverActive}
	if err := d.Save(ctx, approver); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := d.Save(ctx, &domain.Approver{ID: "박CFO", Role: "security"})
	if !errors.Is(err, repository.ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestApproverDirectory_GetByID_NotFound(t *testing.T) {
	d := NewApproverDirectory()

	_, err := d.GetByID(context.Background(), "nobody")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestApproverDirectory_GetByRole_Sorted(t *testing.T) {
	d := NewApproverDirectory()
	ctx := context.Background()

	for _, id := range []string{"z-legal", "a-legal", "m-finance"} {
		role := "legal"
		if id == "m-finance" {
			role = "finance"
		}
		if err := d.Save(ctx, &domain.Approver{ID: id, Role: role, Status: domain.ApproverActive}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := d.GetByRole(ctx, "legal")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a-legal" || got[1].ID != "z-legal" {
		t.Errorf("expected sorted legal approvers, got %+v", got)
	}
}

func TestApproverDirectory_Deactivate(t *testing.T) {
	d := NewApproverDirectory()
	ctx := context.Background()

	if err := d.Save(ctx, &domain.Approver{ID: "이CISO", Role: "security", Status: domain.ApproverActive}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := d.Deactivate(ctx, "이CISO"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	active, err := d.ListActive(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("expected no active approvers after deactivation, got %+v", active)
	}

	if err := d.Deactivate(ctx, "nobody"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditLog_RecordDecision_StampsDefaults(t *testing.T) {
	l := NewAuditLog()
	ctx := context.Background()

	record := &domain.DecisionRecord{
		Currency:          "USD",
		RequiredApprovers: []string{"박CFO"},
	}
	if err := l.RecordDecision(ctx, record); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.ID == "" {
		t.Error("expected an ID to be generated")
	}
	if record.EvaluatedAt.IsZero() {
		t.Error("expected EvaluatedAt to be stamped")
	}
}

func TestAuditLog_DecisionsByPeriod(t *testing.T) {
	l := NewAuditLog()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for _, offset := range []time.Duration{-time.Hour, time.Hour, 48 * time.Hour} {
		record := &domain.DecisionRecord{
			Currency:    "USD",
			EvaluatedAt: base.Add(offset),
		}
		if err := l.RecordDecision(ctx, record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := l.DecisionsByPeriod(ctx, base, base.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 record inside the window, got %d", len(got))
	}
}

func TestAuditLog_MutationsByRule(t *testing.T) {
	l := NewAuditLog()
	ctx := context.Background()

	for _, ruleID := range []string{"r-1", "r-2", "r-1"} {
		record := &domain.MutationRecord{
			Op:     domain.MutationUpdate,
			RuleID: ruleID,
			Actor:  "tester",
		}
		if err := l.RecordMutation(ctx, record); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got, err := l.MutationsByRule(ctx, "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 mutations for r-1, got %d", len(got))
	}
}
