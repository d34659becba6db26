package repository

import (
	"context"
	"errors"
	"time"

	"approval_engine/internal/domain"
)

type ApproverDirectory interface {
	Save(ctx context.Context, approver *domain.Approver) error
	GetByID(ctx context.Context, id string) (*domain.Approver, error)
	GetByRole(ctx context.Context, role string) ([]*domain.Approver, error)
	ListActive(ctx context.Context) ([]*domain.Approver, error)
	Deactivate(ctx context.Context, id string) error
}

type AuditLog interface {
	RecordDecision(ctx context.Context, record *domain.DecisionRecord) error
	RecordMutation(ctx context.Context, record *domain.MutationRecord) error
	DecisionsByPeriod(ctx context.Context, from, to time.Time) ([]*domain.DecisionRecord, error)
	MutationsByRule(ctx context.Context, ruleID string) ([]*domain.MutationRecord, error)
}

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate entry")
)
