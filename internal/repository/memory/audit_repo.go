package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"approval_engine/internal/domain"
)

type AuditLog struct {
	mu        sync.RWMutex
	decisions []*domain.DecisionRecord
	mutations []*domain.MutationRecord
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

func (l *AuditLog) RecordDecision(ctx context.Context, record *domain.DecisionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.ID == "" {
		record.ID = generateRecordID()
	}
	if record.EvaluatedAt.IsZero() {
		record.EvaluatedAt = time.Now()
	}
	l.decisions = append(l.decisions, record)

	return nil
}

func (l *AuditLog) RecordMutation(ctx context.Context, record *domain.MutationRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if record.ID == "" {
		record.ID = generateRecordID()
	}
	if record.At.IsZero() {
		record.At = time.Now()
	}
	l.mutations = append(l.mutations, record)

	return nil
}

func (l *AuditLog) DecisionsByPeriod(ctx context.Context, from, to time.Time) ([]*domain.DecisionRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*domain.DecisionRecord
	for _, record := range l.decisions {
		if !record.EvaluatedAt.Before(from) && record.EvaluatedAt.Before(to) {
			result = append(result, record)
		}
	}

	return result, nil
}

func (l *AuditLog) MutationsByRule(ctx context.Context, ruleID string) ([]*domain.MutationRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var result []*domain.MutationRecord
	for _, record := range l.mutations {
		if record.RuleID == ruleID {
			result = append(result, record)
		}
	}

	return result, nil
}

func generateRecordID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
