package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"approval_engine/internal/domain"
	"approval_engine/internal/repository"
)

type ApproverDirectory struct {
	mu        sync.RWMutex
	approvers map[string]*domain.Approver
}

func NewApproverDirectory() *ApproverDirectory {
	return &ApproverDirectory{
		approvers: make(map[string]*domain.Approver),
	}
}

func (d *ApproverDirectory) Save(ctx context.Context, approver *domain.Approver) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.approvers[approver.ID]; exists {
		return fmt.Errorf("%w: approver %s", repository.ErrDuplicate, approver.ID)
	}

	if approver.AddedAt.IsZero() {
		approver.AddedAt = time.Now()
	}
	d.approvers[approver.ID] = approver

	return nil
}

func (d *ApproverDirectory) GetByID(ctx context.Context, id string) (*domain.Approver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	approver, exists := d.approvers[id]
	if !exists {
		return nil, fmt.Errorf("%w: approver %s", repository.ErrNotFound, id)
	}
	return approver, nil
}

func (d *ApproverDirectory) GetByRole(ctx context.Context, role string) ([]*domain.Approver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*domain.Approver
	for _, approver := range d.approvers {
		if approver.Role == role {
			result = append(result, approver)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (d *ApproverDirectory) ListActive(ctx context.Context) ([]*domain.Approver, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*domain.Approver
	for _, approver := range d.approvers {
		if approver.Status == domain.ApproverActive {
			result = append(result, approver)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

func (d *ApproverDirectory) Deactivate(ctx context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	approver, exists := d.approvers[id]
	if !exists {
		return fmt.Errorf("%w: approver %s", repository.ErrNotFound, id)
	}

	approver.Status = domain.ApproverInactive
	d.approvers[id] = approver

	return nil
}
