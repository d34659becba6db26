package memory

import (
	"approval_engine/internal/repository"
)

var (
	_ repository.ApproverDirectory = (*ApproverDirectory)(nil)
	_ repository.AuditLog          = (*AuditLog)(nil)
)
