package port

import (
	"context"

	"gstaudit/internal/domain"
)

// EscalationNotifier tells reviewers that a report needs human attention.
type EscalationNotifier interface {
	NotifyEscalation(ctx context.Context, report *domain.Report) error
}
