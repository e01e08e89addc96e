package noop

import (
	"context"

	"go.uber.org/zap"

	"gstaudit/internal/domain"
	"gstaudit/internal/email"
	"gstaudit/internal/port"
)

type noopSender struct {
	log *zap.Logger
}

// NewNoopSender creates an EscalationNotifier that only logs the notice.
func NewNoopSender(log *zap.Logger) port.EscalationNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &noopSender{log: log}
}

func (s *noopSender) NotifyEscalation(_ context.Context, report *domain.Report) error {
	msg := email.EscalationMessage(report)
	s.log.Info("[NOOP EMAIL] escalation notice",
		zap.String("subject", msg.Subject),
		zap.Strings("reasons", report.Escalation.Reasons),
	)
	return nil
}
