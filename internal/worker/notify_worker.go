package worker

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/log"
	"fintrack/internal/notify"
)

// ResetSender delivers a rendered password reset.
type ResetSender interface {
	SendPasswordReset(ctx context.Context, msg notify.PasswordReset) error
}

// NotifyWorker turns queued password-reset messages into emails.
type NotifyWorker struct {
	sender ResetSender
	logger *log.Logger
	now    func() time.Time
}

func NewNotifyWorker(sender ResetSender, logger *log.Logger) *NotifyWorker {
	return &NotifyWorker{
		sender: sender,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandlePasswordReset sends msg unless its token already expired. Expired
// messages are acknowledged and dropped; the user has to ask again.
func (w *NotifyWorker) HandlePasswordReset(ctx context.Context, msg *amqp.PasswordResetMessage) error {
	if msg.Expired(w.now()) {
		w.logger.WarnContext(ctx, "Dropping expired password reset message",
			"expires_at", msg.ExpiresAt,
			"queued_at", msg.Timestamp)
		return nil
	}

	if err := w.sender.SendPasswordReset(ctx, msg.PasswordReset()); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}

	w.logger.InfoContext(ctx, "Password reset delivered",
		"queued_for", w.now().Sub(msg.Timestamp).Round(time.Millisecond).String())
	return nil
}
