package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindInternalTransfer indicates a conversion between two wallets of one owner.
	KindInternalTransfer = "internal_transfer"
	// KindPaymentSent is delivered to the payer of a user-to-user payment.
	KindPaymentSent = "payment_sent"
	// KindPaymentReceived is delivered to the payee of a user-to-user payment.
	KindPaymentReceived = "payment_received"
)

// Message describes a notification payload.
type Message struct {
	Kind          string    `json:"kind"`
	Destination   string    `json:"destination"`
	Body          string    `json:"body"`
	RecordID      string    `json:"recordId,omitempty"`
	CorrelationID string    `json:"correlationId,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Currency      string    `json:"currency,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. Used when no broker is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"destination", message.Destination,
		"record_id", message.RecordID,
		"body", message.Body,
	)
	return nil
}
