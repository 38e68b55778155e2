package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finpay/ledger/internal/apperr"
	"github.com/finpay/ledger/internal/fx"
	"github.com/finpay/ledger/internal/identity"
	"github.com/finpay/ledger/internal/ledger"
	"github.com/finpay/ledger/internal/logging"
	"github.com/finpay/ledger/internal/metrics"
	"github.com/finpay/ledger/internal/money"
	"github.com/finpay/ledger/internal/notification"
)

// UserDirectory resolves users for payments.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (identity.User, error)
	FindByID(ctx context.Context, id string) (identity.User, error)
}

// Service is the transfer engine. Every operation runs as one atomic unit
// against the ledger store: wallets are locked in canonical order, balances
// adjusted and records appended, or nothing happens at all.
type Service struct {
	store      ledger.Store
	rates      fx.Provider
	currencies money.Currencies
	users      UserDirectory
	notifier   notification.Notifier
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewService constructs the transfer engine. notifier, m and logger may be nil.
func NewService(
	store ledger.Store,
	rates fx.Provider,
	currencies money.Currencies,
	users UserDirectory,
	notifier notification.Notifier,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		store:      store,
		rates:      rates,
		currencies: currencies,
		users:      users,
		notifier:   notifier,
		metrics:    m,
		logger:     logger,
	}
}

// InternalTransferInput moves value between two wallets of the same owner.
type InternalTransferInput struct {
	OwnerID      string
	FromCurrency string
	ToCurrency   string
	Amount       decimal.Decimal
	Description  string
}

// SendPaymentInput moves value from the sender to another user, same currency.
type SendPaymentInput struct {
	SenderID       string
	RecipientEmail string
	Amount         decimal.Decimal
	Currency       string
	Description    string
}

// InternalTransfer debits the owner's source wallet, converts at the directed
// rate and credits the target wallet. Only the debit leg is recorded.
func (s *Service) InternalTransfer(ctx context.Context, in InternalTransferInput) (rec ledger.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTransfer(metrics.KindInternalTransfer, start, err) }()

	if !in.Amount.IsPositive() {
		return ledger.Record{}, apperr.Validation("valid positive amount is required")
	}
	from, err := s.currencies.Lookup(in.FromCurrency)
	if err != nil {
		return ledger.Record{}, err
	}
	to, err := s.currencies.Lookup(in.ToCurrency)
	if err != nil {
		return ledger.Record{}, err
	}
	if from.Code == to.Code {
		return ledger.Record{}, apperr.Validation("source and target currencies must differ")
	}
	if err := from.CheckAmount(in.Amount); err != nil {
		return ledger.Record{}, err
	}

	source, err := s.store.GetWallet(ctx, in.OwnerID, from.Code)
	if err != nil {
		return ledger.Record{}, apperr.AsStorage(err)
	}
	target, err := s.store.GetWallet(ctx, in.OwnerID, to.Code)
	if err != nil {
		return ledger.Record{}, apperr.AsStorage(err)
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = fmt.Sprintf("Converted %s to %s", from.Code, to.Code)
	}

	var converted decimal.Decimal
	err = s.store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		locked, err := tx.LockWallets(ctx, source.ID, target.ID)
		if err != nil {
			return err
		}
		src, dst := locked[source.ID], locked[target.ID]

		if src.Balance.LessThan(in.Amount) {
			return insufficient(src, from)
		}
		if _, err := tx.AdjustBalance(ctx, src.ID, in.Amount.Neg(), src.Version); err != nil {
			return err
		}

		rate, err := s.rates.GetRate(ctx, from.Code, to.Code)
		if err != nil {
			return err
		}
		converted = to.Round(in.Amount.Mul(rate))
		if !converted.IsPositive() {
			return apperr.Validation("amount too small to convert from %s to %s", from.Code, to.Code)
		}
		if _, err := tx.AdjustBalance(ctx, dst.ID, converted, dst.Version); err != nil {
			return err
		}

		rec, err = tx.Append(ctx, ledger.Record{
			WalletID:    src.ID,
			OwnerID:     in.OwnerID,
			Amount:      in.Amount,
			Currency:    from.Code,
			Type:        ledger.TypeInternalTransferDebit,
			Status:      ledger.StatusCompleted,
			InitiatorID: in.OwnerID,
			Description: description,
			Metadata: ledger.ConversionMetadata{
				FromCurrency:    from.Code,
				ToCurrency:      to.Code,
				Rate:            rate,
				ConvertedAmount: converted,
			},
		})
		return err
	})
	if err != nil {
		err = apperr.AsStorage(err)
		s.logFailure(ctx, "internal transfer failed", err, slog.String("wallet_id", source.ID))
		return ledger.Record{}, err
	}

	s.logger.InfoContext(ctx, "internal transfer committed",
		slog.String("record_id", rec.ID),
		slog.String("wallet_id", source.ID),
		slog.String("amount", from.Format(in.Amount)),
		slog.String("currency", from.Code),
		slog.String("converted_amount", to.Format(converted)),
		slog.String("target_currency", to.Code),
	)
	s.notify(ctx, notification.Message{
		Kind:        notification.KindInternalTransfer,
		Destination: in.OwnerID,
		Body:        fmt.Sprintf("Converted %s %s to %s %s", from.Format(in.Amount), from.Code, to.Format(converted), to.Code),
		RecordID:    rec.ID,
		Amount:      from.Format(in.Amount),
		Currency:    from.Code,
	})
	return rec, nil
}

// SendPayment debits the sender and credits the recipient's wallet in the
// same currency. Two records sharing a correlation id are written; the
// sender's is returned.
func (s *Service) SendPayment(ctx context.Context, in SendPaymentInput) (sent ledger.Record, err error) {
	start := time.Now()
	defer func() { s.metrics.ObserveTransfer(metrics.KindPayment, start, err) }()

	if !in.Amount.IsPositive() {
		return ledger.Record{}, apperr.Validation("valid positive amount is required")
	}
	cur, err := s.currencies.Lookup(in.Currency)
	if err != nil {
		return ledger.Record{}, err
	}
	if err := cur.CheckAmount(in.Amount); err != nil {
		return ledger.Record{}, err
	}
	if strings.TrimSpace(in.RecipientEmail) == "" {
		return ledger.Record{}, apperr.Validation("recipientEmail is required")
	}

	senderWallet, err := s.store.GetWallet(ctx, in.SenderID, cur.Code)
	if err != nil {
		return ledger.Record{}, apperr.AsStorage(err)
	}

	recipient, err := s.users.FindByEmail(ctx, in.RecipientEmail)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ledger.Record{}, apperr.NotFound("recipient not found")
		}
		return ledger.Record{}, apperr.AsStorage(err)
	}
	if recipient.ID == in.SenderID {
		return ledger.Record{}, apperr.SelfTransfer()
	}

	recipientWallet, err := s.store.GetWallet(ctx, recipient.ID, cur.Code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return ledger.Record{}, apperr.NotFound("recipient does not have a %s wallet", cur.Code)
		}
		return ledger.Record{}, apperr.AsStorage(err)
	}

	sender, err := s.users.FindByID(ctx, in.SenderID)
	if err != nil {
		return ledger.Record{}, apperr.AsStorage(err)
	}

	sentDescription := strings.TrimSpace(in.Description)
	receivedDescription := sentDescription
	if sentDescription == "" {
		sentDescription = "Payment to " + recipient.Email
		receivedDescription = "Payment from " + sender.Email
	}
	correlationID := uuid.NewString()

	var received ledger.Record
	err = s.store.Atomic(ctx, func(ctx context.Context, tx ledger.Tx) error {
		locked, err := tx.LockWallets(ctx, senderWallet.ID, recipientWallet.ID)
		if err != nil {
			return err
		}
		from, to := locked[senderWallet.ID], locked[recipientWallet.ID]

		if from.Balance.LessThan(in.Amount) {
			return insufficient(from, cur)
		}
		if _, err := tx.AdjustBalance(ctx, from.ID, in.Amount.Neg(), from.Version); err != nil {
			return err
		}
		if _, err := tx.AdjustBalance(ctx, to.ID, in.Amount, to.Version); err != nil {
			return err
		}

		sent, err = tx.Append(ctx, ledger.Record{
			WalletID:       from.ID,
			OwnerID:        sender.ID,
			Amount:         in.Amount,
			Currency:       cur.Code,
			Type:           ledger.TypePaymentSent,
			Status:         ledger.StatusCompleted,
			InitiatorID:    sender.ID,
			CounterpartyID: recipient.ID,
			Description:    sentDescription,
			Metadata:       ledger.PaymentMetadata{CorrelationID: correlationID, CounterpartyEmail: recipient.Email},
		})
		if err != nil {
			return err
		}
		received, err = tx.Append(ctx, ledger.Record{
			WalletID:       to.ID,
			OwnerID:        recipient.ID,
			Amount:         in.Amount,
			Currency:       cur.Code,
			Type:           ledger.TypePaymentReceived,
			Status:         ledger.StatusCompleted,
			InitiatorID:    sender.ID,
			CounterpartyID: sender.ID,
			Description:    receivedDescription,
			Metadata:       ledger.PaymentMetadata{CorrelationID: correlationID, CounterpartyEmail: sender.Email},
		})
		return err
	})
	if err != nil {
		err = apperr.AsStorage(err)
		s.logFailure(ctx, "payment failed", err,
			slog.String("wallet_id", senderWallet.ID),
			slog.String("correlation_id", correlationID),
		)
		return ledger.Record{}, err
	}

	amount := cur.Format(in.Amount)
	s.logger.InfoContext(ctx, "payment committed",
		slog.String("record_id", sent.ID),
		slog.String("correlation_id", correlationID),
		slog.String("wallet_id", senderWallet.ID),
		slog.String("amount", amount),
		slog.String("currency", cur.Code),
	)
	s.notify(ctx, notification.Message{
		Kind:          notification.KindPaymentSent,
		Destination:   sender.ID,
		Body:          fmt.Sprintf("You sent %s %s to %s", amount, cur.Code, recipient.Email),
		RecordID:      sent.ID,
		CorrelationID: correlationID,
		Amount:        amount,
		Currency:      cur.Code,
	})
	s.notify(ctx, notification.Message{
		Kind:          notification.KindPaymentReceived,
		Destination:   recipient.ID,
		Body:          fmt.Sprintf("You received %s %s from %s", amount, cur.Code, sender.Email),
		RecordID:      received.ID,
		CorrelationID: correlationID,
		Amount:        amount,
		Currency:      cur.Code,
	})
	return sent, nil
}

// Currencies returns the supported currency set.
func (s *Service) Currencies() money.Currencies {
	return s.currencies
}

// Rate returns the directed rate for a supported pair.
func (s *Service) Rate(ctx context.Context, from, to string) (fx.Rate, error) {
	f, err := s.currencies.Lookup(from)
	if err != nil {
		return fx.Rate{}, err
	}
	t, err := s.currencies.Lookup(to)
	if err != nil {
		return fx.Rate{}, err
	}
	rate, err := s.rates.GetRate(ctx, f.Code, t.Code)
	if err != nil {
		return fx.Rate{}, err
	}
	return fx.Rate{Pair: fx.Pair{From: f.Code, To: t.Code}, Rate: rate}, nil
}

func insufficient(w ledger.Wallet, c money.Currency) error {
	return apperr.InsufficientFunds("insufficient balance. Available: %s %s", c.Format(w.Balance), c.Code)
}

// notify runs after commit; delivery failures are logged and never change
// the committed outcome.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if msg.OccurredAt.IsZero() {
		msg.OccurredAt = time.Now().UTC()
	}
	if err := s.notifier.Send(context.WithoutCancel(ctx), msg); err != nil {
		s.logger.WarnContext(ctx, "notification failed",
			slog.String("kind", msg.Kind),
			slog.String("record_id", msg.RecordID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.String("code", string(apperr.KindOf(err))), slog.Any("error", err))
	if errors.Is(err, apperr.ErrStorageFailure) {
		s.logger.ErrorContext(ctx, msg, attrs...)
		return
	}
	s.logger.InfoContext(ctx, msg, attrs...)
}
