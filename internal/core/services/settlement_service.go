package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/core/ports/payments"
	"github.com/lawbid/lawbid_backend/internal/core/ports/realtime"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
	"github.com/lawbid/lawbid_backend/internal/dto"
	"github.com/lawbid/lawbid_backend/internal/middleware"
)

var (
	// ErrRequestNotAwaitingPayment rejects payment operations on a request
	// that has no accepted bid pending payment.
	ErrRequestNotAwaitingPayment = fmt.Errorf("%w: request is not awaiting payment", apperrors.ErrConflict)

	// ErrPaymentNotConfirmed rejects capture when the gateway has not reported
	// an explicit success for the exact total. The held transaction is never
	// created speculatively ahead of confirmation.
	ErrPaymentNotConfirmed = fmt.Errorf("%w: payment has not been confirmed by the gateway", apperrors.ErrExternal)
)

// settlementService drives accept -> capture -> release/refund across the
// request aggregate and the escrow ledger.
type settlementService struct {
	requestRepo portsrepo.RequestReader
	txnRepo     portsrepo.TransactionRepositoryFacade
	gateway     payments.Gateway
	broadcaster realtime.Broadcaster
	currency    string
}

// NewSettlementService creates a new SettlementService.
func NewSettlementService(requestRepo portsrepo.RequestReader, txnRepo portsrepo.TransactionRepositoryFacade, gateway payments.Gateway, broadcaster realtime.Broadcaster, currency string) portssvc.SettlementSvcFacade {
	return &settlementService{
		requestRepo: requestRepo,
		txnRepo:     txnRepo,
		gateway:     gateway,
		broadcaster: broadcaster,
		currency:    currency,
	}
}

var _ portssvc.SettlementSvcFacade = (*settlementService)(nil)

func (s *settlementService) publish(ctx context.Context, eventType domain.EventType, requestID string, payload map[string]any) {
	event := domain.Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		RequestID:  requestID,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.broadcaster.Publish(ctx, requestID, event); err != nil {
		middleware.GetLoggerFromCtx(ctx).Warn("Failed to publish event",
			slog.String("event_type", string(eventType)),
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
	}
}

// loadAwaitingPayment fetches the request and checks it is owned by clientID
// and sits in pending_payment with an accepted amount.
func (s *settlementService) loadAwaitingPayment(ctx context.Context, requestID, clientID string) (*domain.Request, error) {
	request, err := s.requestRepo.FindRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.ClientID != clientID {
		return nil, domain.ErrNotRequestOwner
	}
	if request.Status != domain.RequestStatusPendingPayment || !request.FinalAmount.IsPositive() {
		return nil, ErrRequestNotAwaitingPayment
	}
	return request, nil
}

// CreatePaymentIntent computes the fee breakdown for the accepted amount and
// initiates a gateway charge for the total. No local state is mutated; the
// transaction is only recorded once the charge is confirmed.
func (s *settlementService) CreatePaymentIntent(ctx context.Context, requestID, clientID string) (*dto.PaymentIntentResponse, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	request, err := s.loadAwaitingPayment(ctx, requestID, clientID)
	if err != nil {
		return nil, err
	}

	breakdown, err := ComputeCharge(request.FinalAmount)
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.CreateCharge(ctx, payments.ChargeParams{
		Amount:   breakdown.Total,
		Currency: s.currency,
		Metadata: map[string]string{
			"requestID":   request.RequestID,
			"platformFee": breakdown.PlatformFee.String(),
			"vatFee":      breakdown.VAT.String(),
			"paymentFee":  breakdown.PaymentFee.String(),
		},
	})
	if err != nil {
		logger.Error("Gateway charge creation failed", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: charge creation failed: %v", apperrors.ErrExternal, err)
	}

	logger.Info("Payment intent created", slog.String("request_id", requestID), slog.String("payment_id", charge.ID))
	return &dto.PaymentIntentResponse{
		PaymentID:    charge.ID,
		ClientSecret: charge.ClientSecret,
		Currency:     s.currency,
		Breakdown: dto.ChargeBreakdownResponse{
			BaseAmount:  breakdown.Base,
			PlatformFee: breakdown.PlatformFee,
			VAT:         breakdown.VAT,
			PaymentFee:  breakdown.PaymentFee,
			Total:       breakdown.Total,
		},
	}, nil
}

// CapturePayment re-reads the charge from the gateway and, only on an
// explicit success for the exact total, records the held transaction and
// moves the request to in_progress. A timeout or any non-success status
// leaves the request in pending_payment with no transaction.
func (s *settlementService) CapturePayment(ctx context.Context, requestID, clientID, paymentID string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	request, err := s.loadAwaitingPayment(ctx, requestID, clientID)
	if err != nil {
		return nil, err
	}

	breakdown, err := ComputeCharge(request.FinalAmount)
	if err != nil {
		return nil, err
	}

	charge, err := s.gateway.GetCharge(ctx, paymentID)
	if err != nil {
		logger.Error("Gateway charge lookup failed", slog.String("payment_id", paymentID), slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: charge lookup failed: %v", apperrors.ErrExternal, err)
	}
	if charge.Status != payments.ChargeStatusSucceeded {
		logger.Warn("Charge not confirmed", slog.String("payment_id", paymentID), slog.String("status", string(charge.Status)))
		return nil, ErrPaymentNotConfirmed
	}
	// A charge is only valid for the request it was created for; the intent
	// stamps the request id into the gateway metadata at creation.
	if charge.Metadata["requestID"] != request.RequestID {
		logger.Warn("Charge belongs to a different request",
			slog.String("payment_id", paymentID),
			slog.String("charge_request_id", charge.Metadata["requestID"]))
		return nil, ErrPaymentNotConfirmed
	}
	if !charge.Amount.Equal(breakdown.Total) {
		logger.Warn("Charge amount mismatch",
			slog.String("payment_id", paymentID),
			slog.String("charged", charge.Amount.String()),
			slog.String("expected", breakdown.Total.String()))
		return nil, ErrPaymentNotConfirmed
	}

	now := time.Now().UTC()
	txn := domain.Transaction{
		TransactionID: uuid.NewString(),
		RequestID:     request.RequestID,
		ClientID:      request.ClientID,
		LawyerID:      request.SelectedLawyerID,
		Amount:        request.FinalAmount,
		Fees:          breakdown.Fees(),
		Status:        domain.TransactionStatusHeld,
		PaymentMethod: charge.PaymentMethod,
		PaymentID:     charge.ID,
		Currency:      s.currency,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     clientID,
			LastUpdatedAt: now,
			LastUpdatedBy: clientID,
		},
	}
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	if err := s.txnRepo.SaveCaptured(ctx, txn); err != nil {
		logger.Error("Failed to record captured payment", slog.String("request_id", requestID), slog.String("error", err.Error()))
		return nil, err
	}

	logger.Info("Payment captured",
		slog.String("request_id", requestID),
		slog.String("transaction_id", txn.TransactionID),
		slog.String("total", txn.TotalCharged().String()))
	s.publish(ctx, domain.EventPaymentCaptured, request.RequestID, map[string]any{
		"transaction": dto.ToTransactionResponse(&txn),
	})
	return &txn, nil
}

// GetTransaction returns a single ledger entry projection.
func (s *settlementService) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	return s.txnRepo.FindTransactionByID(ctx, transactionID)
}

// ListTransactionsByRequest returns the ledger entries for one request.
func (s *settlementService) ListTransactionsByRequest(ctx context.Context, requestID string) ([]domain.Transaction, error) {
	return s.txnRepo.FindTransactionsByRequestID(ctx, requestID)
}

// ReleaseEscrow transfers the payout (base amount less the retained platform
// fee) to the lawyer and completes the request. Only the client who funded
// the escrow, or an admin, may release it. If the transfer fails or times
// out the transaction stays held and the call is safely retriable.
func (s *settlementService) ReleaseEscrow(ctx context.Context, transactionID, callerID, callerRole string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if callerRole != string(domain.RoleAdmin) && txn.ClientID != callerID {
		return nil, domain.ErrNotRequestOwner
	}
	if err := txn.CanSettle(); err != nil {
		return nil, err
	}

	payout := txn.Payout()
	if _, err := s.gateway.Transfer(ctx, payments.TransferParams{
		Amount:             payout,
		Currency:           txn.Currency,
		DestinationAccount: txn.LawyerID,
		GroupID:            txn.RequestID,
	}); err != nil {
		logger.Error("Gateway transfer failed; transaction remains held",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: payout transfer failed: %v", apperrors.ErrExternal, err)
	}

	released, err := s.txnRepo.MarkReleased(ctx, transactionID, time.Now().UTC(), callerID)
	if err != nil {
		return nil, err
	}

	logger.Info("Escrow released",
		slog.String("transaction_id", transactionID),
		slog.String("payout", payout.String()))
	s.publish(ctx, domain.EventEscrowReleased, released.RequestID, map[string]any{
		"transaction": dto.ToTransactionResponse(released),
		"payout":      payout,
	})
	return released, nil
}

// Refund reverses the original charge and cancels the request. If the
// gateway refund fails the transaction stays held and the call is retriable.
func (s *settlementService) Refund(ctx context.Context, transactionID, callerID, reason string) (*domain.Transaction, error) {
	logger := middleware.GetLoggerFromCtx(ctx)

	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if err := txn.CanSettle(); err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "requested_by_customer"
	}
	if _, err := s.gateway.Refund(ctx, payments.RefundParams{
		ChargeID: txn.PaymentID,
		Reason:   reason,
	}); err != nil {
		logger.Error("Gateway refund failed; transaction remains held",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: refund failed: %v", apperrors.ErrExternal, err)
	}

	refunded, err := s.txnRepo.MarkRefunded(ctx, transactionID, time.Now().UTC(), callerID)
	if err != nil {
		return nil, err
	}

	logger.Info("Payment refunded", slog.String("transaction_id", transactionID), slog.String("reason", reason))
	s.publish(ctx, domain.EventPaymentRefunded, refunded.RequestID, map[string]any{
		"transaction": dto.ToTransactionResponse(refunded),
		"reason":      reason,
	})
	return refunded, nil
}
