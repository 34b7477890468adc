package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/core/ports/payments"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
	"github.com/lawbid/lawbid_backend/internal/core/services"
)

// MockTransactionRepository is a mock type for the TransactionRepositoryFacade interface
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) FindTransactionsByRequestID(ctx context.Context, requestID string) ([]domain.Transaction, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) SaveCaptured(ctx context.Context, txn domain.Transaction) error {
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) MarkReleased(ctx context.Context, transactionID string, releasedAt time.Time, updatedBy string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, releasedAt, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) MarkRefunded(ctx context.Context, transactionID string, now time.Time, updatedBy string) (*domain.Transaction, error) {
	args := m.Called(ctx, transactionID, now, updatedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

// MockGateway is a mock type for the payments.Gateway interface
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCharge(ctx context.Context, params payments.ChargeParams) (*payments.Charge, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Charge), args.Error(1)
}

func (m *MockGateway) GetCharge(ctx context.Context, chargeID string) (*payments.Charge, error) {
	args := m.Called(ctx, chargeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Charge), args.Error(1)
}

func (m *MockGateway) Transfer(ctx context.Context, params payments.TransferParams) (*payments.Transfer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Transfer), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, params payments.RefundParams) (*payments.Refund, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.Refund), args.Error(1)
}

// --- Test Suite Setup ---

type SettlementServiceTestSuite struct {
	suite.Suite
	mockRequests *MockRequestRepository
	mockTxns     *MockTransactionRepository
	mockGateway  *MockGateway
	broadcaster  *recordingBroadcaster
	service      portssvc.SettlementSvcFacade

	clientID string
	request  *domain.Request
}

func (suite *SettlementServiceTestSuite) SetupTest() {
	suite.mockRequests = new(MockRequestRepository)
	suite.mockTxns = new(MockTransactionRepository)
	suite.mockGateway = new(MockGateway)
	suite.broadcaster = &recordingBroadcaster{}
	suite.service = services.NewSettlementService(suite.mockRequests, suite.mockTxns, suite.mockGateway, suite.broadcaster, "sar")

	// A request whose 300 bid was just accepted.
	suite.clientID = uuid.NewString()
	suite.request = openRequestFixture(suite.clientID, 100, 500)
	bid := pendingBidFixture(suite.request.RequestID, 300)
	suite.Require().NoError(suite.request.AppendBid(bid))
	_, err := suite.request.Accept(bid.BidID, suite.clientID, time.Now().UTC())
	suite.Require().NoError(err)
}

// --- Test Cases ---

func (suite *SettlementServiceTestSuite) TestCreatePaymentIntent_Success() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	suite.mockGateway.On("CreateCharge", ctx, mock.MatchedBy(func(params payments.ChargeParams) bool {
		// 300 + 15 + 47 + 8
		return params.Amount.Equal(decimal.NewFromInt(370)) && params.Currency == "sar"
	})).Return(&payments.Charge{
		ID:           "pi_test",
		ClientSecret: "pi_test_secret",
		Amount:       decimal.NewFromInt(370),
		Currency:     "sar",
		Status:       payments.ChargeStatusPending,
	}, nil).Once()

	intent, err := suite.service.CreatePaymentIntent(ctx, suite.request.RequestID, suite.clientID)

	suite.Require().NoError(err)
	suite.Equal("pi_test", intent.PaymentID)
	suite.Equal("pi_test_secret", intent.ClientSecret)
	suite.True(intent.Breakdown.PlatformFee.Equal(decimal.NewFromInt(15)))
	suite.True(intent.Breakdown.VAT.Equal(decimal.NewFromInt(47)))
	suite.True(intent.Breakdown.PaymentFee.Equal(decimal.NewFromInt(8)))
	suite.True(intent.Breakdown.Total.Equal(decimal.NewFromInt(370)))

	// Intent creation never records state.
	suite.mockTxns.AssertNotCalled(suite.T(), "SaveCaptured")
	suite.mockGateway.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestCreatePaymentIntent_NotOwner() {
	ctx := context.Background()
	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()

	_, err := suite.service.CreatePaymentIntent(ctx, suite.request.RequestID, uuid.NewString())

	suite.ErrorIs(err, domain.ErrNotRequestOwner)
	suite.mockGateway.AssertNotCalled(suite.T(), "CreateCharge")
}

func (suite *SettlementServiceTestSuite) TestCreatePaymentIntent_RequestStillOpen() {
	ctx := context.Background()
	open := openRequestFixture(suite.clientID, 100, 500)
	suite.mockRequests.On("FindRequestByID", ctx, open.RequestID).Return(open, nil).Once()

	_, err := suite.service.CreatePaymentIntent(ctx, open.RequestID, suite.clientID)

	suite.ErrorIs(err, services.ErrRequestNotAwaitingPayment)
	suite.mockGateway.AssertNotCalled(suite.T(), "CreateCharge")
}

func (suite *SettlementServiceTestSuite) TestCapturePayment_Success() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	suite.mockGateway.On("GetCharge", ctx, "pi_test").Return(&payments.Charge{
		ID:            "pi_test",
		Amount:        decimal.NewFromInt(370),
		Currency:      "sar",
		PaymentMethod: "card",
		Status:        payments.ChargeStatusSucceeded,
		Metadata:      map[string]string{"requestID": suite.request.RequestID},
	}, nil).Once()
	suite.mockTxns.On("SaveCaptured", ctx, mock.MatchedBy(func(txn domain.Transaction) bool {
		return txn.Status == domain.TransactionStatusHeld &&
			txn.Amount.Equal(decimal.NewFromInt(300)) &&
			txn.TotalCharged().Equal(decimal.NewFromInt(370)) &&
			txn.LawyerID == suite.request.SelectedLawyerID &&
			txn.PaymentID == "pi_test"
	})).Return(nil).Once()

	txn, err := suite.service.CapturePayment(ctx, suite.request.RequestID, suite.clientID, "pi_test")

	suite.Require().NoError(err)
	suite.Equal(domain.TransactionStatusHeld, txn.Status)
	suite.True(txn.Payout().Equal(decimal.NewFromInt(285)))

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventPaymentCaptured, events[0].Type)

	suite.mockTxns.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestCapturePayment_ChargeNotSucceeded() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	suite.mockGateway.On("GetCharge", ctx, "pi_test").Return(&payments.Charge{
		ID:     "pi_test",
		Amount: decimal.NewFromInt(370),
		Status: payments.ChargeStatusPending,
	}, nil).Once()

	_, err := suite.service.CapturePayment(ctx, suite.request.RequestID, suite.clientID, "pi_test")

	suite.ErrorIs(err, services.ErrPaymentNotConfirmed)
	suite.mockTxns.AssertNotCalled(suite.T(), "SaveCaptured")
	suite.Empty(suite.broadcaster.Events())
}

func (suite *SettlementServiceTestSuite) TestCapturePayment_AmountMismatch() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	suite.mockGateway.On("GetCharge", ctx, "pi_test").Return(&payments.Charge{
		ID:       "pi_test",
		Amount:   decimal.NewFromInt(369), // one minor unit short
		Status:   payments.ChargeStatusSucceeded,
		Metadata: map[string]string{"requestID": suite.request.RequestID},
	}, nil).Once()

	_, err := suite.service.CapturePayment(ctx, suite.request.RequestID, suite.clientID, "pi_test")

	suite.ErrorIs(err, services.ErrPaymentNotConfirmed)
	suite.mockTxns.AssertNotCalled(suite.T(), "SaveCaptured")
}

func (suite *SettlementServiceTestSuite) TestCapturePayment_ChargeForOtherRequest() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	// Succeeded charge for the right total, but created for another request.
	suite.mockGateway.On("GetCharge", ctx, "pi_other").Return(&payments.Charge{
		ID:       "pi_other",
		Amount:   decimal.NewFromInt(370),
		Status:   payments.ChargeStatusSucceeded,
		Metadata: map[string]string{"requestID": uuid.NewString()},
	}, nil).Once()

	_, err := suite.service.CapturePayment(ctx, suite.request.RequestID, suite.clientID, "pi_other")

	suite.ErrorIs(err, services.ErrPaymentNotConfirmed)
	suite.mockTxns.AssertNotCalled(suite.T(), "SaveCaptured")
	suite.Empty(suite.broadcaster.Events())
}

func (suite *SettlementServiceTestSuite) TestCapturePayment_GatewayTimeout() {
	ctx := context.Background()

	suite.mockRequests.On("FindRequestByID", ctx, suite.request.RequestID).Return(suite.request, nil).Once()
	suite.mockGateway.On("GetCharge", ctx, "pi_test").
		Return(nil, fmt.Errorf("%w: stripe get payment intent: context deadline exceeded", apperrors.ErrExternal)).Once()

	_, err := suite.service.CapturePayment(ctx, suite.request.RequestID, suite.clientID, "pi_test")

	// A timed-out verification is a failure: no held transaction, no event,
	// request untouched.
	suite.ErrorIs(err, apperrors.ErrExternal)
	suite.mockTxns.AssertNotCalled(suite.T(), "SaveCaptured")
	suite.Empty(suite.broadcaster.Events())
	suite.Equal(domain.RequestStatusPendingPayment, suite.request.Status)
}

func (suite *SettlementServiceTestSuite) TestReleaseEscrow_Success() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()
	suite.mockGateway.On("Transfer", ctx, mock.MatchedBy(func(params payments.TransferParams) bool {
		// base 300 less platform fee 15
		return params.Amount.Equal(decimal.NewFromInt(285)) &&
			params.DestinationAccount == txn.LawyerID &&
			params.GroupID == txn.RequestID
	})).Return(&payments.Transfer{ID: "tr_test"}, nil).Once()

	released := txn
	releasedAt := time.Now().UTC()
	released.Status = domain.TransactionStatusReleased
	released.EscrowRelease = &releasedAt
	suite.mockTxns.On("MarkReleased", ctx, txn.TransactionID, mock.AnythingOfType("time.Time"), suite.clientID).
		Return(&released, nil).Once()

	result, err := suite.service.ReleaseEscrow(ctx, txn.TransactionID, suite.clientID, string(domain.RoleClient))

	suite.Require().NoError(err)
	suite.Equal(domain.TransactionStatusReleased, result.Status)
	suite.NotNil(result.EscrowRelease)

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventEscrowReleased, events[0].Type)

	suite.mockGateway.AssertExpectations(suite.T())
	suite.mockTxns.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestReleaseEscrow_NotPayingClient() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()

	// Another client account must not be able to trigger the payout.
	_, err := suite.service.ReleaseEscrow(ctx, txn.TransactionID, uuid.NewString(), string(domain.RoleClient))

	suite.ErrorIs(err, domain.ErrNotRequestOwner)
	suite.mockGateway.AssertNotCalled(suite.T(), "Transfer")
	suite.mockTxns.AssertNotCalled(suite.T(), "MarkReleased")
	suite.Empty(suite.broadcaster.Events())
}

func (suite *SettlementServiceTestSuite) TestReleaseEscrow_AdminOverride() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)
	adminID := uuid.NewString()

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()
	suite.mockGateway.On("Transfer", ctx, mock.AnythingOfType("payments.TransferParams")).
		Return(&payments.Transfer{ID: "tr_test"}, nil).Once()

	released := txn
	releasedAt := time.Now().UTC()
	released.Status = domain.TransactionStatusReleased
	released.EscrowRelease = &releasedAt
	suite.mockTxns.On("MarkReleased", ctx, txn.TransactionID, mock.AnythingOfType("time.Time"), adminID).
		Return(&released, nil).Once()

	result, err := suite.service.ReleaseEscrow(ctx, txn.TransactionID, adminID, string(domain.RoleAdmin))

	suite.Require().NoError(err)
	suite.Equal(domain.TransactionStatusReleased, result.Status)
	suite.mockTxns.AssertExpectations(suite.T())
}

func (suite *SettlementServiceTestSuite) TestReleaseEscrow_TransferFailureKeepsHeld() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()
	suite.mockGateway.On("Transfer", ctx, mock.AnythingOfType("payments.TransferParams")).
		Return(nil, fmt.Errorf("%w: stripe transfer: connection reset", apperrors.ErrExternal)).Once()

	_, err := suite.service.ReleaseEscrow(ctx, txn.TransactionID, suite.clientID, string(domain.RoleClient))

	suite.ErrorIs(err, apperrors.ErrExternal)
	suite.mockTxns.AssertNotCalled(suite.T(), "MarkReleased")
	suite.Empty(suite.broadcaster.Events())
}

func (suite *SettlementServiceTestSuite) TestReleaseEscrow_AlreadyReleased() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)
	txn.Status = domain.TransactionStatusReleased

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()

	_, err := suite.service.ReleaseEscrow(ctx, txn.TransactionID, suite.clientID, string(domain.RoleClient))

	suite.ErrorIs(err, domain.ErrInvalidTransactionState)
	suite.mockGateway.AssertNotCalled(suite.T(), "Transfer")
}

func (suite *SettlementServiceTestSuite) TestRefund_Success() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()
	suite.mockGateway.On("Refund", ctx, payments.RefundParams{
		ChargeID: txn.PaymentID,
		Reason:   "requested_by_customer",
	}).Return(&payments.Refund{ID: "re_test"}, nil).Once()

	refunded := txn
	refunded.Status = domain.TransactionStatusRefunded
	suite.mockTxns.On("MarkRefunded", ctx, txn.TransactionID, mock.AnythingOfType("time.Time"), suite.clientID).
		Return(&refunded, nil).Once()

	result, err := suite.service.Refund(ctx, txn.TransactionID, suite.clientID, "")

	suite.Require().NoError(err)
	suite.Equal(domain.TransactionStatusRefunded, result.Status)

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventPaymentRefunded, events[0].Type)
}

func (suite *SettlementServiceTestSuite) TestRefund_GatewayFailureKeepsHeld() {
	ctx := context.Background()
	txn := heldTransactionFixture(suite.request, 300)

	suite.mockTxns.On("FindTransactionByID", ctx, txn.TransactionID).Return(&txn, nil).Once()
	suite.mockGateway.On("Refund", ctx, mock.AnythingOfType("payments.RefundParams")).
		Return(nil, fmt.Errorf("%w: stripe refund: service unavailable", apperrors.ErrExternal)).Once()

	_, err := suite.service.Refund(ctx, txn.TransactionID, suite.clientID, "dispute")

	suite.ErrorIs(err, apperrors.ErrExternal)
	suite.mockTxns.AssertNotCalled(suite.T(), "MarkRefunded")
	suite.Empty(suite.broadcaster.Events())
}

func TestSettlementServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SettlementServiceTestSuite))
}

// heldTransactionFixture builds the ledger entry CapturePayment would record
// for the request's accepted amount.
func heldTransactionFixture(request *domain.Request, amount int64) domain.Transaction {
	breakdown, _ := services.ComputeCharge(decimal.NewFromInt(amount))
	now := time.Now().UTC()
	return domain.Transaction{
		TransactionID: uuid.NewString(),
		RequestID:     request.RequestID,
		ClientID:      request.ClientID,
		LawyerID:      request.SelectedLawyerID,
		Amount:        decimal.NewFromInt(amount),
		Fees:          breakdown.Fees(),
		Status:        domain.TransactionStatusHeld,
		PaymentMethod: "card",
		PaymentID:     "pi_" + uuid.NewString(),
		Currency:      "sar",
		AuditFields: domain.AuditFields{
			CreatedAt: now, CreatedBy: request.ClientID, LastUpdatedAt: now, LastUpdatedBy: request.ClientID,
		},
	}
}
