package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	portsrepo "github.com/lawbid/lawbid_backend/internal/core/ports/repositories"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
	"github.com/lawbid/lawbid_backend/internal/core/services"
	"github.com/lawbid/lawbid_backend/internal/dto"
)

// MockRequestRepository is a mock type for the RequestRepositoryFacade interface
type MockRequestRepository struct {
	mock.Mock
}

func (m *MockRequestRepository) SaveRequest(ctx context.Context, request domain.Request) error {
	args := m.Called(ctx, request)
	return args.Error(0)
}

func (m *MockRequestRepository) FindRequestByID(ctx context.Context, requestID string) (*domain.Request, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) ListRequests(ctx context.Context, filter portsrepo.RequestListFilter, limit int, offset int) ([]domain.Request, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Request), args.Error(1)
}

func (m *MockRequestRepository) AddBid(ctx context.Context, requestID string, bid domain.Bid) (*domain.Request, error) {
	args := m.Called(ctx, requestID, bid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

func (m *MockRequestRepository) UpdateBid(ctx context.Context, requestID, bidID, lawyerID string, amount decimal.Decimal, proposal string, timeframeDays int, proposedDeadline time.Time, now time.Time) (*domain.Request, *domain.Bid, error) {
	args := m.Called(ctx, requestID, bidID, lawyerID, amount, proposal, timeframeDays, proposedDeadline, now)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Request), args.Get(1).(*domain.Bid), args.Error(2)
}

func (m *MockRequestRepository) AcceptBid(ctx context.Context, requestID, bidID, clientID string, now time.Time) (*domain.Request, *domain.Bid, error) {
	args := m.Called(ctx, requestID, bidID, clientID, now)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*domain.Request), args.Get(1).(*domain.Bid), args.Error(2)
}

func (m *MockRequestRepository) CancelRequest(ctx context.Context, requestID, clientID string, now time.Time) (*domain.Request, error) {
	args := m.Called(ctx, requestID, clientID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Request), args.Error(1)
}

// recordingBroadcaster captures published events for assertions.
type recordingBroadcaster struct {
	mu     sync.Mutex
	events []domain.Event
}

func (b *recordingBroadcaster) Publish(_ context.Context, _ string, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
	return nil
}

func (b *recordingBroadcaster) Events() []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]domain.Event, len(b.events))
	copy(out, b.events)
	return out
}

// --- Test Suite Setup ---

type RequestServiceTestSuite struct {
	suite.Suite
	mockRepo    *MockRequestRepository
	broadcaster *recordingBroadcaster
	service     portssvc.RequestSvcFacade
}

func (suite *RequestServiceTestSuite) SetupTest() {
	suite.mockRepo = new(MockRequestRepository)
	suite.broadcaster = &recordingBroadcaster{}
	suite.service = services.NewRequestService(suite.mockRepo, suite.broadcaster)
}

// --- Test Cases ---

func (suite *RequestServiceTestSuite) TestCreateRequest_Success() {
	ctx := context.Background()
	clientID := uuid.NewString()
	req := dto.CreateRequestRequest{
		Title:       "Incorporation paperwork",
		Description: "Set up an LLC with two founders",
		Category:    "corporate",
		BudgetMin:   decimal.NewFromInt(500),
		BudgetMax:   decimal.NewFromInt(2000),
		Deadline:    time.Now().AddDate(0, 1, 0),
	}

	suite.mockRepo.On("SaveRequest", ctx, mock.AnythingOfType("domain.Request")).Return(nil).Once()

	created, err := suite.service.CreateRequest(ctx, clientID, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(created)
	suite.NotEmpty(created.RequestID)
	suite.Equal(clientID, created.ClientID)
	suite.Equal(domain.RequestStatusOpen, created.Status)
	suite.Equal("medium", created.Urgency)
	suite.Equal("ar", created.Language)
	suite.Equal(clientID, created.CreatedBy)
	suite.WithinDuration(time.Now(), created.CreatedAt, time.Second)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RequestServiceTestSuite) TestCreateRequest_InvertedBudget() {
	ctx := context.Background()
	req := dto.CreateRequestRequest{
		Title:       "Bad budget",
		Description: "min above max",
		Category:    "corporate",
		BudgetMin:   decimal.NewFromInt(2000),
		BudgetMax:   decimal.NewFromInt(500),
		Deadline:    time.Now().AddDate(0, 1, 0),
	}

	_, err := suite.service.CreateRequest(ctx, uuid.NewString(), req)

	suite.ErrorIs(err, domain.ErrBudgetInverted)
	suite.mockRepo.AssertNotCalled(suite.T(), "SaveRequest")
}

func (suite *RequestServiceTestSuite) TestSubmitBid_Success() {
	ctx := context.Background()
	clientID := uuid.NewString()
	lawyerID := uuid.NewString()
	request := openRequestFixture(clientID, 100, 500)

	req := dto.PlaceBidRequest{
		Amount:           decimal.NewFromInt(300),
		Proposal:         "I specialize in this",
		TimeframeDays:    7,
		ProposedDeadline: time.Now().AddDate(0, 0, 7),
	}

	suite.mockRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()
	suite.mockRepo.On("AddBid", ctx, request.RequestID, mock.AnythingOfType("domain.Bid")).
		Run(func(args mock.Arguments) {
			bid := args.Get(2).(domain.Bid)
			suite.NoError(request.AppendBid(bid))
		}).
		Return(request, nil).Once()

	bid, err := suite.service.SubmitBid(ctx, request.RequestID, lawyerID, req)

	suite.Require().NoError(err)
	suite.Require().NotNil(bid)
	suite.Equal(lawyerID, bid.LawyerID)
	suite.Equal(domain.BidStatusPending, bid.Status)
	suite.True(bid.Amount.Equal(decimal.NewFromInt(300)))

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventBidSubmitted, events[0].Type)
	suite.Equal(request.RequestID, events[0].RequestID)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RequestServiceTestSuite) TestSubmitBid_OverBudget() {
	ctx := context.Background()
	request := openRequestFixture(uuid.NewString(), 100, 500)

	req := dto.PlaceBidRequest{
		Amount:           decimal.NewFromInt(750),
		Proposal:         "premium service",
		TimeframeDays:    3,
		ProposedDeadline: time.Now().AddDate(0, 0, 3),
	}

	suite.mockRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	_, err := suite.service.SubmitBid(ctx, request.RequestID, uuid.NewString(), req)

	suite.ErrorIs(err, domain.ErrBudgetExceeded)
	suite.Empty(suite.broadcaster.Events())
	suite.mockRepo.AssertNotCalled(suite.T(), "AddBid")
}

func (suite *RequestServiceTestSuite) TestSubmitBid_RequestNotOpen() {
	ctx := context.Background()
	request := openRequestFixture(uuid.NewString(), 100, 500)
	request.Status = domain.RequestStatusInProgress

	req := dto.PlaceBidRequest{
		Amount:           decimal.NewFromInt(200),
		Proposal:         "late to the party",
		TimeframeDays:    3,
		ProposedDeadline: time.Now().AddDate(0, 0, 3),
	}

	suite.mockRepo.On("FindRequestByID", ctx, request.RequestID).Return(request, nil).Once()

	_, err := suite.service.SubmitBid(ctx, request.RequestID, uuid.NewString(), req)

	suite.ErrorIs(err, domain.ErrRequestNotOpen)
	suite.mockRepo.AssertNotCalled(suite.T(), "AddBid")
}

func (suite *RequestServiceTestSuite) TestAcceptBid_PublishesEvent() {
	ctx := context.Background()
	clientID := uuid.NewString()
	request := openRequestFixture(clientID, 100, 500)
	bid := pendingBidFixture(request.RequestID, 300)
	suite.Require().NoError(request.AppendBid(bid))

	stored, _ := request.FindBid(bid.BidID)
	suite.mockRepo.On("AcceptBid", ctx, request.RequestID, bid.BidID, clientID, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			_, err := request.Accept(bid.BidID, clientID, args.Get(4).(time.Time))
			suite.NoError(err)
		}).
		Return(request, stored, nil).Once()

	updated, err := suite.service.AcceptBid(ctx, request.RequestID, bid.BidID, clientID)

	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusPendingPayment, updated.Status)
	suite.Equal(bid.BidID, updated.SelectedBidID)

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventBidAccepted, events[0].Type)

	suite.mockRepo.AssertExpectations(suite.T())
}

func (suite *RequestServiceTestSuite) TestCancelRequest_Success() {
	ctx := context.Background()
	clientID := uuid.NewString()
	request := openRequestFixture(clientID, 100, 500)

	suite.mockRepo.On("CancelRequest", ctx, request.RequestID, clientID, mock.AnythingOfType("time.Time")).
		Run(func(args mock.Arguments) {
			suite.NoError(request.Cancel(clientID, args.Get(3).(time.Time)))
		}).
		Return(request, nil).Once()

	updated, err := suite.service.CancelRequest(ctx, request.RequestID, clientID)

	suite.Require().NoError(err)
	suite.Equal(domain.RequestStatusCancelled, updated.Status)

	events := suite.broadcaster.Events()
	suite.Require().Len(events, 1)
	suite.Equal(domain.EventRequestCancelled, events[0].Type)
}

func TestRequestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RequestServiceTestSuite))
}

// --- Fixtures ---

func openRequestFixture(clientID string, min, max int64) *domain.Request {
	now := time.Now().UTC()
	return &domain.Request{
		RequestID:   uuid.NewString(),
		ClientID:    clientID,
		Title:       "Contract review",
		Description: "Review a supplier agreement",
		Category:    "contracts",
		Budget:      domain.BudgetRange{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)},
		Deadline:    now.AddDate(0, 0, 14),
		Urgency:     "medium",
		Language:    "ar",
		Status:      domain.RequestStatusOpen,
		AuditFields: domain.AuditFields{CreatedAt: now, CreatedBy: clientID, LastUpdatedAt: now, LastUpdatedBy: clientID},
	}
}

func pendingBidFixture(requestID string, amount int64) domain.Bid {
	now := time.Now().UTC()
	lawyerID := uuid.NewString()
	return domain.Bid{
		BidID:            uuid.NewString(),
		RequestID:        requestID,
		LawyerID:         lawyerID,
		Amount:           decimal.NewFromInt(amount),
		Proposal:         "I can take this on",
		TimeframeDays:    7,
		ProposedDeadline: now.AddDate(0, 0, 7),
		Status:           domain.BidStatusPending,
		AuditFields:      domain.AuditFields{CreatedAt: now, CreatedBy: lawyerID, LastUpdatedAt: now, LastUpdatedBy: lawyerID},
	}
}

// --- Acceptance race ---

// memoryRequestRepository serializes mutations behind a mutex the way the
// pgsql repository serializes them behind a row lock, so the service-level
// acceptance race can be exercised without a database.
type memoryRequestRepository struct {
	mu       sync.Mutex
	requests map[string]*domain.Request
}

func newMemoryRequestRepository() *memoryRequestRepository {
	return &memoryRequestRepository{requests: make(map[string]*domain.Request)}
}

func (r *memoryRequestRepository) SaveRequest(_ context.Context, request domain.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[request.RequestID] = &request
	return nil
}

func (r *memoryRequestRepository) FindRequestByID(_ context.Context, requestID string) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[requestID]
	if !ok {
		return nil, domain.ErrBidNotFound
	}
	clone := *request
	clone.Bids = append([]domain.Bid(nil), request.Bids...)
	return &clone, nil
}

func (r *memoryRequestRepository) ListRequests(_ context.Context, _ portsrepo.RequestListFilter, _ int, _ int) ([]domain.Request, error) {
	return nil, nil
}

func (r *memoryRequestRepository) AddBid(_ context.Context, requestID string, bid domain.Bid) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request := r.requests[requestID]
	if err := request.AppendBid(bid); err != nil {
		return nil, err
	}
	return request, nil
}

func (r *memoryRequestRepository) UpdateBid(_ context.Context, requestID, bidID, lawyerID string, amount decimal.Decimal, proposal string, timeframeDays int, proposedDeadline time.Time, now time.Time) (*domain.Request, *domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request := r.requests[requestID]
	bid, err := request.ReplaceBid(bidID, lawyerID, amount, proposal, timeframeDays, proposedDeadline, now)
	if err != nil {
		return nil, nil, err
	}
	return request, bid, nil
}

func (r *memoryRequestRepository) AcceptBid(_ context.Context, requestID, bidID, clientID string, now time.Time) (*domain.Request, *domain.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request := r.requests[requestID]
	bid, err := request.Accept(bidID, clientID, now)
	if err != nil {
		return nil, nil, err
	}
	return request, bid, nil
}

func (r *memoryRequestRepository) CancelRequest(_ context.Context, requestID, clientID string, now time.Time) (*domain.Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request := r.requests[requestID]
	if err := request.Cancel(clientID, now); err != nil {
		return nil, err
	}
	return request, nil
}

func TestAcceptBid_ExactlyOneWinsUnderContention(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRequestRepository()
	service := services.NewRequestService(repo, &recordingBroadcaster{})

	clientID := uuid.NewString()
	request := openRequestFixture(clientID, 100, 500)

	const contenders = 32
	bidIDs := make([]string, contenders)
	for i := 0; i < contenders; i++ {
		bid := pendingBidFixture(request.RequestID, 200+int64(i))
		bidIDs[i] = bid.BidID
		assert.NoError(t, request.AppendBid(bid))
	}
	repo.requests[request.RequestID] = request

	var wg sync.WaitGroup
	results := make([]error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = service.AcceptBid(ctx, request.RequestID, bidIDs[i], clientID)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, domain.ErrRequestNotOpen)
		}
	}
	assert.Equal(t, 1, successes, "exactly one acceptance must win")

	final, err := repo.FindRequestByID(ctx, request.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPendingPayment, final.Status)
	assert.NotEmpty(t, final.SelectedBidID)

	// Every non-selected bid reads rejected.
	rejected := 0
	for i := range final.Bids {
		if final.Bids[i].EffectiveStatus(final) == domain.BidStatusRejected {
			rejected++
		}
	}
	assert.Equal(t, contenders-1, rejected)
}
