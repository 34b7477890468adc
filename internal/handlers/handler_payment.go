package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	portssvc "github.com/lawbid/lawbid_backend/internal/core/ports/services"
	"github.com/lawbid/lawbid_backend/internal/dto"
	"github.com/lawbid/lawbid_backend/internal/middleware"
)

// paymentHandler handles HTTP requests for charges and escrow settlement.
type paymentHandler struct {
	settlementService portssvc.SettlementSvcFacade
}

// newPaymentHandler creates a new paymentHandler.
func newPaymentHandler(ss portssvc.SettlementSvcFacade) *paymentHandler {
	return &paymentHandler{
		settlementService: ss,
	}
}

// registerPaymentRoutes registers routes related to payments and escrow.
func registerPaymentRoutes(rg *gin.RouterGroup, settlementService portssvc.SettlementSvcFacade) {
	h := newPaymentHandler(settlementService)

	payments := rg.Group("/payments")
	{
		payments.POST("/intent", middleware.RequireRole(string(domain.RoleClient)), h.createPaymentIntent)
		payments.POST("/capture", middleware.RequireRole(string(domain.RoleClient)), h.capturePayment)
		payments.GET("/transactions", h.listTransactions)
		payments.GET("/transactions/:id", h.getTransaction)
		payments.POST("/transactions/:id/release", middleware.RequireRole(string(domain.RoleClient), string(domain.RoleAdmin)), h.releaseEscrow)
		payments.POST("/transactions/:id/refund", middleware.RequireRole(string(domain.RoleAdmin)), h.refund)
	}
}

// createPaymentIntent godoc
// @Summary Create a payment intent for an accepted request
// @Description Computes the full fee breakdown for the accepted bid and opens a gateway charge for the total; no local state changes
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   intent body dto.CreatePaymentIntentRequest true "Request to pay for"
// @Success 201 {object} dto.PaymentIntentResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the request owner"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 409 {object} map[string]string "Request is not awaiting payment"
// @Failure 502 {object} map[string]string "Payment gateway failure"
// @Security BearerAuth
// @Router /payments/intent [post]
func (h *paymentHandler) createPaymentIntent(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CreatePaymentIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreatePaymentIntent", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	clientID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Client user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", req.RequestID))
	logger.Info("Received request to create payment intent")

	intent, err := h.settlementService.CreatePaymentIntent(c.Request.Context(), req.RequestID, clientID)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to create payment intent", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to create payment intent"})
		} else if status == http.StatusBadGateway {
			logger.Error("Payment gateway failure creating intent", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Payment gateway unavailable"})
		} else {
			logger.Warn("Rejected payment intent", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Payment intent created", slog.String("payment_id", intent.PaymentID))
	c.JSON(http.StatusCreated, intent)
}

// capturePayment godoc
// @Summary Capture a confirmed payment into escrow
// @Description Re-verifies the charge with the gateway; only a confirmed success for the exact total records the held transaction and starts the engagement
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   capture body dto.CapturePaymentRequest true "Charge to confirm"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the request owner"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 409 {object} map[string]string "Request not awaiting payment or already captured"
// @Failure 502 {object} map[string]string "Charge not confirmed by the gateway"
// @Security BearerAuth
// @Router /payments/capture [post]
func (h *paymentHandler) capturePayment(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var req dto.CapturePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CapturePayment", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	clientID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Client user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", req.RequestID), slog.String("payment_id", req.PaymentID))
	logger.Info("Received request to capture payment")

	txn, err := h.settlementService.CapturePayment(c.Request.Context(), req.RequestID, clientID, req.PaymentID)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to capture payment", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to capture payment"})
		} else {
			logger.Warn("Rejected payment capture", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Payment captured into escrow", slog.String("transaction_id", txn.TransactionID))
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(txn))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Description Retrieves a single escrow ledger entry
// @Tags payments
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Router /payments/transactions/{id} [get]
func (h *paymentHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	txn, err := h.settlementService.GetTransaction(c.Request.Context(), transactionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Transaction not found", slog.String("transaction_id", transactionID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		} else {
			logger.Error("Failed to get transaction from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve transaction"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// listTransactions godoc
// @Summary List transactions for a request
// @Description Retrieves the escrow ledger entries recorded for a request, oldest first
// @Tags payments
// @Produce  json
// @Param   requestID query string true "Request ID"
// @Success 200 {array} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Missing request ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list transactions"
// @Security BearerAuth
// @Router /payments/transactions [get]
func (h *paymentHandler) listTransactions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	requestID := c.Query("requestID")
	if requestID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "requestID query parameter is required"})
		return
	}

	txns, err := h.settlementService.ListTransactionsByRequest(c.Request.Context(), requestID)
	if err != nil {
		logger.Error("Failed to list transactions from service",
			slog.String("request_id", requestID), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list transactions"})
		return
	}

	responses := make([]dto.TransactionResponse, len(txns))
	for i := range txns {
		responses[i] = dto.ToTransactionResponse(&txns[i])
	}
	c.JSON(http.StatusOK, responses)
}

// releaseEscrow godoc
// @Summary Release escrow to the lawyer
// @Description Pays out the held amount minus the platform fee and completes the request; a gateway failure leaves the transaction held for retry
// @Tags payments
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the paying client or an admin"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not held"
// @Failure 502 {object} map[string]string "Payout transfer failed"
// @Security BearerAuth
// @Router /payments/transactions/{id}/release [post]
func (h *paymentHandler) releaseEscrow(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	callerID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Caller user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	callerRole, _ := middleware.GetUserRoleFromCtx(c.Request.Context())

	logger = logger.With(slog.String("transaction_id", transactionID))
	logger.Info("Received request to release escrow")

	txn, err := h.settlementService.ReleaseEscrow(c.Request.Context(), transactionID, callerID, callerRole)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to release escrow", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to release escrow"})
		} else if status == http.StatusBadGateway {
			logger.Error("Payout transfer failed", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Payout transfer failed, escrow remains held"})
		} else {
			logger.Warn("Rejected escrow release", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Escrow released", slog.String("payout", txn.Payout().String()))
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}

// refund godoc
// @Summary Refund a held transaction
// @Description Reverses the original charge in full and cancels the request; a gateway failure leaves the transaction held for retry
// @Tags payments
// @Accept  json
// @Produce  json
// @Param   id path string true "Transaction ID"
// @Param   refund body dto.RefundRequest false "Refund reason"
// @Success 200 {object} dto.TransactionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Transaction is not held"
// @Failure 502 {object} map[string]string "Refund failed at the gateway"
// @Security BearerAuth
// @Router /payments/transactions/{id}/refund [post]
func (h *paymentHandler) refund(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	transactionID := c.Param("id")

	callerID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Caller user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dto.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		logger.Warn("Failed to bind JSON for Refund", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("transaction_id", transactionID))
	logger.Info("Received request to refund transaction")

	txn, err := h.settlementService.Refund(c.Request.Context(), transactionID, callerID, req.Reason)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to refund transaction", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to refund transaction"})
		} else if status == http.StatusBadGateway {
			logger.Error("Refund failed at gateway", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Refund failed, escrow remains held"})
		} else {
			logger.Warn("Rejected refund", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Transaction refunded")
	c.JSON(http.StatusOK, dto.ToTransactionResponse(txn))
}
