package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lawbid/lawbid_backend/internal/dto"
	"github.com/lawbid/lawbid_backend/internal/middleware"
)

// listBids godoc
// @Summary List bids on a request
// @Description Retrieves all bids with their derived status; losing bids read as rejected once another bid was accepted
// @Tags bids
// @Produce  json
// @Param   id path string true "Request ID"
// @Success 200 {array} dto.BidResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 500 {object} map[string]string "Failed to list bids"
// @Security BearerAuth
// @Router /requests/{id}/bids [get]
func (h *requestHandler) listBids(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")

	request, err := h.requestService.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to list bids from service",
				slog.String("request_id", requestID), slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to list bids"})
		} else {
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToBidResponses(request))
}

// submitBid godoc
// @Summary Submit a bid on an open request
// @Description Appends a pending bid by the logged-in lawyer; the amount must fall within the request's budget range
// @Tags bids
// @Accept  json
// @Produce  json
// @Param   id path string true "Request ID"
// @Param   bid body dto.PlaceBidRequest true "Bid details"
// @Success 201 {object} dto.BidResponse
// @Failure 400 {object} map[string]string "Invalid input or bid outside budget"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 409 {object} map[string]string "Request is no longer open for bids"
// @Failure 500 {object} map[string]string "Failed to submit bid"
// @Security BearerAuth
// @Router /requests/{id}/bids [post]
func (h *requestHandler) submitBid(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")

	var req dto.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SubmitBid", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	lawyerID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Lawyer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", requestID))
	logger.Info("Received request to submit bid", slog.String("amount", req.Amount.String()))

	bid, err := h.requestService.SubmitBid(c.Request.Context(), requestID, lawyerID, req)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to submit bid in service", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to submit bid"})
		} else {
			logger.Warn("Rejected bid submission", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Bid submitted successfully", slog.String("bid_id", bid.BidID))
	c.JSON(http.StatusCreated, dto.BidResponse{
		BidID:            bid.BidID,
		RequestID:        bid.RequestID,
		LawyerID:         bid.LawyerID,
		Amount:           bid.Amount,
		Proposal:         bid.Proposal,
		TimeframeDays:    bid.TimeframeDays,
		ProposedDeadline: bid.ProposedDeadline,
		Status:           string(bid.Status),
		CreatedAt:        bid.CreatedAt,
	})
}

// updateBid godoc
// @Summary Update a pending bid
// @Description Replaces the mutable fields of the lawyer's own pending bid while the request is still open
// @Tags bids
// @Accept  json
// @Produce  json
// @Param   id path string true "Request ID"
// @Param   bidID path string true "Bid ID"
// @Param   bid body dto.PlaceBidRequest true "Updated bid details"
// @Success 200 {object} dto.BidResponse
// @Failure 400 {object} map[string]string "Invalid input or bid outside budget"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the bid owner"
// @Failure 404 {object} map[string]string "Request or bid not found"
// @Failure 409 {object} map[string]string "Request is no longer open for bids"
// @Failure 500 {object} map[string]string "Failed to update bid"
// @Security BearerAuth
// @Router /requests/{id}/bids/{bidID} [put]
func (h *requestHandler) updateBid(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")
	bidID := c.Param("bidID")

	var req dto.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateBid", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	lawyerID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Lawyer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", requestID), slog.String("bid_id", bidID))
	logger.Info("Received request to update bid")

	bid, err := h.requestService.UpdateBid(c.Request.Context(), requestID, bidID, lawyerID, req)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to update bid in service", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to update bid"})
		} else {
			logger.Warn("Rejected bid update", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Bid updated successfully")
	c.JSON(http.StatusOK, dto.BidResponse{
		BidID:            bid.BidID,
		RequestID:        bid.RequestID,
		LawyerID:         bid.LawyerID,
		Amount:           bid.Amount,
		Proposal:         bid.Proposal,
		TimeframeDays:    bid.TimeframeDays,
		ProposedDeadline: bid.ProposedDeadline,
		Status:           string(bid.Status),
		CreatedAt:        bid.CreatedAt,
	})
}

// acceptBid godoc
// @Summary Accept a bid
// @Description Selects the winning bid and moves the request to pending_payment; exactly one acceptance can succeed per request
// @Tags bids
// @Produce  json
// @Param   id path string true "Request ID"
// @Param   bidID path string true "Bid ID"
// @Success 200 {object} dto.RequestResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Not the request owner"
// @Failure 404 {object} map[string]string "Request or bid not found"
// @Failure 409 {object} map[string]string "Request is no longer open (another bid already accepted)"
// @Failure 500 {object} map[string]string "Failed to accept bid"
// @Security BearerAuth
// @Router /requests/{id}/bids/{bidID}/accept [post]
func (h *requestHandler) acceptBid(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")
	bidID := c.Param("bidID")

	clientID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Client user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", requestID), slog.String("bid_id", bidID))
	logger.Info("Received request to accept bid")

	request, err := h.requestService.AcceptBid(c.Request.Context(), requestID, bidID, clientID)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to accept bid in service", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to accept bid"})
		} else {
			logger.Warn("Rejected bid acceptance", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Bid accepted successfully", slog.String("final_amount", request.FinalAmount.String()))
	c.JSON(http.StatusOK, dto.ToRequestResponse(request))
}
