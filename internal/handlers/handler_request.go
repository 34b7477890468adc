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

// requestHandler handles HTTP requests related to service requests and their bids.
type requestHandler struct {
	requestService portssvc.RequestSvcFacade
}

// newRequestHandler creates a new requestHandler.
func newRequestHandler(rs portssvc.RequestSvcFacade) *requestHandler {
	return &requestHandler{
		requestService: rs,
	}
}

// registerRequestRoutes registers routes related to requests and bids.
func registerRequestRoutes(rg *gin.RouterGroup, requestService portssvc.RequestSvcFacade) {
	h := newRequestHandler(requestService)

	requests := rg.Group("/requests")
	{
		requests.POST("", middleware.RequireRole(string(domain.RoleClient)), h.createRequest)
		requests.GET("", h.listRequests)
		requests.GET("/:id", h.getRequest)
		requests.POST("/:id/cancel", middleware.RequireRole(string(domain.RoleClient)), h.cancelRequest)

		requests.GET("/:id/bids", h.listBids)
		requests.POST("/:id/bids", middleware.RequireRole(string(domain.RoleLawyer)), h.submitBid)
		requests.PUT("/:id/bids/:bidID", middleware.RequireRole(string(domain.RoleLawyer)), h.updateBid)
		requests.POST("/:id/bids/:bidID/accept", middleware.RequireRole(string(domain.RoleClient)), h.acceptBid)
	}
}

// serviceErrorStatus maps a service error to the HTTP status for its kind.
func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// createRequest godoc
// @Summary Post a new service request
// @Description Creates an open request for the logged-in client
// @Tags requests
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateRequestRequest true "Request details"
// @Success 201 {object} dto.RequestResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create request"
// @Security BearerAuth
// @Router /requests [post]
func (h *requestHandler) createRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateRequest", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	clientID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Client user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger.Info("Received request to create service request", slog.String("title", req.Title), slog.String("category", req.Category))

	created, err := h.requestService.CreateRequest(c.Request.Context(), clientID, req)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to create request in service", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to create request"})
		} else {
			logger.Warn("Rejected create request", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Request created successfully", slog.String("request_id", created.RequestID))
	c.JSON(http.StatusCreated, dto.ToRequestResponse(created))
}

// getRequest godoc
// @Summary Get a request by ID
// @Description Retrieves a request with its bid list
// @Tags requests
// @Produce  json
// @Param   id path string true "Request ID"
// @Success 200 {object} dto.RequestResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 500 {object} map[string]string "Failed to retrieve request"
// @Security BearerAuth
// @Router /requests/{id} [get]
func (h *requestHandler) getRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")

	request, err := h.requestService.GetRequest(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Request not found", slog.String("request_id", requestID))
			c.JSON(http.StatusNotFound, gin.H{"error": "Request not found"})
		} else {
			logger.Error("Failed to get request from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve request"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToRequestResponse(request))
}

// listRequests godoc
// @Summary List requests
// @Description Retrieves a paginated list of requests, optionally filtered by status, category or client
// @Tags requests
// @Produce  json
// @Param   status query string false "Filter by status"
// @Param   category query string false "Filter by category"
// @Param   clientID query string false "Filter by posting client"
// @Param   limit query int false "Limit number of results" default(20)
// @Param   offset query int false "Offset for pagination" default(0)
// @Success 200 {array} dto.RequestResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list requests"
// @Security BearerAuth
// @Router /requests [get]
func (h *requestHandler) listRequests(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	var params dto.ListRequestsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListRequests", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	requests, err := h.requestService.ListRequests(c.Request.Context(), params)
	if err != nil {
		logger.Error("Failed to list requests from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list requests"})
		return
	}

	c.JSON(http.StatusOK, dto.ToRequestResponses(requests))
}

// cancelRequest godoc
// @Summary Cancel a request
// @Description Withdraws a request before its payment is captured; only the posting client may cancel
// @Tags requests
// @Produce  json
// @Param   id path string true "Request ID"
// @Success 200 {object} dto.RequestResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Request not found"
// @Failure 409 {object} map[string]string "Request is no longer open"
// @Failure 500 {object} map[string]string "Failed to cancel request"
// @Security BearerAuth
// @Router /requests/{id}/cancel [post]
func (h *requestHandler) cancelRequest(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	requestID := c.Param("id")

	clientID, ok := middleware.GetUserIDFromCtx(c.Request.Context())
	if !ok {
		logger.Error("Client user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("request_id", requestID))
	logger.Info("Received request to cancel service request")

	request, err := h.requestService.CancelRequest(c.Request.Context(), requestID, clientID)
	if err != nil {
		status := serviceErrorStatus(err)
		if status == http.StatusInternalServerError {
			logger.Error("Failed to cancel request in service", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": "Failed to cancel request"})
		} else {
			logger.Warn("Rejected cancel request", slog.String("error", err.Error()))
			c.JSON(status, gin.H{"error": err.Error()})
		}
		return
	}

	logger.Info("Request cancelled successfully")
	c.JSON(http.StatusOK, dto.ToRequestResponse(request))
}
