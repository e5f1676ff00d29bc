package handlers

import (
	"net/http"

	"molbhav/models"
	"molbhav/services/negotiation"
	"molbhav/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NegotiationHandler exposes the request lifecycle to customers: create,
// negotiate, inspect, select, cancel.
type NegotiationHandler struct {
	Service negotiation.NegotiationService
}

// NewNegotiationHandler creates a new NegotiationHandler.
func NewNegotiationHandler(svc negotiation.NegotiationService) *NegotiationHandler {
	return &NegotiationHandler{Service: svc}
}

// authedUserID pulls the user id set by the auth middleware.
func authedUserID(c *gin.Context) (string, bool) {
	id, ok := c.Get("userID")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", false
	}
	idStr, ok := id.(string)
	if !ok || idStr == "" {
		utils.GetLogger().Error("Invalid user ID type", zap.Any("userID", id))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID type"})
		return "", false
	}
	return idStr, true
}

// respondServiceError maps negotiation service errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	if nerr, ok := err.(*negotiation.Error); ok {
		switch nerr.Code {
		case negotiation.CodeNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": nerr.Message})
		case negotiation.CodeUnauthorized:
			c.JSON(http.StatusForbidden, gin.H{"error": nerr.Message})
		case negotiation.CodeInvalidState:
			c.JSON(http.StatusConflict, gin.H{"error": nerr.Message})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": nerr.Message})
		}
		return
	}
	utils.GetLogger().Error("Negotiation service error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// CreateRequestHandler handles POST /api/requests.
func (h *NegotiationHandler) CreateRequestHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}

	var input struct {
		Description       string   `json:"description" binding:"required"`
		ServiceCategories []string `json:"serviceCategories" binding:"required,min=1"`
		Location          struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location" binding:"required"`
		CustomerBudget float64 `json:"customerBudget" binding:"required,gt=0"`
		PreferredDate  string  `json:"preferredDate"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}
	if input.Location.Lat < -90 || input.Location.Lat > 90 ||
		input.Location.Lng < -180 || input.Location.Lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location coordinates"})
		return
	}

	req := &models.ServiceRequest{
		CustomerID:        userID,
		Description:       input.Description,
		ServiceCategories: input.ServiceCategories,
		LocationGeo: models.GeoPoint{
			Type:        "Point",
			Coordinates: []float64{input.Location.Lng, input.Location.Lat},
		},
		CustomerBudget: input.CustomerBudget,
		PreferredDate:  input.PreferredDate,
	}
	created, err := h.Service.CreateRequest(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// StartNegotiationHandler handles POST /api/requests/:id/negotiate. It returns
// as soon as the fan-out is queued; providers are contacted in the background.
func (h *NegotiationHandler) StartNegotiationHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")

	if err := h.Service.StartNegotiation(c.Request.Context(), userID, requestID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"requestId": requestID,
		"message":   "Negotiations are starting. Check back for offers.",
	})
}

// GetRequestStatusHandler handles GET /api/requests/:id.
func (h *NegotiationHandler) GetRequestStatusHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")

	status, err := h.Service.GetStatus(c.Request.Context(), userID, requestID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// ListOffersHandler handles GET /api/requests/:id/offers.
func (h *NegotiationHandler) ListOffersHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")

	offers, err := h.Service.ListOffers(c.Request.Context(), userID, requestID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requestId": requestID, "offers": offers})
}

// SelectOfferHandler handles POST /api/requests/:id/select.
func (h *NegotiationHandler) SelectOfferHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")

	var input struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "details": err.Error()})
		return
	}

	booking, err := h.Service.SelectOffer(c.Request.Context(), userID, requestID, input.SessionID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

// CancelRequestHandler handles DELETE /api/requests/:id.
func (h *NegotiationHandler) CancelRequestHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	requestID := c.Param("id")

	if err := h.Service.CancelRequest(c.Request.Context(), userID, requestID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request cancelled"})
}

// CancelNegotiationHandler handles DELETE /api/negotiations/:sessionId.
func (h *NegotiationHandler) CancelNegotiationHandler(c *gin.Context) {
	userID, ok := authedUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("sessionId")

	if err := h.Service.CancelNegotiation(c.Request.Context(), userID, sessionID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Negotiation cancelled"})
}
