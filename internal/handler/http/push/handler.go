package push

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simora-backend/internal/middleware"
	"simora-backend/pkg/push"
)

// Handler serves push token registration endpoints
type Handler struct {
	service *push.Service
}

// NewHandler creates a new push handler
func NewHandler(service *push.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the push token routes
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/push/tokens", h.Register)
	api.DELETE("/push/tokens", h.UnregisterAll)
}

type registerTokenRequest struct {
	Token    string `json:"token" binding:"required"`
	Type     string `json:"type" binding:"required"`
	Platform string `json:"platform"`
}

// Register stores a device push token for the caller
func (h *Handler) Register(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req registerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	token := &push.Token{
		UserID:   userID,
		Token:    req.Token,
		Type:     push.TokenType(req.Type),
		Platform: req.Platform,
		Active:   true,
	}

	if err := h.service.RegisterToken(c.Request.Context(), token); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"status": "registered"})
}

// UnregisterAll removes every push token for the caller (logout)
func (h *Handler) UnregisterAll(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.service.UnregisterAllTokens(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unregister tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "unregistered"})
}
