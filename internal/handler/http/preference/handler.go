package preference

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simora-backend/internal/domain"
	"simora-backend/internal/middleware"
	preferenceService "simora-backend/internal/service/preference"
)

// Handler serves user notification preference endpoints
type Handler struct {
	service *preferenceService.Service
}

// NewHandler creates a new preference handler
func NewHandler(service *preferenceService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the preference routes
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.GET("/notifications/preferences", h.Get)
	api.PUT("/notifications/preferences", h.Update)
}

// Get returns the caller's resolved preferences (defaults substituted)
func (h *Handler) Get(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	prefs := h.service.Resolve(c.Request.Context(), userID)
	c.JSON(http.StatusOK, prefs)
}

// Update applies a partial preference update for the caller
func (h *Handler) Update(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var update domain.NotificationPreferenceUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	prefs, err := h.service.Update(c.Request.Context(), userID, &update)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}

	c.JSON(http.StatusOK, prefs)
}
