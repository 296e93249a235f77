package config

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simora-backend/internal/domain"
	configService "simora-backend/internal/service/config"
	apperrors "simora-backend/pkg/errors"
)

// Handler serves notification config endpoints
type Handler struct {
	service *configService.Service
}

// NewHandler creates a new config handler
func NewHandler(service *configService.Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes wires the config routes. Reads are for every device;
// writes are the back-office surface and sit behind the admin group.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, admin *gin.RouterGroup) {
	api.GET("/notifications/configs", h.List)

	admin.POST("/notifications/configs", h.Create)
	admin.PUT("/notifications/configs/:key", h.Update)
	admin.DELETE("/notifications/configs/:key", h.Delete)
}

// List returns all notification configs ordered by sort order
func (h *Handler) List(c *gin.Context) {
	configs, err := h.service.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notification configs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"configs": configs})
}

// Create adds a new notification config
func (h *Handler) Create(c *gin.Context) {
	var config domain.NotificationConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if err := h.service.Create(c.Request.Context(), &config); err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}

	c.JSON(http.StatusCreated, config)
}

// Update replaces an existing notification config
func (h *Handler) Update(c *gin.Context) {
	var config domain.NotificationConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	config.Key = c.Param("key")

	if err := h.service.Update(c.Request.Context(), &config); err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}

	c.JSON(http.StatusOK, config)
}

// Delete removes a notification config
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("key")); err != nil {
		appErr := apperrors.GetAppError(err)
		c.JSON(appErr.StatusCode, gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("key")})
}
