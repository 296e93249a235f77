package schedule

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"simora-backend/internal/middleware"
	"simora-backend/internal/scheduler"
)

// Handler exposes the scheduling lifecycle hooks the app calls on launch,
// resume and logout.
type Handler struct {
	manager *scheduler.Manager
}

// NewHandler creates a new schedule handler
func NewHandler(manager *scheduler.Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes wires the schedule routes
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	api.POST("/notifications/replan", h.Replan)
	api.DELETE("/notifications/session", h.EndSession)
}

// Replan runs the scheduling pipeline for the caller. Called on app launch
// and resume; unchanged inputs make it a cheap no-op.
func (h *Handler) Replan(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	result, err := h.manager.Replan(c.Request.Context(), userID)
	if err != nil {
		// Transient fetch failure; the device keeps its current schedule
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Replan skipped, will retry"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// EndSession tears the caller's scheduling session down: unsubscribes the
// realtime listener and cancels all scheduled entries (logout).
func (h *Handler) EndSession(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.manager.Detach(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "session ended"})
}
