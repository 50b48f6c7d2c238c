package handlers

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// HealthHandler reports liveness and readiness of the backend's
// dependencies: the database and the attachment store.
type HealthHandler struct {
	db          *gorm.DB
	storagePath string
}

// NewHealthHandler creates a new HealthHandler. An empty storagePath
// disables the storage check.
func NewHealthHandler(db *gorm.DB, storagePath string) *HealthHandler {
	return &HealthHandler{db: db, storagePath: storagePath}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c echo.Context) error {
	services := map[string]string{
		"database": "healthy",
		"storage":  "healthy",
	}
	status := "healthy"

	if err := h.pingDatabase(); err != nil {
		services["database"] = "unhealthy"
		status = "unhealthy"
	}
	if err := h.checkStorage(); err != nil {
		services["storage"] = "unhealthy"
		status = "unhealthy"
	}

	statusCode := http.StatusOK
	if status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, HealthResponse{
		Status:   status,
		Services: services,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c echo.Context) error {
	if err := h.pingDatabase(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "database ping failed",
		})
	}

	if err := h.checkStorage(); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "attachment storage unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *HealthHandler) pingDatabase() error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// checkStorage verifies the attachment directory still exists. It can
// disappear underneath a running server when the volume unmounts.
func (h *HealthHandler) checkStorage() error {
	if h.storagePath == "" {
		return nil
	}
	info, err := os.Stat(h.storagePath)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", h.storagePath)
	}
	return nil
}
