// Package handlers contains the handlers for the API
package handlers

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/pkg/utils/response"
)

// IndexResponseData is the response data for the index endpoint
type IndexResponseData struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// IndexHandler answers the API root
type IndexHandler struct {
	cfg *config.Config
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(cfg *config.Config) *IndexHandler {
	return &IndexHandler{cfg: cfg}
}

// Index returns the API name and version
func (h *IndexHandler) Index(c echo.Context) error {
	return response.SuccessResponse(c, IndexResponseData{
		Message:   fmt.Sprintf("%s %s", h.cfg.APIName, h.cfg.APIVersion),
		Timestamp: time.Now().Format("2006-01-02 15:04:05"),
	})
}
