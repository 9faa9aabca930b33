package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/hse-ops/hazard-report-api/internal/service"
	appErrors "github.com/hse-ops/hazard-report-api/pkg/errors"
	"github.com/hse-ops/hazard-report-api/pkg/response"
)

// OrderHandler exposes the shared order files.
type OrderHandler struct {
	orders *service.OrderService
}

// NewOrderHandler constructs OrderHandler.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List enumerates available order files.
func (h *OrderHandler) List(c *gin.Context) {
	files, err := h.orders.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, files, nil)
}

// Download streams one order file. The name is flattened to its base so
// the handler cannot be walked out of the orders directory.
func (h *OrderHandler) Download(c *gin.Context) {
	name := filepath.Base(c.Param("filename"))
	if name == "." || name == string(filepath.Separator) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid file name"))
		return
	}
	file, err := h.orders.Open(name)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat order file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.DataFromReader(http.StatusOK, info.Size(), "application/octet-stream", file, nil)
}
