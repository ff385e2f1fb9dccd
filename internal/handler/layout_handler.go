package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/result-portal/internal/model"
	"github.com/stemsi/result-portal/internal/response"
)

// LayoutHandler publishes the exam layout.
type LayoutHandler struct {
	layout *model.ExamLayout
}

// NewLayoutHandler creates a new LayoutHandler.
func NewLayoutHandler(layout *model.ExamLayout) *LayoutHandler {
	return &LayoutHandler{layout: layout}
}

// GetLayout godoc
// GET /api/v1/public/layout
func (h *LayoutHandler) GetLayout(c *gin.Context) {
	response.Success(c, http.StatusOK, h.layout)
}
