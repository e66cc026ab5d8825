package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/service"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/response"
)

// CatalogHandler exposes the read-only reference data endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(svc *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// ListTeachers godoc
// @Summary List active teachers
// @Tags Catalog
// @Produce json
// @Param orgId query string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /teachers [get]
func (h *CatalogHandler) ListTeachers(c *gin.Context) {
	teachers, err := h.service.ListTeachers(c.Request.Context(), c.Query("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, nil)
}

// GetTeacher godoc
// @Summary Get a teacher
// @Tags Catalog
// @Produce json
// @Param id path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id} [get]
func (h *CatalogHandler) GetTeacher(c *gin.Context) {
	teacher, err := h.service.GetTeacher(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teacher, nil)
}

// ListClasses godoc
// @Summary List active classes
// @Tags Catalog
// @Produce json
// @Param orgId query string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /classes [get]
func (h *CatalogHandler) ListClasses(c *gin.Context) {
	classes, err := h.service.ListClasses(c.Request.Context(), c.Query("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, classes, nil)
}

// ListSubjects godoc
// @Summary List subjects
// @Tags Catalog
// @Produce json
// @Param orgId query string true "Organization ID"
// @Success 200 {object} response.Envelope
// @Router /subjects [get]
func (h *CatalogHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.service.ListSubjects(c.Request.Context(), c.Query("orgId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, subjects, nil)
}
