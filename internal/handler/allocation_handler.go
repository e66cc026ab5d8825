package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Rareminds-eym/skillpassport-sub038/internal/dto"
	"github.com/Rareminds-eym/skillpassport-sub038/internal/service"
	appErrors "github.com/Rareminds-eym/skillpassport-sub038/pkg/errors"
	"github.com/Rareminds-eym/skillpassport-sub038/pkg/response"
)

// AllocationHandler manages slot placement endpoints.
type AllocationHandler struct {
	service *service.AllocationService
}

// NewAllocationHandler constructs handler.
func NewAllocationHandler(svc *service.AllocationService) *AllocationHandler {
	return &AllocationHandler{service: svc}
}

// slotResultStatus maps a rejected placement to 409 so clients can branch on
// the status code alone; the envelope still carries the conflict details.
func slotResultStatus(result *dto.SlotResult, committed int) int {
	if result != nil && !result.Committed {
		return http.StatusConflict
	}
	return committed
}

// AddSlot godoc
// @Summary Place a slot in a timetable
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body service.AddSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /timetables/{id}/slots [post]
func (h *AllocationHandler) AddSlot(c *gin.Context) {
	var req service.AddSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	req.TimetableID = c.Param("id")
	result, err := h.service.AddSlot(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, slotResultStatus(result, http.StatusCreated), result, nil)
}

// UpdateSlot godoc
// @Summary Update a slot
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpdateSlotRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *AllocationHandler) UpdateSlot(c *gin.Context) {
	var req service.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdateSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, slotResultStatus(result, http.StatusOK), result, nil)
}

// MoveSlot godoc
// @Summary Move a slot to another day and period
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.MoveSlotRequest true "Target coordinates"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /slots/{id}/move [patch]
func (h *AllocationHandler) MoveSlot(c *gin.Context) {
	var req service.MoveSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.MoveSlot(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, slotResultStatus(result, http.StatusOK), result, nil)
}

// DeleteSlot godoc
// @Summary Delete a slot
// @Tags Allocation
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *AllocationHandler) DeleteSlot(c *gin.Context) {
	if err := h.service.DeleteSlot(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Generate godoc
// @Summary Auto-generate slots for a draft timetable
// @Tags Allocation
// @Accept json
// @Produce json
// @Param id path string true "Timetable ID"
// @Param payload body service.GenerateRequest true "Generation parameters"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/generate [post]
func (h *AllocationHandler) Generate(c *gin.Context) {
	var req service.GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.AutoGenerate(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// ListConflicts godoc
// @Summary List outstanding conflicts in a timetable
// @Tags Allocation
// @Produce json
// @Param id path string true "Timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/conflicts [get]
func (h *AllocationHandler) ListConflicts(c *gin.Context) {
	conflicts, err := h.service.ListConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// GetWorkload godoc
// @Summary Get a teacher's workload summary
// @Tags Allocation
// @Produce json
// @Param id path string true "Timetable ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/teachers/{teacherId}/workload [get]
func (h *AllocationHandler) GetWorkload(c *gin.Context) {
	workload, err := h.service.GetWorkload(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, workload, nil)
}

// GetTeacherSchedule godoc
// @Summary Get a teacher's slots and workload in a timetable
// @Tags Allocation
// @Produce json
// @Param id path string true "Timetable ID"
// @Param teacherId path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/{id}/teachers/{teacherId}/slots [get]
func (h *AllocationHandler) GetTeacherSchedule(c *gin.Context) {
	view, err := h.service.GetTeacherSchedule(c.Request.Context(), c.Param("id"), c.Param("teacherId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}
