package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kube-rca/oncall-agent/internal/model"
	"github.com/kube-rca/oncall-agent/internal/service"
	"github.com/kube-rca/oncall-agent/internal/store"
)

type CallsHandler struct {
	calls     *store.CallStore
	frequency *service.FrequencyTracker
}

func NewCallsHandler(calls *store.CallStore, frequency *service.FrequencyTracker) *CallsHandler {
	return &CallsHandler{calls: calls, frequency: frequency}
}

// ListCalls godoc
// @Summary List active call records
// @Tags calls
// @Produce json
// @Success 200 {object} model.CallListResponse
// @Router /api/v1/calls [get]
func (h *CallsHandler) ListCalls(c *gin.Context) {
	c.JSON(http.StatusOK, model.CallListResponse{
		Status: "success",
		Data:   h.calls.Active(),
	})
}

// GetCall godoc
// @Summary Get call record detail
// @Tags calls
// @Produce json
// @Param id path string true "Call record ID"
// @Success 200 {object} model.CallDetailEnvelope
// @Failure 404 {object} model.ErrorResponse
// @Router /api/v1/calls/{id} [get]
func (h *CallsHandler) GetCall(c *gin.Context) {
	id := c.Param("id")

	rec, err := h.calls.Get(id)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: "call record not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	resp := model.CallDetailEnvelope{Status: "success", Data: &rec}
	if decision, err := h.calls.Decision(id); err == nil {
		resp.Decision = &decision
	}
	c.JSON(http.StatusOK, resp)
}

// ListFrequencies godoc
// @Summary Current error frequency windows
// @Tags frequencies
// @Produce json
// @Success 200 {object} model.FrequencyListResponse
// @Router /api/v1/frequencies [get]
func (h *CallsHandler) ListFrequencies(c *gin.Context) {
	c.JSON(http.StatusOK, model.FrequencyListResponse{
		Status: "success",
		Data:   h.frequency.Snapshot(),
	})
}
