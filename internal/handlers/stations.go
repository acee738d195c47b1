package handlers

import (
	"net/http"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// CommandRequest is a station command. lock_fields, unlock_fields and
// request_allocation are handled locally; other actions go to the station device.
type CommandRequest struct {
	Action string         `json:"action" binding:"required" example:"lock_fields"`
	Args   map[string]any `json:"args,omitempty"`
}

type allocateRequest struct {
	OperatorID int `json:"operator_id" binding:"required,min=1"`
}

// @Summary      List stations
// @Tags         stations
// @Produce      json
// @Success      200  {array}  models.StationView
// @Router       /api/v1/stations [get]
// @Security     BearerAuth
func (h *Handler) listStations(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ListStations())
}

// @Summary      Station snapshot
// @Tags         stations
// @Produce      json
// @Param        id   path      int  true  "Station number, 0-based"
// @Success      200  {object}  models.StationView
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/stations/{id} [get]
// @Security     BearerAuth
func (h *Handler) getStation(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	v, err := h.services.GetStation(id)
	if err != nil {
		h.respondError(c, "station_get_failed", err, "station", id)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Station command
// @Tags         stations
// @Accept       json
// @Produce      json
// @Param        id    path      int             true  "Station number"
// @Param        body  body      CommandRequest  true  "Command"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /api/v1/stations/{id}/command [post]
// @Security     BearerAuth
func (h *Handler) stationCommand(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req CommandRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.services.StationCommand(c.Request.Context(), id, service.CommandParams{Action: req.Action, Args: req.Args}); err != nil {
		h.respondError(c, "station_command_failed", err, "station", id, "action", req.Action)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) allocateOperator(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req allocateRequest
	if !bindJSON(c, &req) {
		return
	}
	op, err := h.services.Allocate(c.Request.Context(), id, req.OperatorID)
	if err != nil {
		h.respondError(c, "operator_allocate_failed", err, "station", id)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (h *Handler) deallocateOperator(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.Deallocate(c.Request.Context(), id); err != nil {
		h.respondError(c, "operator_deallocate_failed", err, "station", id)
		return
	}
	c.Status(http.StatusNoContent)
}
