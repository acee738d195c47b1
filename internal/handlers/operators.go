package handlers

import (
	"net/http"

	"line_supervisor/internal/models"
	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// OperatorRequest creates or updates a catalog operator.
type OperatorRequest struct {
	Name    string `json:"name" binding:"required" example:"Ana Souza"`
	Photo   string `json:"photo,omitempty" example:"ana.png"`
	RFIDTag string `json:"rfid_tag,omitempty" example:"04A1B2C3"`
}

// CheckInRequest is an RFID badge read at a station. Direction is "entrada" or "saida".
type CheckInRequest struct {
	Station   *int   `json:"station" binding:"required,min=0" example:"1"`
	RFIDTag   string `json:"rfid_tag" binding:"required" example:"04A1B2C3"`
	Direction string `json:"direction" binding:"required" example:"entrada"`
}

func (r OperatorRequest) operator(id int) models.Operator {
	return models.Operator{ID: id, Name: r.Name, Photo: r.Photo, RFIDTag: r.RFIDTag}
}

// @Summary      Create operator
// @Tags         operators
// @Accept       json
// @Produce      json
// @Param        body  body      OperatorRequest  true  "Operator"
// @Success      201   {object}  models.Operator
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/operators [post]
// @Security     BearerAuth
func (h *Handler) createOperator(c *gin.Context) {
	var req OperatorRequest
	if !bindJSON(c, &req) {
		return
	}
	op, err := h.services.CreateOperator(c.Request.Context(), req.operator(0))
	if err != nil {
		h.respondError(c, "operator_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, op)
}

// @Summary      List operators
// @Tags         operators
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, operators"
// @Router       /api/v1/operators [get]
// @Security     BearerAuth
func (h *Handler) listOperators(c *gin.Context) {
	ops, err := h.services.ListOperators(c.Request.Context())
	if err != nil {
		h.respondError(c, "operator_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(ops), "operators": ops})
}

func (h *Handler) getOperator(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	op, err := h.services.GetOperator(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "operator_get_failed", err, "operator_id", id)
		return
	}
	c.JSON(http.StatusOK, op)
}

func (h *Handler) updateOperator(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var req OperatorRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.services.UpdateOperator(c.Request.Context(), req.operator(id)); err != nil {
		h.respondError(c, "operator_update_failed", err, "operator_id", id)
		return
	}
	c.JSON(http.StatusOK, req.operator(id))
}

// @Summary      Delete operator
// @Description  Requires the admin password in X-Admin-Password. An allocated operator is released first.
// @Tags         operators
// @Param        id                path    int     true  "Operator id"
// @Param        X-Admin-Password  header  string  true  "Admin password"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/operators/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteOperator(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := h.services.DeleteOperator(c.Request.Context(), id); err != nil {
		h.respondError(c, "operator_delete_failed", err, "operator_id", id)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary      RFID check-in / check-out
// @Tags         operators
// @Accept       json
// @Produce      json
// @Param        body  body      CheckInRequest  true  "Badge read"
// @Success      200   {object}  models.Operator
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /api/v1/operators/checkin [post]
// @Security     BearerAuth
func (h *Handler) checkIn(c *gin.Context) {
	var req CheckInRequest
	if !bindJSON(c, &req) {
		return
	}
	op, err := h.services.CheckIn(c.Request.Context(), service.CheckInParams{
		Station:   *req.Station,
		RFIDTag:   req.RFIDTag,
		Direction: req.Direction,
	})
	if err != nil {
		h.respondError(c, "operator_checkin_failed", err, "station", *req.Station)
		return
	}
	c.JSON(http.StatusOK, op)
}
