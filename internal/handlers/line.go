package handlers

import (
	"net/http"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// StartRequest is the payload of POST /line/start. Target accepts a number or a numeric string.
type StartRequest struct {
	Target         any    `json:"target" example:"120"`
	OrderReference string `json:"order_reference,omitempty" example:"OP-1"`
}

// TargetRequest is the payload of PUT /line/target.
type TargetRequest struct {
	Target any `json:"target" example:"150"`
}

// @Summary      Start production
// @Description  Locks the console fields and starts the timer. With equipment acknowledgement enabled the line stays ARMED until the PLC confirms.
// @Tags         line
// @Accept       json
// @Produce      json
// @Param        body  body      StartRequest  true  "Target and optional order"
// @Success      200   {object}  models.GlobalView
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/line/start [post]
// @Security     BearerAuth
func (h *Handler) startLine(c *gin.Context) {
	var req StartRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.services.Start(c.Request.Context(), service.StartParams{Target: req.Target, OrderReference: req.OrderReference})
	if err != nil {
		h.respondError(c, "line_start_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Stop production
// @Tags         line
// @Produce      json
// @Success      200  {object}  models.GlobalView
// @Router       /api/v1/line/stop [post]
// @Security     BearerAuth
func (h *Handler) stopLine(c *gin.Context) {
	v, err := h.services.Stop(c.Request.Context())
	if err != nil {
		h.respondError(c, "line_stop_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Restart production
// @Description  Clears status, timer, counter, target and pallet associations. Operator allocation is kept.
// @Tags         line
// @Produce      json
// @Success      200  {object}  models.GlobalView
// @Router       /api/v1/line/restart [post]
// @Security     BearerAuth
func (h *Handler) restartLine(c *gin.Context) {
	v, err := h.services.Restart(c.Request.Context())
	if err != nil {
		h.respondError(c, "line_restart_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Reset production counter
// @Tags         line
// @Produce      json
// @Success      200  {object}  models.GlobalView
// @Router       /api/v1/line/reset-counter [post]
// @Security     BearerAuth
func (h *Handler) resetCounter(c *gin.Context) {
	v, err := h.services.ResetCounter(c.Request.Context())
	if err != nil {
		h.respondError(c, "line_reset_counter_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Change production target
// @Tags         line
// @Accept       json
// @Produce      json
// @Param        body  body      TargetRequest  true  "New target"
// @Success      200   {object}  models.GlobalView
// @Failure      400   {object}  errorResponse
// @Router       /api/v1/line/target [put]
// @Security     BearerAuth
func (h *Handler) setTarget(c *gin.Context) {
	var req TargetRequest
	if !bindJSON(c, &req) {
		return
	}
	v, err := h.services.SetTarget(c.Request.Context(), req.Target)
	if err != nil {
		h.respondError(c, "line_set_target_failed", err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// @Summary      Line state
// @Tags         line
// @Produce      json
// @Success      200  {object}  models.GlobalView
// @Router       /api/v1/line/state [get]
// @Security     BearerAuth
func (h *Handler) getLineState(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.LineState())
}

// @Summary      Health check
// @Description  503 when the station table or the operator allocation is inconsistent.
// @Tags         system
// @Produce      json
// @Success      200  {object}  service.HealthReport
// @Failure      503  {object}  service.HealthReport
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	rep, err := h.services.Check()
	if err != nil {
		if h.log != nil {
			h.log.Errorw("health_check_failed", "err", err)
		}
		c.JSON(http.StatusServiceUnavailable, rep)
		return
	}
	c.JSON(http.StatusOK, rep)
}
