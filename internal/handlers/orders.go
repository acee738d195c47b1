package handlers

import (
	"net/http"
	"strings"

	"line_supervisor/internal/models"

	"github.com/gin-gonic/gin"
)

// OrderRequest creates a production order.
type OrderRequest struct {
	Code        string `json:"code" binding:"required" example:"OP-2025-001"`
	Product     string `json:"product" binding:"required" example:"045CP01"`
	Description string `json:"description,omitempty"`
	Target      int    `json:"target" binding:"required,min=1" example:"120"`
	Status      string `json:"status,omitempty" example:"ABERTA"`
}

type orderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// @Summary      Create production order
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        body  body      OrderRequest  true  "Order"
// @Success      201   {object}  models.ProductionOrder
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/orders [post]
// @Security     BearerAuth
func (h *Handler) createOrder(c *gin.Context) {
	var req OrderRequest
	if !bindJSON(c, &req) {
		return
	}
	o, err := h.services.CreateOrder(c.Request.Context(), models.ProductionOrder{
		Code:        req.Code,
		Product:     req.Product,
		Description: req.Description,
		Target:      req.Target,
		Status:      req.Status,
	})
	if err != nil {
		h.respondError(c, "order_create_failed", err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary      List production orders
// @Tags         orders
// @Produce      json
// @Param        status  query     string  false  "Order status"  Enums(ABERTA,EM_EXECUCAO,FINALIZADA)
// @Success      200     {object}  map[string]interface{}  "count, orders"
// @Router       /api/v1/orders [get]
// @Security     BearerAuth
func (h *Handler) listOrders(c *gin.Context) {
	status := strings.ToUpper(strings.TrimSpace(c.Query("status")))
	orders, err := h.services.ListOrders(c.Request.Context(), status)
	if err != nil {
		h.respondError(c, "order_list_failed", err, "status", status)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

func (h *Handler) getOrder(c *gin.Context) {
	o, err := h.services.GetOrder(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.respondError(c, "order_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req orderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	code := c.Param("code")
	if err := h.services.UpdateOrderStatus(c.Request.Context(), code, req.Status); err != nil {
		h.respondError(c, "order_status_failed", err, "order", code)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "status": strings.ToUpper(strings.TrimSpace(req.Status))})
}

// @Summary      Delete production order
// @Tags         orders
// @Param        code              path    string  true  "Order code"
// @Param        X-Admin-Password  header  string  true  "Admin password"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /api/v1/orders/{code} [delete]
// @Security     BearerAuth
func (h *Handler) deleteOrder(c *gin.Context) {
	if err := h.services.DeleteOrder(c.Request.Context(), c.Param("code")); err != nil {
		h.respondError(c, "order_delete_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
