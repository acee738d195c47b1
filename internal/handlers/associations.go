package handlers

import (
	"net/http"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// AssociationRequest links a pallet to the product it carries. Codes are
// matched case-insensitively and stored upper case.
type AssociationRequest struct {
	ProductCode string `json:"product_code" binding:"required,productcode" example:"045CP01002"`
	PalletCode  string `json:"pallet_code" binding:"required,palletcode" example:"PLT07"`
}

// @Summary      Associate pallet and product
// @Description  Rejected with 400 while production is off and with 409 ALREADY_ASSOCIATED when the pallet or product is taken.
// @Tags         associations
// @Accept       json
// @Produce      json
// @Param        body  body      AssociationRequest  true  "Codes"
// @Success      201   {object}  models.Association
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /api/v1/associations [post]
// @Security     BearerAuth
func (h *Handler) createAssociation(c *gin.Context) {
	var req AssociationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, errInvalidBodyPref+err.Error())
		return
	}
	a, err := h.services.Associate(c.Request.Context(), service.AssociationParams{
		PalletCode:  req.PalletCode,
		ProductCode: req.ProductCode,
	})
	if err != nil {
		h.respondError(c, "association_failed", err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// @Summary      List pallet associations of the current run
// @Tags         associations
// @Produce      json
// @Success      200  {array}  models.Association
// @Router       /api/v1/associations [get]
// @Security     BearerAuth
func (h *Handler) listAssociations(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.ListAssociations())
}
