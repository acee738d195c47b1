package handlers

import (
	"net/http"
	"strconv"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errInvalidBodyPref = "invalid body: "
	errInvalidID       = "invalid id"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError maps a service error onto its status. Internal errors are logged
// and their details withheld.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	e := service.AsError(err)
	status := e.HTTPStatus()
	if status >= http.StatusInternalServerError && h.log != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(status, errorResponse{Error: e.Message, Code: e.Code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: service.CodeValidation})
}

// bindJSON binds the body and writes a 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, errInvalidBodyPref+err.Error())
		return false
	}
	return true
}

// intParam reads a non-negative integer path parameter and writes a 400 on failure.
func intParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		badRequest(c, errInvalidID)
		return 0, false
	}
	return v, true
}
