package handlers

import (
	"net/http"
	"strings"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	ctxSubject          = "subject"
	adminPasswordHeader = "X-Admin-Password"
)

// authMiddleware checks the bearer token when a signing key is configured.
// Without one the control routes are open, as on an isolated plant network.
func (h *Handler) authMiddleware(c *gin.Context) {
	if !h.services.AuthEnabled() {
		c.Next()
		return
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Error: "missing Authorization header", Code: service.CodeUnauthorized,
		})
		return
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Error: "invalid Authorization header format", Code: service.CodeUnauthorized,
		})
		return
	}

	subject, err := h.services.ParseToken(parts[1])
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
			Error: "invalid or expired token", Code: service.CodeUnauthorized,
		})
		return
	}

	c.Set(ctxSubject, subject)
	c.Next()
}

// adminOnly guards catalog deletes with the admin password.
func (h *Handler) adminOnly(c *gin.Context) {
	if err := h.services.VerifyAdmin(c.GetHeader(adminPasswordHeader)); err != nil {
		if h.log != nil {
			h.log.Infow("admin_check_failed", "path", c.FullPath(), "err", err)
		}
		c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{
			Error: "admin password required", Code: service.CodeUnauthorized,
		})
		return
	}
	c.Next()
}
