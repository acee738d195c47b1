package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"line_supervisor/internal/service"

	"github.com/gin-gonic/gin"
)

// minimal router wiring only the middleware + a protected endpoint
func newMiddlewareOnlyRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewHandler(s, nil, nil)
	r.GET("/secure", h.authMiddleware, func(c *gin.Context) {
		sub, _ := c.Get(ctxSubject)
		c.JSON(http.StatusOK, gin.H{"ok": true, "subject": sub})
	})
	r.DELETE("/admin", h.adminOnly, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestAuthMiddleware_Errors(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		parseErr error
		errMsg   string
	}{
		{"missing header", "", nil, "missing Authorization header"},
		{"invalid scheme", "Token abc", nil, "invalid Authorization header format"},
		{"bearer without token", "Bearer", nil, "invalid Authorization header format"},
		{"expired/invalid token", "Bearer expired", errors.New("expired"), "invalid or expired token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{enabled: true, parseErr: tc.parseErr}
			r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status: got %d, want 401 (body=%s)", w.Code, w.Body.String())
			}
			var out errorResponse
			_ = json.Unmarshal(w.Body.Bytes(), &out)
			if out.Error != tc.errMsg || out.Code != service.CodeUnauthorized {
				t.Fatalf("got %+v, want error %q", out, tc.errMsg)
			}
		})
	}
}

func TestAuthMiddleware_SuccessSetsSubject(t *testing.T) {
	auth := &mockAuth{enabled: true, parseSub: "supervisor-1"}
	r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d; body=%s", w.Code, w.Body.String())
	}
	var resp struct {
		OK      bool   `json:"ok"`
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || resp.Subject != "supervisor-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if auth.lastParseToken != "good-token" {
		t.Fatalf("ParseToken got %q", auth.lastParseToken)
	}
}

func TestAuthMiddleware_DisabledPassesThrough(t *testing.T) {
	r := newMiddlewareOnlyRouter(&service.Service{Authorization: &mockAuth{}})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secure", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d, want 200", w.Code)
	}
}

func TestAdminOnly(t *testing.T) {
	auth := &mockAuth{verifyErr: service.ErrInvalidPassword}
	r := newMiddlewareOnlyRouter(&service.Service{Authorization: auth})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/admin", nil)
	req.Header.Set(adminPasswordHeader, "wrong")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status: got %d, want 403", w.Code)
	}
	if auth.lastPassword != "wrong" {
		t.Fatalf("password not forwarded: %q", auth.lastPassword)
	}

	auth.verifyErr = nil
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/admin", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want 204", w.Code)
	}
}
