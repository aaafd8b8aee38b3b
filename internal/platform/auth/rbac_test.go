package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles []string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/augment", nil)
	if roles != nil {
		req = req.WithContext(withIdentity(context.Background(), "u1", roles))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		roles   []string
		allowed bool
	}{
		{"analyst", []string{RoleAnalyst}, true},
		{"admin bypass", []string{RoleAdmin}, true},
		{"one of many", []string{"viewer", RoleAnalyst}, true},
		{"other role", []string{"viewer"}, false},
		{"no roles", []string{}, false},
		{"anonymous", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			h := RequireRole(RoleAnalyst)(func(c echo.Context) error {
				called = true
				return nil
			})
			err := h(contextWithRoles(tt.roles))
			if tt.allowed {
				if err != nil || !called {
					t.Fatalf("expected access, got err=%v called=%v", err, called)
				}
				return
			}
			if called {
				t.Error("handler should not run")
			}
			expectStatus(t, err, http.StatusForbidden)
		})
	}
}
