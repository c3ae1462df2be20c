package service

import (
	"net/http"
	"testing"
)

func TestAuthEndpoints(t *testing.T) {
	router, token := newTestServer(t)

	t.Run("login returns a fresh session", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
			"email":    "owner@example.com",
			"password": "correct horse",
		})
		if resp.Code != http.StatusOK {
			t.Fatalf("login returned %d: %s", resp.Code, resp.Body.String())
		}
		var session struct {
			Token       string `json:"token"`
			DisplayName string `json:"display_name"`
		}
		decodeBody(t, resp, &session)
		if session.Token == "" || session.DisplayName != "Owner" {
			t.Errorf("session = %+v", session)
		}
	})

	t.Run("wrong password rejected", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", "", map[string]any{
			"email":    "owner@example.com",
			"password": "wrong",
		})
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want 401", resp.Code)
		}
	})

	t.Run("duplicate registration rejected", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
			"email":        "owner@example.com",
			"display_name": "Owner Again",
			"password":     "long enough too",
		})
		if resp.Code != http.StatusConflict {
			t.Errorf("got %d, want 409", resp.Code)
		}
	})

	t.Run("me reflects session claims", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", token, nil)
		if resp.Code != http.StatusOK {
			t.Fatalf("me returned %d", resp.Code)
		}
		var body struct {
			Email       string `json:"email"`
			DisplayName string `json:"display_name"`
		}
		decodeBody(t, resp, &body)
		if body.Email != "owner@example.com" || body.DisplayName != "Owner" {
			t.Errorf("me = %+v", body)
		}
	})

	t.Run("me without token rejected", func(t *testing.T) {
		resp := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", "", nil)
		if resp.Code != http.StatusUnauthorized {
			t.Errorf("got %d, want 401", resp.Code)
		}
	})
}
