package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestServer(t *testing.T) (*HTTPServer, *Service) {
	t.Helper()
	svc := newTestService(newMemStore())
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap() error = %v", err)
	}
	return NewHTTPServer(svc, "*"), svc
}

func doJSON(t *testing.T, server *HTTPServer, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func signInAdmin(t *testing.T, server *HTTPServer) string {
	t.Helper()
	rr := doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "admin",
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("signin status = %d, body %s", rr.Code, rr.Body.String())
	}
	token, _ := decodeJSON(t, rr)["token"].(string)
	if token == "" {
		t.Fatal("signin response missing token")
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doJSON(t, server, http.MethodGet, "/api/health", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if ok := decodeJSON(t, rr)["ok"]; ok != true {
		t.Fatalf("expected ok=true, got %v", ok)
	}
	if origin := rr.Header().Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Fatalf("CORS origin = %q", origin)
	}
}

func TestReadyEndpointDatabaseFailure(t *testing.T) {
	ms := newMemStore()
	ms.pingErr = errors.New("connection refused")
	svc := newTestService(ms)
	server := NewHTTPServer(svc, "*")

	rr := doJSON(t, server, http.MethodGet, "/api/ready", "", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rr.Code)
	}
	if status := decodeJSON(t, rr)["status"]; status != "not_ready" {
		t.Fatalf("status field = %v", status)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	server, _ := newTestServer(t)

	for _, path := range []string{"/api/categories", "/api/links", "/api/search"} {
		rr := doJSON(t, server, http.MethodGet, path, "", nil)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: status = %d, want 401", path, rr.Code)
		}
	}

	rr := doJSON(t, server, http.MethodGet, "/api/categories", "garbage-token", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: status = %d, want 401", rr.Code)
	}
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	server, _ := newTestServer(t)

	rr := doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "admin",
		"password": "wrong",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "INVALID_CREDENTIALS" {
		t.Fatalf("code = %v", code)
	}
}

func TestCategoryLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := signInAdmin(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/categories", token, map[string]string{"name": "Work"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	created := decodeJSON(t, rr)
	categoryID := int64(created["id"].(float64))

	rr = doJSON(t, server, http.MethodPut, fmt.Sprintf("/api/categories/%d", categoryID), token, map[string]string{"name": "Projects"})
	if rr.Code != http.StatusOK {
		t.Fatalf("rename status = %d", rr.Code)
	}
	if name := decodeJSON(t, rr)["name"]; name != "Projects" {
		t.Fatalf("renamed to %v", name)
	}

	rr = doJSON(t, server, http.MethodGet, "/api/categories", token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list status = %d", rr.Code)
	}
	categories := decodeJSON(t, rr)["categories"].([]any)
	if len(categories) != 1 {
		t.Fatalf("expected 1 category, got %d", len(categories))
	}

	rr = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/categories/%d", categoryID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = doJSON(t, server, http.MethodDelete, fmt.Sprintf("/api/categories/%d", categoryID), token, nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("double delete status = %d, want 404", rr.Code)
	}
}

func TestCreateCategoryWithSortOrderOverHTTP(t *testing.T) {
	server, _ := newTestServer(t)
	token := signInAdmin(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/categories", token, map[string]any{"name": "Pinned", "sortOrder": 50})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rr.Code, rr.Body.String())
	}
	if got := decodeJSON(t, rr)["sortOrder"].(float64); got != 50 {
		t.Fatalf("sortOrder = %v, want 50", got)
	}
}

func TestReorderOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	token := signInAdmin(t, server)

	sess, err := svc.SessionFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	views := seedCategories(t, svc, sess.UserID, "A", "B", "C")

	rr := doJSON(t, server, http.MethodPost, "/api/categories/reorder", token, map[string]any{
		"sourceId": views[2].ID,
		"targetId": views[0].ID,
		"position": "before",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("reorder status = %d, body %s", rr.Code, rr.Body.String())
	}
	categories := decodeJSON(t, rr)["categories"].([]any)
	first := categories[0].(map[string]any)
	if first["name"] != "C" {
		t.Fatalf("expected C first after reorder, got %v", first["name"])
	}

	rr = doJSON(t, server, http.MethodPost, "/api/categories/reorder", token, map[string]any{
		"sourceId": views[0].ID,
		"targetId": views[0].ID,
		"position": "before",
	})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("self reorder status = %d, want 422", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "INVALID_REORDER" {
		t.Fatalf("code = %v", code)
	}
}

func TestLinkPageOverHTTP(t *testing.T) {
	server, svc := newTestServer(t)
	token := signInAdmin(t, server)

	sess, err := svc.SessionFromToken(context.Background(), token)
	if err != nil {
		t.Fatalf("SessionFromToken() error = %v", err)
	}
	views := seedCategories(t, svc, sess.UserID, "Big")
	for i := 0; i < 17; i++ {
		if _, err := svc.CreateLink(context.Background(), sess.UserID, LinkInput{Name: "l", URL: "https://example.com", CategoryID: views[0].ID}); err != nil {
			t.Fatalf("CreateLink() error = %v", err)
		}
	}

	rr := doJSON(t, server, http.MethodGet, fmt.Sprintf("/api/categories/%d/links?page=2", views[0].ID), token, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	payload := decodeJSON(t, rr)
	window := payload["page"].(map[string]any)
	if window["page"].(float64) != 2 || window["totalPages"].(float64) != 2 {
		t.Fatalf("unexpected window %v", window)
	}
	if links := payload["links"].([]any); len(links) != 2 {
		t.Fatalf("page 2 has %d links, want 2", len(links))
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	server, _ := newTestServer(t)
	adminToken := signInAdmin(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/admin/users", adminToken, map[string]string{
		"username": "casey",
		"password": "password123",
		"role":     "user",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("admin create user status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "casey",
		"password": "password123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("user signin status = %d", rr.Code)
	}
	userToken := decodeJSON(t, rr)["token"].(string)

	rr = doJSON(t, server, http.MethodGet, "/api/admin/users", userToken, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("user on admin route: status = %d, want 403", rr.Code)
	}

	// The regular surface still works for the user.
	rr = doJSON(t, server, http.MethodGet, "/api/links", userToken, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("user links status = %d", rr.Code)
	}
}

func TestDisabledUserLosesAccess(t *testing.T) {
	server, _ := newTestServer(t)
	adminToken := signInAdmin(t, server)

	rr := doJSON(t, server, http.MethodPost, "/api/admin/users", adminToken, map[string]string{
		"username": "casey",
		"password": "password123",
		"role":     "user",
	})
	created := decodeJSON(t, rr)
	userID := int64(created["id"].(float64))

	rr = doJSON(t, server, http.MethodPost, "/api/auth/signin", "", map[string]string{
		"username": "casey",
		"password": "password123",
	})
	userToken := decodeJSON(t, rr)["token"].(string)

	rr = doJSON(t, server, http.MethodPut, fmt.Sprintf("/api/admin/users/%d/status", userID), adminToken, map[string]string{"status": "disabled"})
	if rr.Code != http.StatusOK {
		t.Fatalf("disable status = %d, body %s", rr.Code, rr.Body.String())
	}

	rr = doJSON(t, server, http.MethodGet, "/api/categories", userToken, nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("disabled user request: status = %d, want 401", rr.Code)
	}
}
