package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/config"
)

// fakeOrchestrator scripts the agent-mesh responses the API forwards.
type fakeOrchestrator struct {
	uploadResult map[string]any
	queryResult  map[string]any

	uploadedPaths []string
	lastQuery     string
}

func (f *fakeOrchestrator) ProcessDocumentUpload(filePaths []string, _ map[string]any) (map[string]any, error) {
	f.uploadedPaths = filePaths
	return f.uploadResult, nil
}

func (f *fakeOrchestrator) ProcessQuery(query string) (map[string]any, error) {
	f.lastQuery = query
	return f.queryResult, nil
}

func (f *fakeOrchestrator) SystemStatus() map[string]any {
	return map[string]any{"pending_requests": 0}
}

func newTestServer(t *testing.T, orch Orchestrator) *Server {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	cfg := *config.DefaultConfig()
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.AdminPass = string(hash)
	cfg.DataDir = t.TempDir()
	return New(cfg, orch, "test", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func login(t *testing.T, handler http.Handler) string {
	t.Helper()
	body := `{"username":"admin","password":"hunter2"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

func TestLogin_RejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()

	body := `{"username":"admin","password":"wrong"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}
}

func TestAuthMe(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["username"] != "admin" {
		t.Errorf("username = %q", resp["username"])
	}
}

func TestHealth_IsPublic(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["status"] != "healthy" || resp["version"] != "test" {
		t.Errorf("body = %v", resp)
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUpload_StagesFilesAndForwards(t *testing.T) {
	orch := &fakeOrchestrator{
		uploadResult: map[string]any{"success": true, "chunks_created": 4},
	}
	srv := newTestServer(t, orch)
	handler := srv.Handler()
	token := login(t, handler)

	body, contentType := multipartBody(t, map[string]string{
		"notes.txt": "some text",
		"plan.md":   "# plan",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if len(orch.uploadedPaths) != 2 {
		t.Errorf("uploaded paths = %v", orch.uploadedPaths)
	}
}

func TestUpload_RejectsDisallowedExtension(t *testing.T) {
	orch := &fakeOrchestrator{uploadResult: map[string]any{"success": true}}
	srv := newTestServer(t, orch)
	handler := srv.Handler()
	token := login(t, handler)

	body, contentType := multipartBody(t, map[string]string{"malware.exe": "x"})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if orch.uploadedPaths != nil {
		t.Error("disallowed file reached the orchestrator")
	}
}

func TestUpload_FailedIngestionReported(t *testing.T) {
	orch := &fakeOrchestrator{
		uploadResult: map[string]any{"success": false, "error": "No valid files found in upload"},
	}
	srv := newTestServer(t, orch)
	handler := srv.Handler()
	token := login(t, handler)

	body, contentType := multipartBody(t, map[string]string{"empty.txt": ""})
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestQuery_ForwardsAnswer(t *testing.T) {
	orch := &fakeOrchestrator{
		queryResult: map[string]any{
			"success":         true,
			"answer":          map[string]any{"answer": "42"},
			"sources":         []string{"doc.txt"},
			"context_chunks":  []string{"chunk"},
			"processing_time": 0.5,
		},
	}
	srv := newTestServer(t, orch)
	handler := srv.Handler()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"meaning of life?"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if orch.lastQuery != "meaning of life?" {
		t.Errorf("lastQuery = %q", orch.lastQuery)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, ok := resp["answer"]; !ok {
		t.Errorf("body = %v", resp)
	}
}

func TestQuery_EmptyQueryRejected(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"  "}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQuery_TimeoutSurfacesAsUnprocessable(t *testing.T) {
	orch := &fakeOrchestrator{
		queryResult: map[string]any{"success": false, "error": "request timed out after 30s"},
	}
	srv := newTestServer(t, orch)
	handler := srv.Handler()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodPost, "/api/query", strings.NewReader(`{"query":"anything"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "timed out") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStatus_ReportsOrchestrator(t *testing.T) {
	srv := newTestServer(t, &fakeOrchestrator{})
	handler := srv.Handler()
	token := login(t, handler)

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if _, ok := resp["pending_requests"]; !ok {
		t.Errorf("body = %v", resp)
	}
}
