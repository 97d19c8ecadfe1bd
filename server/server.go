// Package server implements the HTTP API: document upload, querying,
// status, and auth.
package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chakrateja70/Agentic-RAG-Chatbot/config"
)

// maxUploadBytes bounds one multipart upload request.
const maxUploadBytes = 50 << 20 // 50 MiB

// allowedExtensions is the upload allow-list. Keys include the dot.
var allowedExtensions = map[string]bool{
	".pdf":      true,
	".docx":     true,
	".pptx":     true,
	".csv":      true,
	".txt":      true,
	".md":       true,
	".markdown": true,
}

// Orchestrator is what the API needs from the agent mesh. The
// coordinator satisfies it.
type Orchestrator interface {
	ProcessDocumentUpload(filePaths []string, options map[string]any) (map[string]any, error)
	ProcessQuery(query string) (map[string]any, error)
	SystemStatus() map[string]any
}

// Server is the HTTP server fronting the agent mesh.
type Server struct {
	cfg     config.Config
	mux     *http.ServeMux
	httpSrv *http.Server
	logger  *slog.Logger

	orchestrator Orchestrator
	uploadDir    string

	routesOnce sync.Once

	// JWT secret caching
	secretOnce      sync.Once
	generatedSecret string

	startTime time.Time
	version   string
}

// New creates a Server with the given config and logger.
func New(cfg config.Config, orchestrator Orchestrator, ver string, logger *slog.Logger) *Server {
	return &Server{
		cfg:          cfg,
		mux:          http.NewServeMux(),
		logger:       logger,
		orchestrator: orchestrator,
		uploadDir:    filepath.Join(cfg.DataDir, "uploads"),
		startTime:    time.Now(),
		version:      ver,
	}
}

// Start registers routes and begins listening.
func (s *Server) Start() error {
	s.registerRoutes()

	addr := s.cfg.Server.Addr
	if addr == "" {
		addr = ":8000"
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 15 * time.Second,
	}
	s.logger.Info("server listening", slog.String("addr", addr))
	return s.httpSrv.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the server's route table, for tests and embedding.
func (s *Server) Handler() http.Handler {
	s.registerRoutes()
	return s.mux
}

// registerRoutes sets up all HTTP routes. Safe to call more than once.
func (s *Server) registerRoutes() {
	s.routesOnce.Do(func() {
		// Public routes (no auth required)
		s.mux.HandleFunc("POST /api/auth/login", s.handleLogin)
		s.mux.HandleFunc("GET /api/health", s.handleHealth)

		// Protected API, wrapped in auth middleware
		apiMux := http.NewServeMux()
		apiMux.HandleFunc("POST /api/upload", s.handleUpload)
		apiMux.HandleFunc("POST /api/query", s.handleQuery)
		apiMux.HandleFunc("GET /api/status", s.handleStatus)
		apiMux.HandleFunc("GET /api/auth/me", s.handleMe)

		s.mux.Handle("/api/", s.authMiddleware(apiMux))
	})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a JSON error response.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleHealth reports liveness, version, and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"version": s.version,
		"uptime":  time.Since(s.startTime).Seconds(),
	})
}

// handleStatus reports the orchestrator's view of the agent mesh.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.orchestrator.SystemStatus())
}

// handleUpload accepts multipart files, stages them on disk, and hands
// them to the ingestion pipeline. Files with disallowed extensions fail
// the whole request before anything is processed.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid multipart request: "+err.Error())
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeJSONError(w, http.StatusBadRequest, "no files provided")
		return
	}
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !allowedExtensions[ext] {
			writeJSONError(w, http.StatusBadRequest, "unsupported file type: "+fh.Filename)
			return
		}
	}

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		s.logger.Error("create upload dir", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}
	staging, err := os.MkdirTemp(s.uploadDir, "upload-*")
	if err != nil {
		s.logger.Error("create staging dir", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "could not stage upload")
		return
	}
	defer func() { _ = os.RemoveAll(staging) }()

	paths := make([]string, 0, len(files))
	for _, fh := range files {
		path, err := saveUploadedFile(fh, filepath.Join(staging, filepath.Base(fh.Filename)))
		if err != nil {
			s.logger.Error("save uploaded file",
				slog.String("file", fh.Filename),
				slog.Any("err", err),
			)
			writeJSONError(w, http.StatusInternalServerError, "could not save "+fh.Filename)
			return
		}
		paths = append(paths, path)
	}

	result, err := s.orchestrator.ProcessDocumentUpload(paths, nil)
	if err != nil {
		s.logger.Error("document upload failed", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "document processing failed")
		return
	}
	writeJSON(w, uploadStatus(result), result)
}

// saveUploadedFile streams one multipart part to dst.
func saveUploadedFile(fh *multipart.FileHeader, dst string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return dst, nil
}

// uploadStatus maps an ingestion result to an HTTP status.
func uploadStatus(result map[string]any) int {
	if success, _ := result["success"].(bool); success {
		return http.StatusOK
	}
	return http.StatusUnprocessableEntity
}

// queryRequest is the body accepted by POST /api/query.
type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery runs one question through retrieval and answer
// generation.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSONError(w, http.StatusBadRequest, "query must not be empty")
		return
	}

	result, err := s.orchestrator.ProcessQuery(req.Query)
	if err != nil {
		s.logger.Error("query failed", slog.Any("err", err))
		writeJSONError(w, http.StatusInternalServerError, "query processing failed")
		return
	}
	if success, _ := result["success"].(bool); !success {
		writeJSON(w, http.StatusUnprocessableEntity, result)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"answer":          result["answer"],
		"sources":         result["sources"],
		"context_chunks":  result["context_chunks"],
		"processing_time": result["processing_time"],
	})
}
