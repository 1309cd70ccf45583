// Package server exposes the legal document agent over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"legalrag/internal/domain"
)

// RequestIDHeader carries the per-request id set by the server.
const RequestIDHeader = "X-Request-ID"

type Config struct {
	// UploadDir is where uploaded PDFs are saved before processing.
	UploadDir string
	// MaxUploadBytes caps the multipart body of an upload. Zero means 50 MB.
	MaxUploadBytes int64
	// CORS allows any origin to call the API.
	CORS bool
}

// Server holds the HTTP handlers. Uploads are processed one at a time since
// they all write into the same collection.
type Server struct {
	agent     domain.Agent
	logger    *slog.Logger
	uploadDir string
	maxUpload int64
	cors      bool

	ingestMu sync.Mutex
}

func New(agent domain.Agent, cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "documents"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &Server{
		agent:     agent,
		logger:    logger,
		uploadDir: cfg.UploadDir,
		maxUpload: cfg.MaxUploadBytes,
		cors:      cfg.CORS,
	}
}

// SetupRoutes registers every API route on a new router.
func (s *Server) SetupRoutes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.Health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload-document", s.UploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/ask-question", s.AskQuestion).Methods(http.MethodPost)
	api.HandleFunc("/extract-clauses", s.ExtractClauses).Methods(http.MethodGet)
	api.HandleFunc("/document-summary", s.DocumentSummary).Methods(http.MethodGet)
	api.HandleFunc("/clear-database", s.ClearDatabase).Methods(http.MethodDelete)
	api.HandleFunc("/document", s.Document).Methods(http.MethodGet)
	return r
}

// Handler wraps the router in the middleware stack.
func (s *Server) Handler() http.Handler {
	n := negroni.New()

	rec := negroni.NewRecovery()
	rec.Logger = slog.NewLogLogger(s.logger.Handler(), slog.LevelError)
	rec.PrintStack = false
	n.Use(rec)

	access := negroni.NewLogger()
	access.ALogger = slog.NewLogLogger(s.logger.Handler(), slog.LevelInfo)
	n.Use(access)

	n.Use(negroni.HandlerFunc(requestID))
	if s.cors {
		n.Use(negroni.HandlerFunc(allowCORS))
	}
	n.UseHandler(s.SetupRoutes())
	return n
}

func requestID(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
		r.Header.Set(RequestIDHeader, id)
	}
	w.Header().Set(RequestIDHeader, id)
	next(w, r)
}

func allowCORS(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	next(w, r)
}
