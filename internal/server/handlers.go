package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"legalrag/internal/domain"
	"legalrag/internal/extractor"
)

const errNoDocuments = "No documents uploaded. Please upload a PDF first."

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	total := 0
	if stats, err := s.agent.Stats(r.Context()); err != nil {
		s.logger.Warn("Health stats failed", slog.String("error", err.Error()))
	} else {
		total = stats.TotalDocuments
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "healthy",
		"message":         "Legal Document Analyzer API is running!",
		"documents_in_db": total,
	})
}

func (s *Server) UploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > s.maxUpload {
		writeJSONError(w, fmt.Sprintf("File exceeds %d bytes", s.maxUpload), http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSONError(w, fmt.Sprintf("File exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), extractor.Extension) {
		writeJSONError(w, "Only PDF files are supported", http.StatusBadRequest)
		return
	}

	s.logger.Info("Received document upload",
		slog.String("request_id", r.Header.Get(RequestIDHeader)),
		slog.String("filename", name),
		slog.Int64("size", header.Size))

	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()

	path, err := s.save(file, name)
	if err != nil {
		s.logger.Error("Saving upload failed", slog.String("filename", name), slog.String("error", err.Error()))
		writeJSONError(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	info, err := s.agent.ProcessDocument(r.Context(), path)
	if err != nil {
		s.fail(w, r, "Error processing document", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Document processed successfully!",
		"document_info": info,
	})
}

// save writes the upload to a temporary file in the upload directory and
// renames it into place once complete.
func (s *Server) save(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	tmp := filepath.Join(s.uploadDir, ".upload-"+uuid.NewString())
	dst, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close file: %w", err)
	}
	path := filepath.Join(s.uploadDir, name)
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename file: %w", err)
	}
	return path, nil
}

type questionRequest struct {
	Question string `json:"question"`
	TopK     *int   `json:"top_k"`
}

func (s *Server) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !s.requireDocuments(w, r) {
		return
	}
	topK := 0
	if req.TopK != nil {
		topK = *req.TopK
	}
	ans, err := s.agent.AskQuestion(r.Context(), req.Question, topK)
	if err != nil {
		s.fail(w, r, "Error answering question", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"question":    ans.Question,
		"answer":      ans.Answer,
		"sources":     ans.Sources,
		"num_sources": ans.SourceCount,
	})
}

func (s *Server) ExtractClauses(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocuments(w, r) {
		return
	}
	clauses, err := s.agent.ExtractKeyClauses(r.Context())
	if err != nil {
		s.fail(w, r, "Error extracting clauses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "clauses": clauses})
}

func (s *Server) DocumentSummary(w http.ResponseWriter, r *http.Request) {
	if !s.requireDocuments(w, r) {
		return
	}
	ans, err := s.agent.DocumentSummary(r.Context())
	if err != nil {
		s.fail(w, r, "Error generating summary", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "summary": ans.Answer})
}

func (s *Server) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	s.ingestMu.Lock()
	defer s.ingestMu.Unlock()
	if err := s.agent.ClearDatabase(r.Context()); err != nil {
		s.fail(w, r, "Error clearing database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Database cleared successfully!"})
}

func (s *Server) Document(w http.ResponseWriter, r *http.Request) {
	info := s.agent.CurrentDocument()
	if info == nil {
		writeJSONError(w, "No document loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "document_info": info})
}

// requireDocuments rejects the request with 400 when nothing has been
// ingested yet.
func (s *Server) requireDocuments(w http.ResponseWriter, r *http.Request) bool {
	stats, err := s.agent.Stats(r.Context())
	if err != nil {
		s.fail(w, r, "Error reading store", err)
		return false
	}
	if stats.TotalDocuments == 0 {
		writeJSONError(w, errNoDocuments, http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := http.StatusInternalServerError
	if domain.IsClientError(err) {
		status = http.StatusBadRequest
	}
	s.logger.Error(what,
		slog.String("request_id", r.Header.Get(RequestIDHeader)),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	writeJSONError(w, fmt.Sprintf("%s: %v", what, err), status)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}
