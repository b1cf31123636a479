// internal/server/server.go

// Package server exposes the question pipeline over HTTP. It owns wire
// serialization and error-to-status mapping; everything else lives in the
// pipeline.
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"epd-assistant/internal/common/config"
	pipeerrors "epd-assistant/internal/common/errors"
	"epd-assistant/internal/common/logger"
	"epd-assistant/internal/models"
)

const maxBodyBytes = 1 << 20

// AskRequest mirrors askRequestSchema.
type AskRequest struct {
	Question      string   `json:"question"`
	ProductIDs    []string `json:"productIds,omitempty"`
	IndicatorKeys []string `json:"indicatorKeys,omitempty"`
	Model         string   `json:"model,omitempty"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Asker is the pipeline surface the server depends on.
type Asker interface {
	Ask(ctx context.Context, q *models.Question) (*models.Answer, error)
}

type Server struct {
	pipeline Asker
	logger   logger.Logger
	http     *http.Server
}

func New(cfg config.ServerConfig, pipeline Asker, log logger.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		logger:   log.With(map[string]interface{}{"component": "server"}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.http = &http.Server{
		Addr:         cfg.Address,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
	}
	return s
}

// Handler exposes the routing for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.logger.Info("http server listening", map[string]interface{}{
		"address": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, pipeerrors.NewInvalidInputError("request body could not be read"))
		return
	}

	if err := validateAskBody(body); err != nil {
		s.writeError(w, err)
		return
	}

	var req AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, pipeerrors.NewInvalidInputError("request body must be valid JSON"))
		return
	}

	answer, err := s.pipeline.Ask(r.Context(), &models.Question{
		Text:          req.Question,
		ProductIDs:    req.ProductIDs,
		IndicatorKeys: req.IndicatorKeys,
		Model:         req.Model,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, AskResponse{Answer: answer.Text})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeError maps pipeline errors to HTTP statuses: validation failures are
// the client's fault, capability failures mean a dependency is down. The
// response body only ever carries the user-facing message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case pipeerrors.IsValidation(err):
		status = http.StatusBadRequest
	case pipeerrors.IsCapability(err):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("unexpected error", map[string]interface{}{
			"error": err.Error(),
		})
	}

	s.writeJSON(w, status, ErrorResponse{
		Error: pipeerrors.UserMessage(err),
		Code:  pipeerrors.CodeOf(err),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("response write failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
