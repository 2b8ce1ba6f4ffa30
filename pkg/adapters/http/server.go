// Package http exposes the qualification core as a JSON API.
package http

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velora/leadflow"
	"github.com/velora/leadflow/internal/logging"
	"github.com/velora/leadflow/internal/outcome"
	"github.com/velora/leadflow/pkg/domain"
)

//go:embed openapi.yaml
var openapiSpec []byte

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiSpec)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	return doc, nil
}

// Server handles the JSON API over one assembled Engine.
type Server struct {
	engine *leadflow.Engine
	logger *slog.Logger
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *leadflow.Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(openapiSpec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/executions", s.startExecution)
		r.Get("/executions/{id}", s.getExecution)
		r.Post("/executions/{id}/answer", s.answerNode)
		r.Get("/scripts/{id}", s.getScript)
		r.Post("/leads/{id}/rdv-outcome", s.rdvOutcome)
		r.Post("/leads/{id}/follow-up", s.followUp)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type startExecutionRequest struct {
	ScriptID string `json:"script_id"`
	LeadID   string `json:"lead_id"`
	UserID   string `json:"user_id"`
}

func (s *Server) startExecution(w http.ResponseWriter, r *http.Request) {
	var body startExecutionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("startExecution: invalid request body", "err", err)
		return
	}
	if body.ScriptID == "" || body.LeadID == "" {
		http.Error(w, "script_id and lead_id are required", http.StatusBadRequest)
		return
	}

	state, err := s.engine.StartExecution(r.Context(), body.ScriptID, body.LeadID, body.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, state)
}

func (s *Server) getExecution(w http.ResponseWriter, r *http.Request) {
	state, err := s.engine.Execution(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, state)
}

type answerRequest struct {
	NodeID string `json:"node_id"`
	Answer string `json:"answer"`
}

func (s *Server) answerNode(w http.ResponseWriter, r *http.Request) {
	var body answerRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("answerNode: invalid request body", "err", err)
		return
	}
	if body.NodeID == "" {
		http.Error(w, "node_id is required", http.StatusBadRequest)
		return
	}

	state, err := s.engine.AnswerNode(r.Context(), chi.URLParam(r, "id"), body.NodeID, body.Answer)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, state)
}

func (s *Server) getScript(w http.ResponseWriter, r *http.Request) {
	script, err := s.engine.Script(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, script)
}

type rdvOutcomeRequest struct {
	Honored       bool   `json:"honored"`
	AbsenceReason string `json:"absence_reason"`
	Intent        string `json:"intent"`
	Actor         string `json:"actor"`
}

func (s *Server) rdvOutcome(w http.ResponseWriter, r *http.Request) {
	var body rdvOutcomeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("rdvOutcome: invalid request body", "err", err)
		return
	}

	lead, err := s.engine.QualifyRdv(r.Context(), outcome.QualifyRdvCommand{
		LeadID:        chi.URLParam(r, "id"),
		Actor:         body.Actor,
		Honored:       body.Honored,
		AbsenceReason: body.AbsenceReason,
		Intent:        body.Intent,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, lead)
}

type followUpRequest struct {
	Action     string     `json:"action"`
	CallResult string     `json:"call_result"`
	NewDate    *time.Time `json:"new_date"`
	Actor      string     `json:"actor"`
}

func (s *Server) followUp(w http.ResponseWriter, r *http.Request) {
	var body followUpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("followUp: invalid request body", "err", err)
		return
	}

	lead, err := s.engine.HandleNonHonore(r.Context(), outcome.FollowUpCommand{
		LeadID:     chi.URLParam(r, "id"),
		Actor:      body.Actor,
		Action:     body.Action,
		CallResult: body.CallResult,
		NewDate:    body.NewDate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, lead)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the core's error taxonomy to HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrScriptNotFound),
		errors.Is(err, domain.ErrExecutionNotFound),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrLeadNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrExecutionCompleted):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnknownEnum):
		status = http.StatusUnprocessableEntity
	default:
		s.logger.Error("request failed", "err", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Leadflow API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
