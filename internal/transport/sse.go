// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package transport mounts the core's one runnable HTTP surface: a turn
// endpoint that streams StreamEvents back over SSE. The MCP HTTP façade
// itself is out of scope (spec §1); this is the minimal chi-routed
// transport the example cmd/planner binary needs to be runnable end to
// end, grounded on the teacher's pkg/transport (chi route-pattern
// middleware, metrics/tracing wrapping) generalized from its A2A REST
// gateway to this module's single turn endpoint.
package transport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/observability"
	"github.com/kadirpekel/planner/internal/orchestrator"
	"github.com/kadirpekel/planner/internal/streaming"
)

// TurnRequest is the JSON body POSTed to /v1/turns: the caller-owned
// dialogue history plus the new user utterance (spec §3 AgentContext).
type TurnRequest struct {
	SessionID            string                 `json:"session_id"`
	UserInput            string                 `json:"user_input"`
	DialogueHistory      []message.Message      `json:"dialogue_history"`
	ToolExecutionResults map[string]any         `json:"tool_execution_results"`
	SessionMetadata      map[string]any         `json:"session_metadata"`
}

// Server wires an Orchestrator into a chi router exposing the turn
// endpoint plus /healthz and, when metrics is non-nil, /metrics.
type Server struct {
	orch    *orchestrator.Orchestrator
	metrics *observability.Metrics
	tracer  trace.Tracer
	router  chi.Router
}

// NewServer builds the router. metrics may be nil to disable /metrics.
func NewServer(orch *orchestrator.Orchestrator, metrics *observability.Metrics) *Server {
	s := &Server{orch: orch, metrics: metrics, tracer: observability.Tracer("planner.transport")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/turns", s.handleTurn)
	if metrics != nil {
		r.Get("/metrics", metrics.Handler().ServeHTTP)
	}

	s.router = r
	return s
}

// ServeHTTP lets *Server be handed directly to http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleTurn runs one orchestrator turn, streaming every event the caller
// subscribes to over SSE (spec §4.5, §6 wire format) and finally writing
// the AgentResult as one closing frame. Flush support is required for the
// caller to see chunks incrementally; http.ResponseWriter on a standard
// net/http server satisfies http.Flusher.
func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, _ := w.(http.Flusher)
	sseHandler := streaming.NewSSEHandler(w, flusher, 5)
	sseHandler.StartHeartbeat(15 * time.Second)
	defer sseHandler.Stop()

	session := streaming.NewSession(req.SessionID)
	session.AddHandler(sseHandler)
	defer session.Close()

	msgCtx := message.Context{
		SessionID:            req.SessionID,
		DialogueHistory:      req.DialogueHistory,
		ToolExecutionResults: req.ToolExecutionResults,
		SessionMetadata:      req.SessionMetadata,
	}

	result, err := s.orch.Run(r.Context(), req.UserInput, msgCtx, session, orchestrator.AllCallbacks())
	_ = sseHandler.Flush()
	if err != nil {
		session.Emit(streaming.New(streaming.KindError, req.SessionID, nowUnix(), map[string]any{"error": err.Error()}))
		return
	}

	frame, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return
	}
	_, _ = w.Write([]byte("event: conversation_end\ndata: " + string(frame) + "\n\n"))
	if flusher != nil {
		flusher.Flush()
	}
}

// instrument wraps every request with a span and, when configured, a
// Prometheus-observed duration — the same split the teacher's
// http_metrics_middleware.go uses, minus the HTTP-specific metric
// collectors this module doesn't carry (no RAG/session HTTP metrics in
// scope).
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := s.tracer.Start(r.Context(), "http.request", trace.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.path", r.URL.Path),
		))
		defer span.End()

		next.ServeHTTP(w, r.WithContext(ctx))
		span.SetStatus(codes.Ok, "")
	})
}

func nowUnix() float64 {
	return float64(time.Now().UnixNano()) / 1e9
}
