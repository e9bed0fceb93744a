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

package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/observability"
	"github.com/kadirpekel/planner/internal/orchestrator"
	"github.com/kadirpekel/planner/internal/promptstore"
	"github.com/kadirpekel/planner/internal/toolkit"
)

type staticProvider struct{}

func (staticProvider) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	return llmclient.Response{}, nil
}

func (staticProvider) Stream(ctx context.Context, req llmclient.Request) (<-chan llmclient.Chunk, error) {
	ch := make(chan llmclient.Chunk, 2)
	ch <- llmclient.Chunk{Type: llmclient.ChunkText, Text: "hello"}
	ch <- llmclient.Chunk{Type: llmclient.ChunkDone}
	close(ch)
	return ch, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	client, err := llmclient.New(staticProvider{}, "gpt-4")
	require.NoError(t, err)
	orch := orchestrator.New(client, toolkit.NewRegistry(), promptstore.NewStatic("en", map[string]string{"en": "sys"}), "en")
	return NewServer(orch, observability.NewMetrics())
}

func TestServer_HealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_TurnStreamsSSE(t *testing.T) {
	s := newTestServer(t)

	body, err := json.Marshal(TurnRequest{SessionID: "s1", UserInput: "hello"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/turns", bytes.NewReader(body))
	s.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "event: assistant_message_chunk")
	assert.Contains(t, rec.Body.String(), "event: conversation_end")
}

func TestServer_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	s.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
