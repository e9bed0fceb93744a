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

package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/promptstore"
	"github.com/kadirpekel/planner/internal/toolkit"
)

// sequencedProvider returns one canned set of stream chunks per call, in
// order, so a test can script a whole multi-cycle conversation.
type sequencedProvider struct {
	calls [][]llmclient.Chunk
	idx   int
}

func (s *sequencedProvider) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	return llmclient.Response{}, nil
}

func (s *sequencedProvider) Stream(ctx context.Context, req llmclient.Request) (<-chan llmclient.Chunk, error) {
	chunks := s.calls[s.idx]
	s.idx++
	ch := make(chan llmclient.Chunk, len(chunks))
	for _, c := range chunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func newTestOrchestrator(t *testing.T, provider llmclient.Provider, reg *toolkit.Registry) *Orchestrator {
	t.Helper()
	client, err := llmclient.New(provider, "gpt-4")
	require.NoError(t, err)
	if reg == nil {
		reg = toolkit.NewRegistry()
	}
	return New(client, reg, promptstore.NewStatic("en", map[string]string{"en": "You are a planner."}), "en")
}

func TestOrchestrator_PlainReplyNoTools(t *testing.T) {
	provider := &sequencedProvider{calls: [][]llmclient.Chunk{
		{
			{Type: llmclient.ChunkText, Text: "hello there"},
			{Type: llmclient.ChunkDone},
		},
	}}
	o := newTestOrchestrator(t, provider, nil)

	result, err := o.Run(context.Background(), "hello", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.NewMessages, 1)

	msg := result.NewMessages[0]
	assert.Equal(t, message.RoleAssistant, msg.Role)
	assert.Equal(t, "hello there", msg.Content)
	assert.Empty(t, msg.ToolCalls)
}

func TestOrchestrator_SingleToolCall(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(toolkit.Entry{
		Name: "prefab_recommend",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: true, Output: []any{map[string]any{"id": "speech-to-text-prefab"}}}, nil
		},
	})

	provider := &sequencedProvider{calls: [][]llmclient.Chunk{
		{
			{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{
				ID:   "call_1",
				Type: "function",
				Function: message.ToolCallFunc{
					Name:      "prefab_recommend",
					Arguments: `{"query":"speech-to-text","top_k":3}`,
				},
			}},
			{Type: llmclient.ChunkDone},
		},
		{
			{Type: llmclient.ChunkText, Text: "Here is a match."},
			{Type: llmclient.ChunkDone},
		},
	}}
	o := newTestOrchestrator(t, provider, reg)

	result, err := o.Run(context.Background(), "find a prefab for speech-to-text", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.NewMessages, 3)

	assert.Equal(t, message.RoleAssistant, result.NewMessages[0].Role)
	assert.Equal(t, "call_1", result.NewMessages[0].ToolCalls[0].ID)

	assert.Equal(t, message.RoleTool, result.NewMessages[1].Role)
	assert.Equal(t, "call_1", result.NewMessages[1].ToolCallID)

	assert.Equal(t, message.RoleAssistant, result.NewMessages[2].Role)
	assert.Equal(t, "Here is a match.", result.NewMessages[2].Content)

	updated, ok := result.ToolExecutionResultsUpdates[message.KeyRecommendedPrefabs].([]any)
	require.True(t, ok)
	require.Len(t, updated, 1)
}

func TestOrchestrator_InlineTagEmbeddedToolCall(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(toolkit.Entry{
		Name: "search_prefabs",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: true, Output: []any{}}, nil
		},
	})

	provider := &sequencedProvider{calls: [][]llmclient.Chunk{
		{
			{Type: llmclient.ChunkText, Text: "Let me check "},
			{Type: llmclient.ChunkText, Text: `<tool_call>{"name":"search_prefabs","argum`},
			{Type: llmclient.ChunkText, Text: `ents":{"query":"pdf"}}</tool_call>`},
			{Type: llmclient.ChunkText, Text: " the catalogue."},
			{Type: llmclient.ChunkDone},
		},
		{
			{Type: llmclient.ChunkText, Text: "Found it."},
			{Type: llmclient.ChunkDone},
		},
	}}
	o := newTestOrchestrator(t, provider, reg)

	result, err := o.Run(context.Background(), "find a pdf tool", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.NewMessages, 3)
	assert.Equal(t, "Let me check  the catalogue.", result.NewMessages[0].Content)
	assert.Equal(t, "search_prefabs", result.NewMessages[0].ToolCalls[0].Function.Name)
}

func TestOrchestrator_ParallelToolCallsPreserveOriginalOrder(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(toolkit.Entry{
		Name: "prefab_recommend",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: true, Output: []any{}}, nil
		},
	})
	reg.Register(toolkit.Entry{
		Name: "research",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: true, Output: map[string]any{"summary": "done first"}}, nil
		},
	})

	provider := &sequencedProvider{calls: [][]llmclient.Chunk{
		{
			{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{ID: "call_1", Type: "function", Function: message.ToolCallFunc{Name: "prefab_recommend", Arguments: "{}"}}},
			{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{ID: "call_2", Type: "function", Function: message.ToolCallFunc{Name: "research", Arguments: "{}"}}},
			{Type: llmclient.ChunkDone},
		},
		{
			{Type: llmclient.ChunkText, Text: "done"},
			{Type: llmclient.ChunkDone},
		},
	}}
	o := newTestOrchestrator(t, provider, reg)

	result, err := o.Run(context.Background(), "do both", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.Len(t, result.NewMessages, 4)
	assert.Equal(t, "call_1", result.NewMessages[1].ToolCallID)
	assert.Equal(t, "call_2", result.NewMessages[2].ToolCallID)
}

func TestOrchestrator_DepthLimitReached(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(toolkit.Entry{
		Name: "always_fails",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: false, Error: "nope"}, nil
		},
	})

	loopingCall := []llmclient.Chunk{
		{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{ID: "call", Type: "function", Function: message.ToolCallFunc{Name: "always_fails", Arguments: "{}"}}},
		{Type: llmclient.ChunkDone},
	}
	provider := &sequencedProvider{calls: [][]llmclient.Chunk{loopingCall, loopingCall, loopingCall}}
	o := newTestOrchestrator(t, provider, reg)
	o.MaxRecursionDepth = 2

	result, err := o.Run(context.Background(), "loop forever", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.True(t, result.Success)

	last := result.NewMessages[len(result.NewMessages)-1]
	assert.Equal(t, maxDepthMessage, last.Content)
	assert.Empty(t, last.ToolCalls)
}

func TestOrchestrator_MalformedToolCallArgumentsDontAbortTurn(t *testing.T) {
	reg := toolkit.NewRegistry()
	reg.Register(toolkit.Entry{
		Name: "research",
		Handler: func(ctx context.Context, args map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			return toolkit.Result{Success: true, Output: map[string]any{"summary": "ok"}}, nil
		},
	})

	provider := &sequencedProvider{calls: [][]llmclient.Chunk{
		{
			{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{ID: "call_bad", Type: "function", Function: message.ToolCallFunc{Name: "research", Arguments: `{not valid json`}}},
			{Type: llmclient.ChunkToolCall, ToolCall: &message.ToolCall{ID: "call_good", Type: "function", Function: message.ToolCallFunc{Name: "research", Arguments: "{}"}}},
			{Type: llmclient.ChunkDone},
		},
		{
			{Type: llmclient.ChunkText, Text: "done"},
			{Type: llmclient.ChunkDone},
		},
	}}
	o := newTestOrchestrator(t, provider, reg)

	result, err := o.Run(context.Background(), "do both", message.Context{SessionID: "s1"}, nil, AllCallbacks())
	require.NoError(t, err)
	require.True(t, result.Success)
	require.Len(t, result.NewMessages, 4)

	badMsg := result.NewMessages[1]
	assert.Equal(t, message.RoleTool, badMsg.Role)
	assert.Equal(t, "call_bad", badMsg.ToolCallID)
	assert.Contains(t, badMsg.Content, `"success":false`)

	goodMsg := result.NewMessages[2]
	assert.Equal(t, message.RoleTool, goodMsg.Role)
	assert.Equal(t, "call_good", goodMsg.ToolCallID)
	assert.Contains(t, goodMsg.Content, `"success":true`)
}

func TestOrchestrator_InvalidContextFails(t *testing.T) {
	o := newTestOrchestrator(t, &sequencedProvider{}, nil)
	result, err := o.Run(context.Background(), "hi", message.Context{}, nil, AllCallbacks())
	require.Error(t, err)
	assert.False(t, result.Success)
}
