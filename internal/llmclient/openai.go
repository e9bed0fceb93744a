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

package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/kadirpekel/planner/internal/httpclient"
	"github.com/kadirpekel/planner/internal/message"
)

// OpenAIProvider speaks the OpenAI-compatible Chat Completions wire format
// (/v1/chat/completions), the format shared by OpenAI itself and most
// self-hosted/compatible gateways. Unlike the teacher's Responses-API
// provider (pkg/llms/openai.go), it does not need reasoning-block or
// encrypted-content bookkeeping, matching the simpler contract this
// client exposes (spec §4.4).
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIProvider builds a provider against apiKey/baseURL, using the
// process-wide pooled transport.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAIProvider{apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/"), client: httpclient.Shared()}
}

type chatMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []chatToolCall   `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type chatToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolCallFunc `json:"function"`
}

type chatToolCallFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type chatFunctionTool struct {
	Type     string            `json:"type"`
	Function chatFunctionSpec  `json:"function"`
}

type chatFunctionSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type chatRequest struct {
	Model       string             `json:"model"`
	Messages    []chatMessage      `json:"messages"`
	Tools       []chatFunctionTool `json:"tools,omitempty"`
	Temperature float64            `json:"temperature,omitempty"`
	MaxTokens   int                `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	Delta        chatDelta   `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type chatDelta struct {
	Content   string               `json:"content"`
	ToolCalls []chatToolCallDelta  `json:"tool_calls"`
}

type chatToolCallDelta struct {
	Index    int              `json:"index"`
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function chatToolCallFunc `json:"function"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
	Error   *chatError   `json:"error"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func buildChatMessages(req Request) []chatMessage {
	out := make([]chatMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		out = append(out, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		cm := chatMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			cm.ToolCalls = append(cm.ToolCalls, chatToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: chatToolCallFunc{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, cm)
	}
	return out
}

func buildChatTools(defs []ToolDefinition) []chatFunctionTool {
	if len(defs) == 0 {
		return nil
	}
	out := make([]chatFunctionTool, 0, len(defs))
	for _, d := range defs {
		out = append(out, chatFunctionTool{
			Type: "function",
			Function: chatFunctionSpec{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func (p *OpenAIProvider) newHTTPRequest(ctx context.Context, body []byte) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(p.apiKey))
	return httpReq, nil
}

// Complete performs one non-streaming chat completion.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (Response, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    buildChatMessages(req),
		Tools:       buildChatTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := p.newHTTPRequest(ctx, body)
	if err != nil {
		return Response{}, err
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	respBody := new(bytes.Buffer)
	if _, err := respBody.ReadFrom(resp.Body); err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		rateLimit := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
		return Response{}, &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: rateLimit.RetryAfter,
			Err:        httpclient.StatusFromResponse(resp, respBody.Bytes()),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody.Bytes(), &parsed); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if parsed.Error != nil {
		return Response{}, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Response{}, fmt.Errorf("openai: empty choices")
	}

	choice := parsed.Choices[0]
	calls := make([]message.ToolCall, 0, len(choice.Message.ToolCalls))
	for _, tc := range choice.Message.ToolCalls {
		calls = append(calls, message.ToolCall{
			ID:   tc.ID,
			Type: tc.Type,
			Function: message.ToolCallFunc{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}

	return Response{
		Content:          choice.Message.Content,
		ToolCalls:        calls,
		PromptTokens:     parsed.Usage.PromptTokens,
		CompletionTokens: parsed.Usage.CompletionTokens,
		FinishReason:     choice.FinishReason,
	}, nil
}

// Stream performs a streaming chat completion over SSE, emitting raw
// (pre-tag-filter) Chunks. Tool-call deltas are coalesced by index the
// same way the orchestrator coalesces them across chunks (spec §4.1),
// and a single ChunkToolCall per tool call is emitted, in index order, once
// the arguments close out at the end of the stream.
func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	body, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    buildChatMessages(req),
		Tools:       buildChatTools(req.Tools),
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := p.newHTTPRequest(ctx, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b := new(bytes.Buffer)
		b.ReadFrom(resp.Body)
		rateLimit := httpclient.ParseOpenAIRateLimitHeaders(resp.Header)
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			RetryAfter: rateLimit.RetryAfter,
			Err:        httpclient.StatusFromResponse(resp, b.Bytes()),
		}
	}

	out := make(chan Chunk)
	go p.pump(ctx, resp.Body, out)
	return out, nil
}

type pendingCall struct {
	id, name string
	args     strings.Builder
}

func (p *OpenAIProvider) pump(ctx context.Context, body io.ReadCloser, out chan<- Chunk) {
	defer close(out)
	defer body.Close()

	reader := bufio.NewScanner(body)
	reader.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	pending := map[int]*pendingCall{}
	var promptTokens, completionTokens int

	emitPending := func() {
		indices := make([]int, 0, len(pending))
		for idx := range pending {
			indices = append(indices, idx)
		}
		sort.Ints(indices)
		for _, idx := range indices {
			pc := pending[idx]
			if pc.name == "" {
				continue
			}
			select {
			case out <- Chunk{Type: ChunkToolCall, ToolCall: &message.ToolCall{
				ID:   pc.id,
				Type: "function",
				Function: message.ToolCallFunc{Name: pc.name, Arguments: pc.args.String()},
			}}:
			case <-ctx.Done():
				return
			}
		}
	}

	for reader.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := strings.TrimSpace(reader.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			emitPending()
			out <- Chunk{Type: ChunkDone, PromptTokens: promptTokens, CompletionTokens: completionTokens}
			return
		}

		var parsed chatResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			continue
		}
		if parsed.Usage.PromptTokens > 0 {
			promptTokens = parsed.Usage.PromptTokens
		}
		if parsed.Usage.CompletionTokens > 0 {
			completionTokens = parsed.Usage.CompletionTokens
		}
		if len(parsed.Choices) == 0 {
			continue
		}
		choice := parsed.Choices[0]
		if choice.Delta.Content != "" {
			select {
			case out <- Chunk{Type: ChunkText, Text: choice.Delta.Content}:
			case <-ctx.Done():
				return
			}
		}
		for _, tcd := range choice.Delta.ToolCalls {
			pc, ok := pending[tcd.Index]
			if !ok {
				pc = &pendingCall{}
				pending[tcd.Index] = pc
			}
			if tcd.ID != "" {
				pc.id = tcd.ID
			}
			if tcd.Function.Name != "" {
				pc.name = tcd.Function.Name
			}
			pc.args.WriteString(tcd.Function.Arguments)
		}
		if choice.FinishReason != "" {
			emitPending()
			out <- Chunk{Type: ChunkDone, PromptTokens: promptTokens, CompletionTokens: completionTokens}
			return
		}
	}
	if err := reader.Err(); err != nil {
		out <- Chunk{Type: ChunkError, Err: err}
	}
}
