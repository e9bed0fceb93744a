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
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/tagfilter"
)

// Client drives a Provider through the retry manager, keeps rolling stats,
// and (for streaming) applies the tag filter when requested. This is the
// one type the orchestrator depends on; it never talks to a Provider
// directly.
type Client struct {
	provider Provider
	retry    *RetryManager
	tokens   *TokenCounter
	stats    *Stats
	model    string
}

// New builds a Client around provider, counting tokens against model's
// tiktoken encoding (falling back to cl100k_base).
func New(provider Provider, model string) (*Client, error) {
	return NewWithRetryManager(provider, model, NewRetryManager())
}

// NewWithRetryManager is New with an injectable retry manager, for tests
// that need to avoid real sleeping between retries.
func NewWithRetryManager(provider Provider, model string, retry *RetryManager) (*Client, error) {
	tc, err := NewTokenCounter(model)
	if err != nil {
		return nil, err
	}
	return &Client{
		provider: provider,
		retry:    retry,
		tokens:   tc,
		stats:    NewStats(),
		model:    model,
	}, nil
}

// Stats returns a snapshot of the client's rolling request/response stats.
func (c *Client) Stats() Snapshot { return c.stats.Snapshot() }

// ChatCompletion performs one retried, non-streaming call and records it
// in the client's rolling stats.
func (c *Client) ChatCompletion(ctx context.Context, req Request) (Response, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	start := time.Now()
	var resp Response
	err := c.retry.Do(ctx, "chat_completion", func() error {
		var callErr error
		resp, callErr = c.provider.Complete(ctx, req)
		return callErr
	})
	latency := time.Since(start)

	if err != nil {
		c.stats.RecordFailure(latency)
		slog.Error("chat_completion failed", "model", req.Model, "error", err)
		return Response{}, err
	}

	if resp.PromptTokens == 0 {
		resp.PromptTokens = c.countMessages(req)
	}
	if resp.CompletionTokens == 0 {
		resp.CompletionTokens = c.tokens.Count(resp.Content)
	}
	c.stats.RecordSuccess(resp.PromptTokens, resp.CompletionTokens, latency)
	slog.Debug("chat_completion ok", "model", req.Model, "latency", latency, "prompt_tokens", resp.PromptTokens, "completion_tokens", resp.CompletionTokens)
	return resp, nil
}

// ChatCompletionStream performs one retried streaming call. The retry
// manager only covers establishing the stream (the initial request); once
// chunks start arriving, a mid-stream failure is surfaced as a ChunkError
// rather than silently restarted, since partial output cannot be safely
// replayed into a SSE/terminal sink that already emitted it.
func (c *Client) ChatCompletionStream(ctx context.Context, req Request, opts StreamOptions) (<-chan Chunk, error) {
	if req.Model == "" {
		req.Model = c.model
	}

	start := time.Now()
	var upstream <-chan Chunk
	err := c.retry.Do(ctx, "chat_completion_stream", func() error {
		var callErr error
		upstream, callErr = c.provider.Stream(ctx, req)
		return callErr
	})
	if err != nil {
		c.stats.RecordFailure(time.Since(start))
		slog.Error("chat_completion_stream failed to start", "model", req.Model, "error", err)
		return nil, err
	}

	out := make(chan Chunk)
	go c.relay(ctx, req, opts, start, upstream, out)
	return out, nil
}

func (c *Client) relay(ctx context.Context, req Request, opts StreamOptions, start time.Time, upstream <-chan Chunk, out chan<- Chunk) {
	defer close(out)

	var filter *tagfilter.Filter
	if opts.FilterToolTags {
		filter = tagfilter.New()
	}

	var completionText strings.Builder
	var promptTokens, completionTokens int
	success := true

	forward := func(ch Chunk) bool {
		select {
		case out <- ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for chunk := range upstream {
		switch chunk.Type {
		case ChunkText:
			if filter == nil {
				completionText.WriteString(chunk.Text)
				if !forward(chunk) {
					return
				}
				continue
			}
			text, calls := filter.ProcessChunk(chunk.Text)
			completionText.WriteString(text)
			filtered := chunk
			filtered.Text = text
			if !forward(filtered) {
				return
			}
			for i := range calls {
				tc := calls[i]
				if !forward(Chunk{Type: ChunkToolCall, ToolCall: &message.ToolCall{
					ID:   tc.ID,
					Type: "function",
					Function: message.ToolCallFunc{Name: tc.Name, Arguments: tc.Arguments},
				}}) {
					return
				}
			}
		case ChunkToolCall:
			if !forward(chunk) {
				return
			}
		case ChunkError:
			success = false
			if !forward(chunk) {
				return
			}
		case ChunkDone:
			promptTokens, completionTokens = chunk.PromptTokens, chunk.CompletionTokens
		}
	}

	if filter != nil {
		if tail := filter.Finalize(); tail != "" {
			completionText.WriteString(tail)
			forward(Chunk{Type: ChunkText, Text: tail})
		}
	}

	if promptTokens == 0 {
		promptTokens = c.countMessages(req)
	}
	if completionTokens == 0 {
		completionTokens = c.tokens.Count(completionText.String())
	}

	latency := time.Since(start)
	if success {
		c.stats.RecordSuccess(promptTokens, completionTokens, latency)
	} else {
		c.stats.RecordFailure(latency)
	}
	forward(Chunk{Type: ChunkDone, PromptTokens: promptTokens, CompletionTokens: completionTokens})
}

func (c *Client) countMessages(req Request) int {
	total := c.tokens.Count(req.SystemPrompt)
	for _, m := range req.Messages {
		total += c.tokens.Count(m.Content)
	}
	return total
}
