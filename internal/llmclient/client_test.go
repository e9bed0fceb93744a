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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	completeResp  Response
	completeErr   error
	completeCalls int

	streamChunks []Chunk
	streamErr    error
	streamCalls  int
}

func (s *stubProvider) Complete(ctx context.Context, req Request) (Response, error) {
	s.completeCalls++
	return s.completeResp, s.completeErr
}

func (s *stubProvider) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	s.streamCalls++
	if s.streamErr != nil {
		return nil, s.streamErr
	}
	ch := make(chan Chunk, len(s.streamChunks))
	for _, c := range s.streamChunks {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func TestClient_ChatCompletion_RecordsStats(t *testing.T) {
	p := &stubProvider{completeResp: Response{Content: "hello there", FinishReason: "stop"}}
	c, err := New(p, "gpt-4")
	require.NoError(t, err)

	resp, err := c.ChatCompletion(context.Background(), Request{Messages: nil})
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)

	snap := c.Stats()
	assert.Equal(t, 1, snap.Requests)
	assert.Equal(t, 1, snap.Successes)
}

func TestClient_ChatCompletion_NonRetryableFailsImmediately(t *testing.T) {
	p := &stubProvider{completeErr: &StatusError{StatusCode: 400, Err: errors.New("bad request")}}
	c, err := New(p, "gpt-4")
	require.NoError(t, err)

	_, err = c.ChatCompletion(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, p.completeCalls)

	snap := c.Stats()
	assert.Equal(t, 1, snap.Failures)
}

func TestClient_ChatCompletionStream_FiltersInlineToolCallTags(t *testing.T) {
	p := &stubProvider{streamChunks: []Chunk{
		{Type: ChunkText, Text: "Let me check "},
		{Type: ChunkText, Text: "<tool_call>{\"name\":\"search_prefabs\",\"argum"},
		{Type: ChunkText, Text: "ents\":{\"query\":\"pdf\"}}</tool_call>"},
		{Type: ChunkText, Text: " the catalogue."},
		{Type: ChunkDone, PromptTokens: 5, CompletionTokens: 10},
	}}
	c, err := New(p, "gpt-4")
	require.NoError(t, err)

	ch, err := c.ChatCompletionStream(context.Background(), Request{}, StreamOptions{FilterToolTags: true})
	require.NoError(t, err)

	var text string
	var sawToolCall bool
	for chunk := range ch {
		switch chunk.Type {
		case ChunkText:
			text += chunk.Text
		case ChunkToolCall:
			sawToolCall = true
			require.NotNil(t, chunk.ToolCall)
			assert.Equal(t, "search_prefabs", chunk.ToolCall.Function.Name)
		}
	}
	assert.True(t, sawToolCall)
	assert.Equal(t, "Let me check  the catalogue.", text)
}

func TestClient_ChatCompletionStream_WithoutFilterPassesChunksThrough(t *testing.T) {
	p := &stubProvider{streamChunks: []Chunk{
		{Type: ChunkText, Text: "plain text"},
		{Type: ChunkDone},
	}}
	c, err := New(p, "gpt-4")
	require.NoError(t, err)

	ch, err := c.ChatCompletionStream(context.Background(), Request{}, StreamOptions{FilterToolTags: false})
	require.NoError(t, err)

	var text string
	for chunk := range ch {
		if chunk.Type == ChunkText {
			text += chunk.Text
		}
	}
	assert.Equal(t, "plain text", text)
}

func TestClient_ChatCompletionStream_StartFailureIsRetried(t *testing.T) {
	p := &stubProvider{streamErr: &StatusError{StatusCode: 502, Err: errors.New("bad gateway")}}
	c, err := NewWithRetryManager(p, "gpt-4", noSleepManager())
	require.NoError(t, err)

	_, err = c.ChatCompletionStream(context.Background(), Request{}, StreamOptions{})
	require.Error(t, err)
	// server_error budget is 2 retries -> 3 total attempts
	assert.Equal(t, 3, p.streamCalls)
}
