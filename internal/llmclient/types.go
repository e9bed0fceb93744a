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

import "github.com/kadirpekel/planner/internal/message"

// ToolDefinition is the wire shape of one entry in a chat_completion
// request's tools array, matching the teacher's pkg/llms.ToolDefinition.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is the provider-agnostic chat_completion input.
type Request struct {
	Model        string
	Messages     []message.Message
	SystemPrompt string
	Tools        []ToolDefinition
	Temperature  float64
	MaxTokens    int
}

// Response is the non-streaming chat_completion result.
type Response struct {
	Content          string
	ToolCalls        []message.ToolCall
	PromptTokens     int
	CompletionTokens int
	FinishReason     string
}

// ChunkType distinguishes the payload a streamed Chunk carries.
type ChunkType string

const (
	ChunkText     ChunkType = "text"
	ChunkToolCall ChunkType = "tool_call"
	ChunkDone     ChunkType = "done"
	ChunkError    ChunkType = "error"
)

// Chunk is one element of a chat_completion_stream iterator.
type Chunk struct {
	Type             ChunkType
	Text             string
	ToolCall         *message.ToolCall
	PromptTokens     int
	CompletionTokens int
	Err              error
}

// StreamOptions configures chat_completion_stream beyond the base Request.
type StreamOptions struct {
	FilterToolTags bool
}
