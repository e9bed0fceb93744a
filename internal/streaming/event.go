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

// Package streaming is the typed event bus that multiplexes LLM token
// chunks, tool lifecycle events, processing status, document artifacts, and
// edit proposals to one or more sinks (terminal, SSE over HTTP).
//
// StreamEvent is a tagged union rather than a class hierarchy, the same
// choice the teacher makes for pkg/agent.Event / a2a task-update events:
// one Kind field, handlers switch on it instead of relying on a type
// hierarchy.
package streaming

import "encoding/json"

// Kind identifies the shape of a StreamEvent's payload.
type Kind string

const (
	KindConversationStart        Kind = "conversation_start"
	KindConversationEnd          Kind = "conversation_end"
	KindAssistantMessageStart    Kind = "assistant_message_start"
	KindAssistantMessageChunk    Kind = "assistant_message_chunk"
	KindAssistantMessageEnd      Kind = "assistant_message_end"
	KindToolCallStart            Kind = "tool_call_start"
	KindToolCallProgress         Kind = "tool_call_progress"
	KindToolCallEnd              Kind = "tool_call_end"
	KindProcessingStatus         Kind = "processing_status"
	KindError                    Kind = "error"
	KindDesignDocumentGenerated  Kind = "design_document_generated"
	KindPrefabsInfo              Kind = "prefabs_info"
	KindDocumentEditProposal     Kind = "document_edit_proposal"
	KindHeartbeat                Kind = "heartbeat"
)

// Event is a tagged StreamEvent. Payload is marshaled flat alongside
// session_id/timestamp so the SSE `data:` line is one JSON object per
// spec's wire format, not a nested envelope.
type Event struct {
	Kind      Kind
	SessionID string
	Timestamp float64
	Payload   map[string]any
}

// New builds an Event, copying Payload so callers can reuse map literals.
func New(kind Kind, sessionID string, timestamp float64, payload map[string]any) Event {
	p := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		p[k] = v
	}
	return Event{Kind: kind, SessionID: sessionID, Timestamp: timestamp, Payload: p}
}

// MarshalJSON flattens session_id/timestamp with the kind-specific payload
// into a single JSON object, matching spec §3/§6's wire shape.
func (e Event) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Payload)+2)
	for k, v := range e.Payload {
		flat[k] = v
	}
	flat["session_id"] = e.SessionID
	flat["timestamp"] = e.Timestamp
	return json.Marshal(flat)
}

// SSEFrame renders the event in the `event: <kind>\ndata: <json>\n\n` wire
// form from spec §6. Heartbeat frames carry only a timestamp per the spec.
func (e Event) SSEFrame() (string, error) {
	var data []byte
	var err error
	if e.Kind == KindHeartbeat {
		data, err = json.Marshal(map[string]any{"timestamp": e.Timestamp})
	} else {
		data, err = json.Marshal(e)
	}
	if err != nil {
		return "", err
	}
	return "event: " + string(e.Kind) + "\ndata: " + string(data) + "\n\n", nil
}
