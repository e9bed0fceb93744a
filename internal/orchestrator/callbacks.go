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

import "github.com/kadirpekel/planner/internal/streaming"

// Callbacks names which event kinds the caller wants delivered for a Run
// (spec §4.1's "small callback table"): LLM_START/CHUNK/END and
// TOOL_START/PROGRESS/END. Processing-status, error, and document events
// are always delivered regardless of subscription, since they report
// turn-level facts rather than optional verbosity.
type Callbacks struct {
	subscribed map[streaming.Kind]bool
}

// AllCallbacks subscribes to every gated event kind; the common case for a
// caller driving an interactive UI.
func AllCallbacks() Callbacks {
	return NewCallbacks(
		streaming.KindAssistantMessageStart,
		streaming.KindAssistantMessageChunk,
		streaming.KindAssistantMessageEnd,
		streaming.KindToolCallStart,
		streaming.KindToolCallProgress,
		streaming.KindToolCallEnd,
	)
}

// NewCallbacks subscribes to exactly the given kinds.
func NewCallbacks(kinds ...streaming.Kind) Callbacks {
	m := make(map[streaming.Kind]bool, len(kinds))
	for _, k := range kinds {
		m[k] = true
	}
	return Callbacks{subscribed: m}
}

// Wants reports whether kind was subscribed to.
func (c Callbacks) Wants(kind streaming.Kind) bool {
	return c.subscribed[kind]
}
