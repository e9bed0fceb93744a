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
	"encoding/json"
	"fmt"
	"time"

	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/streaming"
	"github.com/kadirpekel/planner/internal/toolkit"
)

// createSharedDict builds the mutable working map for one turn from the
// caller's read-only context (spec §4.8). It validates the context,
// copies dialogue history, appends the new user message, and seeds the
// well-known keys from context.ToolExecutionResults.
func createSharedDict(userInput string, ctx message.Context, language string, session *streaming.Session) (*toolkit.Shared, error) {
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("orchestrator: invalid context: %w", err)
	}

	shared := toolkit.NewShared(ctx.SessionID, language, session)
	shared.DialogueHistory = append(shared.DialogueHistory, ctx.DialogueHistory...)
	shared.DialogueHistory = append(shared.DialogueHistory, message.Message{
		Role:      message.RoleUser,
		Content:   userInput,
		Timestamp: nowUnix(),
	})

	if v, ok := ctx.ToolExecutionResults[message.KeyRecommendedPrefabs].([]any); ok {
		shared.RecommendedPrefabs = v
	}
	if v, ok := ctx.ToolExecutionResults[message.KeyResearchFindings]; ok {
		shared.ResearchFindings = v
	}
	if v, ok := ctx.ToolExecutionResults[message.KeyShortPlanning].(string); ok {
		shared.ShortPlanning = v
	}
	// Documents and pending edits arrive either as typed values or as
	// decoded JSON, so both are normalized through a JSON round trip.
	if v, ok := ctx.ToolExecutionResults[message.KeyGeneratedDocuments]; ok {
		if raw, err := json.Marshal(v); err == nil {
			_ = json.Unmarshal(raw, &shared.GeneratedDocuments)
		}
	}
	if v, ok := ctx.ToolExecutionResults[message.KeyPendingDocumentEdits]; ok {
		if raw, err := json.Marshal(v); err == nil {
			_ = json.Unmarshal(raw, &shared.PendingDocumentEdits)
		}
	}

	return shared, nil
}

// createAgentResult turns the shared working map into the caller-facing
// Result for one turn (spec §4.8). An error result is produced only when
// fatal is non-nil (an unrecovered orchestrator-level failure); a tool
// handler failure folded into a `tool` message does not fail the turn.
func createAgentResult(shared *toolkit.Shared, fatal error, executionTime time.Duration) message.Result {
	if fatal != nil {
		return message.Result{
			Success:       false,
			Error:         fatal.Error(),
			NewMessages:   shared.NewMessages,
			ExecutionTime: executionTime.Seconds(),
		}
	}

	updates := map[string]any{}
	if shared.RecommendedPrefabs != nil {
		updates[message.KeyRecommendedPrefabs] = shared.RecommendedPrefabs
	}
	if shared.ResearchFindings != nil {
		updates[message.KeyResearchFindings] = shared.ResearchFindings
	}
	if shared.ShortPlanning != "" {
		updates[message.KeyShortPlanning] = shared.ShortPlanning
	}
	if len(shared.GeneratedDocuments) > 0 {
		updates[message.KeyGeneratedDocuments] = shared.GeneratedDocuments
	}
	if len(shared.PendingDocumentEdits) > 0 {
		updates[message.KeyPendingDocumentEdits] = shared.PendingDocumentEdits
	}

	return message.Result{
		Success:                     true,
		NewMessages:                 shared.NewMessages,
		ToolExecutionResultsUpdates: updates,
		ExecutionTime:               executionTime.Seconds(),
	}
}

func nowUnix() float64 { return float64(time.Now().UnixNano()) / 1e9 }
