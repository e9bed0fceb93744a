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

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/message"
	"github.com/kadirpekel/planner/internal/toolkit"
	"github.com/kadirpekel/planner/internal/vectorservice"
)

type prefabRecommendArgs struct {
	Query       string `json:"query" jsonschema:"required,description=Natural-language description of the capability needed"`
	TopK        int    `json:"top_k" jsonschema:"description=Maximum number of prefabs to return,default=5"`
	UseLLMFilter bool  `json:"use_llm_filter" jsonschema:"description=Ask the LLM to re-rank the vector hits before returning them"`
}

func registerPrefabRecommend(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[prefabRecommendArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "prefab_recommend",
		Description: "Rank prefab packages from the vector catalogue against a natural-language capability query.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[prefabRecommendArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if args.TopK <= 0 {
				args.TopK = 5
			}

			if deps.Vector == nil || !deps.Vector.Available() {
				return toolkit.Result{
					Success:    false,
					Error:      "vector service unavailable",
					Suggestion: "use search_prefabs",
				}, nil
			}

			results, err := deps.Vector.Query(ctx, args.Query, args.TopK)
			if err != nil {
				if err == vectorservice.ErrUnavailable {
					return toolkit.Result{Success: false, Error: err.Error(), Suggestion: "use search_prefabs"}, nil
				}
				return toolkit.Result{Success: false, Error: fmt.Sprintf("vector query failed: %v", err), Suggestion: "use search_prefabs"}, nil
			}

			ranked := make([]any, 0, len(results))
			for _, r := range results {
				ranked = append(ranked, map[string]any{
					"id":       r.ID,
					"score":    r.Score,
					"content":  r.Content,
					"metadata": r.Metadata,
				})
			}

			if args.UseLLMFilter && deps.LLM != nil && len(ranked) > 0 {
				ranked = rerankWithLLM(ctx, deps.LLM, args.Query, ranked)
			}

			shared.SetRecommendedPrefabs(ranked)
			return toolkit.Result{Success: true, Output: ranked}, nil
		},
	})
	return nil
}

// rerankWithLLM asks the model for a comma-separated ordering of prefab
// ids by relevance; on any failure, or if the response does not cover
// every id exactly once, it falls back to the original vector-similarity
// order rather than failing the tool call.
func rerankWithLLM(ctx context.Context, client *llmclient.Client, query string, ranked []any) []any {
	byID := make(map[string]any, len(ranked))
	ids := make([]string, 0, len(ranked))
	for _, r := range ranked {
		m, ok := r.(map[string]any)
		if !ok {
			return ranked
		}
		id, _ := m["id"].(string)
		byID[id] = r
		ids = append(ids, id)
	}

	resp, err := client.ChatCompletion(ctx, llmclient.Request{
		SystemPrompt: "You re-rank candidate prefab ids by relevance to the user's query. Respond with only the ids, comma-separated, most relevant first. Use exactly the ids given, each exactly once.",
		Messages: []message.Message{{
			Role:    message.RoleUser,
			Content: fmt.Sprintf("Query: %s\nCandidate ids: %s", query, strings.Join(ids, ", ")),
		}},
	})
	if err != nil || resp.Content == "" {
		return ranked
	}

	ordered := make([]any, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))
	for _, tok := range strings.Split(resp.Content, ",") {
		id := strings.TrimSpace(tok)
		item, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, item)
	}
	if len(ordered) != len(ranked) {
		return ranked
	}
	return ordered
}
