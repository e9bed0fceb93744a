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
)

type databaseDesignArgs struct {
	UserRequirements string `json:"user_requirements" jsonschema:"required,description=The product idea or requirements"`
	SystemDesign     string `json:"system_design" jsonschema:"required,description=The design.md content to base the schema on"`
	Plan             string `json:"plan" jsonschema:"description=A prior short_planning output"`
	Prefabs          []any  `json:"prefabs" jsonschema:"description=Recommended prefabs to incorporate"`
}

func registerDatabaseDesign(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[databaseDesignArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "database_design",
		Description: "Generate a database_design.md document from an existing system design. Intended to run after design.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[databaseDesignArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if deps.LLM == nil {
				return toolkit.Result{Success: false, Error: "database_design disabled: no LLM client configured"}, nil
			}

			var prompt strings.Builder
			prompt.WriteString("Produce a database design document (database_design.md) as Markdown.\n\n")
			fmt.Fprintf(&prompt, "Requirements:\n%s\n\n", args.UserRequirements)
			fmt.Fprintf(&prompt, "System design:\n%s\n\n", args.SystemDesign)
			if args.Plan != "" {
				fmt.Fprintf(&prompt, "Plan:\n%s\n\n", args.Plan)
			}
			if len(args.Prefabs) > 0 {
				fmt.Fprintf(&prompt, "Prefabs:\n%v\n\n", args.Prefabs)
			}

			resp, err := deps.LLM.ChatCompletion(ctx, llmclient.Request{
				SystemPrompt: "You are a database design assistant. Respond with a Markdown document only.",
				Messages:     []message.Message{{Role: message.RoleUser, Content: prompt.String()}},
			})
			if err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("database_design LLM call failed: %v", err)}, nil
			}

			shared.AppendGeneratedDocument(message.GeneratedDocument{
				Type:      "database_design",
				Filename:  "database_design.md",
				Content:   resp.Content,
				Timestamp: nowUnix(),
			})

			return toolkit.Result{Success: true, Output: map[string]any{
				"filename":           "database_design.md",
				"content":            resp.Content,
				"generation_success": resp.Content != "",
			}}, nil
		},
	})
	return nil
}
