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

type shortPlanningArgs struct {
	UserRequirements  string   `json:"user_requirements" jsonschema:"required,description=The product idea or requirements to plan for"`
	PriorPlan         string   `json:"prior_plan" jsonschema:"description=A previous plan to refine, if re-calling this tool"`
	ImprovementPoints []string `json:"improvement_points" jsonschema:"description=Specific points the refined plan must address"`
	Prefabs           []any    `json:"prefabs" jsonschema:"description=Recommended prefabs to factor into the plan"`
	Research          any      `json:"research" jsonschema:"description=Research findings to factor into the plan"`
}

func registerShortPlanning(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[shortPlanningArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "short_planning",
		Description: "Produce (or refine) a step-by-step project plan as Markdown.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[shortPlanningArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if deps.LLM == nil {
				return toolkit.Result{Success: false, Error: "short_planning disabled: no LLM client configured"}, nil
			}

			var prompt strings.Builder
			prompt.WriteString("Produce a step-by-step project plan as Markdown for this product idea.\n\n")
			fmt.Fprintf(&prompt, "Requirements:\n%s\n\n", args.UserRequirements)
			if args.PriorPlan != "" {
				fmt.Fprintf(&prompt, "Refine this prior plan:\n%s\n\n", args.PriorPlan)
			}
			if len(args.ImprovementPoints) > 0 {
				fmt.Fprintf(&prompt, "Address these improvement points:\n- %s\n\n", strings.Join(args.ImprovementPoints, "\n- "))
			}
			if len(args.Prefabs) > 0 {
				fmt.Fprintf(&prompt, "Recommended prefabs to incorporate:\n%v\n\n", args.Prefabs)
			}
			if args.Research != nil {
				fmt.Fprintf(&prompt, "Research findings to incorporate:\n%v\n\n", args.Research)
			}

			resp, err := deps.LLM.ChatCompletion(ctx, llmclient.Request{
				SystemPrompt: "You are a planning assistant. Respond with a Markdown plan only, no commentary.",
				Messages:     []message.Message{{Role: message.RoleUser, Content: prompt.String()}},
			})
			if err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("planning LLM call failed: %v", err)}, nil
			}

			shared.SetShortPlanning(resp.Content)
			return toolkit.Result{Success: true, Output: resp.Content}, nil
		},
	})
	return nil
}
