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

	"github.com/kadirpekel/planner/internal/prefabgateway"
	"github.com/kadirpekel/planner/internal/toolkit"
)

type callPrefabFunctionArgs struct {
	PrefabID     string         `json:"prefab_id" jsonschema:"required,description=The prefab catalogue id"`
	Version      string         `json:"version" jsonschema:"description=Prefab version; defaults to latest"`
	FunctionName string         `json:"function_name" jsonschema:"required,description=The function within the prefab to invoke"`
	Parameters   map[string]any `json:"parameters" jsonschema:"description=Parameters to pass to the function"`
	Files        []string       `json:"files" jsonschema:"description=Paths of files the function should operate on"`
}

func registerCallPrefabFunction(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[callPrefabFunctionArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "call_prefab_function",
		Description: "Invoke a function exposed by a prefab through the MCP gateway and return its result.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[callPrefabFunctionArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if deps.Gateway == nil {
				return toolkit.Result{Success: false, Error: "call_prefab_function disabled: no prefab gateway configured"}, nil
			}

			result, err := deps.Gateway.Call(ctx, prefabgateway.CallRequest{
				PrefabID:     args.PrefabID,
				Version:      args.Version,
				FunctionName: args.FunctionName,
				Parameters:   args.Parameters,
				Files:        args.Files,
			})
			if err != nil {
				return toolkit.Result{Success: false, Error: fmt.Sprintf("prefab function call failed: %v", err)}, nil
			}

			return toolkit.Result{Success: true, Output: result}, nil
		},
	})
	return nil
}
