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

	"github.com/kadirpekel/planner/internal/toolkit"
)

type searchPrefabsArgs struct {
	Query  string   `json:"query" jsonschema:"description=Free-text search over name/description/tags"`
	Tags   []string `json:"tags" jsonschema:"description=Restrict to prefabs carrying any of these tags"`
	Author string   `json:"author" jsonschema:"description=Restrict to prefabs published by this author"`
	Limit  int      `json:"limit" jsonschema:"description=Maximum number of results,default=10"`
}

func registerSearchPrefabs(reg *toolkit.Registry, deps Deps) error {
	properties, required, err := toolkit.SchemaFor[searchPrefabsArgs]()
	if err != nil {
		return err
	}

	reg.Register(toolkit.Entry{
		Name:        "search_prefabs",
		Description: "Fuzzy-search the local prefab catalogue by query, tags, and/or author. Always available.",
		Schema:      properties,
		Required:    required,
		Handler: func(ctx context.Context, rawArgs map[string]any, shared *toolkit.Shared) (toolkit.Result, error) {
			args, err := decodeArgs[searchPrefabsArgs](rawArgs)
			if err != nil {
				return toolkit.Result{Success: false, Error: err.Error()}, nil
			}
			if args.Limit <= 0 {
				args.Limit = 10
			}

			catalog := deps.Catalog
			if catalog == nil {
				catalog = NewCatalog(nil)
			}

			matches := catalog.Search(args.Query, args.Tags, args.Author, args.Limit)
			ranked := make([]any, 0, len(matches))
			for _, m := range matches {
				ranked = append(ranked, map[string]any{
					"id":          m.ID,
					"name":        m.Name,
					"description": m.Description,
					"author":      m.Author,
					"tags":        m.Tags,
					"functions":   m.Functions,
				})
			}

			shared.SetRecommendedPrefabs(ranked)
			return toolkit.Result{Success: true, Output: ranked}, nil
		},
	})
	return nil
}
