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
	"net/http"

	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/prefabgateway"
	"github.com/kadirpekel/planner/internal/toolkit"
	"github.com/kadirpekel/planner/internal/vectorservice"
)

// Deps are the collaborators every tool handler may need. Not every tool
// uses every field; prefab_recommend needs Vector, research needs
// ResearchAPIKey/HTTP, call_prefab_function needs Gateway, and so on.
type Deps struct {
	LLM            *llmclient.Client
	Vector         vectorservice.Service
	Gateway        *prefabgateway.Gateway
	Catalog        *Catalog
	HTTP           *http.Client
	ResearchAPIKey string
	ResearchAPIURL string
	Model          string
}

// Register builds every tool entry and adds it to reg.
func Register(reg *toolkit.Registry, deps Deps) error {
	builders := []func(*toolkit.Registry, Deps) error{
		registerPrefabRecommend,
		registerSearchPrefabs,
		registerResearch,
		registerShortPlanning,
		registerDesign,
		registerDatabaseDesign,
		registerEditDocument,
		registerViewDocument,
		registerExportDocument,
		registerCallPrefabFunction,
	}
	for _, build := range builders {
		if err := build(reg, deps); err != nil {
			return err
		}
	}
	return nil
}
