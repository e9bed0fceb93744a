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

// Package tools implements the ten tool handlers the orchestrator's
// registry dispatches to (spec §4.3), wiring each to the collaborator
// that backs it: the LLM client for design/planning prose, the vector
// service for prefab_recommend, the prefab gateway for
// call_prefab_function, and a local JSON catalogue for search_prefabs.
package tools

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"
)

// Prefab is one entry of the local catalogue search_prefabs matches
// against. No external service is required for this tool, per spec §4.3.
type Prefab struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Functions   []string `json:"functions"`
}

// Catalog is an in-memory, read-mostly prefab catalogue loaded from JSON.
// Reload swaps the backing slice under a lock so a long-lived *Catalog
// handed to every tool registration can be hot-reloaded in place (see
// catalog_watch.go) without re-wiring Deps.
type Catalog struct {
	mu      sync.RWMutex
	prefabs []Prefab
}

// NewCatalog wraps a slice already decoded by the caller (typically from
// config at startup).
func NewCatalog(prefabs []Prefab) *Catalog {
	return &Catalog{prefabs: prefabs}
}

// Reload atomically replaces the catalogue's contents.
func (c *Catalog) Reload(prefabs []Prefab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefabs = prefabs
}

// ReloadFromJSON decodes raw as a JSON array of Prefab and reloads on
// success, leaving the existing catalogue untouched on a parse error.
func (c *Catalog) ReloadFromJSON(raw []byte) error {
	var prefabs []Prefab
	if err := json.Unmarshal(raw, &prefabs); err != nil {
		return err
	}
	c.Reload(prefabs)
	return nil
}

// LoadCatalog decodes a JSON array of Prefab from raw bytes.
func LoadCatalog(raw []byte) (*Catalog, error) {
	var prefabs []Prefab
	if err := json.Unmarshal(raw, &prefabs); err != nil {
		return nil, err
	}
	return NewCatalog(prefabs), nil
}

// scoredPrefab pairs a prefab with its match score for ranking.
type scoredPrefab struct {
	prefab Prefab
	score  float64
}

// Search performs a local fuzzy match: case-insensitive substring and
// token-overlap scoring over name/description/tags, optionally narrowed
// by tags/author. There is no third-party fuzzy-matching library in the
// example corpus for this concern (see DESIGN.md), so this is a small
// hand-rolled token-overlap scorer rather than a dependency.
func (c *Catalog) Search(query string, tags []string, author string, limit int) []Prefab {
	queryTokens := tokenize(query)
	tagFilter := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagFilter[strings.ToLower(t)] = true
	}

	c.mu.RLock()
	prefabs := c.prefabs
	c.mu.RUnlock()

	var scored []scoredPrefab
	for _, p := range prefabs {
		if author != "" && !strings.EqualFold(p.Author, author) {
			continue
		}
		if len(tagFilter) > 0 && !hasAnyTag(p.Tags, tagFilter) {
			continue
		}

		score := matchScore(queryTokens, p)
		if query != "" && score == 0 {
			continue
		}
		scored = append(scored, scoredPrefab{prefab: p, score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	if limit <= 0 || limit > len(scored) {
		limit = len(scored)
	}
	out := make([]Prefab, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, scored[i].prefab)
	}
	return out
}

func hasAnyTag(prefabTags []string, wanted map[string]bool) bool {
	for _, t := range prefabTags {
		if wanted[strings.ToLower(t)] {
			return true
		}
	}
	return false
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})
	return fields
}

func matchScore(queryTokens []string, p Prefab) float64 {
	if len(queryTokens) == 0 {
		return 1
	}
	haystack := strings.ToLower(p.Name + " " + p.Description + " " + strings.Join(p.Tags, " "))
	var score float64
	for _, tok := range queryTokens {
		if tok == "" {
			continue
		}
		if strings.Contains(haystack, tok) {
			score++
		}
	}
	return score
}
