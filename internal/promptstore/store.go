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

// Package promptstore is the lookup interface the orchestrator uses to
// fetch a system prompt by language (spec §4.1 step 2). The multilingual
// prompt content itself is out of scope; this package only provides the
// interface and a default-language fallback so the orchestrator never
// blocks on a missing translation.
package promptstore

import "sync"

// Store resolves a system prompt by language code (e.g. "en", "zh").
type Store interface {
	SystemPrompt(language string) string
}

// Static is an in-memory Store, suitable for embedding a small built-in
// set of prompts or for tests; a production deployment can wrap a file- or
// database-backed Store behind the same interface.
type Static struct {
	mu              sync.RWMutex
	prompts         map[string]string
	defaultLanguage string
}

// NewStatic builds a Static store. defaultLanguage is returned when a
// requested language has no entry.
func NewStatic(defaultLanguage string, prompts map[string]string) *Static {
	copied := make(map[string]string, len(prompts))
	for k, v := range prompts {
		copied[k] = v
	}
	return &Static{prompts: copied, defaultLanguage: defaultLanguage}
}

// SystemPrompt returns the prompt for language, or the default language's
// prompt if language is unset or unknown.
func (s *Static) SystemPrompt(language string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.prompts[language]; ok {
		return p
	}
	return s.prompts[s.defaultLanguage]
}

// Set registers or replaces the prompt for language.
func (s *Static) Set(language, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts[language] = prompt
}

var _ Store = (*Static)(nil)
