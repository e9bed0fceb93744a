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

package promptstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatic_ReturnsLanguageSpecificPrompt(t *testing.T) {
	s := NewStatic("en", map[string]string{"en": "english prompt", "zh": "chinese prompt"})
	assert.Equal(t, "chinese prompt", s.SystemPrompt("zh"))
}

func TestStatic_FallsBackToDefaultLanguage(t *testing.T) {
	s := NewStatic("en", map[string]string{"en": "english prompt"})
	assert.Equal(t, "english prompt", s.SystemPrompt("fr"))
}

func TestStatic_SetOverridesExistingPrompt(t *testing.T) {
	s := NewStatic("en", map[string]string{"en": "v1"})
	s.Set("en", "v2")
	assert.Equal(t, "v2", s.SystemPrompt("en"))
}
