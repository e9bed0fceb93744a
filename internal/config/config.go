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

// Package config loads the small set of configuration keys the core reads
// (spec §6): LLM credentials/tuning, the vector service, the prefab
// gateway, the optional research API key, the optional prefab-function
// gateway key, and the multilingual language list. Loading itself, CLI
// flag parsing, and persistence backends (consul/etcd/zookeeper) are out
// of scope per spec §1; this package only covers the file+env layering the
// teacher's pkg/config/koanf_loader.go does for the equivalent keys.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/mitchellh/mapstructure"
)

// EnvPrefix is the fixed prefix spec §6 requires for environment overrides.
const EnvPrefix = "GTPLANNER_"

// LLMConfig carries the LLM client's required/optional settings (spec §6).
type LLMConfig struct {
	APIKey      string        `koanf:"api_key" yaml:"api_key"`
	BaseURL     string        `koanf:"base_url" yaml:"base_url"`
	Model       string        `koanf:"model" yaml:"model"`
	Temperature float64       `koanf:"temperature" yaml:"temperature"`
	Timeout     time.Duration `koanf:"timeout" yaml:"timeout"`
	MaxRetries  int           `koanf:"max_retries" yaml:"max_retries"`
}

// VectorServiceConfig selects and configures the prefab_recommend backend.
type VectorServiceConfig struct {
	Provider string        `koanf:"provider" yaml:"provider"` // "chromem" | "qdrant" | "pinecone"
	BaseURL  string        `koanf:"base_url" yaml:"base_url"`
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
}

// PrefabGatewayConfig points call_prefab_function at its MCP-style gateway.
type PrefabGatewayConfig struct {
	BaseURL string `koanf:"base_url" yaml:"base_url"`
}

// MultilingualConfig names the prompt store's default and supported
// languages; template content itself is out of scope (spec §1).
type MultilingualConfig struct {
	DefaultLanguage    string   `koanf:"default_language" yaml:"default_language"`
	SupportedLanguages []string `koanf:"supported_languages" yaml:"supported_languages"`
}

// Config is the full set of keys the core reads at startup.
type Config struct {
	LLM              LLMConfig            `koanf:"llm" yaml:"llm"`
	VectorService    VectorServiceConfig  `koanf:"vector_service" yaml:"vector_service"`
	PrefabGateway    PrefabGatewayConfig  `koanf:"prefab_gateway" yaml:"prefab_gateway"`
	Multilingual     MultilingualConfig   `koanf:"multilingual" yaml:"multilingual"`
	JinaAPIKey       string               `koanf:"jina_api_key" yaml:"jina_api_key"`
	AgentBuilderKey  string               `koanf:"agent_builder_api_key" yaml:"agent_builder_api_key"`
	MaxRecursionDepth int                 `koanf:"max_recursion_depth" yaml:"max_recursion_depth"`
}

// defaults mirrors the teacher's zero_config.go: a config.Config usable
// out of the box save for the LLM API key, which has no safe default.
func defaults() map[string]any {
	return map[string]any{
		"llm.base_url":                 "https://api.openai.com/v1",
		"llm.model":                    "gpt-4o-mini",
		"llm.temperature":              0.7,
		"llm.timeout":                  "120s",
		"llm.max_retries":              3,
		"vector_service.provider":      "chromem",
		"vector_service.timeout":       "30s",
		"multilingual.default_language": "en",
		"multilingual.supported_languages": []string{"en"},
		"max_recursion_depth":          5,
	}
}

// Load layers defaults, an optional YAML file, and `GTPLANNER_`-prefixed
// environment variables, in that order (spec §6), matching the teacher's
// koanf_loader.go defaults→file→env layering. path may be empty, in which
// case only defaults and the environment apply. A .env file at the process
// working directory is loaded first (if present) via godotenv, the same
// way pkg/config/env.go seeds os.Environ() for local development.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // optional local .env; absence is not an error

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("config: load file %s: %w", path, err)
			}
		}
	}

	if err := loadEnv(k); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	decoderConfig := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
			),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, decoderConfig); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

// loadEnv hand-rolls the `GTPLANNER_`-prefixed environment overlay: koanf's
// shipped env provider (this pack's version) has no built-in nested-key
// delimiter translation compatible with the dotted `llm.api_key` style
// config keys use, so the prefix-strip/lowercase/double-underscore-to-dot
// mapping (GTPLANNER_LLM__MAX_RETRIES -> llm.max_retries) is done directly
// over os.Environ(). This is the one place this package
// steps outside a koanf provider; everything else stays in koanf per
// SPEC_FULL's ambient-stack grounding.
func loadEnv(k *koanf.Koanf) error {
	overrides := map[string]any{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		dotted := strings.ToLower(strings.ReplaceAll(strings.TrimPrefix(key, EnvPrefix), "__", "."))
		overrides[dotted] = parseEnvValue(value)
	}
	if len(overrides) == 0 {
		return nil
	}
	return k.Load(confmap.Provider(overrides, "."), nil)
}

// parseEnvValue mirrors pkg/config/env.go's parseValue: environment
// variables arrive as strings, so bools/ints/floats are recovered before
// they reach koanf's typed unmarshal.
func parseEnvValue(v string) any {
	switch strings.ToLower(v) {
	case "true":
		return true
	case "false":
		return false
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}
