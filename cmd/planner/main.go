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

// Command planner is the CLI entrypoint for the planning agent core.
//
// Usage:
//
//	planner serve --config config.yaml
//	planner version
//
// CLI flag parsing beyond this minimal serve/version pair, and the config
// loading backend itself, are out of scope per spec §1; this binary only
// exists so the core is runnable end to end, matching the shape of the
// teacher's cmd/hector (kong CLI, serve subcommand, signal-driven
// shutdown).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/planner/internal/config"
	"github.com/kadirpekel/planner/internal/llmclient"
	"github.com/kadirpekel/planner/internal/observability"
	"github.com/kadirpekel/planner/internal/orchestrator"
	"github.com/kadirpekel/planner/internal/prefabgateway"
	"github.com/kadirpekel/planner/internal/promptstore"
	"github.com/kadirpekel/planner/internal/toolkit"
	"github.com/kadirpekel/planner/internal/tools"
	"github.com/kadirpekel/planner/internal/transport"
	"github.com/kadirpekel/planner/internal/vectorservice"
)

// CLI is the top-level kong command tree.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Serve   ServeCmd   `cmd:"" help:"Start the turn-streaming HTTP server."`

	Config   string `short:"c" help:"Path to config file." type:"path"`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

// VersionCmd prints the build version, matching cmd/hector's VersionCmd.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("planner version %s\n", version)
	return nil
}

// ServeCmd starts the HTTP transport (spec §6's runnable ambient shape).
type ServeCmd struct {
	Port          int  `help:"Port to listen on." default:"8080"`
	Tracing       bool `help:"Enable OpenTelemetry tracing to stdout."`
	Metrics       bool `help:"Enable Prometheus metrics at /metrics." default:"true"`
	CatalogPath   string `name:"catalog" help:"Path to the prefab catalogue JSON file." type:"path"`
}

func (c *ServeCmd) Run(cli *CLI) error {
	setLogLevel(cli.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("shutting down")
		cancel()
	}()

	cfg, err := config.Load(cli.Config)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := observability.InitTracer(ctx, observability.TracerConfig{
		Enabled:     c.Tracing,
		ServiceName: "planner",
	}); err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	var metrics *observability.Metrics
	if c.Metrics {
		metrics = observability.NewMetrics()
	}

	orch, err := buildOrchestrator(cfg, metrics, c.CatalogPath)
	if err != nil {
		return fmt.Errorf("build orchestrator: %w", err)
	}

	srv := transport.NewServer(orch, metrics)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", c.Port),
		Handler: srv,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("planner listening", "port", c.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// buildOrchestrator wires every collaborator named in spec §4/§6 from
// loaded config: the LLM client, the vector service backend selected by
// cfg.VectorService.Provider, the prefab gateway, the local catalogue, and
// the tool registry.
func buildOrchestrator(cfg *config.Config, metrics *observability.Metrics, catalogPath string) (*orchestrator.Orchestrator, error) {
	provider := llmclient.NewOpenAIProvider(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	llm, err := llmclient.New(provider, cfg.LLM.Model)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}

	vector, err := buildVectorService(cfg)
	if err != nil {
		return nil, fmt.Errorf("vector service: %w", err)
	}

	catalog := tools.NewCatalog(nil)
	if catalogPath != "" {
		watcher, err := tools.WatchCatalog(catalogPath, catalog)
		if err != nil {
			return nil, fmt.Errorf("catalog: %w", err)
		}
		_ = watcher // lifetime is the process; no explicit Close on serve exit
	}

	reg := toolkit.NewRegistry()
	if err := tools.Register(reg, tools.Deps{
		LLM:            llm,
		Vector:         vector,
		Gateway:        prefabgateway.New(prefabgateway.Config{}),
		Catalog:        catalog,
		ResearchAPIKey: cfg.JinaAPIKey,
		Model:          cfg.LLM.Model,
	}); err != nil {
		return nil, fmt.Errorf("register tools: %w", err)
	}

	prompts := promptstore.NewStatic(cfg.Multilingual.DefaultLanguage, map[string]string{
		cfg.Multilingual.DefaultLanguage: defaultSystemPrompt,
	})

	orch := orchestrator.New(llm, reg, prompts, cfg.Multilingual.DefaultLanguage)
	if cfg.MaxRecursionDepth > 0 {
		orch.MaxRecursionDepth = cfg.MaxRecursionDepth
	}
	orch.Metrics = metrics
	orch.Tracer = observability.Tracer("planner.orchestrator")
	return orch, nil
}

// buildVectorService selects prefab_recommend's backend by
// cfg.VectorService.Provider (spec §6), defaulting to the embedded
// chromem-go store so the binary runs with zero external services.
func buildVectorService(cfg *config.Config) (vectorservice.Service, error) {
	switch cfg.VectorService.Provider {
	case "qdrant":
		return vectorservice.NewQdrantService(vectorservice.QdrantConfig{Host: cfg.VectorService.BaseURL}, nil)
	case "pinecone":
		return vectorservice.NewPineconeService(vectorservice.PineconeConfig{}, nil)
	case "", "chromem":
		return vectorservice.NewChromemService(vectorservice.ChromemConfig{})
	default:
		return nil, fmt.Errorf("unknown vector_service.provider %q", cfg.VectorService.Provider)
	}
}

func setLogLevel(level string) {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}

const defaultSystemPrompt = `You are a planning agent. Turn the user's product idea into a system ` +
	`design document, using the available tools to recommend prefabs, research unfamiliar ` +
	`technologies, draft a short plan, and generate or edit design documents as the conversation ` +
	`requires.`

func main() {
	var cli CLI
	ctx := kong.Parse(&cli, kong.Name("planner"), kong.Description("Conversational planning agent core."))
	if err := ctx.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
