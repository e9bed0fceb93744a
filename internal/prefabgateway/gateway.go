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

// Package prefabgateway is the call_prefab_function transport: an MCP
// client that invokes a downstream prefab's function over the protocol,
// grounded on the teacher's pkg/tool/mcptoolset (stdio via mcp-go's
// client.Client, initialize/list/call sequence) but narrowed to the one
// operation call_prefab_function needs rather than a general toolset.
package prefabgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// truncateLimit matches spec §4.3: large content strings in a
// call_prefab_function result are truncated with a summary marker.
const truncateLimit = 2000

// Config configures the MCP connection to the prefab gateway.
type Config struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Gateway is a lazily-connected MCP client to the prefab function server.
type Gateway struct {
	cfg Config

	mu        sync.Mutex
	mcpClient *client.Client
}

// New builds a Gateway. The MCP subprocess is not started until the first
// Call.
func New(cfg Config) *Gateway {
	return &Gateway{cfg: cfg}
}

func (g *Gateway) ensureConnected(ctx context.Context) (*client.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mcpClient != nil {
		return g.mcpClient, nil
	}

	env := make([]string, 0, len(g.cfg.Env))
	for k, v := range g.cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	mcpClient, err := client.NewStdioMCPClient(g.cfg.Command, env, g.cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("create MCP client: %w", err)
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("start MCP client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "planner", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		mcpClient.Close()
		return nil, fmt.Errorf("initialize MCP: %w", err)
	}

	g.mcpClient = mcpClient
	return mcpClient, nil
}

// Close releases the underlying MCP connection, if any.
func (g *Gateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mcpClient == nil {
		return nil
	}
	err := g.mcpClient.Close()
	g.mcpClient = nil
	return err
}

// CallRequest is the call_prefab_function tool's input.
type CallRequest struct {
	PrefabID     string
	Version      string
	FunctionName string
	Parameters   map[string]any
	Files        []string
}

// Call invokes functionName on prefabID/version with parameters, truncating
// any oversized "content" field in the result per spec §4.3.
func (g *Gateway) Call(ctx context.Context, req CallRequest) (map[string]any, error) {
	mcpClient, err := g.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	callReq := mcp.CallToolRequest{}
	callReq.Params.Name = req.FunctionName
	callReq.Params.Arguments = map[string]any{
		"prefab_id":  req.PrefabID,
		"version":    req.Version,
		"parameters": req.Parameters,
		"files":      req.Files,
	}

	callCtx, cancel := context.WithTimeout(ctx, 20*time.Minute)
	defer cancel()

	resp, err := mcpClient.CallTool(callCtx, callReq)
	if err != nil {
		return nil, fmt.Errorf("call_prefab_function: %w", err)
	}

	result, err := parseResult(resp)
	if err != nil {
		return nil, err
	}
	truncateContent(result)
	return result, nil
}

func parseResult(resp *mcp.CallToolResult) (map[string]any, error) {
	if resp.IsError {
		var msg string
		for _, c := range resp.Content {
			if tc, ok := c.(mcp.TextContent); ok {
				msg += tc.Text
			}
		}
		return nil, fmt.Errorf("prefab function error: %s", msg)
	}

	var combined string
	for _, c := range resp.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			combined += tc.Text
		}
	}

	result := map[string]any{}
	if combined != "" {
		if err := json.Unmarshal([]byte(combined), &result); err != nil {
			result["content"] = combined
		}
	}
	return result, nil
}

func truncateContent(result map[string]any) {
	content, ok := result["content"].(string)
	if !ok || len(content) <= truncateLimit {
		return
	}
	result["content"] = content[:truncateLimit] + fmt.Sprintf("... [truncated, %d chars total]", len(content))
}
