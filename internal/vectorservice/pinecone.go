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

package vectorservice

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the Pinecone-backed Service, ported field for
// field from the teacher's pkg/vector.PineconeConfig.
type PineconeConfig struct {
	APIKey    string
	Host      string
	IndexName string
}

// PineconeService implements Service against a Pinecone index, embedding
// text itself via embedder. Grounded on pkg/vector/pinecone.go's
// PineconeProvider, generalized the same way QdrantService is: text in,
// not pre-computed vectors.
type PineconeService struct {
	client    *pinecone.Client
	embedder  Embedder
	indexName string
}

// NewPineconeService builds a client against the given API key/index.
func NewPineconeService(cfg PineconeConfig, embedder Embedder) (*PineconeService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vectorservice: pinecone api key is required")
	}
	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}
	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("vectorservice: pinecone client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "planner-prefabs"
	}

	return &PineconeService{client: client, embedder: embedder, indexName: indexName}, nil
}

func (s *PineconeService) Available() bool { return s.embedder != nil }

func (s *PineconeService) conn(ctx context.Context) (*pinecone.IndexConnection, error) {
	idx, err := s.client.DescribeIndex(ctx, s.indexName)
	if err != nil {
		return nil, fmt.Errorf("vectorservice: describe index %s: %w", s.indexName, err)
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: idx.Host})
	if err != nil {
		return nil, fmt.Errorf("vectorservice: index connection: %w", err)
	}
	return conn, nil
}

// Index embeds content and upserts it into the configured index.
func (s *PineconeService) Index(ctx context.Context, id, content string, metadata map[string]any) error {
	if s.embedder == nil {
		return ErrUnavailable
	}
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vectorservice: embed: %w", err)
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	withContent := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		withContent[k] = v
	}
	withContent["content"] = content

	meta, err := structpb.NewStruct(withContent)
	if err != nil {
		return fmt.Errorf("vectorservice: encode metadata: %w", err)
	}

	_, err = conn.UpsertVectors(ctx, []*pinecone.Vector{{Id: id, Values: vector, Metadata: meta}})
	if err != nil {
		return fmt.Errorf("vectorservice: upsert: %w", err)
	}
	return nil
}

// Query embeds text and runs a similarity search over the index.
func (s *PineconeService) Query(ctx context.Context, text string, topK int) ([]Result, error) {
	if s.embedder == nil {
		return nil, ErrUnavailable
	}
	if topK <= 0 {
		topK = 5
	}
	vector, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("vectorservice: embed: %w", err)
	}

	conn, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorservice: query: %w", err)
	}

	out := make([]Result, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		metadata := map[string]any{}
		var content string
		if m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				metadata[k] = v
			}
			if c, ok := metadata["content"].(string); ok {
				content = c
			}
		}
		out = append(out, Result{ID: m.Vector.Id, Score: m.Score, Content: content, Metadata: metadata})
	}
	return out, nil
}

var _ Service = (*PineconeService)(nil)
