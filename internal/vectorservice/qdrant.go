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
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures the Qdrant-backed Service, ported from the
// teacher's pkg/vector.QdrantConfig (same field names, same defaults).
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantService implements Service against a remote Qdrant instance,
// embedding query/index text itself via embedder so the rest of the
// module only ever deals in text, matching the other backends' Service
// contract. Grounded on pkg/vector/qdrant.go's QdrantProvider, generalized
// from the teacher's vector-in/vector-out Provider interface to the
// text-in Service interface this module's prefab_recommend tool expects.
type QdrantService struct {
	client     *qdrant.Client
	embedder   Embedder
	collection string
}

// NewQdrantService dials the Qdrant gRPC endpoint. embedder may be nil, in
// which case Available() reports false so prefab_recommend degrades to
// search_prefabs per spec §4.3.
func NewQdrantService(cfg QdrantConfig, embedder Embedder) (*QdrantService, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		cfg.Collection = collectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vectorservice: connect qdrant %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantService{client: client, embedder: embedder, collection: cfg.Collection}, nil
}

// Available reports whether an embedder is configured; the client
// connection itself is dialed lazily by the qdrant SDK per call.
func (s *QdrantService) Available() bool {
	return s.embedder != nil
}

// Index embeds content and upserts it into the collection, creating the
// collection on first use sized to the embedder's dimension.
func (s *QdrantService) Index(ctx context.Context, id, content string, metadata map[string]any) error {
	if s.embedder == nil {
		return ErrUnavailable
	}
	vector, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vectorservice: embed: %w", err)
	}

	if err := s.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}

	payload := make(map[string]*qdrant.Value, len(metadata)+1)
	payload["content"], _ = qdrant.NewValue(content)
	for k, v := range metadata {
		val, err := qdrant.NewValue(v)
		if err != nil {
			continue
		}
		payload[k] = val
	}

	point := &qdrant.PointStruct{
		Id:      qdrant.NewID(id),
		Vectors: qdrant.NewVectors(vector...),
		Payload: payload,
	}
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("vectorservice: upsert: %w", err)
	}
	return nil
}

func (s *QdrantService) ensureCollection(ctx context.Context, dim int) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("vectorservice: check collection: %w", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return fmt.Errorf("vectorservice: create collection: %w", err)
	}
	return nil
}

// Query embeds text and runs a similarity search over the collection.
func (s *QdrantService) Query(ctx context.Context, text string, topK int) ([]Result, error) {
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

	searchResult, err := s.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("vectorservice: search: %w", err)
	}

	out := make([]Result, 0, len(searchResult.Result))
	for _, p := range searchResult.Result {
		out = append(out, pointToResult(p))
	}
	return out, nil
}

func pointToResult(p *qdrant.ScoredPoint) Result {
	var id string
	if p.Id != nil {
		switch v := p.Id.PointIdOptions.(type) {
		case *qdrant.PointId_Uuid:
			id = v.Uuid
		case *qdrant.PointId_Num:
			id = fmt.Sprintf("%d", v.Num)
		}
	}

	metadata := make(map[string]any, len(p.Payload))
	var content string
	for k, v := range p.Payload {
		switch val := v.Kind.(type) {
		case *qdrant.Value_StringValue:
			metadata[k] = val.StringValue
			if k == "content" {
				content = val.StringValue
			}
		case *qdrant.Value_IntegerValue:
			metadata[k] = val.IntegerValue
		case *qdrant.Value_DoubleValue:
			metadata[k] = val.DoubleValue
		case *qdrant.Value_BoolValue:
			metadata[k] = val.BoolValue
		}
	}

	return Result{ID: id, Score: p.Score, Content: content, Metadata: metadata}
}

var _ Service = (*QdrantService)(nil)
