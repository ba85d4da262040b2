// Copyright 2025 Poiesic Systems
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

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/chunksearch/embed"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements embed.Embedder against OpenAI-compatible embedding
// APIs, cloud or local.
type Embedder struct {
	embedder embeddings.Embedder
	info     embed.MethodInfo
	logger   *slog.Logger
}

// NewCloudEmbedder creates an embedder against the OpenAI cloud API using
// the API key from config.
//
// Returns embed.Embedder interface to enforce abstraction.
func NewCloudEmbedder(config *embed.Config) (embed.Embedder, error) {
	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.CloudModel),
	)
	if err != nil {
		return nil, err
	}
	info := embed.MethodInfo{
		Method:      embed.MethodOpenAI,
		Dimension:   config.CloudDimension,
		IsFree:      false,
		Description: "OpenAI cloud embeddings (" + config.CloudModel + ")",
	}
	return newEmbedder(client, info)
}

// NewLocalEmbedder creates an embedder against a local OpenAI-compatible
// endpoint such as Ollama.
//
// Returns embed.Embedder interface to enforce abstraction.
func NewLocalEmbedder(config *embed.Config) (embed.Embedder, error) {
	// "none" as token for local services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.LocalHost),
		openai.WithToken("none"),
		openai.WithEmbeddingModel(config.LocalModel),
	)
	if err != nil {
		return nil, err
	}
	info := embed.MethodInfo{
		Method:      embed.MethodLocal,
		Dimension:   config.LocalDimension,
		IsFree:      true,
		Description: "local semantic model (" + config.LocalModel + ")",
	}
	return newEmbedder(client, info)
}

func newEmbedder(client *openai.LLM, info embed.MethodInfo) (*Embedder, error) {
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}
	return &Embedder{
		embedder: embedder,
		info:     info,
		logger:   slog.Default().With("component", "openai-embedder", "method", info.Method),
	}, nil
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.logger.Debug("generating embedding for single text", "length", len(text))

	embeddings, err := e.embedder.EmbedDocuments(ctx, []string{text})
	if err != nil {
		e.logger.Error("failed to generate embedding", "err", err)
		return nil, err
	}

	if len(embeddings) == 0 {
		e.logger.Warn("embedder returned empty result")
		return []float32{}, nil
	}

	return embeddings[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	embeddings, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}

	return embeddings, nil
}

// Describe reports the configured method.
func (e *Embedder) Describe() embed.MethodInfo {
	return e.info
}
