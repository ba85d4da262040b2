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

package embed

import "time"

// Default embedding settings. The local defaults target an Ollama-style
// OpenAI-compatible endpoint.
const (
	DefaultLocalHost      = "http://localhost:11434/v1"
	DefaultLocalModel     = "all-minilm"
	DefaultLocalDimension = 384

	DefaultCloudModel     = "text-embedding-3-small"
	DefaultCloudDimension = 1536

	// HashDimension is the output dimension of the hash fallback tier.
	HashDimension = 384

	DefaultCacheSize    = 1000
	DefaultProbeTimeout = 5 * time.Second
)

// Config holds settings for embedding provider selection.
type Config struct {
	// APIKey enables the cloud tier when non-empty.
	APIKey string

	// CloudModel is the embedding model requested from the cloud API.
	CloudModel string

	// CloudDimension is the vector length CloudModel produces.
	CloudDimension int

	// LocalHost is the base URL of an OpenAI-compatible local endpoint.
	LocalHost string

	// LocalModel is the embedding model requested from LocalHost.
	LocalModel string

	// LocalDimension is the vector length LocalModel produces.
	LocalDimension int

	// ForceMethod pins provider selection to one tier, skipping the
	// probe. Empty means automatic selection.
	ForceMethod string

	// CacheSize caps the query embedding cache entry count.
	CacheSize int

	// ProbeTimeout bounds the reachability check of LocalHost during
	// automatic selection. An unreachable or slow endpoint fails closed
	// to the hash tier.
	ProbeTimeout time.Duration
}

// DefaultConfig returns a Config with default settings applied.
func DefaultConfig() *Config {
	return &Config{
		CloudModel:     DefaultCloudModel,
		CloudDimension: DefaultCloudDimension,
		LocalHost:      DefaultLocalHost,
		LocalModel:     DefaultLocalModel,
		LocalDimension: DefaultLocalDimension,
		CacheSize:      DefaultCacheSize,
		ProbeTimeout:   DefaultProbeTimeout,
	}
}

// Option configures a Config.
type Option func(*Config)

// WithAPIKey sets the cloud API key, enabling the cloud tier.
func WithAPIKey(key string) Option {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithCloudModel sets the cloud embedding model and its dimension.
func WithCloudModel(model string, dimension int) Option {
	return func(c *Config) {
		c.CloudModel = model
		c.CloudDimension = dimension
	}
}

// WithLocalHost sets the base URL of the local OpenAI-compatible endpoint.
func WithLocalHost(host string) Option {
	return func(c *Config) {
		c.LocalHost = host
	}
}

// WithLocalModel sets the local embedding model and its dimension.
func WithLocalModel(model string, dimension int) Option {
	return func(c *Config) {
		c.LocalModel = model
		c.LocalDimension = dimension
	}
}

// WithForceMethod pins selection to the given tier.
func WithForceMethod(method string) Option {
	return func(c *Config) {
		c.ForceMethod = method
	}
}

// WithCacheSize caps the query embedding cache.
func WithCacheSize(n int) Option {
	return func(c *Config) {
		c.CacheSize = n
	}
}

// WithProbeTimeout bounds the local endpoint reachability check.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ProbeTimeout = d
	}
}

// NewConfig returns a Config with defaults and the given options applied.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
