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

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/chunksearch"
	"github.com/poiesic/chunksearch/core"
	"github.com/poiesic/chunksearch/embed"
	"github.com/poiesic/chunksearch/ingestion"
	"github.com/poiesic/chunksearch/reembed"
	"github.com/poiesic/chunksearch/search"
)

func main() {
	app := &cli.App{
		Name:  "chunksearch",
		Usage: "Hybrid vector and keyword search over document chunks",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Ingest documents into the knowledge base",
				ArgsUsage: "FILE...",
				Action:    addCommand,
				Flags: append(storeFlags(),
					&cli.StringFlag{
						Name:  "category",
						Usage: "Category metadata attached to every chunk",
					},
				),
			},
			{
				Name:      "search",
				Usage:     "Search the knowledge base",
				ArgsUsage: "QUERY",
				Action:    searchCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum number of results",
						Value:   5,
					},
					&cli.BoolFlag{
						Name:  "vector-only",
						Usage: "Skip the keyword path and fusion",
					},
					&cli.Float64Flag{
						Name:  "vector-weight",
						Usage: "Baseline weight of the vector signal",
						Value: search.DefaultVectorWeight,
					},
					&cli.Float64Flag{
						Name:  "keyword-weight",
						Usage: "Baseline weight of the keyword signal",
						Value: search.DefaultKeywordWeight,
					},
					&cli.StringFlag{
						Name:  "filename",
						Usage: "Restrict results to one document",
					},
					&cli.StringFlag{
						Name:  "category",
						Usage: "Restrict results to one category",
					},
				),
			},
			{
				Name:      "delete",
				Usage:     "Delete all chunks of a document",
				ArgsUsage: "FILENAME",
				Action:    deleteCommand,
				Flags:     storeFlags(),
			},
			{
				Name:   "stats",
				Usage:  "Show corpus statistics",
				Action: statsCommand,
				Flags:  storeFlags(),
			},
			{
				Name:   "reembed",
				Usage:  "Rebuild all stored vectors with the active embedding method",
				Action: reembedCommand,
				Flags: append(storeFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks to embed in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N chunks",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed batches",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "normalize",
						Usage: "Scale every new vector to unit length",
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// storeFlags are shared by every command that opens the knowledge base.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "db",
			Aliases:  []string{"d"},
			Usage:    "Path to the knowledge base directory",
			Required: true,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Cloud embedding API key (enables the cloud tier)",
			EnvVars: []string{"CHUNKSEARCH_API_KEY"},
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Local OpenAI-compatible embedding endpoint",
			Value: embed.DefaultLocalHost,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Local embedding model name",
			Value: embed.DefaultLocalModel,
		},
		&cli.StringFlag{
			Name:  "embedding-method",
			Usage: "Force an embedding tier (openai, local-semantic, text-hash)",
		},
	}
}

func openKnowledgeBase(c *cli.Context) (*chunksearch.KnowledgeBase, error) {
	cfg := embed.NewConfig(
		embed.WithAPIKey(c.String("api-key")),
		embed.WithLocalHost(c.String("embedding-host")),
		embed.WithLocalModel(c.String("embedding-model"), embed.DefaultLocalDimension),
		embed.WithForceMethod(c.String("embedding-method")),
	)
	return chunksearch.Open(c.String("db"), chunksearch.WithEmbedConfig(cfg))
}

func addCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("at least one file is required")
	}

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	ctx := context.Background()
	total := 0
	for _, path := range c.Args().Slice() {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc := &ingestion.Document{
			Filename: filepath.Base(path),
			Content:  string(content),
			FileType: strings.TrimPrefix(filepath.Ext(path), "."),
		}
		if category := c.String("category"); category != "" {
			doc.Extra = core.Metadata{core.MetaCategory: category}
		}

		n, err := kb.AddDocuments(ctx, doc)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", path, err)
		}
		if n == 0 {
			fmt.Printf("%s: unchanged, skipped\n", doc.Filename)
		} else {
			fmt.Printf("%s: %d chunks\n", doc.Filename, n)
		}
		total += n
	}
	fmt.Printf("Ingested %d chunks from %d files\n", total, c.NArg())
	return nil
}

func searchCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one query argument is required")
	}
	query := c.Args().First()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	filter := core.Filter{}
	if filename := c.String("filename"); filename != "" {
		filter[core.MetaFilename] = filename
	}
	if category := c.String("category"); category != "" {
		filter[core.MetaCategory] = category
	}

	ctx := context.Background()
	var results []*core.SearchResult
	if c.Bool("vector-only") {
		results, err = kb.Search(ctx, query, c.Int("limit"), filter)
	} else {
		results, err = kb.HybridSearch(ctx, query, c.Int("limit"),
			c.Float64("vector-weight"), c.Float64("keyword-weight"), filter)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results")
		return nil
	}
	for i, r := range results {
		filename, _ := r.Chunk.Metadata[core.MetaFilename].(string)
		score := r.CombinedScore
		if c.Bool("vector-only") {
			score = r.Relevance
		}
		fmt.Printf("%2d. [%.3f] %s\n", i+1, score, filename)
		fmt.Printf("    %s\n", excerpt(r.Chunk.Text, 160))
	}
	return nil
}

func deleteCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("exactly one filename argument is required")
	}
	filename := c.Args().First()

	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	deleted, err := kb.DeleteDocuments(context.Background(), core.Filter{core.MetaFilename: filename})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	fmt.Printf("Deleted %d chunks of %s\n", deleted, filename)
	return nil
}

func statsCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	stats, err := kb.Stats(context.Background())
	if err != nil {
		return fmt.Errorf("failed to read stats: %w", err)
	}

	fmt.Printf("Path:             %s\n", stats.Path)
	fmt.Printf("Total chunks:     %d\n", stats.TotalChunks)
	fmt.Printf("Embedding method: %s (%s)\n", stats.EmbeddingMethod, stats.Description)
	fmt.Printf("Dimension:        %d\n", stats.Dimension)
	fmt.Printf("Free tier:        %t\n", stats.IsFree)
	return nil
}

func reembedCommand(c *cli.Context) error {
	kb, err := openKnowledgeBase(c)
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer kb.Close()

	config := &reembed.Config{
		BatchSize:        c.Int("batch-size"),
		ReportInterval:   c.Int("report-interval"),
		MaxRetries:       c.Int("max-retries"),
		RetryDelay:       c.Duration("retry-delay"),
		NormalizeVectors: c.Bool("normalize"),
	}
	if config.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if config.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	if err := kb.ReembedCorpus(context.Background(), config, os.Stderr); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	return nil
}

// excerpt truncates text to max runes on a single line.
func excerpt(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
