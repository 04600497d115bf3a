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
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/scandex"
	"github.com/poiesic/scandex/ai"
	"github.com/poiesic/scandex/ai/openai"
	"github.com/poiesic/scandex/core"
	"github.com/poiesic/scandex/ingestion"
	"github.com/poiesic/scandex/reembed"
	"github.com/poiesic/scandex/search"
	"github.com/poiesic/scandex/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "scandex",
		Usage: "Natural-language search over scanned documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a config file (yaml/toml/json) with embedding settings",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Search stored documents with a natural-language query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "max-results",
						Usage: "Maximum number of results to return",
					},
					&cli.Float64Flag{
						Name:  "min-confidence",
						Usage: "Minimum scoring confidence in [0,1]",
					},
					&cli.BoolFlag{
						Name:  "no-fuzzy",
						Usage: "Disable fuzzy vendor matching",
					},
					&cli.BoolFlag{
						Name:    "verbose",
						Aliases: []string{"v"},
						Usage:   "Print the per-factor score breakdown",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest OCR'd documents, one document per line",
				ArgsUsage: "[file]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.StringFlag{
						Name:  "type",
						Usage: "Document type applied to documents without one",
					},
					&cli.StringFlag{
						Name:  "currency",
						Usage: "Currency applied to documents with amounts but no currency",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to store per batch",
						Value: 25,
					},
				},
			},
			{
				Name:   "reembed",
				Usage:  "Recompute search vectors for stored documents",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of documents to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N documents",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "missing-only",
						Usage: "Only embed documents that have no search vector yet",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	queryText := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if queryText == "" {
		return fmt.Errorf("a query is required")
	}

	aiConfig, err := loadAIConfig(c)
	if err != nil {
		return err
	}

	db, err := scandex.NewDatabase(c.String("db"), scandex.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	opts := search.DefaultOptions()
	if c.IsSet("max-results") {
		opts.MaxResults = c.Int("max-results")
	}
	if c.IsSet("min-confidence") {
		opts.MinConfidence = c.Float64("min-confidence")
	}
	if c.Bool("no-fuzzy") {
		opts.FuzzyMatching = false
	}

	searcher, err := db.NewSearcher(search.WithDefaultOptions(opts))
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}
	defer searcher.Close()

	result, err := searcher.Search(ctx, queryText)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printResult(result, c.Bool("verbose"))
	return nil
}

func printResult(result *search.Result, verbose bool) {
	fmt.Printf("%d matches (%s, %v)\n", result.TotalMatches, result.SearchMethod, result.Elapsed.Round(time.Millisecond))

	for i, scored := range result.Documents {
		doc := scored.Document
		line := fmt.Sprintf("%2d. [%0.3f] %s", i+1, scored.Score, describeDocument(doc))
		fmt.Println(line)

		if verbose {
			fmt.Printf("    confidence %0.2f, factors: %s\n", scored.Confidence, formatFactors(scored.Factors))
			if len(scored.MatchedKeywords) > 0 {
				fmt.Printf("    matched keywords: %s\n", strings.Join(scored.MatchedKeywords, ", "))
			}
		}
	}

	if len(result.Suggestions) > 0 {
		fmt.Println("\nSuggestions:")
		for _, s := range result.Suggestions {
			fmt.Printf("  - %s\n", s)
		}
	}
}

func describeDocument(doc *core.Document) string {
	parts := []string{}
	if doc.DocumentType != "" {
		parts = append(parts, doc.DocumentType)
	}
	if doc.Vendor != "" {
		parts = append(parts, doc.Vendor)
	}
	if !doc.Date.IsZero() {
		parts = append(parts, doc.Date.Format("2006-01-02"))
	}
	if doc.HasAmount {
		parts = append(parts, fmt.Sprintf("%s%.2f", currencySymbol(doc.Currency), doc.TotalAmount))
	}

	summary := doc.OcrText
	if len(summary) > 60 {
		summary = summary[:60] + "..."
	}
	summary = strings.ReplaceAll(summary, "\n", " ")

	if len(parts) == 0 {
		return summary
	}
	return fmt.Sprintf("%s | %s", strings.Join(parts, " "), summary)
}

func currencySymbol(currency string) string {
	switch strings.ToUpper(currency) {
	case "USD":
		return "$"
	case "EUR":
		return "€"
	case "GBP":
		return "£"
	case "ILS":
		return "₪"
	default:
		return currency
	}
}

func formatFactors(factors core.ScoringFactors) string {
	names := make([]string, 0, len(factors))
	for name := range factors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%0.2f", name, factors[name])
	}
	return strings.Join(parts, " ")
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	aiConfig, err := loadAIConfig(c)
	if err != nil {
		return err
	}

	db, err := scandex.NewDatabase(c.String("db"), scandex.WithAIConfig(aiConfig))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	input := os.Stdin
	if c.Args().Len() > 0 {
		f, err := os.Open(c.Args().First())
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		input = f
	}

	opts := &ingestion.IngestOptions{
		DocumentType: c.String("type"),
		Currency:     c.String("currency"),
	}

	batchSize := c.Int("batch-size")
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}

	total := 0
	batch := make([]*core.Document, 0, batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := pipeline.Ingest(ctx, batch, opts); err != nil {
			return fmt.Errorf("ingestion failed after %d documents: %w", total, err)
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		batch = append(batch, &core.Document{OcrText: text})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	if err := flush(); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Ingested %d documents\n", total)
	return nil
}

func reembedCommand(c *cli.Context) error {
	ctx := context.Background()

	aiConfig, err := loadAIConfig(c)
	if err != nil {
		return err
	}

	backend, err := badger.OpenBackend(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer backend.Close()

	repo, err := badger.NewDocumentRepository(backend)
	if err != nil {
		return fmt.Errorf("failed to create repository: %w", err)
	}
	defer repo.Close()

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
		MissingOnly:    c.Bool("missing-only"),
	}

	if reembedConfig.BatchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	reembedder := reembed.NewReembedder(repo, embedder, reembedConfig, os.Stderr)

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", aiConfig.EmbeddingHost)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", aiConfig.EmbeddingModel)
	fmt.Fprintln(os.Stderr)

	if err := reembedder.Run(ctx); err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}

	return nil
}

// loadAIConfig builds the embedding configuration from, in order of
// precedence: command-line flags, SCANDEX_* environment variables, the
// optional config file, and built-in defaults.
func loadAIConfig(c *cli.Context) (*ai.Config, error) {
	v := viper.New()
	v.SetDefault("embedding_host", ai.DefaultConfig().EmbeddingHost)
	v.SetDefault("embedding_model", ai.DefaultConfig().EmbeddingModel)

	v.SetEnvPrefix("SCANDEX")
	v.AutomaticEnv()

	if configPath := c.String("config"); configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &ai.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Flags beat everything else.
	if c.IsSet("embedding-host") {
		config.EmbeddingHost = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		config.EmbeddingModel = c.String("embedding-model")
	}

	config.Normalize()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid embedding configuration: %w", err)
	}
	return config, nil
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
