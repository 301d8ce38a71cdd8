package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"smartchunk/baseline"
	"smartchunk/chunk"
	"smartchunk/config"
	"smartchunk/engine"
	"smartchunk/parser"
	"smartchunk/pkg/cache"
	"smartchunk/pkg/embedding"
	"smartchunk/pkg/qdrantdb"
	"smartchunk/pkg/tokenizer"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML config file")
		inputPath  = flag.String("input", "-", "input file, - for stdin")
		mode       = flag.String("mode", "markdown", "input mode: markdown, html, text")
		dedupe     = flag.Bool("dedupe", false, "collapse near-duplicate chunks")
		base       = flag.String("baseline", "", "run a baseline splitter instead: naive or recursive")
	)
	flag.Parse()

	// =========
	// Config
	// =========
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dedupe {
		cfg.Dedupe = true
	}

	// =========
	// Logging
	// =========
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// run owns every resource with a closer; its defers have executed by
	// the time Fatal exits the process.
	if err := run(cfg, logger, *inputPath, *mode, *base, os.Stdout); err != nil {
		logger.Fatal("run failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger, inputPath, mode, base string, w io.Writer) error {
	// =========
	// Input
	// =========
	source, err := readInput(inputPath)
	if err != nil {
		return err
	}

	out := json.NewEncoder(w)

	// =========
	// Baseline splitters
	// =========
	if base != "" {
		chunks, err := runBaseline(base, source, cfg)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if err := out.Encode(c); err != nil {
				return fmt.Errorf("failed to write chunk: %w", err)
			}
		}
		return nil
	}

	// =========
	// Tokenizer
	// =========
	counter, closeCounter, err := buildCounter(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	defer closeCounter()

	// =========
	// Embedding Client
	// =========
	var embed embedding.Client = embedding.Disabled{}
	if cfg.EmbeddingURL != "" {
		embed = embedding.NewRetry(embedding.NewTEI(cfg.EmbeddingURL), cfg.MaxRetries)
	}

	// =========
	// Engine
	// =========
	eng, err := engine.New(cfg, counter, embed, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	result, err := eng.Run(ctx, source, parser.Mode(mode))
	if err != nil {
		return err
	}

	for _, c := range result.Chunks {
		if err := out.Encode(c); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
	}
	reportRun(logger, result)

	// =========
	// Qdrant sink
	// =========
	if cfg.QdrantHost != "" {
		if err := storeChunks(ctx, cfg, inputPath, result, logger); err != nil {
			return err
		}
	}
	return nil
}

func storeChunks(ctx context.Context, cfg *config.Config, docID string, result *engine.Result, logger *zap.Logger) error {
	qdb, err := qdrantdb.NewClient(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		return fmt.Errorf("failed to initialize qdrant: %w", err)
	}
	if err := qdb.EnsureChunkCollection(ctx, cfg.QdrantCollection, cfg.VectorSize); err != nil {
		return fmt.Errorf("failed to ensure collection: %w", err)
	}
	stored, err := qdb.UpsertChunks(ctx, cfg.QdrantCollection, docID, result.Chunks, result.Units)
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}
	logger.Info("chunks stored", zap.Int("count", stored))
	return nil
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func buildCounter(cfg *config.Config) (tokenizer.Counter, func(), error) {
	var counter tokenizer.Counter
	var closers []func()

	if cfg.TokenizerFile != "" {
		hf, err := tokenizer.NewHuggingFace(cfg.TokenizerFile)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { hf.Close() })
		counter = hf
	} else {
		tk, err := tokenizer.NewTiktoken(cfg.TokenizerEncoding)
		if err != nil {
			return nil, nil, err
		}
		counter = tk
	}

	if cfg.TokenCachePath != "" {
		tc, err := cache.NewTokenCache(cfg.TokenCachePath, counter)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { tc.Close() })
		counter = tc
	}

	return counter, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

func runBaseline(kind, source string, cfg *config.Config) ([]chunk.Chunk, error) {
	// Character budgets approximate the token budget at ~4 chars/token.
	switch kind {
	case "naive":
		return baseline.Naive(source, cfg.MaxTokens*4), nil
	case "recursive":
		return baseline.Recursive(source, cfg.MaxTokens*4, cfg.OverlapTokens*4)
	default:
		return nil, fmt.Errorf("unknown baseline %q", kind)
	}
}

func reportRun(logger *zap.Logger, result *engine.Result) {
	for _, w := range result.Report.Warnings {
		logger.Warn("recoverable condition",
			zap.String("kind", w.Kind),
			zap.String("message", w.Message),
			zap.Int("offset", w.Offset))
	}
	if result.Report.DegradedUnits > 0 {
		logger.Warn("semantic boundaries degraded",
			zap.Int("units", result.Report.DegradedUnits))
	}
	if len(result.Report.Oversized) > 0 {
		logger.Warn("oversized chunks emitted whole",
			zap.Ints("chunk_ids", result.Report.Oversized))
	}
	for _, d := range result.Report.Dropped {
		logger.Info("duplicate chunk dropped",
			zap.Int("chunk_id", d.ID),
			zap.Int("duplicate_of", d.DuplicateOf),
			zap.Float32("similarity", d.Similarity))
	}
}
