// Package engine wires the pipeline: block parsing, noise filtering, unit
// segmentation, boundary scoring, chunk assembly, and optional dedup.
// Control flow is single-pass and single-threaded; only embedding calls
// are batched. Per-unit failures degrade quality, never abort the run.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"smartchunk/assembler"
	"smartchunk/boundary"
	"smartchunk/chunk"
	"smartchunk/config"
	"smartchunk/dedup"
	"smartchunk/filter"
	"smartchunk/parser"
	"smartchunk/pkg/embedding"
	"smartchunk/pkg/tokenizer"
	"smartchunk/segmenter"
)

type Engine struct {
	cfg    *config.Config
	seg    *segmenter.Segmenter
	scorer *boundary.Scorer
	asm    *assembler.Assembler
	dedup  *dedup.Collapser
	logger *zap.Logger
}

// Result is the engine output: the surviving chunk sequence plus every
// non-fatal condition collected along the way.
type Result struct {
	Chunks []chunk.Chunk
	Units  []chunk.Unit
	Report chunk.Report
}

// New validates the configuration before building anything; configuration
// problems are the only fatal errors in the pipeline.
func New(cfg *config.Config, counter tokenizer.Counter, embed embedding.Client, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		cfg:    cfg,
		seg:    segmenter.New(tokenizer.NewMemo(counter)),
		scorer: boundary.NewScorer(embed, cfg.MinSim, cfg.ValleyWindow, cfg.BatchSize, logger),
		asm: assembler.New(assembler.Config{
			MaxTokens:     cfg.MaxTokens,
			OverlapTokens: cfg.OverlapTokens,
			Lookback:      cfg.LookbackWindow,
		}),
		dedup:  dedup.New(cfg.DedupeSim, cfg.DedupeWindow),
		logger: logger,
	}, nil
}

// Run chunks a single document.
func (e *Engine) Run(ctx context.Context, source string, mode parser.Mode) (*Result, error) {
	doc, warnings, err := parser.Parse(source, mode)
	if err != nil {
		return nil, err
	}
	filter.NormalizeWhitespace(doc)
	return e.process(ctx, doc, warnings)
}

// RunPages chunks a set of same-template pages, removing blocks that recur
// verbatim across a majority of them before chunking each page.
func (e *Engine) RunPages(ctx context.Context, pages []string, mode parser.Mode) ([]*Result, error) {
	docs := make([]*chunk.Document, len(pages))
	pageWarnings := make([][]chunk.Warning, len(pages))
	for i, page := range pages {
		doc, warnings, err := parser.Parse(page, mode)
		if err != nil {
			return nil, err
		}
		filter.NormalizeWhitespace(doc)
		docs[i] = doc
		pageWarnings[i] = warnings
	}

	filter.RemoveBoilerplate(docs)

	results := make([]*Result, len(docs))
	for i, doc := range docs {
		res, err := e.process(ctx, doc, pageWarnings[i])
		if err != nil {
			return nil, err
		}
		results[i] = res
	}
	return results, nil
}

func (e *Engine) process(ctx context.Context, doc *chunk.Document, warnings []chunk.Warning) (*Result, error) {
	start := time.Now()

	units, segWarnings := e.seg.Segment(doc)
	warnings = append(warnings, segWarnings...)

	bounds, degraded := e.scorer.Score(ctx, doc, units)

	chunks := e.asm.Assemble(doc, units, bounds)

	report := chunk.Report{
		Warnings:      warnings,
		DegradedUnits: degraded,
	}
	for _, c := range chunks {
		if c.Oversized {
			report.Oversized = append(report.Oversized, c.ID)
		}
	}

	if e.cfg.Dedupe {
		var dropped []chunk.Dropped
		chunks, dropped = e.dedup.Collapse(chunks, units)
		report.Dropped = dropped
	}

	e.logger.Info("chunking completed",
		zap.Int("blocks", len(doc.Blocks)),
		zap.Int("units", len(units)),
		zap.Int("chunks", len(chunks)),
		zap.Int("degraded_units", degraded),
		zap.Int("dropped", len(report.Dropped)),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{Chunks: chunks, Units: units, Report: report}, nil
}
