// Package incomeclf predicts a binary income class from census-style
// tabular features. This package is the sole public API of the library.
//
// Training ingests a raw CSV dataset, fits the preprocessing pipeline,
// cross-validates a grid of classifier families, and persists the champion
// as a single artifact. Serving loads that artifact once and scores feature
// records against it, returning a label, a confidence and a ranked feature
// contribution list.
package incomeclf

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/paveg/incomeclf/internal/config"
	"github.com/paveg/incomeclf/internal/infer"
	"github.com/paveg/incomeclf/internal/logging"
	"github.com/paveg/incomeclf/internal/schema"
	"github.com/paveg/incomeclf/internal/train"
)

// Config is the training and serving configuration.
type Config = config.Config

// Report summarizes a completed training run.
type Report = train.Report

// PredictionResult is the immutable outcome of one prediction.
type PredictionResult = infer.PredictionResult

// FeatureWeight is one entry of the ranked feature contribution list.
type FeatureWeight = infer.FeatureWeight

// Label strings produced at inference time.
const (
	LabelAbove = schema.LabelAbove
	LabelBelow = schema.LabelBelow
)

// DefaultConfig returns the default configuration.
func DefaultConfig() Config { return config.NewConfig() }

// LoadConfig reads a JSON or YAML configuration file.
func LoadConfig(path string) (Config, error) { return config.LoadFromFile(path) }

// Train runs the full training pipeline described by cfg and persists the
// champion artifact at cfg.ArtifactPath.
func Train(cfg Config) (*Report, error) {
	if cfg.VerboseLogging {
		logging.SetVerbose()
	}
	s, err := resolveSchema(cfg)
	if err != nil {
		return nil, err
	}
	return train.Run(cfg, s, memory.NewGoAllocator())
}

// Engine serves predictions from a persisted champion artifact. It is safe
// for concurrent use once loaded.
type Engine struct {
	eng *infer.Engine
}

// NewEngine creates an engine bound to an artifact path. The engine starts
// unloaded; call Load before Predict.
func NewEngine(cfg Config) (*Engine, error) {
	s, err := resolveSchema(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{eng: infer.NewEngine(cfg.ArtifactPath, s)}, nil
}

// SetTopN overrides the number of ranked feature contributions returned per
// prediction. Call before serving.
func (e *Engine) SetTopN(n int) { e.eng.SetTopN(n) }

// Load caches the champion artifact in memory. Idempotent; safe to call
// repeatedly.
func (e *Engine) Load() error { return e.eng.Load() }

// Reload swaps in a freshly read artifact wholesale.
func (e *Engine) Reload() error { return e.eng.Reload() }

// Predict scores one named feature record against the cached champion.
func (e *Engine) Predict(features map[string]float64) (*PredictionResult, error) {
	return e.eng.Predict(features)
}

func resolveSchema(cfg Config) (*schema.Schema, error) {
	if cfg.SchemaPath != "" {
		return schema.LoadFile(cfg.SchemaPath)
	}
	return schema.Default(), nil
}
