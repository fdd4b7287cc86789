// Package infer serves predictions from the persisted champion artifact.
//
// The Engine moves from Unloaded to Ready on the first successful Load and
// stays Ready until an explicit Reload. The cached artifact is published
// through an atomic pointer and never mutated afterwards; concurrent
// predictions all read the same immutable champion, and a reload is a
// wholesale swap. No I/O happens on the prediction path after the initial
// load.
package infer

import (
	"math"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/paveg/incomeclf/internal/artifact"
	"github.com/paveg/incomeclf/internal/errors"
	"github.com/paveg/incomeclf/internal/logging"
	"github.com/paveg/incomeclf/internal/schema"
)

// DefaultTopN is the number of ranked feature contributions returned when
// the caller does not override it.
const DefaultTopN = 8

// FeatureWeight is one entry of the ranked contribution list.
type FeatureWeight struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// PredictionResult is the immutable outcome of one prediction. Persistence
// of results is the caller's concern.
type PredictionResult struct {
	Label      string          `json:"label"`
	Prediction int             `json:"prediction"`
	Confidence float64         `json:"confidence"`
	Importance []FeatureWeight `json:"feature_importances"`
}

// Engine caches the champion artifact and scores feature records against it.
type Engine struct {
	schema *schema.Schema
	path   string
	topN   int
	champ  atomic.Pointer[artifact.Champion]
}

// NewEngine creates an Unloaded engine bound to an artifact path.
func NewEngine(path string, s *schema.Schema) *Engine {
	return &Engine{schema: s, path: path, topN: DefaultTopN}
}

// SetTopN overrides the length of the ranked contribution list. Call before
// serving; not synchronized with in-flight predictions.
func (e *Engine) SetTopN(n int) {
	if n > 0 {
		e.topN = n
	}
}

// Ready reports whether a champion is loaded.
func (e *Engine) Ready() bool { return e.champ.Load() != nil }

// Load moves the engine to Ready. It is idempotent: once a champion is
// cached, repeated calls are no-ops. Use Reload to pick up a retrained
// artifact.
func (e *Engine) Load() error {
	if e.champ.Load() != nil {
		return nil
	}
	return e.Reload()
}

// Reload reads the artifact from disk and swaps it in wholesale. In-flight
// predictions keep using the champion they started with.
func (e *Engine) Reload() error {
	c, err := artifact.Load(e.path)
	if err != nil {
		return err
	}
	if c.SchemaVersion != e.schema.Version {
		return errors.NewArtifactError("Reload",
			"artifact schema version "+c.SchemaVersion+" does not match serving schema "+e.schema.Version, nil)
	}
	e.champ.Store(c)
	logging.L().Info("champion artifact loaded",
		zap.String("family", c.FamilyName),
		zap.Float64("accuracy", c.Accuracy),
		zap.String("path", e.path))
	return nil
}

// Predict scores one named feature record.
//
// The record is validated against the schema (missing feature: schema
// error; out-of-range value: validation error), transformed through the
// cached pipeline, and scored by the cached estimator. The confidence is
// the positive-class probability; the label thresholds it at 0.5.
func (e *Engine) Predict(features map[string]float64) (*PredictionResult, error) {
	champ := e.champ.Load()
	if champ == nil {
		return nil, errors.ErrNotLoaded
	}

	if err := e.schema.ValidateRecord("Predict", features); err != nil {
		return nil, err
	}
	vec, err := champ.Pipeline.TransformRecord(features)
	if err != nil {
		return nil, err
	}

	proba := champ.Estimator.PredictProba(vec)
	prediction := 0
	label := schema.LabelBelow
	if proba >= 0.5 {
		prediction = 1
		label = schema.LabelAbove
	}

	return &PredictionResult{
		Label:      label,
		Prediction: prediction,
		Confidence: proba,
		Importance: e.rankContributions(champ, vec),
	}, nil
}

// rankContributions approximates per-instance attribution by scaling the
// champion's global importance vector with the record's normalized
// transformed magnitudes. This is a heuristic ranking, not Shapley-style
// attribution: it answers "which globally important features are large in
// this record", which matches what the system has always surfaced.
func (e *Engine) rankContributions(champ *artifact.Champion, vec []float64) []FeatureWeight {
	maxMag := 0.0
	for _, v := range vec {
		if m := math.Abs(v); m > maxMag {
			maxMag = m
		}
	}
	if maxMag == 0 {
		maxMag = 1
	}

	out := make([]FeatureWeight, len(vec))
	for i, v := range vec {
		weight := 0.0
		if i < len(champ.Importance) {
			weight = champ.Importance[i] * math.Abs(v) / maxMag
		}
		out[i] = FeatureWeight{Name: champ.FeatureOrder[i], Weight: weight}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })

	if len(out) > e.topN {
		out = out[:e.topN]
	}
	return out
}
