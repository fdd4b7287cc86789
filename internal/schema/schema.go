// Package schema defines the explicit, versioned feature schema for the
// census income dataset.
//
// The schema is the single source of truth for which features exist, their
// kinds, their physically valid ranges, and the canonical code→label maps of
// the categorical features. It is loaded once at startup and read-only
// thereafter; every downstream stage (ingestion, transform fitting, inference
// validation) consults the same instance so feature ordering stays identical
// end to end.
package schema

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/paveg/incomeclf/internal/errors"
)

// Kind describes whether a feature is numeric or categorical.
type Kind int

const (
	// Numeric features carry continuous or count values and are subject to
	// IQR outlier capping.
	Numeric Kind = iota
	// Categorical features carry integer category codes and are re-encoded
	// to dense indices by the transform pipeline.
	Categorical
)

// String returns the YAML/name form of the kind.
func (k Kind) String() string {
	if k == Categorical {
		return "categorical"
	}
	return "numeric"
}

// Feature declares one input attribute.
type Feature struct {
	Name   string         `yaml:"name"`
	Kind   Kind           `yaml:"-"`
	KindS  string         `yaml:"kind"`
	Min    float64        `yaml:"min"`              // Inclusive physical lower bound (numeric)
	Max    float64        `yaml:"max"`              // Inclusive physical upper bound (numeric)
	Labels map[int]string `yaml:"labels,omitempty"` // Code→label map (categorical)
}

// Schema is the process-wide feature schema. Declaration order of Features is
// load-bearing: it fixes the column order of every transformed vector.
type Schema struct {
	Version  string    `yaml:"version"`
	Target   string    `yaml:"target"`
	Features []Feature `yaml:"features"`

	byName map[string]int
}

// TargetColumn is the label column of the census dataset.
const TargetColumn = "income"

// Label strings produced at inference time.
const (
	LabelAbove = ">50K"
	LabelBelow = "≤50K"
)

// Default returns the built-in schema for the 12 census features, coded the
// way the upstream dataset encodes them (categorical labels sorted
// alphabetically, '?' rows dropped during dataset preparation).
func Default() *Schema {
	s := &Schema{
		Version: "census-v1",
		Target:  TargetColumn,
		Features: []Feature{
			{Name: "age", Kind: Numeric, Min: 0, Max: 120},
			{Name: "workclass", Kind: Categorical, Labels: codes(
				"Federal-gov", "Local-gov", "Never-worked", "Private",
				"Self-emp-inc", "Self-emp-not-inc", "State-gov", "Without-pay",
			)},
			{Name: "education_num", Kind: Numeric, Min: 1, Max: 16},
			{Name: "marital_status", Kind: Categorical, Labels: codes(
				"Divorced", "Married-AF-spouse", "Married-civ-spouse",
				"Married-spouse-absent", "Never-married", "Separated", "Widowed",
			)},
			{Name: "occupation", Kind: Categorical, Labels: codes(
				"Adm-clerical", "Armed-Forces", "Craft-repair", "Exec-managerial",
				"Farming-fishing", "Handlers-cleaners", "Machine-op-inspct",
				"Other-service", "Priv-house-serv", "Prof-specialty",
				"Protective-serv", "Sales", "Tech-support", "Transport-moving",
			)},
			{Name: "relationship", Kind: Categorical, Labels: codes(
				"Husband", "Not-in-family", "Other-relative", "Own-child",
				"Unmarried", "Wife",
			)},
			{Name: "race", Kind: Categorical, Labels: codes(
				"Amer-Indian-Eskimo", "Asian-Pac-Islander", "Black", "Other", "White",
			)},
			{Name: "sex", Kind: Categorical, Labels: codes("Female", "Male")},
			{Name: "capital_gain", Kind: Numeric, Min: 0, Max: 99999},
			{Name: "capital_loss", Kind: Numeric, Min: 0, Max: 99999},
			{Name: "hours_per_week", Kind: Numeric, Min: 0, Max: 168},
			{Name: "native_country", Kind: Categorical, Labels: codes(
				"Cambodia", "Canada", "China", "Columbia", "Cuba",
				"Dominican-Republic", "Ecuador", "El-Salvador", "England",
				"France", "Germany", "Greece", "Guatemala", "Haiti",
				"Holand-Netherlands", "Honduras", "Hong", "Hungary", "India",
				"Iran", "Ireland", "Italy", "Jamaica", "Japan", "Laos", "Mexico",
				"Nicaragua", "Outlying-US(Guam-USVI-etc)", "Peru", "Philippines",
				"Poland", "Portugal", "Puerto-Rico", "Scotland", "South",
				"Taiwan", "Thailand", "Trinadad&Tobago", "United-States",
				"Vietnam", "Yugoslavia",
			)},
		},
	}
	s.index()
	return s
}

// New assembles a schema from explicit feature declarations, validating and
// indexing it. Declaration order fixes the canonical column order.
func New(version, target string, features []Feature) (*Schema, error) {
	s := &Schema{Version: version, Target: target, Features: features}
	if s.Target == "" {
		s.Target = TargetColumn
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	s.index()
	return s, nil
}

func codes(labels ...string) map[int]string {
	m := make(map[int]string, len(labels))
	for i, l := range labels {
		m[i] = l
	}
	return m
}

func (s *Schema) index() {
	s.byName = make(map[string]int, len(s.Features))
	for i, f := range s.Features {
		s.byName[f.Name] = i
	}
}

// LoadFile reads a YAML schema document.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema file %s: %w", path, err)
	}
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing schema file %s: %w", path, err)
	}
	for i := range s.Features {
		switch s.Features[i].KindS {
		case "categorical":
			s.Features[i].Kind = Categorical
		case "numeric", "":
			s.Features[i].Kind = Numeric
		default:
			return nil, fmt.Errorf("schema file %s: unknown kind %q for feature %q",
				path, s.Features[i].KindS, s.Features[i].Name)
		}
	}
	if s.Target == "" {
		s.Target = TargetColumn
	}
	if err := s.check(); err != nil {
		return nil, err
	}
	s.index()
	return &s, nil
}

func (s *Schema) check() error {
	if len(s.Features) == 0 {
		return fmt.Errorf("schema declares no features")
	}
	seen := make(map[string]bool, len(s.Features))
	for _, f := range s.Features {
		if f.Name == "" {
			return fmt.Errorf("schema contains an unnamed feature")
		}
		if seen[f.Name] {
			return fmt.Errorf("schema declares feature %q twice", f.Name)
		}
		seen[f.Name] = true
		if f.Kind == Numeric && f.Max < f.Min {
			return fmt.Errorf("feature %q has inverted range [%g, %g]", f.Name, f.Min, f.Max)
		}
	}
	return nil
}

// FeatureNames returns the declared feature names in order. This ordering is
// the canonical column order of every transformed vector.
func (s *Schema) FeatureNames() []string {
	names := make([]string, len(s.Features))
	for i, f := range s.Features {
		names[i] = f.Name
	}
	return names
}

// Feature returns the declaration for name.
func (s *Schema) Feature(name string) (Feature, bool) {
	i, ok := s.byName[name]
	if !ok {
		return Feature{}, false
	}
	return s.Features[i], true
}

// HasFeature reports whether name is a declared feature.
func (s *Schema) HasFeature(name string) bool {
	_, ok := s.byName[name]
	return ok
}

// NumFeatures returns the number of declared features.
func (s *Schema) NumFeatures() int {
	return len(s.Features)
}

// CategoryLabel resolves a raw category code to its label, if known.
func (s *Schema) CategoryLabel(feature string, code int) (string, bool) {
	f, ok := s.Feature(feature)
	if !ok || f.Kind != Categorical {
		return "", false
	}
	label, ok := f.Labels[code]
	return label, ok
}

// ValidateRecord checks one named feature mapping against the schema.
// A missing declared feature yields a SchemaError; a value outside its
// physically valid range (negative age, a NaN, a negative category code)
// yields a ValidationError. Unknown extra keys are ignored here — the caller
// decides whether to warn.
func (s *Schema) ValidateRecord(op string, record map[string]float64) error {
	for _, f := range s.Features {
		v, ok := record[f.Name]
		if !ok {
			return errors.NewSchemaError(op, f.Name, "required feature missing")
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.NewValidationError(op, f.Name, "value is not finite")
		}
		switch f.Kind {
		case Numeric:
			if v < f.Min || v > f.Max {
				return errors.NewValidationError(op, f.Name,
					fmt.Sprintf("value %g outside valid range [%g, %g]", v, f.Min, f.Max))
			}
		case Categorical:
			if v < 0 || v != math.Trunc(v) {
				return errors.NewValidationError(op, f.Name,
					fmt.Sprintf("category code %g must be a non-negative integer", v))
			}
		}
	}
	return nil
}

// SortedCodes returns the known raw codes of a categorical feature in
// ascending order. Used by the transform fit to seed stable code maps even
// for categories absent from the training sample.
func (s *Schema) SortedCodes(feature string) []int {
	f, ok := s.Feature(feature)
	if !ok || f.Kind != Categorical {
		return nil
	}
	out := make([]int, 0, len(f.Labels))
	for code := range f.Labels {
		out = append(out, code)
	}
	sort.Ints(out)
	return out
}
