package distance

import (
	"fmt"
	"strings"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
)

// Euclidean calculates the L2 distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func Euclidean(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// SquaredEuclidean calculates the squared L2 distance between two vectors.
func SquaredEuclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Cosine calculates the cosine distance (1 - cosine similarity).
// A zero-norm operand yields the maximum distance of 1.
func Cosine(a, b []float64) float64 {
	na := vek.Norm(a)
	nb := vek.Norm(b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - vek.Dot(a, b)/(na*nb)
}

// Dot calculates the dot product of two vectors.
//
// This is the projection routine shared by tree construction and traversal;
// both sides must use it so a vector lands on the same side of a split.
func Dot(a, b []float64) float64 {
	return floats.Dot(a, b)
}

// Metric represents the distance metric used for candidate ranking.
type Metric int

const (
	MetricEuclidean Metric = iota
	MetricCosine
)

func (m Metric) String() string {
	switch m {
	case MetricEuclidean:
		return "euclidean"
	case MetricCosine:
		return "cosine"
	default:
		return fmt.Sprintf("unknown(%d)", m)
	}
}

// ParseMetric resolves a metric from its name (case-insensitive).
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "euclidean", "l2":
		return MetricEuclidean, nil
	case "cosine":
		return MetricCosine, nil
	default:
		return 0, fmt.Errorf("unsupported metric: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Metric) MarshalText() ([]byte, error) {
	if _, err := Provider(m); err != nil {
		return nil, err
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Func is a function type for distance calculation.
type Func func(a, b []float64) float64

// Provider returns the distance function for the given metric.
func Provider(m Metric) (Func, error) {
	switch m {
	case MetricEuclidean:
		return Euclidean, nil
	case MetricCosine:
		return Cosine, nil
	default:
		return nil, fmt.Errorf("unsupported metric: %v", m)
	}
}
