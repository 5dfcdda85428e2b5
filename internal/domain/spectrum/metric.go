package spectrum

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kailas-cloud/spectradex/internal/domain"
)

// Metric computes the dissimilarity between two spectra.
type Metric interface {
	Distance(a, b *Vector) float64
}

// MetricName identifies a built-in metric.
type MetricName string

const (
	// EuclideanSquared is the sum of squared differences over the union of bins.
	EuclideanSquared MetricName = "euclidean_squared"
	// CityBlock is the sum of absolute differences over the union of bins.
	CityBlock MetricName = "city_block"
	// DotProduct is one minus the cosine of the angle between the spectra.
	DotProduct MetricName = "dot_product"
)

// SquaredEuclidean implements EuclideanSquared.
type SquaredEuclidean struct{}

// Distance returns sum over bins of (a[bin]-b[bin])^2.
func (SquaredEuclidean) Distance(a, b *Vector) float64 {
	xs, ys := aligned(a, b)
	if len(xs) == 0 {
		return 0
	}
	d := floats.Distance(xs, ys, 2)
	return d * d
}

// Manhattan implements CityBlock.
type Manhattan struct{}

// Distance returns sum over bins of |a[bin]-b[bin]|.
func (Manhattan) Distance(a, b *Vector) float64 {
	xs, ys := aligned(a, b)
	if len(xs) == 0 {
		return 0
	}
	return floats.Distance(xs, ys, 1)
}

// Cosine implements DotProduct. A zero spectrum is maximally distant (1) from everything.
type Cosine struct{}

// Distance returns 1 - a.b / (|a||b|).
func (Cosine) Distance(a, b *Vector) float64 {
	xs, ys := aligned(a, b)
	if len(xs) == 0 {
		return 1
	}
	na, nb := floats.Norm(xs, 2), floats.Norm(ys, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	sim := floats.Dot(xs, ys) / (na * nb)
	return 1 - math.Min(1, sim)
}

// MetricByName resolves a built-in metric. Empty name selects EuclideanSquared.
func MetricByName(name MetricName) (Metric, error) {
	switch name {
	case "", EuclideanSquared:
		return SquaredEuclidean{}, nil
	case CityBlock:
		return Manhattan{}, nil
	case DotProduct:
		return Cosine{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMetric, name)
	}
}
