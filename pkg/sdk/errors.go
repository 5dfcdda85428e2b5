package spectradex

import "github.com/kailas-cloud/spectradex/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrInvalidRequest   = domain.ErrInvalidRequest
	ErrNoSubCollection  = domain.ErrNoSubCollection
	ErrMalformedSeed    = domain.ErrMalformedSeed
	ErrInvalidPredicate = domain.ErrInvalidPredicate
	ErrInvalidBrush     = domain.ErrInvalidBrush
	ErrInvalidIntensity = domain.ErrInvalidIntensity
	ErrUnknownMetric    = domain.ErrUnknownMetric
)

// NoSubCollectionError reports which clustering groups ended up empty.
// Use errors.As() to extract it.
type NoSubCollectionError = domain.NoSubCollectionError
