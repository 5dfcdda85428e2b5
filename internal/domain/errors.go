package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound signals a missing collection or particle.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest signals a malformed caller request.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrNoSubCollection signals that clustering left one or more groups without members.
	ErrNoSubCollection = errors.New("no sub-collection")
	// ErrMalformedSeed signals a seed line that is not a "<bin>,<intensity>" pair.
	ErrMalformedSeed = errors.New("malformed seed")
	// ErrInvalidPredicate signals a predicate the divider refuses to pass to storage.
	ErrInvalidPredicate = errors.New("invalid predicate")
	// ErrInvalidBrush signals a selection rectangle with inverted bounds.
	ErrInvalidBrush = errors.New("invalid brush selection")
	// ErrInvalidIntensity signals a negative or non-finite intensity.
	ErrInvalidIntensity = errors.New("invalid intensity")
	// ErrUnknownMetric signals a distance metric name that is not supported.
	ErrUnknownMetric = errors.New("unknown distance metric")
)

// NoSubCollectionError wraps ErrNoSubCollection with the indexes of the empty groups.
type NoSubCollectionError struct {
	EmptyGroups []int
	Groups      int
}

func (e *NoSubCollectionError) Error() string {
	idx := make([]string, len(e.EmptyGroups))
	for i, g := range e.EmptyGroups {
		idx[i] = fmt.Sprintf("%d", g+1)
	}
	return fmt.Sprintf("%s: %d of %d groups empty (%s)",
		ErrNoSubCollection.Error(), len(e.EmptyGroups), e.Groups, strings.Join(idx, ","))
}

func (e *NoSubCollectionError) Unwrap() error { return ErrNoSubCollection }

// NewNoSubCollection creates a no sub-collection error.
func NewNoSubCollection(emptyGroups []int, groups int) error {
	return &NoSubCollectionError{EmptyGroups: emptyGroups, Groups: groups}
}
