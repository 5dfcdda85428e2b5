package spectradex

import (
	"context"
	"fmt"
	"time"

	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
)

// CollectionService manages the collection registry.
type CollectionService struct {
	svc collectionUseCase
	obs *observer
}

// Import stores particles and registers them, in the given order, as a new root
// collection.
func (s *CollectionService) Import(
	ctx context.Context, name string, particles []Particle, opts ...CollectionOption,
) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.import", start, err) }()

	cfg := &collectionConfig{dataType: DataTypeATOFMS}
	for _, o := range opts {
		o.applyCollection(cfg)
	}

	recs, err := toInternalRecords(particles, cfg.dataType)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("import collection: %w", err)
	}

	info, err := s.svc.Import(ctx, name, cfg.description, domcol.DataType(cfg.dataType), recs)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("import collection: %w", err)
	}
	return fromInternalCollection(info.Collection, info.Members), nil
}

// Get retrieves collection metadata and its member count.
func (s *CollectionService) Get(ctx context.Context, id int64) (_ CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.get", start, err) }()

	info, err := s.svc.Get(ctx, id)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("get collection: %w", err)
	}
	return fromInternalCollection(info.Collection, info.Members), nil
}

// List returns every collection. Members is not loaded.
func (s *CollectionService) List(ctx context.Context) (_ []CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.list", start, err) }()

	cols, err := s.svc.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return fromInternalCollections(cols), nil
}

// Children returns the direct children of a collection in creation order.
func (s *CollectionService) Children(ctx context.Context, id int64) (_ []CollectionInfo, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.children", start, err) }()

	cols, err := s.svc.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return fromInternalCollections(cols), nil
}

// Tree returns the collection hierarchy starting at the roots.
func (s *CollectionService) Tree(ctx context.Context) (_ []TreeNode, err error) {
	start := time.Now()
	defer func() { s.obs.observe("collection.tree", start, err) }()

	t, err := s.svc.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("collection tree: %w", err)
	}
	return fromInternalTree(t, t.Roots()), nil
}

func fromInternalCollections(cols []domcol.Collection) []CollectionInfo {
	out := make([]CollectionInfo, len(cols))
	for i, c := range cols {
		out[i] = fromInternalCollection(c, -1)
	}
	return out
}
