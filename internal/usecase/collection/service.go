package collection

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/spectradex/internal/domain"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/logger"
)

// Info is a collection with its member count.
type Info struct {
	Collection domcol.Collection
	Members    int64
}

// Service handles collection import and lookup.
type Service struct {
	repo      Repository
	particles ParticleWriter
}

// New creates a collection service.
func New(repo Repository, particles ParticleWriter) *Service {
	return &Service{repo: repo, particles: particles}
}

// Import stores particles and registers them as a new root collection in the given order.
func (s *Service) Import(
	ctx context.Context, name, description string, dataType domcol.DataType, recs []particle.Record,
) (Info, error) {
	col, err := domcol.New(name, description, dataType, 0)
	if err != nil {
		return Info{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidRequest, err)
	}
	for i := range recs {
		if recs[i].ID <= 0 {
			return Info{}, fmt.Errorf("particle %d: %w: ids must be positive", recs[i].ID, domain.ErrInvalidRequest)
		}
		if recs[i].Spectrum == nil {
			return Info{}, fmt.Errorf("particle %d: %w: spectrum is required", recs[i].ID, domain.ErrInvalidRequest)
		}
		if recs[i].Meta.DataType == "" {
			recs[i].Meta.DataType = string(col.DataType())
		}
	}

	if err := s.particles.Insert(ctx, recs); err != nil {
		return Info{}, fmt.Errorf("insert particles: %w", err)
	}

	ids := func(yield func(int64) bool) {
		for _, r := range recs {
			if !yield(r.ID) {
				return
			}
		}
	}
	id, err := s.repo.Create(ctx, col, ids)
	if err != nil {
		return Info{}, fmt.Errorf("create collection: %w", err)
	}

	logger.FromContext(ctx).Info("Collection imported",
		zap.Int64("collection_id", id), zap.String("name", name), zap.Int("particles", len(recs)))

	return s.Get(ctx, id)
}

// Get retrieves a collection and its size.
func (s *Service) Get(ctx context.Context, id int64) (Info, error) {
	col, err := s.repo.Get(ctx, id)
	if err != nil {
		return Info{}, fmt.Errorf("get collection: %w", err)
	}
	n, err := s.repo.MemberCount(ctx, id)
	if err != nil {
		return Info{}, fmt.Errorf("count members: %w", err)
	}
	return Info{Collection: col, Members: n}, nil
}

// List returns all collections.
func (s *Service) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Count returns how many collections are registered.
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count collections: %w", err)
	}
	return n, nil
}

// Children returns the direct children of id.
func (s *Service) Children(ctx context.Context, id int64) ([]domcol.Collection, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, fmt.Errorf("get collection: %w", err)
	}
	cols, err := s.repo.Children(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	return cols, nil
}

// Tree returns the whole collection hierarchy.
func (s *Service) Tree(ctx context.Context) (*domcol.Tree, error) {
	t, err := s.repo.Tree(ctx)
	if err != nil {
		return nil, fmt.Errorf("load tree: %w", err)
	}
	return t, nil
}
