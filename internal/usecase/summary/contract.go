package summary

import (
	"context"

	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
)

// CollectionReader reads collections for existence checks.
type CollectionReader interface {
	Get(ctx context.Context, id int64) (domcol.Collection, error)
}

// CursorOpener opens particle cursors over collections.
type CursorOpener interface {
	Cursor(ctx context.Context, collectionID int64, strategy particle.Strategy) (particle.Cursor, error)
}

// DatasetCache stores summarized datasets. Load and Save never fail the caller.
type DatasetCache interface {
	Load(ctx context.Context, collectionID int64, b histogram.Binning) (*histogram.Dataset, bool)
	Save(ctx context.Context, collectionID int64, ds *histogram.Dataset, particles int)
	Particles(ctx context.Context, collectionID int64) (int, bool)
	Invalidate(ctx context.Context, collectionID int64) error
}
