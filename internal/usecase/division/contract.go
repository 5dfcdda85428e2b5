package division

import (
	"context"
	"iter"

	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
)

// Registry reads parents and persists child collections.
type Registry interface {
	Get(ctx context.Context, id int64) (domcol.Collection, error)
	CreatePartition(ctx context.Context, parentID int64, children []domcol.Collection, assign iter.Seq2[int64, int]) ([]int64, error)
	CreateFromPredicate(ctx context.Context, col domcol.Collection, predicate string) (int64, int64, error)
}

// Particles opens cursors over collections and loads seed spectra.
type Particles interface {
	Cursor(ctx context.Context, collectionID int64, strategy particle.Strategy) (particle.Cursor, error)
	Spectra(ctx context.Context, ids []int64) ([]particle.Particle, error)
}
