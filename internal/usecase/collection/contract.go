package collection

import (
	"context"
	"iter"

	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
)

// Repository defines the registry contract for collections.
type Repository interface {
	Create(ctx context.Context, col domcol.Collection, members iter.Seq[int64]) (int64, error)
	Get(ctx context.Context, id int64) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Children(ctx context.Context, parentID int64) ([]domcol.Collection, error)
	MemberCount(ctx context.Context, id int64) (int64, error)
	Count(ctx context.Context) (int64, error)
	Tree(ctx context.Context) (*domcol.Tree, error)
}

// ParticleWriter stores imported particles.
type ParticleWriter interface {
	Insert(ctx context.Context, recs []particle.Record) error
}
