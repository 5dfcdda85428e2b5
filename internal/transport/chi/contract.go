package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/spectradex/internal/domain/batch"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	collectionuc "github.com/kailas-cloud/spectradex/internal/usecase/collection"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
	healthuc "github.com/kailas-cloud/spectradex/internal/usecase/health"
	summaryuc "github.com/kailas-cloud/spectradex/internal/usecase/summary"
)

// CollectionService imports and reads collections.
type CollectionService interface {
	Import(ctx context.Context, name, description string, dataType domcol.DataType,
		recs []particle.Record) (collectionuc.Info, error)
	Get(ctx context.Context, id int64) (collectionuc.Info, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Children(ctx context.Context, id int64) ([]domcol.Collection, error)
	Tree(ctx context.Context) (*domcol.Tree, error)
}

// DivisionService divides collections.
type DivisionService interface {
	Predicate(ctx context.Context, req divisionuc.PredicateRequest) (divisionuc.PredicateResult, error)
	DivideMany(ctx context.Context, reqs []divisionuc.PredicateRequest) []dombatch.Result
	Cluster(ctx context.Context, req divisionuc.ClusterRequest) (divisionuc.ClusterResult, error)
}

// SummaryService builds and brushes histogram datasets.
type SummaryService interface {
	Summarize(ctx context.Context, id int64, color string, strategy particle.Strategy) (summaryuc.Result, error)
	Select(ctx context.Context, id int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	Intersect(ctx context.Context, id int64, keep []int64) (*histogram.Dataset, error)
	Link(ctx context.Context, sourceID, targetID int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	Invalidate(ctx context.Context, id int64) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
