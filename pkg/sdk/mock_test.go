package spectradex

import (
	"context"

	dombatch "github.com/kailas-cloud/spectradex/internal/domain/batch"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	collectionuc "github.com/kailas-cloud/spectradex/internal/usecase/collection"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
	summaryuc "github.com/kailas-cloud/spectradex/internal/usecase/summary"
)

// --- collectionUseCase mock ---

type mockCollectionUC struct {
	importFn func(ctx context.Context, name, description string, dt domcol.DataType,
		recs []particle.Record) (collectionuc.Info, error)
	getFn      func(ctx context.Context, id int64) (collectionuc.Info, error)
	listFn     func(ctx context.Context) ([]domcol.Collection, error)
	childrenFn func(ctx context.Context, id int64) ([]domcol.Collection, error)
	treeFn     func(ctx context.Context) (*domcol.Tree, error)
}

func (m *mockCollectionUC) Import(
	ctx context.Context, name, description string, dt domcol.DataType, recs []particle.Record,
) (collectionuc.Info, error) {
	return m.importFn(ctx, name, description, dt, recs)
}

func (m *mockCollectionUC) Get(ctx context.Context, id int64) (collectionuc.Info, error) {
	return m.getFn(ctx, id)
}

func (m *mockCollectionUC) List(ctx context.Context) ([]domcol.Collection, error) {
	return m.listFn(ctx)
}

func (m *mockCollectionUC) Children(ctx context.Context, id int64) ([]domcol.Collection, error) {
	return m.childrenFn(ctx, id)
}

func (m *mockCollectionUC) Tree(ctx context.Context) (*domcol.Tree, error) {
	return m.treeFn(ctx)
}

// --- divisionUseCase mock ---

type mockDivisionUC struct {
	predicateFn  func(ctx context.Context, req divisionuc.PredicateRequest) (divisionuc.PredicateResult, error)
	divideManyFn func(ctx context.Context, reqs []divisionuc.PredicateRequest) []dombatch.Result
	clusterFn    func(ctx context.Context, req divisionuc.ClusterRequest) (divisionuc.ClusterResult, error)
}

func (m *mockDivisionUC) Predicate(
	ctx context.Context, req divisionuc.PredicateRequest,
) (divisionuc.PredicateResult, error) {
	return m.predicateFn(ctx, req)
}

func (m *mockDivisionUC) DivideMany(ctx context.Context, reqs []divisionuc.PredicateRequest) []dombatch.Result {
	return m.divideManyFn(ctx, reqs)
}

func (m *mockDivisionUC) Cluster(ctx context.Context, req divisionuc.ClusterRequest) (divisionuc.ClusterResult, error) {
	return m.clusterFn(ctx, req)
}

// --- summaryUseCase mock ---

type mockSummaryUC struct {
	summarizeFn  func(ctx context.Context, id int64, color string, st particle.Strategy) (summaryuc.Result, error)
	selectFn     func(ctx context.Context, id int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	intersectFn  func(ctx context.Context, id int64, keep []int64) (*histogram.Dataset, error)
	linkFn       func(ctx context.Context, src, dst int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	invalidateFn func(ctx context.Context, id int64) error
}

func (m *mockSummaryUC) Summarize(
	ctx context.Context, id int64, color string, st particle.Strategy,
) (summaryuc.Result, error) {
	return m.summarizeFn(ctx, id, color, st)
}

func (m *mockSummaryUC) Select(ctx context.Context, id int64, brushes []histogram.Brush) (*histogram.Dataset, error) {
	return m.selectFn(ctx, id, brushes)
}

func (m *mockSummaryUC) Intersect(ctx context.Context, id int64, keep []int64) (*histogram.Dataset, error) {
	return m.intersectFn(ctx, id, keep)
}

func (m *mockSummaryUC) Link(
	ctx context.Context, src, dst int64, brushes []histogram.Brush,
) (*histogram.Dataset, error) {
	return m.linkFn(ctx, src, dst, brushes)
}

func (m *mockSummaryUC) Invalidate(ctx context.Context, id int64) error {
	return m.invalidateFn(ctx, id)
}

// --- helpers ---

func testClient(collSvc collectionUseCase, divSvc divisionUseCase, sumSvc summaryUseCase) *Client {
	return &Client{
		collSvc: collSvc,
		divSvc:  divSvc,
		sumSvc:  sumSvc,
	}
}
