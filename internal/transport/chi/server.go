package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spectradex/internal/domain"
	dombatch "github.com/kailas-cloud/spectradex/internal/domain/batch"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
	healthuc "github.com/kailas-cloud/spectradex/internal/usecase/health"
)

const (
	maxBatchSize = divisionuc.MaxBatchSize
	maxBodyBytes = 256 << 20
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the spectradex HTTP API.
type Server struct {
	collections   CollectionService
	divisions     DivisionService
	summaries     SummaryService
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections CollectionService,
	divisions DivisionService,
	summaries SummaryService,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		collections: collections,
		divisions:   divisions,
		summaries:   summaries,
		health:      health,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		noSubCollectionHandler,
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeCollectionNotFound),
		sentinelHandler(domain.ErrInvalidPredicate, http.StatusBadRequest, CodeInvalidPredicate),
		sentinelHandler(domain.ErrInvalidBrush, http.StatusBadRequest, CodeInvalidBrush),
		sentinelHandler(domain.ErrMalformedSeed, http.StatusBadRequest, CodeMalformedSeed),
		sentinelHandler(domain.ErrUnknownMetric, http.StatusBadRequest, CodeUnknownMetric),
		sentinelHandler(domain.ErrInvalidIntensity, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, CodeValidationFailed),
	}
	return s
}

// Routes mounts every API route on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/collections", func(r chi.Router) {
		r.Get("/", s.ListCollections)
		r.Post("/", s.ImportCollection)
		r.Get("/tree", s.CollectionTree)
		r.Post("/divide-batch", s.DivideBatch)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetCollection)
			r.Get("/children", s.ListChildren)
			r.Post("/divide", s.Divide)
			r.Post("/cluster", s.Cluster)
			r.Post("/histograms", s.Summarize)
			r.Delete("/histograms", s.InvalidateHistograms)
			r.Post("/histograms/select", s.Select)
			r.Post("/histograms/intersect", s.Intersect)
			r.Post("/histograms/link", s.Link)
		})
	})
}

// ImportCollection handles POST /collections.
func (s *Server) ImportCollection(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "Collection name is required")
		return
	}

	recs, err := recordsFromDTO(req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	info, err := s.collections.Import(r.Context(), req.Name, req.Description, domcol.DataType(req.DataType), recs)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/collections/%d", info.Collection.ID()))
	writeJSON(w, http.StatusCreated, collectionToDTO(info.Collection, &info.Members))
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionsToDTO(cols))
}

// CollectionTree handles GET /collections/tree.
func (s *Server) CollectionTree(w http.ResponseWriter, r *http.Request) {
	tree, err := s.collections.Tree(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	roots := tree.Roots()
	out := make([]TreeNode, 0, len(roots))
	for _, id := range roots {
		out = append(out, treeNode(tree, id))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetCollection handles GET /collections/{id}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	info, err := s.collections.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionToDTO(info.Collection, &info.Members))
}

// ListChildren handles GET /collections/{id}/children.
func (s *Server) ListChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	cols, err := s.collections.Children(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectionsToDTO(cols))
}

// Divide handles POST /collections/{id}/divide.
func (s *Server) Divide(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req DivideRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := s.divisions.Predicate(r.Context(), divisionuc.PredicateRequest{
		ParentID:    id,
		Name:        req.Name,
		Description: req.Description,
		Predicate:   req.Predicate,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/collections/%d", res.ID))
	writeJSON(w, http.StatusCreated, DivideResponse{ID: res.ID, Members: res.Members})
}

// DivideBatch handles POST /collections/divide-batch.
func (s *Server) DivideBatch(w http.ResponseWriter, r *http.Request) {
	var req DivideBatchRequest
	if !decode(w, r, &req) {
		return
	}
	if len(req.Items) == 0 || len(req.Items) > maxBatchSize {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("items count must be between 1 and %d", maxBatchSize))
		return
	}

	reqs := make([]divisionuc.PredicateRequest, len(req.Items))
	for i, it := range req.Items {
		reqs[i] = divisionuc.PredicateRequest{
			ParentID:    it.ParentID,
			Name:        it.Name,
			Description: it.Description,
			Predicate:   it.Predicate,
		}
	}

	results := s.divisions.DivideMany(r.Context(), reqs)

	resp := DivideBatchResponse{Items: make([]BatchResultItem, len(results))}
	for i, res := range results {
		resp.Items[i] = batchResultToDTO(res)
		if res.Status() == dombatch.StatusOK {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Cluster handles POST /collections/{id}/cluster.
func (s *Server) Cluster(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req ClusterRequest
	if !decode(w, r, &req) {
		return
	}

	seeds := make([]spectrum.Seed, 0, len(req.Seeds))
	for _, text := range req.Seeds {
		seed, err := spectrum.ParseSeedString(text)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		seeds = append(seeds, seed)
	}

	res, err := s.divisions.Cluster(r.Context(), divisionuc.ClusterRequest{
		ParentID:      id,
		Name:          req.Name,
		Description:   req.Description,
		SeedParticles: req.SeedParticles,
		Seeds:         seeds,
		K:             req.K,
		Metric:        spectrum.MetricName(req.Metric),
		Threshold:     req.Threshold,
		MaxIterations: req.MaxIterations,
		Cursor:        particle.Strategy(req.Cursor),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := ClusterResponse{
		IDs:        res.IDs,
		Sizes:      res.Sizes,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Centroids:  make([][]PeakDTO, len(res.Centroids)),
	}
	for i, c := range res.Centroids {
		resp.Centroids[i] = peaksToDTO(c)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Summarize handles POST /collections/{id}/histograms.
func (s *Server) Summarize(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req SummarizeRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}

	res, err := s.summaries.Summarize(r.Context(), id, req.Color, particle.Strategy(req.Cursor))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp := datasetToDTO(res.Dataset)
	resp.Cached = res.Cached
	if !res.Cached || res.Stats.Particles > 0 {
		resp.Stats = &Stats{Particles: res.Stats.Particles, Peaks: res.Stats.Peaks, OutOfRange: res.Stats.OutOfRange}
	}
	writeJSON(w, http.StatusOK, resp)
}

// InvalidateHistograms handles DELETE /collections/{id}/histograms.
func (s *Server) InvalidateHistograms(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	if err := s.summaries.Invalidate(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Select handles POST /collections/{id}/histograms/select.
func (s *Server) Select(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	ds, err := s.summaries.Select(r.Context(), id, brushesFromDTO(req.Brushes))
	s.writeDataset(w, ds, err)
}

// Intersect handles POST /collections/{id}/histograms/intersect.
func (s *Server) Intersect(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req IntersectRequest
	if !decode(w, r, &req) {
		return
	}
	ds, err := s.summaries.Intersect(r.Context(), id, req.KeepIDs)
	s.writeDataset(w, ds, err)
}

// Link handles POST /collections/{id}/histograms/link.
func (s *Server) Link(w http.ResponseWriter, r *http.Request) {
	id, ok := collectionID(w, r)
	if !ok {
		return
	}
	var req LinkRequest
	if !decode(w, r, &req) {
		return
	}
	ds, err := s.summaries.Link(r.Context(), id, req.TargetID, brushesFromDTO(req.Brushes))
	s.writeDataset(w, ds, err)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func (s *Server) writeDataset(w http.ResponseWriter, ds *histogram.Dataset, err error) {
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, datasetToDTO(ds))
}

func collectionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid collection id %q", raw))
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a client-safe message. Validation errors carry caller
// input only, so their text is returned as is.
func safeDomainMessage(err error) string {
	clientErrors := []error{
		domain.ErrInvalidPredicate,
		domain.ErrInvalidBrush,
		domain.ErrMalformedSeed,
		domain.ErrUnknownMetric,
		domain.ErrInvalidIntensity,
		domain.ErrInvalidRequest,
		domain.ErrNoSubCollection,
	}
	for _, s := range clientErrors {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotFound.Error()
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// noSubCollectionHandler reports empty clustering groups with their indexes.
func noSubCollectionHandler(w http.ResponseWriter, err error, msg string) bool {
	var nsc *domain.NoSubCollectionError
	if !errors.As(err, &nsc) {
		return false
	}
	writeJSON(w, http.StatusUnprocessableEntity, NoSubCollectionResponse{
		ErrorResponse: ErrorResponse{Code: CodeNoSubCollection, Message: msg},
		EmptyGroups:   nsc.EmptyGroups,
		Groups:        nsc.Groups,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func collectionToDTO(c domcol.Collection, members *int64) CollectionResponse {
	return CollectionResponse{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		DataType:    string(c.DataType()),
		ParentID:    c.ParentID(),
		CreatedAt:   c.CreatedAt(),
		Members:     members,
	}
}

func collectionsToDTO(cols []domcol.Collection) CollectionListResponse {
	items := make([]CollectionResponse, len(cols))
	for i, c := range cols {
		items[i] = collectionToDTO(c, nil)
	}
	return CollectionListResponse{Items: items}
}

func treeNode(t *domcol.Tree, id int64) TreeNode {
	col, _ := t.Get(id)
	node := TreeNode{CollectionResponse: collectionToDTO(col, nil)}
	for _, child := range t.Children(id) {
		node.Children = append(node.Children, treeNode(t, child))
	}
	return node
}

func recordsFromDTO(req ImportRequest) ([]particle.Record, error) {
	recs := make([]particle.Record, len(req.Particles))
	for i, p := range req.Particles {
		v := spectrum.New()
		for _, pk := range p.Peaks {
			if err := v.Add(pk.Bin, pk.Intensity); err != nil {
				return nil, fmt.Errorf("particle %d: %w", p.ID, err)
			}
		}
		recs[i] = particle.Record{
			Particle: particle.Particle{ID: p.ID, Spectrum: v},
			Meta: particle.Meta{
				DataType:     req.DataType,
				Filename:     p.Filename,
				AcquiredAt:   p.AcquiredAt,
				Size:         p.Size,
				LaserPower:   p.LaserPower,
				ScatterDelay: p.ScatterDelay,
			},
		}
	}
	return recs, nil
}

func peaksToDTO(v *spectrum.Vector) []PeakDTO {
	peaks := v.Peaks()
	out := make([]PeakDTO, len(peaks))
	for i, p := range peaks {
		out[i] = PeakDTO{Bin: p.Bin, Intensity: p.Intensity}
	}
	return out
}

func batchResultToDTO(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		ParentID: r.ParentID(),
		Status:   string(r.Status()),
		ID:       r.ID(),
		Members:  r.Members(),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{Code: batchErrorCode(r.Err()), Message: safeDomainMessage(r.Err())}
	}
	return item
}

func batchErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return CodeCollectionNotFound
	case errors.Is(err, domain.ErrInvalidPredicate):
		return CodeInvalidPredicate
	case errors.Is(err, domain.ErrInvalidRequest):
		return CodeValidationFailed
	default:
		return CodeInternalError
	}
}
