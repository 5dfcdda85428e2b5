package chi

import (
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
)

// ErrorCode is a machine-readable error identifier in API responses.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeCollectionNotFound ErrorCode = "collection_not_found"
	CodeInvalidPredicate   ErrorCode = "invalid_predicate"
	CodeInvalidBrush       ErrorCode = "invalid_brush"
	CodeMalformedSeed      ErrorCode = "malformed_seed"
	CodeUnknownMetric      ErrorCode = "unknown_metric"
	CodeNoSubCollection    ErrorCode = "no_sub_collection"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// CollectionResponse describes one collection.
type CollectionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DataType    string `json:"datatype"`
	ParentID    int64  `json:"parent_id,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	Members     *int64 `json:"members,omitempty"`
}

// CollectionListResponse wraps a list of collections.
type CollectionListResponse struct {
	Items []CollectionResponse `json:"items"`
}

// TreeNode is a collection with its descendants.
type TreeNode struct {
	CollectionResponse
	Children []TreeNode `json:"children,omitempty"`
}

// PeakDTO is one (bin, intensity) pair.
type PeakDTO struct {
	Bin       int     `json:"bin"`
	Intensity float64 `json:"intensity"`
}

// ParticleDTO is an imported particle.
type ParticleDTO struct {
	ID           int64     `json:"id"`
	Peaks        []PeakDTO `json:"peaks"`
	Filename     string    `json:"filename,omitempty"`
	AcquiredAt   int64     `json:"acquired_at,omitempty"`
	Size         float64   `json:"size,omitempty"`
	LaserPower   float64   `json:"laser_power,omitempty"`
	ScatterDelay int64     `json:"scatter_delay,omitempty"`
}

// ImportRequest creates a root collection from particles.
type ImportRequest struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	DataType    string        `json:"datatype"`
	Particles   []ParticleDTO `json:"particles"`
}

// DivideRequest divides a collection by predicate.
type DivideRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Predicate   string `json:"predicate"`
}

// DivideResponse is the child created by a predicate division.
type DivideResponse struct {
	ID      int64 `json:"id"`
	Members int64 `json:"members"`
}

// DivideBatchItem is one division of a batch.
type DivideBatchItem struct {
	ParentID int64 `json:"parent_id"`
	DivideRequest
}

// DivideBatchRequest runs several predicate divisions.
type DivideBatchRequest struct {
	Items []DivideBatchItem `json:"items"`
}

// BatchResultItem is the outcome of one batch division.
type BatchResultItem struct {
	ParentID int64          `json:"parent_id"`
	Status   string         `json:"status"`
	ID       int64          `json:"id,omitempty"`
	Members  int64          `json:"members,omitempty"`
	Error    *ErrorResponse `json:"error,omitempty"`
}

// DivideBatchResponse reports every item of a batch.
type DivideBatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// ClusterRequest divides a collection by clustering. Seeds holds seed files verbatim.
type ClusterRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	SeedParticles []int64  `json:"seed_particles,omitempty"`
	Seeds         []string `json:"seeds,omitempty"`
	K             int      `json:"k,omitempty"`
	Metric        string   `json:"metric,omitempty"`
	Threshold     float64  `json:"threshold,omitempty"`
	MaxIterations int      `json:"max_iterations,omitempty"`
	Cursor        string   `json:"cursor,omitempty"`
}

// ClusterResponse lists the children created by clustering.
type ClusterResponse struct {
	IDs        []int64     `json:"ids"`
	Sizes      []int64     `json:"sizes"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
	Centroids  [][]PeakDTO `json:"centroids"`
}

// NoSubCollectionResponse reports groups that ended up empty.
type NoSubCollectionResponse struct {
	ErrorResponse
	EmptyGroups []int `json:"empty_groups"`
	Groups      int   `json:"groups"`
}

// SummarizeRequest asks for the histogram dataset of a collection.
type SummarizeRequest struct {
	Color  string `json:"color"`
	Cursor string `json:"cursor"`
}

// BrushDTO is one selection rectangle.
type BrushDTO struct {
	BinLow    int     `json:"bin_low"`
	BinHigh   int     `json:"bin_high"`
	ValueLow  float64 `json:"value_low"`
	ValueHigh float64 `json:"value_high"`
}

// SelectRequest brushes a dataset.
type SelectRequest struct {
	Brushes []BrushDTO `json:"brushes"`
}

// IntersectRequest restricts a dataset to particle ids.
type IntersectRequest struct {
	KeepIDs []int64 `json:"keep_ids"`
}

// LinkRequest brushes this collection and restricts the target to the selected particles.
type LinkRequest struct {
	TargetID int64      `json:"target_id"`
	Brushes  []BrushDTO `json:"brushes"`
}

// BucketDTO is one histogram bucket.
type BucketDTO struct {
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
	Count float64 `json:"count"`
}

// BinDTO is the histogram of one non-empty bin.
type BinDTO struct {
	Bin     int         `json:"bin"`
	Count   float64     `json:"count"`
	Buckets []BucketDTO `json:"buckets"`
}

// DatasetResponse is a histogram dataset with its non-empty bins.
type DatasetResponse struct {
	Low        int      `json:"low"`
	High       int      `json:"high"`
	Resolution float64  `json:"resolution"`
	Color      string   `json:"color,omitempty"`
	Particles  uint64   `json:"particles"`
	Cached     bool     `json:"cached"`
	Stats      *Stats   `json:"stats,omitempty"`
	Bins       []BinDTO `json:"bins"`
}

// Stats describes a summarization pass.
type Stats struct {
	Particles  int `json:"particles"`
	Peaks      int `json:"peaks"`
	OutOfRange int `json:"out_of_range"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func brushesFromDTO(in []BrushDTO) []histogram.Brush {
	out := make([]histogram.Brush, len(in))
	for i, b := range in {
		out[i] = histogram.Brush{BinLow: b.BinLow, BinHigh: b.BinHigh, ValueLow: b.ValueLow, ValueHigh: b.ValueHigh}
	}
	return out
}

func datasetToDTO(ds *histogram.Dataset) DatasetResponse {
	resp := DatasetResponse{
		Low:        ds.Low,
		High:       ds.High,
		Resolution: ds.Resolution,
		Color:      ds.Color,
		Particles:  histogram.ParticleIDs(ds).GetCardinality(),
		Bins:       []BinDTO{},
	}
	for i, h := range ds.Bins {
		if h.IsEmpty() {
			continue
		}
		buckets := h.Buckets()
		bin := BinDTO{Bin: ds.Low + i, Count: h.Count(), Buckets: make([]BucketDTO, len(buckets))}
		for j, b := range buckets {
			bin.Buckets[j] = BucketDTO{Low: b.Low, High: b.High, Count: b.Count}
		}
		resp.Bins = append(resp.Bins, bin)
	}
	return resp
}
