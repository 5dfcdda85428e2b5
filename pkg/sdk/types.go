package spectradex

// DataType is the particle schema family of a collection.
type DataType string

// Data type constants.
const (
	DataTypeATOFMS  DataType = "ATOFMS"
	DataTypeAMS     DataType = "AMS"
	DataTypeGeneric DataType = "generic"
)

// Metric names a clustering distance metric.
type Metric string

// Metric constants.
const (
	MetricEuclideanSquared Metric = "euclidean_squared"
	MetricCityBlock        Metric = "city_block"
	MetricDotProduct       Metric = "dot_product"
)

// CursorStrategy selects how a collection is materialized for a pass.
type CursorStrategy string

// Cursor strategy constants.
const (
	CursorDisk   CursorStrategy = "disk"   // paged, bounded memory
	CursorMemory CursorStrategy = "memory" // loaded eagerly
)

// CollectionInfo represents collection metadata.
type CollectionInfo struct {
	ID          int64
	Name        string
	Description string
	DataType    DataType
	ParentID    int64 // 0 for a root collection
	CreatedAt   int64
	Members     int64 // -1 when not loaded
}

// TreeNode is a collection with its descendants.
type TreeNode struct {
	CollectionInfo
	Children []TreeNode
}

// Peak is a single (bin, intensity) pair of a spectrum.
type Peak struct {
	Bin       int
	Intensity float64
}

// Particle is one spectrum with its acquisition attributes.
type Particle struct {
	ID           int64
	Peaks        []Peak
	Filename     string
	AcquiredAt   int64
	Size         float64
	LaserPower   float64
	ScatterDelay int64
}

// Seed is an initial clustering centroid.
type Seed struct {
	Name  string
	Peaks []Peak
}

// DivisionResult is the child created by a predicate division.
type DivisionResult struct {
	ID      int64
	Members int64
}

// PredicateDivision is one item of a batch division.
type PredicateDivision struct {
	ParentID    int64
	Name        string
	Description string
	Predicate   string
}

// BatchResult is the outcome of one item in a batch division.
type BatchResult struct {
	ParentID int64
	ID       int64
	Members  int64
	OK       bool
	Err      error
}

// ClusterResult describes the children of a clustering division, one per seed.
type ClusterResult struct {
	IDs        []int64
	Sizes      []int64
	Iterations int
	Converged  bool
	Centroids  [][]Peak
}

// Brush is a selection rectangle: bins [BinLow, BinHigh] by values [ValueLow, ValueHigh].
type Brush struct {
	BinLow    int
	BinHigh   int
	ValueLow  float64
	ValueHigh float64
}

// Bucket is one non-empty histogram bucket covering values [Low, High).
type Bucket struct {
	Low   float64
	High  float64
	Count float64
}

// Bin is the histogram of one mass-to-charge bin.
type Bin struct {
	Bin     int
	Count   float64
	Buckets []Bucket
}

// Dataset is a per-bin histogram summary. Only non-empty bins are listed.
type Dataset struct {
	Low        int
	High       int
	Resolution float64
	Color      string
	Bins       []Bin
	Particles  []int64 // contributing particle ids, ascending
}

// Summary is a summarized collection. A cached summary only reports Particles.
type Summary struct {
	Dataset   Dataset
	Cached    bool
	Particles int
	Peaks     int
	Skipped   int // peaks outside the bin range
}
