package spectradex

// CollectionOption configures a collection created by Import or Predicate.
type CollectionOption interface {
	applyCollection(*collectionConfig)
}

// ClusterOption configures a clustering division.
type ClusterOption interface {
	applyCluster(*clusterConfig)
}

type collectionConfig struct {
	description string
	dataType    DataType
}

type clusterConfig struct {
	description   string
	seedParticles []int64
	seeds         []Seed
	k             int
	metric        Metric
	threshold     float64
	maxIterations int
	cursor        CursorStrategy
}

type collectionOptionFunc func(*collectionConfig)

func (f collectionOptionFunc) applyCollection(c *collectionConfig) { f(c) }

type clusterOptionFunc func(*clusterConfig)

func (f clusterOptionFunc) applyCluster(c *clusterConfig) { f(c) }

// descriptionOption applies to both collections and clustering children.
type descriptionOption string

func (d descriptionOption) applyCollection(c *collectionConfig) { c.description = string(d) }
func (d descriptionOption) applyCluster(c *clusterConfig) { c.description = string(d) }

// WithDescription sets the description of the created collections.
func WithDescription(text string) interface {
	CollectionOption
	ClusterOption
} {
	return descriptionOption(text)
}

// WithDataType sets the particle schema family of an imported collection.
// Default: DataTypeATOFMS.
func WithDataType(t DataType) CollectionOption {
	return collectionOptionFunc(func(c *collectionConfig) {
		c.dataType = t
	})
}

// WithK seeds clustering with the first k particles of the parent.
func WithK(k int) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.k = k
	})
}

// WithSeedParticles seeds clustering with the spectra of the given particles.
func WithSeedParticles(ids ...int64) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.seedParticles = append(c.seedParticles, ids...)
	})
}

// WithSeeds seeds clustering with explicit spectra, typically from seed files.
func WithSeeds(seeds ...Seed) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.seeds = append(c.seeds, seeds...)
	})
}

// WithMetric selects the distance metric.
func WithMetric(m Metric) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.metric = m
	})
}

// WithThreshold sets the relative centroid movement below which clustering stops.
func WithThreshold(t float64) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.threshold = t
	})
}

// WithMaxIterations caps the number of assignment passes.
func WithMaxIterations(n int) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.maxIterations = n
	})
}

// WithCursor selects how the parent is materialized while clustering.
func WithCursor(s CursorStrategy) ClusterOption {
	return clusterOptionFunc(func(c *clusterConfig) {
		c.cursor = s
	})
}
