// Package histogram summarizes spectra into per-bin intensity distributions and
// implements brushing (selection) and identifier intersection over them.
package histogram

import (
	"math"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// DefaultResolution is the width of one intensity bucket.
const DefaultResolution = 0.01

const equalTolerance = 1e-9

type bucket struct {
	weight float64 // anonymous contributions
	ids    *roaring64.Bitmap
}

func (b *bucket) count() float64 {
	return b.weight + float64(b.ids.GetCardinality())
}

func (b *bucket) clone() *bucket {
	return &bucket{weight: b.weight, ids: b.ids.Clone()}
}

// Histogram is an online frequency distribution of intensities observed at one bin,
// discretized into buckets of fixed width. Insertion order never affects the result.
// Particle contributions keep their id so the distribution can later be intersected.
type Histogram struct {
	resolution float64
	buckets    map[int64]*bucket
}

// New creates an empty histogram. Non-positive resolution selects DefaultResolution.
func New(resolution float64) *Histogram {
	if resolution <= 0 || math.IsNaN(resolution) {
		resolution = DefaultResolution
	}
	return &Histogram{resolution: resolution, buckets: make(map[int64]*bucket)}
}

// Resolution returns the bucket width.
func (h *Histogram) Resolution() float64 { return h.resolution }

func (h *Histogram) index(value float64) int64 {
	return int64(math.Floor(value / h.resolution))
}

func (h *Histogram) bucketAt(idx int64) *bucket {
	b, ok := h.buckets[idx]
	if !ok {
		b = &bucket{ids: roaring64.New()}
		h.buckets[idx] = b
	}
	return b
}

// Add records an anonymous observation. Non-positive or non-finite weights are ignored.
func (h *Histogram) Add(value, weight float64) {
	if weight <= 0 || math.IsNaN(weight) || math.IsInf(weight, 0) || math.IsNaN(value) {
		return
	}
	h.bucketAt(h.index(value)).weight += weight
}

// AddParticle records one observation attributed to particle id. A particle counts
// at most once per bucket.
func (h *Histogram) AddParticle(value float64, id int64) {
	if math.IsNaN(value) {
		return
	}
	h.bucketAt(h.index(value)).ids.Add(uint64(id))
}

// Count returns the total observed weight.
func (h *Histogram) Count() float64 {
	if h == nil {
		return 0
	}
	var total float64
	for _, b := range h.buckets {
		total += b.count()
	}
	return total
}

// IsEmpty reports whether nothing has been observed. A nil histogram is empty.
func (h *Histogram) IsEmpty() bool {
	if h == nil {
		return true
	}
	for _, b := range h.buckets {
		if b.count() > 0 {
			return false
		}
	}
	return true
}

// Bucket is a read-only view of one non-empty bucket: values in [Low, High).
type Bucket struct {
	Low   float64
	High  float64
	Count float64
}

// Buckets returns the non-empty buckets in ascending value order.
func (h *Histogram) Buckets() []Bucket {
	if h == nil {
		return nil
	}
	idx := h.sortedIndexes()
	out := make([]Bucket, 0, len(idx))
	for _, i := range idx {
		c := h.buckets[i].count()
		if c == 0 {
			continue
		}
		out = append(out, Bucket{
			Low:   float64(i) * h.resolution,
			High:  float64(i+1) * h.resolution,
			Count: c,
		})
	}
	return out
}

func (h *Histogram) sortedIndexes() []int64 {
	idx := make([]int64, 0, len(h.buckets))
	for i := range h.buckets {
		idx = append(idx, i)
	}
	sort.Slice(idx, func(a, b int) bool { return idx[a] < idx[b] })
	return idx
}

// Equal compares accumulated distributions. Contributing ids are not compared, so
// histograms built from different but equivalent particles are equal. A nil histogram
// equals any histogram with zero observations.
func (h *Histogram) Equal(o *Histogram) bool {
	if h.IsEmpty() || o.IsEmpty() {
		return h.IsEmpty() && o.IsEmpty()
	}
	if h.resolution != o.resolution {
		return false
	}
	for i, b := range h.buckets {
		if !approxEqual(b.count(), o.countAt(i)) {
			return false
		}
	}
	for i, b := range o.buckets {
		if !approxEqual(b.count(), h.countAt(i)) {
			return false
		}
	}
	return true
}

func (h *Histogram) countAt(idx int64) float64 {
	if b, ok := h.buckets[idx]; ok {
		return b.count()
	}
	return 0
}

func approxEqual(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= equalTolerance*scale
}

// Clone returns a deep copy.
func (h *Histogram) Clone() *Histogram {
	if h == nil {
		return nil
	}
	out := New(h.resolution)
	for i, b := range h.buckets {
		out.buckets[i] = b.clone()
	}
	return out
}

// ParticleIDs returns the union of ids that contributed to h.
func (h *Histogram) ParticleIDs() *roaring64.Bitmap {
	out := roaring64.New()
	if h == nil {
		return out
	}
	for _, b := range h.buckets {
		out.Or(b.ids)
	}
	return out
}

// valueRange keeps the buckets whose interval overlaps [lo, hi]. Nil when nothing remains.
func (h *Histogram) valueRange(lo, hi float64, into *Histogram) *Histogram {
	for i, b := range h.buckets {
		if b.count() == 0 {
			continue
		}
		low := float64(i) * h.resolution
		high := float64(i+1) * h.resolution
		if low > hi || high <= lo {
			continue
		}
		if into == nil {
			into = New(h.resolution)
		}
		if _, ok := into.buckets[i]; !ok {
			into.buckets[i] = b.clone()
		}
	}
	return into
}

// keep restricts every bucket to ids in keep and drops anonymous weight. Nil when
// nothing remains.
func (h *Histogram) keep(ids *roaring64.Bitmap) *Histogram {
	var out *Histogram
	for i, b := range h.buckets {
		kept := roaring64.And(b.ids, ids)
		if kept.IsEmpty() {
			continue
		}
		if out == nil {
			out = New(h.resolution)
		}
		out.buckets[i] = &bucket{ids: kept}
	}
	return out
}

// State is the serializable form of one bucket.
type State struct {
	Index  int64    `json:"i"`
	Weight float64  `json:"w,omitempty"`
	IDs    []uint64 `json:"ids,omitempty"`
}

// Snapshot returns the bucket states in ascending index order.
func (h *Histogram) Snapshot() []State {
	if h == nil {
		return nil
	}
	out := make([]State, 0, len(h.buckets))
	for _, i := range h.sortedIndexes() {
		b := h.buckets[i]
		if b.count() == 0 {
			continue
		}
		out = append(out, State{Index: i, Weight: b.weight, IDs: b.ids.ToArray()})
	}
	return out
}

// Restore rebuilds a histogram from Snapshot output. Nil when states is empty.
func Restore(resolution float64, states []State) *Histogram {
	if len(states) == 0 {
		return nil
	}
	h := New(resolution)
	for _, s := range states {
		h.buckets[s.Index] = &bucket{weight: s.Weight, ids: roaring64.BitmapOf(s.IDs...)}
	}
	return h
}
