package spectradex

import (
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

func fromInternalCollection(c domcol.Collection, members int64) CollectionInfo {
	return CollectionInfo{
		ID:          c.ID(),
		Name:        c.Name(),
		Description: c.Description(),
		DataType:    DataType(c.DataType()),
		ParentID:    c.ParentID(),
		CreatedAt:   c.CreatedAt(),
		Members:     members,
	}
}

func fromInternalTree(t *domcol.Tree, ids []int64) []TreeNode {
	out := make([]TreeNode, 0, len(ids))
	for _, id := range ids {
		c, ok := t.Get(id)
		if !ok {
			continue
		}
		out = append(out, TreeNode{
			CollectionInfo: fromInternalCollection(c, -1),
			Children:       fromInternalTree(t, t.Children(id)),
		})
	}
	return out
}

func toInternalVector(peaks []Peak) (*spectrum.Vector, error) {
	v := spectrum.New()
	for _, p := range peaks {
		if err := v.Add(p.Bin, p.Intensity); err != nil {
			return nil, err
		}
	}
	return v, nil
}

func fromInternalVector(v *spectrum.Vector) []Peak {
	if v == nil {
		return nil
	}
	peaks := v.Peaks()
	out := make([]Peak, len(peaks))
	for i, p := range peaks {
		out[i] = Peak{Bin: p.Bin, Intensity: p.Intensity}
	}
	return out
}

func toInternalRecords(ps []Particle, dataType DataType) ([]particle.Record, error) {
	recs := make([]particle.Record, len(ps))
	for i, p := range ps {
		v, err := toInternalVector(p.Peaks)
		if err != nil {
			return nil, err
		}
		recs[i] = particle.Record{
			Particle: particle.Particle{ID: p.ID, Spectrum: v},
			Meta: particle.Meta{
				DataType:     string(dataType),
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

func toInternalSeeds(seeds []Seed) ([]spectrum.Seed, error) {
	out := make([]spectrum.Seed, len(seeds))
	for i, s := range seeds {
		v, err := toInternalVector(s.Peaks)
		if err != nil {
			return nil, err
		}
		out[i] = spectrum.Seed{Name: s.Name, Spectrum: v}
	}
	return out, nil
}

func toInternalBrushes(bs []Brush) []histogram.Brush {
	out := make([]histogram.Brush, len(bs))
	for i, b := range bs {
		out[i] = histogram.Brush{BinLow: b.BinLow, BinHigh: b.BinHigh, ValueLow: b.ValueLow, ValueHigh: b.ValueHigh}
	}
	return out
}

func fromInternalDataset(ds *histogram.Dataset) Dataset {
	if ds == nil {
		return Dataset{}
	}
	out := Dataset{
		Low:        ds.Low,
		High:       ds.High,
		Resolution: ds.Resolution,
		Color:      ds.Color,
		Bins:       make([]Bin, 0, ds.NonEmpty()),
	}
	for i, h := range ds.Bins {
		if h.IsEmpty() {
			continue
		}
		buckets := h.Buckets()
		bin := Bin{Bin: ds.Low + i, Count: h.Count(), Buckets: make([]Bucket, len(buckets))}
		for j, b := range buckets {
			bin.Buckets[j] = Bucket{Low: b.Low, High: b.High, Count: b.Count}
		}
		out.Bins = append(out.Bins, bin)
	}
	ids := histogram.ParticleIDs(ds)
	out.Particles = make([]int64, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		out.Particles = append(out.Particles, int64(it.Next()))
	}
	return out
}
