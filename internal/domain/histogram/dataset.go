package histogram

import (
	"errors"
	"fmt"
)

// Binning fixes the bin range and bucket width of a dataset.
type Binning struct {
	Low        int
	High       int
	Resolution float64
}

// DefaultBinning covers the usual positive and negative ion range of an ATOFMS instrument.
var DefaultBinning = Binning{Low: -300, High: 300, Resolution: 0.01}

// Validate checks the range and resolution.
func (b Binning) Validate() error {
	if b.High < b.Low {
		return fmt.Errorf("bin range [%d, %d] is inverted", b.Low, b.High)
	}
	if b.Resolution <= 0 {
		return errors.New("resolution must be positive")
	}
	return nil
}

// Width is the number of bin positions covered.
func (b Binning) Width() int { return b.High - b.Low + 1 }

// Dataset is a fixed-length array of per-bin histograms. Bins[i] holds bin Low+i;
// a nil entry is the empty marker.
type Dataset struct {
	Low        int
	High       int
	Resolution float64
	Color      string
	Bins       []*Histogram
}

// NewDataset allocates a dataset with every bin empty.
func NewDataset(b Binning, color string) (*Dataset, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &Dataset{
		Low:        b.Low,
		High:       b.High,
		Resolution: b.Resolution,
		Color:      color,
		Bins:       make([]*Histogram, b.Width()),
	}, nil
}

// Binning returns the dataset's binning parameters.
func (d *Dataset) Binning() Binning {
	return Binning{Low: d.Low, High: d.High, Resolution: d.Resolution}
}

// Contains reports whether bin lies in [Low, High].
func (d *Dataset) Contains(bin int) bool { return bin >= d.Low && bin <= d.High }

// At returns the histogram for bin or nil when empty or out of range.
func (d *Dataset) At(bin int) *Histogram {
	if !d.Contains(bin) {
		return nil
	}
	return d.Bins[bin-d.Low]
}

func (d *Dataset) ensure(bin int) *Histogram {
	i := bin - d.Low
	if d.Bins[i] == nil {
		d.Bins[i] = New(d.Resolution)
	}
	return d.Bins[i]
}

// NonEmpty returns the number of bins holding at least one observation.
func (d *Dataset) NonEmpty() int {
	n := 0
	for _, h := range d.Bins {
		if !h.IsEmpty() {
			n++
		}
	}
	return n
}

// Equal compares two datasets bin by bin. Color is display metadata and is ignored.
func (d *Dataset) Equal(o *Dataset) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Low != o.Low || d.High != o.High || d.Resolution != o.Resolution {
		return false
	}
	if len(d.Bins) != len(o.Bins) {
		return false
	}
	for i := range d.Bins {
		if !d.Bins[i].Equal(o.Bins[i]) {
			return false
		}
	}
	return true
}

// derive returns an empty dataset with the same shape.
func (d *Dataset) derive() *Dataset {
	return &Dataset{
		Low:        d.Low,
		High:       d.High,
		Resolution: d.Resolution,
		Color:      d.Color,
		Bins:       make([]*Histogram, len(d.Bins)),
	}
}
