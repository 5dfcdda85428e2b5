package histcache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"

	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
)

// Payload format byte.
const (
	formatJSON byte = 0x00
	formatZstd byte = 0x01
)

type binRow struct {
	Bin     int               `json:"bin"`
	Buckets []histogram.State `json:"b"`
}

type datasetRow struct {
	Low        int      `json:"low"`
	High       int      `json:"high"`
	Resolution float64  `json:"res"`
	Color      string   `json:"color,omitempty"`
	Bins       []binRow `json:"bins"`
}

// codec serializes datasets. Encoders are safe for concurrent EncodeAll/DecodeAll.
type codec struct {
	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder
}

func newCodec(compress bool) (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &codec{compress: compress, enc: enc, dec: dec}, nil
}

func (c *codec) encode(ds *histogram.Dataset) ([]byte, error) {
	row := datasetRow{Low: ds.Low, High: ds.High, Resolution: ds.Resolution, Color: ds.Color}
	for i, h := range ds.Bins {
		if h.IsEmpty() {
			continue
		}
		row.Bins = append(row.Bins, binRow{Bin: ds.Low + i, Buckets: h.Snapshot()})
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("marshal dataset: %w", err)
	}
	if !c.compress {
		return append([]byte{formatJSON}, raw...), nil
	}
	return c.enc.EncodeAll(raw, []byte{formatZstd}), nil
}

func (c *codec) decode(data []byte) (*histogram.Dataset, error) {
	if len(data) == 0 {
		return nil, errors.New("empty payload")
	}
	raw := data[1:]
	switch data[0] {
	case formatJSON:
	case formatZstd:
		var err error
		if raw, err = c.dec.DecodeAll(raw, nil); err != nil {
			return nil, fmt.Errorf("decompress dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown payload format 0x%02x", data[0])
	}

	var row datasetRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("unmarshal dataset: %w", err)
	}
	ds, err := histogram.NewDataset(histogram.Binning{Low: row.Low, High: row.High, Resolution: row.Resolution}, row.Color)
	if err != nil {
		return nil, err
	}
	for _, b := range row.Bins {
		if !ds.Contains(b.Bin) {
			return nil, fmt.Errorf("bin %d outside [%d, %d]", b.Bin, row.Low, row.High)
		}
		ds.Bins[b.Bin-row.Low] = histogram.Restore(row.Resolution, b.Buckets)
	}
	return ds, nil
}
