// Package particle stores particle spectra and opens cursors over collections.
package particle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/kailas-cloud/spectradex/internal/db"
	"github.com/kailas-cloud/spectradex/internal/domain"
	domparticle "github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

// DefaultPageSize is the number of particles a disk cursor fetches per query.
const DefaultPageSize = 512

// store is the consumer interface for the registry database (ISP).
type store interface {
	SQL() *sql.DB
	Conn(ctx context.Context) (*sql.Conn, error)
	WithTx(ctx context.Context, fn func(*sql.Tx) error) error
}

// Repo reads and writes particles.
type Repo struct {
	store    store
	pageSize int
}

// New creates a particle repository. Non-positive pageSize selects DefaultPageSize.
func New(s store, pageSize int) *Repo {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Repo{store: s, pageSize: pageSize}
}

// Insert stores particles and their peaks in one transaction.
func (r *Repo) Insert(ctx context.Context, recs []domparticle.Record) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		partStmt, err := tx.PrepareContext(ctx, `
            INSERT INTO particles (id, datatype, filename, acquired_at, size, laser_power, scatter_delay)
            VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return &db.Error{Op: db.OpInsertPart, Err: err}
		}
		defer partStmt.Close()

		peakStmt, err := tx.PrepareContext(ctx,
			`INSERT INTO peaks (particle_id, bin, intensity) VALUES (?, ?, ?)`)
		if err != nil {
			return &db.Error{Op: db.OpInsertPeaks, Err: err}
		}
		defer peakStmt.Close()

		for _, rec := range recs {
			m := rec.Meta
			if m.DataType == "" {
				m.DataType = "ATOFMS"
			}
			if _, err := partStmt.ExecContext(ctx, rec.ID,
				m.DataType, m.Filename, m.AcquiredAt, m.Size, m.LaserPower, m.ScatterDelay); err != nil {
				return &db.Error{Op: db.OpInsertPart, Err: fmt.Errorf("particle %d: %w", rec.ID, err)}
			}
			if rec.Spectrum == nil {
				continue
			}
			for _, pk := range rec.Spectrum.Peaks() {
				if _, err := peakStmt.ExecContext(ctx, rec.ID, pk.Bin, pk.Intensity); err != nil {
					return &db.Error{Op: db.OpInsertPeaks, Err: fmt.Errorf("particle %d: %w", rec.ID, err)}
				}
			}
		}
		return nil
	})
}

// Spectra loads the spectra of ids, returned in the order requested.
func (r *Repo) Spectra(ctx context.Context, ids []int64) ([]domparticle.Particle, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	found := make(map[int64]bool, len(ids))
	rows, err := r.store.SQL().QueryContext(ctx,
		`SELECT id FROM particles WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
		}
		found[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}

	spectra := make(map[int64]*spectrum.Vector, len(ids))
	rows, err = r.store.SQL().QueryContext(ctx,
		`SELECT particle_id, bin, intensity FROM peaks WHERE particle_id IN (`+placeholders+`) ORDER BY particle_id, bin`,
		args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, bin   int64
			intensity float64
		)
		if err := rows.Scan(&id, &bin, &intensity); err != nil {
			return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
		}
		v, ok := spectra[id]
		if !ok {
			v = spectrum.New()
			spectra[id] = v
		}
		if err := v.Add(int(bin), intensity); err != nil {
			return nil, fmt.Errorf("particle %d: %w", id, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}

	out := make([]domparticle.Particle, len(ids))
	for i, id := range ids {
		if !found[id] {
			return nil, fmt.Errorf("particle %d: %w", id, domain.ErrNotFound)
		}
		v := spectra[id]
		if v == nil {
			v = spectrum.New()
		}
		out[i] = domparticle.Particle{ID: id, Spectrum: v}
	}
	return out, nil
}

// Cursor opens a cursor over collectionID with the given strategy. The caller must
// Close it.
func (r *Repo) Cursor(ctx context.Context, collectionID int64, strategy domparticle.Strategy) (domparticle.Cursor, error) {
	switch strategy {
	case domparticle.StrategyMemory:
		return r.memoryCursor(ctx, collectionID)
	case domparticle.StrategyDisk, "":
		return newDiskCursor(ctx, r.store, collectionID, r.pageSize)
	default:
		return nil, fmt.Errorf("unknown cursor strategy %q", strategy)
	}
}

func (r *Repo) memoryCursor(ctx context.Context, collectionID int64) (domparticle.Cursor, error) {
	rows, err := r.store.SQL().QueryContext(ctx, `
        SELECT o.ord, o.particle_id, k.bin, k.intensity
        FROM collection_order o
        LEFT JOIN peaks k ON k.particle_id = o.particle_id
        WHERE o.collection_id = ?
        ORDER BY o.ord, k.bin`, collectionID)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}
	defer rows.Close()

	items, _, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return domparticle.NewSliceCursor(items), nil
}

// collect groups (ord, particle_id, bin, intensity) rows ordered by ord into
// particles and returns the last ord seen.
func collect(rows *sql.Rows) ([]domparticle.Particle, int64, error) {
	var (
		items   []domparticle.Particle
		lastOrd int64 = -1
	)
	for rows.Next() {
		var (
			ord, pid  int64
			bin       sql.NullInt64
			intensity sql.NullFloat64
		)
		if err := rows.Scan(&ord, &pid, &bin, &intensity); err != nil {
			return nil, 0, &db.Error{Op: db.OpSelectPeaks, Err: err}
		}
		if ord != lastOrd {
			items = append(items, domparticle.Particle{ID: pid, Spectrum: spectrum.New()})
			lastOrd = ord
		}
		if bin.Valid && intensity.Valid {
			if err := items[len(items)-1].Spectrum.Add(int(bin.Int64), intensity.Float64); err != nil {
				return nil, 0, fmt.Errorf("particle %d: %w", pid, err)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, &db.Error{Op: db.OpSelectPeaks, Err: err}
	}
	return items, lastOrd, nil
}
