package particle

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"runtime"

	"github.com/kailas-cloud/spectradex/internal/db"
	domparticle "github.com/kailas-cloud/spectradex/internal/domain/particle"
)

// diskCursor pages a collection by its ordering table. It reserves one connection
// for its lifetime so every page reads through the same handle.
type diskCursor struct {
	conn         *sql.Conn
	collectionID int64
	pageSize     int

	page      []domparticle.Particle
	pos       int
	watermark int64
	done      bool
	closed    bool
	cleanup   runtime.Cleanup
}

var _ domparticle.Cursor = (*diskCursor)(nil)

const pageQuery = `
    SELECT o.ord, o.particle_id, k.bin, k.intensity
    FROM (
        SELECT ord, particle_id FROM collection_order
        WHERE collection_id = ? AND ord > ?
        ORDER BY ord LIMIT ?
    ) o
    LEFT JOIN peaks k ON k.particle_id = o.particle_id
    ORDER BY o.ord, k.bin`

func newDiskCursor(ctx context.Context, s store, collectionID int64, pageSize int) (*diskCursor, error) {
	conn, err := s.Conn(ctx)
	if err != nil {
		return nil, err
	}
	c := &diskCursor{conn: conn, collectionID: collectionID, pageSize: pageSize}
	// an abandoned cursor still returns its connection to the pool
	c.cleanup = runtime.AddCleanup(c, func(conn *sql.Conn) { _ = conn.Close() }, conn)
	return c, nil
}

func (c *diskCursor) Next(ctx context.Context) (domparticle.Particle, error) {
	if c.closed {
		return domparticle.Particle{}, errors.New("cursor is closed")
	}
	if c.pos >= len(c.page) {
		if c.done {
			return domparticle.Particle{}, io.EOF
		}
		if err := c.fetch(ctx); err != nil {
			return domparticle.Particle{}, err
		}
		if len(c.page) == 0 {
			c.done = true
			return domparticle.Particle{}, io.EOF
		}
	}
	p := c.page[c.pos]
	c.pos++
	return p, nil
}

func (c *diskCursor) fetch(ctx context.Context) error {
	rows, err := c.conn.QueryContext(ctx, pageQuery, c.collectionID, c.watermark, c.pageSize)
	if err != nil {
		return &db.Error{Op: db.OpSelectPeaks, Err: err}
	}
	defer rows.Close()

	items, last, err := collect(rows)
	if err != nil {
		return err
	}
	c.page, c.pos = items, 0
	if len(items) > 0 {
		c.watermark = last
	}
	if len(items) < c.pageSize {
		c.done = true
	}
	return nil
}

func (c *diskCursor) Reset(_ context.Context) error {
	if c.closed {
		return errors.New("cursor is closed")
	}
	c.page, c.pos, c.watermark, c.done = nil, 0, 0, false
	return nil
}

func (c *diskCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	c.page = nil
	c.cleanup.Stop()
	return c.conn.Close()
}
