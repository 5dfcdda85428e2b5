package collection

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/kailas-cloud/spectradex/internal/db"
	"github.com/kailas-cloud/spectradex/internal/domain"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
)

// store is the consumer interface for the registry database (ISP).
type store interface {
	SQL() *sql.DB
	WithTx(ctx context.Context, fn func(*sql.Tx) error) error
}

// Repo implements the collection registry on SQLite.
type Repo struct {
	store store
}

// New creates a collection repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

const collectionColumns = `id, name, description, datatype, parent_id, created_at`

// Create stores one collection with its members atomically and returns its id.
func (r *Repo) Create(ctx context.Context, col domcol.Collection, members iter.Seq[int64]) (int64, error) {
	ids, err := r.CreateMany(ctx, []domcol.Draft{{Collection: col, Members: members}})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// CreateMany stores several collections in a single transaction. Either every
// collection becomes visible or none does.
func (r *Repo) CreateMany(ctx context.Context, cols []domcol.Draft) ([]int64, error) {
	ids := make([]int64, 0, len(cols))
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		for _, nc := range cols {
			id, err := insertCollection(ctx, tx, nc.Collection)
			if err != nil {
				return err
			}
			if nc.Members != nil {
				if err := insertMembers(ctx, tx, id, nc.Members); err != nil {
					return fmt.Errorf("members of %q: %w", nc.Collection.Name(), err)
				}
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateFromPredicate stores a child of col.ParentID() holding every parent member
// for which predicate holds, in parent order. The predicate is an SQL boolean
// expression over the particles table aliased p. Returns the new id and its size.
func (r *Repo) CreateFromPredicate(ctx context.Context, col domcol.Collection, predicate string) (int64, int64, error) {
	if err := ValidatePredicate(predicate); err != nil {
		return 0, 0, err
	}

	var id, n int64
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, col.ParentID()); err != nil {
			return err
		}

		probe, err := tx.PrepareContext(ctx, `SELECT 1 FROM particles p WHERE (`+predicate+`)`)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrInvalidPredicate, err)
		}
		_ = probe.Close()

		id, err = insertCollection(ctx, tx, col)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
            INSERT INTO collection_order (collection_id, ord, particle_id)
            SELECT ?, ROW_NUMBER() OVER (ORDER BY o.ord), o.particle_id
            FROM collection_order o
            JOIN particles p ON p.id = o.particle_id
            WHERE o.collection_id = ? AND (`+predicate+`)`,
			id, col.ParentID())
		if err != nil {
			return &db.Error{Op: db.OpInsertOrder, Err: err}
		}
		if n, err = res.RowsAffected(); err != nil {
			return &db.Error{Op: db.OpInsertOrder, Err: err}
		}

		if _, err := tx.ExecContext(ctx, `
            INSERT INTO collection_members (collection_id, particle_id)
            SELECT collection_id, particle_id FROM collection_order WHERE collection_id = ?`, id); err != nil {
			return &db.Error{Op: db.OpInsertMembers, Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return id, n, nil
}

// CreatePartition stores children of parentID in a single transaction. assign
// yields (particle id, child index) pairs; each child receives its particles in
// parent order. Ordering runs inside SQLite over a temporary assignment table, so
// the parent's member list is never loaded into memory.
func (r *Repo) CreatePartition(
	ctx context.Context, parentID int64, children []domcol.Collection, assign iter.Seq2[int64, int],
) ([]int64, error) {
	ids := make([]int64, len(children))
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if err := exists(ctx, tx, parentID); err != nil {
			return err
		}
		if err := loadAssignment(ctx, tx, len(children), assign); err != nil {
			return err
		}
		for i, col := range children {
			id, err := insertCollection(ctx, tx, col)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO collection_order (collection_id, ord, particle_id)
                SELECT ?, ROW_NUMBER() OVER (ORDER BY o.ord), o.particle_id
                FROM collection_order o
                JOIN temp.group_assignment a ON a.particle_id = o.particle_id
                WHERE o.collection_id = ? AND a.grp = ?`,
				id, parentID, i); err != nil {
				return &db.Error{Op: db.OpInsertOrder, Err: err}
			}
			if _, err := tx.ExecContext(ctx, `
                INSERT INTO collection_members (collection_id, particle_id)
                SELECT collection_id, particle_id FROM collection_order WHERE collection_id = ?`, id); err != nil {
				return &db.Error{Op: db.OpInsertMembers, Err: err}
			}
			ids[i] = id
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM temp.group_assignment`); err != nil {
			return &db.Error{Op: db.OpAssign, Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// loadAssignment fills the connection-local assignment table. The table is
// emptied first since a rolled back division may have left rows behind.
func loadAssignment(ctx context.Context, tx *sql.Tx, groups int, assign iter.Seq2[int64, int]) error {
	for _, q := range []string{
		`CREATE TEMP TABLE IF NOT EXISTS group_assignment (
            particle_id INTEGER PRIMARY KEY,
            grp INTEGER NOT NULL
        )`,
		`DELETE FROM temp.group_assignment`,
	} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return &db.Error{Op: db.OpAssign, Err: err}
		}
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO temp.group_assignment (particle_id, grp) VALUES (?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpAssign, Err: err}
	}
	defer stmt.Close()

	for pid, grp := range assign {
		if grp < 0 || grp >= groups {
			return fmt.Errorf("particle %d assigned to group %d of %d", pid, grp, groups)
		}
		if _, err := stmt.ExecContext(ctx, pid, grp); err != nil {
			return &db.Error{Op: db.OpAssign, Err: err}
		}
	}
	return nil
}

// ValidatePredicate rejects empty predicates and statement separators. Everything
// else is passed to SQLite unchanged.
func ValidatePredicate(predicate string) error {
	if strings.TrimSpace(predicate) == "" {
		return fmt.Errorf("%w: predicate is empty", domain.ErrInvalidPredicate)
	}
	if strings.Contains(predicate, ";") {
		return fmt.Errorf("%w: predicate must be a single expression", domain.ErrInvalidPredicate)
	}
	return nil
}

func insertCollection(ctx context.Context, tx *sql.Tx, col domcol.Collection) (int64, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO collections (name, description, datatype, parent_id, created_at) VALUES (?, ?, ?, ?, ?)`,
		col.Name(), col.Description(), string(col.DataType()), col.ParentID(), col.CreatedAt())
	if err != nil {
		return 0, &db.Error{Op: db.OpInsertCol, Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &db.Error{Op: db.OpInsertCol, Err: err}
	}
	return id, nil
}

// insertMembers records membership and iteration order. Repeated ids keep their
// first position.
func insertMembers(ctx context.Context, tx *sql.Tx, id int64, members iter.Seq[int64]) error {
	memberStmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO collection_members (collection_id, particle_id) VALUES (?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpInsertMembers, Err: err}
	}
	defer memberStmt.Close()

	orderStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO collection_order (collection_id, ord, particle_id) VALUES (?, ?, ?)`)
	if err != nil {
		return &db.Error{Op: db.OpInsertOrder, Err: err}
	}
	defer orderStmt.Close()

	var ord int64
	for pid := range members {
		res, err := memberStmt.ExecContext(ctx, id, pid)
		if err != nil {
			return &db.Error{Op: db.OpInsertMembers, Err: err}
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		ord++
		if _, err := orderStmt.ExecContext(ctx, id, ord, pid); err != nil {
			return &db.Error{Op: db.OpInsertOrder, Err: err}
		}
	}
	return nil
}

func exists(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM collections WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("collection %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return &db.Error{Op: db.OpSelectCol, Err: err}
	}
	return nil
}

// Get retrieves a collection by id.
func (r *Repo) Get(ctx context.Context, id int64) (domcol.Collection, error) {
	row := r.store.SQL().QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE id = ?`, id)
	col, err := scanCollection(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domcol.Collection{}, fmt.Errorf("collection %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return domcol.Collection{}, &db.Error{Op: db.OpSelectCol, Err: err}
	}
	return col, nil
}

// List returns every collection ordered by id.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	return r.query(ctx, `SELECT `+collectionColumns+` FROM collections ORDER BY id`)
}

// Children returns the direct children of parentID ordered by id.
func (r *Repo) Children(ctx context.Context, parentID int64) ([]domcol.Collection, error) {
	return r.query(ctx,
		`SELECT `+collectionColumns+` FROM collections WHERE parent_id = ? ORDER BY id`, parentID)
}

// Tree loads the whole hierarchy.
func (r *Repo) Tree(ctx context.Context) (*domcol.Tree, error) {
	cols, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	return domcol.NewTree(cols), nil
}

// Count returns the number of registered collections.
func (r *Repo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.store.SQL().QueryRowContext(ctx, `SELECT COUNT(1) FROM collections`).Scan(&n); err != nil {
		return 0, &db.Error{Op: db.OpSelectCol, Err: err}
	}
	return n, nil
}

// MemberCount returns the number of particles in a collection.
func (r *Repo) MemberCount(ctx context.Context, id int64) (int64, error) {
	var n int64
	err := r.store.SQL().QueryRowContext(ctx,
		`SELECT COUNT(1) FROM collection_members WHERE collection_id = ?`, id).Scan(&n)
	if err != nil {
		return 0, &db.Error{Op: db.OpSelectMembers, Err: err}
	}
	return n, nil
}

// Members returns the particle ids of a collection in iteration order.
func (r *Repo) Members(ctx context.Context, id int64) ([]int64, error) {
	rows, err := r.store.SQL().QueryContext(ctx,
		`SELECT particle_id FROM collection_order WHERE collection_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelectMembers, Err: err}
	}
	defer rows.Close()

	var out []int64
	for rows.Next() {
		var pid int64
		if err := rows.Scan(&pid); err != nil {
			return nil, &db.Error{Op: db.OpSelectMembers, Err: err}
		}
		out = append(out, pid)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelectMembers, Err: err}
	}
	return out, nil
}

func (r *Repo) query(ctx context.Context, q string, args ...any) ([]domcol.Collection, error) {
	rows, err := r.store.SQL().QueryContext(ctx, q, args...)
	if err != nil {
		return nil, &db.Error{Op: db.OpSelectCol, Err: err}
	}
	defer rows.Close()

	out := []domcol.Collection{}
	for rows.Next() {
		col, err := scanCollection(rows)
		if err != nil {
			return nil, &db.Error{Op: db.OpSelectCol, Err: err}
		}
		out = append(out, col)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpSelectCol, Err: err}
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCollection(s scanner) (domcol.Collection, error) {
	var (
		id, parentID, createdAt int64
		name, desc, dataType    string
	)
	if err := s.Scan(&id, &name, &desc, &dataType, &parentID, &createdAt); err != nil {
		return domcol.Collection{}, err
	}
	return domcol.Reconstruct(id, name, desc, domcol.DataType(dataType), parentID, createdAt), nil
}
