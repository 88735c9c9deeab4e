package redisrec

import (
	"context"
	"fmt"
)

// Insert stores a new record and returns it as stored.
//
// If attrs carries the primary key, that id is used; otherwise a fresh id is
// allocated from the sequence counter. Either way ErrAlreadyExists is returned
// when the id is already indexed. attrs itself is never modified.
func (tbl *Table) Insert(ctx context.Context, attrs Record) (Record, error) {
	rec, err := tbl.codec.canonical(attrs)
	if err != nil {
		return nil, recordErrf(tbl, noID, err, "cannot insert")
	}
	pk := tbl.codec.pk

	var id int64
	if v, ok := rec[pk]; ok && v != nil {
		id, err = toID(v)
		if err != nil {
			return nil, recordErrf(tbl, noID, err, "cannot insert")
		}
	} else {
		id, err = tbl.NextID(ctx)
		if err != nil {
			return nil, err
		}
	}

	// Generated ids are checked too: explicit ids do not advance the sequence.
	found, err := tbl.idx.contains(ctx, id)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "checking index")
	}
	if found {
		return nil, recordErrf(tbl, id, ErrAlreadyExists, "cannot insert")
	}
	rec[pk] = id

	fields, err := tbl.codec.encode(rec)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "cannot insert")
	}

	// The body goes first: a failure before the index add leaves an orphan,
	// not an index entry without a record.
	key := tbl.keys.recordKey(id)
	if err := tbl.drv.st.HSet(ctx, key, fields); err != nil {
		return nil, recordErrf(tbl, id, err, "writing %s", key)
	}
	if err := tbl.idx.add(ctx, id); err != nil {
		return nil, recordErrf(tbl, id, err, "indexing %s", key)
	}

	if tbl.drv.verbose {
		tbl.drv.logf("rec: INSERT %s/%d => %s", tbl.name, id, tbl.loggable(fields))
	}
	return tbl.reload(ctx, id)
}

// Update merges attrs into an existing record and returns the full record as
// stored. Attributes not mentioned in attrs are left alone. The primary key
// must be present in attrs and indexed, otherwise ErrNotFound is returned.
func (tbl *Table) Update(ctx context.Context, attrs Record) (Record, error) {
	rec, err := tbl.codec.canonical(attrs)
	if err != nil {
		return nil, recordErrf(tbl, noID, err, "cannot update")
	}
	pk := tbl.codec.pk

	v, ok := rec[pk]
	if !ok || v == nil {
		return nil, recordErrf(tbl, noID, fmt.Errorf("%w: missing %s", ErrNotFound, pk), "cannot update")
	}
	id, err := toID(v)
	if err != nil {
		return nil, recordErrf(tbl, noID, err, "cannot update")
	}
	found, err := tbl.idx.contains(ctx, id)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "checking index")
	}
	if !found {
		return nil, recordErrf(tbl, id, ErrNotFound, "cannot update")
	}
	rec[pk] = id

	fields, err := tbl.codec.encode(rec)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "cannot update")
	}
	key := tbl.keys.recordKey(id)
	if err := tbl.drv.st.HSet(ctx, key, fields); err != nil {
		return nil, recordErrf(tbl, id, err, "writing %s", key)
	}

	if tbl.drv.verbose {
		tbl.drv.logf("rec: UPDATE %s/%d => %s", tbl.name, id, tbl.loggable(fields))
	}
	return tbl.reload(ctx, id)
}

func (tbl *Table) reload(ctx context.Context, id int64) (Record, error) {
	rec, err := tbl.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		// Someone else deleted it between our write and this read.
		return nil, recordErrf(tbl, id, ErrNotFound, "reading back")
	}
	return rec, nil
}
