package redisrec

import (
	"context"
)

// Find returns the record with the given id, or nil (and no error) if there
// is none.
func (tbl *Table) Find(ctx context.Context, id int64) (Record, error) {
	if id < 0 {
		return nil, recordErrf(tbl, id, ErrInvalidID, "cannot find")
	}
	rec, err := tbl.find(ctx, id)
	if tbl.drv.verbose && err == nil {
		if rec != nil {
			tbl.drv.logf("rec: FIND %s/%d => %s", tbl.name, id, tbl.loggableRecord(rec))
		} else {
			tbl.drv.logf("rec: FIND.NOTFOUND %s/%d", tbl.name, id)
		}
	}
	return rec, err
}

// MustFind is like Find, but returns ErrNotFound when the record is absent.
func (tbl *Table) MustFind(ctx context.Context, id int64) (Record, error) {
	rec, err := tbl.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, recordErrf(tbl, id, ErrNotFound, "cannot find")
	}
	return rec, nil
}

func (tbl *Table) find(ctx context.Context, id int64) (Record, error) {
	key := tbl.keys.recordKey(id)
	raw, err := tbl.drv.st.HGetAll(ctx, key)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "reading %s", key)
	}
	if len(raw) == 0 {
		return nil, nil
	}
	rec, err := tbl.codec.decode(key, raw)
	if err != nil {
		return nil, recordErrf(tbl, id, err, "")
	}
	return rec, nil
}

// Exists reports whether id is in the primary-key index. It does not read
// the record body.
func (tbl *Table) Exists(ctx context.Context, id int64) (bool, error) {
	if id < 0 {
		return false, nil
	}
	found, err := tbl.idx.contains(ctx, id)
	if err != nil {
		return false, recordErrf(tbl, id, err, "checking index")
	}
	if tbl.drv.verbose {
		tbl.drv.logf("rec: EXISTS.%s %s/%d", map[bool]string{false: "NO", true: "YES"}[found], tbl.name, id)
	}
	return found, nil
}

// Count returns the number of indexed records.
func (tbl *Table) Count(ctx context.Context) (int64, error) {
	n, err := tbl.idx.count(ctx)
	if err != nil {
		return 0, recordErrf(tbl, noID, err, "counting")
	}
	return n, nil
}
