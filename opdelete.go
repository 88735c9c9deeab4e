package redisrec

import (
	"context"
)

// HardDelete removes the record and its index entry.
//
// The id leaves the index before the body is deleted, so an interrupted delete
// leaves an orphaned body rather than a dangling index entry. If either the
// index entry or the body is already missing, the record/index invariant was
// broken before this call, and HardDelete returns an error wrapping
// ErrCorrupted. Callers that merely want "delete if present" should check
// Exists first.
func (tbl *Table) HardDelete(ctx context.Context, id int64) error {
	if id < 0 {
		return recordErrf(tbl, id, ErrInvalidID, "cannot delete")
	}
	key := tbl.keys.recordKey(id)

	removed, err := tbl.idx.remove(ctx, id)
	if err != nil {
		return recordErrf(tbl, id, err, "unindexing %s", key)
	}
	if !removed {
		return recordErrf(tbl, id, ErrCorrupted, "when deleting %s, %d was not present in the primary key index %s", key, id, tbl.keys.index)
	}

	n, err := tbl.drv.st.Del(ctx, key)
	if err != nil {
		return recordErrf(tbl, id, err, "deleting %s", key)
	}
	if n != 1 {
		return recordErrf(tbl, id, ErrCorrupted, "%s does not exist", key)
	}

	if tbl.drv.verbose {
		tbl.drv.logf("rec: DELETE %s/%d", tbl.name, id)
	}
	return nil
}

// HardDeleteAll removes every indexed record, one pipelined batch at a time.
// It is not atomic: if it fails midway, a prefix of the ids is gone and the
// rest is intact, and calling it again finishes the job. It returns the
// number of ids it processed.
func (tbl *Table) HardDeleteAll(ctx context.Context) (int, error) {
	var total int
	for batch, err := range tbl.ScanBatches(ctx, tbl.drv.batchSize) {
		if err != nil {
			return total, recordErrf(tbl, noID, err, "scanning index")
		}
		keys := make([]string, len(batch))
		for i, id := range batch {
			keys[i] = tbl.keys.recordKey(id)
		}
		if err := tbl.drv.st.ZRemDelMulti(ctx, tbl.keys.index, batch, keys); err != nil {
			return total, recordErrf(tbl, batch[0], err, "deleting batch of %d", len(batch))
		}
		total += len(batch)
	}
	if tbl.drv.verbose {
		tbl.drv.logf("rec: DELETE_ALL %s => %d", tbl.name, total)
	}
	return total, nil
}
