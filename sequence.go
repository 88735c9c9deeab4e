package redisrec

import "context"

type sequence struct {
	st  Storage
	key string
}

func (seq sequence) next(ctx context.Context) (int64, error) {
	return seq.st.Incr(ctx, seq.key)
}

// NextID allocates a fresh id from the table's sequence counter. Ids are
// strictly increasing and never reused, even after deletes.
func (tbl *Table) NextID(ctx context.Context) (int64, error) {
	id, err := tbl.seq.next(ctx)
	if err != nil {
		return 0, recordErrf(tbl, noID, err, "allocating id")
	}
	if tbl.drv.verbose {
		tbl.drv.logf("rec: NEXTID %s => %d", tbl.name, id)
	}
	return id, nil
}
