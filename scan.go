package redisrec

import (
	"context"
	"iter"
)

// All yields every record of the table in ascending id order.
//
// Ids are read from the index one batch at a time, and each batch's bodies
// are fetched in a single round trip. Records deleted while the scan is
// running are skipped; records inserted behind the cursor are not seen. The
// sequence stops at the first error, which is yielded with a nil record.
func (tbl *Table) All(ctx context.Context) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for batch, err := range tbl.ScanBatches(ctx, tbl.drv.batchSize) {
			if err != nil {
				yield(nil, recordErrf(tbl, noID, err, "scanning index"))
				return
			}
			keys := make([]string, len(batch))
			for i, id := range batch {
				keys[i] = tbl.keys.recordKey(id)
			}
			raws, err := tbl.drv.st.HGetAllMulti(ctx, keys)
			if err != nil {
				yield(nil, recordErrf(tbl, batch[0], err, "reading batch of %d", len(batch)))
				return
			}
			for i, raw := range raws {
				if len(raw) == 0 {
					continue
				}
				rec, err := tbl.codec.decode(keys[i], raw)
				if err != nil {
					yield(nil, recordErrf(tbl, batch[i], err, ""))
					return
				}
				if !yield(rec, nil) {
					return
				}
			}
		}
	}
}

// AllRecords collects All into a slice.
func (tbl *Table) AllRecords(ctx context.Context) ([]Record, error) {
	var result []Record
	for rec, err := range tbl.All(ctx) {
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if tbl.drv.verbose {
		tbl.drv.logf("rec: ALL %s => %d", tbl.name, len(result))
	}
	return result, nil
}

// IDs collects every indexed id in ascending order.
func (tbl *Table) IDs(ctx context.Context) ([]int64, error) {
	var result []int64
	for batch, err := range tbl.ScanBatches(ctx, tbl.drv.batchSize) {
		if err != nil {
			return nil, recordErrf(tbl, noID, err, "scanning index")
		}
		result = append(result, batch...)
	}
	return result, nil
}
