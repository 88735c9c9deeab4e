package redisrec

import (
	"context"
	"slices"
)

// Orphans returns the ids of record bodies that exist in storage but are
// missing from the primary-key index, in ascending order. These are left
// behind by inserts and deletes interrupted between their two writes.
//
// On Redis this walks the keyspace with SCAN, so it is meant for maintenance
// tools rather than request paths.
func (tbl *Table) Orphans(ctx context.Context) ([]int64, error) {
	var candidates []int64
	err := tbl.drv.st.ScanPrefix(ctx, tbl.keys.record, func(key string) error {
		if id, ok := tbl.keys.parseRecordKey(key); ok {
			candidates = append(candidates, id)
		}
		return nil
	})
	if err != nil {
		return nil, recordErrf(tbl, noID, err, "scanning keys")
	}
	slices.Sort(candidates)
	candidates = slices.Compact(candidates)

	var orphans []int64
	for _, id := range candidates {
		found, err := tbl.idx.contains(ctx, id)
		if err != nil {
			return nil, recordErrf(tbl, id, err, "checking index")
		}
		if !found {
			orphans = append(orphans, id)
		}
	}
	return orphans, nil
}

// SweepOrphans deletes the bodies reported by Orphans and returns their ids.
// Each id is checked against the index again right before deletion, so a
// concurrent Insert that has written its body but not yet indexed it can
// still lose its body; run this only when writers are quiet.
func (tbl *Table) SweepOrphans(ctx context.Context) ([]int64, error) {
	orphans, err := tbl.Orphans(ctx)
	if err != nil {
		return nil, err
	}
	swept := orphans[:0]
	for _, id := range orphans {
		found, err := tbl.idx.contains(ctx, id)
		if err != nil {
			return swept, recordErrf(tbl, id, err, "checking index")
		}
		if found {
			continue
		}
		if _, err := tbl.drv.st.Del(ctx, tbl.keys.recordKey(id)); err != nil {
			return swept, recordErrf(tbl, id, err, "deleting orphan")
		}
		if tbl.drv.verbose {
			tbl.drv.logf("rec: SWEEP %s/%d", tbl.name, id)
		}
		swept = append(swept, id)
	}
	return swept, nil
}
