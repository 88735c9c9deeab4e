package redisrec

import (
	"context"
	"iter"
	"math"
)

// pkIndex is the sorted set of live ids. Each id is its own score, so "the
// next n ids after x" is a plain score range query.
type pkIndex struct {
	st  Storage
	key string
}

func (idx pkIndex) add(ctx context.Context, id int64) error {
	return idx.st.ZAdd(ctx, idx.key, id)
}

func (idx pkIndex) remove(ctx context.Context, id int64) (bool, error) {
	return idx.st.ZRem(ctx, idx.key, id)
}

func (idx pkIndex) contains(ctx context.Context, id int64) (bool, error) {
	return idx.st.ZScore(ctx, idx.key, id)
}

func (idx pkIndex) count(ctx context.Context) (int64, error) {
	return idx.st.ZCard(ctx, idx.key)
}

func (idx pkIndex) batches(ctx context.Context, size int) iter.Seq2[[]int64, error] {
	return func(yield func([]int64, error) bool) {
		var lower int64
		for {
			batch, err := idx.st.ZRangeFrom(ctx, idx.key, lower, size)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}
			if !yield(batch, nil) {
				return
			}
			last := batch[len(batch)-1]
			if last == math.MaxInt64 {
				return
			}
			lower = last + 1
		}
	}
}

// ScanBatches yields the table's ids in ascending batches of up to size ids
// (DefaultBatchSize if size <= 0). Each batch starts after the last id of the
// previous one; the walk ends at the first empty batch.
func (tbl *Table) ScanBatches(ctx context.Context, size int) iter.Seq2[[]int64, error] {
	if size <= 0 {
		size = DefaultBatchSize
	}
	return tbl.idx.batches(ctx, size)
}
