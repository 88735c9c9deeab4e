package redisrec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRecords
	DumpOrphans

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump writes a human-readable listing of the table to w. Records that fail
// to decode are listed with their error instead of stopping the dump.
func (tbl *Table) Dump(ctx context.Context, w io.Writer, f DumpFlags) error {
	if f.Contains(DumpTableHeaders) {
		n, err := tbl.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s (%d records) @ %s\n", tbl.name, n, tbl.keys.entity)
	}

	if f.Contains(DumpRecords) {
		var pos int
		for batch, err := range tbl.ScanBatches(ctx, tbl.drv.batchSize) {
			if err != nil {
				return recordErrf(tbl, noID, err, "scanning index")
			}
			for _, id := range batch {
				pos++
				tbl.dumpRecord(ctx, w, pos, id)
			}
		}
	}

	if f.Contains(DumpOrphans) {
		orphans, err := tbl.Orphans(ctx)
		if err != nil {
			return err
		}
		if len(orphans) > 0 {
			fmt.Fprintln(w, dumpSep2)
			for _, id := range orphans {
				fmt.Fprintf(w, "%s.orphan: %s\n", tbl.name, tbl.keys.recordKey(id))
			}
		}
	}
	return nil
}

func (tbl *Table) dumpRecord(ctx context.Context, w io.Writer, pos int, id int64) {
	rec, err := tbl.find(ctx, id)
	switch {
	case err != nil:
		fmt.Fprintf(w, "%s.%d = #%d ** ERROR: %v\n", tbl.name, pos, id, err)
	case rec == nil:
		fmt.Fprintf(w, "%s.%d = #%d ** MISSING BODY\n", tbl.name, pos, id)
	default:
		fmt.Fprintf(w, "%s.%d = #%d %s\n", tbl.name, pos, id, must(json.Marshal(rec)))
	}
}
