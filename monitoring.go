package redisrec

import (
	"context"
	"encoding/json"
)

// TableStats is a point-in-time summary of a table's keys.
type TableStats struct {
	Records int64
	Orphans int
}

// Stats counts indexed records and orphaned bodies. It walks the keyspace;
// see Orphans.
func (tbl *Table) Stats(ctx context.Context) (TableStats, error) {
	var ts TableStats
	var err error
	ts.Records, err = tbl.Count(ctx)
	if err != nil {
		return ts, err
	}
	orphans, err := tbl.Orphans(ctx)
	if err != nil {
		return ts, err
	}
	ts.Orphans = len(orphans)
	return ts, nil
}

func (tbl *Table) loggable(fields map[string]string) string {
	if tbl.drv.suppressContent {
		return "<suppressed>"
	}
	return string(must(json.Marshal(fields)))
}

func (tbl *Table) loggableRecord(rec Record) string {
	if rec == nil {
		return "<none>"
	}
	if tbl.drv.suppressContent {
		return "<suppressed>"
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return "<unloggable: " + err.Error() + ">"
	}
	return string(data)
}
