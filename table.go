package redisrec

// Record maps attribute names to values. Decoded records hold int64 for
// Integer attributes, float64, bool, time.Time and string for the other
// scalar kinds, and whatever encoding/json produces for Structured ones.
type Record map[string]any

// Table is one logical table: a sequence counter, a primary-key index and one
// hash per record, all under the same key prefix.
type Table struct {
	drv   *Driver
	name  string
	keys  tableKeys
	codec *codec
	seq   sequence
	idx   pkIndex
}

func (tbl *Table) Name() string {
	return tbl.name
}

func (tbl *Table) PrimaryKey() string {
	return tbl.codec.pk
}

// KeyPrefix returns the prefix shared by all of the table's keys.
func (tbl *Table) KeyPrefix() string {
	return tbl.keys.entity
}

// RecordKey returns the storage key of the record with the given id.
func (tbl *Table) RecordKey(id int64) string {
	return tbl.keys.recordKey(id)
}

// StructuredAttributes returns the attributes stored as JSON, sorted.
func (tbl *Table) StructuredAttributes() []string {
	return append([]string(nil), tbl.codec.structured...)
}

// ID returns the primary key of rec.
func (tbl *Table) ID(rec Record) (int64, bool) {
	v, ok := rec[tbl.codec.pk]
	if !ok || v == nil {
		return 0, false
	}
	id, err := toID(v)
	if err != nil {
		return 0, false
	}
	return id, true
}
