package redisrec

import (
	"strconv"
	"strings"
)

const keySep = ":"

// tableKeys holds every storage key of one table. A table's prefix and name
// never change, so the keys are computed once.
type tableKeys struct {
	entity   string
	sequence string
	index    string
	record   string // entity + ":", followed by the id
}

func makeTableKeys(prefix []string, name string) tableKeys {
	comps := make([]string, 0, len(prefix)+1)
	comps = append(comps, prefix...)
	comps = append(comps, name)
	entity := strings.Join(comps, keySep)
	return tableKeys{
		entity:   entity,
		sequence: entity + "$sequence",
		index:    entity + "$all",
		record:   entity + keySep,
	}
}

func (k *tableKeys) recordKey(id int64) string {
	return k.record + strconv.FormatInt(id, 10)
}

// parseRecordKey returns the id encoded in a record key of this table. Keys of
// nested tables (entity:sub:1) and non-canonical numbers (entity:007) do not match.
func (k *tableKeys) parseRecordKey(key string) (int64, bool) {
	s, ok := strings.CutPrefix(key, k.record)
	if !ok || s == "" || len(s) > 19 {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}
