package redisrec

import "testing"

func TestTableKeys(t *testing.T) {
	k := makeTableKeys(nil, "users")
	deepEqual(t, k, tableKeys{
		entity:   "users",
		sequence: "users$sequence",
		index:    "users$all",
		record:   "users:",
	})
	deepEqual(t, k.recordKey(42), "users:42")

	k = makeTableKeys([]string{"prod", "t1"}, "users")
	deepEqual(t, k.sequence, "prod:t1:users$sequence")
	deepEqual(t, k.index, "prod:t1:users$all")
	deepEqual(t, k.recordKey(0), "prod:t1:users:0")
}

func TestParseRecordKey(t *testing.T) {
	k := makeTableKeys([]string{"app"}, "users")
	tests := []struct {
		key string
		id  int64
		ok  bool
	}{
		{"app:users:1", 1, true},
		{"app:users:0", 0, true},
		{"app:users:9223372036854775807", 9223372036854775807, true},
		{"app:users:9223372036854775808", 0, false},
		{"app:users:007", 0, false},
		{"app:users:", 0, false},
		{"app:users:-1", 0, false},
		{"app:users:1x", 0, false},
		{"app:users:posts:1", 0, false},
		{"app:users$all", 0, false},
		{"other:users:1", 0, false},
	}
	for _, tt := range tests {
		id, ok := k.parseRecordKey(tt.key)
		if id != tt.id || ok != tt.ok {
			t.Errorf("parseRecordKey(%q) = (%d, %v), wanted (%d, %v)", tt.key, id, ok, tt.id, tt.ok)
		}
	}
}
