package redisrec

import (
	"context"
	"strings"
	"testing"
)

func TestDump(t *testing.T) {
	forEachBackend(t, func(t *testing.T, drv *Driver) {
		ctx := context.Background()
		users := setupUsers(t, drv)
		must(users.Insert(ctx, Record{"email": "a@example.com"}))
		must(users.Insert(ctx, Record{"email": "b@example.com"}))
		ok(t, drv.Storage().HSet(ctx, users.RecordKey(2), map[string]string{"age": "x"}))
		ok(t, drv.Storage().HSet(ctx, users.RecordKey(9), map[string]string{"id": "9"}))

		var buf strings.Builder
		ok(t, users.Dump(ctx, &buf, DumpAll))
		s := buf.String()
		t.Log(s)

		for _, line := range []string{
			"users (2 records) @ users\n",
			`users.1 = #1 {"email":"a@example.com","id":1}` + "\n",
			"users.2 = #2 ** ERROR: ",
			"users.orphan: users:9\n",
		} {
			if !strings.Contains(s, line) {
				t.Errorf("dump is missing %q", line)
			}
		}

		buf.Reset()
		ok(t, users.Dump(ctx, &buf, DumpTableHeaders))
		if strings.Contains(buf.String(), "users.1") {
			t.Errorf("DumpTableHeaders printed records:\n%s", buf.String())
		}
	})
}
