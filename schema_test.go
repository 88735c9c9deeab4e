package redisrec

import "testing"

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{String, Integer, Float, Boolean, Time, Structured} {
		deepEqual(t, must(ParseKind(k.String())), k)
	}
	deepEqual(t, must(ParseKind(" JSON ")), Structured)
	deepEqual(t, must(ParseKind("int")), Integer)
	if _, err := ParseKind("blob"); err == nil {
		t.Errorf("ParseKind(blob) succeeded, wanted error")
	}
	deepEqual(t, Kind(99).String(), "Kind(99)")
}

func TestSchema(t *testing.T) {
	scm := NewSchema("id").Attr("name", String).Attr("tags", Structured)
	deepEqual(t, scm.PrimaryKey(), "id")
	deepEqual(t, scm.Attributes(), []Attribute{{"id", Integer}, {"name", String}, {"tags", Structured}})
	deepEqual(t, Structured.RequiresEncoding(), true)
	deepEqual(t, Time.RequiresEncoding(), false)

	defer func() {
		if recover() == nil {
			t.Errorf("duplicate Attr did not panic")
		}
	}()
	scm.Attr("name", Integer)
}
