package redisrec

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeValue(t *testing.T) {
	tm := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	tests := []struct {
		kind Kind
		v    any
		e    string
	}{
		{String, "foo", "foo"},
		{String, []byte("bar"), "bar"},
		{String, 12, "12"},
		{String, nil, ""},
		{Integer, 42, "42"},
		{Integer, int8(-3), "-3"},
		{Integer, uint32(7), "7"},
		{Integer, 5.0, "5"},
		{Integer, " 17 ", "17"},
		{Integer, json.Number("99"), "99"},
		{Integer, nil, ""},
		{Float, 2.5, "2.5"},
		{Float, 3, "3"},
		{Float, "1e3", "1000"},
		{Boolean, true, "true"},
		{Boolean, "1", "true"},
		{Time, tm, "2024-01-02T03:04:05.000000006Z"},
		{Time, &tm, "2024-01-02T03:04:05.000000006Z"},
		{Time, (*time.Time)(nil), ""},
		{Time, "2024-01-02T03:04:05Z", "2024-01-02T03:04:05Z"},
		{Structured, map[string]any{"b": 1, "a": []int{1, 2}}, `{"a":[1,2],"b":1}`},
		{Structured, "x", `"x"`},
		{Structured, nil, "null"},
	}
	for _, tt := range tests {
		a, err := encodeValue(tt.kind, tt.v)
		if err != nil {
			t.Errorf("encodeValue(%v, %#v) failed: %v", tt.kind, tt.v, err)
		} else if a != tt.e {
			t.Errorf("encodeValue(%v, %#v) = %q, wanted %q", tt.kind, tt.v, a, tt.e)
		}
	}
}

func TestEncodeValueErrors(t *testing.T) {
	tests := []struct {
		kind Kind
		v    any
	}{
		{Integer, "abc"},
		{Integer, 1.5},
		{Integer, uint64(math.MaxUint64)},
		{Integer, true},
		{Float, "x"},
		{Float, []int{1}},
		{Boolean, "maybe"},
		{Boolean, 1},
		{Time, "yesterday"},
		{Time, 123},
		{Structured, make(chan int)},
	}
	for _, tt := range tests {
		if a, err := encodeValue(tt.kind, tt.v); err == nil {
			t.Errorf("encodeValue(%v, %#v) = %q, wanted error", tt.kind, tt.v, a)
		}
	}
}

func TestDecodeValue(t *testing.T) {
	tests := []struct {
		kind Kind
		s    string
		e    any
	}{
		{String, "", ""},
		{String, "42", "42"},
		{Integer, "42", int64(42)},
		{Integer, "", nil},
		{Float, "2.5", 2.5},
		{Boolean, "false", false},
		{Structured, `{"a":[1,"x"]}`, map[string]any{"a": []any{int64(1), "x"}}},
		{Structured, `{"n":9007199254740993,"f":1.5,"e":1e3}`, map[string]any{"n": int64(9007199254740993), "f": 1.5, "e": float64(1000)}},
		{Structured, `[{"a":-2}] `, []any{map[string]any{"a": int64(-2)}}},
		{Structured, "null", nil},
	}
	for _, tt := range tests {
		a, err := decodeValue(tt.kind, tt.s)
		if err != nil {
			t.Errorf("decodeValue(%v, %q) failed: %v", tt.kind, tt.s, err)
			continue
		}
		deepEqual(t, a, tt.e)
	}

	a := must(decodeValue(Time, "2024-01-02T03:04:05.5Z"))
	if !a.(time.Time).Equal(time.Date(2024, 1, 2, 3, 4, 5, 500000000, time.UTC)) {
		t.Errorf("decodeValue(Time) = %v", a)
	}

	for _, kind := range []Kind{Integer, Float, Boolean, Time, Structured} {
		if _, err := decodeValue(kind, "{garbage"); err == nil {
			t.Errorf("decodeValue(%v, garbage) succeeded, wanted error", kind)
		}
	}
	if _, err := decodeValue(Structured, `{} {}`); err == nil {
		t.Errorf("decodeValue(Structured) accepted trailing data")
	}
}

func TestCodecDecodeReportsField(t *testing.T) {
	c := must(newCodec(usersSchema))
	_, err := c.decode("users:1", map[string]string{"id": "1", "prefs": "{oops"})
	var de *DataError
	if !errors.As(err, &de) {
		t.Fatalf("decode error = %v, wanted *DataError", err)
	}
	deepEqual(t, de.Key, "users:1")
	deepEqual(t, de.Field, "prefs")
	isErr(t, err, ErrCorrupted)
}

func TestCodecDecodePrefersExactName(t *testing.T) {
	c := must(newCodec(usersSchema))
	for range 20 {
		rec := must(c.decode("users:1", map[string]string{"id": "1", "email": "a", "EMAIL": "b", "Age": "3"}))
		deepEqual(t, rec, Record{"id": int64(1), "email": "a", "age": int64(3)})
	}
}

func TestCodecCanonical(t *testing.T) {
	c := must(newCodec(NewSchema("ID").Attr("Email", String).Attr("email", Integer)))
	deepEqual(t, c.canonicalName("id"), "ID")
	deepEqual(t, c.canonicalName("EMAIL"), "Email")
	deepEqual(t, c.canonicalName("email"), "email")
	deepEqual(t, c.canonicalName("other"), "other")

	in := Record{"id": 1}
	out := must(c.canonical(in))
	deepEqual(t, out, Record{"ID": 1})
	deepEqual(t, in, Record{"id": 1})

	// distinct declared names do not clash
	deepEqual(t, must(c.canonical(Record{"Email": "a", "email": 2})), Record{"Email": "a", "email": 2})

	_, err := c.canonical(Record{"id": 1, "ID": 2})
	isErr(t, err, ErrInvalidValue)
	_, err = c.canonical(Record{"EMAIL": "a", "Email": "b"})
	isErr(t, err, ErrInvalidValue)
}

func TestToID(t *testing.T) {
	deepEqual(t, must(toID(int32(5))), int64(5))
	deepEqual(t, must(toID("12")), int64(12))
	deepEqual(t, must(toID(float64(7))), int64(7))
	deepEqual(t, must(toID(int64(MaxID))), int64(MaxID))
	for _, v := range []any{-1, "x", 1.5, nil, uint64(math.MaxUint64), int64(MaxID + 1), int64(math.MaxInt64)} {
		_, err := toID(v)
		isErr(t, err, ErrInvalidID)
	}
}
